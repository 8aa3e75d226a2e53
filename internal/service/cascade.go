package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apperrors "cuentas/internal/errors"
	"cuentas/internal/metrics"
	"cuentas/internal/repository"
)

// CascadeReport counts the rows removed together with an account.
type CascadeReport struct {
	AccountID             uint  `json:"account_id"`
	RequesterAppointments int64 `json:"requester_appointments"`
	DoctorAppointments    int64 `json:"doctor_appointments"`
	DoctorProfileRemoved  bool  `json:"doctor_profile_removed"`
	HistoryEntries        int64 `json:"history_entries"`
}

// AccountDeleter removes an account and everything that references it.
type AccountDeleter interface {
	DeleteAccount(ctx context.Context, id uint) (*CascadeReport, error)
}

// CascadeDeleter deletes an account with its appointments, doctor profile and
// medical history in one transaction.
type CascadeDeleter struct {
	accounts repository.AccountRepository
	tx       repository.Transactor
	metrics  *metrics.Collector
	log      *zap.Logger
}

var _ AccountDeleter = (*CascadeDeleter)(nil)

// NewCascadeDeleter creates a cascade deleter.
func NewCascadeDeleter(accounts repository.AccountRepository, tx repository.Transactor, m *metrics.Collector, log *zap.Logger) *CascadeDeleter {
	return &CascadeDeleter{
		accounts: accounts,
		tx:       tx,
		metrics:  m,
		log:      log,
	}
}

// DeleteAccount removes, in order: appointments requested by the account, appointments
// booked with its doctor profile, the doctor profile, its medical history, and the
// account row. Either every step commits or none does. An unknown id returns
// ErrNotFound without opening a transaction.
func (d *CascadeDeleter) DeleteAccount(ctx context.Context, id uint) (*CascadeReport, error) {
	if _, err := d.accounts.FindByID(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	log := d.log.With(zap.Uint("account_id", id))
	report := &CascadeReport{AccountID: id}

	err := d.tx.WithTransaction(ctx, func(ctx context.Context, tx *repository.Store) error {
		n, err := tx.Appointments.DeleteByAccountID(ctx, id)
		if err != nil {
			return fmt.Errorf("delete requester appointments: %w", err)
		}
		report.RequesterAppointments = n
		if n > 0 {
			log.Info("deleting appointments requested by account", zap.Int64("count", n))
		}

		doctor, err := tx.Doctors.FindByAccountID(ctx, id)
		switch {
		case err == nil:
			n, err := tx.Appointments.DeleteByDoctorID(ctx, doctor.ID)
			if err != nil {
				return fmt.Errorf("delete doctor appointments: %w", err)
			}
			report.DoctorAppointments = n
			if n > 0 {
				log.Info("deleting appointments where account is the doctor",
					zap.Uint("doctor_id", doctor.ID), zap.Int64("count", n))
			}

			if err := tx.Doctors.Delete(ctx, doctor.ID); err != nil {
				return fmt.Errorf("delete doctor profile: %w", err)
			}
			report.DoctorProfileRemoved = true
			log.Info("deleting doctor profile", zap.Uint("doctor_id", doctor.ID))
		case errors.Is(err, apperrors.ErrNotFound):
		default:
			return fmt.Errorf("find doctor profile: %w", err)
		}

		n, err = tx.History.DeleteByAccountID(ctx, id)
		if err != nil {
			return fmt.Errorf("delete medical history: %w", err)
		}
		report.HistoryEntries = n
		if n > 0 {
			log.Info("deleting medical history entries", zap.Int64("count", n))
		}

		if err := tx.Accounts.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete account row: %w", err)
		}
		return nil
	})
	if err != nil {
		d.metrics.CascadeRollbacksTotal.Inc()
		log.Error("cascade deletion rolled back", zap.Error(err))
		return nil, err
	}

	d.metrics.CascadeRowsDeleted.WithLabelValues("appointments").Add(float64(report.RequesterAppointments + report.DoctorAppointments))
	d.metrics.CascadeRowsDeleted.WithLabelValues("medical_histories").Add(float64(report.HistoryEntries))
	if report.DoctorProfileRemoved {
		d.metrics.CascadeRowsDeleted.WithLabelValues("doctors").Inc()
	}
	d.metrics.AccountsDeletedTotal.Inc()
	log.Info("account deleted",
		zap.Int64("requester_appointments", report.RequesterAppointments),
		zap.Int64("doctor_appointments", report.DoctorAppointments),
		zap.Bool("doctor_profile", report.DoctorProfileRemoved),
		zap.Int64("history_entries", report.HistoryEntries),
	)
	return report, nil
}
