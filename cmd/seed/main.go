package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"cuentas/internal/auth"
	"cuentas/internal/config"
	"cuentas/internal/db"
	apperrors "cuentas/internal/errors"
	"cuentas/internal/logger"
	"cuentas/internal/metrics"
	"cuentas/internal/model"
	"cuentas/internal/repository"
	"cuentas/internal/service"
)

// demoAccounts are created with -demo so the cascade can be exercised locally.
var demoAccounts = []service.CreateAccountInput{
	{Username: "drhouse", Password: "vicodin1", Email: "house@sistemamedico.local", FirstName: "Gregory", LastName: "House", Age: 52, Role: model.RoleDoctor},
	{Username: "jdoe", Password: "secret1", Email: "jdoe@sistemamedico.local", FirstName: "John", LastName: "Doe", Age: 30, Role: model.RolePatient},
}

func main() {
	demo := flag.Bool("demo", false, "also create a demo doctor, patient, appointments and history")
	flag.Parse()

	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}
	zlog.Info("database migrations completed")

	store := repository.NewStore(gormDB)
	collector := metrics.NewCollector(prometheus.NewRegistry())
	hasher := auth.NewPasswordHasher(cfg.Argon2Params())
	deleter := service.NewCascadeDeleter(store.Accounts, store, collector, zlog)
	accounts, err := service.NewAccountService(store.Accounts, deleter, hasher, nil, collector, zlog)
	if err != nil {
		zlog.Fatal("account service init", zap.Error(err))
	}

	ctx := context.Background()

	if cfg.SeedAdminPassword == "" {
		zlog.Warn("SEED_ADMIN_PASSWORD not set, skipping administrator account")
	} else {
		id, err := ensureAccount(ctx, accounts, service.CreateAccountInput{
			Username:  cfg.SeedAdminUsername,
			Password:  cfg.SeedAdminPassword,
			Email:     cfg.SeedAdminEmail,
			FirstName: "System",
			LastName:  "Administrator",
			Age:       1,
			Role:      model.RoleAdmin,
		})
		if err != nil {
			zlog.Fatal("failed to seed administrator", zap.Error(err))
		}
		zlog.Info("administrator ready", zap.Uint("account_id", id), zap.String("username", cfg.SeedAdminUsername))
	}

	if *demo {
		if err := seedDemo(ctx, accounts, store); err != nil {
			zlog.Fatal("failed to seed demo data", zap.Error(err))
		}
		zlog.Info("demo data ready")
	}
}

// ensureAccount creates the account or returns the id of the existing one with the
// same username.
func ensureAccount(ctx context.Context, accounts service.AccountService, in service.CreateAccountInput) (uint, error) {
	id, err := accounts.Create(ctx, in)
	if err == nil {
		return id, nil
	}

	var conflictErr *apperrors.ConflictError
	if !errors.As(err, &conflictErr) || conflictErr.Field != "username" {
		return 0, fmt.Errorf("create %s: %w", in.Username, err)
	}
	existing, err := accounts.GetByUsername(ctx, in.Username)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", in.Username, err)
	}
	return existing.ID, nil
}

func seedDemo(ctx context.Context, accounts service.AccountService, store *repository.Store) error {
	ids := make([]uint, 0, len(demoAccounts))
	for _, in := range demoAccounts {
		id, err := ensureAccount(ctx, accounts, in)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	doctorAccountID, patientID := ids[0], ids[1]

	return store.WithTransaction(ctx, func(ctx context.Context, tx *repository.Store) error {
		doctor, err := tx.Doctors.FindByAccountID(ctx, doctorAccountID)
		if errors.Is(err, apperrors.ErrNotFound) {
			doctor = &model.Doctor{AccountID: doctorAccountID, Specialty: "diagnostic medicine"}
			err = tx.Doctors.Create(ctx, doctor)
		}
		if err != nil {
			return fmt.Errorf("doctor profile: %w", err)
		}

		existing, err := tx.Appointments.CountByAccountID(ctx, patientID)
		if err != nil {
			return fmt.Errorf("count appointments: %w", err)
		}
		if existing > 0 {
			return nil
		}

		tomorrow := time.Now().Add(24 * time.Hour)
		for _, appt := range []*model.Appointment{
			{AccountID: patientID, DoctorID: &doctor.ID, ScheduledAt: tomorrow, Reason: "persistent headache"},
			{AccountID: patientID, ScheduledAt: tomorrow.Add(7 * 24 * time.Hour), Reason: "annual check-up"},
		} {
			if err := tx.Appointments.Create(ctx, appt); err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}
		}

		return tx.History.Create(ctx, &model.MedicalHistory{
			AccountID:  patientID,
			Diagnosis:  "migraine",
			Notes:      "responds to rest and hydration",
			RecordedAt: time.Now(),
		})
	})
}
