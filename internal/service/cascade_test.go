package service

import (
	"context"
	"errors"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "cuentas/internal/errors"
	"cuentas/internal/model"
	"cuentas/internal/repository"
	"cuentas/internal/testutil"
)

type cascadeFixture struct {
	db      *gorm.DB
	store   *repository.Store
	patient *model.Account
	doctor  *model.Account
	profile *model.Doctor
}

// seedCascade creates a patient with two appointments and one history entry, and a
// doctor whose profile has one appointment booked by the patient.
func seedCascade(t *testing.T) *cascadeFixture {
	t.Helper()
	ctx := context.Background()

	gormDB := testutil.NewDB(t)
	store := repository.NewStore(gormDB)

	f := &cascadeFixture{
		db:      gormDB,
		store:   store,
		patient: &model.Account{Username: "patient", PasswordHash: "x", Email: "p@x.com", FirstName: "Pat", LastName: "Doe", Age: 40, Role: model.RolePatient},
		doctor:  &model.Account{Username: "doctor", PasswordHash: "x", Email: "d@x.com", FirstName: "Doc", LastName: "Roe", Age: 50, Role: model.RoleDoctor},
	}
	require.NoError(t, store.Accounts.Create(ctx, f.patient))
	require.NoError(t, store.Accounts.Create(ctx, f.doctor))

	f.profile = &model.Doctor{AccountID: f.doctor.ID, Specialty: "neurology"}
	require.NoError(t, store.Doctors.Create(ctx, f.profile))

	require.NoError(t, store.Appointments.Create(ctx, &model.Appointment{AccountID: f.patient.ID, ScheduledAt: time.Now()}))
	require.NoError(t, store.Appointments.Create(ctx, &model.Appointment{AccountID: f.patient.ID, DoctorID: &f.profile.ID, ScheduledAt: time.Now()}))
	require.NoError(t, store.History.Create(ctx, &model.MedicalHistory{AccountID: f.patient.ID, Diagnosis: "migraine", RecordedAt: time.Now()}))
	return f
}

func (f *cascadeFixture) count(t *testing.T, dest interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(dest).Count(&n).Error)
	return n
}

func TestCascadeDeleter_RemovesRequesterRows(t *testing.T) {
	f := seedCascade(t)
	collector := newTestCollector()
	deleter := NewCascadeDeleter(f.store.Accounts, f.store, collector, zap.NewNop())

	report, err := deleter.DeleteAccount(context.Background(), f.patient.ID)
	require.NoError(t, err)

	assert.Equal(t, &CascadeReport{
		AccountID:             f.patient.ID,
		RequesterAppointments: 2,
		HistoryEntries:        1,
	}, report)
	assert.Equal(t, int64(0), f.count(t, &model.Appointment{}))
	assert.Equal(t, int64(0), f.count(t, &model.MedicalHistory{}))
	assert.Equal(t, int64(1), f.count(t, &model.Account{}))

	_, err = f.store.Accounts.FindByID(context.Background(), f.patient.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, 2.0, promtestutil.ToFloat64(collector.CascadeRowsDeleted.WithLabelValues("appointments")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(collector.CascadeRowsDeleted.WithLabelValues("medical_histories")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(collector.AccountsDeletedTotal))
}

func TestCascadeDeleter_RemovesDoctorProfile(t *testing.T) {
	f := seedCascade(t)
	collector := newTestCollector()
	deleter := NewCascadeDeleter(f.store.Accounts, f.store, collector, zap.NewNop())

	report, err := deleter.DeleteAccount(context.Background(), f.doctor.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(0), report.RequesterAppointments)
	assert.Equal(t, int64(1), report.DoctorAppointments)
	assert.True(t, report.DoctorProfileRemoved)

	assert.Equal(t, int64(0), f.count(t, &model.Doctor{}))
	// the patient's own appointment without a doctor survives
	assert.Equal(t, int64(1), f.count(t, &model.Appointment{}))
	assert.Equal(t, int64(1), f.count(t, &model.MedicalHistory{}))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(collector.CascadeRowsDeleted.WithLabelValues("doctors")))
}

func TestCascadeDeleter_RollsBackOnFailure(t *testing.T) {
	f := seedCascade(t)

	injected := errors.New("disk I/O error")
	err := f.db.Callback().Delete().Before("gorm:delete").Register("test:fail_account_delete", func(tx *gorm.DB) {
		if tx.Statement.Table == "accounts" {
			_ = tx.AddError(injected)
		}
	})
	require.NoError(t, err)

	collector := newTestCollector()
	deleter := NewCascadeDeleter(f.store.Accounts, f.store, collector, zap.NewNop())

	report, err := deleter.DeleteAccount(context.Background(), f.patient.ID)
	require.ErrorIs(t, err, injected)
	assert.Nil(t, report)

	assert.Equal(t, int64(2), f.count(t, &model.Account{}))
	assert.Equal(t, int64(2), f.count(t, &model.Appointment{}))
	assert.Equal(t, int64(1), f.count(t, &model.MedicalHistory{}))
	assert.Equal(t, int64(1), f.count(t, &model.Doctor{}))

	assert.Equal(t, 1.0, promtestutil.ToFloat64(collector.CascadeRollbacksTotal))
	assert.Equal(t, 0.0, promtestutil.ToFloat64(collector.AccountsDeletedTotal))
}

func TestCascadeDeleter_UnknownAccountSkipsTransaction(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	mockRepo.On("FindByID", mock.Anything, uint(42)).Return(nil, apperrors.ErrNotFound)
	transactor := new(MockTransactor)

	deleter := NewCascadeDeleter(mockRepo, transactor, newTestCollector(), zap.NewNop())
	report, err := deleter.DeleteAccount(context.Background(), 42)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, report)
	transactor.AssertNotCalled(t, "WithTransaction", mock.Anything, mock.Anything)
}

func TestCascadeDeleter_TransactionBeginFailure(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	mockRepo.On("FindByID", mock.Anything, uint(1)).Return(&model.Account{ID: 1}, nil)
	transactor := new(MockTransactor)
	transactor.On("WithTransaction", mock.Anything, mock.Anything).Return(errors.New("too many connections"))

	collector := newTestCollector()
	deleter := NewCascadeDeleter(mockRepo, transactor, collector, zap.NewNop())
	_, err := deleter.DeleteAccount(context.Background(), 1)

	require.Error(t, err)
	assert.Equal(t, apperrors.KindFailure, apperrors.KindOf(err))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(collector.CascadeRollbacksTotal))
	transactor.AssertExpectations(t)
}
