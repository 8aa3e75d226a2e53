package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor runs fn inside a single database transaction. The transaction is
// committed when fn returns nil and rolled back on error or panic.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error
}

// Store bundles the repositories that share one database handle.
type Store struct {
	Accounts     AccountRepository
	Appointments AppointmentRepository
	Doctors      DoctorRepository
	History      MedicalHistoryRepository

	db *gorm.DB
}

var _ Transactor = (*Store)(nil)

// NewStore builds every repository over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		Accounts:     NewAccountRepository(db),
		Appointments: NewAppointmentRepository(db),
		Doctors:      NewDoctorRepository(db),
		History:      NewMedicalHistoryRepository(db),
		db:           db,
	}
}

// WithTransaction executes fn with a Store bound to a new transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewStore(tx))
	})
}
