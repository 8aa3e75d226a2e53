package repository

import (
	"context"

	"gorm.io/gorm"

	"cuentas/internal/model"
)

// AppointmentRepository defines appointment persistence operations.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	CountByAccountID(ctx context.Context, accountID uint) (int64, error)
	DeleteByAccountID(ctx context.Context, accountID uint) (int64, error)
	DeleteByDoctorID(ctx context.Context, doctorID uint) (int64, error)
}

type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	return ClassifyConstraint(r.db.WithContext(ctx).Omit("Account", "Doctor").Create(appointment).Error)
}

func (r *appointmentRepository) CountByAccountID(ctx context.Context, accountID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Appointment{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}

// DeleteByAccountID removes the appointments requested by the account.
func (r *appointmentRepository) DeleteByAccountID(ctx context.Context, accountID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&model.Appointment{})
	return res.RowsAffected, ClassifyConstraint(res.Error)
}

// DeleteByDoctorID removes the appointments booked with the doctor profile.
func (r *appointmentRepository) DeleteByDoctorID(ctx context.Context, doctorID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("doctor_id = ?", doctorID).Delete(&model.Appointment{})
	return res.RowsAffected, ClassifyConstraint(res.Error)
}
