package repository

import (
	"context"

	"gorm.io/gorm"

	apperrors "cuentas/internal/errors"
	"cuentas/internal/model"
)

// DoctorRepository defines doctor profile persistence operations.
type DoctorRepository interface {
	Create(ctx context.Context, doctor *model.Doctor) error
	FindByAccountID(ctx context.Context, accountID uint) (*model.Doctor, error)
	Delete(ctx context.Context, id uint) error
}

type doctorRepository struct {
	db *gorm.DB
}

// NewDoctorRepository creates a new doctor repository.
func NewDoctorRepository(db *gorm.DB) DoctorRepository {
	return &doctorRepository{db: db}
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	return ClassifyConstraint(r.db.WithContext(ctx).Omit("Account").Create(doctor).Error)
}

// FindByAccountID returns the profile attached to the account or ErrNotFound.
func (r *doctorRepository) FindByAccountID(ctx context.Context, accountID uint) (*model.Doctor, error) {
	var doctor model.Doctor
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&doctor).Error; err != nil {
		return nil, notFound(err)
	}
	return &doctor, nil
}

func (r *doctorRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Doctor{}, id)
	if res.Error != nil {
		return ClassifyConstraint(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
