package repository

import (
	"context"

	"gorm.io/gorm"

	"cuentas/internal/model"
)

// MedicalHistoryRepository defines medical history persistence operations.
type MedicalHistoryRepository interface {
	Create(ctx context.Context, entry *model.MedicalHistory) error
	DeleteByAccountID(ctx context.Context, accountID uint) (int64, error)
}

type medicalHistoryRepository struct {
	db *gorm.DB
}

// NewMedicalHistoryRepository creates a new medical history repository.
func NewMedicalHistoryRepository(db *gorm.DB) MedicalHistoryRepository {
	return &medicalHistoryRepository{db: db}
}

func (r *medicalHistoryRepository) Create(ctx context.Context, entry *model.MedicalHistory) error {
	return ClassifyConstraint(r.db.WithContext(ctx).Omit("Account").Create(entry).Error)
}

func (r *medicalHistoryRepository) DeleteByAccountID(ctx context.Context, accountID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&model.MedicalHistory{})
	return res.RowsAffected, ClassifyConstraint(res.Error)
}
