package model

import "time"

// Doctor is the practitioner profile attached to an account.
// Appointments reference Doctor.ID, not the account id.
type Doctor struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	AccountID uint      `json:"account_id" gorm:"uniqueIndex;not null"`
	Specialty string    `json:"specialty" gorm:"size:150"`
	CreatedAt time.Time `json:"created_at"`

	Account Account `json:"-" gorm:"foreignKey:AccountID;constraint:OnDelete:RESTRICT"`
}
