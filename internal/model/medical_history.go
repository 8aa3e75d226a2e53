package model

import "time"

// MedicalHistory is a single entry in an account's medical history.
type MedicalHistory struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	AccountID  uint      `json:"account_id" gorm:"not null;index"`
	Diagnosis  string    `json:"diagnosis" gorm:"size:255"`
	Notes      string    `json:"notes,omitempty" gorm:"type:text"`
	RecordedAt time.Time `json:"recorded_at"`

	Account Account `json:"-" gorm:"foreignKey:AccountID;constraint:OnDelete:RESTRICT"`
}
