package model

import "time"

// Appointment is a visit requested by an account, optionally with a doctor.
type Appointment struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	AccountID   uint      `json:"account_id" gorm:"not null;index"`
	DoctorID    *uint     `json:"doctor_id,omitempty" gorm:"index"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Reason      string    `json:"reason" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`

	// Relations
	Account Account `json:"-" gorm:"foreignKey:AccountID;constraint:OnDelete:RESTRICT"`
	Doctor  *Doctor `json:"-" gorm:"foreignKey:DoctorID;constraint:OnDelete:RESTRICT"`
}
