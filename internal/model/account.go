package model

import "time"

// Account is a user identity of the medical records platform.
type Account struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"uniqueIndex:idx_accounts_username;size:100;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Email        string    `json:"email" gorm:"uniqueIndex:idx_accounts_email;size:255;not null"`
	FirstName    string    `json:"first_name" gorm:"size:100"`
	LastName     string    `json:"last_name" gorm:"size:150"`
	Age          int       `json:"age"`
	Role         int       `json:"role" gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the account holds administrator privilege.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}
