package models

import (
	"time"

	"gorm.io/gorm"
)

// Reasons recorded on failed sign-in attempts.
const (
	LoginFailWrongPassword = "wrong_password"
	LoginFailUnverified    = "email_unverified"
	LoginFailBlocked       = "blocked"
)

// LoginAttempt is one sign-in against a known account, successful or not.
type LoginAttempt struct {
	gorm.Model
	UserID      uint      `json:"user_id" gorm:"index;not null"`
	IPAddress   string    `json:"ip_address" gorm:"size:64"`
	UserAgent   string    `json:"user_agent" gorm:"size:255"`
	Succeeded   bool      `json:"succeeded" gorm:"index"`
	FailReason  string    `json:"fail_reason,omitempty" gorm:"size:32"`
	AttemptedAt time.Time `json:"attempted_at" gorm:"index"`
	IsDeleted   bool      `json:"-" gorm:"default:false"`
}
