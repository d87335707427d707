package models

import (
	"time"

	"gorm.io/gorm"
)

// What a one-time code may be redeemed for.
const (
	OTPVerifyEmail   = "VERIFY_EMAIL"
	OTPResetPassword = "RESET_PASSWORD"
)

// OneTimeCode stores a bcrypt digest of an emailed six-digit code. A code is
// spent once ConsumedAt is set or Attempts reaches the guess limit.
type OneTimeCode struct {
	gorm.Model
	UserID     uint       `json:"user_id" gorm:"not null;index:idx_otp_user_purpose"`
	Purpose    string     `json:"purpose" gorm:"size:20;not null;index:idx_otp_user_purpose"`
	CodeHash   string     `json:"-" gorm:"size:72;not null"`
	Attempts   int        `json:"attempts" gorm:"default:0"`
	ExpiresAt  time.Time  `json:"expires_at" gorm:"not null"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}
