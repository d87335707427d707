package training

import (
	"time"

	"gorm.io/gorm"
)

// Certificate represents an issued operator training certificate
type Certificate struct {
	gorm.Model
	UserID            uint       `json:"user_id" gorm:"index;not null"`
	CourseID          uint       `json:"course_id" gorm:"index;not null"`
	SessionID         uint       `json:"session_id"`
	OrgID             *uint      `json:"org_id" gorm:"index"`
	HolderName        string     `json:"holder_name"`
	CourseTitle       string     `json:"course_title"`
	Score             int        `json:"score"`
	CertificateNumber string     `json:"certificate_number" gorm:"uniqueIndex;size:40"`
	PDFPath           string     `json:"-"`
	IssuedAt          time.Time  `json:"issued_at"`
	ExpiresAt         time.Time  `json:"expires_at" gorm:"index"`
	Revoked           bool       `json:"revoked" gorm:"default:false"`
	RevokedAt         *time.Time `json:"revoked_at"`
	ReminderSent      bool       `json:"-" gorm:"default:false"`
	IsDeleted         bool       `json:"-" gorm:"default:false"`
}

// Valid reports whether the certificate is unrevoked and unexpired at t.
func (c Certificate) Valid(t time.Time) bool {
	return !c.Revoked && !c.IsDeleted && t.Before(c.ExpiresAt)
}
