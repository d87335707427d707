package enterprise

import (
	"time"

	"gorm.io/gorm"
)

// Invitation status values
const (
	InvitePending  = "PENDING"
	InviteAccepted = "ACCEPTED"
	InviteRevoked  = "REVOKED"
	InviteExpired  = "EXPIRED"
)

// Invitation offers a seat in an org's course pool to an email address.
type Invitation struct {
	gorm.Model
	OrgID      uint       `json:"org_id" gorm:"index;not null"`
	CourseID   uint       `json:"course_id" gorm:"index;not null"`
	Email      string     `json:"email" gorm:"index;not null"`
	Role       string     `json:"role" gorm:"default:'LEARNER'"`
	Token      string     `json:"-" gorm:"uniqueIndex;size:64;not null"`
	Status     string     `json:"status" gorm:"index;default:'PENDING'"`
	InvitedBy  uint       `json:"invited_by"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedBy *uint      `json:"accepted_by"`
	AcceptedAt *time.Time `json:"accepted_at"`
	LastSentAt *time.Time `json:"last_sent_at"`
	IsDeleted  bool       `json:"-" gorm:"default:false"`
}
