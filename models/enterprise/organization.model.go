package enterprise

import (
	"time"

	"gorm.io/gorm"
)

// Org roles, from most to least privileged.
const (
	RoleOwner      = "OWNER"
	RoleAdmin      = "ADMIN"
	RoleSupervisor = "SUPERVISOR"
	RoleLearner    = "LEARNER"
)

// Member status values
const (
	MemberActive  = "ACTIVE"
	MemberRemoved = "REMOVED"
)

// Organization is an employer account that buys seats for its operators.
type Organization struct {
	gorm.Model
	Name      string `json:"name" gorm:"not null"`
	Slug      string `json:"slug" gorm:"uniqueIndex;size:120;not null"`
	OwnerID   uint   `json:"owner_id" gorm:"index;not null"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	IsDeleted bool   `json:"-" gorm:"default:false"`
}

// OrgMember joins a user to an organization with a role.
type OrgMember struct {
	gorm.Model
	OrgID     uint       `json:"org_id" gorm:"uniqueIndex:idx_org_member;not null"`
	UserID    uint       `json:"user_id" gorm:"uniqueIndex:idx_org_member;not null"`
	Role      string     `json:"role" gorm:"default:'LEARNER'"`
	Status    string     `json:"status" gorm:"default:'ACTIVE'"`
	JoinedAt  time.Time  `json:"joined_at"`
	RemovedAt *time.Time `json:"removed_at"`
}

// OrgSeat is an organization's seat pool for one course.
type OrgSeat struct {
	gorm.Model
	OrgID          uint `json:"org_id" gorm:"uniqueIndex:idx_org_seat_course;not null"`
	CourseID       uint `json:"course_id" gorm:"uniqueIndex:idx_org_seat_course;not null"`
	AllocatedSeats int  `json:"allocated_seats" gorm:"default:0"`
	UsedSeats      int  `json:"used_seats" gorm:"default:0"`
}

// Available returns the number of unclaimed seats.
func (s OrgSeat) Available() int {
	if s.UsedSeats >= s.AllocatedSeats {
		return 0
	}
	return s.AllocatedSeats - s.UsedSeats
}
