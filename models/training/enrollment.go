package training

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment status values
const (
	EnrollmentEnrolled   = "ENROLLED"
	EnrollmentInProgress = "IN_PROGRESS"
	EnrollmentCompleted  = "COMPLETED"
)

// Enrollment sources
const (
	SourcePurchase = "PURCHASE"
	SourceSeat     = "SEAT"
	SourceAdmin    = "ADMIN"
)

// Enrollment tracks a user's enrollment in a course with progress
type Enrollment struct {
	gorm.Model
	UserID        uint       `json:"user_id" gorm:"index;not null"`
	CourseID      uint       `json:"course_id" gorm:"index;not null"`
	OrgID         *uint      `json:"org_id" gorm:"index"`
	SeatID        *uint      `json:"seat_id"`
	Source        string     `json:"source" gorm:"default:'PURCHASE'"`
	Status        string     `json:"status" gorm:"default:'ENROLLED'"` // ENROLLED, IN_PROGRESS, COMPLETED
	Progress      float64    `json:"progress" gorm:"default:0"`        // Completion percentage (0-100)
	PassedModules int        `json:"passed_modules" gorm:"default:0"`
	TotalModules  int        `json:"total_modules" gorm:"default:0"`
	ExamStarts    int        `json:"exam_starts" gorm:"default:0"` // bumped by every new exam session
	CompletedAt   *time.Time `json:"completed_at"`
	IsDeleted     bool       `json:"-" gorm:"default:false"`
}

// ModuleProgress is the per-module rollup for an enrollment.
type ModuleProgress struct {
	gorm.Model
	EnrollmentID uint       `json:"enrollment_id" gorm:"uniqueIndex:idx_progress_enrollment_module;not null"`
	ModuleID     uint       `json:"module_id" gorm:"uniqueIndex:idx_progress_enrollment_module;not null"`
	LessonsDone  int        `json:"lessons_done" gorm:"default:0"`
	BestPercent  int        `json:"best_percent" gorm:"default:0"`
	Attempts     int        `json:"attempts" gorm:"default:0"`
	Passed       bool       `json:"passed" gorm:"default:false"`
	PassedAt     *time.Time `json:"passed_at"`
}
