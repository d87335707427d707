package training

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Exam session status values
const (
	SessionInProgress = "IN_PROGRESS"
	SessionSubmitted  = "SUBMITTED"
	SessionExpired    = "EXPIRED"
)

// ExamPaper is the immutable set of items drawn for one exam attempt.
type ExamPaper struct {
	gorm.Model
	UserID    uint           `json:"user_id" gorm:"index;not null"`
	CourseID  uint           `json:"course_id" gorm:"index;not null"`
	ItemIDs   datatypes.JSON `json:"item_ids"` // []uint, in presentation order
	AnswerKey datatypes.JSON `json:"-"`        // []int, parallel to ItemIDs
	IsDeleted bool           `json:"-" gorm:"default:false"`
}

// ExamSession is a timed attempt at a paper.
type ExamSession struct {
	gorm.Model
	UserID       uint           `json:"user_id" gorm:"index;not null"`
	CourseID     uint           `json:"course_id" gorm:"index;not null"`
	EnrollmentID uint           `json:"enrollment_id" gorm:"index;not null"`
	PaperID      uint           `json:"paper_id" gorm:"not null"`
	Status       string         `json:"status" gorm:"index;default:'IN_PROGRESS'"`
	StartedAt    time.Time      `json:"started_at"`
	ExpiresAt    time.Time      `json:"expires_at" gorm:"index"`
	SubmittedAt  *time.Time     `json:"submitted_at"`
	Answers      datatypes.JSON `json:"answers"` // map[itemID]choice
	Correct      int            `json:"correct"`
	Total        int            `json:"total"`
	Score        int            `json:"score"`
	Passed       bool           `json:"passed"`
	IsDeleted    bool           `json:"-" gorm:"default:false"`
}
