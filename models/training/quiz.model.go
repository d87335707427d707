package training

import (
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizItem is a single multiple-choice question owned by a module.
// Items flagged ExamEligible are also drawn into final exam papers.
type QuizItem struct {
	gorm.Model
	ModuleSlug   string         `json:"module_slug" gorm:"index;size:120;not null"`
	Prompt       string         `json:"prompt" gorm:"type:text;not null"`
	Choices      datatypes.JSON `json:"choices"` // []string
	AnswerIndex  int            `json:"-"`
	Explanation  string         `json:"explanation,omitempty" gorm:"type:text"`
	Tags         string         `json:"-"`       // comma separated
	ExamEligible bool           `json:"exam_eligible" gorm:"default:true"`
	IsActive     bool           `json:"is_active" gorm:"default:true"`
	IsDeleted    bool           `json:"-" gorm:"default:false"`
}

// TagList splits the stored comma separated tags.
func (q QuizItem) TagList() []string {
	if strings.TrimSpace(q.Tags) == "" {
		return []string{}
	}
	parts := strings.Split(q.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// QuizAttempt is a learner's submission of a module quiz
type QuizAttempt struct {
	gorm.Model
	UserID        uint           `json:"user_id" gorm:"index;not null"`
	EnrollmentID  uint           `json:"enrollment_id" gorm:"index;not null"`
	ModuleID      uint           `json:"module_id" gorm:"index;not null"`
	Answers       datatypes.JSON `json:"answers"` // map[itemID]choice
	Score         int            `json:"score"`
	MaxScore      int            `json:"max_score"`
	Percent       int            `json:"percent"`
	Passed        bool           `json:"passed"`
	AttemptNumber int            `json:"attempt_number" gorm:"default:1"`
	IsDeleted     bool           `json:"-" gorm:"default:false"`
}
