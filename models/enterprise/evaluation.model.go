package enterprise

import (
	"time"

	"gorm.io/gorm"
)

// Evaluation results
const (
	EvalPass          = "PASS"
	EvalFail          = "FAIL"
	EvalNeedsTraining = "NEEDS_TRAINING"
)

// Evaluation records an employer's hands-on evaluation of an operator.
type Evaluation struct {
	gorm.Model
	OrgID         uint      `json:"org_id" gorm:"index;not null"`
	LearnerID     uint      `json:"learner_id" gorm:"index;not null"`
	EvaluatorID   uint      `json:"evaluator_id" gorm:"not null"`
	EquipmentType string    `json:"equipment_type"`
	Result        string    `json:"result"`
	Notes         string    `json:"notes" gorm:"type:text"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
	IsDeleted     bool      `json:"-" gorm:"default:false"`
}
