package lms

import (
	"encoding/json"
	"fmt"
	"liftworks/models/training"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PublicItem is a quiz item without its answer.
type PublicItem struct {
	ID         uint     `json:"id"`
	ModuleSlug string   `json:"module_slug"`
	Prompt     string   `json:"prompt"`
	Choices    []string `json:"choices"`
	Tags       []string `json:"tags"`
}

// ToPublicItems strips answers from items.
func ToPublicItems(items []training.QuizItem) []PublicItem {
	out := make([]PublicItem, 0, len(items))
	for _, q := range items {
		var choices []string
		_ = json.Unmarshal(q.Choices, &choices)
		out = append(out, PublicItem{ID: q.ID, ModuleSlug: q.ModuleSlug, Prompt: q.Prompt, Choices: choices, Tags: q.TagList()})
	}
	return out
}

// ModuleItems returns the active quiz items owned by module.
func ModuleItems(db *gorm.DB, module *training.Module) ([]training.QuizItem, error) {
	var items []training.QuizItem
	err := db.Where("module_slug = ? AND is_active = ? AND is_deleted = false", module.Slug, true).
		Order("id asc").Find(&items).Error
	return items, err
}

// ItemFeedback is the per-item grading shown after a quiz submission.
type ItemFeedback struct {
	ItemID      uint   `json:"item_id"`
	Chosen      *int   `json:"chosen"`
	AnswerIndex int    `json:"answer_index"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}

// QuizResult is the outcome of a module quiz submission.
type QuizResult struct {
	Attempt    *training.QuizAttempt    `json:"attempt"`
	Progress   *training.ModuleProgress `json:"module_progress"`
	Enrollment *training.Enrollment     `json:"enrollment"`
	Feedback   []ItemFeedback           `json:"feedback"`
}

// SubmitQuiz grades answers (item id -> choice) for a module quiz. The best
// score is kept and a pass is never undone by a later attempt.
func SubmitQuiz(db *gorm.DB, userID, moduleID uint, answers map[uint]int) (*QuizResult, error) {
	module, err := FindModule(db, moduleID)
	if err != nil {
		return nil, err
	}
	enrollment, err := FindEnrollment(db, userID, module.CourseID)
	if err != nil {
		return nil, err
	}
	items, err := ModuleItems(db, module)
	if err != nil {
		return nil, fmt.Errorf("load quiz items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoQuizItems
	}

	correct := 0
	feedback := make([]ItemFeedback, 0, len(items))
	stored := make(map[string]int, len(answers))
	for _, item := range items {
		fb := ItemFeedback{ItemID: item.ID, AnswerIndex: item.AnswerIndex, Explanation: item.Explanation}
		if choice, ok := answers[item.ID]; ok {
			c := choice
			fb.Chosen = &c
			fb.Correct = choice == item.AnswerIndex
			stored[strconv.FormatUint(uint64(item.ID), 10)] = choice
		}
		if fb.Correct {
			correct++
		}
		feedback = append(feedback, fb)
	}
	percent := correct * 100 / len(items)
	passed := percent >= module.PassPercent
	raw, _ := json.Marshal(stored)

	result := &QuizResult{Feedback: feedback}
	err = db.Transaction(func(tx *gorm.DB) error {
		var attempts int64
		if err := tx.Model(&training.QuizAttempt{}).
			Where("enrollment_id = ? AND module_id = ?", enrollment.ID, module.ID).Count(&attempts).Error; err != nil {
			return err
		}
		attempt := training.QuizAttempt{
			UserID:        userID,
			EnrollmentID:  enrollment.ID,
			ModuleID:      module.ID,
			Answers:       datatypes.JSON(raw),
			Score:         correct,
			MaxScore:      len(items),
			Percent:       percent,
			Passed:        passed,
			AttemptNumber: int(attempts) + 1,
		}
		if err := tx.Create(&attempt).Error; err != nil {
			return err
		}
		result.Attempt = &attempt

		mp, err := moduleProgress(tx, enrollment.ID, module.ID)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{"attempts": mp.Attempts + 1}
		mp.Attempts++
		if percent > mp.BestPercent {
			updates["best_percent"] = percent
			mp.BestPercent = percent
		}
		if passed && !mp.Passed {
			now := time.Now()
			updates["passed"] = true
			updates["passed_at"] = now
			mp.Passed, mp.PassedAt = true, &now
		}
		if err := tx.Model(mp).Updates(updates).Error; err != nil {
			return err
		}
		result.Progress = mp

		e, err := Recalculate(tx, enrollment.ID)
		if err != nil {
			return err
		}
		result.Enrollment = e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit quiz: %w", err)
	}
	return result, nil
}
