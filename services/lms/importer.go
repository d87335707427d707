package lms

import (
	"encoding/json"
	"errors"
	"fmt"
	"liftworks/logger"
	"liftworks/models/training"
	"sort"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizImportItem is one item in an import batch.
type QuizImportItem struct {
	ModuleSlug   string   `json:"module_slug"`
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	AnswerIndex  *int     `json:"answer_index"`
	Explanation  string   `json:"explanation"`
	Tags         []string `json:"tags"`
	ExamEligible *bool    `json:"exam_eligible"`
}

// QuizImport is the body of an import request or file.
type QuizImport struct {
	Items []QuizImportItem `json:"items"`
}

// ImportResult counts what an import changed.
type ImportResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// ValidationErrors maps an item field path such as items[2].choices to a message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "invalid quiz import: " + strings.Join(parts, "; ")
}

// ErrEmptyImport is returned for a batch without items.
var ErrEmptyImport = errors.New("import contains no items")

// ValidateQuizImport checks every item and returns all problems at once.
func ValidateQuizImport(db *gorm.DB, batch *QuizImport) error {
	if batch == nil || len(batch.Items) == 0 {
		return ErrEmptyImport
	}

	known := map[string]bool{}
	var slugs []string
	if err := db.Model(&training.Module{}).Where("is_deleted = false").Pluck("slug", &slugs).Error; err != nil {
		return fmt.Errorf("load module slugs: %w", err)
	}
	for _, s := range slugs {
		known[s] = true
	}

	errs := ValidationErrors{}
	for i, item := range batch.Items {
		key := fmt.Sprintf("items[%d]", i)
		slug := strings.TrimSpace(item.ModuleSlug)
		switch {
		case slug == "":
			errs[key+".module_slug"] = "module_slug is required"
		case !known[slug]:
			errs[key+".module_slug"] = fmt.Sprintf("unknown module %q", slug)
		}
		if strings.TrimSpace(item.Prompt) == "" {
			errs[key+".prompt"] = "prompt is required"
		}
		if len(item.Choices) < 2 {
			errs[key+".choices"] = "at least 2 choices are required"
		} else {
			for j, c := range item.Choices {
				if strings.TrimSpace(c) == "" {
					errs[fmt.Sprintf("%s.choices[%d]", key, j)] = "choice must not be blank"
				}
			}
		}
		switch {
		case item.AnswerIndex == nil:
			errs[key+".answer_index"] = "answer_index is required"
		case *item.AnswerIndex < 0 || *item.AnswerIndex >= len(item.Choices):
			errs[key+".answer_index"] = fmt.Sprintf("answer_index must be between 0 and %d", max(len(item.Choices)-1, 0))
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ImportQuiz validates then upserts a batch in one transaction. An item whose
// module already holds the same prompt updates that item.
func ImportQuiz(db *gorm.DB, batch *QuizImport) (*ImportResult, error) {
	if err := ValidateQuizImport(db, batch); err != nil {
		return nil, err
	}

	result := &ImportResult{}
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, in := range batch.Items {
			slug := strings.TrimSpace(in.ModuleSlug)
			prompt := strings.TrimSpace(in.Prompt)
			choices := make([]string, len(in.Choices))
			for i, c := range in.Choices {
				choices[i] = strings.TrimSpace(c)
			}
			rawChoices, _ := json.Marshal(choices)
			tags := normalizeTags(in.Tags)
			eligible := in.ExamEligible == nil || *in.ExamEligible

			var existing training.QuizItem
			err := tx.Where("module_slug = ? AND prompt = ? AND is_deleted = false", slug, prompt).First(&existing).Error
			switch {
			case err == nil:
				if err := tx.Model(&existing).Updates(map[string]interface{}{
					"choices":       datatypes.JSON(rawChoices),
					"answer_index":  *in.AnswerIndex,
					"explanation":   in.Explanation,
					"tags":          tags,
					"exam_eligible": eligible,
					"is_active":     true,
				}).Error; err != nil {
					return err
				}
				result.Updated++
			case errors.Is(err, gorm.ErrRecordNotFound):
				item := training.QuizItem{
					ModuleSlug:   slug,
					Prompt:       prompt,
					Choices:      datatypes.JSON(rawChoices),
					AnswerIndex:  *in.AnswerIndex,
					Explanation:  in.Explanation,
					Tags:         tags,
					ExamEligible: eligible,
					IsActive:     true,
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
				// exam_eligible defaults to true on insert.
				if !eligible {
					if err := tx.Model(&item).Update("exam_eligible", false).Error; err != nil {
						return err
					}
				}
				result.Inserted++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import quiz: %w", err)
	}

	logger.Log.Infow("quiz import finished", "inserted", result.Inserted, "updated", result.Updated)
	return result, nil
}

func normalizeTags(tags []string) string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] || strings.Contains(t, ",") {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return strings.Join(out, ",")
}
