// Package lms holds learner progress, module quiz grading and quiz import.
package lms

import (
	"errors"
	"fmt"
	"liftworks/models/training"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotEnrolled     = errors.New("user is not enrolled in this course")
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrModuleNotFound  = errors.New("module not found")
	ErrNoQuizItems     = errors.New("module has no quiz items")
	ErrCourseCompleted = errors.New("course already completed")
)

// FindEnrollment returns the user's live enrollment in course.
func FindEnrollment(db *gorm.DB, userID, courseID uint) (*training.Enrollment, error) {
	var e training.Enrollment
	err := db.Where("user_id = ? AND course_id = ? AND is_deleted = false", userID, courseID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotEnrolled
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindModule loads a live module.
func FindModule(db *gorm.DB, moduleID uint) (*training.Module, error) {
	var m training.Module
	err := db.Where("id = ? AND is_deleted = false", moduleID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrModuleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Recalculate refreshes an enrollment's module counts and percentage.
// COMPLETED enrollments keep their status.
func Recalculate(db *gorm.DB, enrollmentID uint) (*training.Enrollment, error) {
	var e training.Enrollment
	if err := db.First(&e, enrollmentID).Error; err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}

	var total int64
	if err := db.Model(&training.Module{}).
		Where("course_id = ? AND is_deleted = false", e.CourseID).Count(&total).Error; err != nil {
		return nil, err
	}
	var passed int64
	if err := db.Model(&training.ModuleProgress{}).
		Joins("JOIN modules ON modules.id = module_progresses.module_id AND modules.is_deleted = false AND modules.deleted_at IS NULL").
		Where("module_progresses.enrollment_id = ? AND module_progresses.passed = ?", e.ID, true).
		Count(&passed).Error; err != nil {
		return nil, err
	}
	var touched int64
	if err := db.Model(&training.ModuleProgress{}).
		Where("enrollment_id = ? AND (lessons_done > 0 OR attempts > 0)", e.ID).Count(&touched).Error; err != nil {
		return nil, err
	}

	progress := 0.0
	if total > 0 {
		progress = float64(passed) / float64(total) * 100
	}
	status := e.Status
	if status != training.EnrollmentCompleted && (touched > 0 || passed > 0) {
		status = training.EnrollmentInProgress
	}
	if e.Status == training.EnrollmentCompleted {
		progress = 100
	}

	updates := map[string]interface{}{
		"total_modules":  int(total),
		"passed_modules": int(passed),
		"progress":       progress,
		"status":         status,
	}
	if err := db.Model(&e).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update enrollment progress: %w", err)
	}
	e.TotalModules, e.PassedModules, e.Progress, e.Status = int(total), int(passed), progress, status
	return &e, nil
}

func moduleProgress(db *gorm.DB, enrollmentID, moduleID uint) (*training.ModuleProgress, error) {
	var mp training.ModuleProgress
	err := db.Where("enrollment_id = ? AND module_id = ?", enrollmentID, moduleID).First(&mp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		mp = training.ModuleProgress{EnrollmentID: enrollmentID, ModuleID: moduleID}
		if err := db.Create(&mp).Error; err != nil {
			return nil, err
		}
		return &mp, nil
	}
	if err != nil {
		return nil, err
	}
	return &mp, nil
}

// CompleteLesson records a finished lesson and updates the module rollup.
func CompleteLesson(db *gorm.DB, userID, lessonID uint) (*training.ModuleProgress, error) {
	var lesson training.Lesson
	err := db.Where("id = ? AND is_deleted = false", lessonID).First(&lesson).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLessonNotFound
	}
	if err != nil {
		return nil, err
	}
	module, err := FindModule(db, lesson.ModuleID)
	if err != nil {
		return nil, err
	}
	enrollment, err := FindEnrollment(db, userID, module.CourseID)
	if err != nil {
		return nil, err
	}

	var out *training.ModuleProgress
	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&training.LessonCompletion{}).
			Where("enrollment_id = ? AND lesson_id = ? AND is_deleted = false", enrollment.ID, lesson.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := tx.Create(&training.LessonCompletion{UserID: userID, EnrollmentID: enrollment.ID, LessonID: lesson.ID}).Error; err != nil {
				return err
			}
		}

		var done int64
		if err := tx.Model(&training.LessonCompletion{}).
			Joins("JOIN lessons ON lessons.id = lesson_completions.lesson_id").
			Where("lesson_completions.enrollment_id = ? AND lessons.module_id = ? AND lesson_completions.is_deleted = false",
				enrollment.ID, module.ID).
			Count(&done).Error; err != nil {
			return err
		}

		mp, err := moduleProgress(tx, enrollment.ID, module.ID)
		if err != nil {
			return err
		}
		if err := tx.Model(mp).Update("lessons_done", int(done)).Error; err != nil {
			return err
		}
		mp.LessonsDone = int(done)
		out = mp

		_, err = Recalculate(tx, enrollment.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ModuleStatus is one row of a progress summary.
type ModuleStatus struct {
	ModuleID     uint       `json:"module_id"`
	Slug         string     `json:"slug"`
	Title        string     `json:"title"`
	OrderIndex   int        `json:"order_index"`
	LessonsTotal int        `json:"lessons_total"`
	LessonsDone  int        `json:"lessons_done"`
	BestPercent  int        `json:"best_percent"`
	Attempts     int        `json:"attempts"`
	Passed       bool       `json:"passed"`
	PassedAt     *time.Time `json:"passed_at"`
}

// Summary is a learner's course progress.
type Summary struct {
	Enrollment   *training.Enrollment `json:"enrollment"`
	Modules      []ModuleStatus       `json:"modules"`
	ExamUnlocked bool                 `json:"exam_unlocked"`
}

// ProgressSummary builds the per-module and overall progress for a learner.
func ProgressSummary(db *gorm.DB, userID, courseID uint) (*Summary, error) {
	enrollment, err := FindEnrollment(db, userID, courseID)
	if err != nil {
		return nil, err
	}
	enrollment, err = Recalculate(db, enrollment.ID)
	if err != nil {
		return nil, err
	}

	var modules []training.Module
	if err := db.Where("course_id = ? AND is_deleted = false", courseID).
		Order("order_index asc").Find(&modules).Error; err != nil {
		return nil, err
	}
	var rows []training.ModuleProgress
	if err := db.Where("enrollment_id = ?", enrollment.ID).Find(&rows).Error; err != nil {
		return nil, err
	}
	byModule := make(map[uint]training.ModuleProgress, len(rows))
	for _, r := range rows {
		byModule[r.ModuleID] = r
	}

	out := &Summary{Enrollment: enrollment, Modules: make([]ModuleStatus, 0, len(modules))}
	for _, m := range modules {
		var lessons int64
		db.Model(&training.Lesson{}).Where("module_id = ? AND is_deleted = false", m.ID).Count(&lessons)
		mp := byModule[m.ID]
		out.Modules = append(out.Modules, ModuleStatus{
			ModuleID:     m.ID,
			Slug:         m.Slug,
			Title:        m.Title,
			OrderIndex:   m.OrderIndex,
			LessonsTotal: int(lessons),
			LessonsDone:  mp.LessonsDone,
			BestPercent:  mp.BestPercent,
			Attempts:     mp.Attempts,
			Passed:       mp.Passed,
			PassedAt:     mp.PassedAt,
		})
	}
	out.ExamUnlocked = len(modules) > 0 && enrollment.PassedModules == len(modules) &&
		enrollment.Status != training.EnrollmentCompleted
	return out, nil
}
