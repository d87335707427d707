package lms

import (
	"testing"

	"liftworks/models"
	"liftworks/models/training"
	"liftworks/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int    { return &i }
func boolPtr(b bool) *bool { return &b }

func moduleAnswers(t *testing.T, items []training.QuizItem, right int) map[uint]int {
	t.Helper()
	answers := map[uint]int{}
	for i, it := range items {
		if i < right {
			answers[it.ID] = it.AnswerIndex
		} else {
			answers[it.ID] = 0
		}
	}
	return answers
}

func TestSubmitQuizPassesModuleAndUpdatesProgress(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "op@example.com", models.RoleUser)
	course, modules := testutil.CreateCourse(t, db, "forklift", 2, 5)
	testutil.Enroll(t, db, user.ID, course.ID)

	items, err := ModuleItems(db, &modules[0])
	require.NoError(t, err)
	require.Len(t, items, 5)

	// 3/5 = 60% fails the 80% mark.
	res, err := SubmitQuiz(db, user.ID, modules[0].ID, moduleAnswers(t, items, 3))
	require.NoError(t, err)
	assert.Equal(t, 60, res.Attempt.Percent)
	assert.False(t, res.Attempt.Passed)
	assert.Equal(t, 1, res.Attempt.AttemptNumber)
	assert.Equal(t, training.EnrollmentInProgress, res.Enrollment.Status)
	assert.Zero(t, res.Enrollment.Progress)
	assert.Len(t, res.Feedback, 5)

	res, err = SubmitQuiz(db, user.ID, modules[0].ID, moduleAnswers(t, items, 4))
	require.NoError(t, err)
	assert.True(t, res.Attempt.Passed)
	assert.Equal(t, 2, res.Attempt.AttemptNumber)
	assert.True(t, res.Progress.Passed)
	assert.Equal(t, 80, res.Progress.BestPercent)
	assert.Equal(t, 1, res.Enrollment.PassedModules)
	assert.InDelta(t, 50.0, res.Enrollment.Progress, 0.001)

	// A worse attempt keeps the best score and the pass.
	res, err = SubmitQuiz(db, user.ID, modules[0].ID, moduleAnswers(t, items, 0))
	require.NoError(t, err)
	assert.True(t, res.Progress.Passed)
	assert.Equal(t, 80, res.Progress.BestPercent)
	assert.Equal(t, 3, res.Progress.Attempts)

	summary, err := ProgressSummary(db, user.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, summary.Modules, 2)
	assert.True(t, summary.Modules[0].Passed)
	assert.False(t, summary.Modules[1].Passed)
	assert.False(t, summary.ExamUnlocked)

	items2, err := ModuleItems(db, &modules[1])
	require.NoError(t, err)
	_, err = SubmitQuiz(db, user.ID, modules[1].ID, moduleAnswers(t, items2, 5))
	require.NoError(t, err)
	summary, err = ProgressSummary(db, user.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, summary.ExamUnlocked)
	assert.InDelta(t, 100.0, summary.Enrollment.Progress, 0.001)
	assert.Equal(t, training.EnrollmentInProgress, summary.Enrollment.Status)
}

func TestSubmitQuizRequiresEnrollment(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "op@example.com", models.RoleUser)
	_, modules := testutil.CreateCourse(t, db, "forklift", 1, 2)

	_, err := SubmitQuiz(db, user.ID, modules[0].ID, nil)
	assert.ErrorIs(t, err, ErrNotEnrolled)

	_, err = SubmitQuiz(db, user.ID, 9999, nil)
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestCompleteLessonIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "op@example.com", models.RoleUser)
	course, modules := testutil.CreateCourse(t, db, "forklift", 1, 1)
	testutil.Enroll(t, db, user.ID, course.ID)

	var lesson training.Lesson
	require.NoError(t, db.Where("module_id = ?", modules[0].ID).First(&lesson).Error)

	mp, err := CompleteLesson(db, user.ID, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, mp.LessonsDone)

	mp, err = CompleteLesson(db, user.ID, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, mp.LessonsDone)

	e, err := FindEnrollment(db, user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, training.EnrollmentInProgress, e.Status)

	_, err = CompleteLesson(db, user.ID, 9999)
	assert.ErrorIs(t, err, ErrLessonNotFound)
}

func TestImportQuizValidation(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateCourse(t, db, "forklift", 1, 0)

	err := ValidateQuizImport(db, &QuizImport{})
	assert.ErrorIs(t, err, ErrEmptyImport)

	err = ValidateQuizImport(db, &QuizImport{Items: []QuizImportItem{
		{ModuleSlug: "forklift-m1", Prompt: "ok", Choices: []string{"a", "b"}, AnswerIndex: intPtr(1)},
		{ModuleSlug: "nope", Prompt: "", Choices: []string{"only"}, AnswerIndex: intPtr(3)},
		{ModuleSlug: "forklift-m1", Prompt: "q", Choices: []string{"a", " "}},
	}})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "items[1].module_slug")
	assert.Contains(t, verrs, "items[1].prompt")
	assert.Contains(t, verrs, "items[1].choices")
	assert.Contains(t, verrs, "items[1].answer_index")
	assert.Contains(t, verrs, "items[2].choices[1]")
	assert.Contains(t, verrs, "items[2].answer_index")
	assert.NotContains(t, verrs, "items[0].prompt")
}

func TestImportQuizUpsertsAtomically(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateCourse(t, db, "forklift", 1, 0)

	batch := &QuizImport{Items: []QuizImportItem{
		{ModuleSlug: "forklift-m1", Prompt: "What is the stability triangle?", Choices: []string{"A", "B", "C"},
			AnswerIndex: intPtr(2), Tags: []string{"Stability", "stability", " physics "}},
		{ModuleSlug: "forklift-m1", Prompt: "Inspect forks before each shift?", Choices: []string{"Yes", "No"},
			AnswerIndex: intPtr(0), ExamEligible: boolPtr(false)},
	}}
	res, err := ImportQuiz(db, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Zero(t, res.Updated)

	var first training.QuizItem
	require.NoError(t, db.Where("prompt = ?", "What is the stability triangle?").First(&first).Error)
	assert.Equal(t, []string{"stability", "physics"}, first.TagList())
	assert.True(t, first.ExamEligible)

	var second training.QuizItem
	require.NoError(t, db.Where("prompt = ?", "Inspect forks before each shift?").First(&second).Error)
	assert.False(t, second.ExamEligible)

	batch.Items[0].AnswerIndex = intPtr(1)
	res, err = ImportQuiz(db, &QuizImport{Items: batch.Items[:1]})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	require.NoError(t, db.First(&first, first.ID).Error)
	assert.Equal(t, 1, first.AnswerIndex)

	var count int64
	db.Model(&training.QuizItem{}).Count(&count)
	assert.EqualValues(t, 2, count)

	// One bad item rejects the whole batch.
	_, err = ImportQuiz(db, &QuizImport{Items: []QuizImportItem{
		{ModuleSlug: "forklift-m1", Prompt: "New one", Choices: []string{"a", "b"}, AnswerIndex: intPtr(0)},
		{ModuleSlug: "forklift-m1", Prompt: "Broken", Choices: []string{"a"}, AnswerIndex: intPtr(0)},
	}})
	require.Error(t, err)
	db.Model(&training.QuizItem{}).Count(&count)
	assert.EqualValues(t, 2, count)
}
