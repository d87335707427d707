package trainingRoutes

import (
	"fmt"
	"testing"
	"time"

	"liftworks/config"
	"liftworks/models"
	"liftworks/models/training"
	"liftworks/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp() *fiber.App {
	app := fiber.New()
	SetupTrainingRoutes(app)
	SetupAdminTrainingRoutes(app)
	return app
}

func TestQuizImportAuthAndValidation(t *testing.T) {
	db := testutil.NewDB(t)
	app := newApp()
	_, modules := testutil.CreateCourse(t, db, "forklift", 1, 0)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	learner := testutil.CreateUser(t, db, "learner@example.com", models.RoleUser)

	good := map[string]interface{}{
		"items": []map[string]interface{}{{
			"module_slug":  modules[0].Slug,
			"prompt":       "What is the load center of a standard pallet?",
			"choices":      []string{"12 in", "24 in", "36 in"},
			"answer_index": 1,
			"tags":         []string{"Stability"},
		}},
	}

	status, _ := testutil.Do(t, app, fiber.MethodPost, "/admin/training/quiz/import", good, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = testutil.Do(t, app, fiber.MethodPost, "/admin/training/quiz/import", good, testutil.Token(t, learner))
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = testutil.Do(t, app, fiber.MethodPost, "/admin/training/quiz/import", "{", testutil.Token(t, admin))
	assert.Equal(t, fiber.StatusBadRequest, status)

	bad := map[string]interface{}{
		"items": []map[string]interface{}{{"module_slug": "nope", "prompt": "?", "choices": []string{"a"}}},
	}
	status, body := testutil.Do(t, app, fiber.MethodPost, "/admin/training/quiz/import", bad, testutil.Token(t, admin))
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	errs := body.Get("data").Map()
	assert.Contains(t, errs, "items[0].module_slug")
	assert.Contains(t, errs, "items[0].choices")
	assert.Contains(t, errs, "items[0].answer_index")

	status, body = testutil.Do(t, app, fiber.MethodPost, "/admin/training/quiz/import", map[string]interface{}{"items": []int{}}, testutil.Token(t, admin))
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.True(t, body.Get("data.items").Exists())

	status, body = testutil.Do(t, app, fiber.MethodPost, "/admin/training/quiz/import", good, testutil.Token(t, admin))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int64(1), body.Get("data.inserted").Int())

	var count int64
	db.Model(&training.QuizItem{}).Where("module_slug = ?", modules[0].Slug).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestModuleViewHidesAnswersAndRequiresEnrollment(t *testing.T) {
	db := testutil.NewDB(t)
	app := newApp()
	course, modules := testutil.CreateCourse(t, db, "forklift", 2, 3)
	learner := testutil.CreateUser(t, db, "learner@example.com", models.RoleUser)
	path := fmt.Sprintf("/training/modules/%d", modules[0].ID)

	status, _ := testutil.Do(t, app, fiber.MethodGet, path, nil, testutil.Token(t, learner))
	assert.Equal(t, fiber.StatusForbidden, status)

	testutil.Enroll(t, db, learner.ID, course.ID)
	status, body := testutil.Do(t, app, fiber.MethodGet, path, nil, testutil.Token(t, learner))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, modules[0].Slug, body.Get("data.module.slug").String())
	assert.Len(t, body.Get("data.lessons").Array(), 1)

	quiz := body.Get("data.quiz").Array()
	require.Len(t, quiz, 3)
	for _, item := range quiz {
		assert.False(t, item.Get("answer_index").Exists())
		assert.Len(t, item.Get("choices").Array(), 3)
	}

	status, _ = testutil.Do(t, app, fiber.MethodGet, "/training/modules/9999", nil, testutil.Token(t, learner))
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPublicCatalogListsOnlyPublishedCourses(t *testing.T) {
	db := testutil.NewDB(t)
	app := newApp()
	testutil.CreateCourse(t, db, "forklift", 1, 1)
	draft := training.Course{Slug: "scissor-lift", Title: "Scissor Lift", Status: training.CourseDraft}
	require.NoError(t, db.Create(&draft).Error)

	status, body := testutil.Do(t, app, fiber.MethodGet, "/training/courses", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	slugs := body.Get("data.courses.#.slug").Array()
	require.Len(t, slugs, 1)
	assert.Equal(t, "forklift", slugs[0].String())

	status, _ = testutil.Do(t, app, fiber.MethodGet, fmt.Sprintf("/training/courses/%d", draft.ID), nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestExamAnswerAfterDeadlineIsGone(t *testing.T) {
	db := testutil.NewDB(t)
	config.AppConfig.ExamQuestionCount = 4
	app := newApp()
	course, modules := testutil.CreateCourse(t, db, "forklift", 2, 3)
	learner := testutil.CreateUser(t, db, "learner@example.com", models.RoleUser)
	enrollment := testutil.Enroll(t, db, learner.ID, course.ID)
	auth := testutil.Token(t, learner)

	start := fmt.Sprintf("/training/%d/exam/start", course.ID)
	status, body := testutil.Do(t, app, fiber.MethodPost, start, nil, auth)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "modules_incomplete", body.Get("data.reason").String())

	testutil.PassModules(t, db, &enrollment, modules)
	status, body = testutil.Do(t, app, fiber.MethodPost, start, nil, auth)
	require.Equal(t, fiber.StatusCreated, status)
	sessionID := body.Get("data.session.ID").Uint()
	itemID := body.Get("data.items.0.id").Uint()
	require.NotZero(t, sessionID)

	status, body = testutil.Do(t, app, fiber.MethodPost, start, nil, auth)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, body.Get("data.resumed").Bool())
	assert.Equal(t, sessionID, body.Get("data.session.ID").Uint())

	answer := fmt.Sprintf("/training/exam/%d/answer", sessionID)
	status, _ = testutil.Do(t, app, fiber.MethodPut, answer, map[string]interface{}{"item_id": itemID, "choice": 1}, auth)
	require.Equal(t, fiber.StatusOK, status)

	require.NoError(t, db.Model(&training.ExamSession{}).Where("id = ?", sessionID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)
	status, _ = testutil.Do(t, app, fiber.MethodPut, answer, map[string]interface{}{"item_id": itemID, "choice": 2}, auth)
	assert.Equal(t, fiber.StatusGone, status)

	var session training.ExamSession
	require.NoError(t, db.First(&session, sessionID).Error)
	assert.Equal(t, training.SessionExpired, session.Status)
}
