package trainingController

import (
	"errors"
	"liftworks/database"
	"liftworks/middleware"
	"liftworks/models/training"
	"liftworks/services/lms"
	"liftworks/utils"
	"liftworks/validators"
	trainingValidator "liftworks/validators/training"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func publishedCourse(db *gorm.DB, courseID uint) (*training.Course, error) {
	var course training.Course
	err := db.Where("id = ? AND is_published = ? AND status = ? AND is_deleted = ?",
		courseID, true, training.CourseActive, false).First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func courseModules(db *gorm.DB, courseID uint) ([]training.Module, error) {
	var modules []training.Module
	err := db.Where("course_id = ? AND is_deleted = ?", courseID, false).
		Order("order_index asc, id asc").Find(&modules).Error
	return modules, err
}

func ListCourses(c *fiber.Ctx) error {
	page := utils.ParsePagination(c, 12, 50)
	q := database.Database.Db.Model(&training.Course{}).
		Where("is_published = ? AND status = ? AND is_deleted = ?", true, training.CourseActive, false)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return trainingError(c, err)
	}
	var courses []training.Course
	if err := q.Order("id asc").Offset(page.Offset).Limit(page.Limit).Find(&courses).Error; err != nil {
		return trainingError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully.", fiber.Map{
		"courses":    courses,
		"pagination": utils.PageMeta(page, total),
	})
}

// GetCourse returns a published course with its modules in order.
func GetCourse(c *fiber.Ctx) error {
	courseID, _ := validators.ParamID(c, "course_id")
	db := database.Database.Db

	course, err := publishedCourse(db, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
		}
		return trainingError(c, err)
	}
	modules, err := courseModules(db, course.ID)
	if err != nil {
		return trainingError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully.", fiber.Map{
		"course":  course,
		"modules": modules,
	})
}

func MyEnrollments(c *fiber.Ctx) error {
	userID, _ := c.Locals("userId").(uint)

	type row struct {
		training.Enrollment
		CourseTitle string `json:"course_title"`
		CourseSlug  string `json:"course_slug"`
	}
	var rows []row
	err := database.Database.Db.Table("enrollments").
		Select("enrollments.*, courses.title AS course_title, courses.slug AS course_slug").
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("enrollments.user_id = ? AND enrollments.is_deleted = ? AND enrollments.deleted_at IS NULL", userID, false).
		Order("enrollments.id desc").
		Scan(&rows).Error
	if err != nil {
		return trainingError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully.", rows)
}

// GetModule returns the module's published lessons and quiz items for an enrolled learner.
func GetModule(c *fiber.Ctx) error {
	userID, _ := c.Locals("userId").(uint)
	moduleID, _ := validators.ParamID(c, "module_id")
	db := database.Database.Db

	module, err := lms.FindModule(db, moduleID)
	if err != nil {
		return trainingError(c, err)
	}
	if _, err := lms.FindEnrollment(db, userID, module.CourseID); err != nil {
		return trainingError(c, err)
	}

	var lessons []training.Lesson
	if err := db.Where("module_id = ? AND is_published = ? AND is_deleted = ?", module.ID, true, false).
		Order("order_index asc, id asc").Find(&lessons).Error; err != nil {
		return trainingError(c, err)
	}
	items, err := lms.ModuleItems(db, module)
	if err != nil {
		return trainingError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Module fetched successfully.", fiber.Map{
		"module":  module,
		"lessons": lessons,
		"quiz":    lms.ToPublicItems(items),
	})
}

func CompleteLesson(c *fiber.Ctx) error {
	userID, _ := c.Locals("userId").(uint)
	lessonID, _ := validators.ParamID(c, "lesson_id")

	progress, err := lms.CompleteLesson(database.Database.Db, userID, lessonID)
	if err != nil {
		return trainingError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson completed.", progress)
}

func SubmitQuiz(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedAnswers").(*trainingValidator.AnswersRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	userID, _ := c.Locals("userId").(uint)
	moduleID, _ := validators.ParamID(c, "module_id")

	result, err := lms.SubmitQuiz(database.Database.Db, userID, moduleID, req.Answers)
	if err != nil {
		return trainingError(c, err)
	}

	message := "Quiz submitted. Keep studying and try again."
	if result.Attempt.Passed {
		message = "Quiz passed!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, result)
}

func Progress(c *fiber.Ctx) error {
	userID, _ := c.Locals("userId").(uint)
	courseID, _ := validators.ParamID(c, "course_id")

	summary, err := lms.ProgressSummary(database.Database.Db, userID, courseID)
	if err != nil {
		return trainingError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully.", summary)
}
