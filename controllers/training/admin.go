package trainingController

import (
	"errors"
	"liftworks/database"
	"liftworks/logger"
	"liftworks/middleware"
	"liftworks/models"
	"liftworks/models/training"
	"liftworks/services/lms"
	"liftworks/utils"
	"liftworks/validators"
	trainingValidator "liftworks/validators/training"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func findCourse(db *gorm.DB, id uint) (*training.Course, error) {
	var course training.Course
	if err := db.Where("id = ? AND is_deleted = ?", id, false).First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func slugTaken(db *gorm.DB, model interface{}, where string, args ...interface{}) bool {
	var count int64
	db.Model(model).Where(where, args...).Count(&count)
	return count > 0
}

func notFound(c *fiber.Ctx, err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, what+" not found!", nil)
	}
	return trainingError(c, err)
}

func AdminListCourses(c *fiber.Ctx) error {
	page := utils.ParsePagination(c, 20, 100)
	q := database.Database.Db.Model(&training.Course{}).Where("is_deleted = ?", false)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return trainingError(c, err)
	}
	var courses []training.Course
	if err := q.Order("id desc").Offset(page.Offset).Limit(page.Limit).Find(&courses).Error; err != nil {
		return trainingError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully.", fiber.Map{
		"courses":    courses,
		"pagination": utils.PageMeta(page, total),
	})
}

// AdminGetCourse returns a course of any status with its modules and lessons.
func AdminGetCourse(c *fiber.Ctx) error {
	courseID, _ := validators.ParamID(c, "course_id")
	db := database.Database.Db

	course, err := findCourse(db, courseID)
	if err != nil {
		return notFound(c, err, "Course")
	}
	modules, err := courseModules(db, course.ID)
	if err != nil {
		return trainingError(c, err)
	}

	type moduleDetail struct {
		training.Module
		Lessons   []training.Lesson `json:"lessons"`
		QuizItems int64             `json:"quiz_items"`
	}
	out := make([]moduleDetail, 0, len(modules))
	for _, m := range modules {
		d := moduleDetail{Module: m}
		db.Where("module_id = ? AND is_deleted = ?", m.ID, false).Order("order_index asc, id asc").Find(&d.Lessons)
		db.Model(&training.QuizItem{}).Where("module_slug = ? AND is_active = ? AND is_deleted = ?", m.Slug, true, false).
			Count(&d.QuizItems)
		out = append(out, d)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully.", fiber.Map{
		"course":  course,
		"modules": out,
	})
}

func AdminCreateCourse(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedCourse").(*trainingValidator.CourseRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	db := database.Database.Db

	if slugTaken(db, &training.Course{}, "slug = ?", req.Slug) {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "A course with this slug already exists!", nil)
	}

	status := req.Status
	if status == "" {
		status = training.CourseDraft
	}
	course := training.Course{
		Slug:         req.Slug,
		Title:        req.Title,
		Description:  req.Description,
		Author:       req.Author,
		Duration:     req.Duration,
		PriceCents:   req.PriceCents,
		Status:       status,
		ThumbnailURL: req.ThumbnailURL,
	}
	if err := db.Create(&course).Error; err != nil {
		logger.Log.Errorw("create course failed", "slug", req.Slug, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create course!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created successfully!", course)
}

func AdminUpdateCourse(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedCourse").(*trainingValidator.CourseRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	courseID, _ := validators.ParamID(c, "course_id")
	db := database.Database.Db

	course, err := findCourse(db, courseID)
	if err != nil {
		return notFound(c, err, "Course")
	}
	if req.Slug != course.Slug && slugTaken(db, &training.Course{}, "slug = ? AND id <> ?", req.Slug, course.ID) {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "A course with this slug already exists!", nil)
	}

	updates := map[string]interface{}{
		"slug":          req.Slug,
		"title":         req.Title,
		"description":   req.Description,
		"author":        req.Author,
		"duration":      req.Duration,
		"price_cents":   req.PriceCents,
		"thumbnail_url": req.ThumbnailURL,
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if err := db.Model(course).Updates(updates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update course!", nil)
	}
	course, _ = findCourse(db, course.ID)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course updated successfully!", course)
}

// AdminPublishCourse toggles visibility. Publishing also activates a draft.
func AdminPublishCourse(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedPublish").(*trainingValidator.PublishRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	courseID, _ := validators.ParamID(c, "course_id")
	db := database.Database.Db

	course, err := findCourse(db, courseID)
	if err != nil {
		return notFound(c, err, "Course")
	}

	updates := map[string]interface{}{"is_published": req.IsPublished}
	if req.IsPublished {
		var modules int64
		db.Model(&training.Module{}).Where("course_id = ? AND is_deleted = ?", course.ID, false).Count(&modules)
		if modules == 0 {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Add at least one module before publishing!", nil)
		}
		if course.Status == training.CourseDraft {
			updates["status"] = training.CourseActive
		}
	}
	if err := db.Model(course).Updates(updates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to publish course!", nil)
	}
	course, _ = findCourse(db, course.ID)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course visibility updated.", course)
}

func AdminDeleteCourse(c *fiber.Ctx) error {
	courseID, _ := validators.ParamID(c, "course_id")
	db := database.Database.Db

	course, err := findCourse(db, courseID)
	if err != nil {
		return notFound(c, err, "Course")
	}
	if err := db.Model(course).Updates(map[string]interface{}{"is_deleted": true, "is_published": false}).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete course!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course deleted successfully!", nil)
}

func AdminCreateModule(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedModule").(*trainingValidator.ModuleRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	courseID, _ := validators.ParamID(c, "course_id")
	db := database.Database.Db

	course, err := findCourse(db, courseID)
	if err != nil {
		return notFound(c, err, "Course")
	}
	// Quiz items reference modules by slug, so slugs are unique across courses.
	if slugTaken(db, &training.Module{}, "slug = ? AND is_deleted = ?", req.Slug, false) {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "A module with this slug already exists!", nil)
	}

	passPercent := req.PassPercent
	if passPercent == 0 {
		passPercent = 80
	}
	module := training.Module{
		CourseID:    course.ID,
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		OrderIndex:  req.OrderIndex,
		PassPercent: passPercent,
	}
	if err := db.Create(&module).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create module!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Module created successfully!", module)
}

func AdminUpdateModule(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedModule").(*trainingValidator.ModuleRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	moduleID, _ := validators.ParamID(c, "module_id")
	db := database.Database.Db

	module, err := lms.FindModule(db, moduleID)
	if err != nil {
		return trainingError(c, err)
	}
	if req.Slug != module.Slug {
		return middleware.ValidationErrorResponse(c, map[string]string{"slug": "Module slug cannot change once quiz items may reference it!"})
	}

	updates := map[string]interface{}{
		"title":       req.Title,
		"description": req.Description,
		"order_index": req.OrderIndex,
	}
	if req.PassPercent > 0 {
		updates["pass_percent"] = req.PassPercent
	}
	if err := db.Model(module).Updates(updates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update module!", nil)
	}
	module, _ = lms.FindModule(db, module.ID)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Module updated successfully!", module)
}

func AdminDeleteModule(c *fiber.Ctx) error {
	moduleID, _ := validators.ParamID(c, "module_id")
	db := database.Database.Db

	module, err := lms.FindModule(db, moduleID)
	if err != nil {
		return trainingError(c, err)
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(module).Update("is_deleted", true).Error; err != nil {
			return err
		}
		if err := tx.Model(&training.Lesson{}).Where("module_id = ?", module.ID).Update("is_deleted", true).Error; err != nil {
			return err
		}
		return tx.Model(&training.QuizItem{}).Where("module_slug = ?", module.Slug).Update("is_active", false).Error
	})
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete module!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Module deleted successfully!", nil)
}

func AdminCreateLesson(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedLesson").(*trainingValidator.LessonRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	moduleID, _ := validators.ParamID(c, "module_id")
	db := database.Database.Db

	module, err := lms.FindModule(db, moduleID)
	if err != nil {
		return trainingError(c, err)
	}

	lesson := training.Lesson{
		ModuleID:    module.ID,
		Title:       req.Title,
		ContentType: req.ContentType,
		Body:        req.Body,
		MediaURL:    req.MediaURL,
		OrderIndex:  req.OrderIndex,
		IsPublished: true,
	}
	if err := db.Create(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create lesson!", nil)
	}
	// is_published defaults to true on insert.
	if req.IsPublished != nil && !*req.IsPublished {
		db.Model(&lesson).Update("is_published", false)
		lesson.IsPublished = false
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Lesson created successfully!", lesson)
}

func AdminUpdateLesson(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedLesson").(*trainingValidator.LessonRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	lessonID, _ := validators.ParamID(c, "lesson_id")
	db := database.Database.Db

	var lesson training.Lesson
	if err := db.Where("id = ? AND is_deleted = ?", lessonID, false).First(&lesson).Error; err != nil {
		return notFound(c, err, "Lesson")
	}

	updates := map[string]interface{}{
		"title":        req.Title,
		"content_type": req.ContentType,
		"body":         req.Body,
		"media_url":    req.MediaURL,
		"order_index":  req.OrderIndex,
	}
	if req.IsPublished != nil {
		updates["is_published"] = *req.IsPublished
	}
	if err := db.Model(&lesson).Updates(updates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update lesson!", nil)
	}
	db.First(&lesson, lesson.ID)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson updated successfully!", lesson)
}

func AdminDeleteLesson(c *fiber.Ctx) error {
	lessonID, _ := validators.ParamID(c, "lesson_id")
	res := database.Database.Db.Model(&training.Lesson{}).
		Where("id = ? AND is_deleted = ?", lessonID, false).Update("is_deleted", true)
	if res.Error != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete lesson!", nil)
	}
	if res.RowsAffected == 0 {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson deleted successfully!", nil)
}

// AdminImportQuiz upserts a batch of quiz items. Item problems answer 422 keyed by index.
func AdminImportQuiz(c *fiber.Ctx) error {
	batch := new(lms.QuizImport)
	if err := c.BodyParser(batch); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	result, err := lms.ImportQuiz(database.Database.Db, batch)
	if err != nil {
		var verrs lms.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			return middleware.ValidationErrorResponse(c, verrs)
		case errors.Is(err, lms.ErrEmptyImport):
			return middleware.ValidationErrorResponse(c, map[string]string{"items": "At least one item is required!"})
		}
		logger.Log.Errorw("quiz import failed", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to import quiz!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz imported successfully.", result)
}

// AdminEnroll enrolls a user without a purchase or seat.
func AdminEnroll(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedEnroll").(*trainingValidator.EnrollRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	db := database.Database.Db

	var user models.User
	if err := db.Where("id = ? AND is_deleted = ?", req.UserID, false).First(&user).Error; err != nil {
		return notFound(c, err, "User")
	}
	course, err := findCourse(db, req.CourseID)
	if err != nil {
		return notFound(c, err, "Course")
	}
	if _, err := lms.FindEnrollment(db, user.ID, course.ID); err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "User is already enrolled in this course!", nil)
	}

	var modules int64
	db.Model(&training.Module{}).Where("course_id = ? AND is_deleted = ?", course.ID, false).Count(&modules)
	enrollment := training.Enrollment{
		UserID:       user.ID,
		CourseID:     course.ID,
		Source:       training.SourceAdmin,
		Status:       training.EnrollmentEnrolled,
		TotalModules: int(modules),
	}
	if err := db.Create(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to enroll user!", nil)
	}
	logger.Log.Infow("admin enrollment", "user_id", user.ID, "course_id", course.ID, "by", c.Locals("userId"))
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "User enrolled successfully!", enrollment)
}

func AdminCourseEnrollments(c *fiber.Ctx) error {
	courseID, _ := validators.ParamID(c, "course_id")
	page := utils.ParsePagination(c, 20, 100)

	q := database.Database.Db.Table("enrollments").
		Joins("JOIN users ON users.id = enrollments.user_id").
		Where("enrollments.course_id = ? AND enrollments.is_deleted = ? AND enrollments.deleted_at IS NULL", courseID, false)
	if status := c.Query("status"); status != "" {
		q = q.Where("enrollments.status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return trainingError(c, err)
	}

	type row struct {
		training.Enrollment
		UserName  string `json:"user_name"`
		UserEmail string `json:"user_email"`
	}
	var rows []row
	if err := q.Select("enrollments.*, users.name AS user_name, users.email AS user_email").
		Order("enrollments.id desc").Offset(page.Offset).Limit(page.Limit).Scan(&rows).Error; err != nil {
		return trainingError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully.", fiber.Map{
		"enrollments": rows,
		"pagination":  utils.PageMeta(page, total),
	})
}
