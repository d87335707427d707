package trainingController

import (
	"errors"
	"liftworks/config"
	"liftworks/database"
	"liftworks/logger"
	"liftworks/middleware"
	"liftworks/services/certificate"
	"liftworks/services/exam"
	"liftworks/services/lms"

	"github.com/gofiber/fiber/v2"
)

// NewCertificates and NewExam are swapped in tests to pin clocks.
var NewCertificates = func() *certificate.Service {
	return certificate.NewService(config.AppConfig)
}

var NewExam = func() *exam.Service {
	cfg := config.AppConfig
	return exam.NewService(database.Database.Db, exam.SettingsFromConfig(cfg), nil, NewCertificates())
}

func trainingError(c *fiber.Ctx, err error) error {
	var startErr *exam.StartError
	switch {
	case errors.As(err, &startErr):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, startErr.Error(), fiber.Map{
			"reason": startErr.Reason,
			"detail": startErr.Detail,
		})
	case errors.Is(err, lms.ErrNotEnrolled):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You are not enrolled in this course!", nil)
	case errors.Is(err, lms.ErrModuleNotFound), errors.Is(err, lms.ErrLessonNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, err.Error(), nil)
	case errors.Is(err, lms.ErrNoQuizItems):
		return middleware.JsonResponse(c, fiber.StatusUnprocessableEntity, false, "This module has no quiz yet!", nil)
	case errors.Is(err, lms.ErrCourseCompleted):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, err.Error(), nil)
	case errors.Is(err, exam.ErrSessionNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Exam session not found!", nil)
	case errors.Is(err, exam.ErrSessionExpired):
		return middleware.JsonResponse(c, fiber.StatusGone, false, "Exam time is over!", nil)
	case errors.Is(err, exam.ErrSessionClosed):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, err.Error(), nil)
	case errors.Is(err, exam.ErrItemNotInPaper), errors.Is(err, exam.ErrInvalidChoice):
		return middleware.ValidationErrorResponse(c, map[string]string{"answers": err.Error()})
	case errors.Is(err, certificate.ErrNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Certificate not found!", nil)
	default:
		logger.Log.Errorw("training request failed", "path", c.Path(), "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Server error!", nil)
	}
}
