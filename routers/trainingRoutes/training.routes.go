package trainingRoutes

import (
	controllers "liftworks/controllers/training"
	"liftworks/middleware"
	"liftworks/models"
	"liftworks/validators"
	trainingValidator "liftworks/validators/training"

	"github.com/gofiber/fiber/v2"
)

// SetupTrainingRoutes sets up the learner-facing course, quiz, exam and certificate routes
func SetupTrainingRoutes(app *fiber.App) {
	trainingGroup := app.Group("/training")
	trainingGroup.Get("/courses", controllers.ListCourses)
	trainingGroup.Get("/courses/:course_id", validators.IDParams("course_id"), controllers.GetCourse)

	// Public and learner routes share the prefix, so auth is attached per route
	auth := middleware.JWTMiddleware
	enrolled := middleware.CheckPermissionMiddleware(models.PermEnroll)

	// Modules and lessons
	trainingGroup.Get("/my", auth, controllers.MyEnrollments)
	trainingGroup.Get("/modules/:module_id", auth, enrolled, validators.IDParams("module_id"), controllers.GetModule)
	trainingGroup.Post("/modules/:module_id/quiz", auth, enrolled, validators.IDParams("module_id"), trainingValidator.QuizAnswers(), controllers.SubmitQuiz)
	trainingGroup.Post("/lessons/:lesson_id/complete", auth, enrolled, validators.IDParams("lesson_id"), controllers.CompleteLesson)
	trainingGroup.Get("/:course_id/progress", auth, validators.IDParams("course_id"), controllers.Progress)

	// Final exam
	trainingGroup.Post("/:course_id/exam/start", auth, enrolled, validators.IDParams("course_id"), controllers.StartExam)
	trainingGroup.Get("/:course_id/exam/history", auth, validators.IDParams("course_id"), controllers.ExamHistory)
	trainingGroup.Get("/exam/:session_id", auth, validators.IDParams("session_id"), controllers.GetExamSession)
	trainingGroup.Put("/exam/:session_id/answer", auth, validators.IDParams("session_id"), trainingValidator.ExamAnswer(), controllers.SaveExamAnswer)
	trainingGroup.Post("/exam/:session_id/submit", auth, validators.IDParams("session_id"), trainingValidator.ExamSubmit(), controllers.SubmitExam)

	// Certificates
	app.Get("/user/certificates", auth, controllers.MyCertificates)
	app.Get("/certificates/verify/:number", controllers.VerifyCertificate)
	app.Get("/certificates/:number/pdf", auth, controllers.DownloadCertificate)
}
