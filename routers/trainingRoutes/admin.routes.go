package trainingRoutes

import (
	controllers "liftworks/controllers/training"
	"liftworks/middleware"
	"liftworks/models"
	"liftworks/validators"
	trainingValidator "liftworks/validators/training"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminTrainingRoutes sets up course authoring, quiz import, enrollment and certificate management
func SetupAdminTrainingRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin/training", middleware.JWTMiddleware)
	manage := middleware.CheckPermissionMiddleware(models.PermManageTraining)

	// Quiz import carries its own permission
	adminGroup.Post("/quiz/import", middleware.CheckPermissionMiddleware(models.PermImportQuiz), controllers.AdminImportQuiz)

	// Course CRUD
	adminGroup.Get("/courses", manage, controllers.AdminListCourses)
	adminGroup.Post("/courses", manage, trainingValidator.Course(), controllers.AdminCreateCourse)
	adminGroup.Get("/courses/:course_id", manage, validators.IDParams("course_id"), controllers.AdminGetCourse)
	adminGroup.Put("/courses/:course_id", manage, validators.IDParams("course_id"), trainingValidator.Course(), controllers.AdminUpdateCourse)
	adminGroup.Patch("/courses/:course_id/publish", manage, validators.IDParams("course_id"), trainingValidator.Publish(), controllers.AdminPublishCourse)
	adminGroup.Delete("/courses/:course_id", manage, validators.IDParams("course_id"), controllers.AdminDeleteCourse)
	adminGroup.Get("/courses/:course_id/enrollments", manage, validators.IDParams("course_id"), controllers.AdminCourseEnrollments)

	// Module Management
	adminGroup.Post("/courses/:course_id/modules", manage, validators.IDParams("course_id"), trainingValidator.Module(), controllers.AdminCreateModule)
	adminGroup.Put("/modules/:module_id", manage, validators.IDParams("module_id"), trainingValidator.Module(), controllers.AdminUpdateModule)
	adminGroup.Delete("/modules/:module_id", manage, validators.IDParams("module_id"), controllers.AdminDeleteModule)

	// Lesson Management
	adminGroup.Post("/modules/:module_id/lessons", manage, validators.IDParams("module_id"), trainingValidator.Lesson(), controllers.AdminCreateLesson)
	adminGroup.Put("/lessons/:lesson_id", manage, validators.IDParams("lesson_id"), trainingValidator.Lesson(), controllers.AdminUpdateLesson)
	adminGroup.Delete("/lessons/:lesson_id", manage, validators.IDParams("lesson_id"), controllers.AdminDeleteLesson)

	// Enrollment
	adminGroup.Post("/enrollments", manage, trainingValidator.Enroll(), controllers.AdminEnroll)

	// Certificate Management
	certGroup := app.Group("/admin/certificates", middleware.JWTMiddleware, middleware.CheckPermissionMiddleware(models.PermManageTraining))
	certGroup.Get("/", controllers.AdminListCertificates)
	certGroup.Post("/:number/revoke", controllers.AdminRevokeCertificate)
}
