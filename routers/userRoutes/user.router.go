package userProfileRoutes

import (
	userProfileController "liftworks/controllers/userControllers"
	"liftworks/middleware"
	"liftworks/models"
	userProfileValidator "liftworks/validators/user"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App) {
	userGroup := app.Group("/user/profile", middleware.JWTMiddleware, middleware.CheckPermissionMiddleware(models.PermViewProfile))

	userGroup.Get("/", userProfileController.GetProfile)
	userGroup.Put("/", userProfileValidator.UpdateProfile(), userProfileController.UpdateProfile)
	userGroup.Post("/image", userProfileController.UploadProfileImage)
}
