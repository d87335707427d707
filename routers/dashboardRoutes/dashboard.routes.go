package dashboardRoutes

import (
	controllers "liftworks/controllers/dashboard"
	"liftworks/middleware"
	"liftworks/models"
	"liftworks/validators"
	userValidator "liftworks/validators/user"

	"github.com/gofiber/fiber/v2"
)

// SetupDashboardRoutes sets up the admin dashboard and user management
func SetupDashboardRoutes(app *fiber.App) {
	dashboardGroup := app.Group("/admin/dashboard", middleware.JWTMiddleware, middleware.CheckPermissionMiddleware(models.PermViewDashboard))
	dashboardGroup.Get("/stats", controllers.AdminDashboardStats)

	userGroup := app.Group("/admin/users", middleware.JWTMiddleware, middleware.CheckPermissionMiddleware(models.PermViewDashboard))
	userGroup.Get("/", controllers.AdminListUsers)
	userGroup.Patch("/:id/block", validators.IDParams("id"), userValidator.Block(), controllers.AdminBlockUser)
}
