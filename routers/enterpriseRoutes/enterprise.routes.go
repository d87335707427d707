package enterpriseRoutes

import (
	controllers "liftworks/controllers/enterprise"
	"liftworks/middleware"
	"liftworks/models"
	"liftworks/models/enterprise"
	"liftworks/validators"
	enterpriseValidator "liftworks/validators/enterprise"

	"github.com/gofiber/fiber/v2"
)

// SetupEnterpriseRoutes sets up organizations, members, seats, invitations and the roster
func SetupEnterpriseRoutes(app *fiber.App) {
	entGroup := app.Group("/enterprise", middleware.JWTMiddleware)

	entGroup.Post("/orgs", middleware.CheckPermissionMiddleware(models.PermCreateOrg), enterpriseValidator.Org(), controllers.CreateOrg)
	entGroup.Get("/orgs", controllers.MyOrgs)
	entGroup.Post("/redeem", enterpriseValidator.Redeem(), controllers.Redeem)

	orgGroup := entGroup.Group("/orgs/:org_id")
	orgGroup.Get("/", middleware.RequireOrgRole(enterprise.ActionViewOrg), controllers.GetOrg)
	orgGroup.Put("/", middleware.RequireOrgRole(enterprise.ActionManageOrg), enterpriseValidator.Org(), controllers.UpdateOrg)

	// Members
	orgGroup.Get("/members", middleware.RequireOrgRole(enterprise.ActionViewRoster), controllers.ListMembers)
	orgGroup.Patch("/members/:user_id/role", middleware.RequireOrgRole(enterprise.ActionManageOrg), validators.IDParams("user_id"), enterpriseValidator.Role(), controllers.ChangeMemberRole)
	orgGroup.Delete("/members/:user_id", middleware.RequireOrgRole(enterprise.ActionManageOrg), validators.IDParams("user_id"), controllers.RemoveMember)

	// Seats and invitations
	orgGroup.Get("/seats", middleware.RequireOrgRole(enterprise.ActionViewRoster), controllers.ListSeatPools)
	orgGroup.Post("/seats/release", middleware.RequireOrgRole(enterprise.ActionManageSeats), enterpriseValidator.ReleaseSeat(), controllers.ReleaseSeat)
	orgGroup.Get("/invites", middleware.RequireOrgRole(enterprise.ActionInvite), controllers.ListInvites)
	orgGroup.Post("/invites", middleware.RequireOrgRole(enterprise.ActionInvite), enterpriseValidator.Invite(), controllers.CreateInvite)
	orgGroup.Post("/invites/:invite_id/resend", middleware.RequireOrgRole(enterprise.ActionInvite), validators.IDParams("invite_id"), controllers.ResendInvite)
	orgGroup.Delete("/invites/:invite_id", middleware.RequireOrgRole(enterprise.ActionInvite), validators.IDParams("invite_id"), controllers.RevokeInvite)

	// Roster and evaluations
	orgGroup.Get("/roster", middleware.RequireOrgRole(enterprise.ActionViewRoster), controllers.Roster)
	orgGroup.Get("/roster/export", middleware.RequireOrgRole(enterprise.ActionExportRoster), controllers.ExportRoster)
	orgGroup.Get("/evaluations", middleware.RequireOrgRole(enterprise.ActionViewRoster), controllers.ListEvaluations)
	orgGroup.Post("/evaluations", middleware.RequireOrgRole(enterprise.ActionEvaluate), enterpriseValidator.Evaluation(), controllers.CreateEvaluation)
}

// SetupAdminEnterpriseRoutes sets up site-admin seat grants
func SetupAdminEnterpriseRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin/enterprise", middleware.JWTMiddleware, middleware.CheckPermissionMiddleware(models.PermManageOrders))
	adminGroup.Post("/orgs/:org_id/seats", validators.IDParams("org_id"), enterpriseValidator.GrantSeats(), controllers.AdminGrantSeats)
}
