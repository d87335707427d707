package catalogRoutes

import (
	controllers "liftworks/controllers/catalog"
	"liftworks/middleware"
	"liftworks/models"
	"liftworks/validators"
	catalogValidator "liftworks/validators/catalog"

	"github.com/gofiber/fiber/v2"
)

// SetupCatalogRoutes sets up the storefront: parts, quotes, checkout and orders.
func SetupCatalogRoutes(app *fiber.App) {
	catalogGroup := app.Group("/catalog")
	catalogGroup.Get("/parts", catalogValidator.PartFilterQuery(), controllers.ListParts)
	catalogGroup.Get("/parts/:sku", controllers.GetPart)
	catalogGroup.Get("/facets", controllers.Facets)

	app.Post("/quotes", middleware.OptionalJWT, catalogValidator.Quote(), controllers.CreateQuote)

	app.Post("/checkout", middleware.JWTMiddleware, middleware.CheckPermissionMiddleware(models.PermCheckout),
		catalogValidator.Checkout(), controllers.Checkout)
	app.Post("/webhooks/payment", controllers.PaymentWebhook)

	orderGroup := app.Group("/orders", middleware.JWTMiddleware)
	orderGroup.Get("/", controllers.MyOrders)
	orderGroup.Get("/:number", controllers.GetOrder)
}

// SetupAdminCatalogRoutes sets up catalog, quote and order management.
func SetupAdminCatalogRoutes(app *fiber.App) {
	partGroup := app.Group("/admin/catalog", middleware.JWTMiddleware, middleware.CheckPermissionMiddleware(models.PermManageCatalog))
	partGroup.Post("/parts", catalogValidator.Part(), controllers.AdminCreatePart)
	partGroup.Put("/parts/:id", validators.IDParams("id"), catalogValidator.Part(), controllers.AdminUpdatePart)
	partGroup.Delete("/parts/:id", validators.IDParams("id"), controllers.AdminDeletePart)
	partGroup.Post("/parts/:id/image", validators.IDParams("id"), controllers.AdminUploadPartImage)

	quoteGroup := app.Group("/admin/quotes", middleware.JWTMiddleware, middleware.CheckPermissionMiddleware(models.PermManageCatalog))
	quoteGroup.Get("/", controllers.AdminListQuotes)
	quoteGroup.Patch("/:id/status", validators.IDParams("id"), catalogValidator.Status(), controllers.AdminUpdateQuoteStatus)

	orderGroup := app.Group("/admin/orders", middleware.JWTMiddleware, middleware.CheckPermissionMiddleware(models.PermManageOrders))
	orderGroup.Get("/", controllers.AdminListOrders)
	orderGroup.Patch("/:number/status", catalogValidator.Status(), controllers.AdminUpdateOrderStatus)
}
