package lookupRoutes

import (
	controllers "liftworks/controllers/lookup"
	"liftworks/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupLookupRoutes sets up the public serial/VIN decoder behind limiter.
func SetupLookupRoutes(app *fiber.App, limiter *middleware.RateLimiter) {
	lookupGroup := app.Group("/lookup", limiter.Handler())

	lookupGroup.Get("/brands", controllers.ListBrands)
	lookupGroup.Get("/:brand", controllers.Decode)
}
