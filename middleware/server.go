package middleware

import (
	"liftworks/config"

	"github.com/gofiber/fiber/v2"
)

// ServerConfig builds the fiber settings for the API server. c.IP() reads
// X-Forwarded-For only when the connecting peer is listed in TrustedProxies.
func ServerConfig(cfg *config.Config) fiber.Config {
	fc := fiber.Config{
		BodyLimit: 16 * 1024 * 1024,
	}
	if len(cfg.TrustedProxies) > 0 {
		fc.ProxyHeader = fiber.HeaderXForwardedFor
		fc.EnableTrustedProxyCheck = true
		fc.TrustedProxies = cfg.TrustedProxies
		fc.EnableIPValidation = true
	}
	return fc
}
