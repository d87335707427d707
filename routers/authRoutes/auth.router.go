package authRoutes

import (
	authControllers "liftworks/controllers/auth"
	"liftworks/middleware"
	authValidators "liftworks/validators/auth"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App) {
	auth := app.Group("/auth")
	auth.Post("/signup", authValidators.Signup(), authControllers.Signup)
	auth.Post("/login", authValidators.Login(), authControllers.Login)

	// Email verification codes
	auth.Post("/send/otp", authValidators.SendOTP(), authControllers.SendOTP)
	auth.Patch("/verify/otp", authValidators.VerifyOTP(), authControllers.VerifyOTP)

	// Forgot password: code, then a reset-scoped token, then the new password
	forgot := auth.Group("/forgot/password")
	forgot.Post("/send/otp", authValidators.SendOTP(), authControllers.ForgotPasswordSendOTP)
	forgot.Patch("/verify/otp", authValidators.VerifyOTP(), authControllers.ForgotPasswordVerifyOTP)
	auth.Patch("/reset/password", middleware.PasswordResetToken, authValidators.ResetPassword(), authControllers.ResetPassword)

	auth.Get("/login/history", middleware.JWTMiddleware, authValidators.LoginHistoryList(), authControllers.LoginHistoryList)
	auth.Put("/change/login/password", middleware.JWTMiddleware, authValidators.ChangeLoginPassword(), authControllers.ChangeLoginPassword)
}
