package authController

import (
	"errors"
	"liftworks/config"
	"liftworks/database"
	"liftworks/logger"
	"liftworks/middleware"
	"liftworks/models"
	authValidator "liftworks/validators/auth"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ResetPassword sets a new password for the holder of a reset token. A reset
// also lifts a failed-login lockout.
func ResetPassword(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData, ok := c.Locals("validatedUser").(*authValidator.ResetPasswordRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	err := setPassword(userId, reqData.Password, map[string]interface{}{
		"failed_login_attempts": 0,
		"last_failed_login":     nil,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found or invalid credentials!", nil)
		}
		logger.Log.Errorw("reset password", "user_id", userId, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update password!", nil)
	}

	logger.Log.Infow("password reset", "user_id", userId)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Password reset successfully.", nil)
}

func ChangeLoginPassword(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid user session!", nil)
	}
	reqData, ok := c.Locals("validatedUser").(*authValidator.ChangePasswordRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userId, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(reqData.CurrentPassword)) != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Current password is incorrect!", nil)
	}
	if reqData.CurrentPassword == reqData.NewPassword {
		return middleware.ValidationErrorResponse(c, map[string]string{"newPassword": "must differ from the current password"})
	}

	if err := setPassword(user.ID, reqData.NewPassword, nil); err != nil {
		logger.Log.Errorw("change password", "user_id", userId, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update password!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Password changed successfully.", nil)
}

// setPassword stores a bcrypt hash of password along with any extra columns.
func setPassword(userID uint, password string, extra map[string]interface{}) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), config.AppConfig.SaltRound)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{"password": string(hash)}
	for k, v := range extra {
		updates[k] = v
	}

	res := database.Database.Db.Model(&models.User{}).
		Where("id = ? AND is_deleted = ?", userID, false).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
