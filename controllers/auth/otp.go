package authController

import (
	"errors"
	"liftworks/database"
	"liftworks/logger"
	"liftworks/middleware"
	"liftworks/models"
	"liftworks/utils"
	authValidator "liftworks/validators/auth"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// One-time code policy
const (
	OTPValidity    = 10 * time.Minute
	OTPResendAfter = time.Minute
	MaxOTPAttempts = 5
)

var (
	ErrCodeInvalid   = errors.New("Invalid OTP or OTP expired!")
	ErrCodeExhausted = errors.New("Too many wrong attempts, request a new code!")
	ErrCodeTooSoon   = errors.New("Please wait a minute before requesting another code!")
	ErrUnknownEmail  = errors.New("User not found!")
)

// issueCode retires every live code of the same purpose and stores a new one.
func issueCode(db *gorm.DB, userID uint, purpose string) (string, error) {
	now := time.Now()
	if err := db.Model(&models.OneTimeCode{}).
		Where("user_id = ? AND purpose = ? AND consumed_at IS NULL", userID, purpose).
		Update("consumed_at", now).Error; err != nil {
		return "", err
	}

	code := utils.GenerateOTP()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	record := models.OneTimeCode{
		UserID:    userID,
		Purpose:   purpose,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(OTPValidity),
	}
	if err := db.Create(&record).Error; err != nil {
		return "", err
	}
	return code, nil
}

// resendCode issues a fresh code unless one was sent within OTPResendAfter.
func resendCode(db *gorm.DB, user models.User, purpose string) (string, error) {
	var recent int64
	if err := db.Model(&models.OneTimeCode{}).
		Where("user_id = ? AND purpose = ? AND created_at > ?", user.ID, purpose, time.Now().Add(-OTPResendAfter)).
		Count(&recent).Error; err != nil {
		return "", err
	}
	if recent > 0 {
		return "", ErrCodeTooSoon
	}
	return issueCode(db, user.ID, purpose)
}

// redeemCode checks code against the newest live code for email and purpose
// and spends it on a match. Every miss counts toward MaxOTPAttempts.
func redeemCode(db *gorm.DB, email, purpose, code string) (*models.User, error) {
	var user models.User
	if err := db.Where("email = ? AND is_deleted = ?", email, false).First(&user).Error; err != nil {
		return nil, ErrUnknownEmail
	}

	var record models.OneTimeCode
	err := db.Where("user_id = ? AND purpose = ? AND consumed_at IS NULL", user.ID, purpose).
		Order("id desc").First(&record).Error
	if err != nil || record.ExpiresAt.Before(time.Now()) {
		return nil, ErrCodeInvalid
	}
	if record.Attempts >= MaxOTPAttempts {
		return nil, ErrCodeExhausted
	}

	if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)) != nil {
		db.Model(&record).UpdateColumn("attempts", gorm.Expr("attempts + 1"))
		if record.Attempts+1 >= MaxOTPAttempts {
			return nil, ErrCodeExhausted
		}
		return nil, ErrCodeInvalid
	}

	res := db.Model(&models.OneTimeCode{}).Where("id = ? AND consumed_at IS NULL", record.ID).Update("consumed_at", time.Now())
	if res.Error != nil || res.RowsAffected == 0 {
		return nil, ErrCodeInvalid
	}
	return &user, nil
}

func codeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrCodeTooSoon), errors.Is(err, ErrCodeExhausted):
		return middleware.JsonResponse(c, fiber.StatusTooManyRequests, false, err.Error(), nil)
	case errors.Is(err, ErrCodeInvalid), errors.Is(err, ErrUnknownEmail):
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, err.Error(), nil)
	default:
		logger.Log.Errorw("one-time code", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to Create OTP!", nil)
	}
}

func SendOTP(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedUser").(*authValidator.OTPRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	var user models.User
	if err := db.Where("email = ? AND is_deleted = ?", reqData.Email, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid email!", nil)
	}
	if user.IsEmailVerified {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Email already verified!", nil)
	}

	code, err := resendCode(db, user, models.OTPVerifyEmail)
	if err != nil {
		return codeError(c, err)
	}
	utils.SendOTPEmail(code, user.Email)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "OTP sent successfully.", nil)
}

func VerifyOTP(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedUser").(*authValidator.VerifyOTPRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db
	user, err := redeemCode(db, reqData.Email, models.OTPVerifyEmail, reqData.Code)
	if err != nil {
		return codeError(c, err)
	}

	if err := db.Model(user).Update("is_email_verified", true).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update user verification status!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "OTP verified successfully!", nil)
}

func ForgotPasswordSendOTP(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedUser").(*authValidator.OTPRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	// Unknown addresses get the same response as registered ones.
	var user models.User
	if err := db.Where("email = ? AND is_deleted = ?", reqData.Email, false).First(&user).Error; err == nil {
		code, err := resendCode(db, user, models.OTPResetPassword)
		if err != nil {
			return codeError(c, err)
		}
		utils.SendPasswordResetEmail(user.Email, code)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "If the email is registered, a reset code is on its way.", nil)
}

// ForgotPasswordVerifyOTP trades a reset code for a short-lived reset token.
func ForgotPasswordVerifyOTP(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedUser").(*authValidator.VerifyOTPRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	user, err := redeemCode(database.Database.Db, reqData.Email, models.OTPResetPassword, reqData.Code)
	if err != nil {
		return codeError(c, err)
	}

	token, err := middleware.IssueToken(*user, middleware.ScopePasswordReset)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Now You can reset your password.", fiber.Map{
		"token":      token,
		"expires_in": int(middleware.PasswordResetTTL.Seconds()),
	})
}
