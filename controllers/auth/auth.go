package authController

import (
	"liftworks/config"
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

// Lockout policy
const (
	MaxFailedLogins  = 3
	LockoutDuration  = time.Minute
	FailedLoginReset = 15 * time.Minute
)

func Signup(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedUser").(*authValidator.SignupRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	var taken int64
	q := db.Model(&models.User{}).Where("email = ?", reqData.Email)
	if reqData.Mobile != "" {
		q = q.Or("mobile = ?", reqData.Mobile)
	}
	if err := q.Count(&taken).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}
	if taken > 0 {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Email or mobile number is already registered!", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reqData.Password), config.AppConfig.SaltRound)
	if err != nil {
		logger.Log.Errorw("hash password failed", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}

	user := models.User{
		Name:     reqData.Name,
		Email:    reqData.Email,
		Mobile:   reqData.Mobile,
		Company:  reqData.Company,
		JobTitle: reqData.JobTitle,
		Role:     models.RoleUser,
		Password: string(hash),
	}

	var code string
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if err := SeedPermissions(tx, user.Role, user.ID); err != nil {
			return err
		}
		code, err = issueCode(tx, user.ID, models.OTPVerifyEmail)
		return err
	})
	if err != nil {
		logger.Log.Errorw("signup failed", "email", reqData.Email, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to Signup user!", nil)
	}

	utils.SendWelcomeEmail(user.Email, user.Name)
	utils.SendOTPEmail(code, user.Email)

	user.Password = ""
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "User registered. Check your inbox for a verification code.", user)
}

// SeedPermissions grants the default permission set of role to userID.
func SeedPermissions(db *gorm.DB, role string, userID uint) error {
	names := models.DefaultPermissions(role)
	rows := make([]models.Permission, 0, len(names))
	for _, p := range names {
		rows = append(rows, models.Permission{UserID: userID, Role: role, Permission: p})
	}
	return db.Create(&rows).Error
}

func recordAttempt(c *fiber.Ctx, db *gorm.DB, userID uint, failReason string, at time.Time) {
	attempt := models.LoginAttempt{
		UserID:      userID,
		IPAddress:   c.IP(),
		UserAgent:   c.Get(fiber.HeaderUserAgent),
		Succeeded:   failReason == "",
		FailReason:  failReason,
		AttemptedAt: at,
	}
	if err := db.Create(&attempt).Error; err != nil {
		logger.Log.Errorw("record login attempt", "user_id", userID, "error", err)
	}
}

func Login(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedUser").(*authValidator.LoginRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	var user models.User
	q := db.Where("is_deleted = ?", false)
	if reqData.Email != "" {
		q = q.Where("email = ?", reqData.Email)
	} else {
		q = q.Where("mobile = ?", reqData.Mobile)
	}
	if err := q.First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid credentials!", nil)
	}

	now := time.Now()

	if !user.IsEmailVerified {
		recordAttempt(c, db, user.ID, models.LoginFailUnverified, now)
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Email not verified!", nil)
	}

	// A nil BlockedUntil is an admin block and never lapses on its own.
	if user.IsBlocked && (user.BlockedUntil == nil || user.BlockedUntil.After(now)) {
		recordAttempt(c, db, user.ID, models.LoginFailBlocked, now)
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Your account is temporarily blocked. Try again later.", nil)
	}

	if user.LastFailedLogin != nil && now.Sub(*user.LastFailedLogin) > FailedLoginReset {
		user.FailedLoginAttempts = 0
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(reqData.Password)); err != nil {
		registerFailure(db, &user, now)
		recordAttempt(c, db, user.ID, models.LoginFailWrongPassword, now)
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Wrong Password", nil)
	}

	if err := db.Model(&user).Updates(map[string]interface{}{
		"last_login":            now,
		"failed_login_attempts": 0,
		"last_failed_login":     nil,
		"is_blocked":            false,
		"blocked_until":         nil,
	}).Error; err != nil {
		logger.Log.Errorw("save last login", "user_id", user.ID, "error", err)
	}
	recordAttempt(c, db, user.ID, "", now)
	logger.Log.Infow("user logged in", "user_id", user.ID, "ip", c.IP())

	token, err := middleware.IssueToken(user, middleware.ScopeSession)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token", nil)
	}

	user.Password = ""
	user.LastLogin = &now
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login successful.", fiber.Map{
		"user":  user,
		"token": token,
	})
}

// registerFailure counts a wrong password and locks the account once the
// limit is reached inside the reset window.
func registerFailure(db *gorm.DB, user *models.User, at time.Time) {
	updates := map[string]interface{}{
		"failed_login_attempts": user.FailedLoginAttempts + 1,
		"last_failed_login":     at,
	}
	if user.FailedLoginAttempts+1 >= MaxFailedLogins {
		until := at.Add(LockoutDuration)
		updates["is_blocked"] = true
		updates["blocked_until"] = until
		updates["failed_login_attempts"] = 0
		logger.Log.Warnw("account locked", "user_id", user.ID, "until", until)
	}
	if err := db.Model(user).Updates(updates).Error; err != nil {
		logger.Log.Errorw("record failed login", "user_id", user.ID, "error", err)
	}
}

// LoginHistoryList pages the caller's sign-in attempts, newest first.
// ?failed=true narrows to rejected attempts.
func LoginHistoryList(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	filter, _ := c.Locals("validatedLoginHistory").(*authValidator.HistoryQuery)

	page := utils.ParsePagination(c, 10, 100)
	query := database.Database.Db.Model(&models.LoginAttempt{}).Where("user_id = ? AND is_deleted = ?", userId, false)
	if filter != nil && filter.Failed != nil {
		query = query.Where("succeeded = ?", !*filter.Failed)
	}

	var total int64
	var attempts []models.LoginAttempt
	if err := query.Count(&total).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load login history!", nil)
	}
	if err := query.Order("attempted_at desc, id desc").Offset(page.Offset).Limit(page.Limit).Find(&attempts).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load login history!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login History List.", fiber.Map{
		"attempts":   attempts,
		"pagination": utils.PageMeta(page, total),
	})
}
