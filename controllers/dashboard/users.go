package dashboardController

import (
	"liftworks/database"
	"liftworks/logger"
	"liftworks/middleware"
	"liftworks/models"
	"liftworks/utils"
	"liftworks/validators"
	userValidator "liftworks/validators/user"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AdminListUsers lists users with optional ?q search over name, email and
// company, and ?role.
func AdminListUsers(c *fiber.Ctx) error {
	page := utils.ParsePagination(c, 20, 100)

	query := database.Database.Db.Model(&models.User{}).Where("is_deleted = ?", false)
	if term := strings.ToLower(strings.TrimSpace(c.Query("q"))); term != "" {
		like := "%" + term + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?", like, like, like)
	}
	if role := strings.ToUpper(c.Query("role")); role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch user list!", nil)
	}

	var users []models.User
	if err := query.Order("id desc").Offset(page.Offset).Limit(page.Limit).Find(&users).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch user list!", nil)
	}
	for i := range users {
		users[i].Password = ""
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "User List.", fiber.Map{
		"users":      users,
		"pagination": utils.PageMeta(page, total),
	})
}

// AdminBlockUser blocks or unblocks an account. Admins cannot block themselves.
func AdminBlockUser(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedBlock").(*userValidator.BlockRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	targetID, _ := validators.ParamID(c, "id")
	if callerID, _ := c.Locals("userId").(uint); callerID == targetID {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "You cannot block your own account!", nil)
	}

	db := database.Database.Db
	var user models.User
	if err := db.Where("id = ? AND is_deleted = ?", targetID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found!", nil)
	}

	updates := map[string]interface{}{"is_blocked": *req.Blocked, "blocked_until": nil}
	if !*req.Blocked {
		updates["failed_login_attempts"] = 0
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update user!", nil)
	}
	logger.Log.Infow("user block changed", "user_id", user.ID, "blocked", *req.Blocked, "by", c.Locals("userId"))

	user.IsBlocked = *req.Blocked
	user.BlockedUntil = nil
	user.Password = ""
	return middleware.JsonResponse(c, fiber.StatusOK, true, "User updated.", user)
}
