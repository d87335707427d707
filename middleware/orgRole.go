package middleware

import (
	"errors"
	"liftworks/database"
	"liftworks/models"
	"liftworks/models/enterprise"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RequireOrgRole resolves the :org_id route param, loads the caller's membership
// and rejects the request unless the member's role allows action.
// Site admins pass every check.
func RequireOrgRole(action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userId").(uint)
		if !ok {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
		}

		orgID, err := strconv.Atoi(strings.TrimSpace(c.Params("org_id")))
		if err != nil || orgID <= 0 {
			return JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Organization ID!", nil)
		}

		var org enterprise.Organization
		if err := database.Database.Db.Where("id = ? AND is_deleted = ?", orgID, false).First(&org).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return JsonResponse(c, fiber.StatusNotFound, false, "Organization not found!", nil)
			}
			return JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load organization!", nil)
		}

		c.Locals("orgID", org.ID)

		if role, _ := c.Locals("role").(string); role == models.RoleAdmin {
			c.Locals("orgRole", enterprise.RoleOwner)
			return c.Next()
		}

		var member enterprise.OrgMember
		err = database.Database.Db.Where("org_id = ? AND user_id = ? AND status = ?", org.ID, userID, enterprise.MemberActive).
			First(&member).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return JsonResponse(c, fiber.StatusForbidden, false, "You are not a member of this organization!", nil)
			}
			return JsonResponse(c, fiber.StatusInternalServerError, false, "Server error while checking membership!", nil)
		}

		if !enterprise.Can(member.Role, action) {
			return JsonResponse(c, fiber.StatusForbidden, false, "Your organization role does not allow this action!", nil)
		}

		c.Locals("orgRole", member.Role)
		return c.Next()
	}
}
