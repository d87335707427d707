package middleware

import (
	"liftworks/database"
	"liftworks/logger"
	"liftworks/models"

	"github.com/gofiber/fiber/v2"
)

const permissionsKey = "permissions"

// grantedPermissions loads the caller's live permission set once per request.
func grantedPermissions(c *fiber.Ctx) (map[string]bool, error) {
	if cached, ok := c.Locals(permissionsKey).(map[string]bool); ok {
		return cached, nil
	}
	userID, _ := c.Locals("userId").(uint)

	var names []string
	if err := database.Database.Db.Model(&models.Permission{}).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Pluck("permission", &names).Error; err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	c.Locals(permissionsKey, set)
	return set, nil
}

// HasPermission reports whether the authenticated caller holds perm.
func HasPermission(c *fiber.Ctx, perm string) bool {
	set, err := grantedPermissions(c)
	return err == nil && set[perm]
}

// CheckPermissionMiddleware rejects callers missing any of the required permissions.
func CheckPermissionMiddleware(required ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals("userId").(uint); !ok {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized: User ID not found", nil)
		}

		set, err := grantedPermissions(c)
		if err != nil {
			logger.Log.Errorw("load permissions", "user_id", c.Locals("userId"), "error", err)
			return JsonResponse(c, fiber.StatusInternalServerError, false, "Server error while checking permissions!", nil)
		}
		for _, perm := range required {
			if !set[perm] {
				return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
			}
		}
		return c.Next()
	}
}
