package enterpriseController

import (
	"liftworks/database"
	"liftworks/logger"
	"liftworks/middleware"
	"liftworks/models/enterprise"
	"liftworks/validators"
	enterpriseValidator "liftworks/validators/enterprise"
	"time"

	"github.com/gofiber/fiber/v2"
)

func ListMembers(c *fiber.Ctx) error {
	orgID, _ := orgFromLocals(c)

	type row struct {
		enterprise.OrgMember
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	var rows []row
	err := database.Database.Db.Table("org_members").
		Select("org_members.*, users.name AS name, users.email AS email").
		Joins("JOIN users ON users.id = org_members.user_id").
		Where("org_members.org_id = ? AND org_members.status = ? AND org_members.deleted_at IS NULL", orgID, enterprise.MemberActive).
		Order("org_members.id asc").
		Scan(&rows).Error
	if err != nil {
		return enterpriseError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Members fetched successfully.", rows)
}

func activeMember(orgID, userID uint) (*enterprise.OrgMember, error) {
	var member enterprise.OrgMember
	err := database.Database.Db.Where("org_id = ? AND user_id = ? AND status = ?", orgID, userID, enterprise.MemberActive).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// ChangeMemberRole updates a member's role. The owner keeps OWNER, and only the
// owner may grant ADMIN or change an existing admin.
func ChangeMemberRole(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedRole").(*enterpriseValidator.RoleRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	orgID, callerRole := orgFromLocals(c)
	targetID, _ := validators.ParamID(c, "user_id")

	member, err := activeMember(orgID, targetID)
	if err != nil {
		return enterpriseError(c, err)
	}
	if member.Role == enterprise.RoleOwner {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "The organization owner cannot be demoted!", nil)
	}
	if (req.Role == enterprise.RoleAdmin || member.Role == enterprise.RoleAdmin) && callerRole != enterprise.RoleOwner {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Only the owner can grant or change the ADMIN role!", nil)
	}

	if err := database.Database.Db.Model(member).Update("role", req.Role).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update role!", nil)
	}
	logger.Log.Infow("member role changed", "org_id", orgID, "user_id", targetID, "role", req.Role, "by", c.Locals("userId"))
	member.Role = req.Role
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Member role updated.", member)
}

func RemoveMember(c *fiber.Ctx) error {
	orgID, callerRole := orgFromLocals(c)
	targetID, _ := validators.ParamID(c, "user_id")

	member, err := activeMember(orgID, targetID)
	if err != nil {
		return enterpriseError(c, err)
	}
	if member.Role == enterprise.RoleOwner {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "The organization owner cannot be removed!", nil)
	}
	if member.Role == enterprise.RoleAdmin && callerRole != enterprise.RoleOwner {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Only the owner can remove an admin!", nil)
	}

	now := time.Now()
	if err := database.Database.Db.Model(member).Updates(map[string]interface{}{
		"status":     enterprise.MemberRemoved,
		"removed_at": now,
	}).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to remove member!", nil)
	}
	logger.Log.Infow("member removed", "org_id", orgID, "user_id", targetID, "by", c.Locals("userId"))
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Member removed.", nil)
}
