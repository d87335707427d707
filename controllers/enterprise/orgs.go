package enterpriseController

import (
	"errors"
	"liftworks/config"
	"liftworks/database"
	"liftworks/logger"
	"liftworks/middleware"
	"liftworks/models/enterprise"
	"liftworks/services/roster"
	"liftworks/services/seats"
	"liftworks/utils"
	enterpriseValidator "liftworks/validators/enterprise"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// NewSeats is swapped in tests to pin the invitation clock.
var NewSeats = func() *seats.Service {
	return seats.NewService(database.Database.Db, config.AppConfig.InviteTTL)
}

func enterpriseError(c *fiber.Ctx, err error) error {
	var re *seats.RedeemError
	if errors.As(err, &re) {
		status := fiber.StatusConflict
		switch re.Reason {
		case seats.ReasonNotFound:
			status = fiber.StatusNotFound
		case seats.ReasonExpired:
			status = fiber.StatusGone
		case seats.ReasonEmailMismatch:
			status = fiber.StatusForbidden
		}
		return middleware.JsonResponse(c, status, false, re.Error(), fiber.Map{"reason": re.Reason})
	}

	switch {
	case errors.Is(err, seats.ErrNoSeatPool), errors.Is(err, seats.ErrNoFreeSeats),
		errors.Is(err, seats.ErrInviteNotPending), errors.Is(err, seats.ErrEnrollmentStarted):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, err.Error(), nil)
	case errors.Is(err, seats.ErrInviteNotFound), errors.Is(err, seats.ErrNoSeatEnrollment):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, err.Error(), nil)
	case errors.Is(err, seats.ErrInvalidRole), errors.Is(err, seats.ErrInvalidSeatCount):
		return middleware.JsonResponse(c, fiber.StatusUnprocessableEntity, false, err.Error(), nil)
	case errors.Is(err, roster.ErrNotMember):
		return middleware.JsonResponse(c, fiber.StatusUnprocessableEntity, false, err.Error(), nil)
	case errors.Is(err, roster.ErrInvalidResult):
		return middleware.ValidationErrorResponse(c, map[string]string{"result": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Record not found!", nil)
	default:
		logger.Log.Errorw("enterprise request failed", "path", c.Path(), "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Server error!", nil)
	}
}

func orgFromLocals(c *fiber.Ctx) (uint, string) {
	orgID, _ := c.Locals("orgID").(uint)
	role, _ := c.Locals("orgRole").(string)
	return orgID, role
}

// CreateOrg creates an organization owned by the caller.
func CreateOrg(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedOrg").(*enterpriseValidator.OrgRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	userID, _ := c.Locals("userId").(uint)
	db := database.Database.Db

	slug := utils.Slugify(req.Name)
	var taken int64
	db.Model(&enterprise.Organization{}).Where("slug = ?", slug).Count(&taken)
	if taken > 0 || slug == "" {
		slug = slug + "-" + utils.Slugify(utils.ShortCode(6))
	}

	org := enterprise.Organization{Name: req.Name, Slug: slug, OwnerID: userID, Phone: req.Phone, Address: req.Address}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		return tx.Create(&enterprise.OrgMember{
			OrgID:    org.ID,
			UserID:   userID,
			Role:     enterprise.RoleOwner,
			Status:   enterprise.MemberActive,
			JoinedAt: time.Now(),
		}).Error
	})
	if err != nil {
		logger.Log.Errorw("create organization failed", "user_id", userID, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create organization!", nil)
	}

	logger.Log.Infow("organization created", "org_id", org.ID, "owner_id", userID)
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Organization created successfully!", org)
}

func MyOrgs(c *fiber.Ctx) error {
	userID, _ := c.Locals("userId").(uint)

	type row struct {
		enterprise.Organization
		Role string `json:"role"`
	}
	var rows []row
	err := database.Database.Db.Table("organizations").
		Select("organizations.*, org_members.role AS role").
		Joins("JOIN org_members ON org_members.org_id = organizations.id").
		Where("org_members.user_id = ? AND org_members.status = ? AND organizations.is_deleted = ? AND organizations.deleted_at IS NULL",
			userID, enterprise.MemberActive, false).
		Order("organizations.name asc").
		Scan(&rows).Error
	if err != nil {
		return enterpriseError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Organizations fetched successfully.", rows)
}

func GetOrg(c *fiber.Ctx) error {
	orgID, role := orgFromLocals(c)
	db := database.Database.Db

	var org enterprise.Organization
	if err := db.First(&org, orgID).Error; err != nil {
		return enterpriseError(c, err)
	}
	var members int64
	db.Model(&enterprise.OrgMember{}).Where("org_id = ? AND status = ?", orgID, enterprise.MemberActive).Count(&members)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Organization fetched successfully.", fiber.Map{
		"organization": org,
		"members":      members,
		"your_role":    role,
	})
}

func UpdateOrg(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedOrg").(*enterpriseValidator.OrgRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	orgID, _ := orgFromLocals(c)
	db := database.Database.Db

	var org enterprise.Organization
	if err := db.First(&org, orgID).Error; err != nil {
		return enterpriseError(c, err)
	}
	if err := db.Model(&org).Updates(map[string]interface{}{
		"name":    req.Name,
		"phone":   req.Phone,
		"address": req.Address,
	}).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update organization!", nil)
	}
	db.First(&org, orgID)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Organization updated successfully!", org)
}
