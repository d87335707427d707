package enterpriseController

import (
	"liftworks/config"
	"liftworks/database"
	"liftworks/middleware"
	"liftworks/models"
	"liftworks/models/enterprise"
	"liftworks/models/training"
	"liftworks/services/seats"
	"liftworks/utils"
	"liftworks/validators"
	enterpriseValidator "liftworks/validators/enterprise"

	"github.com/gofiber/fiber/v2"
)

func ListSeatPools(c *fiber.Ctx) error {
	orgID, _ := orgFromLocals(c)

	pools, err := NewSeats().Pools(orgID)
	if err != nil {
		return enterpriseError(c, err)
	}

	type row struct {
		enterprise.OrgSeat
		CourseTitle string `json:"course_title"`
		Available   int    `json:"available"`
	}
	out := make([]row, 0, len(pools))
	for _, p := range pools {
		var course training.Course
		database.Database.Db.Select("id", "title").First(&course, p.CourseID)
		out = append(out, row{OrgSeat: p, CourseTitle: course.Title, Available: p.Available()})
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Seat pools fetched successfully.", out)
}

func sendInvite(invite *enterprise.Invitation) {
	db := database.Database.Db
	var org enterprise.Organization
	var course training.Course
	db.First(&org, invite.OrgID)
	db.First(&course, invite.CourseID)
	link := config.AppConfig.PublicBaseURL + "/enterprise/redeem?token=" + invite.Token
	utils.SendInvitationEmail(invite.Email, org.Name, course.Title, link, invite.ExpiresAt)
}

func CreateInvite(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedInvite").(*enterpriseValidator.InviteRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	orgID, callerRole := orgFromLocals(c)
	userID, _ := c.Locals("userId").(uint)
	if req.Role == enterprise.RoleAdmin && callerRole != enterprise.RoleOwner {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Only the owner can invite admins!", nil)
	}

	invite, err := NewSeats().Invite(orgID, req.CourseID, userID, req.Email, req.Role)
	if err != nil {
		return enterpriseError(c, err)
	}
	sendInvite(invite)
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Invitation sent.", invite)
}

func ListInvites(c *fiber.Ctx) error {
	orgID, _ := orgFromLocals(c)
	invites, err := NewSeats().Invitations(orgID, c.Query("status"))
	if err != nil {
		return enterpriseError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Invitations fetched successfully.", invites)
}

func RevokeInvite(c *fiber.Ctx) error {
	orgID, _ := orgFromLocals(c)
	inviteID, _ := validators.ParamID(c, "invite_id")

	invite, err := NewSeats().Revoke(orgID, inviteID)
	if err != nil {
		return enterpriseError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Invitation revoked.", invite)
}

func ResendInvite(c *fiber.Ctx) error {
	orgID, _ := orgFromLocals(c)
	inviteID, _ := validators.ParamID(c, "invite_id")

	invite, err := NewSeats().Resend(orgID, inviteID)
	if err != nil {
		return enterpriseError(c, err)
	}
	sendInvite(invite)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Invitation resent.", invite)
}

// Redeem accepts an invitation for the signed-in user.
func Redeem(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedRedeem").(*enterpriseValidator.RedeemRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	userID, _ := c.Locals("userId").(uint)

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	redemption, err := NewSeats().Redeem(user, req.Token)
	if err != nil {
		return enterpriseError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Invitation accepted. Welcome aboard!", redemption)
}

func ReleaseSeat(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedRelease").(*enterpriseValidator.ReleaseSeatRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	orgID, _ := orgFromLocals(c)

	if err := NewSeats().ReleaseSeat(orgID, req.UserID, req.CourseID); err != nil {
		return enterpriseError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Seat released.", nil)
}

// AdminGrantSeats adds seats to an organization's pool outside of checkout.
func AdminGrantSeats(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedGrant").(*enterpriseValidator.GrantSeatsRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	orgID, _ := validators.ParamID(c, "org_id")
	db := database.Database.Db

	var org enterprise.Organization
	if err := db.Where("id = ? AND is_deleted = ?", orgID, false).First(&org).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Organization not found!", nil)
	}
	var course training.Course
	if err := db.Where("id = ? AND is_deleted = ?", req.CourseID, false).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	pool, err := seats.AllocateSeats(db, org.ID, course.ID, req.Seats)
	if err != nil {
		return enterpriseError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Seats granted.", pool)
}
