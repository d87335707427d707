package enterpriseValidator

import (
	"liftworks/middleware"
	"liftworks/validators"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

type OrgRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=160"`
	Phone   string `json:"phone" validate:"max=30"`
	Address string `json:"address" validate:"max=500"`
}

type InviteRequest struct {
	Email    string `json:"email" validate:"required,email"`
	CourseID uint   `json:"course_id" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN SUPERVISOR LEARNER"`
}

type RedeemRequest struct {
	Token string `json:"token" validate:"required,uuid"`
}

type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=ADMIN SUPERVISOR LEARNER"`
}

type ReleaseSeatRequest struct {
	UserID   uint `json:"user_id" validate:"required"`
	CourseID uint `json:"course_id" validate:"required"`
}

type EvaluationRequest struct {
	LearnerID     uint       `json:"learner_id" validate:"required"`
	EquipmentType string     `json:"equipment_type" validate:"required,max=120"`
	Result        string     `json:"result" validate:"required,oneof=PASS FAIL NEEDS_TRAINING"`
	Notes         string     `json:"notes" validate:"max=4000"`
	EvaluatedAt   *time.Time `json:"evaluated_at"`
}

type GrantSeatsRequest struct {
	CourseID uint `json:"course_id" validate:"required"`
	Seats    int  `json:"seats" validate:"required,min=1,max=10000"`
}

// Org validator middleware
func Org() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(OrgRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Name = strings.TrimSpace(reqData.Name)
		reqData.Phone = strings.TrimSpace(reqData.Phone)

		if errors := validators.Check(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("validatedOrg", reqData)
		return c.Next()
	}
}

// Invite validator middleware
func Invite() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(InviteRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Email = strings.ToLower(strings.TrimSpace(reqData.Email))
		reqData.Role = strings.ToUpper(strings.TrimSpace(reqData.Role))

		if errors := validators.Check(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("validatedInvite", reqData)
		return c.Next()
	}
}

func Redeem() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(RedeemRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Token = strings.TrimSpace(reqData.Token)

		if errors := validators.Check(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("validatedRedeem", reqData)
		return c.Next()
	}
}

func Role() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(RoleRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Role = strings.ToUpper(strings.TrimSpace(reqData.Role))

		if errors := validators.Check(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("validatedRole", reqData)
		return c.Next()
	}
}

func ReleaseSeat() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, "validatedRelease", new(ReleaseSeatRequest))
	}
}

// Evaluation validator middleware
func Evaluation() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(EvaluationRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Result = strings.ToUpper(strings.TrimSpace(reqData.Result))

		errors := validators.Check(reqData)
		if reqData.EvaluatedAt != nil && reqData.EvaluatedAt.After(time.Now().Add(time.Minute)) {
			if errors == nil {
				errors = map[string]string{}
			}
			errors["evaluated_at"] = "evaluated_at cannot be in the future!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("validatedEvaluation", reqData)
		return c.Next()
	}
}

func GrantSeats() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, "validatedGrant", new(GrantSeatsRequest))
	}
}
