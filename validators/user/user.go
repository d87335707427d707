package userValidator

import (
	"liftworks/middleware"
	"liftworks/validators"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type ProfileRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Mobile   string `json:"mobile" validate:"omitempty,mobile"`
	Company  string `json:"company" validate:"max=120"`
	JobTitle string `json:"job_title" validate:"max=120"`
}

// UpdateProfile validator middleware
func UpdateProfile() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ProfileRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Name = strings.TrimSpace(reqData.Name)
		reqData.Mobile = strings.TrimSpace(reqData.Mobile)
		reqData.Company = strings.TrimSpace(reqData.Company)
		reqData.JobTitle = strings.TrimSpace(reqData.JobTitle)

		if errors := validators.Check(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("validatedProfile", reqData)
		return c.Next()
	}
}

// BlockRequest toggles an administrative block on an account.
type BlockRequest struct {
	Blocked *bool `json:"blocked" validate:"required"`
}

// Block validator middleware
func Block() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, "validatedBlock", new(BlockRequest))
	}
}
