package authValidator

import (
	"liftworks/validators"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Controllers read every auth request from this key.
const localsKey = "validatedUser"

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Mobile   string `json:"mobile" validate:"omitempty,mobile"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Company  string `json:"company" validate:"max=120"`
	JobTitle string `json:"job_title" validate:"max=120"`
}

func (r *SignupRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
	r.Mobile = strings.TrimSpace(r.Mobile)
	r.Company = strings.TrimSpace(r.Company)
	r.JobTitle = strings.TrimSpace(r.JobTitle)
}

// LoginRequest accepts either an email or a mobile number.
type LoginRequest struct {
	Email    string `json:"email" validate:"required_without=Mobile,omitempty,email"`
	Mobile   string `json:"mobile" validate:"required_without=Email,omitempty,mobile"`
	Password string `json:"password" validate:"required,min=8"`
}

func (r *LoginRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
	r.Mobile = strings.TrimSpace(r.Mobile)
}

type OTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *OTPRequest) Normalize() { r.Email = normalizeEmail(r.Email) }

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

func (r *VerifyOTPRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
	r.Code = strings.TrimSpace(r.Code)
}

type ResetPasswordRequest struct {
	Password    string `json:"password" validate:"required,min=8,max=72"`
	CnfPassword string `json:"cnfPassword" validate:"required,eqfield=Password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
	CnfPassword     string `json:"cnfPassword" validate:"required,eqfield=NewPassword"`
}

// HistoryQuery pages the login history; Failed narrows it to rejected attempts.
type HistoryQuery struct {
	Page   int   `query:"page" json:"page" validate:"omitempty,min=1"`
	Limit  int   `query:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
	Failed *bool `query:"failed" json:"failed"`
}

func body(newReq func() interface{}) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, localsKey, newReq())
	}
}

func Signup() fiber.Handler { return body(func() interface{} { return new(SignupRequest) }) }

func Login() fiber.Handler { return body(func() interface{} { return new(LoginRequest) }) }

// SendOTP serves both the verification and the forgot-password send endpoints.
func SendOTP() fiber.Handler { return body(func() interface{} { return new(OTPRequest) }) }

func VerifyOTP() fiber.Handler { return body(func() interface{} { return new(VerifyOTPRequest) }) }

func ResetPassword() fiber.Handler {
	return body(func() interface{} { return new(ResetPasswordRequest) })
}

func ChangeLoginPassword() fiber.Handler {
	return body(func() interface{} { return new(ChangePasswordRequest) })
}

// LoginHistoryList validates paging for the login history.
func LoginHistoryList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Query(c, "validatedLoginHistory", new(HistoryQuery))
	}
}
