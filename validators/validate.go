// Package validators holds the shared struct-tag validation used by the
// per-area request validators.
package validators

import (
	"fmt"
	"liftworks/middleware"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) < 10 || len(s) > 15 {
			return false
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	})
	return v
}

// Check validates s and returns field → message, keyed by json path
// (e.g. "items[2].qty"). A nil map means s is valid.
func Check(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"body": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := fe.Namespace()
		if i := strings.Index(key, "."); i >= 0 {
			key = key[i+1:]
		}
		if _, exists := out[key]; !exists {
			out[key] = message(fe)
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required!", field)
	case "email":
		return "Invalid email!"
	case "mobile":
		return "Invalid mobile number!"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long!", field, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s entries!", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s!", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long!", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s!", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more!", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less!", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s!", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eqfield":
		return fmt.Sprintf("%s must match %s!", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL!", field)
	case "required_without":
		return fmt.Sprintf("%s is required when %s is missing!", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid!", field)
	}
}

// Normalizer is implemented by requests that tidy their fields (trim, case)
// before validation.
type Normalizer interface {
	Normalize()
}

// Body parses the request body into dst, validates it and stores it under key
// for the controller. Malformed bodies answer 400, invalid fields 422.
func Body(c *fiber.Ctx, key string, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}
	if n, ok := dst.(Normalizer); ok {
		n.Normalize()
	}
	if errs := Check(dst); len(errs) > 0 {
		return middleware.ValidationErrorResponse(c, errs)
	}
	c.Locals(key, dst)
	return c.Next()
}

// Query is Body for query strings.
func Query(c *fiber.Ctx, key string, dst interface{}) error {
	if err := c.QueryParser(dst); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
	}
	if errs := Check(dst); len(errs) > 0 {
		return middleware.ValidationErrorResponse(c, errs)
	}
	c.Locals(key, dst)
	return c.Next()
}

// ParamID parses a positive integer route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(c.Params(name)))
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// IDParams checks each named route parameter is a positive integer.
func IDParams(names ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		errs := map[string]string{}
		for _, name := range names {
			if _, ok := ParamID(c, name); !ok {
				errs[name] = "Invalid " + name + "!"
			}
		}
		if len(errs) > 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid route parameters!", errs)
		}
		return c.Next()
	}
}
