package catalogValidator

import (
	"liftworks/middleware"
	"liftworks/services/checkout"
	"liftworks/validators"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PartFilter is the public catalog query.
type PartFilter struct {
	Q        string `query:"q" json:"q" validate:"max=100"`
	Brand    string `query:"brand" json:"brand"`
	Category string `query:"category" json:"category"`
	Type     string `query:"type" json:"type" validate:"omitempty,oneof=PART CHARGER ATTACHMENT"`
	MinPrice *int64 `query:"min_price" json:"min_price" validate:"omitempty,gte=0"`
	MaxPrice *int64 `query:"max_price" json:"max_price" validate:"omitempty,gte=0"`
	InStock  bool   `query:"in_stock" json:"in_stock"`
	Rental   *bool  `query:"rental" json:"rental"`
	Voltage  string `query:"voltage" json:"voltage"`
	Amperage string `query:"amperage" json:"amperage"`
	Sort     string `query:"sort" json:"sort"`
	Page     int    `query:"page" json:"page" validate:"omitempty,min=1"`
	Limit    int    `query:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
}

type PartRequest struct {
	SKU              string                 `json:"sku" validate:"required,max=64"`
	Name             string                 `json:"name" validate:"required,min=2,max=200"`
	Brand            string                 `json:"brand" validate:"max=80"`
	Category         string                 `json:"category" validate:"max=80"`
	PartType         string                 `json:"part_type" validate:"omitempty,oneof=PART CHARGER ATTACHMENT"`
	Description      string                 `json:"description"`
	PriceCents       int64                  `json:"price_cents" validate:"gte=0"`
	StockQty         int                    `json:"stock_qty" validate:"gte=0"`
	Specs            map[string]interface{} `json:"specs"`
	ImageURL         string                 `json:"image_url" validate:"omitempty,max=500"`
	IsRental         bool                   `json:"is_rental"`
	RentalDailyCents int64                  `json:"rental_daily_cents" validate:"gte=0"`
	IsActive         *bool                  `json:"is_active"`
}

type QuoteItemRequest struct {
	SKU        string `json:"sku" validate:"required"`
	Quantity   int    `json:"qty" validate:"required,min=1,max=999"`
	RentalDays int    `json:"rental_days" validate:"omitempty,min=1,max=365"`
}

type QuoteRequest struct {
	Kind        string             `json:"kind" validate:"required,oneof=PARTS RENTAL SERVICE"`
	ContactName string             `json:"contact_name" validate:"required,min=2,max=120"`
	Email       string             `json:"email" validate:"required,email"`
	Phone       string             `json:"phone" validate:"max=30"`
	Company     string             `json:"company" validate:"max=120"`
	Message     string             `json:"message" validate:"max=4000"`
	Items       []QuoteItemRequest `json:"items" validate:"max=50,dive"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes" validate:"max=4000"`
}

// PartFilterQuery validator middleware
func PartFilterQuery() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(PartFilter)
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}
		reqData.Type = strings.ToUpper(strings.TrimSpace(reqData.Type))

		errors := validators.Check(reqData)
		if reqData.MinPrice != nil && reqData.MaxPrice != nil && *reqData.MinPrice > *reqData.MaxPrice {
			if errors == nil {
				errors = map[string]string{}
			}
			errors["min_price"] = "min_price must not exceed max_price!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedFilter", reqData)
		return c.Next()
	}
}

// Part validator middleware for create and update.
func Part() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(PartRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.SKU = strings.ToUpper(strings.TrimSpace(reqData.SKU))
		reqData.Name = strings.TrimSpace(reqData.Name)
		reqData.PartType = strings.ToUpper(strings.TrimSpace(reqData.PartType))

		errors := validators.Check(reqData)
		if reqData.IsRental && reqData.RentalDailyCents <= 0 {
			if errors == nil {
				errors = map[string]string{}
			}
			errors["rental_daily_cents"] = "Rental parts need a daily rate!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedPart", reqData)
		return c.Next()
	}
}

// Quote validator middleware
func Quote() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(QuoteRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Kind = strings.ToUpper(strings.TrimSpace(reqData.Kind))
		reqData.Email = strings.ToLower(strings.TrimSpace(reqData.Email))

		errors := validators.Check(reqData)
		if reqData.Kind == "PARTS" && len(reqData.Items) == 0 && strings.TrimSpace(reqData.Message) == "" {
			if errors == nil {
				errors = map[string]string{}
			}
			errors["items"] = "Add at least one item or describe what you need!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedQuote", reqData)
		return c.Next()
	}
}

// Status validator middleware for quote and order status changes.
func Status() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, "validatedStatus", new(StatusRequest))
	}
}

// Checkout validator middleware
func Checkout() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(checkout.Cart)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := validators.Check(reqData)
		if len(reqData.Items) == 0 && len(reqData.Courses) == 0 {
			if errors == nil {
				errors = map[string]string{}
			}
			errors["items"] = "Cart is empty!"
		}
		if len(reqData.Items) > 0 && strings.TrimSpace(reqData.ShippingAddress) == "" {
			if errors == nil {
				errors = map[string]string{}
			}
			errors["shipping_address"] = "shipping_address is required for parts!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCart", reqData)
		return c.Next()
	}
}
