package catalogController

import (
	"errors"
	"liftworks/config"
	"liftworks/database"
	"liftworks/logger"
	"liftworks/middleware"
	"liftworks/models"
	"liftworks/services/checkout"
	"liftworks/utils"
	catalogValidator "liftworks/validators/catalog"

	"github.com/gofiber/fiber/v2"
)

// SignatureHeader carries the payment webhook signature.
const SignatureHeader = "Payment-Signature"

// NewCheckout is swapped in tests to stub the payment processor.
var NewCheckout = func() *checkout.Service {
	cfg := config.AppConfig
	return checkout.NewService(database.Database.Db, cfg, utils.NewPaymentClient(cfg))
}

func checkoutError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, checkout.ErrUnknownSKU), errors.Is(err, checkout.ErrUnknownCourse):
		return middleware.ValidationErrorResponse(c, map[string]string{"items": err.Error()})
	case errors.Is(err, checkout.ErrEmptyCart):
		return middleware.ValidationErrorResponse(c, map[string]string{"items": "Cart is empty!"})
	case errors.Is(err, checkout.ErrOutOfStock), errors.Is(err, checkout.ErrAlreadyEnrolled):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, err.Error(), nil)
	case errors.Is(err, checkout.ErrNotOrgAdmin):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, err.Error(), nil)
	case errors.Is(err, checkout.ErrOrderNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Order not found!", nil)
	case errors.Is(err, checkout.ErrInvalidTransition):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, err.Error(), nil)
	default:
		logger.Log.Errorw("checkout failed", "path", c.Path(), "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process order!", nil)
	}
}

func currentUser(c *fiber.Ctx) (*models.User, error) {
	userID, _ := c.Locals("userId").(uint)
	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func Checkout(c *fiber.Ctx) error {
	cart, ok := c.Locals("validatedCart").(*checkout.Cart)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	user, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	order, err := NewCheckout().CreateOrder(*user, *cart)
	if err != nil {
		return checkoutError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Order created successfully.", fiber.Map{
		"order":       order,
		"payment_url": order.PaymentURL,
	})
}

func PaymentWebhook(c *fiber.Ctx) error {
	outcome, err := NewCheckout().HandleWebhook(c.Get(SignatureHeader), c.Body())
	switch {
	case err == nil:
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Webhook processed.", fiber.Map{"outcome": outcome})
	case errors.Is(err, checkout.ErrMissingSignature), errors.Is(err, checkout.ErrBadSignature), errors.Is(err, checkout.ErrStaleSignature):
		logger.Log.Warnw("webhook rejected", "ip", c.IP(), "error", err)
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid webhook signature!", nil)
	case errors.Is(err, checkout.ErrMalformedEvent):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Malformed webhook event!", nil)
	case errors.Is(err, checkout.ErrOrderNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Order not found!", nil)
	default:
		logger.Log.Errorw("webhook failed", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process webhook!", nil)
	}
}

func MyOrders(c *fiber.Ctx) error {
	userID, _ := c.Locals("userId").(uint)
	page := utils.ParsePagination(c, 10, 50)

	orders, total, err := NewCheckout().List(userID, c.Query("status"), page)
	if err != nil {
		return checkoutError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Orders fetched successfully.", fiber.Map{
		"orders":     orders,
		"pagination": utils.PageMeta(page, total),
	})
}

func GetOrder(c *fiber.Ctx) error {
	order, err := NewCheckout().Find(c.Params("number"))
	if err != nil {
		return checkoutError(c, err)
	}

	userID, _ := c.Locals("userId").(uint)
	if order.UserID != userID && !middleware.HasPermission(c, models.PermManageOrders) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Order not found!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order fetched successfully.", order)
}

func AdminListOrders(c *fiber.Ctx) error {
	page := utils.ParsePagination(c, 20, 100)
	orders, total, err := NewCheckout().List(0, c.Query("status"), page)
	if err != nil {
		return checkoutError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Orders fetched successfully.", fiber.Map{
		"orders":     orders,
		"pagination": utils.PageMeta(page, total),
	})
}

func AdminUpdateOrderStatus(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedStatus").(*catalogValidator.StatusRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	order, err := NewCheckout().AdvanceStatus(c.Params("number"), req.Status)
	if err != nil {
		return checkoutError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order status updated.", order)
}
