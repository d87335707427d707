package catalogController

import (
	"errors"
	"liftworks/config"
	"liftworks/database"
	"liftworks/logger"
	"liftworks/middleware"
	"liftworks/models/catalog"
	"liftworks/utils"
	catalogValidator "liftworks/validators/catalog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// priceQuoteItems resolves SKUs to current prices. Rental lines are priced at the
// daily rate times days; unknown SKUs are reported by index.
func priceQuoteItems(db *gorm.DB, items []catalogValidator.QuoteItemRequest) ([]catalog.QuoteItem, int64, map[string]string) {
	problems := map[string]string{}
	lines := make([]catalog.QuoteItem, 0, len(items))
	var estimate int64

	for i, it := range items {
		sku := strings.ToUpper(strings.TrimSpace(it.SKU))
		var part catalog.Part
		if err := db.Where("sku = ? AND is_active = ? AND is_deleted = ?", sku, true, false).First(&part).Error; err != nil {
			problems["items["+strconv.Itoa(i)+"].sku"] = "Unknown SKU " + sku + "!"
			continue
		}

		line := catalog.QuoteItem{PartID: part.ID, SKU: part.SKU, Name: part.Name, Quantity: it.Quantity}
		if it.RentalDays > 0 {
			if !part.IsRental {
				problems["items["+strconv.Itoa(i)+"].rental_days"] = part.SKU + " is not available for rental!"
				continue
			}
			line.RentalDays = it.RentalDays
			line.LineCents = part.RentalDailyCents * int64(it.RentalDays) * int64(it.Quantity)
		} else {
			line.LineCents = part.PriceCents * int64(it.Quantity)
		}
		estimate += line.LineCents
		lines = append(lines, line)
	}
	return lines, estimate, problems
}

func CreateQuote(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedQuote").(*catalogValidator.QuoteRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db
	items, estimate, problems := priceQuoteItems(db, req.Items)
	if len(problems) > 0 {
		return middleware.ValidationErrorResponse(c, problems)
	}

	quote := catalog.QuoteRequest{
		Kind:          req.Kind,
		ContactName:   strings.TrimSpace(req.ContactName),
		Email:         req.Email,
		Phone:         strings.TrimSpace(req.Phone),
		Company:       strings.TrimSpace(req.Company),
		Message:       strings.TrimSpace(req.Message),
		EstimateCents: estimate,
		Status:        catalog.QuoteNew,
		Items:         items,
	}
	if userID, ok := c.Locals("userId").(uint); ok {
		quote.UserID = &userID
	}

	if err := db.Create(&quote).Error; err != nil {
		logger.Log.Errorw("create quote", "email", req.Email, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to submit quote request!", nil)
	}

	logger.Log.Infow("quote requested", "quote_id", quote.ID, "kind", quote.Kind, "estimate_cents", estimate)
	utils.SendQuoteNotificationEmail(config.AppConfig.SalesEmail, quote.ID, quote.Kind, quote.ContactName, quote.Company, quote.Message, estimate)
	utils.SendQuoteReceivedEmail(quote.Email, quote.ContactName, quote.ID)

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Quote request submitted successfully.", quote)
}

func AdminListQuotes(c *fiber.Ctx) error {
	page := utils.ParsePagination(c, 20, 100)
	q := database.Database.Db.Model(&catalog.QuoteRequest{}).Where("is_deleted = ?", false)
	if status := strings.ToUpper(strings.TrimSpace(c.Query("status"))); status != "" {
		q = q.Where("status = ?", status)
	}
	if kind := strings.ToUpper(strings.TrimSpace(c.Query("kind"))); kind != "" {
		q = q.Where("kind = ?", kind)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load quotes!", nil)
	}
	var quotes []catalog.QuoteRequest
	if err := q.Preload("Items").Order("id desc").Offset(page.Offset).Limit(page.Limit).Find(&quotes).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load quotes!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quotes fetched successfully.", fiber.Map{
		"quotes":     quotes,
		"pagination": utils.PageMeta(page, total),
	})
}

func AdminUpdateQuoteStatus(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedStatus").(*catalogValidator.StatusRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db
	var quote catalog.QuoteRequest
	err := db.Where("id = ? AND is_deleted = ?", c.Params("id"), false).First(&quote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Quote not found!", nil)
	}
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load quote!", nil)
	}

	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if !catalog.CanTransitionQuote(quote.Status, status) {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Quote cannot move from "+quote.Status+" to "+status+"!", nil)
	}

	updates := map[string]interface{}{"status": status}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		updates["admin_notes"] = notes
	}
	res := db.Model(&catalog.QuoteRequest{}).Where("id = ? AND status = ?", quote.ID, quote.Status).Updates(updates)
	if res.Error != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update quote!", nil)
	}
	if res.RowsAffected == 0 {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Quote was updated by someone else!", nil)
	}

	db.Preload("Items").First(&quote, quote.ID)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quote status updated.", quote)
}
