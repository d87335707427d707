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
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var partSorts = map[string]string{
	"price_asc":  "price_cents asc, id asc",
	"price_desc": "price_cents desc, id asc",
	"name":       "name asc, id asc",
	"newest":     "id desc",
}

// filterParts applies the public catalog filters.
func filterParts(db *gorm.DB, f *catalogValidator.PartFilter) *gorm.DB {
	q := db.Model(&catalog.Part{}).Where("is_active = ? AND is_deleted = ?", true, false)

	if term := strings.ToLower(strings.TrimSpace(f.Q)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}
	if f.Brand != "" {
		q = q.Where("LOWER(brand) = ?", strings.ToLower(f.Brand))
	}
	if f.Category != "" {
		q = q.Where("LOWER(category) = ?", strings.ToLower(f.Category))
	}
	if f.Type != "" {
		q = q.Where("part_type = ?", f.Type)
	}
	if f.MinPrice != nil {
		q = q.Where("price_cents >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price_cents <= ?", *f.MaxPrice)
	}
	if f.InStock {
		q = q.Where("stock_qty > 0")
	}
	if f.Rental != nil {
		q = q.Where("is_rental = ?", *f.Rental)
	}
	// Charger ratings are stored as strings in specs, e.g. {"voltage": "36V"}
	if f.Voltage != "" {
		q = q.Where(datatypes.JSONQuery("specs").Equals(strings.ToUpper(f.Voltage), "voltage"))
	}
	if f.Amperage != "" {
		q = q.Where(datatypes.JSONQuery("specs").Equals(strings.ToUpper(f.Amperage), "amperage"))
	}
	return q
}

func ListParts(c *fiber.Ctx) error {
	f, ok := c.Locals("validatedFilter").(*catalogValidator.PartFilter)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	page := utils.ParsePagination(c, 20, 100)
	order, known := partSorts[f.Sort]
	if !known {
		order = partSorts["newest"]
	}

	q := filterParts(database.Database.Db, f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		logger.Log.Errorw("count parts", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load parts!", nil)
	}

	var parts []catalog.Part
	if err := q.Order(order).Offset(page.Offset).Limit(page.Limit).Find(&parts).Error; err != nil {
		logger.Log.Errorw("list parts", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load parts!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Parts fetched successfully.", fiber.Map{
		"parts":      parts,
		"pagination": utils.PageMeta(page, total),
	})
}

func GetPart(c *fiber.Ctx) error {
	sku := strings.ToUpper(strings.TrimSpace(c.Params("sku")))

	var part catalog.Part
	err := database.Database.Db.Where("sku = ? AND is_active = ? AND is_deleted = ?", sku, true, false).First(&part).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Part not found!", nil)
	}
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load part!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Part fetched successfully.", part)
}

type facet struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

func facetCounts(db *gorm.DB, column string) ([]facet, error) {
	var rows []facet
	err := db.Model(&catalog.Part{}).
		Select(column+" AS value, COUNT(*) AS count").
		Where("is_active = ? AND is_deleted = ? AND "+column+" <> ''", true, false).
		Group(column).Order(column + " asc").
		Scan(&rows).Error
	return rows, err
}

func Facets(c *fiber.Ctx) error {
	db := database.Database.Db

	brands, err := facetCounts(db, "brand")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load facets!", nil)
	}
	categories, err := facetCounts(db, "category")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load facets!", nil)
	}
	types, err := facetCounts(db, "part_type")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load facets!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Facets fetched successfully.", fiber.Map{
		"brands":     brands,
		"categories": categories,
		"types":      types,
	})
}

func applyPart(part *catalog.Part, req *catalogValidator.PartRequest) {
	part.SKU = req.SKU
	part.Name = req.Name
	part.Brand = strings.TrimSpace(req.Brand)
	part.Category = strings.TrimSpace(req.Category)
	part.PartType = req.PartType
	if part.PartType == "" {
		part.PartType = catalog.TypePart
	}
	part.Description = req.Description
	part.PriceCents = req.PriceCents
	part.StockQty = req.StockQty
	part.Specs = datatypes.JSONMap(req.Specs)
	part.ImageURL = req.ImageURL
	part.IsRental = req.IsRental
	part.RentalDailyCents = req.RentalDailyCents
	part.IsActive = req.IsActive == nil || *req.IsActive
}

func AdminCreatePart(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedPart").(*catalogValidator.PartRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db
	if err := db.Where("sku = ?", req.SKU).First(&catalog.Part{}).Error; err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "SKU already exists!", nil)
	}

	var part catalog.Part
	applyPart(&part, req)
	// is_active defaults to true on insert, so a false value is written after.
	wantActive := part.IsActive
	if err := db.Create(&part).Error; err != nil {
		logger.Log.Errorw("create part", "sku", req.SKU, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create part!", nil)
	}
	if !wantActive {
		if err := db.Model(&part).Update("is_active", false).Error; err != nil {
			logger.Log.Errorw("deactivate part", "sku", req.SKU, "error", err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create part!", nil)
		}
		part.IsActive = false
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Part created successfully.", part)
}

func findPartByID(c *fiber.Ctx) (*catalog.Part, error) {
	var part catalog.Part
	err := database.Database.Db.Where("id = ? AND is_deleted = ?", c.Params("id"), false).First(&part).Error
	if err != nil {
		return nil, err
	}
	return &part, nil
}

func AdminUpdatePart(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedPart").(*catalogValidator.PartRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	part, err := findPartByID(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Part not found!", nil)
	}

	db := database.Database.Db
	if req.SKU != part.SKU {
		if err := db.Where("sku = ? AND id <> ?", req.SKU, part.ID).First(&catalog.Part{}).Error; err == nil {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "SKU already exists!", nil)
		}
	}

	applyPart(part, req)
	if err := db.Save(part).Error; err != nil {
		logger.Log.Errorw("update part", "id", part.ID, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update part!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Part updated successfully.", part)
}

func AdminDeletePart(c *fiber.Ctx) error {
	part, err := findPartByID(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Part not found!", nil)
	}

	if err := database.Database.Db.Model(part).Updates(map[string]interface{}{"is_deleted": true, "is_active": false}).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete part!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Part deleted successfully.", nil)
}

func AdminUploadPartImage(c *fiber.Ctx) error {
	part, err := findPartByID(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Part not found!", nil)
	}

	file, err := c.FormFile("image")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Image file is required!", nil)
	}

	url, err := utils.StoreImage(file, config.AppConfig.UploadDir, utils.UploadPartImages)
	if err != nil {
		return middleware.ValidationErrorResponse(c, map[string]string{"image": err.Error()})
	}

	if err := database.Database.Db.Model(part).Update("image_url", url).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save image!", nil)
	}
	part.ImageURL = url

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Image uploaded successfully.", part)
}
