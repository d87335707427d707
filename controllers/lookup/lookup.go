package lookupController

import (
	"errors"
	"liftworks/database"
	"liftworks/logger"
	"liftworks/metrics"
	"liftworks/middleware"
	"liftworks/models/lookup"
	"liftworks/services/serial"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
)

var (
	catalogOnce sync.Once
	brandTables *serial.Catalog
	catalogErr  error
)

func brandCatalog() (*serial.Catalog, error) {
	catalogOnce.Do(func() {
		brandTables, catalogErr = serial.DefaultCatalog()
	})
	return brandTables, catalogErr
}

func decoder() (*serial.Decoder, error) {
	cat, err := brandCatalog()
	if err != nil {
		return nil, err
	}
	years, err := serial.LoadYearTable(database.Database.Db)
	if err != nil {
		return nil, err
	}
	if len(years) == 0 {
		years = serial.DefaultYearCodes()
	}
	return serial.NewDecoder(cat, years), nil
}

type brandSummary struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Equipment string `json:"equipment"`
	VIN       bool   `json:"vin"`
}

func ListBrands(c *fiber.Ctx) error {
	cat, err := brandCatalog()
	if err != nil {
		logger.Log.Errorw("load brand tables", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Lookup tables unavailable!", nil)
	}

	brands := make([]brandSummary, 0, len(cat.Brands()))
	for _, b := range cat.Brands() {
		brands = append(brands, brandSummary{Slug: b.Slug, Name: b.Name, Equipment: b.Equipment, VIN: b.VIN})
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Brands fetched successfully.", brands)
}

func Decode(c *fiber.Ctx) error {
	brand := strings.ToLower(strings.TrimSpace(c.Params("brand")))
	input := c.Query("serial")

	d, err := decoder()
	if err != nil {
		logger.Log.Errorw("build decoder", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Lookup tables unavailable!", nil)
	}

	res, err := d.Decode(brand, input)
	switch {
	case errors.Is(err, serial.ErrUnknownBrand):
		metrics.RecordLookup("unknown", "invalid")
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Unknown brand!", nil)
	case errors.Is(err, serial.ErrSerialTooShort):
		metrics.RecordLookup(brand, "invalid")
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Serial number must be at least 3 characters!", nil)
	case err != nil:
		logger.Log.Errorw("decode serial", "brand", brand, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to decode serial!", nil)
	}

	outcome := "unmatched"
	entry := lookup.LookupLog{Brand: res.Brand, Input: res.Normalized, RemoteAddr: c.IP()}
	if res.Model != nil {
		outcome = "matched"
		entry.ModelName = *res.Model
		entry.Matched = true
	}
	if res.Year != nil {
		entry.Year = *res.Year
	}
	metrics.RecordLookup(res.Brand, outcome)
	if err := database.Database.Db.Create(&entry).Error; err != nil {
		logger.Log.Warnw("save lookup log", "brand", res.Brand, "error", err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Serial decoded.", res)
}
