// Package partimport loads catalog parts from a CSV price list.
package partimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"liftworks/logger"
	"liftworks/models/catalog"
	"strconv"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SpecPrefix marks a column whose value is stored in Part.Specs under the
// remainder of the header, e.g. "spec.voltage".
const SpecPrefix = "spec."

// ErrNoRows is returned for a file with a header and nothing else.
var ErrNoRows = errors.New("CSV file is empty or has only headers")

// Result counts what an import changed.
type Result struct {
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Import reads parts from r and upserts them by SKU. Rows without a SKU or
// name are skipped.
func Import(db *gorm.DB, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrNoRows
	}

	header := records[0]
	headerIndex := make(map[string]int, len(header))
	for i, h := range header {
		headerIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}
	logger.Log.Infow("importing parts", "columns", header, "rows", len(records)-1)

	res := &Result{}
	for i, row := range records[1:] {
		if i > 0 && i%1000 == 0 {
			logger.Log.Infof("Processing row %d...", i)
		}

		part := parseRow(row, header, headerIndex)
		if part.SKU == "" || part.Name == "" {
			res.Skipped++
			continue
		}

		var existing catalog.Part
		err := db.Where("sku = ?", part.SKU).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// is_active defaults to true on insert, so a false value is written after.
			wantActive := part.IsActive
			if err := db.Create(&part).Error; err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("row %d (%s): %v", i+2, part.SKU, err))
				continue
			}
			if !wantActive {
				if err := db.Model(&part).Update("is_active", false).Error; err != nil {
					res.Errors = append(res.Errors, fmt.Sprintf("row %d (%s): %v", i+2, part.SKU, err))
					continue
				}
				part.IsActive = false
			}
			res.Inserted++
		case err != nil:
			return res, err
		default:
			part.ID = existing.ID
			part.CreatedAt = existing.CreatedAt
			if err := db.Save(&part).Error; err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("row %d (%s): %v", i+2, part.SKU, err))
				continue
			}
			res.Updated++
		}
	}
	return res, nil
}

func parseRow(row, header []string, headerIndex map[string]int) catalog.Part {
	part := catalog.Part{
		SKU:              strings.ToUpper(getField(row, headerIndex, "sku")),
		Name:             getField(row, headerIndex, "name"),
		Brand:            getField(row, headerIndex, "brand"),
		Category:         getField(row, headerIndex, "category"),
		PartType:         strings.ToUpper(getField(row, headerIndex, "part_type")),
		Description:      getField(row, headerIndex, "description"),
		PriceCents:       parseInt(getField(row, headerIndex, "price_cents")),
		StockQty:         int(parseInt(getField(row, headerIndex, "stock_qty"))),
		ImageURL:         getField(row, headerIndex, "image_url"),
		IsRental:         parseBool(getField(row, headerIndex, "is_rental"), false),
		RentalDailyCents: parseInt(getField(row, headerIndex, "rental_daily_cents")),
		IsActive:         parseBool(getField(row, headerIndex, "is_active"), true),
	}
	switch part.PartType {
	case catalog.TypePart, catalog.TypeCharger, catalog.TypeAttachment:
	default:
		part.PartType = catalog.TypePart
	}

	specs := datatypes.JSONMap{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if !strings.HasPrefix(key, SpecPrefix) || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			specs[strings.TrimPrefix(key, SpecPrefix)] = v
		}
	}
	if len(specs) > 0 {
		part.Specs = specs
	}
	return part
}

// getField safely gets a field from the row by header name
func getField(row []string, headerIndex map[string]int, field string) string {
	if idx, ok := headerIndex[field]; ok && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return val
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return val
}
