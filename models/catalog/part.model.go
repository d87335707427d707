package catalog

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Part types
const (
	TypePart       = "PART"
	TypeCharger    = "CHARGER"
	TypeAttachment = "ATTACHMENT"
)

// Part is a catalog item. Chargers carry voltage/amperage in Specs.
type Part struct {
	gorm.Model
	SKU              string            `json:"sku" gorm:"uniqueIndex;size:64;not null"`
	Name             string            `json:"name" gorm:"not null"`
	Brand            string            `json:"brand" gorm:"index"`
	Category         string            `json:"category" gorm:"index"`
	PartType         string            `json:"part_type" gorm:"index;default:'PART'"`
	Description      string            `json:"description" gorm:"type:text"`
	PriceCents       int64             `json:"price_cents" gorm:"default:0"`
	StockQty         int               `json:"stock_qty" gorm:"default:0"`
	Specs            datatypes.JSONMap `json:"specs"`
	ImageURL         string            `json:"image_url"`
	IsRental         bool              `json:"is_rental" gorm:"default:false"`
	RentalDailyCents int64             `json:"rental_daily_cents" gorm:"default:0"`
	IsActive         bool              `json:"is_active" gorm:"default:true"`
	IsDeleted        bool              `json:"-" gorm:"default:false"`
}
