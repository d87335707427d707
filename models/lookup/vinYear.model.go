package lookup

import "gorm.io/gorm"

// VinYearCode maps a VIN 10th-position character to the first model year of its cycle.
type VinYearCode struct {
	gorm.Model
	Code string `json:"code" gorm:"uniqueIndex;size:1;not null"`
	Year int    `json:"year" gorm:"not null"`
}

// LookupLog records decoder usage for catalog tuning.
type LookupLog struct {
	gorm.Model
	Brand      string `json:"brand" gorm:"index"`
	Input      string `json:"input"`
	ModelName  string `json:"model" gorm:"column:model"`
	Year       int    `json:"year"`
	Matched    bool   `json:"matched"`
	RemoteAddr string `json:"remote_addr"`
}
