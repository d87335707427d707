package training

import "gorm.io/gorm"

// Course status values
const (
	CourseDraft    = "DRAFT"
	CourseActive   = "ACTIVE"
	CourseInactive = "INACTIVE"
)

// Course represents a sellable training product, e.g. the OSHA forklift operator course.
type Course struct {
	gorm.Model
	Slug         string `json:"slug" gorm:"uniqueIndex;size:120;not null"`
	Title        string `json:"title"`
	Description  string `json:"description" gorm:"type:text"`
	Author       string `json:"author"`
	Duration     int64  `json:"duration" gorm:"default:0"`     // duration in minutes
	PriceCents   int64  `json:"price_cents" gorm:"default:0"`
	Status       string `json:"status" gorm:"default:'DRAFT'"` // DRAFT, ACTIVE, INACTIVE
	ThumbnailURL string `json:"thumbnail_url"`
	IsPublished  bool   `json:"is_published" gorm:"default:false"`
	IsDeleted    bool   `json:"-" gorm:"default:false"`
}
