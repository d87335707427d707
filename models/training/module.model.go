package training

import "gorm.io/gorm"

// Module represents a section/module within a course
type Module struct {
	gorm.Model
	CourseID    uint   `json:"course_id" gorm:"index;not null"`
	Slug        string `json:"slug" gorm:"index;size:120;not null"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index" gorm:"default:0"` // Module order in course
	PassPercent int    `json:"pass_percent" gorm:"default:80"`
	IsDeleted   bool   `json:"-" gorm:"default:false"`
}

// Lesson content types
const (
	LessonText  = "TEXT"
	LessonVideo = "VIDEO"
	LessonImage = "IMAGE"
)

// Lesson is a single piece of reading or media inside a module.
type Lesson struct {
	gorm.Model
	ModuleID    uint   `json:"module_id" gorm:"index;not null"`
	Title       string `json:"title"`
	ContentType string `json:"content_type" gorm:"default:'TEXT'"` // TEXT, VIDEO, IMAGE
	Body        string `json:"body" gorm:"type:text"`
	MediaURL    string `json:"media_url"`
	OrderIndex  int    `json:"order_index" gorm:"default:0"`
	IsPublished bool   `json:"is_published" gorm:"default:true"`
	IsDeleted   bool   `json:"-" gorm:"default:false"`
}

// LessonCompletion tracks a learner finishing a lesson
type LessonCompletion struct {
	gorm.Model
	UserID       uint `json:"user_id" gorm:"index;not null"`
	EnrollmentID uint `json:"enrollment_id" gorm:"index;not null"`
	LessonID     uint `json:"lesson_id" gorm:"index;not null"`
	IsDeleted    bool `json:"-" gorm:"default:false"`
}
