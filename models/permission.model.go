package models

import (
	"gorm.io/gorm"
)

// Permission strings checked by middleware.CheckPermissionMiddleware.
const (
	PermLogin          = "login"
	PermViewProfile    = "view-profile"
	PermEnroll         = "enroll"
	PermCheckout       = "checkout"
	PermCreateOrg      = "create-org"
	PermManageCatalog  = "manage-catalog"
	PermManageTraining = "manage-training"
	PermManageOrders   = "manage-orders"
	PermImportQuiz     = "import-quiz"
	PermViewDashboard  = "view-dashboard"
)

type Permission struct {
	gorm.Model
	UserID     uint   `gorm:"not null;index"`    // Foreign key
	User       User   `gorm:"foreignKey:UserID"` // Association with User
	Role       string
	Permission string `gorm:"type:varchar(255)"` // e.g., "manage-catalog"
	IsDeleted  bool   `gorm:"default:false"`
}

// DefaultPermissions returns the permission strings seeded for a role.
func DefaultPermissions(role string) []string {
	perms := []string{
		PermLogin,
		PermViewProfile,
		PermEnroll,
		PermCheckout,
		PermCreateOrg,
	}
	if role == RoleAdmin {
		perms = append(perms,
			PermManageCatalog,
			PermManageTraining,
			PermManageOrders,
			PermImportQuiz,
			PermViewDashboard,
		)
	}
	return perms
}
