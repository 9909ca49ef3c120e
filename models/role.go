package models

import (
	"gorm.io/gorm"
)

// System roles are seeded at startup and protected from deletion.
const (
	RoleAdmin        = "admin"
	RoleSalesManager = "sales_manager"
	RoleSalesRep     = "sales_rep"
	RoleUser         = "user"
)

var systemRoles = map[string]bool{
	RoleAdmin:        true,
	RoleSalesManager: true,
	RoleSalesRep:     true,
}

// IsSystemRole reports whether name is a reserved role that cannot be deleted
func IsSystemRole(name string) bool {
	return systemRoles[name]
}

// Role is a named collection of permissions. Users reference roles by name.
type Role struct {
	gorm.Model

	Name        string `gorm:"uniqueIndex;not null" json:"name"` // internal snake_case name
	DisplayName string `gorm:"not null" json:"display_name"`
	Description string `gorm:"type:text" json:"description"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
}

// Permission is a single named capability, e.g. "deals.view_all".
// Permissions are seeded at startup and soft-disabled, never hard-deleted.
type Permission struct {
	gorm.Model

	Name        string `gorm:"uniqueIndex;not null" json:"name"` // "<resource>.<action>"
	DisplayName string `gorm:"not null" json:"display_name"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"not null;index" json:"category"` // for UI grouping only
	IsActive    bool   `gorm:"default:true" json:"is_active"`
}
