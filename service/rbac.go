package service

import (
	"fmt"
	"log"
	"strings"

	"salescrm/models"

	"gorm.io/gorm"
)

// roleNameMap converts display names to internal names. Unknown names fall
// back to lowercased snake_case.
var roleNameMap = map[string]string{
	"admin":            models.RoleAdmin,
	"sales_manager":    models.RoleSalesManager,
	"sales_rep":        models.RoleSalesRep,
	"user":             models.RoleUser,
	"Admin":            models.RoleAdmin,
	"Sales Manager":    models.RoleSalesManager,
	"Sales Rep":        models.RoleSalesRep,
	"User":             models.RoleUser,
}

// NormalizeRoleName converts a display name to the internal role name
func NormalizeRoleName(name string) string {
	if internal, ok := roleNameMap[name]; ok {
		return internal
	}
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// RBACService decides whether an action is permitted using only the user's
// role's flat permission set. All read paths degrade to deny rather than
// erroring; only mutations return errors.
type RBACService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewRBACService(db *gorm.DB, logger *log.Logger) *RBACService {
	return &RBACService{DB: db, Logger: logger}
}

// GetRoleByName returns an active role with its permissions preloaded.
// Accepts display or internal names.
func (rs *RBACService) GetRoleByName(name string) (*models.Role, error) {
	var role models.Role
	err := rs.DB.Preload("Permissions").
		Where("name = ? AND is_active = ?", NormalizeRoleName(name), true).
		First(&role).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("role %q: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return &role, nil
}

// GetRole returns a role by id with permissions preloaded
func (rs *RBACService) GetRole(roleID uint) (*models.Role, error) {
	var role models.Role
	if err := rs.DB.Preload("Permissions").First(&role, roleID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("role %d: %w", roleID, ErrNotFound)
		}
		return nil, err
	}
	return &role, nil
}

// GetActiveRoles returns all active roles with permissions
func (rs *RBACService) GetActiveRoles() ([]models.Role, error) {
	var roles []models.Role
	err := rs.DB.Preload("Permissions").Where("is_active = ?", true).Find(&roles).Error
	return roles, err
}

// GetPermissions returns the names of all active permissions attached to the
// named role. A missing or inactive role yields an empty set, never an error;
// absence of permissions is the deny-by-default state.
func (rs *RBACService) GetPermissions(roleName string) []string {
	role, err := rs.GetRoleByName(roleName)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		if p.IsActive {
			names = append(names, p.Name)
		}
	}
	return names
}

// HasPermission reports whether the user's role grants the named permission
func (rs *RBACService) HasPermission(user *models.User, permission string) bool {
	for _, name := range rs.GetPermissions(user.Role) {
		if name == permission {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether the user's role grants at least one of the
// named permissions
func (rs *RBACService) HasAnyPermission(user *models.User, permissions []string) bool {
	granted := rs.permissionSet(user)
	for _, name := range permissions {
		if granted[name] {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the user's role grants every named
// permission
func (rs *RBACService) HasAllPermissions(user *models.User, permissions []string) bool {
	granted := rs.permissionSet(user)
	for _, name := range permissions {
		if !granted[name] {
			return false
		}
	}
	return true
}

func (rs *RBACService) permissionSet(user *models.User) map[string]bool {
	set := make(map[string]bool)
	for _, name := range rs.GetPermissions(user.Role) {
		set[name] = true
	}
	return set
}

// CheckResourceAccess gates access to an owned resource. A view_all grant
// passes unconditionally; otherwise the caller needs the view_own grant AND
// ownership. A user with neither grant is denied even for their own data.
func (rs *RBACService) CheckResourceAccess(user *models.User, viewAllPerm, viewOwnPerm string, resourceOwnerID uint) bool {
	if rs.HasPermission(user, viewAllPerm) {
		return true
	}
	if rs.HasPermission(user, viewOwnPerm) && user.ID == resourceOwnerID {
		return true
	}
	return false
}

// CreateRole creates a new role with an optional initial permission set
func (rs *RBACService) CreateRole(name, displayName, description string, permissionIDs []uint) (*models.Role, error) {
	internal := NormalizeRoleName(name)

	var existing models.Role
	if err := rs.DB.Where("name = ?", internal).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("role %q already exists: %w", internal, ErrConstraintViolation)
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	role := models.Role{
		Name:        internal,
		DisplayName: displayName,
		Description: description,
		IsActive:    true,
	}
	if err := rs.DB.Create(&role).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("role %q already exists: %w", internal, ErrConstraintViolation)
		}
		return nil, err
	}

	if len(permissionIDs) > 0 {
		return rs.SetRolePermissions(role.ID, permissionIDs)
	}
	return &role, nil
}

// UpdateRole updates a role's display fields. System roles cannot be
// deactivated.
func (rs *RBACService) UpdateRole(roleID uint, displayName, description *string, isActive *bool) (*models.Role, error) {
	role, err := rs.GetRole(roleID)
	if err != nil {
		return nil, err
	}

	if displayName != nil {
		role.DisplayName = *displayName
	}
	if description != nil {
		role.Description = *description
	}
	if isActive != nil {
		if !*isActive && models.IsSystemRole(role.Name) {
			return nil, fmt.Errorf("system role %q cannot be deactivated: %w", role.Name, ErrInvalidOperation)
		}
		role.IsActive = *isActive
	}

	if err := rs.DB.Save(role).Error; err != nil {
		return nil, err
	}
	return role, nil
}

// SetRolePermissions atomically replaces the role's permission set.
// Permission ids that are unknown or inactive are silently dropped. The
// clear and insert run in one transaction so a concurrent permission check
// never observes a half-empty role.
func (rs *RBACService) SetRolePermissions(roleID uint, permissionIDs []uint) (*models.Role, error) {
	role, err := rs.GetRole(roleID)
	if err != nil {
		return nil, err
	}

	err = rs.DB.Transaction(func(tx *gorm.DB) error {
		var perms []models.Permission
		if len(permissionIDs) > 0 {
			if err := tx.Where("id IN ? AND is_active = ?", permissionIDs, true).Find(&perms).Error; err != nil {
				return err
			}
		}
		return tx.Model(role).Association("Permissions").Replace(perms)
	})
	if err != nil {
		return nil, err
	}

	return rs.GetRole(roleID)
}

// UpdatePermissionsByName rebuilds the role's permission set from the map's
// true entries. This is a full replace: any permission not mentioned with a
// true value is revoked, including ones absent from the map entirely.
func (rs *RBACService) UpdatePermissionsByName(roleName string, changes map[string]bool) (*models.Role, error) {
	role, err := rs.GetRoleByName(roleName)
	if err != nil {
		return nil, err
	}

	enabled := make([]string, 0, len(changes))
	for name, on := range changes {
		if on {
			enabled = append(enabled, name)
		}
	}

	err = rs.DB.Transaction(func(tx *gorm.DB) error {
		var perms []models.Permission
		if len(enabled) > 0 {
			if err := tx.Where("name IN ? AND is_active = ?", enabled, true).Find(&perms).Error; err != nil {
				return err
			}
		}
		return tx.Model(role).Association("Permissions").Replace(perms)
	})
	if err != nil {
		return nil, err
	}

	return rs.GetRole(role.ID)
}

// DeleteRole soft-deletes a role. System roles are protected.
func (rs *RBACService) DeleteRole(roleID uint) error {
	role, err := rs.GetRole(roleID)
	if err != nil {
		return err
	}

	if models.IsSystemRole(role.Name) {
		return fmt.Errorf("system role %q cannot be deleted: %w", role.Name, ErrInvalidOperation)
	}

	return rs.DB.Model(role).Update("is_active", false).Error
}

// RestoreDefaults resets the named role's permissions to the seeded defaults.
// A role name unknown to the seed table is a silent no-op.
func (rs *RBACService) RestoreDefaults(roleName string) (*models.Role, error) {
	internal := NormalizeRoleName(roleName)

	defaults, ok := models.DefaultRolePermissions()[internal]
	if !ok {
		return nil, nil
	}

	role, err := rs.GetRoleByName(internal)
	if err != nil {
		return nil, err
	}

	var permIDs []uint
	if err := rs.DB.Model(&models.Permission{}).
		Where("name IN ? AND is_active = ?", defaults, true).
		Pluck("id", &permIDs).Error; err != nil {
		return nil, err
	}

	return rs.SetRolePermissions(role.ID, permIDs)
}

// GetPermissionsGroupedByCategory returns active catalog permissions grouped
// for the settings UI
func (rs *RBACService) GetPermissionsGroupedByCategory() (map[string][]models.Permission, error) {
	var perms []models.Permission
	err := rs.DB.Where("is_active = ?", true).
		Order("category, name").Find(&perms).Error
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]models.Permission)
	for _, p := range perms {
		grouped[p.Category] = append(grouped[p.Category], p)
	}
	return grouped, nil
}

// RoleStatistics summarizes role counts
type RoleStatistics struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

// GetRoleStatistics returns total/active/inactive role counts
func (rs *RBACService) GetRoleStatistics() (*RoleStatistics, error) {
	var stats RoleStatistics
	if err := rs.DB.Model(&models.Role{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := rs.DB.Model(&models.Role{}).Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	stats.Inactive = stats.Total - stats.Active
	return &stats, nil
}
