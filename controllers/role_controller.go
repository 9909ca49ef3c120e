package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"salescrm/service"
	"salescrm/utils"
)

type RoleController struct {
	DB     *gorm.DB
	Logger *log.Logger
	RBAC   *service.RBACService
}

func NewRoleController(db *gorm.DB, logger *log.Logger) *RoleController {
	return &RoleController{
		DB:     db,
		Logger: logger,
		RBAC:   service.NewRBACService(db, logger),
	}
}

// ListRoles returns all active roles with their permissions
func (rc *RoleController) ListRoles(c *fiber.Ctx) error {
	roles, err := rc.RBAC.GetActiveRoles()
	if err != nil {
		rc.Logger.Printf("Failed to list roles: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list roles", nil)
	}
	return c.JSON(utils.SuccessResponse(roles))
}

// GetRole returns one role with its permissions
func (rc *RoleController) GetRole(c *fiber.Ctx) error {
	role, err := rc.RBAC.GetRole(utils.ParseUint(c.Params("id")))
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Role not found", nil)
	}
	return c.JSON(utils.SuccessResponse(role))
}

type createRoleInput struct {
	Name          string `json:"name" validate:"required,max=100"`
	DisplayName   string `json:"display_name" validate:"required,max=100"`
	Description   string `json:"description"`
	PermissionIDs []uint `json:"permission_ids"`
}

// CreateRole creates a custom role
func (rc *RoleController) CreateRole(c *fiber.Ctx) error {
	var input createRoleInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	role, err := rc.RBAC.CreateRole(input.Name, input.DisplayName, input.Description, input.PermissionIDs)
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to create role", err)
	}

	utils.LogEvent("role_created", map[string]interface{}{
		"role_id":   role.ID,
		"role_name": role.Name,
	})
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(role))
}

type updateRoleInput struct {
	DisplayName *string `json:"display_name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// UpdateRole edits a role's display fields and active flag
func (rc *RoleController) UpdateRole(c *fiber.Ctx) error {
	var input updateRoleInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	role, err := rc.RBAC.UpdateRole(utils.ParseUint(c.Params("id")), input.DisplayName, input.Description, input.IsActive)
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to update role", err)
	}
	return c.JSON(utils.SuccessResponse(role))
}

// DeleteRole deactivates a custom role. System roles are protected.
func (rc *RoleController) DeleteRole(c *fiber.Ctx) error {
	if err := rc.RBAC.DeleteRole(utils.ParseUint(c.Params("id"))); err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to delete role", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"message": "Role deleted"}))
}

// SetRolePermissions replaces a role's permission set by permission id
func (rc *RoleController) SetRolePermissions(c *fiber.Ctx) error {
	var input struct {
		PermissionIDs []uint `json:"permission_ids"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	role, err := rc.RBAC.SetRolePermissions(utils.ParseUint(c.Params("id")), input.PermissionIDs)
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to update permissions", err)
	}

	utils.LogEvent("role_permissions_updated", map[string]interface{}{
		"role_id":          role.ID,
		"permission_count": len(role.Permissions),
	})
	return c.JSON(utils.SuccessResponse(role))
}

// UpdatePermissionsByName rebuilds a role's permission set from a name->bool
// map. The map is the complete new state: names absent or false are revoked.
func (rc *RoleController) UpdatePermissionsByName(c *fiber.Ctx) error {
	var input struct {
		Permissions map[string]bool `json:"permissions"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	role, err := rc.RBAC.UpdatePermissionsByName(c.Params("name"), input.Permissions)
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to update permissions", err)
	}

	utils.LogEvent("role_permissions_updated", map[string]interface{}{
		"role_id":          role.ID,
		"permission_count": len(role.Permissions),
	})
	return c.JSON(utils.SuccessResponse(role))
}

// RestoreDefaults resets a seeded role's permissions to the shipped defaults
func (rc *RoleController) RestoreDefaults(c *fiber.Ctx) error {
	role, err := rc.RBAC.RestoreDefaults(c.Params("name"))
	if err != nil {
		return utils.ErrorResponse(c, statusFromError(err), "Failed to restore defaults", err)
	}
	if role == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Role has no default permission set", nil)
	}
	return c.JSON(utils.SuccessResponse(role))
}

// ListPermissions returns the active permission catalog grouped by category
func (rc *RoleController) ListPermissions(c *fiber.Ctx) error {
	grouped, err := rc.RBAC.GetPermissionsGroupedByCategory()
	if err != nil {
		rc.Logger.Printf("Failed to list permissions: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list permissions", nil)
	}
	return c.JSON(utils.SuccessResponse(grouped))
}

// GetRoleStatistics returns role counts for the settings UI
func (rc *RoleController) GetRoleStatistics(c *fiber.Ctx) error {
	stats, err := rc.RBAC.GetRoleStatistics()
	if err != nil {
		rc.Logger.Printf("Failed to compute role statistics: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute statistics", nil)
	}
	return c.JSON(utils.SuccessResponse(stats))
}
