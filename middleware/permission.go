package middleware

import (
	"github.com/gofiber/fiber/v2"

	"salescrm/models"
	"salescrm/service"
)

// CurrentUser pulls the authenticated user set by Protected()
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

// RequirePermission allows the request only when the user's role grants the
// named permission. Unknown roles carry no permissions, so the check fails
// closed.
func RequirePermission(rbac *service.RBACService, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization required",
			})
		}

		if !rbac.HasPermission(user, permission) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":               "Insufficient permissions",
				"required_permission": permission,
			})
		}

		return c.Next()
	}
}

// RequireAnyPermission allows the request when the role grants at least one
// of the named permissions.
func RequireAnyPermission(rbac *service.RBACService, permissions ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization required",
			})
		}

		if !rbac.HasAnyPermission(user, permissions) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":                "Insufficient permissions",
				"required_permissions": permissions,
			})
		}

		return c.Next()
	}
}

// RequireAdmin restricts a route to the admin role
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization required",
			})
		}
		if user.Role != models.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}
		return c.Next()
	}
}
