package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salescrm/models"
)

func TestGetPermissionsUnknownRoleDeniesByDefault(t *testing.T) {
	db := newTestDB(t)
	seedRBAC(t, db)
	rbac := NewRBACService(db, newTestLogger())

	perms := rbac.GetPermissions("intern")
	assert.Empty(t, perms)

	user := createUser(t, db, "intern@example.com", "intern")
	assert.False(t, rbac.HasPermission(user, "prospects.view_all"))
	assert.False(t, rbac.HasAnyPermission(user, []string{"prospects.view_all", "prospects.view_own"}))
}

func TestGetPermissionsInactiveRoleDeniesByDefault(t *testing.T) {
	db := newTestDB(t)
	seedRBAC(t, db)
	rbac := NewRBACService(db, newTestLogger())

	role, err := rbac.CreateRole("contractor", "Contractor", "External contractor", nil)
	require.NoError(t, err)
	require.NoError(t, db.Model(role).Update("is_active", false).Error)

	assert.Empty(t, rbac.GetPermissions("contractor"))
}

func TestCheckResourceAccess(t *testing.T) {
	db := newTestDB(t)
	seedRBAC(t, db)
	rbac := NewRBACService(db, newTestLogger())

	manager := createUser(t, db, "manager@example.com", models.RoleSalesManager)
	rep := createUser(t, db, "rep@example.com", models.RoleSalesRep)
	basic := createUser(t, db, "basic@example.com", models.RoleUser)

	// view_all passes regardless of ownership
	assert.True(t, rbac.CheckResourceAccess(manager, "prospects.view_all", "prospects.view_own", rep.ID))

	// view_own requires ownership
	assert.True(t, rbac.CheckResourceAccess(rep, "prospects.view_all", "prospects.view_own", rep.ID))
	assert.False(t, rbac.CheckResourceAccess(rep, "prospects.view_all", "prospects.view_own", manager.ID))

	// neither grant denies even for the user's own resource
	assert.False(t, rbac.CheckResourceAccess(basic, "prospects.view_all", "prospects.view_own", basic.ID))
}

func TestCreateRoleDuplicateName(t *testing.T) {
	db := newTestDB(t)
	seedRBAC(t, db)
	rbac := NewRBACService(db, newTestLogger())

	_, err := rbac.CreateRole("support", "Support", "", nil)
	require.NoError(t, err)

	_, err = rbac.CreateRole("support", "Support Again", "", nil)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	// display-name collisions with seeded roles normalize to the same internal name
	_, err = rbac.CreateRole("Sales Rep", "Another Rep Role", "", nil)
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestSystemRolesProtected(t *testing.T) {
	db := newTestDB(t)
	seedRBAC(t, db)
	rbac := NewRBACService(db, newTestLogger())

	admin, err := rbac.GetRoleByName(models.RoleAdmin)
	require.NoError(t, err)

	err = rbac.DeleteRole(admin.ID)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	inactive := false
	_, err = rbac.UpdateRole(admin.ID, nil, nil, &inactive)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	// custom roles can be deactivated and deleted
	custom, err := rbac.CreateRole("support", "Support", "", nil)
	require.NoError(t, err)
	require.NoError(t, rbac.DeleteRole(custom.ID))

	var reloaded models.Role
	require.NoError(t, db.First(&reloaded, custom.ID).Error)
	assert.False(t, reloaded.IsActive)
}

func TestUpdatePermissionsByNameIsFullReplace(t *testing.T) {
	db := newTestDB(t)
	seedRBAC(t, db)
	rbac := NewRBACService(db, newTestLogger())

	// the map's true entries become the entire permission set: everything
	// else the role previously held is revoked
	role, err := rbac.UpdatePermissionsByName(models.RoleUser, map[string]bool{
		"prospects.view_own": true,
		"prospects.create":   false,
	})
	require.NoError(t, err)

	names := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"prospects.view_own"}, names)

	user := createUser(t, db, "viewer@example.com", models.RoleUser)
	assert.True(t, rbac.HasPermission(user, "prospects.view_own"))
	assert.False(t, rbac.HasPermission(user, "dashboard.view_stats"))
}

func TestUpdatePermissionsByNameIgnoresUnknownNames(t *testing.T) {
	db := newTestDB(t)
	seedRBAC(t, db)
	rbac := NewRBACService(db, newTestLogger())

	role, err := rbac.UpdatePermissionsByName(models.RoleUser, map[string]bool{
		"prospects.view_own":    true,
		"prospects.time_travel": true,
	})
	require.NoError(t, err)
	assert.Len(t, role.Permissions, 1)
}

func TestRestoreDefaults(t *testing.T) {
	db := newTestDB(t)
	seedRBAC(t, db)
	rbac := NewRBACService(db, newTestLogger())

	_, err := rbac.UpdatePermissionsByName(models.RoleSalesRep, map[string]bool{
		"prospects.view_own": true,
	})
	require.NoError(t, err)

	role, err := rbac.RestoreDefaults(models.RoleSalesRep)
	require.NoError(t, err)
	assert.Len(t, role.Permissions, len(models.DefaultRolePermissions()[models.RoleSalesRep]))

	// roles without a seeded default set are a silent no-op
	_, err = rbac.CreateRole("support", "Support", "", nil)
	require.NoError(t, err)
	restored, err := rbac.RestoreDefaults("support")
	require.NoError(t, err)
	assert.Nil(t, restored)
}

func TestAdminHasEveryPermission(t *testing.T) {
	db := newTestDB(t)
	seedRBAC(t, db)
	rbac := NewRBACService(db, newTestLogger())

	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)
	for _, seed := range models.AllPermissions() {
		assert.True(t, rbac.HasPermission(admin, seed.Name), "admin missing %s", seed.Name)
	}
}
