package models

import "gorm.io/gorm"

// PermissionSeed describes one catalog entry
type PermissionSeed struct {
	Name        string
	DisplayName string
	Description string
	Category    string
}

// AllPermissions returns the full permission catalog, organized by category
func AllPermissions() []PermissionSeed {
	return []PermissionSeed{
		// Dashboard & Analytics
		{"dashboard.view_stats", "View Dashboard Statistics", "View dashboard overview and statistics", "Dashboard"},
		{"dashboard.filter", "Filter Dashboard Data", "Apply filters to dashboard data", "Dashboard"},
		{"dashboard.pipeline_drag_drop", "Drag & Drop Pipeline", "Drag and drop deals in sales pipeline", "Dashboard"},
		{"dashboard.pipeline_view", "View Pipeline", "View sales pipeline Kanban board", "Dashboard"},

		{"analytics.view_personal", "View Personal Analytics", "View own analytics and reports", "Analytics"},
		{"analytics.view_team", "View Team Analytics", "View team analytics and reports", "Analytics"},
		{"analytics.view_company", "View Company Analytics", "View company-wide analytics", "Analytics"},
		{"analytics.export", "Export Analytics Reports", "Export analytics reports and data", "Analytics"},

		// Deals
		{"deals.view_all", "View All Deals", "View all deals in the system", "Deals"},
		{"deals.view_own", "View Own Deals", "View only own deals", "Deals"},
		{"deals.create", "Create Deals", "Create new deals", "Deals"},
		{"deals.edit_all", "Edit All Deals", "Edit any deal in the system", "Deals"},
		{"deals.edit_own", "Edit Own Deals", "Edit only own deals", "Deals"},
		{"deals.delete_all", "Delete All Deals", "Delete any deal", "Deals"},
		{"deals.delete_own", "Delete Own Deals", "Delete only own deals", "Deals"},
		{"deals.move_stages", "Move Pipeline Stages", "Move deals between pipeline stages", "Deals"},
		{"deals.export", "Export Deals", "Export deals to CSV/JSON", "Deals"},

		// Contacts
		{"contacts.view_all", "View All Contacts", "View all contacts in the system", "Contacts"},
		{"contacts.view_own", "View Own Contacts", "View only own contacts", "Contacts"},
		{"contacts.create", "Create Contacts", "Create new contacts", "Contacts"},
		{"contacts.edit_all", "Edit All Contacts", "Edit any contact", "Contacts"},
		{"contacts.edit_own", "Edit Own Contacts", "Edit only own contacts", "Contacts"},
		{"contacts.delete_all", "Delete All Contacts", "Delete any contact", "Contacts"},
		{"contacts.delete_own", "Delete Own Contacts", "Delete only own contacts", "Contacts"},
		{"contacts.import", "Import Contacts", "Import contacts from CSV/Excel", "Contacts"},
		{"contacts.export", "Export Contacts", "Export contacts to CSV/Excel", "Contacts"},

		// Companies
		{"companies.view_all", "View All Companies", "View all companies in the system", "Companies"},
		{"companies.view_own", "View Own Companies", "View only own companies", "Companies"},
		{"companies.create", "Create Companies", "Create new companies", "Companies"},
		{"companies.edit_all", "Edit All Companies", "Edit any company in the system", "Companies"},
		{"companies.edit_own", "Edit Own Companies", "Edit only own companies", "Companies"},
		{"companies.delete_all", "Delete All Companies", "Delete any company", "Companies"},
		{"companies.delete_own", "Delete Own Companies", "Delete only own companies", "Companies"},
		{"companies.import_export", "Import/Export Companies", "Import and export companies to CSV/JSON", "Companies"},

		// Activities
		{"activities.view_all", "View All Activities", "View all activities in the system", "Activities"},
		{"activities.view_own", "View Own Activities", "View only activities for own contacts", "Activities"},
		{"activities.create_all", "Create Activity for Any Contact", "Create activities for any contact", "Activities"},
		{"activities.create_own", "Create Activity for Own Contacts", "Create activities for own contacts only", "Activities"},
		{"activities.edit_all", "Edit All Activities", "Edit any activity", "Activities"},
		{"activities.edit_own", "Edit Own Activities", "Edit activities for own contacts only", "Activities"},
		{"activities.delete_all", "Delete All Activities", "Delete any activity", "Activities"},
		{"activities.delete_own", "Delete Own Activities", "Delete activities for own contacts only", "Activities"},
		{"activities.export", "Export Activities", "Export activity data", "Activities"},

		// Campaigns
		{"campaigns.view_all", "View All Campaigns", "View all campaigns in the system", "Campaigns"},
		{"campaigns.view_own", "View Own Campaigns", "View only own campaigns", "Campaigns"},
		{"campaigns.create", "Create Campaigns", "Create new marketing campaigns", "Campaigns"},
		{"campaigns.edit_all", "Edit All Campaigns", "Edit any campaign in the system", "Campaigns"},
		{"campaigns.edit_own", "Edit Own Campaigns", "Edit only own campaigns", "Campaigns"},
		{"campaigns.delete_all", "Delete All Campaigns", "Delete any campaign", "Campaigns"},
		{"campaigns.delete_own", "Delete Own Campaigns", "Delete only own campaigns", "Campaigns"},
		{"campaigns.execute", "Execute Campaigns", "Send/execute campaigns", "Campaigns"},
		{"campaigns.export", "Export Campaign Data", "Export campaign metrics and reports", "Campaigns"},

		// Prospects
		{"prospects.view_all", "View All Prospects", "View all prospects in the system", "Prospects"},
		{"prospects.view_own", "View Own Prospects", "View only assigned prospects", "Prospects"},
		{"prospects.create", "Create Prospects", "Create new prospects", "Prospects"},
		{"prospects.edit_all", "Edit All Prospects", "Edit any prospect", "Prospects"},
		{"prospects.edit_own", "Edit Own Prospects", "Edit only assigned prospects", "Prospects"},
		{"prospects.delete_all", "Delete All Prospects", "Delete any prospect", "Prospects"},
		{"prospects.delete_own", "Delete Own Prospects", "Delete only assigned prospects", "Prospects"},
		{"prospects.convert", "Convert Prospects to Contacts", "Convert qualified prospects to contacts", "Prospects"},
		{"prospects.import", "Import Prospects", "Bulk import prospects from CSV/Excel", "Prospects"},
		{"prospects.export", "Export Prospects", "Export prospect data", "Prospects"},

		// Settings
		{"settings.user_management", "User Management", "Manage users, roles and status", "Settings"},
		{"settings.permissions", "Manage Permissions", "Configure role-based permissions", "Settings"},
		{"settings.integrations", "Manage Integrations", "Configure API connections and services", "Settings"},
		{"settings.custom_fields", "Manage Custom Fields", "Create and configure custom fields", "Settings"},
		{"settings.email_templates", "Manage Email Templates", "Create and edit email templates", "Settings"},
		{"settings.system_config", "System Configuration", "Access general system settings", "Settings"},
		{"settings.view_profile", "View Own Profile", "View own profile settings", "Settings"},
		{"settings.edit_profile", "Edit Own Profile", "Edit own profile settings", "Settings"},
	}
}

// DefaultRolePermissions maps each seeded role to its default permission
// names. Consumed at seed time and by RestoreDefaults.
func DefaultRolePermissions() map[string][]string {
	all := AllPermissions()
	allNames := make([]string, 0, len(all))
	for _, p := range all {
		allNames = append(allNames, p.Name)
	}

	return map[string][]string{
		// Admin gets every permission
		RoleAdmin: allNames,
		RoleSalesManager: {
			"dashboard.view_stats", "dashboard.filter", "dashboard.pipeline_drag_drop", "dashboard.pipeline_view",
			"analytics.view_personal", "analytics.view_team", "analytics.export",
			"deals.view_all", "deals.view_own", "deals.create", "deals.edit_all", "deals.edit_own", "deals.delete_all", "deals.delete_own", "deals.move_stages", "deals.export",
			"contacts.view_all", "contacts.view_own", "contacts.create", "contacts.edit_all", "contacts.edit_own", "contacts.delete_all", "contacts.delete_own", "contacts.import", "contacts.export",
			"companies.view_all", "companies.view_own", "companies.create", "companies.edit_all", "companies.edit_own", "companies.delete_all", "companies.delete_own", "companies.import_export",
			"activities.view_all", "activities.view_own", "activities.create_all", "activities.create_own", "activities.edit_all", "activities.edit_own", "activities.delete_all", "activities.delete_own", "activities.export",
			"campaigns.view_all", "campaigns.view_own", "campaigns.create", "campaigns.edit_all", "campaigns.edit_own", "campaigns.delete_all", "campaigns.delete_own", "campaigns.execute", "campaigns.export",
			"prospects.view_all", "prospects.view_own", "prospects.create", "prospects.edit_all", "prospects.edit_own", "prospects.delete_all", "prospects.delete_own", "prospects.convert", "prospects.import", "prospects.export",
			"settings.user_management", "settings.integrations", "settings.custom_fields", "settings.email_templates",
			"settings.view_profile", "settings.edit_profile",
		},
		RoleSalesRep: {
			"dashboard.view_stats", "dashboard.filter", "dashboard.pipeline_view",
			"analytics.view_personal",
			"deals.view_own", "deals.create", "deals.edit_own", "deals.move_stages",
			"contacts.view_own", "contacts.create", "contacts.edit_own",
			"companies.view_own", "companies.create", "companies.edit_own",
			"activities.view_own", "activities.create_own", "activities.edit_own", "activities.delete_own",
			"campaigns.view_own", "campaigns.create", "campaigns.edit_own", "campaigns.execute",
			"prospects.view_own", "prospects.create", "prospects.edit_own", "prospects.convert",
			"settings.email_templates", "settings.view_profile", "settings.edit_profile",
		},
		RoleUser: {
			"dashboard.view_stats", "dashboard.pipeline_view",
			"deals.view_own",
			"contacts.view_own",
			"companies.view_own",
			"activities.view_own",
			"settings.view_profile", "settings.edit_profile",
		},
	}
}

var defaultRoles = []Role{
	{Name: RoleAdmin, DisplayName: "Admin", Description: "Full system access", IsActive: true},
	{Name: RoleSalesManager, DisplayName: "Sales Manager", Description: "Manage team and sales operations", IsActive: true},
	{Name: RoleSalesRep, DisplayName: "Sales Rep", Description: "Sales representative with limited access", IsActive: true},
	{Name: RoleUser, DisplayName: "User", Description: "Basic user with view-only access", IsActive: true},
}

// SeedRBAC populates the permission catalog and default roles. Existing
// permissions are refreshed in place so the catalog can evolve across
// releases; existing role permission sets are reset to the defaults.
func SeedRBAC(db *gorm.DB) error {
	for _, seed := range AllPermissions() {
		perm := Permission{
			Name:        seed.Name,
			DisplayName: seed.DisplayName,
			Description: seed.Description,
			Category:    seed.Category,
			IsActive:    true,
		}

		var existing Permission
		err := db.Where("name = ?", seed.Name).First(&existing).Error
		if err == nil {
			existing.DisplayName = perm.DisplayName
			existing.Description = perm.Description
			existing.Category = perm.Category
			existing.IsActive = true
			if err := db.Save(&existing).Error; err != nil {
				return err
			}
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.Create(&perm).Error; err != nil {
			return err
		}
	}

	rolePerms := DefaultRolePermissions()
	for _, seed := range defaultRoles {
		var role Role
		if err := db.Where("name = ?", seed.Name).FirstOrCreate(&role, seed).Error; err != nil {
			return err
		}

		var perms []Permission
		if err := db.Where("name IN ? AND is_active = ?", rolePerms[seed.Name], true).Find(&perms).Error; err != nil {
			return err
		}
		if err := db.Model(&role).Association("Permissions").Replace(perms); err != nil {
			return err
		}
	}

	return nil
}
