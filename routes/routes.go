package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	controller "salescrm/controllers"
	"salescrm/middleware"
	"salescrm/service"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)
	authController := controller.NewAuthController(db, authLogger)

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Post("/refresh", authController.Refresh)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", authController.Logout)
	protectedAuth.Get("/me", authController.Me)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	rbac := service.NewRBACService(db, log.New(os.Stdout, "RBAC: ", log.LstdFlags))

	roleController := controller.NewRoleController(db, log.New(os.Stdout, "ROLE: ", log.LstdFlags))
	prospectController := controller.NewProspectController(db, log.New(os.Stdout, "PROSPECT: ", log.LstdFlags))
	campaignController := controller.NewCampaignController(db, log.New(os.Stdout, "CAMPAIGN: ", log.LstdFlags))
	dashboardController := controller.NewDashboardController(db, log.New(os.Stdout, "DASHBOARD: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.Get("/overview", dashboardController.GetOverview)
	dashboard.Get("/top-prospects", dashboardController.GetTopProspects)
	dashboard.Get("/recent-conversions", dashboardController.GetRecentConversions)

	// Role & permission administration
	roles := api.Group("/roles", middleware.RequirePermission(rbac, "settings.permissions"))
	roles.Get("/", roleController.ListRoles)
	roles.Get("/statistics", roleController.GetRoleStatistics)
	roles.Post("/", roleController.CreateRole)
	roles.Get("/:id", roleController.GetRole)
	roles.Put("/:id", roleController.UpdateRole)
	roles.Delete("/:id", roleController.DeleteRole)
	roles.Put("/:id/permissions", roleController.SetRolePermissions)
	api.Put("/roles/by-name/:name/permissions",
		middleware.RequirePermission(rbac, "settings.permissions"),
		roleController.UpdatePermissionsByName)
	api.Post("/roles/by-name/:name/restore-defaults",
		middleware.RequirePermission(rbac, "settings.permissions"),
		roleController.RestoreDefaults)
	api.Get("/permissions",
		middleware.RequirePermission(rbac, "settings.permissions"),
		roleController.ListPermissions)

	// Prospect routes
	prospect := api.Group("/prospects")
	prospect.Post("/",
		middleware.RequirePermission(rbac, "prospects.create"),
		prospectController.CreateProspect)
	prospect.Get("/",
		middleware.RequireAnyPermission(rbac, "prospects.view_all", "prospects.view_own"),
		prospectController.ListProspects)
	prospect.Get("/statistics",
		middleware.RequirePermission(rbac, "prospects.view_all"),
		prospectController.GetStatistics)
	prospect.Post("/import",
		middleware.RequirePermission(rbac, "prospects.import"),
		middleware.BulkImportRateLimiter(),
		prospectController.BulkImport)
	prospect.Get("/:id", prospectController.GetProspect)
	prospect.Put("/:id", prospectController.UpdateProspect)
	prospect.Delete("/:id", prospectController.DeleteProspect)
	prospect.Post("/:id/reject", prospectController.RejectProspect)
	prospect.Post("/:id/convert",
		middleware.RequirePermission(rbac, "prospects.convert"),
		prospectController.ConvertProspect)
	prospect.Post("/:id/score", prospectController.AdjustScore)
	prospect.Get("/:id/score-history", prospectController.GetScoreHistory)

	// Campaign routes
	campaign := api.Group("/campaigns")
	campaign.Post("/",
		middleware.RequirePermission(rbac, "campaigns.create"),
		campaignController.CreateCampaign)
	campaign.Get("/",
		middleware.RequireAnyPermission(rbac, "campaigns.view_all", "campaigns.view_own"),
		campaignController.ListCampaigns)
	campaign.Get("/:id", campaignController.GetCampaign)
	campaign.Put("/:id", campaignController.UpdateCampaign)
	campaign.Delete("/:id", campaignController.DeleteCampaign)
	campaign.Post("/:id/status", campaignController.ChangeStatus)
	campaign.Post("/:id/execute",
		middleware.RequirePermission(rbac, "campaigns.execute"),
		campaignController.ExecuteCampaign)
	campaign.Post("/:id/resend-failed",
		middleware.RequirePermission(rbac, "campaigns.execute"),
		campaignController.ResendFailed)
	campaign.Post("/:id/audience", campaignController.AddAudience)
	campaign.Get("/:id/audience", campaignController.GetAudience)
	campaign.Delete("/:id/audience", campaignController.RemoveAudienceMember)
	campaign.Post("/:id/link-deal", campaignController.LinkDeal)
	campaign.Get("/:id/stats", campaignController.GetCampaignStats)
	campaign.Get("/:id/metrics", campaignController.GetCampaignMetricHistory)
	campaign.Get("/:id/engagement", campaignController.GetEngagementBreakdown)

	// WebSocket route for campaign progress
	app.Get("/api/v1/campaigns/progress", websocket.New(func(c *websocket.Conn) {
		controller.HandleCampaignProgressWS(c)
	}))

	// Public tracking and webhook endpoints, rate limited by IP
	track := app.Group("/api/track", middleware.TrackingRateLimiter())
	track.Get("/open/:messageID/:token", campaignController.HandleOpenTracking)
	track.Get("/click/:messageID/:token", campaignController.HandleClickTracking)
	track.Get("/unsubscribe/:messageID/:token", campaignController.HandleUnsubscribe)
	app.Post("/api/webhooks/email", middleware.TrackingRateLimiter(), campaignController.HandleCampaignWebhook)

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup auth routes
	SetupAuthRoutes(app, db)

	// Setup API routes
	SetupAPIRoutes(app, db)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
