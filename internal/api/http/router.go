package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/incidex/incidex/internal/api/http/handlers"
	"github.com/incidex/incidex/internal/auth"
	"github.com/incidex/incidex/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Catalogs       *handlers.CatalogsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	protected := app.Group("/app", cfg.AuthMiddleware.Handle)
	protected.Get("/dashboard", cfg.Tickets.Dashboard)
	protected.Get("/catalogs", cfg.Catalogs.List)
	protected.Get("/analysts", cfg.Tickets.Analysts)

	protected.Post("/tickets", cfg.Tickets.Create)
	protected.Get("/tickets", cfg.Tickets.List)
	protected.Post("/tickets/suggest", cfg.Tickets.Suggest)
	protected.Get("/tickets/:id", cfg.Tickets.Detail)
	protected.Post("/tickets/:id/status", cfg.Tickets.ChangeStatus)
	protected.Post("/tickets/:id/assignee", cfg.Tickets.Reassign)
	protected.Post("/tickets/:id/comments", cfg.Tickets.AddComment)
	protected.Post("/tickets/:id/attachments", cfg.Tickets.AddAttachment)

	protected.Get("/notifications", cfg.Notifications.List)
	protected.Get("/notifications/unread", cfg.Notifications.UnreadCount)
	protected.Post("/notifications/read", cfg.Notifications.MarkAllRead)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Post("/users", cfg.Auth.CreateUser)
	admin.Delete("/users/:id", cfg.Auth.DeactivateUser)
	admin.Post("/departments", cfg.Catalogs.CreateDepartment)
	admin.Delete("/departments/:id", cfg.Catalogs.DeleteDepartment)
	admin.Post("/categories", cfg.Catalogs.CreateCategory)
	admin.Delete("/categories/:id", cfg.Catalogs.DeleteCategory)
	admin.Get("/audit", cfg.Catalogs.AuditLog)
}
