package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tickhelp/helpdesk-service/internal/api/http/handlers"
	"github.com/tickhelp/helpdesk-service/internal/auth"
	"github.com/tickhelp/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	authProtected.Get("/profile", cfg.Users.Profile)
	authProtected.Delete("/profile", cfg.Users.DeleteProfile)
	authProtected.Get("/users", cfg.Users.ListUsers)
	authProtected.Put("/change-password", cfg.Users.ChangePassword)
	authProtected.Put("/users/:id/role", auth.RequireRole(domain.RoleAdmin), cfg.Users.SetRole)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Get("/:id/history", cfg.Tickets.GetHistory)
}
