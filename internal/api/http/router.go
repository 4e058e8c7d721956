package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/geethasandesh/articket/internal/api/http/handlers"
	"github.com/geethasandesh/articket/internal/auth"
	"github.com/geethasandesh/articket/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Tickets     *handlers.TicketsHandler
	Assignments *handlers.AssignmentsHandler
	Stream      *handlers.StreamHandler
	Auth        fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	tickets := app.Group("/tickets", cfg.Auth)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/stream", cfg.Stream.Stream)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/responses", cfg.Tickets.AddResponse)
	tickets.Post("/:id/assignee", cfg.Assignments.Assign)
	tickets.Delete("/:id/assignee", cfg.Assignments.Unassign)

	admin := app.Group("/admin/tickets", cfg.Auth, auth.RequireRole(domain.RoleAdmin))
	admin.Patch("/:id", cfg.Tickets.AdminUpdate)
	admin.Delete("/:id", cfg.Tickets.DeleteTicket)
}
