package http

import (
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/stksupply/ticket-bot/internal/api/http/handlers"
	"github.com/stksupply/ticket-bot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	// WebRoot is served as static files at /.
	WebRoot string
	// Hidden lists file names under WebRoot that are never served.
	Hidden []string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(auth.RoleAdmin, auth.RoleViewer))
	admin.Get("/tickets", cfg.Admin.ListTickets)
	admin.Get("/tickets/:channel", cfg.Admin.GetTicket)
	admin.Get("/news", cfg.Admin.GetNews)
	admin.Put("/news", auth.RequireRole(auth.RoleAdmin), cfg.Admin.UpdateNews)
	admin.Get("/metrics", cfg.Admin.Metrics)

	if cfg.WebRoot != "" {
		app.Use(hideFiles(cfg.Hidden))
		app.Static("/", cfg.WebRoot, fiber.Static{Index: "index.html"})
	}
}

// hideFiles refuses dotfiles and the listed names so that the state file and
// .env never leave the working directory.
func hideFiles(names []string) fiber.Handler {
	hidden := make(map[string]struct{}, len(names))
	for _, n := range names {
		hidden[path.Base(n)] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		for _, segment := range strings.Split(c.Path(), "/") {
			if strings.HasPrefix(segment, ".") {
				return fiber.ErrNotFound
			}
			if _, ok := hidden[segment]; ok {
				return fiber.ErrNotFound
			}
		}
		return c.Next()
	}
}
