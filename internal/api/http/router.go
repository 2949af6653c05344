package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/product-links/internal/api/http/handlers"
	"github.com/spec-kit/product-links/internal/auth"
	"github.com/spec-kit/product-links/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Auth            *handlers.AuthHandler
	Products        *handlers.ProductsHandler
	Links           *handlers.LinksHandler
	Public          *handlers.PublicHandler
	AuthMiddleware  *auth.AuthMiddleware
	PublicRateLimit fiber.Handler
	Gatherer        prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Auth.Login)

	public := []fiber.Handler{}
	if cfg.PublicRateLimit != nil {
		public = append(public, cfg.PublicRateLimit)
	}
	app.Get("/product/:token", append(public, cfg.Public.ViewProduct)...)

	staff := app.Group("/app", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	editors := auth.RequireStaffRole(domain.StaffRoleAdmin, domain.StaffRoleManager)

	staff.Get("/me", cfg.Auth.Me)
	staff.Get("/products", cfg.Products.List)
	staff.Post("/products", editors, cfg.Products.Create)
	staff.Post("/products/sync", editors, cfg.Products.Sync)
	staff.Get("/api/product-search", cfg.Products.Search)

	staff.Post("/links", cfg.Links.Create)
	staff.Get("/links", cfg.Links.List)
	staff.Get("/links/:id", cfg.Links.Get)
	staff.Get("/links/:id/qr.png", cfg.Links.QRCode)
}
