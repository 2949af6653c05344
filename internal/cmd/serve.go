package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/product-links/internal/api/http"
	"github.com/spec-kit/product-links/internal/api/http/handlers"
	"github.com/spec-kit/product-links/internal/auth"
	"github.com/spec-kit/product-links/internal/crm"
	"github.com/spec-kit/product-links/internal/events"
	"github.com/spec-kit/product-links/internal/links"
	"github.com/spec-kit/product-links/internal/observability"
	"github.com/spec-kit/product-links/internal/persistence"
	"github.com/spec-kit/product-links/internal/repository"
	"github.com/spec-kit/product-links/internal/service"
	"github.com/spec-kit/product-links/internal/signing"
	"github.com/spec-kit/product-links/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger := rt.cfg, rt.logger

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	pool := pg.PoolHandle()
	if pool == nil {
		return errors.New("POSTGRES_DSN is required to serve")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger, "up"); err != nil {
			return err
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	issuer, err := newViewLinkIssuer(rt)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)
	dispatcher := events.NewInMemoryDispatcher()

	staffRepo := repository.NewStaffRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	linkRepo := repository.NewLinkRepository(pool)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{StaffRepo: staffRepo})
	productService := service.NewProductService(*cfg, service.ProductDependencies{
		ProductRepo: productRepo,
		Catalog:     crm.NewClient(cfg.CRM.WebhookURL, cfg.CRM.Timeout()),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	linkService := service.NewLinkService(*cfg, service.LinkDependencies{
		LinkRepo:    linkRepo,
		ProductRepo: productRepo,
		Issuer:      issuer,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	worker.StartAuditWorker(service.NewAuditService(dispatcher, linkRepo, logger))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.App.BodyLimitBytes,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:            handlers.NewAuthHandler(authService),
		Products:        handlers.NewProductsHandler(productService, int64(cfg.App.BodyLimitBytes)),
		Links:           handlers.NewLinksHandler(linkService),
		Public:          handlers.NewPublicHandler(linkService),
		AuthMiddleware:  auth.NewAuthMiddleware(authService.TokenManager(), staffRepo),
		PublicRateLimit: httptransport.PublicRateLimit(redis, cfg.RateLimit.PublicLimit, cfg.RateLimit.Window(), logger),
		Gatherer:        registry,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
	}
	return app.ShutdownWithTimeout(shutdownTimeout)
}

func newViewLinkIssuer(rt *cliRuntime) (*links.Issuer, error) {
	codec, err := signing.NewCodec(signing.Config{
		Secret:        []byte(rt.cfg.Links.SigningSecret),
		Salt:          rt.cfg.Links.SigningSalt,
		DefaultMaxAge: rt.cfg.Links.DefaultLifetime(),
	})
	if err != nil {
		return nil, err
	}
	return links.NewViewLinkIssuer(codec, rt.cfg.Links.DefaultLifetime()), nil
}
