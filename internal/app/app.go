// Package app assembles the HTTP server from configuration and runs the
// command line entrypoints.
package app

import (
	"errors"
	"log"
	"strings"
	"time"

	"bizdesk/internal/config"
	"bizdesk/internal/handlers"
	"bizdesk/internal/limiter"
	"bizdesk/internal/metrics"
	"bizdesk/internal/middleware"
	"bizdesk/internal/repositories"
	"bizdesk/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Deps are the external resources the app is built on. Only DB is
// required.
type Deps struct {
	DB *gorm.DB
	// Provider defaults to Google configured from Config.
	Provider services.IdentityProvider
	// Events publishes domain events; nil disables them.
	Events services.EventPublisher
	// Limiter rate limits /api/auth; nil disables it.
	Limiter *limiter.Manager
	// Registry receives the app's metrics; nil creates a fresh one.
	Registry *prometheus.Registry
}

// NewApp wires repositories, services and handlers into a Fiber app.
func NewApp(cfg *config.Config, deps Deps) *fiber.App {
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	collector := metrics.NewCollector(registry)

	provider := deps.Provider
	if provider == nil {
		provider = services.NewGoogleProvider(services.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL(),
		})
	}

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(deps.DB)
	customerRepo := repositories.NewGORMCustomerRepository(deps.DB)
	productRepo := repositories.NewGORMProductRepository(deps.DB)
	associationRepo := repositories.NewGORMAssociationRepository(deps.DB)

	// --- Services ---
	authService := services.NewAuthService(userRepo, cfg.JWTSecret,
		services.WithTokenTTL(cfg.TokenTTL),
		services.WithAuthMetrics(collector))
	loginFlow := services.NewLoginFlow(provider, authService, deps.Events, collector)
	customerService := services.NewCustomerService(customerRepo)
	productService := services.NewProductService(productRepo)
	associationService := services.NewAssociationService(associationRepo, deps.Events, collector)

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(loginFlow, authService, handlers.AuthConfig{
		FrontendURL:   cfg.FrontendURL,
		SessionSecret: cfg.SessionSecret,
		SecureCookies: strings.HasPrefix(cfg.BackendURL, "https://"),
	})
	customerHandler := handlers.NewCustomerHandler(customerService)
	associationHandler := handlers.NewAssociationHandler(associationService)
	productHandler := handlers.NewProductHandler(productService)

	app := fiber.New(fiber.Config{
		AppName:      "bizdesk",
		ErrorHandler: errorHandler,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
	}))

	// --- Health and metrics ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"events": deps.Events != nil,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(registry)))

	// --- API Routes ---
	api := app.Group("/api")
	authRequired := middleware.AuthRequired(authService)

	var authLimits []fiber.Handler
	if deps.Limiter != nil {
		authLimits = append(authLimits, middleware.RateLimit(deps.Limiter, middleware.RateLimitConfig{
			Limit:  cfg.AuthRateLimit,
			Window: cfg.AuthRateWindow,
			Prefix: "limiter:auth",
		}))
	}
	authHandler.RegisterRoutes(api, authLimits...)

	var customers fiber.Router
	if cfg.CustomersRequireAuth {
		customers = api.Group("/customers", authRequired)
	} else {
		customers = api.Group("/customers")
	}
	customerHandler.RegisterRoutes(customers)
	associationHandler.RegisterRoutes(customers)

	productHandler.RegisterRoutes(api, authRequired)

	return app
}

// errorHandler answers errors that escaped the handlers, such as unknown
// routes, in the API's JSON shape.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}
	if code == fiber.StatusInternalServerError {
		log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
