// Package server assembles the Fiber application: middleware, routes and
// the health endpoint.
package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"agromart/internal/handlers"
	"agromart/internal/logger"
	"agromart/internal/middleware"
	"agromart/internal/services"
)

// Dependencies are the services the HTTP layer is built on. DB is only used
// by the health check and may be nil when running on in-memory stores.
type Dependencies struct {
	Log      *zap.Logger
	DB       *gorm.DB
	Auth     *services.AuthService
	Products *services.ProductService
	Orders   *services.OrderService
	Reviews  *services.ReviewService

	// BrokerConnected reports the message broker state for /health; nil means disabled.
	BrokerConnected func() bool

	// AuthRateLimiter throttles /auth endpoints when set.
	AuthRateLimiter *middleware.RateLimiter
}

// New builds the application with every route registered under /api/v1.
func New(deps Dependencies) *fiber.App {
	log := logger.OrNop(deps.Log)

	app := fiber.New(fiber.Config{
		AppName:      "agromart",
		ErrorHandler: errorHandler(log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(log))

	app.Get("/health", healthHandler(deps))

	apiV1 := app.Group("/api/v1")
	auth := middleware.AuthRequired(deps.Auth, log)

	var authMiddleware []fiber.Handler
	if deps.AuthRateLimiter != nil {
		authMiddleware = append(authMiddleware, deps.AuthRateLimiter.Handler())
	}
	handlers.NewAuthHandler(deps.Auth, log).RegisterRoutes(apiV1, authMiddleware...)
	handlers.NewProductHandler(deps.Products, log).RegisterRoutes(apiV1, auth)
	handlers.NewReviewHandler(deps.Reviews, log).RegisterRoutes(apiV1, auth)
	handlers.NewOrderHandler(deps.Orders, log).RegisterRoutes(apiV1, auth)

	return app
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"message": message})
	}
}

func healthHandler(deps Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := fiber.StatusOK
		body := fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "memory",
			"rabbitmq": "disabled",
		}

		if deps.DB != nil {
			body["database"] = "connected"
			sqlDB, err := deps.DB.DB()
			if err == nil {
				err = sqlDB.PingContext(c.UserContext())
			}
			if err != nil {
				body["database"] = "unreachable"
				body["status"] = "degraded"
				status = fiber.StatusServiceUnavailable
			}
		}
		if deps.BrokerConnected != nil {
			body["rabbitmq"] = "connected"
			if !deps.BrokerConnected() {
				// events are best effort; orders still work
				body["rabbitmq"] = "disconnected"
			}
		}

		return c.Status(status).JSON(body)
	}
}
