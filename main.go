package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"agromart/internal/config"
	"agromart/internal/database"
	"agromart/internal/logger"
	"agromart/internal/middleware"
	"agromart/internal/models"
	"agromart/internal/repositories"
	"agromart/internal/server"
	"agromart/internal/services"
	"agromart/pkg/rabbitmq"
)

type stores struct {
	products repositories.ProductRepository
	orders   repositories.OrderRepository
	reviews  repositories.ReviewRepository
	users    repositories.UserRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	var db *gorm.DB
	var st stores
	if cfg.Database.Driver == "memory" {
		products := repositories.NewMockProductRepository()
		st = stores{
			products: products,
			orders:   repositories.NewMockOrderRepository(),
			reviews:  repositories.NewMockReviewRepository(products),
			users:    repositories.NewMockUserRepository(),
		}
	} else {
		db, err = database.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxOpenConns)
		if err != nil {
			zlog.Fatal("failed to open database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		}
		st = stores{
			products: repositories.NewGORMProductRepository(db),
			orders:   repositories.NewGORMOrderRepository(db),
			reviews:  repositories.NewGORMReviewRepository(db),
			users:    repositories.NewGORMUserRepository(db),
		}
	}
	zlog.Info("storage ready", zap.String("driver", cfg.Database.Driver))

	// --- Messaging ---
	var publisher services.EventPublisher
	var brokerConnected func() bool
	if cfg.RabbitMQ.Enabled {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
			Queue:    cfg.RabbitMQ.Queue,
		}, zlog.Named("rabbitmq"))
		if err != nil {
			zlog.Fatal("failed to initialize RabbitMQ client", zap.Error(err))
		}
		defer mqClient.Close()

		publisher = mqClient
		brokerConnected = mqClient.Connected

		if err := mqClient.ConsumeOrderEvents(ctx, rabbitmq.OrderEventHandler(zlog.Named("events"))); err != nil {
			zlog.Error("failed to start RabbitMQ consumer", zap.Error(err))
		}
	}

	// --- Services ---
	authService := services.NewAuthService(st.users, cfg.JWT.Secret, cfg.JWT.TTL, zlog)
	productService := services.NewProductService(st.products, zlog)
	orderService := services.NewOrderService(st.orders, st.products, publisher, zlog)
	reviewService := services.NewReviewService(st.reviews, st.products, st.orders, zlog)

	if cfg.Admin.Username != "" {
		if err := authService.SeedAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			zlog.Fatal("failed to seed admin account", zap.Error(err))
		}
	}
	if cfg.Database.Driver == "memory" {
		seedDemoCatalog(ctx, zlog, authService, productService)
	}

	// --- HTTP ---
	app := server.New(server.Dependencies{
		Log:             zlog,
		DB:              db,
		Auth:            authService,
		Products:        productService,
		Orders:          orderService,
		Reviews:         reviewService,
		BrokerConnected: brokerConnected,
		AuthRateLimiter: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	})

	go func() {
		zlog.Info("starting server", zap.String("port", cfg.App.Port), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Port); err != nil {
			zlog.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
	zlog.Info("server gracefully stopped")
}

// seedDemoCatalog gives the in-memory store a farmer and a few listings.
func seedDemoCatalog(ctx context.Context, zlog *zap.Logger, auth *services.AuthService, products *services.ProductService) {
	farmer := &models.User{
		Username: "demo-farmer",
		Email:    "farmer@agromart.local",
		Password: "demo-password",
		Role:     models.RoleFarmer,
	}
	if err := auth.RegisterUser(ctx, farmer); err != nil {
		zlog.Warn("failed to seed demo farmer", zap.Error(err))
		return
	}
	actor := services.Actor{UserID: farmer.ID, Role: farmer.Role}

	listings := []models.Product{
		{Name: "Heirloom Tomatoes", Category: models.CategoryVegetables, Price: decimal.RequireFromString("4.50"), Unit: models.UnitKg, Quantity: 40, IsOrganic: true, Latitude: 52.52, Longitude: 13.405},
		{Name: "Free-range Eggs", Category: models.CategoryDairy, Price: decimal.RequireFromString("3.20"), Unit: models.UnitDozen, Quantity: 25, Latitude: 52.40, Longitude: 13.06},
		{Name: "Wildflower Honey", Category: models.CategoryOther, Price: decimal.RequireFromString("9.00"), Unit: models.UnitPiece, Quantity: 12, IsOrganic: true, Latitude: 52.39, Longitude: 13.13},
	}
	for i := range listings {
		if err := products.CreateProduct(ctx, actor, &listings[i]); err != nil {
			zlog.Warn("failed to seed product", zap.String("name", listings[i].Name), zap.Error(err))
			continue
		}
		zlog.Debug("seeded product", zap.String("name", listings[i].Name), zap.String("id", listings[i].ID))
	}
}
