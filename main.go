package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bazaar/internal/config"
	"bazaar/internal/handlers"
	"bazaar/internal/middleware"
	"bazaar/internal/repositories"
	"bazaar/internal/services"
	"bazaar/pkg/rabbitmq"
	"bazaar/pkg/razorpay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := buildLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// --- Document store ---
	store, err := repositories.NewStore(ctx, &cfg.Mongo)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer store.Close(ctx)

	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Fatal("Failed to ensure indexes", zap.Error(err))
	}
	db := store.Database()

	// --- Cache (optional) ---
	var cache repositories.Cache
	if cfg.Redis.Enabled {
		redisCache := repositories.NewRedisCache(&cfg.Redis)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisCache.Close()
		cache = redisCache
	} else {
		logger.Info("Redis disabled, catalog caching off")
	}

	// --- Message queue (optional) ---
	var mqClient *rabbitmq.Client
	if cfg.AMQP.Enabled {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.AMQP.URL})
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqClient.Close()
	} else {
		logger.Info("AMQP disabled, webhook settlement runs in-process")
	}

	// --- Repositories ---
	userRepo := repositories.NewMongoUserRepository(db)
	productRepo := repositories.NewMongoProductRepository(db)
	cartRepo := repositories.NewMongoCartRepository(db)
	orderRepo := repositories.NewMongoOrderRepository(db)
	paymentRepo := repositories.NewMongoPaymentRepository(db)

	// --- Services ---
	authService := services.NewAuthService(userRepo, cfg.JWT.Secret)
	productService := services.NewProductService(productRepo, cache, logger)
	cartService := services.NewCartService(cartRepo, productRepo, logger)

	var orderPublisher services.OrderEventPublisher
	var paymentPublisher services.PaymentEventPublisher
	if mqClient != nil {
		orderPublisher = mqClient
		paymentPublisher = mqClient
	}
	orderService := services.NewOrderService(orderRepo, productRepo, cartRepo, cartService, store, orderPublisher, logger)

	gateway := razorpay.NewClient(razorpay.Config{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
	})
	paymentService := services.NewPaymentService(paymentRepo, orderRepo, gateway, paymentPublisher, store, cfg.Razorpay, logger)

	// --- Settlement worker ---
	// Webhook bodies are acknowledged on the HTTP path and settled here, so
	// the gateway's retry policy never blocks on downstream processing.
	if mqClient != nil {
		go func() {
			logger.Info("Starting payment settlement consumer")
			err := mqClient.ConsumePaymentEvents(func(body []byte) error {
				return paymentService.HandleWebhook(context.Background(), body)
			})
			if err != nil {
				logger.Error("Payment settlement consumer stopped", zap.Error(err))
			}
		}()
	}

	// --- HTTP server ---
	app := fiber.New()
	app.Use(middleware.RequestLogger(logger))

	apiV1 := app.Group("/api")
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1)
	handlers.NewProductHandler(productService, authService).RegisterRoutes(apiV1)
	handlers.NewCartHandler(cartService, authService).RegisterRoutes(apiV1)
	handlers.NewOrderHandler(orderService, authService).RegisterRoutes(apiV1)
	handlers.NewPaymentHandler(paymentService, authService).RegisterRoutes(apiV1)

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := store.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.App.Port))
		if err := app.Listen(cfg.App.Port); err != nil {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
