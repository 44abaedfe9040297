package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bizdesk/internal/config"
	"bizdesk/internal/database"
	"bizdesk/internal/limiter"
	"bizdesk/internal/models"
	"bizdesk/internal/services"
	"bizdesk/pkg/rabbitmq"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// auditQueue receives every domain event for logging.
const auditQueue = "bizdesk.audit"

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrateAll(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema and exits.
func Migrate(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	log.Printf("Database schema migrated (%s)", cfg.DatabaseDriver)
	return nil
}

// Serve runs the HTTP server until SIGINT or SIGTERM.
func Serve(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	deps := Deps{DB: db}

	// --- RabbitMQ (optional) ---
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Printf("Warning: RabbitMQ unavailable, events disabled: %v", err)
		} else {
			defer mqClient.Close()
			deps.Events = mqClient
			keys := []string{services.EventUserLoggedIn, services.EventCustomerProductsChanged}
			if err := mqClient.ConsumeEvents(auditQueue, keys, rabbitmq.LogEvent); err != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", err)
			}
		}
	}

	// --- Redis rate limiter (optional) ---
	if cfg.RedisAddr != "" {
		rdb, err := limiter.NewRedisClient(limiter.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: 10,
		})
		if err != nil {
			log.Printf("Warning: Redis unavailable, rate limiting disabled: %v", err)
		} else {
			defer closeRedis(rdb)
			deps.Limiter = limiter.NewManager(rdb, &limiter.FixedWindowStrategy{})
		}
	}

	app := NewApp(cfg, deps)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", cfg.ListenAddr())
		listenErr <- app.Listen(cfg.ListenAddr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-quit:
	}

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
	return nil
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}
}
