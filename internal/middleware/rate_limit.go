package middleware

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"bizdesk/internal/limiter"

	"github.com/gofiber/fiber/v2"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	// KeyFunc identifies the caller. It defaults to the client IP.
	KeyFunc func(c *fiber.Ctx) string
	// Prefix namespaces the limiter keys in Redis.
	Prefix string
}

// RateLimit rejects callers that exceed cfg.Limit requests per cfg.Window
// with 429. Limiter errors let the request through.
func RateLimit(manager *limiter.Manager, cfg RateLimitConfig) fiber.Handler {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "limiter"
	}
	return func(c *fiber.Ctx) error {
		key := ""
		if cfg.KeyFunc != nil {
			key = cfg.KeyFunc(c)
		}
		if key == "" {
			key = c.IP()
		}

		allowed, err := manager.Allow(c.UserContext(), fmt.Sprintf("%s:%s", prefix, key), cfg.Limit, cfg.Window)
		if err != nil {
			log.Printf("Rate limit check failed, allowing request: %v", err)
			return c.Next()
		}
		if !allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(cfg.Window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too Many Requests",
			})
		}
		return c.Next()
	}
}
