package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Zone state changes at operator speed and boundaries at publish speed, so
// nothing under /v1 is cached for long.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Only set on GET requests
		if c.Method() != "GET" {
			return err
		}

		// Don't override if already set
		if existing := c.Response().Header.Peek(fiber.HeaderCacheControl); len(existing) > 0 {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/v1/info":
			ttl = "private, max-age=0, must-revalidate" // carries zone counts and rate

		case path == "/metrics", path == "/v1/bounds/latest", path == "/v1/breaches":
			ttl = "no-cache"

		case path == "/graphql":
			ttl = "private, max-age=0"

		case strings.HasPrefix(path, "/v1/zones"):
			ttl = "private, max-age=0, must-revalidate" // pair with ETag

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=5"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
