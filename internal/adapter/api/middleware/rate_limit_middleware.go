package middleware

import (
	"github.com/labstack/echo/v4"

	"fuddly/internal/infrastructure/ratelimit"
	"fuddly/pkg/errors"
	"fuddly/pkg/logger"
	"fuddly/pkg/response"
)

// RateLimit throttles REST calls per client IP.
func RateLimit(limiter *ratelimit.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if !limiter.Allow(ip) {
				logger.Warn("RATE LIMIT: blocked request from IP %s to %s", ip, c.Path())
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded"))
			}
			return next(c)
		}
	}
}
