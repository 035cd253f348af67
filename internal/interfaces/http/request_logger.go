package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jfloresavalos/Nelaglow-sub001/pkg/logger"
)

// RequestLogger registra cada petición con campos estructurados. Las 4xx de
// validación se registran como warn; las 5xx como error.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("user_id", GetUserID(c)).
			Msg("request")
		return err
	}
}
