package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RequestContextKey string

const RequestIDKey RequestContextKey = "request_id"

// RequestMiddleware tags each request with an X-Request-ID (reusing the
// caller's when present) and logs it once it completes.
func RequestMiddleware(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, requestID)
		c.SetUserContext(context.WithValue(c.UserContext(), RequestIDKey, requestID))

		start := time.Now()
		// Errors are handled here so the logged status is the one sent.
		if err := c.Next(); err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		fields := []zap.Field{
			zap.String("requestId", requestID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if customerID, ok := CustomerID(c); ok {
			fields = append(fields, zap.String("customerId", customerID))
		}
		log.Info("request", fields...)

		return nil
	}
}

// RequestID reads the id placed on the user context by RequestMiddleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
