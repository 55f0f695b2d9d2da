package api

import (
	"errors"
	"strings"

	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WriteError maps domain errors onto status codes. Unknown errors are logged
// and answered with a generic 500 so store or client details never leak.
func WriteError(c *fiber.Ctx, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, common_models.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	case errors.Is(err, common_models.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, common_models.ErrLinkConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	log.Error("request failed",
		zap.String("requestId", middleware.RequestID(c.UserContext())),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
}

// validationMessage drops the sentinel prefix added by Validationf.
func validationMessage(err error) string {
	msg := err.Error()
	prefix := common_models.ErrValidation.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
