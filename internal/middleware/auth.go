package middleware

import (
	"strings"

	"contacts-sync/internal/config"
	"contacts-sync/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware resolves the calling customer from a bearer JWT and stores the
// claims in Locals. Every customer-scoped route group mounts it, so identity is
// always settled before a handler runs.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.SkipAuth {
			c.Locals(utils.CustomerClaimsKey, &utils.CustomerClaims{
				CustomerID:   cfg.DevCustomerID,
				CustomerName: "Development",
			})
			return c.Next()
		}

		token, ok := bearerToken(c)
		if !ok {
			return Unauthorized(c)
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			return Unauthorized(c)
		}

		c.Locals(utils.CustomerClaimsKey, claims)
		return c.Next()
	}
}

// bearerToken reads "Authorization: Bearer <token>", falling back to the
// "token" query parameter for websocket upgrades where browsers cannot set headers.
func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader != "" {
		if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
			return "", false
		}
		token := strings.TrimSpace(authHeader[7:])
		return token, token != ""
	}

	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

// Customer returns the resolved caller, if any.
func Customer(c *fiber.Ctx) (*utils.CustomerClaims, bool) {
	claims, ok := c.Locals(utils.CustomerClaimsKey).(*utils.CustomerClaims)
	if !ok || claims == nil || claims.CustomerID == "" {
		return nil, false
	}
	return claims, true
}

// CustomerID is the scoping key every store query is filtered by.
func CustomerID(c *fiber.Ctx) (string, bool) {
	claims, ok := Customer(c)
	if !ok {
		return "", false
	}
	return claims.CustomerID, true
}

func Unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}
