package system

import (
	"contacts-sync/internal/common/api"
	"contacts-sync/internal/config"
	"contacts-sync/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type WebSocketApi struct {
	Controller *WebSocketController
	config     *config.Config
}

func NewWebSocketApi(controller *WebSocketController, config *config.Config) api.Route {
	return &WebSocketApi{
		Controller: controller,
		config:     config,
	}
}

func (h *WebSocketApi) Setup(app *fiber.App) {
	app.Get("/api/ws", middleware.AuthMiddleware(h.config), upgradeGate, websocket.New(h.Controller.HandleWebSocket))
}

// upgradeGate rejects plain HTTP and hands the customer id to the websocket
// connection, which only inherits string-keyed locals.
func upgradeGate(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}
	c.Locals(customerLocal, customerID)
	return c.Next()
}
