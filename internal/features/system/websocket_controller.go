package system

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

const (
	customerLocal = "customerId"
	writeTimeout  = 10 * time.Second
)

type WebSocketController struct {
	Hub *Hub
	Log *zap.Logger
}

func NewWebSocketController(hub *Hub, log *zap.Logger) *WebSocketController {
	return &WebSocketController{
		Hub: hub,
		Log: log,
	}
}

// HandleWebSocket streams the caller's events until either side goes away.
// Incoming frames are read only to notice the client closing.
func (h *WebSocketController) HandleWebSocket(c *websocket.Conn) {
	customerID, _ := c.Locals(customerLocal).(string)
	if customerID == "" {
		_ = c.Close()
		return
	}

	events, cancel := h.Hub.Subscribe(customerID)
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"))
				return
			}
			_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.WriteJSON(event); err != nil {
				h.Log.Debug("websocket write failed", zap.String("customerId", customerID), zap.Error(err))
				return
			}
		}
	}
}
