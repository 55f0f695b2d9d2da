package sync

import (
	"contacts-sync/internal/common/api"
	"contacts-sync/internal/config"
	"contacts-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SyncApi struct {
	controller *SyncController
	config     *config.Config
}

func NewSyncApi(controller *SyncController, config *config.Config) api.Route {
	return &SyncApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers the read-only bookkeeping routes
func (h *SyncApi) Setup(app *fiber.App) {
	syncGroup := app.Group("/api/sync", middleware.AuthMiddleware(h.config))

	syncGroup.Get("/links", h.controller.ListLinks)
	syncGroup.Get("/conflicts", h.controller.ListConflicts)
	syncGroup.Get("/logs", h.controller.ListRuns)
}
