package provisioning

import (
	"contacts-sync/internal/common/api"
	"contacts-sync/internal/config"
	"contacts-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ProvisioningApi struct {
	controller *ProvisioningController
	config     *config.Config
}

func NewProvisioningApi(controller *ProvisioningController, config *config.Config) api.Route {
	return &ProvisioningApi{
		controller: controller,
		config:     config,
	}
}

func (h *ProvisioningApi) Setup(app *fiber.App) {
	setup := app.Group("/api/integration/setup", middleware.AuthMiddleware(h.config))
	setup.Post("/pronouns", h.controller.SetupPronouns)
}
