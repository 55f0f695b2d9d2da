package contact

import (
	"contacts-sync/internal/common/api"
	"contacts-sync/internal/config"
	"contacts-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ContactApi struct {
	controller *ContactController
	config     *config.Config
}

func NewContactApi(controller *ContactController, config *config.Config) api.Route {
	return &ContactApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers all contact routes
func (h *ContactApi) Setup(app *fiber.App) {
	contacts := app.Group("/api/contacts", middleware.AuthMiddleware(h.config))

	contacts.Get("/", h.controller.ListContacts)
	contacts.Post("/", h.controller.CreateContact)
	contacts.Put("/", h.controller.UpdateContact)
	contacts.Delete("/", h.controller.DeleteContact)
	contacts.Get("/export", h.controller.ExportContacts)
	contacts.Post("/import", h.controller.ImportContacts)
}
