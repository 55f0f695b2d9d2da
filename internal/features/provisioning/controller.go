package provisioning

import (
	"contacts-sync/internal/features/integration"
	"contacts-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ProvisioningController struct {
	Service ProvisioningService
}

func NewProvisioningController(service ProvisioningService) *ProvisioningController {
	return &ProvisioningController{
		Service: service,
	}
}

// SetupPronouns godoc
// @Summary      Ensure the pronouns field exists in every connected CRM
// @Tags         integration
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/integration/setup/pronouns [post]
func (ctrl *ProvisioningController) SetupPronouns(c *fiber.Ctx) error {
	claims, ok := middleware.Customer(c)
	if !ok {
		return middleware.Unauthorized(c)
	}

	results := ctrl.Service.SetupAll(c.UserContext(), integration.Customer{
		ID:   claims.CustomerID,
		Name: claims.CustomerName,
	})

	for _, r := range results {
		if !r.Success {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Pronouns setup encountered errors.",
				"results": results,
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "Pronouns setup completed for all providers.",
		"results": results,
	})
}
