package sync

import (
	"contacts-sync/internal/common/api"
	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SyncController struct {
	Service Bookkeeper
	Log     *zap.Logger
}

func NewSyncController(service Bookkeeper, log *zap.Logger) *SyncController {
	return &SyncController{
		Service: service,
		Log:     log,
	}
}

// ListLinks godoc
// @Summary      List CRM links
// @Tags         sync
// @Produce      json
// @Param        contactId  query  string  false  "Contact ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/sync/links [get]
func (ctrl *SyncController) ListLinks(c *fiber.Ctx) error {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}

	links, err := ctrl.Service.ListLinks(c.UserContext(), customerID, c.Query("contactId"))
	if err != nil {
		return api.WriteError(c, ctrl.Log, err)
	}

	return c.JSON(fiber.Map{
		"links": links,
	})
}

// ListConflicts godoc
// @Summary      List field conflicts
// @Tags         sync
// @Produce      json
// @Param        contactId  query  string  false  "Contact ID"
// @Param        limit      query  int     false  "Max rows (default 50, max 500)"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/sync/conflicts [get]
func (ctrl *SyncController) ListConflicts(c *fiber.Ctx) error {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}

	conflicts, err := ctrl.Service.ListConflicts(c.UserContext(), customerID, c.Query("contactId"), int64(c.QueryInt("limit", defaultLimit)))
	if err != nil {
		return api.WriteError(c, ctrl.Log, err)
	}

	return c.JSON(fiber.Map{
		"conflicts": conflicts,
	})
}

// ListRuns godoc
// @Summary      List sync runs
// @Tags         sync
// @Produce      json
// @Param        provider  query  string  false  "hubspot or pipedrive"
// @Param        limit     query  int     false  "Max rows (default 50, max 500)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/sync/logs [get]
func (ctrl *SyncController) ListRuns(c *fiber.Ctx) error {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}

	var provider common_models.Provider
	if raw := c.Query("provider"); raw != "" {
		parsed, err := common_models.ParseProvider(raw)
		if err != nil {
			return api.WriteError(c, ctrl.Log, err)
		}
		provider = parsed
	}

	logs, err := ctrl.Service.ListRuns(c.UserContext(), customerID, provider, int64(c.QueryInt("limit", defaultLimit)))
	if err != nil {
		return api.WriteError(c, ctrl.Log, err)
	}

	return c.JSON(fiber.Map{
		"logs": logs,
	})
}
