package audit

import (
	"strconv"

	"contacts-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuditController struct {
	Service AuditService
	Log     *zap.Logger
}

func NewAuditController(service AuditService, log *zap.Logger) *AuditController {
	return &AuditController{Service: service, Log: log}
}

// ListLogs godoc
// @Summary      List audit logs
// @Tags         audit
// @Produce      json
// @Param        module     query  string  false  "Module name"
// @Param        record_id  query  string  false  "Record id"
// @Param        page       query  int     false  "Page"
// @Param        limit      query  int     false  "Page size"
// @Success      200  {array}   models.AuditLog
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/audit-logs [get]
func (ctrl *AuditController) ListLogs(c *fiber.Ctx) error {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}

	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)

	filters := make(map[string]interface{})
	if module := c.Query("module"); module != "" {
		filters["module"] = module
	}
	if recordID := c.Query("record_id"); recordID != "" {
		filters["record_id"] = recordID
	}

	logs, err := ctrl.Service.ListLogs(c.UserContext(), customerID, filters, page, limit)
	if err != nil {
		ctrl.Log.Error("failed to list audit logs", zap.String("customerId", customerID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal Server Error",
		})
	}

	return c.JSON(logs)
}
