package audit

import (
	"context"
	"time"

	common_models "contacts-sync/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditService interface {
	LogChange(ctx context.Context, customerID string, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error
	ListLogs(ctx context.Context, customerID string, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error)
}

type AuditServiceImpl struct {
	Repo AuditRepository
}

func NewAuditService(repo AuditRepository) AuditService {
	return &AuditServiceImpl{
		Repo: repo,
	}
}

// LogChange records the customer as actor; scheduled jobs pass the customer they act for.
func (s *AuditServiceImpl) LogChange(ctx context.Context, customerID string, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	log := common_models.AuditLog{
		ID:         primitive.NewObjectID(),
		CustomerID: customerID,
		Action:     action,
		Module:     module,
		RecordID:   recordID,
		ActorID:    customerID,
		Changes:    changes,
		Timestamp:  time.Now(),
	}

	return s.Repo.Create(ctx, log)
}

func (s *AuditServiceImpl) ListLogs(ctx context.Context, customerID string, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 200 {
		limit = 200
	}
	offset := (page - 1) * limit
	return s.Repo.List(ctx, customerID, filters, limit, offset)
}
