package audit

import (
	"context"
	"testing"

	common_models "contacts-sync/internal/common/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryAuditRepo struct {
	logs       []common_models.AuditLog
	lastLimit  int64
	lastOffset int64
}

func (m *memoryAuditRepo) Create(ctx context.Context, log common_models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func (m *memoryAuditRepo) List(ctx context.Context, customerID string, filters map[string]interface{}, limit, offset int64) ([]common_models.AuditLog, error) {
	m.lastLimit, m.lastOffset = limit, offset
	var out []common_models.AuditLog
	for _, l := range m.logs {
		if l.CustomerID == customerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryAuditRepo) EnsureIndexes(ctx context.Context) error { return nil }

func TestLogChangeStampsCustomer(t *testing.T) {
	repo := &memoryAuditRepo{}
	svc := NewAuditService(repo)

	err := svc.LogChange(context.Background(), "cust_1", common_models.AuditActionCreate, "contacts", "c-1", map[string]common_models.Change{
		"name": {New: "Ann"},
	})
	require.NoError(t, err)

	require.Len(t, repo.logs, 1)
	assert.Equal(t, "cust_1", repo.logs[0].CustomerID)
	assert.Equal(t, "cust_1", repo.logs[0].ActorID)
	assert.False(t, repo.logs[0].ID.IsZero())
	assert.False(t, repo.logs[0].Timestamp.IsZero())
}

func TestListLogsIsScopedAndPaged(t *testing.T) {
	repo := &memoryAuditRepo{}
	svc := NewAuditService(repo)
	ctx := context.Background()

	require.NoError(t, svc.LogChange(ctx, "cust_a", common_models.AuditActionCreate, "contacts", "1", nil))
	require.NoError(t, svc.LogChange(ctx, "cust_b", common_models.AuditActionCreate, "contacts", "2", nil))

	logs, err := svc.ListLogs(ctx, "cust_a", nil, 3, 1000)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "1", logs[0].RecordID)
	assert.Equal(t, int64(200), repo.lastLimit)
	assert.Equal(t, int64(400), repo.lastOffset)
}
