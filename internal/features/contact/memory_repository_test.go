package contact

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	common_models "contacts-sync/internal/common/models"
)

// memoryContactRepository mirrors the scoping rules of the real backends.
type memoryContactRepository struct {
	mu       sync.Mutex
	contacts map[string]Contact
	creates  int
	failNext error
}

func newMemoryContactRepository() *memoryContactRepository {
	return &memoryContactRepository{contacts: map[string]Contact{}}
}

func (m *memoryContactRepository) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memoryContactRepository) List(ctx context.Context, customerID string) ([]Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	out := []Contact{}
	for _, c := range m.contacts {
		if c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryContactRepository) Get(ctx context.Context, customerID, id string) (*Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok || c.CustomerID != customerID {
		return nil, fmt.Errorf("contact %s: %w", id, common_models.ErrNotFound)
	}
	return &c, nil
}

func (m *memoryContactRepository) Create(ctx context.Context, c *Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, exists := m.contacts[c.ID]; exists {
		return fmt.Errorf("duplicate id %s", c.ID)
	}
	m.creates++
	m.contacts[c.ID] = *c
	return nil
}

func (m *memoryContactRepository) CreateMany(ctx context.Context, contacts []Contact) error {
	for i := range contacts {
		if err := m.Create(ctx, &contacts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryContactRepository) Update(ctx context.Context, customerID, id string, in ContactInput, at time.Time) (*Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok || c.CustomerID != customerID {
		return nil, fmt.Errorf("contact %s: %w", id, common_models.ErrNotFound)
	}
	if in.Name != "" {
		c.Name = in.Name
	}
	if in.Email != "" {
		c.Email = in.Email
	}
	if in.Phone != "" {
		c.Phone = in.Phone
	}
	if in.JobTitle != "" {
		c.JobTitle = in.JobTitle
	}
	if in.Pronouns != "" {
		c.Pronouns = in.Pronouns
	}
	c.UpdatedAt = at
	c.LastAppModified = &at
	m.contacts[id] = c
	return &c, nil
}

func (m *memoryContactRepository) Delete(ctx context.Context, customerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok || c.CustomerID != customerID {
		return fmt.Errorf("contact %s: %w", id, common_models.ErrNotFound)
	}
	delete(m.contacts, id)
	return nil
}

func (m *memoryContactRepository) MarkSynced(ctx context.Context, customerID, id, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok || c.CustomerID != customerID {
		return fmt.Errorf("contact %s: %w", id, common_models.ErrNotFound)
	}
	for _, p := range c.SyncedToCRMs {
		if p == provider {
			return nil
		}
	}
	c.SyncedToCRMs = append(c.SyncedToCRMs, provider)
	m.contacts[id] = c
	return nil
}

func (m *memoryContactRepository) CustomerIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var ids []string
	for _, c := range m.contacts {
		if !seen[c.CustomerID] {
			seen[c.CustomerID] = true
			ids = append(ids, c.CustomerID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memoryContactRepository) EnsureIndexes(ctx context.Context) error { return nil }

func (m *memoryContactRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contacts)
}

type recordingAudit struct {
	mu      sync.Mutex
	actions []common_models.AuditAction
	err     error
}

func (r *recordingAudit) LogChange(ctx context.Context, customerID string, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
	return r.err
}

func (r *recordingAudit) ListLogs(ctx context.Context, customerID string, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}
