package sync

import (
	"context"
	"fmt"
	gosync "sync"

	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/features/contact"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryLinks struct {
	mu    gosync.Mutex
	links []ContactLink
}

func (m *memoryLinks) Upsert(ctx context.Context, link *ContactLink) (*ContactLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, l := range m.links {
		if l.CustomerID == link.CustomerID && l.Provider == link.Provider && l.ContactID == link.ContactID {
			idx = i
			continue
		}
		if link.ExternalID != "" && l.CustomerID == link.CustomerID && l.Provider == link.Provider && l.ExternalID == link.ExternalID {
			return nil, fmt.Errorf("%w: duplicate external id", common_models.ErrLinkConflict)
		}
	}

	saved := *link
	if idx >= 0 {
		saved.ID = m.links[idx].ID
		saved.CreatedAt = m.links[idx].CreatedAt
		m.links[idx] = saved
	} else {
		saved.ID = primitive.NewObjectID()
		m.links = append(m.links, saved)
	}
	return &saved, nil
}

func (m *memoryLinks) Get(ctx context.Context, customerID string, provider common_models.Provider, contactID string) (*ContactLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.CustomerID == customerID && l.Provider == provider && l.ContactID == contactID {
			found := l
			return &found, nil
		}
	}
	return nil, fmt.Errorf("link: %w", common_models.ErrNotFound)
}

func (m *memoryLinks) List(ctx context.Context, customerID, contactID string) ([]ContactLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []ContactLink{}
	for _, l := range m.links {
		if l.CustomerID == customerID && (contactID == "" || l.ContactID == contactID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryLinks) EnsureIndexes(ctx context.Context) error { return nil }

type memoryConflicts struct {
	mu      gosync.Mutex
	rows    []ConflictLog
	inserts int
	limits  []int64
}

func (m *memoryConflicts) Insert(ctx context.Context, logs []ConflictLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(logs) == 0 {
		return nil
	}
	m.inserts++
	m.rows = append(m.rows, logs...)
	return nil
}

func (m *memoryConflicts) List(ctx context.Context, customerID, contactID string, limit int64) ([]ConflictLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits = append(m.limits, limit)
	out := []ConflictLog{}
	for _, r := range m.rows {
		if r.CustomerID == customerID && (contactID == "" || r.ContactID == contactID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryConflicts) EnsureIndexes(ctx context.Context) error { return nil }

type memoryRuns struct {
	mu   gosync.Mutex
	rows []SyncLog
}

func (m *memoryRuns) Insert(ctx context.Context, log *SyncLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = primitive.NewObjectID()
	m.rows = append(m.rows, *log)
	return nil
}

func (m *memoryRuns) List(ctx context.Context, customerID string, provider common_models.Provider, limit int64) ([]SyncLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []SyncLog{}
	for _, r := range m.rows {
		if r.CustomerID == customerID && (provider == "" || r.Provider == provider) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryRuns) EnsureIndexes(ctx context.Context) error { return nil }

// memoryContacts holds contacts by customer and records MarkSynced calls.
type memoryContacts struct {
	mu     gosync.Mutex
	owners map[string]string
	synced map[string][]common_models.Provider
}

func newMemoryContacts(owned map[string]string) *memoryContacts {
	return &memoryContacts{owners: owned, synced: map[string][]common_models.Provider{}}
}

func (m *memoryContacts) GetContact(ctx context.Context, customerID, id string) (*contact.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[id] != customerID {
		return nil, fmt.Errorf("contact %s: %w", id, common_models.ErrNotFound)
	}
	return &contact.Contact{ID: id, CustomerID: customerID}, nil
}

func (m *memoryContacts) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.owners, id)
}

func (m *memoryContacts) MarkSynced(ctx context.Context, customerID, id string, provider common_models.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[id] != customerID {
		return fmt.Errorf("contact %s: %w", id, common_models.ErrNotFound)
	}
	m.synced[id] = append(m.synced[id], provider)
	return nil
}

type recordingEvents struct {
	mu     gosync.Mutex
	events []common_models.Event
}

func (r *recordingEvents) Publish(customerID string, event common_models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}
