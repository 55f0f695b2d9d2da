package provisioning

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/features/integration"
)

type recordedCall struct {
	CustomerID   string
	ConnectionID string
	Method       string
	Path         string
	Data         interface{}
}

// fakeCRM answers proxied calls the way HubSpot and Pipedrive do, keyed by
// connection id. Queued failures are returned before the normal answer.
type fakeCRM struct {
	mu sync.Mutex

	connections      map[string][]integration.Connection
	hubspotProps     map[string]bool
	pipedriveFields  map[string][]pipedriveField
	failures         map[string][]error
	findConnectionsN int
	calls            []recordedCall
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{
		connections:     map[string][]integration.Connection{},
		hubspotProps:    map[string]bool{},
		pipedriveFields: map[string][]pipedriveField{},
		failures:        map[string][]error{},
	}
}

func failureKey(connectionID, method, path string) string {
	return connectionID + " " + method + " " + path
}

func (f *fakeCRM) failNext(connectionID, method, path string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := failureKey(connectionID, method, path)
	f.failures[key] = append(f.failures[key], errs...)
}

func (f *fakeCRM) FindConnections(ctx context.Context, customer integration.Customer, integrationKey string) ([]integration.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findConnectionsN++
	if errs := f.failures[failureKey("", http.MethodGet, integrationKey)]; len(errs) > 0 {
		f.failures[failureKey("", http.MethodGet, integrationKey)] = errs[1:]
		return nil, errs[0]
	}
	return f.connections[customer.ID+"/"+integrationKey], nil
}

func (f *fakeCRM) ConnectionRequest(ctx context.Context, customer integration.Customer, connectionID, path, method string, data interface{}) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{customer.ID, connectionID, method, path, data})

	key := failureKey(connectionID, method, path)
	if errs := f.failures[key]; len(errs) > 0 {
		f.failures[key] = errs[1:]
		return nil, errs[0]
	}

	switch {
	case method == http.MethodGet && path == hubspotPropertyPath:
		if !f.hubspotProps[connectionID] {
			return nil, &integration.RequestError{Status: http.StatusNotFound, Message: "property does not exist"}
		}
		return json.RawMessage(`{"name":"pronouns"}`), nil
	case method == http.MethodPost && path == hubspotPropertiesPath:
		if f.hubspotProps[connectionID] {
			return nil, &integration.RequestError{Status: http.StatusConflict, Message: "property already exists"}
		}
		f.hubspotProps[connectionID] = true
		return json.RawMessage(`{"name":"pronouns"}`), nil
	case method == http.MethodGet && path == pipedrivePersonFieldsPath:
		return json.Marshal(pipedriveFieldList{Data: f.pipedriveFields[connectionID]})
	case method == http.MethodPost && path == pipedrivePersonFieldsPath:
		f.pipedriveFields[connectionID] = append(f.pipedriveFields[connectionID], pipedriveField{Key: "9f2c01", Name: "Pronouns"})
		return json.RawMessage(`{"success":true}`), nil
	}
	return nil, &integration.RequestError{Status: http.StatusBadRequest, Message: fmt.Sprintf("unexpected %s %s", method, path)}
}

func (f *fakeCRM) countCalls(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

type recordingEvents struct {
	mu     sync.Mutex
	events map[string][]common_models.Event
}

func (r *recordingEvents) Publish(customerID string, event common_models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = map[string][]common_models.Event{}
	}
	r.events[customerID] = append(r.events[customerID], event)
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []string
}

func (r *recordingAudit) LogChange(ctx context.Context, customerID string, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, fmt.Sprintf("%s %s %s %s", customerID, action, module, recordID))
	return nil
}

func (r *recordingAudit) ListLogs(ctx context.Context, customerID string, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}
