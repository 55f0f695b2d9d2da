package models

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrValidation marks missing or malformed input. Handlers answer 400.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned for scoped lookups that miss, including records
	// owned by another customer.
	ErrNotFound = errors.New("not found")
	// ErrLinkConflict is returned when a contact link would break one of the
	// per-customer uniqueness constraints.
	ErrLinkConflict = errors.New("contact link conflict")
)

// Validationf wraps ErrValidation with a caller-facing message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Provider is the key of an external CRM.
type Provider string

const (
	ProviderHubSpot   Provider = "hubspot"
	ProviderPipedrive Provider = "pipedrive"
)

// Providers lists every supported provider in provisioning order.
var Providers = []Provider{ProviderHubSpot, ProviderPipedrive}

func (p Provider) Valid() bool {
	return p == ProviderHubSpot || p == ProviderPipedrive
}

// DisplayName is the human form used in messages.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderHubSpot:
		return "HubSpot"
	case ProviderPipedrive:
		return "Pipedrive"
	default:
		return string(p)
	}
}

func ParseProvider(s string) (Provider, error) {
	p := Provider(s)
	if !p.Valid() {
		return "", Validationf("unknown provider %q", s)
	}
	return p, nil
}

type AuditAction string

const (
	AuditActionCreate    AuditAction = "CREATE"
	AuditActionUpdate    AuditAction = "UPDATE"
	AuditActionDelete    AuditAction = "DELETE"
	AuditActionImport    AuditAction = "IMPORT"
	AuditActionProvision AuditAction = "PROVISION"
	AuditActionSync      AuditAction = "SYNC"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type AuditLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CustomerID string             `bson:"customer_id" json:"customer_id"`
	Action     AuditAction        `bson:"action" json:"action"`
	Module     string             `bson:"module" json:"module"`       // The module/collection name
	RecordID   string             `bson:"record_id" json:"record_id"` // The ID of the record being modified
	ActorID    string             `bson:"actor_id" json:"actor_id"`
	Changes    map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"` // For updates: field -> {old, new}
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}

// Log is one row of the "logs" collection fed by the zap tee.
type Log struct {
	Message      string    `bson:"message" json:"message"`
	Logger       string    `bson:"logger,omitempty" json:"logger,omitempty"`
	IPAddress    string    `bson:"ip_address" json:"ip_address"`
	CustomerID   string    `bson:"customer_id,omitempty" json:"customer_id,omitempty"`
	Provider     string    `bson:"provider,omitempty" json:"provider,omitempty"`
	RequestID    string    `bson:"request_id,omitempty" json:"request_id,omitempty"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	AppID        string    `bson:"app_id" json:"app_id"`
	LogLevelID   int       `bson:"log_level_id" json:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}

const (
	EventProvisioning = "provisioning"
	EventSyncRun      = "sync_run"
)

// Event is pushed to a customer's websocket subscribers.
type Event struct {
	Type      string    `json:"type"`
	Provider  Provider  `json:"provider,omitempty"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher delivers events without blocking the caller.
type EventPublisher interface {
	Publish(customerID string, event Event)
}
