package sync

import (
	"time"

	common_models "contacts-sync/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LinkStatus string

const (
	LinkStatusSynced  LinkStatus = "synced"
	LinkStatusError   LinkStatus = "error"
	LinkStatusPending LinkStatus = "pending"
)

type Operation string

const (
	OperationFromCRM Operation = "sync-from-crm"
	OperationToCRM   Operation = "sync-to-crm"
	OperationManual  Operation = "manual-sync"
)

func (o Operation) Valid() bool {
	return o == OperationFromCRM || o == OperationToCRM || o == OperationManual
}

type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
	RunStatusPartial RunStatus = "partial"
)

// DefaultResolutionStrategy is recorded on every conflict. Nothing acts on it.
const DefaultResolutionStrategy = "crm_wins"

// ContactLink ties a local contact to its record in one CRM.
type ContactLink struct {
	ID              primitive.ObjectID     `json:"-" bson:"_id,omitempty"`
	ContactID       string                 `json:"contactId" bson:"contactId"`
	Provider        common_models.Provider `json:"provider" bson:"provider"`
	ExternalID      string                 `json:"externalId,omitempty" bson:"externalId,omitempty"`
	CustomerID      string                 `json:"customerId" bson:"customerId"`
	SyncStatus      LinkStatus             `json:"syncStatus" bson:"syncStatus"`
	LastError       string                 `json:"lastError,omitempty" bson:"lastError,omitempty"`
	LastSyncedAt    *time.Time             `json:"lastSyncedAt,omitempty" bson:"lastSyncedAt,omitempty"`
	CRMLastModified *time.Time             `json:"crmLastModified,omitempty" bson:"crmLastModified,omitempty"`
	CreatedAt       time.Time              `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt" bson:"updatedAt"`
}

// ConflictLog records one field that differed between the app and a CRM.
type ConflictLog struct {
	ID                 primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	ContactID          string                 `json:"contactId" bson:"contactId"`
	Provider           common_models.Provider `json:"provider" bson:"provider"`
	Field              string                 `json:"field" bson:"field"`
	LocalValue         interface{}            `json:"localValue" bson:"localValue"`
	CRMValue           interface{}            `json:"crmValue" bson:"crmValue"`
	ResolutionStrategy string                 `json:"resolutionStrategy" bson:"resolutionStrategy"`
	LoggedAt           time.Time              `json:"loggedAt" bson:"loggedAt"`
	CustomerID         string                 `json:"customerId" bson:"customerId"`
}

// SyncLog is written once per run.
type SyncLog struct {
	ID               primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	Operation        Operation              `json:"operation" bson:"operation"`
	Provider         common_models.Provider `json:"provider" bson:"provider"`
	Status           RunStatus              `json:"status" bson:"status"`
	Timestamp        time.Time              `json:"timestamp" bson:"timestamp"`
	ErrorDetails     string                 `json:"errorDetails,omitempty" bson:"errorDetails,omitempty"`
	RecordsProcessed int                    `json:"recordsProcessed" bson:"recordsProcessed"`
	RecordsFailed    int                    `json:"recordsFailed" bson:"recordsFailed"`
	CustomerID       string                 `json:"customerId" bson:"customerId"`
}

// AttemptResult is what a sync engine learned from one remote call.
type AttemptResult struct {
	ExternalID      string
	CRMLastModified *time.Time
	Err             error
}

// RecordSync is one contact handed to Run.
type RecordSync struct {
	ContactID  string
	ExternalID string
	Local      map[string]interface{}
}

// SyncOutcome is returned by a SyncFunc. Remote, when set, is compared
// against RecordSync.Local for conflicts.
type SyncOutcome struct {
	ExternalID      string
	CRMLastModified *time.Time
	Remote          map[string]interface{}
}
