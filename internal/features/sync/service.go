package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/features/audit"
	"contacts-sync/internal/features/contact"

	"go.uber.org/zap"
)

const (
	auditModule     = "sync"
	defaultLimit    = 50
	maxLimit        = 500
	maxErrorDetails = 2000
)

// ContactStore is the slice of the contact service bookkeeping needs.
type ContactStore interface {
	GetContact(ctx context.Context, customerID, id string) (*contact.Contact, error)
	MarkSynced(ctx context.Context, customerID, id string, provider common_models.Provider) error
}

// SyncFunc performs the remote half of one record's sync.
type SyncFunc func(ctx context.Context, record RecordSync) (SyncOutcome, error)

// Bookkeeper is what a sync engine calls around its CRM requests.
type Bookkeeper interface {
	BeginAttempt(ctx context.Context, customerID string, provider common_models.Provider, contactID, externalID string) (*ContactLink, error)
	CompleteAttempt(ctx context.Context, customerID string, provider common_models.Provider, contactID string, result AttemptResult) (*ContactLink, error)
	RecordConflicts(ctx context.Context, customerID string, provider common_models.Provider, contactID string, local, remote map[string]interface{}) ([]ConflictLog, error)
	RecordRun(ctx context.Context, customerID string, operation Operation, provider common_models.Provider, processed, failed int, errorDetails string) (*SyncLog, error)
	Run(ctx context.Context, customerID string, operation Operation, provider common_models.Provider, records []RecordSync, fn SyncFunc) (*SyncLog, error)

	ListLinks(ctx context.Context, customerID, contactID string) ([]ContactLink, error)
	ListConflicts(ctx context.Context, customerID, contactID string, limit int64) ([]ConflictLog, error)
	ListRuns(ctx context.Context, customerID string, provider common_models.Provider, limit int64) ([]SyncLog, error)
}

type BookkeeperImpl struct {
	Links        LinkRepository
	Conflicts    ConflictLogRepository
	Runs         SyncLogRepository
	Contacts     ContactStore
	AuditService audit.AuditService
	Events       common_models.EventPublisher
	Log          *zap.Logger

	now func() time.Time
}

func NewBookkeeper(
	links LinkRepository,
	conflicts ConflictLogRepository,
	runs SyncLogRepository,
	contacts ContactStore,
	auditService audit.AuditService,
	events common_models.EventPublisher,
	log *zap.Logger,
) Bookkeeper {
	return &BookkeeperImpl{
		Links:        links,
		Conflicts:    conflicts,
		Runs:         runs,
		Contacts:     contacts,
		AuditService: auditService,
		Events:       events,
		Log:          log.Named("sync"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func validateTarget(provider common_models.Provider, contactID string) error {
	if !provider.Valid() {
		return common_models.Validationf("unknown provider %q", provider)
	}
	if contactID == "" {
		return common_models.Validationf("Contact ID is required")
	}
	return nil
}

// BeginAttempt marks the link pending before the remote call. The contact must
// belong to the customer.
func (s *BookkeeperImpl) BeginAttempt(ctx context.Context, customerID string, provider common_models.Provider, contactID, externalID string) (*ContactLink, error) {
	if err := validateTarget(provider, contactID); err != nil {
		return nil, err
	}
	if _, err := s.Contacts.GetContact(ctx, customerID, contactID); err != nil {
		return nil, err
	}

	now := s.now()
	link := &ContactLink{
		ContactID:  contactID,
		Provider:   provider,
		CustomerID: customerID,
		CreatedAt:  now,
	}
	if existing, err := s.Links.Get(ctx, customerID, provider, contactID); err == nil {
		link = existing
	} else if !isNotFound(err) {
		return nil, err
	}

	if externalID != "" {
		link.ExternalID = externalID
	}
	link.SyncStatus = LinkStatusPending
	link.LastError = ""
	link.UpdatedAt = now

	return s.Links.Upsert(ctx, link)
}

func (s *BookkeeperImpl) CompleteAttempt(ctx context.Context, customerID string, provider common_models.Provider, contactID string, result AttemptResult) (*ContactLink, error) {
	if err := validateTarget(provider, contactID); err != nil {
		return nil, err
	}

	link, err := s.Links.Get(ctx, customerID, provider, contactID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	link.UpdatedAt = now
	if result.ExternalID != "" {
		link.ExternalID = result.ExternalID
	}
	if result.CRMLastModified != nil {
		link.CRMLastModified = result.CRMLastModified
	}

	if result.Err != nil {
		link.SyncStatus = LinkStatusError
		link.LastError = result.Err.Error()
		return s.Links.Upsert(ctx, link)
	}

	// The contact is marked first so the link never claims a sync the
	// contact does not reflect.
	if err := s.Contacts.MarkSynced(ctx, customerID, contactID, provider); err != nil {
		err = fmt.Errorf("failed to mark contact synced: %w", err)
		link.SyncStatus = LinkStatusError
		link.LastError = err.Error()
		if _, upsertErr := s.Links.Upsert(ctx, link); upsertErr != nil {
			return nil, upsertErr
		}
		return nil, err
	}

	link.SyncStatus = LinkStatusSynced
	link.LastError = ""
	link.LastSyncedAt = &now
	return s.Links.Upsert(ctx, link)
}

// RecordConflicts appends one row per differing field. Values compare by
// their trimmed string form; a field missing on one side always differs.
func (s *BookkeeperImpl) RecordConflicts(ctx context.Context, customerID string, provider common_models.Provider, contactID string, local, remote map[string]interface{}) ([]ConflictLog, error) {
	if err := validateTarget(provider, contactID); err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(local)+len(remote))
	for field := range local {
		fields = append(fields, field)
	}
	for field := range remote {
		if _, ok := local[field]; !ok {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	now := s.now()
	conflicts := []ConflictLog{}
	for _, field := range fields {
		localValue, inLocal := local[field]
		crmValue, inRemote := remote[field]
		if inLocal && inRemote && normalize(localValue) == normalize(crmValue) {
			continue
		}
		conflicts = append(conflicts, ConflictLog{
			ContactID:          contactID,
			Provider:           provider,
			Field:              field,
			LocalValue:         localValue,
			CRMValue:           crmValue,
			ResolutionStrategy: DefaultResolutionStrategy,
			LoggedAt:           now,
			CustomerID:         customerID,
		})
	}

	if err := s.Conflicts.Insert(ctx, conflicts); err != nil {
		return nil, fmt.Errorf("failed to record conflicts: %w", err)
	}
	return conflicts, nil
}

func normalize(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// runStatus: no failures is success, nothing succeeding is failed.
func runStatus(processed, failed int, errorDetails string) RunStatus {
	switch {
	case processed == 0 && errorDetails != "":
		return RunStatusFailed
	case failed == 0:
		return RunStatusSuccess
	case failed >= processed:
		return RunStatusFailed
	default:
		return RunStatusPartial
	}
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func (s *BookkeeperImpl) RecordRun(ctx context.Context, customerID string, operation Operation, provider common_models.Provider, processed, failed int, errorDetails string) (*SyncLog, error) {
	if !operation.Valid() {
		return nil, common_models.Validationf("unknown operation %q", operation)
	}
	if !provider.Valid() {
		return nil, common_models.Validationf("unknown provider %q", provider)
	}
	if processed < 0 || failed < 0 || failed > processed {
		return nil, common_models.Validationf("invalid record counts: %d processed, %d failed", processed, failed)
	}

	errorDetails = truncateUTF8(errorDetails, maxErrorDetails)

	entry := &SyncLog{
		Operation:        operation,
		Provider:         provider,
		Status:           runStatus(processed, failed, errorDetails),
		Timestamp:        s.now(),
		ErrorDetails:     errorDetails,
		RecordsProcessed: processed,
		RecordsFailed:    failed,
		CustomerID:       customerID,
	}
	if err := s.Runs.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record sync run: %w", err)
	}
	return entry, nil
}

// Run drives one sync pass. A record's failure is counted and the pass moves
// on; exactly one SyncLog is written at the end.
func (s *BookkeeperImpl) Run(ctx context.Context, customerID string, operation Operation, provider common_models.Provider, records []RecordSync, fn SyncFunc) (*SyncLog, error) {
	if !operation.Valid() {
		return nil, common_models.Validationf("unknown operation %q", operation)
	}
	if !provider.Valid() {
		return nil, common_models.Validationf("unknown provider %q", provider)
	}

	var failures []string
	for _, record := range records {
		if err := s.syncRecord(ctx, customerID, provider, record, fn); err != nil {
			s.Log.Warn("record sync failed",
				zap.String("customerId", customerID),
				zap.String("provider", string(provider)),
				zap.String("contactId", record.ContactID),
				zap.Error(err),
			)
			failures = append(failures, fmt.Sprintf("%s: %v", record.ContactID, err))
		}
	}

	entry, err := s.RecordRun(ctx, customerID, operation, provider, len(records), len(failures), strings.Join(failures, "; "))
	if err != nil {
		return nil, err
	}

	s.Log.Info("sync run finished",
		zap.String("customerId", customerID),
		zap.String("operation", string(operation)),
		zap.String("provider", string(provider)),
		zap.String("status", string(entry.Status)),
		zap.Int("processed", entry.RecordsProcessed),
		zap.Int("failed", entry.RecordsFailed),
	)
	s.report(ctx, entry)
	return entry, nil
}

func (s *BookkeeperImpl) syncRecord(ctx context.Context, customerID string, provider common_models.Provider, record RecordSync, fn SyncFunc) error {
	if _, err := s.BeginAttempt(ctx, customerID, provider, record.ContactID, record.ExternalID); err != nil {
		return err
	}

	outcome, syncErr := fn(ctx, record)
	if syncErr == nil && outcome.Remote != nil {
		if _, err := s.RecordConflicts(ctx, customerID, provider, record.ContactID, record.Local, outcome.Remote); err != nil {
			syncErr = err
		}
	}

	if _, err := s.CompleteAttempt(ctx, customerID, provider, record.ContactID, AttemptResult{
		ExternalID:      outcome.ExternalID,
		CRMLastModified: outcome.CRMLastModified,
		Err:             syncErr,
	}); err != nil {
		return err
	}
	return syncErr
}

func (s *BookkeeperImpl) report(ctx context.Context, entry *SyncLog) {
	if s.Events != nil {
		s.Events.Publish(entry.CustomerID, common_models.Event{
			Type:      common_models.EventSyncRun,
			Provider:  entry.Provider,
			Success:   entry.Status == RunStatusSuccess,
			Message:   fmt.Sprintf("%s %s: %d processed, %d failed", entry.Operation, entry.Status, entry.RecordsProcessed, entry.RecordsFailed),
			Timestamp: entry.Timestamp,
		})
	}

	if s.AuditService == nil {
		return
	}
	err := s.AuditService.LogChange(ctx, entry.CustomerID, common_models.AuditActionSync, auditModule, entry.ID.Hex(), map[string]common_models.Change{
		"status":    {New: entry.Status},
		"processed": {New: entry.RecordsProcessed},
		"failed":    {New: entry.RecordsFailed},
	})
	if err != nil {
		s.Log.Warn("failed to write audit log", zap.String("customerId", entry.CustomerID), zap.Error(err))
	}
}

func clampLimit(limit int64) int64 {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func (s *BookkeeperImpl) ListLinks(ctx context.Context, customerID, contactID string) ([]ContactLink, error) {
	return s.Links.List(ctx, customerID, contactID)
}

func (s *BookkeeperImpl) ListConflicts(ctx context.Context, customerID, contactID string, limit int64) ([]ConflictLog, error) {
	return s.Conflicts.List(ctx, customerID, contactID, clampLimit(limit))
}

func (s *BookkeeperImpl) ListRuns(ctx context.Context, customerID string, provider common_models.Provider, limit int64) ([]SyncLog, error) {
	if provider != "" && !provider.Valid() {
		return nil, common_models.Validationf("unknown provider %q", provider)
	}
	return s.Runs.List(ctx, customerID, provider, clampLimit(limit))
}

func isNotFound(err error) bool {
	return errors.Is(err, common_models.ErrNotFound)
}
