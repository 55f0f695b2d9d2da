package contact

import (
	"context"
	"fmt"
	"io"
	"time"

	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/features/audit"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const auditModule = "contacts"

type ContactService interface {
	ListContacts(ctx context.Context, customerID string) ([]Contact, error)
	GetContact(ctx context.Context, customerID, id string) (*Contact, error)
	CreateContact(ctx context.Context, customerID string, in ContactInput) (*Contact, error)
	UpdateContact(ctx context.Context, customerID, id string, in ContactInput) (*Contact, error)
	DeleteContact(ctx context.Context, customerID, id string) error
	MarkSynced(ctx context.Context, customerID, id string, provider common_models.Provider) error
	CustomerIDs(ctx context.Context) ([]string, error)
	ExportContacts(ctx context.Context, customerID string, w io.Writer) error
	ImportContacts(ctx context.Context, customerID string, r io.Reader) (*ImportResult, error)
}

type ContactServiceImpl struct {
	Repo         ContactRepository
	AuditService audit.AuditService
	Log          *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewContactService(repo ContactRepository, auditService audit.AuditService, log *zap.Logger) ContactService {
	return &ContactServiceImpl{
		Repo:         repo,
		AuditService: auditService,
		Log:          log.Named("contacts"),
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
}

func (s *ContactServiceImpl) ListContacts(ctx context.Context, customerID string) ([]Contact, error) {
	return s.Repo.List(ctx, customerID)
}

func (s *ContactServiceImpl) GetContact(ctx context.Context, customerID, id string) (*Contact, error) {
	if id == "" {
		return nil, common_models.Validationf("Contact ID is required")
	}
	return s.Repo.Get(ctx, customerID, id)
}

// newContact validates before anything touches the store.
func (s *ContactServiceImpl) newContact(customerID string, in ContactInput) (*Contact, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	return &Contact{
		ID:              s.newID(),
		Name:            in.Name,
		Email:           in.Email,
		Phone:           in.Phone,
		JobTitle:        in.JobTitle,
		Pronouns:        in.Pronouns,
		CustomerID:      customerID,
		SyncedToCRMs:    []string{},
		LastAppModified: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (s *ContactServiceImpl) CreateContact(ctx context.Context, customerID string, in ContactInput) (*Contact, error) {
	contact, err := s.newContact(customerID, in)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	s.audit(ctx, customerID, common_models.AuditActionCreate, contact.ID, map[string]common_models.Change{
		"contact": {New: contact},
	})
	return contact, nil
}

func (s *ContactServiceImpl) UpdateContact(ctx context.Context, customerID, id string, in ContactInput) (*Contact, error) {
	if id == "" {
		return nil, common_models.Validationf("Contact ID is required")
	}
	in = in.Normalize()

	old, err := s.Repo.Get(ctx, customerID, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.Repo.Update(ctx, customerID, id, in, s.now())
	if err != nil {
		return nil, err
	}

	if changes := old.diff(in); len(changes) > 0 {
		s.audit(ctx, customerID, common_models.AuditActionUpdate, id, changes)
	}
	return updated, nil
}

func (s *ContactServiceImpl) DeleteContact(ctx context.Context, customerID, id string) error {
	if id == "" {
		return common_models.Validationf("Contact ID is required")
	}

	if err := s.Repo.Delete(ctx, customerID, id); err != nil {
		return err
	}

	s.audit(ctx, customerID, common_models.AuditActionDelete, id, map[string]common_models.Change{
		"contact": {Old: id, New: "DELETED"},
	})
	return nil
}

func (s *ContactServiceImpl) MarkSynced(ctx context.Context, customerID, id string, provider common_models.Provider) error {
	if !provider.Valid() {
		return common_models.Validationf("unknown provider %q", provider)
	}
	return s.Repo.MarkSynced(ctx, customerID, id, string(provider))
}

func (s *ContactServiceImpl) CustomerIDs(ctx context.Context) ([]string, error) {
	return s.Repo.CustomerIDs(ctx)
}

// audit failures are logged, never returned: the contact write already happened.
func (s *ContactServiceImpl) audit(ctx context.Context, customerID string, action common_models.AuditAction, recordID string, changes map[string]common_models.Change) {
	if s.AuditService == nil {
		return
	}
	if err := s.AuditService.LogChange(ctx, customerID, action, auditModule, recordID, changes); err != nil {
		s.Log.Warn("failed to write audit log",
			zap.String("customerId", customerID),
			zap.String("action", string(action)),
			zap.String("recordId", recordID),
			zap.Error(err),
		)
	}
}
