package contact

import (
	"context"
	"errors"
	"testing"
	"time"

	common_models "contacts-sync/internal/common/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(repo *memoryContactRepository, auditSvc *recordingAudit) *ContactServiceImpl {
	svc := NewContactService(repo, auditSvc, zap.NewNop()).(*ContactServiceImpl)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return svc
}

func validInput() ContactInput {
	return ContactInput{Name: "Ann", Email: "a@x.com", Phone: "555", JobTitle: "Eng", Pronouns: "she/her"}
}

func TestCreateContactAssignsIDAndTimestamps(t *testing.T) {
	repo := newMemoryContactRepository()
	auditSvc := &recordingAudit{}
	svc := newTestService(repo, auditSvc)

	contact, err := svc.CreateContact(context.Background(), "cust_1", validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, contact.ID)
	assert.Equal(t, "cust_1", contact.CustomerID)
	assert.False(t, contact.CreatedAt.IsZero())
	assert.Equal(t, contact.CreatedAt, contact.UpdatedAt)
	require.NotNil(t, contact.LastAppModified)
	assert.Empty(t, contact.SyncedToCRMs)
	assert.Equal(t, []common_models.AuditAction{common_models.AuditActionCreate}, auditSvc.actions)

	other, err := svc.CreateContact(context.Background(), "cust_1", validInput())
	require.NoError(t, err)
	assert.NotEqual(t, contact.ID, other.ID)
}

func TestCreateContactTrimsFields(t *testing.T) {
	svc := newTestService(newMemoryContactRepository(), &recordingAudit{})

	in := validInput()
	in.Name = "  Ann  "
	contact, err := svc.CreateContact(context.Background(), "cust_1", in)
	require.NoError(t, err)
	assert.Equal(t, "Ann", contact.Name)
}

func TestCreateContactRequiresEveryField(t *testing.T) {
	drops := map[string]func(*ContactInput){
		"name":     func(in *ContactInput) { in.Name = "" },
		"email":    func(in *ContactInput) { in.Email = "" },
		"phone":    func(in *ContactInput) { in.Phone = "" },
		"jobTitle": func(in *ContactInput) { in.JobTitle = "" },
		"pronouns": func(in *ContactInput) { in.Pronouns = "   " },
	}

	for field, drop := range drops {
		t.Run(field, func(t *testing.T) {
			repo := newMemoryContactRepository()
			// Any store access would surface this error instead of a validation error.
			repo.failNext = errors.New("store touched")
			svc := newTestService(repo, &recordingAudit{})

			in := validInput()
			drop(&in)
			_, err := svc.CreateContact(context.Background(), "cust_1", in)

			require.ErrorIs(t, err, common_models.ErrValidation)
			assert.Contains(t, err.Error(), field)
			assert.Equal(t, 0, repo.count())
		})
	}
}

func TestContactsAreIsolatedBetweenCustomers(t *testing.T) {
	repo := newMemoryContactRepository()
	svc := newTestService(repo, &recordingAudit{})
	ctx := context.Background()

	owned, err := svc.CreateContact(ctx, "cust_a", validInput())
	require.NoError(t, err)

	list, err := svc.ListContacts(ctx, "cust_b")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.GetContact(ctx, "cust_b", owned.ID)
	assert.ErrorIs(t, err, common_models.ErrNotFound)

	_, err = svc.UpdateContact(ctx, "cust_b", owned.ID, ContactInput{Name: "Mallory"})
	assert.ErrorIs(t, err, common_models.ErrNotFound)

	err = svc.DeleteContact(ctx, "cust_b", owned.ID)
	assert.ErrorIs(t, err, common_models.ErrNotFound)

	stored, err := svc.GetContact(ctx, "cust_a", owned.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", stored.Name)
}

func TestListContactsNewestFirst(t *testing.T) {
	svc := newTestService(newMemoryContactRepository(), &recordingAudit{})
	ctx := context.Background()

	first, err := svc.CreateContact(ctx, "cust_1", validInput())
	require.NoError(t, err)
	second, err := svc.CreateContact(ctx, "cust_1", validInput())
	require.NoError(t, err)

	list, err := svc.ListContacts(ctx, "cust_1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestUpdateContactAppliesNonEmptyFields(t *testing.T) {
	auditSvc := &recordingAudit{}
	svc := newTestService(newMemoryContactRepository(), auditSvc)
	ctx := context.Background()

	created, err := svc.CreateContact(ctx, "cust_1", validInput())
	require.NoError(t, err)

	updated, err := svc.UpdateContact(ctx, "cust_1", created.ID, ContactInput{Pronouns: "they/them"})
	require.NoError(t, err)

	assert.Equal(t, "they/them", updated.Pronouns)
	assert.Equal(t, "Ann", updated.Name)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, []common_models.AuditAction{common_models.AuditActionCreate, common_models.AuditActionUpdate}, auditSvc.actions)
}

func TestUpdateContactMissingIDAndUnknownID(t *testing.T) {
	repo := newMemoryContactRepository()
	svc := newTestService(repo, &recordingAudit{})
	ctx := context.Background()

	_, err := svc.UpdateContact(ctx, "cust_1", "", validInput())
	assert.ErrorIs(t, err, common_models.ErrValidation)

	_, err = svc.UpdateContact(ctx, "cust_1", "missing", validInput())
	assert.ErrorIs(t, err, common_models.ErrNotFound)
	assert.Equal(t, 0, repo.count())
}

func TestDeleteContact(t *testing.T) {
	repo := newMemoryContactRepository()
	auditSvc := &recordingAudit{}
	svc := newTestService(repo, auditSvc)
	ctx := context.Background()

	created, err := svc.CreateContact(ctx, "cust_1", validInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteContact(ctx, "cust_1", created.ID))
	assert.Equal(t, 0, repo.count())
	assert.ErrorIs(t, svc.DeleteContact(ctx, "cust_1", created.ID), common_models.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteContact(ctx, "cust_1", ""), common_models.ErrValidation)
	assert.Contains(t, auditSvc.actions, common_models.AuditActionDelete)
}

func TestAuditFailureDoesNotFailWrite(t *testing.T) {
	repo := newMemoryContactRepository()
	svc := newTestService(repo, &recordingAudit{err: errors.New("audit down")})

	_, err := svc.CreateContact(context.Background(), "cust_1", validInput())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.count())
}

func TestMarkSyncedIsASet(t *testing.T) {
	svc := newTestService(newMemoryContactRepository(), &recordingAudit{})
	ctx := context.Background()

	created, err := svc.CreateContact(ctx, "cust_1", validInput())
	require.NoError(t, err)

	require.NoError(t, svc.MarkSynced(ctx, "cust_1", created.ID, common_models.ProviderHubSpot))
	require.NoError(t, svc.MarkSynced(ctx, "cust_1", created.ID, common_models.ProviderHubSpot))
	assert.ErrorIs(t, svc.MarkSynced(ctx, "cust_1", created.ID, "salesforce"), common_models.ErrValidation)
	assert.ErrorIs(t, svc.MarkSynced(ctx, "cust_2", created.ID, common_models.ProviderHubSpot), common_models.ErrNotFound)

	stored, err := svc.GetContact(ctx, "cust_1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"hubspot"}, stored.SyncedToCRMs)
}
