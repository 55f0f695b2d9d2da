package contact

import (
	"bytes"
	"context"
	"testing"

	common_models "contacts-sync/internal/common/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildSheet(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestExportContactsWritesHeaderAndRows(t *testing.T) {
	svc := newTestService(newMemoryContactRepository(), &recordingAudit{})
	ctx := context.Background()

	created, err := svc.CreateContact(ctx, "cust_1", validInput())
	require.NoError(t, err)
	_, err = svc.CreateContact(ctx, "cust_2", validInput())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportContacts(ctx, "cust_1", &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Job Title", rows[0][4])
	assert.Equal(t, created.ID, rows[1][0])
	assert.Equal(t, "she/her", rows[1][5])
}

func TestImportContactsSkipsInvalidRows(t *testing.T) {
	repo := newMemoryContactRepository()
	auditSvc := &recordingAudit{}
	svc := newTestService(repo, auditSvc)

	sheet := buildSheet(t, [][]interface{}{
		{"Name", "E-mail", "Phone", "job_title", "Pronouns", "Notes"},
		{"Ann", "a@x.com", "555", "Eng", "she/her", "ignored"},
		{"Bob", "", "556", "Ops", "he/him"},
		{},
		{"Cy", "c@x.com", "557", "PM", "they/them"},
	})

	result, err := svc.ImportContacts(context.Background(), "cust_1", sheet)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 3, result.Skipped[0].Row)
	assert.Equal(t, "Missing required fields: email", result.Skipped[0].Error)
	assert.Equal(t, 2, repo.count())
	assert.Equal(t, []common_models.AuditAction{common_models.AuditActionImport}, auditSvc.actions)
}

func TestImportContactsRejectsUnknownHeader(t *testing.T) {
	repo := newMemoryContactRepository()
	svc := newTestService(repo, &recordingAudit{})

	sheet := buildSheet(t, [][]interface{}{{"foo", "bar"}, {"1", "2"}})

	_, err := svc.ImportContacts(context.Background(), "cust_1", sheet)
	assert.ErrorIs(t, err, common_models.ErrValidation)
	assert.Equal(t, 0, repo.count())
}

func TestImportContactsRejectsNonSpreadsheet(t *testing.T) {
	svc := newTestService(newMemoryContactRepository(), &recordingAudit{})

	_, err := svc.ImportContacts(context.Background(), "cust_1", bytes.NewBufferString("name,email\n"))
	assert.ErrorIs(t, err, common_models.ErrValidation)
}
