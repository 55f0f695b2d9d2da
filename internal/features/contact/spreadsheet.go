package contact

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	common_models "contacts-sync/internal/common/models"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const exportSheet = "Contacts"

var exportHeader = []interface{}{"ID", "Name", "Email", "Phone", "Job Title", "Pronouns", "Created At", "Updated At"}

// importColumns maps normalized header cells to input fields.
var importColumns = map[string]func(*ContactInput, string){
	"name":     func(in *ContactInput, v string) { in.Name = v },
	"email":    func(in *ContactInput, v string) { in.Email = v },
	"phone":    func(in *ContactInput, v string) { in.Phone = v },
	"jobtitle": func(in *ContactInput, v string) { in.JobTitle = v },
	"pronouns": func(in *ContactInput, v string) { in.Pronouns = v },
}

type SkippedRow struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportResult struct {
	Imported int          `json:"imported"`
	Skipped  []SkippedRow `json:"skipped"`
}

func (s *ContactServiceImpl) ExportContacts(ctx context.Context, customerID string, w io.Writer) error {
	contacts, err := s.Repo.List(ctx, customerID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return err
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, c := range contacts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			c.ID, c.Name, c.Email, c.Phone, c.JobTitle, c.Pronouns,
			c.CreatedAt.UTC().Format(time.RFC3339), c.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}

// ImportContacts reads the first sheet. Rows failing validation are skipped
// and reported by their spreadsheet row number; valid rows are inserted together.
func (s *ContactServiceImpl) ImportContacts(ctx context.Context, customerID string, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, common_models.Validationf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, common_models.Validationf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, common_models.Validationf("Excel file is empty")
	}

	columns := map[int]func(*ContactInput, string){}
	for i, cell := range rows[0] {
		if set, ok := importColumns[normalizeHeader(cell)]; ok {
			columns[i] = set
		}
	}
	if len(columns) == 0 {
		return nil, common_models.Validationf("header row has no recognised contact columns")
	}

	result := &ImportResult{Skipped: []SkippedRow{}}
	var contacts []Contact
	for i, row := range rows[1:] {
		rowNumber := i + 2
		if isBlankRow(row) {
			continue
		}

		var in ContactInput
		for col, value := range row {
			if set, ok := columns[col]; ok {
				set(&in, value)
			}
		}

		contact, err := s.newContact(customerID, in)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Row: rowNumber, Error: validationMessage(err)})
			continue
		}
		contacts = append(contacts, *contact)
	}

	if err := s.Repo.CreateMany(ctx, contacts); err != nil {
		return nil, fmt.Errorf("failed to import contacts: %w", err)
	}
	result.Imported = len(contacts)

	s.Log.Info("contacts imported",
		zap.String("customerId", customerID),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", len(result.Skipped)),
	)
	if result.Imported > 0 {
		s.audit(ctx, customerID, common_models.AuditActionImport, "", map[string]common_models.Change{
			"imported": {New: result.Imported},
		})
	}
	return result, nil
}

func normalizeHeader(cell string) string {
	cell = strings.ToLower(strings.TrimSpace(cell))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(cell)
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), common_models.ErrValidation.Error()+": ")
}
