package document

import (
	"bytes"
	"fmt"

	appreg "github.com/coridor/backend/internal/application/regularization"
	"github.com/xuri/excelize/v2"
)

// Sheet names of exported workbooks.
const (
	SummarySheet    = "summary"
	ExpensesSheet   = "expenses"
	ProvisionsSheet = "provisions"
)

// XLSXExporter exports statements as excelize workbooks.
type XLSXExporter struct{}

// NewXLSXExporter creates an exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// ExportXLSX writes a summary sheet plus one sheet of expenses and one of
// provisions. Amounts are written as numbers with two decimals.
func (e *XLSXExporter) ExportXLSX(doc *appreg.StatementDocument) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("statement document is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ExpensesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ProvisionsSheet); err != nil {
		return nil, err
	}

	status := "preview"
	reference := ""
	if doc.Committed() {
		status = "committed"
		reference = doc.ReconciliationID.String()
	}

	summary := [][]any{
		{"Service charge regularization", doc.Year},
		{},
		{"Tenant", doc.TenantName},
		{"Unit", doc.UnitName},
		{"Address", doc.PropertyAddress},
		{"Period start", doc.PeriodStart.Format(appreg.DateLayout)},
		{"Period end", doc.PeriodEnd.Format(appreg.DateLayout)},
		{"Status", status},
		{"Reference", reference},
		{"Total provisions", doc.TotalProvisions.InexactFloat64()},
		{"Total recoverable expenses", doc.TotalRecoverableExpenses.InexactFloat64()},
		{"Balance", doc.Balance.InexactFloat64()},
	}
	if err := writeRows(f, SummarySheet, summary); err != nil {
		return nil, err
	}

	expenses := [][]any{{"Date", "Category", "Label", "Amount", "Recoverable"}}
	for _, line := range doc.Lines {
		expenses = append(expenses, []any{
			line.Date.Format(appreg.DateLayout),
			line.Category,
			line.Label,
			line.Amount.InexactFloat64(),
			line.Recoverable.InexactFloat64(),
		})
	}
	if err := writeRows(f, ExpensesSheet, expenses); err != nil {
		return nil, err
	}

	provisions := [][]any{{"From", "To", "Days", "Monthly charge", "Amount"}}
	for _, p := range doc.Provisions {
		provisions = append(provisions, []any{
			p.From.Format(appreg.DateLayout),
			p.To.Format(appreg.DateLayout),
			p.Days,
			p.MonthlyCharge.InexactFloat64(),
			p.Amount.InexactFloat64(),
		})
	}
	if err := writeRows(f, ProvisionsSheet, provisions); err != nil {
		return nil, err
	}

	if err := applyMoneyFormat(f, len(doc.Lines), len(doc.Provisions)); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write statement workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func applyMoneyFormat(f *excelize.File, lines, provisions int) error {
	format := "0.00"
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "B10", "B12", style); err != nil {
		return err
	}
	if lines > 0 {
		if err := f.SetCellStyle(ExpensesSheet, "D2", fmt.Sprintf("E%d", lines+1), style); err != nil {
			return err
		}
	}
	if provisions > 0 {
		if err := f.SetCellStyle(ProvisionsSheet, "D2", fmt.Sprintf("E%d", provisions+1), style); err != nil {
			return err
		}
	}
	return nil
}
