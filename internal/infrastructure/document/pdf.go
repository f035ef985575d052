// Package document renders regularization statements as PDF documents and
// XLSX workbooks.
package document

import (
	"bytes"
	"fmt"

	appreg "github.com/coridor/backend/internal/application/regularization"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

const dateLayout = "02/01/2006"

// PDFRenderer renders statements with gofpdf.
type PDFRenderer struct {
	issuer string
}

// NewPDFRenderer creates a renderer. issuer is printed in the header.
func NewPDFRenderer(issuer string) *PDFRenderer {
	if issuer == "" {
		issuer = "Coridor"
	}
	return &PDFRenderer{issuer: issuer}
}

// RenderPDF renders doc as a single A4 document.
func (r *PDFRenderer) RenderPDF(doc *appreg.StatementDocument) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("statement document is nil")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Service charge regularization %d", doc.Year), true)
	pdf.SetAuthor(r.issuer, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Service charge regularization %d", doc.Year)))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	writeLine(pdf, tr, "Issued by", r.issuer)
	writeLine(pdf, tr, "Tenant", doc.TenantName)
	writeLine(pdf, tr, "Unit", doc.UnitName)
	writeLine(pdf, tr, "Address", doc.PropertyAddress)
	writeLine(pdf, tr, "Period", fmt.Sprintf("%s - %s", doc.PeriodStart.Format(dateLayout), doc.PeriodEnd.Format(dateLayout)))
	writeLine(pdf, tr, "Issued on", doc.IssuedAt.Format(dateLayout))
	if doc.Committed() {
		writeLine(pdf, tr, "Reference", doc.ReconciliationID.String())
	} else {
		writeLine(pdf, tr, "Status", "Preview, not committed")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, "Recoverable expenses")
	pdf.Ln(7)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(25, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Category", "1", 0, "C", false, 0, "")
	pdf.CellFormat(70, 6, "Label", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Recoverable", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, line := range doc.Lines {
		pdf.CellFormat(25, 6, line.Date.Format(dateLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, tr(line.Category), "1", 0, "L", false, 0, "")
		pdf.CellFormat(70, 6, tr(truncate(line.Label, 45)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, money(line.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, money(line.Recoverable), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	if len(doc.Lines) == 0 {
		pdf.CellFormat(190, 6, "No recoverable expense for this period", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, "Provisions paid")
	pdf.Ln(7)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(30, 6, "From", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "To", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Days", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Monthly charge", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, p := range doc.Provisions {
		pdf.CellFormat(30, 6, p.From.Format(dateLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, p.To.Format(dateLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", p.Days), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, money(p.MonthlyCharge), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, money(p.Amount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 10)
	writeLine(pdf, tr, "Total recoverable expenses", money(doc.TotalRecoverableExpenses))
	writeLine(pdf, tr, "Total provisions", money(doc.TotalProvisions))
	pdf.SetFont("Arial", "B", 11)
	writeLine(pdf, tr, balanceLabel(doc), money(doc.Balance.Abs()))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render statement pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeLine(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.CellFormat(60, 6, tr(label), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(value), "", 0, "L", false, 0, "")
	pdf.Ln(6)
}

func balanceLabel(doc *appreg.StatementDocument) string {
	switch {
	case doc.TenantOwes():
		return "Balance due by the tenant"
	case doc.Balance.IsNegative():
		return "Refund due to the tenant"
	default:
		return "Balance"
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2) + " EUR"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "."
}
