// Package regularization orchestrates the charge regularization workflow:
// previews, commits, document delivery and the reference data they read.
package regularization

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentStore keeps rendered documents and returns a link to them
type DocumentStore interface {
	Store(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// DocumentRenderer renders a regularization statement as a PDF
type DocumentRenderer interface {
	RenderPDF(doc *StatementDocument) ([]byte, error)
}

// SpreadsheetExporter renders a regularization statement as an XLSX workbook
type SpreadsheetExporter interface {
	ExportXLSX(doc *StatementDocument) ([]byte, error)
}

// StatementDocument is the printable view of a statement, either a preview
// or a committed regularization
type StatementDocument struct {
	ReconciliationID *uuid.UUID
	Year             int
	PeriodStart      time.Time
	PeriodEnd        time.Time
	TenantName       string
	UnitName         string
	PropertyAddress  string

	TotalProvisions          decimal.Decimal
	TotalRecoverableExpenses decimal.Decimal
	Balance                  decimal.Decimal

	Lines      []DocumentLine
	Provisions []DocumentProvision
	IssuedAt   time.Time
}

// DocumentLine is one expense row of a statement document
type DocumentLine struct {
	Date        time.Time
	Category    string
	Label       string
	Amount      decimal.Decimal
	Recoverable decimal.Decimal
}

// DocumentProvision is one financial period row of a statement document
type DocumentProvision struct {
	From          time.Time
	To            time.Time
	Days          int
	MonthlyCharge decimal.Decimal
	Amount        decimal.Decimal
}

// TenantOwes reports whether the balance is due by the tenant
func (d *StatementDocument) TenantOwes() bool {
	return d.Balance.IsPositive()
}

// Committed reports whether the document describes a committed regularization
func (d *StatementDocument) Committed() bool {
	return d.ReconciliationID != nil
}
