package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	for input, want := range map[string]string{
		"":                     "DESC",
		"asc":                  "ASC",
		"  ASC ":               "ASC",
		"desc":                 "DESC",
		"ASC; DROP TABLE x;--": "DESC",
	} {
		assert.Equal(t, want, ValidateSortOrder(input), "input %q", input)
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "created_at"},
		{"date_occurred", "date_occurred"},
		{"  amount_total  ", "amount_total"},
		{"AMOUNT_TOTAL", "created_at"},
		{"is_finalized", "created_at"},
		{"label'--", "created_at"},
		{"category, (SELECT 1)", "created_at"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateSortField(tt.input, ExpenseSortFields, "created_at"), "input %q", tt.input)
	}
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "date_occurred ASC, id ASC", orderClause("date_occurred", "asc", ExpenseSortFields, "created_at"))
	assert.Equal(t, "created_at DESC, id DESC", orderClause("amount_total; DROP TABLE expenses", "", ExpenseSortFields, "created_at"))
}
