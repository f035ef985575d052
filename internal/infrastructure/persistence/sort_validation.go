package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes a sort direction to ASC or DESC, defaulting to DESC.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "ASC") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, defaultField otherwise.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// orderClause builds a whitelisted ORDER BY with id as the tiebreaker so
// pages are stable.
func orderClause(sortField, orderDir string, allowedFields map[string]bool, defaultField string) string {
	field := ValidateSortField(sortField, allowedFields, defaultField)
	dir := ValidateSortOrder(orderDir)
	return field + " " + dir + ", id " + dir
}

// ExpenseSortFields contains allowed sort fields for expenses
var ExpenseSortFields = map[string]bool{
	"created_at":    true,
	"date_occurred": true,
	"amount_total":  true,
	"category":      true,
	"label":         true,
}
