package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// PartySortFields contains allowed sort fields for parties
var PartySortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"code":        true,
	"name":        true,
	"type":        true,
	"status":      true,
	"outstanding": true,
}

// DocumentSortFields contains allowed sort fields for documents
var DocumentSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"document_number": true,
	"type":            true,
	"party_id":        true,
	"party_name":      true,
	"status":          true,
	"payment_status":  true,
	"grand_total":     true,
	"paid_amount":     true,
	"balance_amount":  true,
	"document_date":   true,
}

// MovementSortFields contains allowed sort fields for stock movements
var MovementSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"item_type":      true,
	"movement_type":  true,
	"reference_type": true,
	"reference_id":   true,
	"movement_date":  true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"payment_number":  true,
	"type":            true,
	"mode":            true,
	"status":          true,
	"party_id":        true,
	"party_name":      true,
	"amount":          true,
	"advance_balance": true,
	"payment_date":    true,
}

// AccountSortFields contains allowed sort fields for accounts
var AccountSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"type":       true,
	"status":     true,
	"balance":    true,
}

// FinancialTransactionSortFields contains allowed sort fields for financial transactions
var FinancialTransactionSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"transaction_number": true,
	"transaction_type":   true,
	"party_name":         true,
	"account_id":         true,
	"amount":             true,
	"voucher_number":     true,
	"transaction_date":   true,
}

// GeneralLedgerSortFields contains allowed sort fields for general ledger rows
var GeneralLedgerSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"voucher_number": true,
	"entry_date":     true,
	"account_head":   true,
	"ledger_type":    true,
	"reference_type": true,
}
