package finance

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeFinancialTransaction = "FinancialTransaction"

// Event type constants
const (
	EventTypeFinancialTransactionPosted = "FinancialTransactionPosted"
)

// FinancialTransactionPostedEvent is published when a financial
// transaction and its ledger legs are posted
type FinancialTransactionPostedEvent struct {
	shared.BaseDomainEvent
	TransactionID     uuid.UUID       `json:"transaction_id"`
	TransactionNumber string          `json:"transaction_number"`
	TransactionType   TransactionType `json:"transaction_type"`
	VoucherNumber     string          `json:"voucher_number"`
	PartyName         string          `json:"party_name"`
	Amount            decimal.Decimal `json:"amount"`
	BankImpact        decimal.Decimal `json:"bank_impact"`
	LegCount          int             `json:"leg_count"`
}

// NewFinancialTransactionPostedEvent creates a new FinancialTransactionPostedEvent
func NewFinancialTransactionPostedEvent(t *FinancialTransaction, legCount int) *FinancialTransactionPostedEvent {
	return &FinancialTransactionPostedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeFinancialTransactionPosted, AggregateTypeFinancialTransaction, t.ID),
		TransactionID:     t.ID,
		TransactionNumber: t.TransactionNumber,
		TransactionType:   t.TransactionType,
		VoucherNumber:     t.VoucherNumber,
		PartyName:         t.PartyName,
		Amount:            t.Amount,
		BankImpact:        t.BankImpact(),
		LegCount:          legCount,
	}
}
