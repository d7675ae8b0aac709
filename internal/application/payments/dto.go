package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/payment"
)

// FundingSource selects where a payment's money comes from
type FundingSource string

const (
	// FundingAccount moves money through a cash or bank account
	FundingAccount FundingSource = "ACCOUNT"
	// FundingAdvance consumes an existing advance's remaining credit
	FundingAdvance FundingSource = "ADVANCE"
)

// AllocationRequest applies part of a payment to one document
type AllocationRequest struct {
	DocumentID uuid.UUID       `json:"document_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
}

// CreatePaymentRequest creates a receipt or payment. Funding is a
// tagged variant: ACCOUNT requires AccountID, ADVANCE requires
// SourceAdvanceID. The amount left after allocations is retained as an
// advance; advance-funded payments must allocate the full amount.
type CreatePaymentRequest struct {
	Type            payment.Type        `json:"type" validate:"required"`
	Mode            payment.Mode        `json:"mode" validate:"required"`
	PartyID         uuid.UUID           `json:"party_id" validate:"required"`
	Funding         FundingSource       `json:"funding" validate:"required"`
	AccountID       *uuid.UUID          `json:"account_id"`
	SourceAdvanceID *uuid.UUID          `json:"source_advance_id"`
	Amount          decimal.Decimal     `json:"amount" validate:"required"`
	Allocations     []AllocationRequest `json:"allocations" validate:"dive"`
	ReferenceNumber string              `json:"reference_number" validate:"max=100"`
	Remarks         string              `json:"remarks" validate:"max=1000"`
	PaymentDate     *time.Time          `json:"payment_date"`
	IdempotencyKey  string              `json:"idempotency_key" validate:"max=100"`
}

// AdjustAdvanceRequest consumes part of an advance against a document
type AdjustAdvanceRequest struct {
	PaymentID      uuid.UUID       `json:"payment_id" validate:"required"`
	DocumentID     uuid.UUID       `json:"document_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	Remarks        string          `json:"remarks" validate:"max=255"`
	IdempotencyKey string          `json:"idempotency_key" validate:"max=100"`
}

// AllocationResponse is one settled document of a payment
type AllocationResponse struct {
	DocumentID     uuid.UUID       `json:"document_id"`
	DocumentNumber string          `json:"document_number"`
	Amount         decimal.Decimal `json:"amount"`
	FromAdvance    bool            `json:"from_advance"`
}

// PaymentResponse is the payment state returned by the engine
type PaymentResponse struct {
	PaymentID       uuid.UUID             `json:"payment_id"`
	PaymentNumber   string                `json:"payment_number"`
	Type            payment.Type          `json:"type"`
	Status          payment.Status        `json:"status"`
	PartyID         uuid.UUID             `json:"party_id"`
	PartyName       string                `json:"party_name"`
	ReferenceType   payment.ReferenceType `json:"reference_type"`
	Amount          decimal.Decimal       `json:"amount"`
	AllocatedAmount decimal.Decimal       `json:"allocated_amount"`
	AdvanceBalance  decimal.Decimal       `json:"advance_balance"`
	IsAdvance       bool                  `json:"is_advance"`
	Allocations     []AllocationResponse  `json:"allocations"`
	VoucherNumber   string                `json:"voucher_number,omitempty"`
}

// NewPaymentResponse maps a payment aggregate to its response
func NewPaymentResponse(p *payment.Payment, voucherNumber string) *PaymentResponse {
	allocations := make([]AllocationResponse, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		allocations = append(allocations, AllocationResponse{
			DocumentID:     a.DocumentID,
			DocumentNumber: a.DocumentNumber,
			Amount:         a.Amount,
			FromAdvance:    a.FromAdvance,
		})
	}
	return &PaymentResponse{
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		Type:            p.Type,
		Status:          p.Status,
		PartyID:         p.PartyID,
		PartyName:       p.PartyName,
		ReferenceType:   p.ReferenceType,
		Amount:          p.Amount,
		AllocatedAmount: p.AllocatedAmount,
		AdvanceBalance:  p.AdvanceBalance,
		IsAdvance:       p.IsAdvance,
		Allocations:     allocations,
		VoucherNumber:   voucherNumber,
	}
}

// ReversalResponse describes what a reversal compensated
type ReversalResponse struct {
	PaymentID          uuid.UUID       `json:"payment_id"`
	PaymentNumber      string          `json:"payment_number"`
	AllocationsUndone  int             `json:"allocations_undone"`
	OutstandingRestore decimal.Decimal `json:"outstanding_restore"`
	AdvanceForfeited   decimal.Decimal `json:"advance_forfeited"`
	AccountRestored    decimal.Decimal `json:"account_restored"`
	VoucherNumber      string          `json:"voucher_number"`
}
