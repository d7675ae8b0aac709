package payment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypePayment = "PaymentTransaction"

// Event type constants
const (
	EventTypePaymentCreated  = "PaymentCreated"
	EventTypeAdvanceAdjusted = "AdvanceAdjusted"
	EventTypePaymentReversed = "PaymentReversed"
)

// PaymentCreatedEvent is published when a payment is finalized
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentID       uuid.UUID       `json:"payment_id"`
	PaymentNumber   string          `json:"payment_number"`
	PaymentType     Type            `json:"payment_type"`
	PartyID         uuid.UUID       `json:"party_id"`
	Amount          decimal.Decimal `json:"amount"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	AdvanceBalance  decimal.Decimal `json:"advance_balance"`
	IsAdvance       bool            `json:"is_advance"`
}

// NewPaymentCreatedEvent creates a new PaymentCreatedEvent
func NewPaymentCreatedEvent(p *Payment) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCreated, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		PaymentType:     p.Type,
		PartyID:         p.PartyID,
		Amount:          p.Amount,
		AllocatedAmount: p.AllocatedAmount,
		AdvanceBalance:  p.AdvanceBalance,
		IsAdvance:       p.IsAdvance,
	}
}

// AdvanceAdjustedEvent is published when advance credit is consumed
// against a document
type AdvanceAdjustedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	PaymentNumber string          `json:"payment_number"`
	DocumentID    uuid.UUID       `json:"document_id"`
	Amount        decimal.Decimal `json:"amount"`
	OldAdvance    decimal.Decimal `json:"old_advance"`
	NewAdvance    decimal.Decimal `json:"new_advance"`
}

// NewAdvanceAdjustedEvent creates a new AdvanceAdjustedEvent
func NewAdvanceAdjustedEvent(p *Payment, documentID uuid.UUID, amount, oldAdvance, newAdvance decimal.Decimal) *AdvanceAdjustedEvent {
	return &AdvanceAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAdvanceAdjusted, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		DocumentID:      documentID,
		Amount:          amount,
		OldAdvance:      oldAdvance,
		NewAdvance:      newAdvance,
	}
}

// PaymentReversedEvent is published when a payment is reversed
type PaymentReversedEvent struct {
	shared.BaseDomainEvent
	PaymentID          uuid.UUID       `json:"payment_id"`
	PaymentNumber      string          `json:"payment_number"`
	PaymentType        Type            `json:"payment_type"`
	PartyID            uuid.UUID       `json:"party_id"`
	Amount             decimal.Decimal `json:"amount"`
	AllocationsUndone  int             `json:"allocations_undone"`
	OutstandingRestore decimal.Decimal `json:"outstanding_restore"`
	AdvanceForfeited   decimal.Decimal `json:"advance_forfeited"`
	Reason             string          `json:"reason"`
}

// NewPaymentReversedEvent creates a new PaymentReversedEvent
func NewPaymentReversedEvent(p *Payment, result *ReversalResult) *PaymentReversedEvent {
	return &PaymentReversedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypePaymentReversed, AggregateTypePayment, p.ID),
		PaymentID:          p.ID,
		PaymentNumber:      p.PaymentNumber,
		PaymentType:        p.Type,
		PartyID:            p.PartyID,
		Amount:             p.Amount,
		AllocationsUndone:  len(result.AllocationsUndone),
		OutstandingRestore: result.OutstandingRestore,
		AdvanceForfeited:   result.AdvanceForfeited,
		Reason:             p.ReversalReason,
	}
}
