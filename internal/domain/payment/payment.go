package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/party"
	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/shared/valueobject"
)

// Type represents the direction of a payment transaction
type Type string

const (
	// TypeReceipt is money received from a customer
	TypeReceipt Type = "RECEIPT"
	// TypePayment is money paid out to a supplier
	TypePayment Type = "PAYMENT"
)

// String returns the string representation of Type
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the payment type is valid
func (t Type) IsValid() bool {
	switch t {
	case TypeReceipt, TypePayment:
		return true
	}
	return false
}

// Prefix returns the payment number prefix for this type
func (t Type) Prefix() string {
	switch t {
	case TypeReceipt:
		return "RCP"
	case TypePayment:
		return "PAY"
	}
	return ""
}

// PartySide returns the party type this payment type settles against:
// receipts come from customers, payments go to suppliers.
func (t Type) PartySide() party.PartyType {
	if t == TypeReceipt {
		return party.PartyTypeCustomer
	}
	return party.PartyTypeSupplier
}

// Mode represents the method of payment
type Mode string

const (
	ModeCash         Mode = "CASH"
	ModeBankTransfer Mode = "BANK_TRANSFER"
	ModeCheque       Mode = "CHEQUE"
	ModeUPI          Mode = "UPI"
)

// String returns the string representation of Mode
func (m Mode) String() string {
	return string(m)
}

// IsValid returns true if the payment mode is valid
func (m Mode) IsValid() bool {
	switch m {
	case ModeCash, ModeBankTransfer, ModeCheque, ModeUPI:
		return true
	}
	return false
}

// Status represents the status of a payment transaction
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusReversed  Status = "REVERSED"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// ReferenceType describes what a payment settles, derived from its
// allocations when the payment is finalized
type ReferenceType string

const (
	// ReferenceTypeInvoice is a single sales invoice
	ReferenceTypeInvoice ReferenceType = "INVOICE"
	// ReferenceTypePurchaseBill is a single purchase bill
	ReferenceTypePurchaseBill ReferenceType = "PURCHASE_BILL"
	// ReferenceTypeMultiple is an allocation across several documents
	ReferenceTypeMultiple ReferenceType = "MULTIPLE"
	// ReferenceTypeOnAccount is a fully unallocated on-account amount
	ReferenceTypeOnAccount ReferenceType = "ON_ACCOUNT"
)

// String returns the string representation of ReferenceType
func (r ReferenceType) String() string {
	return string(r)
}

// Allocation represents the application of part of a payment to a
// document's open balance. A payment may carry several allocations and
// a document may receive allocations from several payments.
type Allocation struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PaymentID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentNumber string          `gorm:"type:varchar(50);not null"` // Denormalized for display
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	FromAdvance    bool            `gorm:"not null;default:false"` // Created by a later advance adjustment
	CreatedAt      time.Time
}

// TableName returns the table name for GORM
func (Allocation) TableName() string {
	return "invoice_payment_allocations"
}

// NewAllocation creates a new allocation record
func NewAllocation(paymentID, documentID uuid.UUID, documentNumber string, amount valueobject.Money, fromAdvance bool) *Allocation {
	return &Allocation{
		ID:             uuid.New(),
		PaymentID:      paymentID,
		DocumentID:     documentID,
		DocumentNumber: documentNumber,
		Amount:         amount.Amount(),
		FromAdvance:    fromAdvance,
		CreatedAt:      time.Now(),
	}
}

// GetAmountMoney returns the allocation amount as Money
func (a *Allocation) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyINR(a.Amount)
}

// AdvanceAdjustment is the audit record of one advance consumption:
// which payment's advance went to which document for how much. It is a
// history row only and reconstructs what an advance was used for; the
// payment's AdvanceBalance stays the single source of truth for the
// remaining credit.
type AdvanceAdjustment struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PaymentID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentNumber string          `gorm:"type:varchar(50);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Remarks        string          `gorm:"type:varchar(255)"`
	AdjustedAt     time.Time       `gorm:"type:timestamptz;not null"`
	CreatedAt      time.Time
}

// TableName returns the table name for GORM
func (AdvanceAdjustment) TableName() string {
	return "advance_adjustments"
}

// Payment represents a payment transaction aggregate root: a receipt
// from a customer or a payment to a supplier. The amount not allocated
// to documents is retained as an advance. At all times
// AllocatedAmount + AdvanceBalance equals Amount.
type Payment struct {
	shared.BaseAggregateRoot
	PaymentNumber   string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Type            Type            `gorm:"type:varchar(20);not null;index"`
	Mode            Mode            `gorm:"type:varchar(20);not null"`
	Status          Status          `gorm:"type:varchar(20);not null;default:'COMPLETED';index"`
	PartyType       party.PartyType `gorm:"type:varchar(20);not null"`
	PartyID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartyName       string          `gorm:"type:varchar(200);not null"`
	ReferenceType   ReferenceType   `gorm:"type:varchar(20);not null"`             // Derived by Finalize
	ReferenceID     *uuid.UUID      `gorm:"type:uuid"`                             // Set for single-document payments
	AccountID       *uuid.UUID      `gorm:"type:uuid;index"`                       // Nil when funded from an advance
	SourceAdvanceID *uuid.UUID      `gorm:"type:uuid;index"`                       // The advance this payment was funded from
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AllocatedAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AdvanceBalance  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Never negative
	IsAdvance       bool            `gorm:"not null;default:false"`                // Carried an unallocated remainder at creation
	Allocations     []Allocation    `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE"`
	ReferenceNumber string          `gorm:"type:varchar(100)"` // Cheque number, UTR, UPI reference
	Remarks         string          `gorm:"type:text"`
	PaymentDate     time.Time       `gorm:"type:timestamptz;not null;index"`
	ReversedAt      *time.Time
	ReversalReason  string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payment_transactions"
}

// NewPayment creates a new completed payment funded from a cash or bank
// account. The full amount starts as advance balance; Allocate moves it
// onto documents and Finalize fixes the IsAdvance flag from whatever
// remains.
func NewPayment(
	number string,
	pType Type,
	mode Mode,
	partyID uuid.UUID,
	partyName string,
	accountID uuid.UUID,
	amount valueobject.Money,
	paymentDate time.Time,
) (*Payment, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewValidationError("account ID cannot be empty")
	}
	return newPayment(number, pType, mode, partyID, partyName, &accountID, nil, amount, paymentDate)
}

// NewAdvanceFundedPayment creates a payment funded by consuming an
// existing advance instead of moving money through an account: no
// account balance changes, the source advance's remaining credit is
// decremented by the caller in the same transaction.
func NewAdvanceFundedPayment(
	number string,
	pType Type,
	mode Mode,
	partyID uuid.UUID,
	partyName string,
	sourceAdvanceID uuid.UUID,
	amount valueobject.Money,
	paymentDate time.Time,
) (*Payment, error) {
	if sourceAdvanceID == uuid.Nil {
		return nil, shared.NewValidationError("source advance ID cannot be empty")
	}
	return newPayment(number, pType, mode, partyID, partyName, nil, &sourceAdvanceID, amount, paymentDate)
}

func newPayment(
	number string,
	pType Type,
	mode Mode,
	partyID uuid.UUID,
	partyName string,
	accountID *uuid.UUID,
	sourceAdvanceID *uuid.UUID,
	amount valueobject.Money,
	paymentDate time.Time,
) (*Payment, error) {
	if number == "" {
		return nil, shared.NewValidationError("payment number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewValidationError("payment number cannot exceed 50 characters")
	}
	if !pType.IsValid() {
		return nil, shared.NewValidationError("payment type must be RECEIPT or PAYMENT")
	}
	if !mode.IsValid() {
		return nil, shared.NewValidationError("invalid payment mode")
	}
	if partyID == uuid.Nil {
		return nil, shared.NewValidationError("party ID cannot be empty")
	}
	if partyName == "" {
		return nil, shared.NewValidationError("party name cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("payment amount must be positive")
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PaymentNumber:     number,
		Type:              pType,
		Mode:              mode,
		Status:            StatusCompleted,
		PartyType:         pType.PartySide(),
		PartyID:           partyID,
		PartyName:         partyName,
		AccountID:         accountID,
		SourceAdvanceID:   sourceAdvanceID,
		Amount:            amount.Amount(),
		AllocatedAmount:   decimal.Zero,
		AdvanceBalance:    amount.Amount(),
		Allocations:       make([]Allocation, 0),
		PaymentDate:       paymentDate,
	}, nil
}

// WithReferenceNumber sets the external payment reference
func (p *Payment) WithReferenceNumber(reference string) *Payment {
	p.ReferenceNumber = reference
	return p
}

// WithRemarks sets the remarks
func (p *Payment) WithRemarks(remarks string) *Payment {
	p.Remarks = remarks
	return p
}

// Allocate applies part of the payment to a document's open balance
// during creation. The amount must not exceed the unallocated remainder.
func (p *Payment) Allocate(documentID uuid.UUID, documentNumber string, amount valueobject.Money) (*Allocation, error) {
	return p.allocate(documentID, documentNumber, amount, false)
}

// Finalize fixes the IsAdvance flag and the settlement reference once
// creation-time allocation is done, and publishes the created event.
// Must be called exactly once, before the payment is persisted.
func (p *Payment) Finalize() error {
	if p.ReferenceType != "" {
		return shared.NewInvalidStateError("payment is already finalized")
	}

	p.IsAdvance = p.AdvanceBalance.IsPositive()

	switch len(p.Allocations) {
	case 0:
		p.ReferenceType = ReferenceTypeOnAccount
	case 1:
		if p.Type == TypeReceipt {
			p.ReferenceType = ReferenceTypeInvoice
		} else {
			p.ReferenceType = ReferenceTypePurchaseBill
		}
		docID := p.Allocations[0].DocumentID
		p.ReferenceID = &docID
	default:
		p.ReferenceType = ReferenceTypeMultiple
	}

	p.AddDomainEvent(NewPaymentCreatedEvent(p))

	return nil
}

// ConsumeAdvance applies part of this payment's advance balance to a
// document after creation. It returns the allocation that settles the
// document and the adjustment history row the caller persists as the
// audit trail of what this advance was used for.
func (p *Payment) ConsumeAdvance(documentID uuid.UUID, documentNumber string, amount valueobject.Money, remarks string) (*Allocation, *AdvanceAdjustment, error) {
	if !p.IsAdvance {
		return nil, nil, shared.NewInvalidStateError("payment %s is not an advance", p.PaymentNumber)
	}

	oldAdvance := p.AdvanceBalance

	alloc, err := p.allocate(documentID, documentNumber, amount, true)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	adjustment := &AdvanceAdjustment{
		ID:             uuid.New(),
		PaymentID:      p.ID,
		DocumentID:     documentID,
		DocumentNumber: documentNumber,
		Amount:         alloc.Amount,
		Remarks:        remarks,
		AdjustedAt:     now,
		CreatedAt:      now,
	}

	p.AddDomainEvent(NewAdvanceAdjustedEvent(p, documentID, alloc.Amount, oldAdvance, p.AdvanceBalance))

	return alloc, adjustment, nil
}

func (p *Payment) allocate(documentID uuid.UUID, documentNumber string, amount valueobject.Money, fromAdvance bool) (*Allocation, error) {
	if p.Status != StatusCompleted {
		return nil, shared.NewInvalidStateError("cannot allocate a payment in %s status", p.Status)
	}
	if documentID == uuid.Nil {
		return nil, shared.NewValidationError("document ID cannot be empty")
	}
	if documentNumber == "" {
		return nil, shared.NewValidationError("document number cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("allocation amount must be positive")
	}
	if amount.Amount().GreaterThan(p.AdvanceBalance) {
		return nil, shared.NewInsufficientFundsError(p.AdvanceBalance, amount.Amount())
	}

	alloc := NewAllocation(p.ID, documentID, documentNumber, amount, fromAdvance)
	p.Allocations = append(p.Allocations, *alloc)

	p.AllocatedAmount = p.AllocatedAmount.Add(amount.Amount())
	p.AdvanceBalance = p.Amount.Sub(p.AllocatedAmount)

	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return alloc, nil
}

// ReversalResult describes everything the application service must
// compensate when a payment is reversed.
type ReversalResult struct {
	// AllocationsUndone are the allocation rows whose document
	// settlements must be backed out.
	AllocationsUndone []Allocation
	// OutstandingRestore is the amount to add back to the party's
	// outstanding: the full payment amount, mirroring the full-amount
	// decrement at creation.
	OutstandingRestore decimal.Decimal
	// AdvanceForfeited is the unconsumed advance that was zeroed.
	AdvanceForfeited decimal.Decimal
	// AccountID is the funding account to correct, nil when the payment
	// was funded from an advance.
	AccountID *uuid.UUID
	// AccountDelta is the signed amount to apply to the account balance
	// (the negation of the original money movement).
	AccountDelta decimal.Decimal
}

// Reverse reverses the payment: allocations are reported for undoing,
// the party outstanding is restored by the full amount, the remaining
// advance is forfeited and the money movement on the account is
// negated. Reversing an already reversed payment fails, which makes the
// operation safe against retries. The row itself is never deleted.
func (p *Payment) Reverse(reason string) (*ReversalResult, error) {
	if p.Status == StatusReversed {
		return nil, shared.NewInvalidStateError("payment has already been reversed")
	}
	if reason == "" {
		return nil, shared.NewValidationError("reversal reason is required")
	}

	undone := make([]Allocation, len(p.Allocations))
	copy(undone, p.Allocations)

	result := &ReversalResult{
		AllocationsUndone:  undone,
		OutstandingRestore: p.Amount,
		AdvanceForfeited:   p.AdvanceBalance,
		AccountID:          p.AccountID,
		AccountDelta:       p.SignedAmount().Neg(),
	}

	now := time.Now()
	p.Status = StatusReversed
	p.AdvanceBalance = decimal.Zero
	p.ReversedAt = &now
	p.ReversalReason = reason
	if p.Remarks == "" {
		p.Remarks = fmt.Sprintf("REVERSED: %s", reason)
	} else {
		p.Remarks = fmt.Sprintf("%s | REVERSED: %s", p.Remarks, reason)
	}
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentReversedEvent(p, result))

	return result, nil
}

// SignedAmount returns the payment's effect on the cash/bank account:
// positive for receipts, negative for payments out, zero for
// advance-funded payments that never moved account money.
func (p *Payment) SignedAmount() decimal.Decimal {
	if p.AccountID == nil {
		return decimal.Zero
	}
	if p.Type == TypePayment {
		return p.Amount.Neg()
	}
	return p.Amount
}

// IsAccountFunded returns true when a real account moved money
func (p *Payment) IsAccountFunded() bool {
	return p.AccountID != nil
}

// IsBalanced reports whether allocations and advance still add up to
// the payment amount. Reversed payments carry their allocations as
// history and are exempt.
func (p *Payment) IsBalanced() bool {
	if p.Status == StatusReversed {
		return p.AdvanceBalance.IsZero()
	}
	sum := decimal.Zero
	for _, alloc := range p.Allocations {
		sum = sum.Add(alloc.Amount)
	}
	return sum.Add(p.AdvanceBalance).Equal(p.Amount) && sum.Equal(p.AllocatedAmount)
}

// IsCompleted returns true if the payment is completed
func (p *Payment) IsCompleted() bool {
	return p.Status == StatusCompleted
}

// IsReversed returns true if the payment has been reversed
func (p *Payment) IsReversed() bool {
	return p.Status == StatusReversed
}

// HasAdvance returns true if unconsumed advance remains
func (p *Payment) HasAdvance() bool {
	return p.Status == StatusCompleted && p.AdvanceBalance.IsPositive()
}

// AllocationCount returns the number of allocations
func (p *Payment) AllocationCount() int {
	return len(p.Allocations)
}

// GetAmountMoney returns the payment amount as Money
func (p *Payment) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyINR(p.Amount)
}

// GetAllocatedAmountMoney returns the allocated amount as Money
func (p *Payment) GetAllocatedAmountMoney() valueobject.Money {
	return valueobject.NewMoneyINR(p.AllocatedAmount)
}

// GetAdvanceBalanceMoney returns the advance balance as Money
func (p *Payment) GetAdvanceBalanceMoney() valueobject.Money {
	return valueobject.NewMoneyINR(p.AdvanceBalance)
}
