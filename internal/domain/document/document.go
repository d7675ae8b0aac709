package document

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/shared/valueobject"
)

// Type represents the kind of trade document
type Type string

const (
	TypeSalesInvoice Type = "SALES_INVOICE"
	TypePurchaseBill Type = "PURCHASE_BILL"
)

// String returns the string representation of Type
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the document type is valid
func (t Type) IsValid() bool {
	switch t {
	case TypeSalesInvoice, TypePurchaseBill:
		return true
	}
	return false
}

// Prefix returns the document number prefix for this type
func (t Type) Prefix() string {
	switch t {
	case TypeSalesInvoice:
		return "SI"
	case TypePurchaseBill:
		return "PB"
	}
	return ""
}

// Status represents the lifecycle status of a document
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
	StatusVoided    Status = "VOIDED"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusVoided:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusConfirmed
	case StatusConfirmed:
		return target == StatusVoided
	case StatusVoided:
		return false // Terminal state
	}
	return false
}

// PaymentStatus represents how much of a document has been settled
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// Line represents a line item in a trade document.
// Exactly one of RawMaterialID or FinishedProductID is set.
type Line struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	DocumentID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	RawMaterialID     *uuid.UUID      `gorm:"type:uuid;index"`
	FinishedProductID *uuid.UUID      `gorm:"type:uuid;index"`
	ItemName          string          `gorm:"type:varchar(200);not null"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Rate              decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Quantity * Rate
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName returns the table name for GORM
func (Line) TableName() string {
	return "document_lines"
}

// NewLine creates a new document line
func NewLine(documentID uuid.UUID, rawMaterialID, finishedProductID *uuid.UUID, itemName string, quantity, rate decimal.Decimal) (*Line, error) {
	if rawMaterialID != nil && finishedProductID != nil {
		return nil, shared.NewValidationError("line cannot reference both a raw material and a finished product")
	}
	if rawMaterialID == nil && finishedProductID == nil {
		return nil, shared.NewValidationError("line must reference a raw material or a finished product")
	}
	if rawMaterialID != nil && *rawMaterialID == uuid.Nil {
		return nil, shared.NewValidationError("raw material ID cannot be empty")
	}
	if finishedProductID != nil && *finishedProductID == uuid.Nil {
		return nil, shared.NewValidationError("finished product ID cannot be empty")
	}
	if itemName == "" {
		return nil, shared.NewValidationError("item name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("quantity must be positive")
	}
	if rate.IsNegative() {
		return nil, shared.NewValidationError("rate cannot be negative")
	}

	now := time.Now()
	return &Line{
		ID:                uuid.New(),
		DocumentID:        documentID,
		RawMaterialID:     rawMaterialID,
		FinishedProductID: finishedProductID,
		ItemName:          itemName,
		Quantity:          quantity,
		Rate:              rate,
		Amount:            quantity.Mul(rate),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// UpdateQuantity updates the line quantity and recalculates the amount
func (l *Line) UpdateQuantity(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("quantity must be positive")
	}

	l.Quantity = quantity
	l.Amount = quantity.Mul(l.Rate)
	l.UpdatedAt = time.Now()

	return nil
}

// UpdateRate updates the line rate and recalculates the amount
func (l *Line) UpdateRate(rate decimal.Decimal) error {
	if rate.IsNegative() {
		return shared.NewValidationError("rate cannot be negative")
	}

	l.Rate = rate
	l.Amount = l.Quantity.Mul(rate)
	l.UpdatedAt = time.Now()

	return nil
}

// IsRawMaterial returns true if the line references a raw material
func (l *Line) IsRawMaterial() bool {
	return l.RawMaterialID != nil
}

// ItemID returns the referenced item's ID
func (l *Line) ItemID() uuid.UUID {
	if l.RawMaterialID != nil {
		return *l.RawMaterialID
	}
	if l.FinishedProductID != nil {
		return *l.FinishedProductID
	}
	return uuid.Nil
}

// GetAmountMoney returns the line amount as Money
func (l *Line) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyINR(l.Amount)
}

// Document represents a trade document aggregate root: a sales invoice
// issued to a customer or a purchase bill received from a supplier. It
// owns the paid/balance arithmetic so payment status is derived in one
// place.
type Document struct {
	shared.BaseAggregateRoot
	DocumentNumber string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Type           Type            `gorm:"type:varchar(20);not null;index"`
	PartyID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartyName      string          `gorm:"type:varchar(200);not null"`
	Status         Status          `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	PaymentStatus  PaymentStatus   `gorm:"type:varchar(20);not null;default:'UNPAID';index"`
	Lines          []Line          `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Sum of line amounts
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	GrandTotal     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Subtotal + TaxAmount
	PaidAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BalanceAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // max(0, GrandTotal - PaidAmount)
	DocumentDate   time.Time       `gorm:"type:timestamptz;not null;index"`
	Remarks        string          `gorm:"type:text"`
	ConfirmedAt    *time.Time
	VoidedAt       *time.Time
	VoidReason     string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Document) TableName() string {
	return "documents"
}

// NewDocument creates a new draft document
func NewDocument(number string, docType Type, partyID uuid.UUID, partyName string, documentDate time.Time) (*Document, error) {
	if number == "" {
		return nil, shared.NewValidationError("document number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewValidationError("document number cannot exceed 50 characters")
	}
	if !docType.IsValid() {
		return nil, shared.NewValidationError("document type must be SALES_INVOICE or PURCHASE_BILL")
	}
	if partyID == uuid.Nil {
		return nil, shared.NewValidationError("party ID cannot be empty")
	}
	if partyName == "" {
		return nil, shared.NewValidationError("party name cannot be empty")
	}
	if documentDate.IsZero() {
		documentDate = time.Now()
	}

	doc := &Document{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DocumentNumber:    number,
		Type:              docType,
		PartyID:           partyID,
		PartyName:         partyName,
		Status:            StatusDraft,
		PaymentStatus:     PaymentStatusUnpaid,
		Lines:             make([]Line, 0),
		Subtotal:          decimal.Zero,
		TaxAmount:         decimal.Zero,
		GrandTotal:        decimal.Zero,
		PaidAmount:        decimal.Zero,
		BalanceAmount:     decimal.Zero,
		DocumentDate:      documentDate,
	}

	doc.AddDomainEvent(NewDocumentCreatedEvent(doc))

	return doc, nil
}

// AddLine adds a new line to the document.
// Only allowed in DRAFT status.
func (d *Document) AddLine(rawMaterialID, finishedProductID *uuid.UUID, itemName string, quantity, rate decimal.Decimal) (*Line, error) {
	if d.Status != StatusDraft {
		return nil, shared.NewInvalidStateError("cannot add lines to a non-draft document")
	}

	line, err := NewLine(d.ID, rawMaterialID, finishedProductID, itemName, quantity, rate)
	if err != nil {
		return nil, err
	}

	d.Lines = append(d.Lines, *line)
	d.recalculateTotals()
	d.UpdatedAt = time.Now()

	return line, nil
}

// UpdateLineQuantity updates the quantity of an existing line.
// Only allowed in DRAFT status.
func (d *Document) UpdateLineQuantity(lineID uuid.UUID, quantity decimal.Decimal) error {
	if d.Status != StatusDraft {
		return shared.NewInvalidStateError("cannot update lines of a non-draft document")
	}

	for idx := range d.Lines {
		if d.Lines[idx].ID == lineID {
			if err := d.Lines[idx].UpdateQuantity(quantity); err != nil {
				return err
			}
			d.recalculateTotals()
			d.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewNotFoundError("document line", lineID.String())
}

// RemoveLine removes a line from the document.
// Only allowed in DRAFT status.
func (d *Document) RemoveLine(lineID uuid.UUID) error {
	if d.Status != StatusDraft {
		return shared.NewInvalidStateError("cannot remove lines from a non-draft document")
	}

	for idx, line := range d.Lines {
		if line.ID == lineID {
			d.Lines = append(d.Lines[:idx], d.Lines[idx+1:]...)
			d.recalculateTotals()
			d.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewNotFoundError("document line", lineID.String())
}

// SetTaxAmount sets the document-level tax amount.
// Only allowed in DRAFT status.
func (d *Document) SetTaxAmount(tax decimal.Decimal) error {
	if d.Status != StatusDraft {
		return shared.NewInvalidStateError("cannot change tax on a non-draft document")
	}
	if tax.IsNegative() {
		return shared.NewValidationError("tax amount cannot be negative")
	}

	d.TaxAmount = tax
	d.recalculateTotals()
	d.UpdatedAt = time.Now()

	return nil
}

// SetRemarks sets the document remarks
func (d *Document) SetRemarks(remarks string) {
	d.Remarks = remarks
	d.UpdatedAt = time.Now()
}

// Confirm confirms the document, transitioning from DRAFT to CONFIRMED.
// Requires at least one line and a positive grand total. Stock movements
// and the party outstanding accrual are handled by the application
// service in the same transaction.
func (d *Document) Confirm() error {
	if !d.Status.CanTransitionTo(StatusConfirmed) {
		return shared.NewInvalidStateError("cannot confirm document in %s status", d.Status)
	}
	if len(d.Lines) == 0 {
		return shared.NewValidationError("cannot confirm a document without lines")
	}
	if d.GrandTotal.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("document grand total must be positive")
	}

	now := time.Now()
	d.Status = StatusConfirmed
	d.ConfirmedAt = &now
	d.UpdatedAt = now
	d.IncrementVersion()

	d.AddDomainEvent(NewDocumentConfirmedEvent(d))

	return nil
}

// ApplyPayment records a settlement against the document. The amount
// must not exceed the open balance; allocation sizing is the caller's
// job and this guard catches drift.
func (d *Document) ApplyPayment(amount decimal.Decimal) error {
	if d.Status != StatusConfirmed {
		return shared.NewInvalidStateError("can only apply payments to confirmed documents")
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("payment amount must be positive")
	}
	if amount.GreaterThan(d.BalanceAmount) {
		return shared.NewValidationError(
			"allocation %s exceeds document balance %s",
			amount.StringFixed(2), d.BalanceAmount.StringFixed(2))
	}

	d.PaidAmount = d.PaidAmount.Add(amount)
	d.recomputePaymentState()
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	return nil
}

// RemovePayment backs out a previously applied settlement, typically
// when a payment is reversed.
func (d *Document) RemovePayment(amount decimal.Decimal) error {
	if d.Status != StatusConfirmed {
		return shared.NewInvalidStateError("can only remove payments from confirmed documents")
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("payment amount must be positive")
	}
	if amount.GreaterThan(d.PaidAmount) {
		return shared.NewValidationError(
			"cannot remove %s, only %s has been paid",
			amount.StringFixed(2), d.PaidAmount.StringFixed(2))
	}

	d.PaidAmount = d.PaidAmount.Sub(amount)
	d.recomputePaymentState()
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	return nil
}

// Void voids a confirmed document. Fully paid documents cannot be
// voided; their payments must be reversed first. Lines are kept as a
// tombstone, the open balance is released by the caller.
func (d *Document) Void(reason string) error {
	if !d.Status.CanTransitionTo(StatusVoided) {
		return shared.NewInvalidStateError("cannot void document in %s status", d.Status)
	}
	if reason == "" {
		return shared.NewValidationError("void reason is required")
	}
	if d.PaymentStatus == PaymentStatusPaid {
		return shared.NewInvalidStateError("cannot void a fully paid document; reverse the payments first")
	}

	now := time.Now()
	d.Status = StatusVoided
	d.VoidedAt = &now
	d.VoidReason = reason
	d.UpdatedAt = now
	d.IncrementVersion()

	d.AddDomainEvent(NewDocumentVoidedEvent(d, reason))

	return nil
}

// CanDelete returns true if the document may be deleted. Confirmed
// documents must be voided first, and anything with money applied is
// permanent.
func (d *Document) CanDelete() bool {
	if !d.PaidAmount.IsZero() {
		return false
	}
	return d.Status == StatusDraft || d.Status == StatusVoided
}

// recalculateTotals recalculates subtotal, grand total and the derived
// payment state from the current lines and tax.
func (d *Document) recalculateTotals() {
	subtotal := decimal.Zero
	for _, line := range d.Lines {
		subtotal = subtotal.Add(line.Amount)
	}
	d.Subtotal = subtotal
	d.GrandTotal = subtotal.Add(d.TaxAmount)
	d.recomputePaymentState()
}

// recomputePaymentState derives BalanceAmount and PaymentStatus from
// GrandTotal and PaidAmount.
func (d *Document) recomputePaymentState() {
	d.BalanceAmount = decimal.Max(decimal.Zero, d.GrandTotal.Sub(d.PaidAmount))

	switch {
	case d.PaidAmount.IsZero():
		d.PaymentStatus = PaymentStatusUnpaid
	case d.PaidAmount.GreaterThanOrEqual(d.GrandTotal):
		d.PaymentStatus = PaymentStatusPaid
	default:
		d.PaymentStatus = PaymentStatusPartial
	}
}

// IsDraft returns true if the document is in draft status
func (d *Document) IsDraft() bool {
	return d.Status == StatusDraft
}

// IsConfirmed returns true if the document is confirmed
func (d *Document) IsConfirmed() bool {
	return d.Status == StatusConfirmed
}

// IsVoided returns true if the document is voided
func (d *Document) IsVoided() bool {
	return d.Status == StatusVoided
}

// IsFullyPaid returns true if nothing remains to be settled
func (d *Document) IsFullyPaid() bool {
	return d.PaymentStatus == PaymentStatusPaid
}

// HasOpenBalance returns true if the document still has an open balance
func (d *Document) HasOpenBalance() bool {
	return d.Status == StatusConfirmed && d.BalanceAmount.IsPositive()
}

// LineCount returns the number of lines in the document
func (d *Document) LineCount() int {
	return len(d.Lines)
}

// GetLine returns a line by its ID
func (d *Document) GetLine(lineID uuid.UUID) *Line {
	for idx := range d.Lines {
		if d.Lines[idx].ID == lineID {
			return &d.Lines[idx]
		}
	}
	return nil
}

// GetGrandTotalMoney returns the grand total as Money
func (d *Document) GetGrandTotalMoney() valueobject.Money {
	return valueobject.NewMoneyINR(d.GrandTotal)
}

// GetPaidAmountMoney returns the paid amount as Money
func (d *Document) GetPaidAmountMoney() valueobject.Money {
	return valueobject.NewMoneyINR(d.PaidAmount)
}

// GetBalanceAmountMoney returns the open balance as Money
func (d *Document) GetBalanceAmountMoney() valueobject.Money {
	return valueobject.NewMoneyINR(d.BalanceAmount)
}
