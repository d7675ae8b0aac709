package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// ItemType identifies which item catalog a movement belongs to
type ItemType string

const (
	// ItemTypeRawMaterial is stock of purchased inputs
	ItemTypeRawMaterial ItemType = "RAW_MATERIAL"
	// ItemTypeFinishedProduct is stock of manufactured or traded outputs
	ItemTypeFinishedProduct ItemType = "FINISHED_PRODUCT"
)

// String returns the string representation of ItemType
func (t ItemType) String() string {
	return string(t)
}

// IsValid returns true if the item type is valid
func (t ItemType) IsValid() bool {
	switch t {
	case ItemTypeRawMaterial, ItemTypeFinishedProduct:
		return true
	}
	return false
}

// MovementType represents the kind of stock movement
type MovementType string

const (
	// MovementTypeRawIn records raw material entering stock (purchase receipt)
	MovementTypeRawIn MovementType = "RAW_IN"
	// MovementTypeRawOut records raw material leaving stock (issued to production)
	MovementTypeRawOut MovementType = "RAW_OUT"
	// MovementTypeFGIn records finished goods entering stock (production output, purchase)
	MovementTypeFGIn MovementType = "FG_IN"
	// MovementTypeFGOut records finished goods leaving stock (sales dispatch)
	MovementTypeFGOut MovementType = "FG_OUT"
	// MovementTypeAdjustment records a manual stock correction
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
	// MovementTypeProductionIn records production batch output
	MovementTypeProductionIn MovementType = "PRODUCTION_IN"
	// MovementTypeProductionOut records raw material consumed by a production batch
	MovementTypeProductionOut MovementType = "PRODUCTION_OUT"
	// MovementTypeSampleOut records goods given out as samples
	MovementTypeSampleOut MovementType = "SAMPLE_OUT"
	// MovementTypeSIReversal compensates movements of a voided sales invoice
	MovementTypeSIReversal MovementType = "SI_REVERSAL"
	// MovementTypePBReversal compensates movements of a voided purchase bill
	MovementTypePBReversal MovementType = "PB_REVERSAL"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeRawIn,
		MovementTypeRawOut,
		MovementTypeFGIn,
		MovementTypeFGOut,
		MovementTypeAdjustment,
		MovementTypeProductionIn,
		MovementTypeProductionOut,
		MovementTypeSampleOut,
		MovementTypeSIReversal,
		MovementTypePBReversal:
		return true
	}
	return false
}

// IsReversal returns true for compensating movement types
func (t MovementType) IsReversal() bool {
	return t == MovementTypeSIReversal || t == MovementTypePBReversal
}

// ReferenceType identifies the document kind that caused a movement
type ReferenceType string

const (
	// ReferenceTypeSalesInvoice is a confirmed sales invoice
	ReferenceTypeSalesInvoice ReferenceType = "SALES_INVOICE"
	// ReferenceTypePurchaseBill is a confirmed purchase bill
	ReferenceTypePurchaseBill ReferenceType = "PURCHASE_BILL"
	// ReferenceTypeProductionBatch is a production batch
	ReferenceTypeProductionBatch ReferenceType = "PRODUCTION_BATCH"
	// ReferenceTypeSample is a sample issue
	ReferenceTypeSample ReferenceType = "SAMPLE"
	// ReferenceTypeAdjustment is a manual adjustment entry
	ReferenceTypeAdjustment ReferenceType = "ADJUSTMENT"
)

// String returns the string representation of ReferenceType
func (r ReferenceType) String() string {
	return string(r)
}

// IsValid returns true if the reference type is valid
func (r ReferenceType) IsValid() bool {
	switch r {
	case ReferenceTypeSalesInvoice,
		ReferenceTypePurchaseBill,
		ReferenceTypeProductionBatch,
		ReferenceTypeSample,
		ReferenceTypeAdjustment:
		return true
	}
	return false
}

// ItemRef points at exactly one item: a raw material or a finished product.
// Constructors keep the two pointers mutually exclusive.
type ItemRef struct {
	RawMaterialID     *uuid.UUID
	FinishedProductID *uuid.UUID
}

// NewRawMaterialRef creates a reference to a raw material
func NewRawMaterialRef(id uuid.UUID) ItemRef {
	return ItemRef{RawMaterialID: &id}
}

// NewFinishedProductRef creates a reference to a finished product
func NewFinishedProductRef(id uuid.UUID) ItemRef {
	return ItemRef{FinishedProductID: &id}
}

// ItemType returns the item type implied by which pointer is set.
// Returns empty string for an invalid ref.
func (r ItemRef) ItemType() ItemType {
	switch {
	case r.RawMaterialID != nil && r.FinishedProductID == nil:
		return ItemTypeRawMaterial
	case r.FinishedProductID != nil && r.RawMaterialID == nil:
		return ItemTypeFinishedProduct
	}
	return ""
}

// ItemID returns the referenced item's ID. Callers must validate the ref first.
func (r ItemRef) ItemID() uuid.UUID {
	if r.RawMaterialID != nil {
		return *r.RawMaterialID
	}
	if r.FinishedProductID != nil {
		return *r.FinishedProductID
	}
	return uuid.Nil
}

// Validate checks that exactly one item pointer is set and matches the item type
func (r ItemRef) Validate(itemType ItemType) error {
	if r.RawMaterialID != nil && r.FinishedProductID != nil {
		return shared.NewValidationError("item reference is ambiguous: both raw material and finished product set")
	}
	if r.RawMaterialID == nil && r.FinishedProductID == nil {
		return shared.NewValidationError("item reference is missing: neither raw material nor finished product set")
	}
	if got := r.ItemType(); got != itemType {
		return shared.NewValidationError("item reference does not match item type %s", itemType)
	}
	if r.ItemID() == uuid.Nil {
		return shared.NewValidationError("item ID cannot be empty")
	}
	return nil
}

// Movement is one immutable row in the stock ledger. Current stock for any
// item is the signed sum of its movements; corrections append compensating
// rows, they never modify or delete history.
type Movement struct {
	shared.BaseEntity
	ItemType          ItemType        `gorm:"type:varchar(20);not null;index:idx_stock_mv_item,priority:1"`
	RawMaterialID     *uuid.UUID      `gorm:"type:uuid;index:idx_stock_mv_item,priority:2"`
	FinishedProductID *uuid.UUID      `gorm:"type:uuid;index:idx_stock_mv_item,priority:3"`
	MovementType      MovementType    `gorm:"type:varchar(20);not null;index:idx_stock_mv_type"`
	QuantityIn        decimal.Decimal `gorm:"type:decimal(18,4);not null"` // non-negative; zero when quantity moves out
	QuantityOut       decimal.Decimal `gorm:"type:decimal(18,4);not null"` // non-negative; zero when quantity moves in
	ReferenceType     ReferenceType   `gorm:"type:varchar(30);not null;index:idx_stock_mv_ref,priority:1"`
	ReferenceID       string          `gorm:"type:varchar(50);not null;index:idx_stock_mv_ref,priority:2"`
	ReferenceCode     string          `gorm:"type:varchar(50)"`
	RunningBalance    decimal.Decimal `gorm:"type:decimal(18,4);not null"` // snapshot after this row; informational only
	Remarks           string          `gorm:"type:varchar(255)"`
	MovementDate      time.Time       `gorm:"type:timestamptz;not null;index"`
}

// TableName returns the table name for GORM
func (Movement) TableName() string {
	return "stock_movements"
}

// NewMovement creates a new stock movement. Quantities are non-negative and
// at most one of them may be nonzero; the item ref must match the item type.
func NewMovement(
	itemType ItemType,
	ref ItemRef,
	movementType MovementType,
	quantityIn decimal.Decimal,
	quantityOut decimal.Decimal,
	referenceType ReferenceType,
	referenceID string,
	referenceCode string,
) (*Movement, error) {
	if !itemType.IsValid() {
		return nil, shared.NewValidationError("invalid item type: %s", itemType)
	}
	if err := ref.Validate(itemType); err != nil {
		return nil, err
	}
	if !movementType.IsValid() {
		return nil, shared.NewValidationError("invalid movement type: %s", movementType)
	}
	if quantityIn.IsNegative() || quantityOut.IsNegative() {
		return nil, shared.NewValidationError("movement quantities cannot be negative")
	}
	if !quantityIn.IsZero() && !quantityOut.IsZero() {
		return nil, shared.NewValidationError("movement cannot have both quantity in and quantity out")
	}
	if quantityIn.IsZero() && quantityOut.IsZero() {
		return nil, shared.NewValidationError("movement must have a nonzero quantity")
	}
	if !referenceType.IsValid() {
		return nil, shared.NewValidationError("invalid reference type: %s", referenceType)
	}
	if referenceID == "" {
		return nil, shared.NewValidationError("reference ID cannot be empty")
	}

	return &Movement{
		BaseEntity:        shared.NewBaseEntity(),
		ItemType:          itemType,
		RawMaterialID:     ref.RawMaterialID,
		FinishedProductID: ref.FinishedProductID,
		MovementType:      movementType,
		QuantityIn:        quantityIn,
		QuantityOut:       quantityOut,
		ReferenceType:     referenceType,
		ReferenceID:       referenceID,
		ReferenceCode:     referenceCode,
		MovementDate:      time.Now(),
	}, nil
}

// WithRunningBalance records the stock snapshot immediately after this row.
// Recomputation never reads it.
func (m *Movement) WithRunningBalance(balance decimal.Decimal) *Movement {
	m.RunningBalance = balance
	return m
}

// WithRemarks sets free-form remarks
func (m *Movement) WithRemarks(remarks string) *Movement {
	m.Remarks = remarks
	return m
}

// WithMovementDate overrides the movement date (backdated entries)
func (m *Movement) WithMovementDate(date time.Time) *Movement {
	m.MovementDate = date
	return m
}

// ItemRef returns the item reference of this movement
func (m *Movement) ItemRef() ItemRef {
	return ItemRef{RawMaterialID: m.RawMaterialID, FinishedProductID: m.FinishedProductID}
}

// ItemID returns the referenced item's ID
func (m *Movement) ItemID() uuid.UUID {
	return m.ItemRef().ItemID()
}

// Delta returns the signed quantity change of this movement
func (m *Movement) Delta() decimal.Decimal {
	return m.QuantityIn.Sub(m.QuantityOut)
}

// IsInbound returns true when the movement adds stock
func (m *Movement) IsInbound() bool {
	return !m.QuantityIn.IsZero()
}

// Reversed builds the compensating movement for this row: quantities are
// swapped, the reference is preserved, and the given reversal type is stamped.
func (m *Movement) Reversed(reversalType MovementType) (*Movement, error) {
	if !reversalType.IsReversal() {
		return nil, shared.NewValidationError("movement type %s is not a reversal type", reversalType)
	}
	rev := &Movement{
		BaseEntity:        shared.NewBaseEntity(),
		ItemType:          m.ItemType,
		RawMaterialID:     m.RawMaterialID,
		FinishedProductID: m.FinishedProductID,
		MovementType:      reversalType,
		QuantityIn:        m.QuantityOut,
		QuantityOut:       m.QuantityIn,
		ReferenceType:     m.ReferenceType,
		ReferenceID:       m.ReferenceID,
		ReferenceCode:     m.ReferenceCode,
		MovementDate:      time.Now(),
	}
	return rev, nil
}
