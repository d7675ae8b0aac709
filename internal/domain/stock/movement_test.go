package stock

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

func TestItemType_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		itemType ItemType
		expected bool
	}{
		{"RAW_MATERIAL is valid", ItemTypeRawMaterial, true},
		{"FINISHED_PRODUCT is valid", ItemTypeFinishedProduct, true},
		{"INVALID is not valid", ItemType("INVALID"), false},
		{"empty is not valid", ItemType(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.itemType.IsValid())
		})
	}
}

func TestMovementType_IsValid(t *testing.T) {
	tests := []struct {
		name         string
		movementType MovementType
		expected     bool
	}{
		{"RAW_IN is valid", MovementTypeRawIn, true},
		{"RAW_OUT is valid", MovementTypeRawOut, true},
		{"FG_IN is valid", MovementTypeFGIn, true},
		{"FG_OUT is valid", MovementTypeFGOut, true},
		{"ADJUSTMENT is valid", MovementTypeAdjustment, true},
		{"PRODUCTION_IN is valid", MovementTypeProductionIn, true},
		{"PRODUCTION_OUT is valid", MovementTypeProductionOut, true},
		{"SAMPLE_OUT is valid", MovementTypeSampleOut, true},
		{"SI_REVERSAL is valid", MovementTypeSIReversal, true},
		{"PB_REVERSAL is valid", MovementTypePBReversal, true},
		{"INVALID is not valid", MovementType("INVALID"), false},
		{"empty is not valid", MovementType(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.movementType.IsValid())
		})
	}
}

func TestMovementType_IsReversal(t *testing.T) {
	assert.True(t, MovementTypeSIReversal.IsReversal())
	assert.True(t, MovementTypePBReversal.IsReversal())
	assert.False(t, MovementTypeRawIn.IsReversal())
	assert.False(t, MovementTypeFGOut.IsReversal())
}

func TestReferenceType_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		refType  ReferenceType
		expected bool
	}{
		{"SALES_INVOICE is valid", ReferenceTypeSalesInvoice, true},
		{"PURCHASE_BILL is valid", ReferenceTypePurchaseBill, true},
		{"PRODUCTION_BATCH is valid", ReferenceTypeProductionBatch, true},
		{"SAMPLE is valid", ReferenceTypeSample, true},
		{"ADJUSTMENT is valid", ReferenceTypeAdjustment, true},
		{"INVALID is not valid", ReferenceType("INVALID"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.refType.IsValid())
		})
	}
}

func TestItemRef_Validate(t *testing.T) {
	rawID := uuid.New()
	fgID := uuid.New()

	t.Run("raw material ref is valid for raw material type", func(t *testing.T) {
		ref := NewRawMaterialRef(rawID)
		require.NoError(t, ref.Validate(ItemTypeRawMaterial))
		assert.Equal(t, ItemTypeRawMaterial, ref.ItemType())
		assert.Equal(t, rawID, ref.ItemID())
	})

	t.Run("finished product ref is valid for finished product type", func(t *testing.T) {
		ref := NewFinishedProductRef(fgID)
		require.NoError(t, ref.Validate(ItemTypeFinishedProduct))
		assert.Equal(t, ItemTypeFinishedProduct, ref.ItemType())
		assert.Equal(t, fgID, ref.ItemID())
	})

	t.Run("fails when both ids are set", func(t *testing.T) {
		ref := ItemRef{RawMaterialID: &rawID, FinishedProductID: &fgID}
		err := ref.Validate(ItemTypeRawMaterial)
		require.Error(t, err)
		assert.True(t, shared.IsValidationError(err))
	})

	t.Run("fails when neither id is set", func(t *testing.T) {
		err := ItemRef{}.Validate(ItemTypeRawMaterial)
		require.Error(t, err)
		assert.True(t, shared.IsValidationError(err))
	})

	t.Run("fails when ref does not match item type", func(t *testing.T) {
		ref := NewRawMaterialRef(rawID)
		err := ref.Validate(ItemTypeFinishedProduct)
		require.Error(t, err)
		assert.True(t, shared.IsValidationError(err))
	})
}

func TestNewMovement_Success(t *testing.T) {
	itemID := uuid.New()

	m, err := NewMovement(
		ItemTypeRawMaterial,
		NewRawMaterialRef(itemID),
		MovementTypeRawIn,
		decimal.NewFromInt(100),
		decimal.Zero,
		ReferenceTypePurchaseBill,
		"pb-001",
		"PB-20250825-00001",
	)

	require.NoError(t, err)
	require.NotNil(t, m)

	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Equal(t, ItemTypeRawMaterial, m.ItemType)
	require.NotNil(t, m.RawMaterialID)
	assert.Equal(t, itemID, *m.RawMaterialID)
	assert.Nil(t, m.FinishedProductID)
	assert.Equal(t, MovementTypeRawIn, m.MovementType)
	assert.True(t, m.QuantityIn.Equal(decimal.NewFromInt(100)))
	assert.True(t, m.QuantityOut.IsZero())
	assert.Equal(t, ReferenceTypePurchaseBill, m.ReferenceType)
	assert.Equal(t, "pb-001", m.ReferenceID)
	assert.Equal(t, "PB-20250825-00001", m.ReferenceCode)
	assert.True(t, m.IsInbound())
	assert.True(t, m.Delta().Equal(decimal.NewFromInt(100)))
	assert.False(t, m.MovementDate.IsZero())
}

func TestNewMovement_ValidationFailures(t *testing.T) {
	itemID := uuid.New()
	validRef := NewRawMaterialRef(itemID)

	tests := []struct {
		name    string
		mutate  func() (*Movement, error)
		message string
	}{
		{
			name: "invalid item type",
			mutate: func() (*Movement, error) {
				return NewMovement("BAD", validRef, MovementTypeRawIn,
					decimal.NewFromInt(1), decimal.Zero, ReferenceTypePurchaseBill, "pb-001", "")
			},
			message: "invalid item type",
		},
		{
			name: "missing item ref",
			mutate: func() (*Movement, error) {
				return NewMovement(ItemTypeRawMaterial, ItemRef{}, MovementTypeRawIn,
					decimal.NewFromInt(1), decimal.Zero, ReferenceTypePurchaseBill, "pb-001", "")
			},
			message: "item reference is missing",
		},
		{
			name: "invalid movement type",
			mutate: func() (*Movement, error) {
				return NewMovement(ItemTypeRawMaterial, validRef, MovementType("BAD"),
					decimal.NewFromInt(1), decimal.Zero, ReferenceTypePurchaseBill, "pb-001", "")
			},
			message: "invalid movement type",
		},
		{
			name: "negative quantity",
			mutate: func() (*Movement, error) {
				return NewMovement(ItemTypeRawMaterial, validRef, MovementTypeRawIn,
					decimal.NewFromInt(-1), decimal.Zero, ReferenceTypePurchaseBill, "pb-001", "")
			},
			message: "cannot be negative",
		},
		{
			name: "both quantities nonzero",
			mutate: func() (*Movement, error) {
				return NewMovement(ItemTypeRawMaterial, validRef, MovementTypeRawIn,
					decimal.NewFromInt(5), decimal.NewFromInt(3), ReferenceTypePurchaseBill, "pb-001", "")
			},
			message: "both quantity in and quantity out",
		},
		{
			name: "both quantities zero",
			mutate: func() (*Movement, error) {
				return NewMovement(ItemTypeRawMaterial, validRef, MovementTypeRawIn,
					decimal.Zero, decimal.Zero, ReferenceTypePurchaseBill, "pb-001", "")
			},
			message: "nonzero quantity",
		},
		{
			name: "invalid reference type",
			mutate: func() (*Movement, error) {
				return NewMovement(ItemTypeRawMaterial, validRef, MovementTypeRawIn,
					decimal.NewFromInt(1), decimal.Zero, ReferenceType("BAD"), "pb-001", "")
			},
			message: "invalid reference type",
		},
		{
			name: "empty reference id",
			mutate: func() (*Movement, error) {
				return NewMovement(ItemTypeRawMaterial, validRef, MovementTypeRawIn,
					decimal.NewFromInt(1), decimal.Zero, ReferenceTypePurchaseBill, "", "")
			},
			message: "reference ID cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.mutate()
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, shared.IsValidationError(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestMovement_WithSetters(t *testing.T) {
	itemID := uuid.New()
	m, err := NewMovement(
		ItemTypeFinishedProduct,
		NewFinishedProductRef(itemID),
		MovementTypeFGOut,
		decimal.Zero,
		decimal.NewFromInt(30),
		ReferenceTypeSalesInvoice,
		"si-001",
		"SI-20250825-00001",
	)
	require.NoError(t, err)

	m.WithRunningBalance(decimal.NewFromInt(70)).WithRemarks("dispatched by truck")

	assert.True(t, m.RunningBalance.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, "dispatched by truck", m.Remarks)
	assert.False(t, m.IsInbound())
	assert.True(t, m.Delta().Equal(decimal.NewFromInt(-30)))
}

func TestMovement_Reversed(t *testing.T) {
	itemID := uuid.New()
	original, err := NewMovement(
		ItemTypeFinishedProduct,
		NewFinishedProductRef(itemID),
		MovementTypeFGOut,
		decimal.Zero,
		decimal.NewFromInt(25),
		ReferenceTypeSalesInvoice,
		"si-002",
		"SI-20250825-00002",
	)
	require.NoError(t, err)

	t.Run("produces compensating row", func(t *testing.T) {
		rev, err := original.Reversed(MovementTypeSIReversal)
		require.NoError(t, err)

		assert.NotEqual(t, original.ID, rev.ID)
		assert.Equal(t, MovementTypeSIReversal, rev.MovementType)
		assert.True(t, rev.QuantityIn.Equal(original.QuantityOut))
		assert.True(t, rev.QuantityOut.Equal(original.QuantityIn))
		assert.Equal(t, original.ReferenceID, rev.ReferenceID)
		assert.Equal(t, original.ReferenceCode, rev.ReferenceCode)
		assert.Equal(t, original.ItemID(), rev.ItemID())

		// Original plus reversal nets to zero.
		assert.True(t, original.Delta().Add(rev.Delta()).IsZero())
	})

	t.Run("rejects non-reversal type", func(t *testing.T) {
		_, err := original.Reversed(MovementTypeFGIn)
		require.Error(t, err)
		assert.True(t, shared.IsValidationError(err))
	})
}
