package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/stock"
)

// RecordMovementRequest represents a request to append a stock movement
type RecordMovementRequest struct {
	ItemType          stock.ItemType      `json:"item_type" validate:"required"`
	RawMaterialID     *uuid.UUID          `json:"raw_material_id"`
	FinishedProductID *uuid.UUID          `json:"finished_product_id"`
	MovementType      stock.MovementType  `json:"movement_type" validate:"required"`
	QuantityIn        decimal.Decimal     `json:"quantity_in"`
	QuantityOut       decimal.Decimal     `json:"quantity_out"`
	ReferenceType     stock.ReferenceType `json:"reference_type" validate:"required"`
	ReferenceID       string              `json:"reference_id" validate:"required,max=50"`
	ReferenceCode     string              `json:"reference_code" validate:"max=50"`
	Remarks           string              `json:"remarks" validate:"max=255"`
	MovementDate      *time.Time          `json:"movement_date"`
}

// ItemRef builds the domain item reference from the request
func (r RecordMovementRequest) ItemRef() stock.ItemRef {
	return stock.ItemRef{RawMaterialID: r.RawMaterialID, FinishedProductID: r.FinishedProductID}
}

// MovementResponse represents a recorded movement
type MovementResponse struct {
	MovementID     uuid.UUID          `json:"movement_id"`
	ItemType       stock.ItemType     `json:"item_type"`
	ItemID         uuid.UUID          `json:"item_id"`
	MovementType   stock.MovementType `json:"movement_type"`
	QuantityIn     decimal.Decimal    `json:"quantity_in"`
	QuantityOut    decimal.Decimal    `json:"quantity_out"`
	RunningBalance decimal.Decimal    `json:"running_balance"`
	MovementDate   time.Time          `json:"movement_date"`
}

// NewMovementResponse maps a movement row to its response
func NewMovementResponse(m *stock.Movement) *MovementResponse {
	return &MovementResponse{
		MovementID:     m.ID,
		ItemType:       m.ItemType,
		ItemID:         m.ItemID(),
		MovementType:   m.MovementType,
		QuantityIn:     m.QuantityIn,
		QuantityOut:    m.QuantityOut,
		RunningBalance: m.RunningBalance,
		MovementDate:   m.MovementDate,
	}
}

// AvailabilityResult reports whether an item can cover a required quantity
type AvailabilityResult struct {
	IsValid   bool            `json:"is_valid"`
	Available decimal.Decimal `json:"available"`
	Required  decimal.Decimal `json:"required"`
	Shortfall decimal.Decimal `json:"shortfall"` // zero when IsValid
}

// ItemStockEntry is one item with its ledger-derived stock figure
type ItemStockEntry struct {
	ItemID       uuid.UUID       `json:"item_id"`
	ItemType     stock.ItemType  `json:"item_type"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	LowStock     bool            `json:"low_stock"`
}

// StockSummary is the precomputed stock overview served from cache.
// WIP is raw material issued to production and not yet returned as
// finished output; consigned stock is goods sitting with third parties
// as samples.
type StockSummary struct {
	RawMaterials      []ItemStockEntry `json:"raw_materials"`
	FinishedProducts  []ItemStockEntry `json:"finished_products"`
	LowStockCount     int              `json:"low_stock_count"`
	WIPQuantity       decimal.Decimal  `json:"wip_quantity"`
	ConsignedQuantity decimal.Decimal  `json:"consigned_quantity"`
	GeneratedAt       time.Time        `json:"generated_at"`
	FromCache         bool             `json:"from_cache"`
}
