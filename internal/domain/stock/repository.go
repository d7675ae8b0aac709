package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// ItemStock is a per-item stock figure produced by the grouped ledger sum
type ItemStock struct {
	ItemType ItemType        `json:"item_type"`
	ItemID   uuid.UUID       `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// MovementTypeTotal is the aggregate in/out quantity for one movement type
type MovementTypeTotal struct {
	MovementType MovementType    `json:"movement_type"`
	TotalIn      decimal.Decimal `json:"total_in"`
	TotalOut     decimal.Decimal `json:"total_out"`
}

// MovementRepository defines the interface for stock movement persistence.
// The ledger is append-only: there is no update or delete.
type MovementRepository interface {
	// Create appends a movement row
	Create(ctx context.Context, movement *Movement) error

	// CreateBatch appends several movement rows in one call
	CreateBatch(ctx context.Context, movements []*Movement) error

	// FindByID finds a movement by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Movement, error)

	// FindByItem lists movements for an item, newest first by default
	FindByItem(ctx context.Context, itemType ItemType, itemID uuid.UUID, filter shared.Filter) ([]Movement, error)

	// FindByReference lists movements caused by a document
	FindByReference(ctx context.Context, refType ReferenceType, refID string) ([]Movement, error)

	// CountByItem counts movements for an item
	CountByItem(ctx context.Context, itemType ItemType, itemID uuid.UUID) (int64, error)

	// CurrentStock computes the authoritative stock for one item:
	// sum of quantity in minus sum of quantity out over all its movements.
	CurrentStock(ctx context.Context, itemType ItemType, itemID uuid.UUID) (decimal.Decimal, error)

	// CurrentStockForUpdate computes the same sum while holding the per-item
	// write lock for the remainder of the enclosing transaction. Used before
	// outbound movements so concurrent sells cannot both pass a stale check.
	CurrentStockForUpdate(ctx context.Context, itemType ItemType, itemID uuid.UUID) (decimal.Decimal, error)

	// StockByItem computes current stock grouped by item in one pass.
	// Results must equal per-item CurrentStock calls.
	StockByItem(ctx context.Context, itemType ItemType) ([]ItemStock, error)

	// TotalsByMovementType sums quantities grouped by movement type.
	// The summary derives WIP and consigned figures from these totals.
	TotalsByMovementType(ctx context.Context) ([]MovementTypeTotal, error)
}
