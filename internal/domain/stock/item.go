package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// RawMaterial is the raw-material master record as the stock engine sees
// it. Master-data CRUD lives outside this core; the ledger only reads
// identity, unit and the reorder level that feeds low-stock flags.
type RawMaterial struct {
	shared.BaseEntity
	Code         string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name         string          `gorm:"type:varchar(200);not null"`
	Unit         string          `gorm:"type:varchar(20);not null"`
	ReorderLevel decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (RawMaterial) TableName() string {
	return "raw_materials"
}

// FinishedProduct is the finished-product master record as the stock
// engine sees it.
type FinishedProduct struct {
	shared.BaseEntity
	Code         string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name         string          `gorm:"type:varchar(200);not null"`
	Unit         string          `gorm:"type:varchar(20);not null"`
	ReorderLevel decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (FinishedProduct) TableName() string {
	return "finished_products"
}

// Item is the type-agnostic view of a stockable item
type Item struct {
	ID           uuid.UUID
	ItemType     ItemType
	Code         string
	Name         string
	Unit         string
	ReorderLevel decimal.Decimal
}

// Ref returns the item reference for this item
func (i Item) Ref() ItemRef {
	if i.ItemType == ItemTypeRawMaterial {
		return NewRawMaterialRef(i.ID)
	}
	return NewFinishedProductRef(i.ID)
}

// ItemRepository reads item master data for the stock engine.
// It is read-only: item CRUD is out of scope here.
type ItemRepository interface {
	// FindItem finds one item of the given type
	FindItem(ctx context.Context, itemType ItemType, id uuid.UUID) (*Item, error)

	// FindAllItems lists all items of the given type ordered by code
	FindAllItems(ctx context.Context, itemType ItemType) ([]Item, error)
}
