package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/stock"
)

// GormItemRepository implements stock.ItemRepository over the raw
// material and finished product master tables. Read-only: master-data
// CRUD lives outside the stock engine.
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindItem finds one item of the given type
func (r *GormItemRepository) FindItem(ctx context.Context, itemType stock.ItemType, id uuid.UUID) (*stock.Item, error) {
	switch itemType {
	case stock.ItemTypeRawMaterial:
		var rm stock.RawMaterial
		if err := r.db.WithContext(ctx).First(&rm, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, shared.ErrNotFound
			}
			return nil, err
		}
		item := rawMaterialToItem(rm)
		return &item, nil
	case stock.ItemTypeFinishedProduct:
		var fp stock.FinishedProduct
		if err := r.db.WithContext(ctx).First(&fp, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, shared.ErrNotFound
			}
			return nil, err
		}
		item := finishedProductToItem(fp)
		return &item, nil
	}
	return nil, shared.NewValidationError("invalid item type: %s", itemType)
}

// FindAllItems lists all items of the given type ordered by code
func (r *GormItemRepository) FindAllItems(ctx context.Context, itemType stock.ItemType) ([]stock.Item, error) {
	switch itemType {
	case stock.ItemTypeRawMaterial:
		var rms []stock.RawMaterial
		if err := r.db.WithContext(ctx).Order("code ASC").Find(&rms).Error; err != nil {
			return nil, err
		}
		items := make([]stock.Item, 0, len(rms))
		for _, rm := range rms {
			items = append(items, rawMaterialToItem(rm))
		}
		return items, nil
	case stock.ItemTypeFinishedProduct:
		var fps []stock.FinishedProduct
		if err := r.db.WithContext(ctx).Order("code ASC").Find(&fps).Error; err != nil {
			return nil, err
		}
		items := make([]stock.Item, 0, len(fps))
		for _, fp := range fps {
			items = append(items, finishedProductToItem(fp))
		}
		return items, nil
	}
	return nil, shared.NewValidationError("invalid item type: %s", itemType)
}

func rawMaterialToItem(rm stock.RawMaterial) stock.Item {
	return stock.Item{
		ID:           rm.ID,
		ItemType:     stock.ItemTypeRawMaterial,
		Code:         rm.Code,
		Name:         rm.Name,
		Unit:         rm.Unit,
		ReorderLevel: rm.ReorderLevel,
	}
}

func finishedProductToItem(fp stock.FinishedProduct) stock.Item {
	return stock.Item{
		ID:           fp.ID,
		ItemType:     stock.ItemTypeFinishedProduct,
		Code:         fp.Code,
		Name:         fp.Name,
		Unit:         fp.Unit,
		ReorderLevel: fp.ReorderLevel,
	}
}

// Ensure GormItemRepository implements ItemRepository
var _ stock.ItemRepository = (*GormItemRepository)(nil)
