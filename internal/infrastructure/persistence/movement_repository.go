package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/stock"
)

// GormMovementRepository implements stock.MovementRepository using GORM.
// The ledger table is append-only: this repository exposes no update or
// delete, and nothing else may write to stock_movements.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Create appends a movement row
func (r *GormMovementRepository) Create(ctx context.Context, movement *stock.Movement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// CreateBatch appends several movement rows in one call
func (r *GormMovementRepository) CreateBatch(ctx context.Context, movements []*stock.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(movements).Error
}

// FindByID finds a movement by its ID
func (r *GormMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Movement, error) {
	var movement stock.Movement
	if err := r.db.WithContext(ctx).First(&movement, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// FindByItem lists movements for an item, newest first by default
func (r *GormMovementRepository) FindByItem(ctx context.Context, itemType stock.ItemType, itemID uuid.UUID, filter shared.Filter) ([]stock.Movement, error) {
	col, err := itemColumn(itemType)
	if err != nil {
		return nil, err
	}

	var movements []stock.Movement
	query := r.db.WithContext(ctx).Model(&stock.Movement{}).
		Where("item_type = ? AND "+col+" = ?", itemType, itemID)
	query = applyMovementFilter(query, filter)

	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByReference lists movements caused by a document, oldest first so
// reversal appends walk them in original order
func (r *GormMovementRepository) FindByReference(ctx context.Context, refType stock.ReferenceType, refID string) ([]stock.Movement, error) {
	var movements []stock.Movement
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// CountByItem counts movements for an item
func (r *GormMovementRepository) CountByItem(ctx context.Context, itemType stock.ItemType, itemID uuid.UUID) (int64, error) {
	col, err := itemColumn(itemType)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&stock.Movement{}).
		Where("item_type = ? AND "+col+" = ?", itemType, itemID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CurrentStock computes the authoritative stock for one item as the
// signed sum over its ledger rows
func (r *GormMovementRepository) CurrentStock(ctx context.Context, itemType stock.ItemType, itemID uuid.UUID) (decimal.Decimal, error) {
	col, err := itemColumn(itemType)
	if err != nil {
		return decimal.Zero, err
	}

	var result struct {
		Quantity decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&stock.Movement{}).
		Select("COALESCE(SUM(quantity_in - quantity_out), 0) AS quantity").
		Where("item_type = ? AND "+col+" = ?", itemType, itemID).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Quantity, nil
}

// CurrentStockForUpdate computes the same sum while holding a per-item
// advisory lock for the remainder of the enclosing transaction. The sum
// itself cannot be locked with FOR UPDATE, so concurrent outbound
// writers serialize on the advisory key instead.
func (r *GormMovementRepository) CurrentStockForUpdate(ctx context.Context, itemType stock.ItemType, itemID uuid.UUID) (decimal.Decimal, error) {
	lockKey := fmt.Sprintf("stock:%s:%s", itemType, itemID)
	if err := r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", lockKey).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to acquire stock lock: %w", err)
	}
	return r.CurrentStock(ctx, itemType, itemID)
}

// StockByItem computes current stock grouped by item in one pass
func (r *GormMovementRepository) StockByItem(ctx context.Context, itemType stock.ItemType) ([]stock.ItemStock, error) {
	col, err := itemColumn(itemType)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ItemID   uuid.UUID
		Quantity decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&stock.Movement{}).
		Select(col+" AS item_id, COALESCE(SUM(quantity_in - quantity_out), 0) AS quantity").
		Where("item_type = ? AND "+col+" IS NOT NULL", itemType).
		Group(col).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stocks := make([]stock.ItemStock, 0, len(rows))
	for _, row := range rows {
		stocks = append(stocks, stock.ItemStock{
			ItemType: itemType,
			ItemID:   row.ItemID,
			Quantity: row.Quantity,
		})
	}
	return stocks, nil
}

// TotalsByMovementType sums quantities grouped by movement type
func (r *GormMovementRepository) TotalsByMovementType(ctx context.Context) ([]stock.MovementTypeTotal, error) {
	var totals []stock.MovementTypeTotal
	if err := r.db.WithContext(ctx).
		Model(&stock.Movement{}).
		Select("movement_type, COALESCE(SUM(quantity_in), 0) AS total_in, COALESCE(SUM(quantity_out), 0) AS total_out").
		Group("movement_type").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	return totals, nil
}

// itemColumn maps an item type to the ledger column carrying its ID
func itemColumn(itemType stock.ItemType) (string, error) {
	switch itemType {
	case stock.ItemTypeRawMaterial:
		return "raw_material_id", nil
	case stock.ItemTypeFinishedProduct:
		return "finished_product_id", nil
	}
	return "", shared.NewValidationError("invalid item type: %s", itemType)
}

// applyMovementFilter applies pagination and validated ordering
func applyMovementFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, MovementSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// Ensure GormMovementRepository implements MovementRepository
var _ stock.MovementRepository = (*GormMovementRepository)(nil)
