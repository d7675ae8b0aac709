package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karkhana-erp/backend/internal/domain/finance"
	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// GormGeneralLedgerRepository implements finance.GeneralLedgerRepository
// using GORM. Rows are append-only: no update or delete exists.
type GormGeneralLedgerRepository struct {
	db *gorm.DB
}

// NewGormGeneralLedgerRepository creates a new GormGeneralLedgerRepository
func NewGormGeneralLedgerRepository(db *gorm.DB) *GormGeneralLedgerRepository {
	return &GormGeneralLedgerRepository{db: db}
}

// Create inserts general ledger rows
func (r *GormGeneralLedgerRepository) Create(ctx context.Context, entries []finance.GeneralLedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// FindByVoucher finds all rows posted under one voucher
func (r *GormGeneralLedgerRepository) FindByVoucher(ctx context.Context, voucherNumber string) ([]finance.GeneralLedgerEntry, error) {
	var entries []finance.GeneralLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("voucher_number = ?", voucherNumber).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByReference finds all rows produced for a source record
func (r *GormGeneralLedgerRepository) FindByReference(ctx context.Context, refType finance.GLReference, refID uuid.UUID) ([]finance.GeneralLedgerEntry, error) {
	var entries []finance.GeneralLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByAccountHead finds rows for one ledger head, oldest first
func (r *GormGeneralLedgerRepository) FindByAccountHead(ctx context.Context, accountHead string, filter shared.Filter) ([]finance.GeneralLedgerEntry, error) {
	var entries []finance.GeneralLedgerEntry
	query := r.db.WithContext(ctx).Model(&finance.GeneralLedgerEntry{}).
		Where("account_head = ?", accountHead)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if err := query.Order("entry_date ASC, created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure GormGeneralLedgerRepository implements GeneralLedgerRepository
var _ finance.GeneralLedgerRepository = (*GormGeneralLedgerRepository)(nil)
