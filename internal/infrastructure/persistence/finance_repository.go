package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karkhana-erp/backend/internal/domain/finance"
	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// GormFinanceRepository implements finance.Repository using GORM.
// Find methods preload the materialized ledger legs.
type GormFinanceRepository struct {
	db *gorm.DB
}

// NewGormFinanceRepository creates a new GormFinanceRepository
func NewGormFinanceRepository(db *gorm.DB) *GormFinanceRepository {
	return &GormFinanceRepository{db: db}
}

// FindByID finds a transaction by its ID, with ledger legs
func (r *GormFinanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.FinancialTransaction, error) {
	var t finance.FinancialTransaction
	if err := r.db.WithContext(ctx).Preload("Ledgers").
		First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindByNumber finds a transaction by its transaction number
func (r *GormFinanceRepository) FindByNumber(ctx context.Context, number string) (*finance.FinancialTransaction, error) {
	var t finance.FinancialTransaction
	if err := r.db.WithContext(ctx).Preload("Ledgers").
		First(&t, "transaction_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindAll finds all transactions matching the filter, newest first
func (r *GormFinanceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]finance.FinancialTransaction, error) {
	var transactions []finance.FinancialTransaction
	query := r.applyFilter(r.db.WithContext(ctx).Model(&finance.FinancialTransaction{}).Preload("Ledgers"), filter)

	if err := query.Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// FindByType finds transactions of one type
func (r *GormFinanceRepository) FindByType(ctx context.Context, txType finance.TransactionType, filter shared.Filter) ([]finance.FinancialTransaction, error) {
	var transactions []finance.FinancialTransaction
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&finance.FinancialTransaction{}).Preload("Ledgers").
			Where("transaction_type = ?", txType),
		filter,
	)

	if err := query.Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// Save creates or updates a transaction together with its ledger legs
func (r *GormFinanceRepository) Save(ctx context.Context, t *finance.FinancialTransaction) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(t).Error
}

// Count counts transactions matching the filter
func (r *GormFinanceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&finance.FinancialTransaction{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByNumber checks if a transaction with the given number exists
func (r *GormFinanceRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&finance.FinancialTransaction{}).
		Where("transaction_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter options to the query
func (r *GormFinanceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, FinancialTransactionSortFields, "transaction_date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormFinanceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "transaction_type":
			query = query.Where("transaction_type = ?", value)
		case "account_id":
			query = query.Where("account_id = ?", value)
		}
	}
	return query
}

// Ensure GormFinanceRepository implements Repository
var _ finance.Repository = (*GormFinanceRepository)(nil)
