package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/karkhana-erp/backend/internal/domain/account"
	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// GormAccountRepository implements account.Repository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by its ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var a account.Account
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindByCode finds an account by its code
func (r *GormAccountRepository) FindByCode(ctx context.Context, code string) (*account.Account, error) {
	var a account.Account
	if err := r.db.WithContext(ctx).
		First(&a, "code = ?", strings.ToUpper(code)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindAll finds all accounts matching the filter
func (r *GormAccountRepository) FindAll(ctx context.Context, filter shared.Filter) ([]account.Account, error) {
	var accounts []account.Account
	query := r.db.WithContext(ctx).Model(&account.Account{})

	for key, value := range filter.Filters {
		switch key {
		case "type":
			query = query.Where("type = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		}
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	orderBy := ValidateSortField(filter.OrderBy, AccountSortFields, "code")
	orderDir := ValidateSortOrder(filter.OrderDir)

	if err := query.Order(orderBy + " " + orderDir).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// FindActive finds all active accounts
func (r *GormAccountRepository) FindActive(ctx context.Context) ([]account.Account, error) {
	var accounts []account.Account
	if err := r.db.WithContext(ctx).
		Where("status = ?", account.StatusActive).
		Order("code ASC").
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, a *account.Account) error {
	return r.db.WithContext(ctx).Save(a).Error
}

// SaveWithLock saves an account with optimistic locking (version check)
func (r *GormAccountRepository) SaveWithLock(ctx context.Context, a *account.Account) error {
	result := r.db.WithContext(ctx).
		Model(&account.Account{}).
		Where("id = ? AND version = ?", a.ID, a.Version-1).
		Select("*").Omit(clause.Associations).
		Updates(a)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// ExistsByCode checks if an account with the given code exists
func (r *GormAccountRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&account.Account{}).
		Where("code = ?", strings.ToUpper(code)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// AdjustBalance applies a delta to the account balance as a single
// atomic statement and returns the balance after the adjustment
func (r *GormAccountRepository) AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	result := r.db.WithContext(ctx).
		Model(&account.Account{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return decimal.Zero, result.Error
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, shared.ErrNotFound
	}

	var after struct {
		Balance decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&account.Account{}).
		Select("balance").
		Where("id = ?", id).
		Scan(&after).Error; err != nil {
		return decimal.Zero, err
	}
	return after.Balance, nil
}

// Ensure GormAccountRepository implements Repository
var _ account.Repository = (*GormAccountRepository)(nil)
