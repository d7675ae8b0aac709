package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/karkhana-erp/backend/internal/domain/party"
	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// GormPartyRepository implements party.Repository using GORM
type GormPartyRepository struct {
	db *gorm.DB
}

// NewGormPartyRepository creates a new GormPartyRepository
func NewGormPartyRepository(db *gorm.DB) *GormPartyRepository {
	return &GormPartyRepository{db: db}
}

// FindByID finds a party by its ID
func (r *GormPartyRepository) FindByID(ctx context.Context, id uuid.UUID) (*party.Party, error) {
	var p party.Party
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByCode finds a party by its code
func (r *GormPartyRepository) FindByCode(ctx context.Context, code string) (*party.Party, error) {
	var p party.Party
	if err := r.db.WithContext(ctx).
		First(&p, "code = ?", strings.ToUpper(code)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindAll finds all parties matching the filter
func (r *GormPartyRepository) FindAll(ctx context.Context, filter shared.Filter) ([]party.Party, error) {
	var parties []party.Party
	query := r.applyFilter(r.db.WithContext(ctx).Model(&party.Party{}), filter)

	if err := query.Find(&parties).Error; err != nil {
		return nil, err
	}
	return parties, nil
}

// FindByType finds parties by type (customer/supplier)
func (r *GormPartyRepository) FindByType(ctx context.Context, partyType party.PartyType, filter shared.Filter) ([]party.Party, error) {
	var parties []party.Party
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&party.Party{}).Where("type = ?", partyType),
		filter,
	)

	if err := query.Find(&parties).Error; err != nil {
		return nil, err
	}
	return parties, nil
}

// FindWithOutstanding finds parties whose outstanding is above zero
func (r *GormPartyRepository) FindWithOutstanding(ctx context.Context, partyType party.PartyType, filter shared.Filter) ([]party.Party, error) {
	var parties []party.Party
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&party.Party{}).
			Where("type = ? AND outstanding > ?", partyType, decimal.Zero),
		filter,
	)

	if err := query.Find(&parties).Error; err != nil {
		return nil, err
	}
	return parties, nil
}

// Save creates or updates a party
func (r *GormPartyRepository) Save(ctx context.Context, p *party.Party) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// SaveWithLock saves a party with optimistic locking (version check)
func (r *GormPartyRepository) SaveWithLock(ctx context.Context, p *party.Party) error {
	result := r.db.WithContext(ctx).
		Model(&party.Party{}).
		Where("id = ? AND version = ?", p.ID, p.Version-1).
		Select("*").Omit(clause.Associations).
		Updates(p)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Delete deletes a party
func (r *GormPartyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&party.Party{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts parties matching the filter
func (r *GormPartyRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&party.Party{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByCode checks if a party with the given code exists
func (r *GormPartyRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&party.Party{}).
		Where("code = ?", strings.ToUpper(code)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// AdjustOutstanding applies a delta to the party's outstanding as a
// single atomic statement, clamped at zero at the database so two
// concurrent settlements can never race the figure negative. Returns
// the outstanding after the adjustment.
func (r *GormPartyRepository) AdjustOutstanding(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	result := r.db.WithContext(ctx).
		Model(&party.Party{}).
		Where("id = ?", id).
		Update("outstanding", gorm.Expr("GREATEST(outstanding + ?, 0)", delta))
	if result.Error != nil {
		return decimal.Zero, result.Error
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, shared.ErrNotFound
	}

	var after struct {
		Outstanding decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&party.Party{}).
		Select("outstanding").
		Where("id = ?", id).
		Scan(&after).Error; err != nil {
		return decimal.Zero, err
	}
	return after.Outstanding, nil
}

// SetOutstanding overwrites the party's outstanding with a recomputed value
func (r *GormPartyRepository) SetOutstanding(ctx context.Context, id uuid.UUID, value decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&party.Party{}).
		Where("id = ?", id).
		Update("outstanding", value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormPartyRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, PartySortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormPartyRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "type":
			query = query.Where("type = ?", value)
		case "has_outstanding":
			if value == true {
				query = query.Where("outstanding > 0")
			} else {
				query = query.Where("outstanding = 0")
			}
		}
	}
	return query
}

// Ensure GormPartyRepository implements Repository
var _ party.Repository = (*GormPartyRepository)(nil)
