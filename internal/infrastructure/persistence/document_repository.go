package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/karkhana-erp/backend/internal/domain/document"
	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// GormDocumentRepository implements document.Repository using GORM.
// Find methods preload lines so the aggregate is always complete.
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID finds a document by its ID, with lines
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	var d document.Document
	if err := r.db.WithContext(ctx).Preload("Lines").First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// FindByNumber finds a document by its document number
func (r *GormDocumentRepository) FindByNumber(ctx context.Context, number string) (*document.Document, error) {
	var d document.Document
	if err := r.db.WithContext(ctx).Preload("Lines").
		First(&d, "document_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// FindAll finds all documents matching the filter
func (r *GormDocumentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]document.Document, error) {
	var docs []document.Document
	query := r.applyFilter(r.db.WithContext(ctx).Model(&document.Document{}).Preload("Lines"), filter)

	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// FindByParty finds documents for a party
func (r *GormDocumentRepository) FindByParty(ctx context.Context, partyID uuid.UUID, filter shared.Filter) ([]document.Document, error) {
	var docs []document.Document
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&document.Document{}).Preload("Lines").
			Where("party_id = ?", partyID),
		filter,
	)

	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// FindByTypeAndStatus finds documents of a type in a given status
func (r *GormDocumentRepository) FindByTypeAndStatus(ctx context.Context, docType document.Type, status document.Status, filter shared.Filter) ([]document.Document, error) {
	var docs []document.Document
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&document.Document{}).Preload("Lines").
			Where("type = ? AND status = ?", docType, status),
		filter,
	)

	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// FindOpenByParty finds confirmed documents with an open balance for a
// party, ordered oldest first so allocation settles the oldest debt
func (r *GormDocumentRepository) FindOpenByParty(ctx context.Context, partyID uuid.UUID, docType document.Type) ([]document.Document, error) {
	var docs []document.Document
	if err := r.db.WithContext(ctx).Preload("Lines").
		Where("party_id = ? AND type = ? AND status = ? AND balance_amount > ?",
			partyID, docType, document.StatusConfirmed, decimal.Zero).
		Order("document_date ASC, created_at ASC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// FindByDateRange finds documents within a date range
func (r *GormDocumentRepository) FindByDateRange(ctx context.Context, from, to time.Time, filter shared.Filter) ([]document.Document, error) {
	var docs []document.Document
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&document.Document{}).Preload("Lines").
			Where("document_date >= ? AND document_date <= ?", from, to),
		filter,
	)

	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Save creates or updates a document together with its lines
func (r *GormDocumentRepository) Save(ctx context.Context, d *document.Document) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(d).Error
}

// SaveWithLock saves a document with optimistic locking (version check).
// Lines are immutable after confirmation and are not rewritten here.
func (r *GormDocumentRepository) SaveWithLock(ctx context.Context, d *document.Document) error {
	result := r.db.WithContext(ctx).
		Model(&document.Document{}).
		Where("id = ? AND version = ?", d.ID, d.Version-1).
		Select("*").Omit(clause.Associations).
		Updates(d)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Delete deletes a document and its lines
func (r *GormDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&document.Line{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&document.Document{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts documents matching the filter
func (r *GormDocumentRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&document.Document{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByNumber checks if a document with the given number exists
func (r *GormDocumentRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&document.Document{}).
		Where("document_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SumOpenBalanceByParty returns the sum of balance amounts across all
// confirmed documents of a party
func (r *GormDocumentRepository) SumOpenBalanceByParty(ctx context.Context, partyID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&document.Document{}).
		Select("COALESCE(SUM(balance_amount), 0) AS total").
		Where("party_id = ? AND status = ?", partyID, document.StatusConfirmed).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// applyFilter applies filter options to the query
func (r *GormDocumentRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, DocumentSortFields, "document_date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormDocumentRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "type":
			query = query.Where("type = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "payment_status":
			query = query.Where("payment_status = ?", value)
		case "party_id":
			query = query.Where("party_id = ?", value)
		case "has_balance":
			if value == true {
				query = query.Where("balance_amount > 0")
			} else {
				query = query.Where("balance_amount = 0")
			}
		}
	}
	return query
}

// Ensure GormDocumentRepository implements Repository
var _ document.Repository = (*GormDocumentRepository)(nil)
