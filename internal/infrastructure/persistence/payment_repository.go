package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/karkhana-erp/backend/internal/domain/payment"
	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// GormPaymentRepository implements payment.Repository using GORM.
// Find methods preload allocations so the aggregate is always complete.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID, with allocations
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.WithContext(ctx).Preload("Allocations").
		First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByNumber finds a payment by its payment number
func (r *GormPaymentRepository) FindByNumber(ctx context.Context, number string) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.WithContext(ctx).Preload("Allocations").
		First(&p, "payment_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindAll finds all payments matching the filter
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]payment.Payment, error) {
	var payments []payment.Payment
	query := r.applyFilter(r.db.WithContext(ctx).Model(&payment.Payment{}).Preload("Allocations"), filter)

	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// FindByParty finds payments for a party
func (r *GormPaymentRepository) FindByParty(ctx context.Context, partyID uuid.UUID, filter shared.Filter) ([]payment.Payment, error) {
	var payments []payment.Payment
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&payment.Payment{}).Preload("Allocations").
			Where("party_id = ?", partyID),
		filter,
	)

	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// FindAdvancesByParty finds completed advances of a party that still
// carry unconsumed credit, oldest first
func (r *GormPaymentRepository) FindAdvancesByParty(ctx context.Context, partyID uuid.UUID) ([]payment.Payment, error) {
	var payments []payment.Payment
	if err := r.db.WithContext(ctx).Preload("Allocations").
		Where("party_id = ? AND status = ? AND advance_balance > ?",
			partyID, payment.StatusCompleted, decimal.Zero).
		Order("payment_date ASC, created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// FindByDocument finds payments with an allocation against a document
func (r *GormPaymentRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]payment.Payment, error) {
	var payments []payment.Payment
	if err := r.db.WithContext(ctx).Preload("Allocations").
		Joins("JOIN invoice_payment_allocations a ON a.payment_id = payment_transactions.id").
		Where("a.document_id = ?", documentID).
		Distinct().
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// Save creates or updates a payment together with its allocations
func (r *GormPaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(p).Error
}

// SaveWithLock saves a payment with optimistic locking (version check).
// Allocations are append-only: new rows are inserted, existing rows are
// left untouched.
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, p *payment.Payment) error {
	result := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("id = ? AND version = ?", p.ID, p.Version-1).
		Select("*").Omit(clause.Associations).
		Updates(p)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	if len(p.Allocations) > 0 {
		if err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&p.Allocations).Error; err != nil {
			return err
		}
	}
	return nil
}

// Count counts payments matching the filter
func (r *GormPaymentRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&payment.Payment{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByNumber checks if a payment with the given number exists
func (r *GormPaymentRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("payment_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DrawDownAdvance atomically decrements an advance's remaining credit.
// The guard keeps the balance non-negative and refuses reversed
// payments; a zero row count surfaces as a concurrency conflict because
// the caller pre-validated the balance it saw.
func (r *GormPaymentRepository) DrawDownAdvance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("id = ? AND status = ? AND advance_balance >= ?", id, payment.StatusCompleted, amount).
		Update("advance_balance", gorm.Expr("advance_balance - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// CreateAdjustment appends an advance adjustment history row
func (r *GormPaymentRepository) CreateAdjustment(ctx context.Context, adjustment *payment.AdvanceAdjustment) error {
	return r.db.WithContext(ctx).Create(adjustment).Error
}

// FindAdjustmentsByPayment lists the adjustment history of an advance
func (r *GormPaymentRepository) FindAdjustmentsByPayment(ctx context.Context, paymentID uuid.UUID) ([]payment.AdvanceAdjustment, error) {
	var adjustments []payment.AdvanceAdjustment
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("adjusted_at ASC").
		Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// SumAdvanceBalanceByParty returns the total unconsumed advance credit
// of a party across completed payments
func (r *GormPaymentRepository) SumAdvanceBalanceByParty(ctx context.Context, partyID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Select("COALESCE(SUM(advance_balance), 0) AS total").
		Where("party_id = ? AND status = ?", partyID, payment.StatusCompleted).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// applyFilter applies filter options to the query
func (r *GormPaymentRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, PaymentSortFields, "payment_date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormPaymentRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "type":
			query = query.Where("type = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "mode":
			query = query.Where("mode = ?", value)
		case "party_id":
			query = query.Where("party_id = ?", value)
		case "is_advance":
			query = query.Where("is_advance = ?", value)
		case "has_advance_balance":
			if value == true {
				query = query.Where("advance_balance > 0")
			} else {
				query = query.Where("advance_balance = 0")
			}
		}
	}
	return query
}

// Ensure GormPaymentRepository implements Repository
var _ payment.Repository = (*GormPaymentRepository)(nil)
