package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// Repository defines the interface for payment persistence.
// Find methods load payments with their allocations.
type Repository interface {
	// FindByID finds a payment by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByNumber finds a payment by its payment number
	FindByNumber(ctx context.Context, number string) (*Payment, error)

	// FindAll finds all payments matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Payment, error)

	// FindByParty finds payments for a party
	FindByParty(ctx context.Context, partyID uuid.UUID, filter shared.Filter) ([]Payment, error)

	// FindAdvancesByParty finds completed advances of a party that still
	// carry unconsumed credit, oldest first
	FindAdvancesByParty(ctx context.Context, partyID uuid.UUID) ([]Payment, error)

	// FindByDocument finds payments with an allocation against a document
	FindByDocument(ctx context.Context, documentID uuid.UUID) ([]Payment, error)

	// Save creates or updates a payment together with its allocations
	Save(ctx context.Context, p *Payment) error

	// SaveWithLock saves a payment with optimistic locking (version check).
	// Returns ErrConcurrencyConflict if the version has changed.
	SaveWithLock(ctx context.Context, p *Payment) error

	// Count counts payments matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByNumber checks if a payment with the given number exists
	ExistsByNumber(ctx context.Context, number string) (bool, error)

	// DrawDownAdvance atomically decrements an advance's remaining
	// credit when it funds another payment, guarded so the balance can
	// never go below zero. Returns ErrConcurrencyConflict when the
	// guarded update matches no row (insufficient remaining credit or
	// a concurrent reversal); callers pre-validate and report the
	// figures themselves.
	DrawDownAdvance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error

	// CreateAdjustment appends an advance adjustment history row
	CreateAdjustment(ctx context.Context, adjustment *AdvanceAdjustment) error

	// FindAdjustmentsByPayment lists the adjustment history of an advance
	FindAdjustmentsByPayment(ctx context.Context, paymentID uuid.UUID) ([]AdvanceAdjustment, error)

	// SumAdvanceBalanceByParty returns the total unconsumed advance credit
	// of a party across completed payments. The recalculation service
	// subtracts this from document balances when rebuilding outstanding.
	SumAdvanceBalanceByParty(ctx context.Context, partyID uuid.UUID) (decimal.Decimal, error)
}
