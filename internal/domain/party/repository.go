package party

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// Repository defines the interface for party persistence
type Repository interface {
	// FindByID finds a party by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Party, error)

	// FindByCode finds a party by its code
	FindByCode(ctx context.Context, code string) (*Party, error)

	// FindAll finds all parties matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Party, error)

	// FindByType finds parties by type (customer/supplier)
	FindByType(ctx context.Context, partyType PartyType, filter shared.Filter) ([]Party, error)

	// FindWithOutstanding finds parties whose outstanding is above zero
	FindWithOutstanding(ctx context.Context, partyType PartyType, filter shared.Filter) ([]Party, error)

	// Save creates or updates a party
	Save(ctx context.Context, p *Party) error

	// SaveWithLock saves a party with optimistic locking (version check).
	// Returns ErrConcurrencyConflict if the version has changed.
	SaveWithLock(ctx context.Context, p *Party) error

	// Delete deletes a party
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts parties matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByCode checks if a party with the given code exists
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// AdjustOutstanding applies a delta to the party's outstanding as a
	// single atomic statement, clamping the result at zero. It returns
	// the outstanding after the adjustment. The application layer must
	// use this rather than read-modify-write on the loaded aggregate.
	AdjustOutstanding(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)

	// SetOutstanding overwrites the party's outstanding with a recomputed
	// value. Used by the recalculation service.
	SetOutstanding(ctx context.Context, id uuid.UUID, value decimal.Decimal) error
}
