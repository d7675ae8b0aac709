package document

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// Repository defines the interface for document persistence.
// Find methods load documents with their lines.
type Repository interface {
	// FindByID finds a document by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// FindByNumber finds a document by its document number
	FindByNumber(ctx context.Context, number string) (*Document, error)

	// FindAll finds all documents matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Document, error)

	// FindByParty finds documents for a party
	FindByParty(ctx context.Context, partyID uuid.UUID, filter shared.Filter) ([]Document, error)

	// FindByTypeAndStatus finds documents of a type in a given status
	FindByTypeAndStatus(ctx context.Context, docType Type, status Status, filter shared.Filter) ([]Document, error)

	// FindOpenByParty finds confirmed documents of the given type with an
	// open balance for a party, ordered oldest first. Payment allocation
	// walks this list.
	FindOpenByParty(ctx context.Context, partyID uuid.UUID, docType Type) ([]Document, error)

	// FindByDateRange finds documents within a date range
	FindByDateRange(ctx context.Context, from, to time.Time, filter shared.Filter) ([]Document, error)

	// Save creates or updates a document together with its lines
	Save(ctx context.Context, d *Document) error

	// SaveWithLock saves a document with optimistic locking (version check).
	// Returns ErrConcurrencyConflict if the version has changed.
	SaveWithLock(ctx context.Context, d *Document) error

	// Delete deletes a document and its lines
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts documents matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByNumber checks if a document with the given number exists
	ExistsByNumber(ctx context.Context, number string) (bool, error)

	// SumOpenBalanceByParty returns the sum of balance amounts across all
	// confirmed documents of a party. This is the source-of-truth figure
	// the recalculation service compares the stored outstanding against.
	SumOpenBalanceByParty(ctx context.Context, partyID uuid.UUID) (decimal.Decimal, error)
}
