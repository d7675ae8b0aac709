package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// Repository defines the interface for account persistence
type Repository interface {
	// FindByID finds an account by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByCode finds an account by its code
	FindByCode(ctx context.Context, code string) (*Account, error)

	// FindAll finds all accounts matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Account, error)

	// FindActive finds all active accounts
	FindActive(ctx context.Context) ([]Account, error)

	// Save creates or updates an account
	Save(ctx context.Context, a *Account) error

	// SaveWithLock saves an account with optimistic locking (version check).
	// Returns ErrConcurrencyConflict if the version has changed.
	SaveWithLock(ctx context.Context, a *Account) error

	// ExistsByCode checks if an account with the given code exists
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// AdjustBalance applies a delta to the account balance as a single
	// atomic statement and returns the balance after the adjustment.
	// Every balance change caused by a payment or financial posting
	// goes through this, never through read-modify-write.
	AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}
