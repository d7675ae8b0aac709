package finance

import (
	"context"

	"github.com/google/uuid"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// Repository defines the interface for financial transaction persistence
type Repository interface {
	// FindByID finds a transaction by its ID, with ledger legs
	FindByID(ctx context.Context, id uuid.UUID) (*FinancialTransaction, error)

	// FindByNumber finds a transaction by its transaction number
	FindByNumber(ctx context.Context, number string) (*FinancialTransaction, error)

	// FindAll finds all transactions matching the filter, newest first
	FindAll(ctx context.Context, filter shared.Filter) ([]FinancialTransaction, error)

	// FindByType finds transactions of one type
	FindByType(ctx context.Context, txType TransactionType, filter shared.Filter) ([]FinancialTransaction, error)

	// Save creates or updates a transaction together with its ledger legs
	Save(ctx context.Context, t *FinancialTransaction) error

	// Count counts transactions matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByNumber checks if a transaction with the given number exists
	ExistsByNumber(ctx context.Context, number string) (bool, error)
}

// GeneralLedgerRepository defines the interface for the voucher-keyed
// audit projection. Rows are append-only.
type GeneralLedgerRepository interface {
	// Create inserts general ledger rows
	Create(ctx context.Context, entries []GeneralLedgerEntry) error

	// FindByVoucher finds all rows posted under one voucher
	FindByVoucher(ctx context.Context, voucherNumber string) ([]GeneralLedgerEntry, error)

	// FindByReference finds all rows produced for a source record
	FindByReference(ctx context.Context, refType GLReference, refID uuid.UUID) ([]GeneralLedgerEntry, error)

	// FindByAccountHead finds rows for one ledger head, oldest first
	FindByAccountHead(ctx context.Context, accountHead string, filter shared.Filter) ([]GeneralLedgerEntry, error)
}
