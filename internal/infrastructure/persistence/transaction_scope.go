package persistence

import (
	"context"

	"gorm.io/gorm"

	billingapp "github.com/karkhana-erp/backend/internal/application/billing"
	financeapp "github.com/karkhana-erp/backend/internal/application/finance"
	paymentsapp "github.com/karkhana-erp/backend/internal/application/payments"
	recalcapp "github.com/karkhana-erp/backend/internal/application/recalc"
	stockapp "github.com/karkhana-erp/backend/internal/application/stock"
	"github.com/karkhana-erp/backend/internal/domain/account"
	"github.com/karkhana-erp/backend/internal/domain/document"
	"github.com/karkhana-erp/backend/internal/domain/finance"
	"github.com/karkhana-erp/backend/internal/domain/party"
	"github.com/karkhana-erp/backend/internal/domain/payment"
	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/stock"
)

// txRepositories hands out repositories bound to one open transaction.
// It satisfies every application package's TransactionalRepositories
// interface, so each scope below can share it.
type txRepositories struct {
	tx *gorm.DB
}

// Movements returns the movement repository scoped to the transaction
func (r *txRepositories) Movements() stock.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

// Items returns the item repository scoped to the transaction
func (r *txRepositories) Items() stock.ItemRepository {
	return NewGormItemRepository(r.tx)
}

// Documents returns the document repository scoped to the transaction
func (r *txRepositories) Documents() document.Repository {
	return NewGormDocumentRepository(r.tx)
}

// Parties returns the party repository scoped to the transaction
func (r *txRepositories) Parties() party.Repository {
	return NewGormPartyRepository(r.tx)
}

// Payments returns the payment repository scoped to the transaction
func (r *txRepositories) Payments() payment.Repository {
	return NewGormPaymentRepository(r.tx)
}

// Accounts returns the account repository scoped to the transaction
func (r *txRepositories) Accounts() account.Repository {
	return NewGormAccountRepository(r.tx)
}

// FinancialTransactions returns the transaction repository scoped to the transaction
func (r *txRepositories) FinancialTransactions() finance.Repository {
	return NewGormFinanceRepository(r.tx)
}

// GeneralLedger returns the general ledger repository scoped to the transaction
func (r *txRepositories) GeneralLedger() finance.GeneralLedgerRepository {
	return NewGormGeneralLedgerRepository(r.tx)
}

// Sequences returns the sequence generator scoped to the transaction
func (r *txRepositories) Sequences() shared.SequenceGenerator {
	return NewGormSequenceGenerator(r.tx)
}

// StockTransactionScope runs stock ledger operations in a database
// transaction.
type StockTransactionScope struct {
	db *Database
}

// NewStockTransactionScope creates a StockTransactionScope
func NewStockTransactionScope(db *Database) *StockTransactionScope {
	return &StockTransactionScope{db: db}
}

// Execute runs the given function within a database transaction
func (s *StockTransactionScope) Execute(ctx context.Context, fn func(repos stockapp.TransactionalRepositories) error) error {
	return s.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepositories{tx: tx})
	})
}

// BillingTransactionScope runs document operations in a database
// transaction.
type BillingTransactionScope struct {
	db *Database
}

// NewBillingTransactionScope creates a BillingTransactionScope
func NewBillingTransactionScope(db *Database) *BillingTransactionScope {
	return &BillingTransactionScope{db: db}
}

// Execute runs the given function within a database transaction
func (s *BillingTransactionScope) Execute(ctx context.Context, fn func(repos billingapp.TransactionalRepositories) error) error {
	return s.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepositories{tx: tx})
	})
}

// PaymentTransactionScope runs payment operations in a database
// transaction.
type PaymentTransactionScope struct {
	db *Database
}

// NewPaymentTransactionScope creates a PaymentTransactionScope
func NewPaymentTransactionScope(db *Database) *PaymentTransactionScope {
	return &PaymentTransactionScope{db: db}
}

// Execute runs the given function within a database transaction
func (s *PaymentTransactionScope) Execute(ctx context.Context, fn func(repos paymentsapp.TransactionalRepositories) error) error {
	return s.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepositories{tx: tx})
	})
}

// FinanceTransactionScope runs financial postings in a database
// transaction.
type FinanceTransactionScope struct {
	db *Database
}

// NewFinanceTransactionScope creates a FinanceTransactionScope
func NewFinanceTransactionScope(db *Database) *FinanceTransactionScope {
	return &FinanceTransactionScope{db: db}
}

// Execute runs the given function within a database transaction
func (s *FinanceTransactionScope) Execute(ctx context.Context, fn func(repos financeapp.TransactionalRepositories) error) error {
	return s.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepositories{tx: tx})
	})
}

// RecalcTransactionScope runs outstanding recalculation batches in a
// database transaction.
type RecalcTransactionScope struct {
	db *Database
}

// NewRecalcTransactionScope creates a RecalcTransactionScope
func NewRecalcTransactionScope(db *Database) *RecalcTransactionScope {
	return &RecalcTransactionScope{db: db}
}

// Execute runs the given function within a database transaction
func (s *RecalcTransactionScope) Execute(ctx context.Context, fn func(repos recalcapp.TransactionalRepositories) error) error {
	return s.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepositories{tx: tx})
	})
}

// Interface checks for every application scope
var (
	_ stockapp.TransactionScope    = (*StockTransactionScope)(nil)
	_ billingapp.TransactionScope  = (*BillingTransactionScope)(nil)
	_ paymentsapp.TransactionScope = (*PaymentTransactionScope)(nil)
	_ financeapp.TransactionScope  = (*FinanceTransactionScope)(nil)
	_ recalcapp.TransactionScope   = (*RecalcTransactionScope)(nil)
)
