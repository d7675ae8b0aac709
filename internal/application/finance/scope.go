package finance

import (
	"context"

	"github.com/karkhana-erp/backend/internal/domain/account"
	"github.com/karkhana-erp/backend/internal/domain/finance"
	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// TransactionScope provides transactional access to the repositories a
// financial posting touches: the transaction with its legs, the bank
// account and the general ledger projection.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the finance repositories
// within a transaction.
type TransactionalRepositories interface {
	// FinancialTransactions returns the transaction repository scoped to the current transaction
	FinancialTransactions() finance.Repository
	// GeneralLedger returns the general ledger repository scoped to the current transaction
	GeneralLedger() finance.GeneralLedgerRepository
	// Accounts returns the account repository scoped to the current transaction
	Accounts() account.Repository
	// Sequences returns the sequence generator scoped to the current transaction
	Sequences() shared.SequenceGenerator
}

// NoOpTransactionScope runs finance operations without a real
// transaction, for tests with in-memory repositories.
type NoOpTransactionScope struct {
	transactions finance.Repository
	ledger       finance.GeneralLedgerRepository
	accounts     account.Repository
	sequences    shared.SequenceGenerator
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	transactions finance.Repository,
	ledger finance.GeneralLedgerRepository,
	accounts account.Repository,
	sequences shared.SequenceGenerator,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		transactions: transactions,
		ledger:       ledger,
		accounts:     accounts,
		sequences:    sequences,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// FinancialTransactions returns the transaction repository.
func (s *NoOpTransactionScope) FinancialTransactions() finance.Repository { return s.transactions }

// GeneralLedger returns the general ledger repository.
func (s *NoOpTransactionScope) GeneralLedger() finance.GeneralLedgerRepository { return s.ledger }

// Accounts returns the account repository.
func (s *NoOpTransactionScope) Accounts() account.Repository { return s.accounts }

// Sequences returns the sequence generator.
func (s *NoOpTransactionScope) Sequences() shared.SequenceGenerator { return s.sequences }
