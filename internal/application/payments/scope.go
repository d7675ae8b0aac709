package payments

import (
	"context"

	"github.com/karkhana-erp/backend/internal/domain/account"
	"github.com/karkhana-erp/backend/internal/domain/document"
	"github.com/karkhana-erp/backend/internal/domain/finance"
	"github.com/karkhana-erp/backend/internal/domain/party"
	"github.com/karkhana-erp/backend/internal/domain/payment"
	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// TransactionScope provides transactional access to everything a
// payment mutation touches: the payment itself, the documents it
// settles, the party outstanding, the funding account and the general
// ledger projection.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the payment-side
// repositories within a transaction.
type TransactionalRepositories interface {
	// Payments returns the payment repository scoped to the current transaction
	Payments() payment.Repository
	// Documents returns the document repository scoped to the current transaction
	Documents() document.Repository
	// Parties returns the party repository scoped to the current transaction
	Parties() party.Repository
	// Accounts returns the account repository scoped to the current transaction
	Accounts() account.Repository
	// GeneralLedger returns the general ledger repository scoped to the current transaction
	GeneralLedger() finance.GeneralLedgerRepository
	// Sequences returns the sequence generator scoped to the current transaction
	Sequences() shared.SequenceGenerator
}

// NoOpTransactionScope runs payment operations without a real
// transaction, for tests with in-memory repositories.
type NoOpTransactionScope struct {
	payments  payment.Repository
	documents document.Repository
	parties   party.Repository
	accounts  account.Repository
	ledger    finance.GeneralLedgerRepository
	sequences shared.SequenceGenerator
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	payments payment.Repository,
	documents document.Repository,
	parties party.Repository,
	accounts account.Repository,
	ledger finance.GeneralLedgerRepository,
	sequences shared.SequenceGenerator,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		payments:  payments,
		documents: documents,
		parties:   parties,
		accounts:  accounts,
		ledger:    ledger,
		sequences: sequences,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Payments returns the payment repository.
func (s *NoOpTransactionScope) Payments() payment.Repository { return s.payments }

// Documents returns the document repository.
func (s *NoOpTransactionScope) Documents() document.Repository { return s.documents }

// Parties returns the party repository.
func (s *NoOpTransactionScope) Parties() party.Repository { return s.parties }

// Accounts returns the account repository.
func (s *NoOpTransactionScope) Accounts() account.Repository { return s.accounts }

// GeneralLedger returns the general ledger repository.
func (s *NoOpTransactionScope) GeneralLedger() finance.GeneralLedgerRepository { return s.ledger }

// Sequences returns the sequence generator.
func (s *NoOpTransactionScope) Sequences() shared.SequenceGenerator { return s.sequences }
