package recalc

import (
	"context"

	"github.com/karkhana-erp/backend/internal/domain/document"
	"github.com/karkhana-erp/backend/internal/domain/party"
	"github.com/karkhana-erp/backend/internal/domain/payment"
)

// TransactionScope provides transactional access to the repositories
// recalculation reads from and corrects.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the recalculation
// repositories within a transaction.
type TransactionalRepositories interface {
	// Parties returns the party repository scoped to the current transaction
	Parties() party.Repository
	// Documents returns the document repository scoped to the current transaction
	Documents() document.Repository
	// Payments returns the payment repository scoped to the current transaction
	Payments() payment.Repository
}

// NoOpTransactionScope runs recalculation without a real transaction,
// for tests with in-memory repositories.
type NoOpTransactionScope struct {
	parties   party.Repository
	documents document.Repository
	payments  payment.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(parties party.Repository, documents document.Repository, payments payment.Repository) *NoOpTransactionScope {
	return &NoOpTransactionScope{parties: parties, documents: documents, payments: payments}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Parties returns the party repository.
func (s *NoOpTransactionScope) Parties() party.Repository { return s.parties }

// Documents returns the document repository.
func (s *NoOpTransactionScope) Documents() document.Repository { return s.documents }

// Payments returns the payment repository.
func (s *NoOpTransactionScope) Payments() payment.Repository { return s.payments }
