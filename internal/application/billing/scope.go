package billing

import (
	"context"

	"github.com/karkhana-erp/backend/internal/domain/document"
	"github.com/karkhana-erp/backend/internal/domain/party"
	"github.com/karkhana-erp/backend/internal/domain/shared"
	"github.com/karkhana-erp/backend/internal/domain/stock"
)

// TransactionScope provides transactional access to the repositories a
// document mutation touches. Confirming a document writes the document,
// its stock movements and the party outstanding in one transaction.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the billing repositories
// within a transaction.
type TransactionalRepositories interface {
	// Documents returns the document repository scoped to the current transaction
	Documents() document.Repository
	// Parties returns the party repository scoped to the current transaction
	Parties() party.Repository
	// Movements returns the movement repository scoped to the current transaction
	Movements() stock.MovementRepository
	// Items returns the item repository scoped to the current transaction
	Items() stock.ItemRepository
	// Sequences returns the sequence generator scoped to the current transaction
	Sequences() shared.SequenceGenerator
}

// NoOpTransactionScope runs billing operations without a real
// transaction, for tests with in-memory repositories.
type NoOpTransactionScope struct {
	documents document.Repository
	parties   party.Repository
	movements stock.MovementRepository
	items     stock.ItemRepository
	sequences shared.SequenceGenerator
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	documents document.Repository,
	parties party.Repository,
	movements stock.MovementRepository,
	items stock.ItemRepository,
	sequences shared.SequenceGenerator,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		documents: documents,
		parties:   parties,
		movements: movements,
		items:     items,
		sequences: sequences,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Documents returns the document repository.
func (s *NoOpTransactionScope) Documents() document.Repository { return s.documents }

// Parties returns the party repository.
func (s *NoOpTransactionScope) Parties() party.Repository { return s.parties }

// Movements returns the movement repository.
func (s *NoOpTransactionScope) Movements() stock.MovementRepository { return s.movements }

// Items returns the item repository.
func (s *NoOpTransactionScope) Items() stock.ItemRepository { return s.items }

// Sequences returns the sequence generator.
func (s *NoOpTransactionScope) Sequences() shared.SequenceGenerator { return s.sequences }
