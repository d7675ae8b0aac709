package stock

import (
	"context"

	"github.com/karkhana-erp/backend/internal/domain/stock"
)

// TransactionScope provides transactional access to stock repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or
// roll back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the stock repositories
// within a transaction. All repositories returned share the same
// underlying database transaction.
type TransactionalRepositories interface {
	// Movements returns the movement repository scoped to the current transaction
	Movements() stock.MovementRepository
	// Items returns the item repository scoped to the current transaction
	Items() stock.ItemRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for tests with in-memory repositories.
type NoOpTransactionScope struct {
	movements stock.MovementRepository
	items     stock.ItemRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(movements stock.MovementRepository, items stock.ItemRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{movements: movements, items: items}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Movements returns the movement repository.
func (s *NoOpTransactionScope) Movements() stock.MovementRepository {
	return s.movements
}

// Items returns the item repository.
func (s *NoOpTransactionScope) Items() stock.ItemRepository {
	return s.items
}
