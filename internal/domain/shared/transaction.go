package shared

import "context"

// TransactionManager runs a function inside a single storage transaction.
// Repository calls made with the context passed to fn join that transaction,
// so either every write inside fn commits or none of them do.
type TransactionManager interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTransactionManager runs the function directly, without a transaction.
// Stands in where the backing store is not transactional.
type NopTransactionManager struct{}

// Execute runs fn with the caller's context unchanged
func (NopTransactionManager) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Ensure NopTransactionManager implements TransactionManager
var _ TransactionManager = NopTransactionManager{}
