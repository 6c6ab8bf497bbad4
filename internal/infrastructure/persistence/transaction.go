package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/maraline/backend/internal/domain/shared"
)

type txContextKey struct{}

// GormTransactionManager implements shared.TransactionManager on a GORM
// connection. The transaction handle travels in the context; repositories
// resolve it through session, so every repository call made inside Execute
// shares one database transaction.
type GormTransactionManager struct {
	db *gorm.DB
}

// NewGormTransactionManager creates a new GormTransactionManager
func NewGormTransactionManager(db *gorm.DB) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

// Execute runs fn inside a database transaction. Any error returned by fn
// rolls back every write issued with fn's context.
func (m *GormTransactionManager) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// session returns the transaction carried by the context when present,
// otherwise the repository's own connection scoped to the context.
func session(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// Ensure GormTransactionManager implements TransactionManager
var _ shared.TransactionManager = (*GormTransactionManager)(nil)
