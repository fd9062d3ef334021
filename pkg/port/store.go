package port

import (
	"context"

	"github.com/example/storefront/pkg/models"
)

// StockStore is the transaction-scoped view of product stock.
type StockStore interface {
	// LockProduct returns the product row, soft-deleted ones included, locked
	// until the enclosing transaction ends.
	LockProduct(ctx context.Context, productID int64) (*models.Product, error)

	// AddStock changes stock by delta. It must never leave stock negative.
	AddStock(ctx context.Context, productID int64, delta int) error
}

// Tx is everything the order workflow may touch inside one transaction.
type Tx interface {
	StockStore

	CreateOrder(ctx context.Context, order *models.Order) error
	LockOrder(ctx context.Context, orderID string) (*models.Order, error)

	// UpdateOrder persists the mutable fields: status and shipping contact.
	UpdateOrder(ctx context.Context, order *models.Order) error
}

type OrderFilter struct {
	UserID string
	Status models.OrderStatus
}

// Store is the transactional persistence consumed by the order workflow and the
// inventory ledger.
type Store interface {
	Catalog

	// InTx runs fn in one transaction. Any error returned by fn rolls back
	// every write made through tx.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)

	Ping(ctx context.Context) error
}

type Catalog interface {
	// GetProduct returns soft-deleted products too; callers decide.
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}
