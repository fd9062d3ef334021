package port

import (
	"context"

	"github.com/example/storefront/pkg/models"
)

// CartRepository persists account carts.
type CartRepository interface {
	// GetOrCreateCart returns the account cart with its lines ordered by first
	// add, creating an empty cart when the account has none.
	GetOrCreateCart(ctx context.Context, userID string) (*models.Cart, error)

	// IncrementLine adds qty to the (cart, product) line, creating it if needed.
	IncrementLine(ctx context.Context, cartID string, productID int64, qty int) (*models.CartLine, error)
	SetLineQuantity(ctx context.Context, cartID, lineID string, qty int) error
	DeleteLine(ctx context.Context, cartID, lineID string) error
	ClearLines(ctx context.Context, cartID string) error
}

// SessionStore persists anonymous carts keyed by session id.
type SessionStore interface {
	LoadLines(ctx context.Context, sessionID string) ([]models.CartLine, error)

	// UpdateLines applies fn atomically to the stored lines. An empty result
	// removes the session cart.
	UpdateLines(ctx context.Context, sessionID string, fn func([]models.CartLine) ([]models.CartLine, error)) error
	DeleteLines(ctx context.Context, sessionID string) error
}

// MergeLedger remembers which login events already merged a session cart.
type MergeLedger interface {
	// Claim returns false when key was claimed before.
	Claim(ctx context.Context, key string) (bool, error)
}

// OrderCache is a read-through cache for single orders. GetOrder returns
// nil, nil on a miss.
type OrderCache interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	PutOrder(ctx context.Context, order *models.Order) error
	InvalidateOrder(ctx context.Context, orderID string) error
}
