// Package cart holds the two cart representations, the anonymous session cart
// and the account cart, and the protocol that merges one into the other at
// login.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/port"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const catalogLookups = 8

// Cart is the capability set both representations share.
type Cart interface {
	AddLine(ctx context.Context, productID int64, qty int) (models.CartLine, error)
	RemoveLine(ctx context.Context, lineID string) error
	// SetQuantity removes the line when qty <= 0.
	SetQuantity(ctx context.Context, lineID string, qty int) error
	// Lines are returned in the order products were first added.
	Lines(ctx context.Context) ([]models.CartLine, error)
	Total(ctx context.Context) (decimal.Decimal, error)
	Clear(ctx context.Context) error
}

// Session identifies who is shopping on this request. User is nil for
// anonymous visitors.
type Session struct {
	ID   string
	User *models.User
}

func (s Session) Authenticated() bool {
	return s.User != nil
}

type Service struct {
	sessions port.SessionStore
	carts    port.CartRepository
	catalog  port.Catalog
}

func NewService(sessions port.SessionStore, carts port.CartRepository, catalog port.Catalog) *Service {
	return &Service{sessions: sessions, carts: carts, catalog: catalog}
}

// For picks the cart the session sees: the account cart once logged in, the
// session cart before that.
func (s *Service) For(sess Session) (Cart, error) {
	if sess.Authenticated() {
		return s.Server(sess.User.ID), nil
	}
	if sess.ID == "" {
		return nil, fmt.Errorf("anonymous cart needs a session id: %w", errs.ErrInvalidInput)
	}
	return s.Local(sess.ID), nil
}

func (s *Service) Local(sessionID string) *LocalCart {
	return &LocalCart{sessionID: sessionID, store: s.sessions, catalog: s.catalog}
}

func (s *Service) Server(userID string) *ServerCart {
	return &ServerCart{userID: userID, repo: s.carts, catalog: s.catalog}
}

// resolveProduct returns a product that can be put in a cart.
func resolveProduct(ctx context.Context, catalog port.Catalog, productID int64) (*models.Product, error) {
	p, err := catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Deleted() {
		return nil, fmt.Errorf("product %d: %w", productID, errs.ErrProductUnavailable)
	}
	return p, nil
}

// checkQuantity bounds the quantity a line may reach.
func checkQuantity(productID int64, qty int) error {
	if qty <= 0 || qty > models.MaxLineQuantity {
		return fmt.Errorf("product %d quantity %d: %w", productID, qty, errs.ErrInvalidQuantity)
	}
	return nil
}

// enrich attaches the live name and price of every product. Lines whose product
// is gone or soft-deleted stay in the cart flagged Unavailable.
func enrich(ctx context.Context, catalog port.Catalog, lines []models.CartLine) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(catalogLookups)
	for i := range lines {
		i := i
		g.Go(func() error {
			p, err := catalog.GetProduct(gctx, lines[i].ProductID)
			switch {
			case errors.Is(err, errs.ErrProductNotFound):
				lines[i].Unavailable = true
				lines[i].Price = decimal.Zero
				return nil
			case err != nil:
				return fmt.Errorf("product %d: %w", lines[i].ProductID, err)
			}

			lines[i].ProductName = p.Name
			lines[i].Price = p.Price
			lines[i].Unavailable = p.Deleted()
			return nil
		})
	}
	return g.Wait()
}
