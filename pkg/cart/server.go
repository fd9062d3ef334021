package cart

import (
	"context"
	"fmt"

	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/port"
	"github.com/shopspring/decimal"
)

// ServerCart is the persisted cart of an account. Prices are read from the
// catalog every time lines are listed.
type ServerCart struct {
	userID  string
	repo    port.CartRepository
	catalog port.Catalog
}

func (c *ServerCart) AddLine(ctx context.Context, productID int64, qty int) (models.CartLine, error) {
	if err := checkQuantity(productID, qty); err != nil {
		return models.CartLine{}, err
	}
	p, err := resolveProduct(ctx, c.catalog, productID)
	if err != nil {
		return models.CartLine{}, err
	}

	cart, err := c.repo.GetOrCreateCart(ctx, c.userID)
	if err != nil {
		return models.CartLine{}, err
	}
	for _, l := range cart.Lines {
		if l.ProductID != productID {
			continue
		}
		if err := checkQuantity(productID, l.Quantity+qty); err != nil {
			return models.CartLine{}, err
		}
	}
	line, err := c.repo.IncrementLine(ctx, cart.ID, productID, qty)
	if err != nil {
		return models.CartLine{}, err
	}

	line.ProductName = p.Name
	line.Price = p.Price
	return *line, nil
}

func (c *ServerCart) RemoveLine(ctx context.Context, lineID string) error {
	cart, err := c.repo.GetOrCreateCart(ctx, c.userID)
	if err != nil {
		return err
	}
	return c.repo.DeleteLine(ctx, cart.ID, lineID)
}

func (c *ServerCart) SetQuantity(ctx context.Context, lineID string, qty int) error {
	cart, err := c.repo.GetOrCreateCart(ctx, c.userID)
	if err != nil {
		return err
	}
	if qty <= 0 {
		return c.repo.DeleteLine(ctx, cart.ID, lineID)
	}
	if qty > models.MaxLineQuantity {
		return fmt.Errorf("line %s quantity %d: %w", lineID, qty, errs.ErrInvalidQuantity)
	}
	return c.repo.SetLineQuantity(ctx, cart.ID, lineID, qty)
}

// Lines reads the account cart and attaches live catalog data to it.
func (c *ServerCart) Lines(ctx context.Context) ([]models.CartLine, error) {
	cart, err := c.repo.GetOrCreateCart(ctx, c.userID)
	if err != nil {
		return nil, err
	}
	if err := enrich(ctx, c.catalog, cart.Lines); err != nil {
		return nil, err
	}
	return cart.Lines, nil
}

func (c *ServerCart) Total(ctx context.Context) (decimal.Decimal, error) {
	lines, err := c.Lines(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return models.SumLines(lines), nil
}

func (c *ServerCart) Clear(ctx context.Context) error {
	cart, err := c.repo.GetOrCreateCart(ctx, c.userID)
	if err != nil {
		return err
	}
	return c.repo.ClearLines(ctx, cart.ID)
}
