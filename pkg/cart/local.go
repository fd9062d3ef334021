package cart

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/port"
	"github.com/shopspring/decimal"
)

// LocalCart is the cart of an anonymous session. It has at most one line per
// product and the line id is the product id, so lines survive without a
// database row.
type LocalCart struct {
	sessionID string
	store     port.SessionStore
	catalog   port.Catalog
}

func lineID(productID int64) string {
	return strconv.FormatInt(productID, 10)
}

func (c *LocalCart) AddLine(ctx context.Context, productID int64, qty int) (models.CartLine, error) {
	if err := checkQuantity(productID, qty); err != nil {
		return models.CartLine{}, err
	}
	p, err := resolveProduct(ctx, c.catalog, productID)
	if err != nil {
		return models.CartLine{}, err
	}

	var added models.CartLine
	err = c.store.UpdateLines(ctx, c.sessionID, func(lines []models.CartLine) ([]models.CartLine, error) {
		now := time.Now().UTC()
		for i := range lines {
			if lines[i].ProductID == productID {
				if err := checkQuantity(productID, lines[i].Quantity+qty); err != nil {
					return nil, err
				}
				lines[i].Quantity += qty
				lines[i].ProductName = p.Name
				lines[i].Price = p.Price
				lines[i].UpdatedAt = now
				added = lines[i]
				return lines, nil
			}
		}

		added = models.CartLine{
			ID:          lineID(productID),
			ProductID:   productID,
			Quantity:    qty,
			ProductName: p.Name,
			Price:       p.Price,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return append(lines, added), nil
	})
	if err != nil {
		return models.CartLine{}, err
	}
	return added, nil
}

func (c *LocalCart) RemoveLine(ctx context.Context, id string) error {
	return c.store.UpdateLines(ctx, c.sessionID, func(lines []models.CartLine) ([]models.CartLine, error) {
		for i := range lines {
			if lines[i].ID == id {
				return append(lines[:i], lines[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("line %s: %w", id, errs.ErrLineNotFound)
	})
}

func (c *LocalCart) SetQuantity(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return c.RemoveLine(ctx, id)
	}
	if qty > models.MaxLineQuantity {
		return fmt.Errorf("line %s quantity %d: %w", id, qty, errs.ErrInvalidQuantity)
	}
	return c.store.UpdateLines(ctx, c.sessionID, func(lines []models.CartLine) ([]models.CartLine, error) {
		for i := range lines {
			if lines[i].ID == id {
				lines[i].Quantity = qty
				lines[i].UpdatedAt = time.Now().UTC()
				return lines, nil
			}
		}
		return nil, fmt.Errorf("line %s: %w", id, errs.ErrLineNotFound)
	})
}

// Lines refreshes the stored name and price of every line from the catalog.
func (c *LocalCart) Lines(ctx context.Context) ([]models.CartLine, error) {
	lines, err := c.store.LoadLines(ctx, c.sessionID)
	if err != nil {
		return nil, err
	}
	if err := enrich(ctx, c.catalog, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *LocalCart) Total(ctx context.Context) (decimal.Decimal, error) {
	lines, err := c.Lines(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return models.SumLines(lines), nil
}

func (c *LocalCart) Clear(ctx context.Context) error {
	return c.store.DeleteLines(ctx, c.sessionID)
}
