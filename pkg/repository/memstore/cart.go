package memstore

import (
	"context"
	"fmt"

	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/google/uuid"
)

func (s *Store) GetOrCreateCart(ctx context.Context, userID string) (*models.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[userID]
	if !ok {
		now := s.now()
		c = &models.Cart{ID: uuid.NewString(), UserID: userID, CreatedAt: now, UpdatedAt: now}
		s.carts[userID] = c
	}
	return cloneCart(c), nil
}

func (s *Store) IncrementLine(ctx context.Context, cartID string, productID int64, qty int) (*models.CartLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if qty < 1 {
		return nil, errs.ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.cartByID(cartID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity += qty
			c.Lines[i].UpdatedAt = now
			line := c.Lines[i]
			return &line, nil
		}
	}

	line := models.CartLine{
		ID:        uuid.NewString(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.Lines = append(c.Lines, line)
	return &line, nil
}

func (s *Store) SetLineQuantity(ctx context.Context, cartID, lineID string, qty int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if qty < 1 {
		return errs.ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.cartByID(cartID)
	if err != nil {
		return err
	}
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines[i].Quantity = qty
			c.Lines[i].UpdatedAt = s.now()
			return nil
		}
	}
	return fmt.Errorf("line %s: %w", lineID, errs.ErrLineNotFound)
}

func (s *Store) DeleteLine(ctx context.Context, cartID, lineID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.cartByID(cartID)
	if err != nil {
		return err
	}
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("line %s: %w", lineID, errs.ErrLineNotFound)
}

func (s *Store) ClearLines(ctx context.Context, cartID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.cartByID(cartID)
	if err != nil {
		return err
	}
	c.Lines = nil
	return nil
}

func (s *Store) cartByID(cartID string) (*models.Cart, error) {
	for _, c := range s.carts {
		if c.ID == cartID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("cart %s: %w", cartID, errs.ErrLineNotFound)
}

func cloneCart(c *models.Cart) *models.Cart {
	out := *c
	out.Lines = append([]models.CartLine(nil), c.Lines...)
	return &out
}
