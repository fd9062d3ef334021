package memstore

import (
	"context"
	"fmt"

	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
)

func (s *Store) UpsertUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *u
	if c.Role == "" {
		c.Role = models.RoleCustomer
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	c.UpdatedAt = s.now()
	s.users[c.ID] = &c
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || u.DeletedAt.Valid {
		return nil, fmt.Errorf("user %s: %w", userID, errs.ErrUserNotFound)
	}
	c := *u
	return &c, nil
}
