package memstore

import (
	"context"
	"sync"

	"github.com/example/storefront/pkg/models"
)

// Sessions stores anonymous carts and merge claims for the memory driver.
type Sessions struct {
	mu     sync.Mutex
	carts  map[string][]models.CartLine
	claims map[string]struct{}
}

func NewSessions() *Sessions {
	return &Sessions{
		carts:  make(map[string][]models.CartLine),
		claims: make(map[string]struct{}),
	}
}

func (s *Sessions) LoadLines(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartLine(nil), s.carts[sessionID]...), nil
}

func (s *Sessions) UpdateLines(ctx context.Context, sessionID string, fn func([]models.CartLine) ([]models.CartLine, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := fn(append([]models.CartLine(nil), s.carts[sessionID]...))
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		delete(s.carts, sessionID)
		return nil
	}
	s.carts[sessionID] = lines
	return nil
}

func (s *Sessions) DeleteLines(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	return nil
}

// Claim never expires in memory.
func (s *Sessions) Claim(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[key]; ok {
		return false, nil
	}
	s.claims[key] = struct{}{}
	return true, nil
}
