package repository

import (
	"context"
	"fmt"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/shopspring/decimal"
)

// Seeder is implemented by both the MySQL and the in-memory store.
type Seeder interface {
	CreateProductIfMissing(ctx context.Context, p *models.Product) error
	UpsertUser(ctx context.Context, u *models.User) error
}

// Seed runs on every start. Products are only inserted when their id is new:
// stock of an existing product changes through the ledger alone. Users are
// upserted so a changed role in the config takes effect.
func Seed(ctx context.Context, s Seeder, cfg config.StorageConfig) error {
	for _, sp := range cfg.SeedProducts {
		price, err := decimal.NewFromString(sp.Price)
		if err != nil {
			return fmt.Errorf("seed product %d price %q: %w", sp.ID, sp.Price, err)
		}
		if err := s.CreateProductIfMissing(ctx, &models.Product{
			ID:    sp.ID,
			Name:  sp.Name,
			Price: price,
			Stock: sp.Stock,
		}); err != nil {
			return fmt.Errorf("seed product %d: %w", sp.ID, err)
		}
	}

	for _, su := range cfg.SeedUsers {
		role := models.Role(su.Role)
		if role == "" {
			role = models.RoleCustomer
		}
		if err := s.UpsertUser(ctx, &models.User{
			ID:       su.ID,
			FullName: su.FullName,
			Email:    su.Email,
			Role:     role,
		}); err != nil {
			return fmt.Errorf("seed user %s: %w", su.ID, err)
		}
	}
	return nil
}
