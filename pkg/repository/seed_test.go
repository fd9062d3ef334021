package repository

import (
	"context"
	"testing"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/port"
	"github.com/example/storefront/pkg/repository/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	err := Seed(ctx, s, config.StorageConfig{
		SeedProducts: []config.SeedProduct{{ID: 1, Name: "Keyboard", Price: "100.50", Stock: 3}},
		SeedUsers:    []config.SeedUser{{ID: "u1", FullName: "Ada", Email: "ada@example.com"}},
	})
	require.NoError(t, err)

	p, err := s.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("100.50").Equal(p.Price))
	assert.Equal(t, 3, p.Stock)

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, u.Role)
}

func TestSeed_RestartKeepsLedgerState(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	cfg := config.StorageConfig{
		SeedProducts: []config.SeedProduct{
			{ID: 1, Name: "Keyboard", Price: "100", Stock: 3},
			{ID: 2, Name: "Mouse", Price: "25", Stock: 10},
		},
		SeedUsers: []config.SeedUser{{ID: "u1", FullName: "Ada", Email: "ada@example.com"}},
	}
	require.NoError(t, Seed(ctx, s, cfg))

	require.NoError(t, s.InTx(ctx, func(tx port.Tx) error {
		return tx.AddStock(ctx, 1, -3)
	}))
	require.NoError(t, s.SoftDeleteProduct(ctx, 2))

	cfg.SeedUsers[0].Role = string(models.RoleAdmin)
	require.NoError(t, Seed(ctx, s, cfg))

	sold, err := s.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, sold.Stock, "sold out stock is not refilled")

	retired, err := s.GetProduct(ctx, 2)
	require.NoError(t, err)
	assert.True(t, retired.Deleted(), "deleted product stays deleted")
	assert.Equal(t, 10, retired.Stock)

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
}

func TestSeed_BadPrice(t *testing.T) {
	err := Seed(context.Background(), memstore.New(), config.StorageConfig{
		SeedProducts: []config.SeedProduct{{ID: 1, Price: "ten"}},
	})
	assert.Error(t, err)
}
