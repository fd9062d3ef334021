package order

import (
	"context"
	"errors"
	"testing"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/port"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func TestPlaceOrder_Scenario(t *testing.T) {
	s, w := newFixture(t, config.OrdersConfig{})
	ctx := context.Background()

	first, err := w.PlaceOrder(ctx, input(customer.ID, line(1, 2, 100)))
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, first.Status)
	assert.True(t, decimal.NewFromInt(200).Equal(first.TotalAmount))
	assert.Equal(t, DefaultPaymentMethod, first.PaymentMethod)
	assert.Equal(t, 1, stockOf(t, s, 1))

	_, err = w.PlaceOrder(ctx, input("", line(1, 2, 100)))
	var stockErr *errs.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(1), stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 1, stockOf(t, s, 1))

	shipped, err := w.UpdateStatus(ctx, admin, first.ID, "SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, shipped.Status)

	completed, err := w.UpdateStatus(ctx, admin, first.ID, "COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, completed.Status)

	_, err = w.UpdateStatus(ctx, admin, first.ID, "CANCELLED")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestPlaceOrder_NoOversell(t *testing.T) {
	s, w := newFixture(t, config.OrdersConfig{})
	ctx := context.Background()

	const buyers = 12
	results := make([]error, buyers)

	var g errgroup.Group
	for i := 0; i < buyers; i++ {
		i := i
		g.Go(func() error {
			_, results[i] = w.PlaceOrder(ctx, input("", line(1, 1, 100)))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	placed := 0
	for _, err := range results {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, errs.ErrInsufficientStock)
	}
	assert.Equal(t, 3, placed)
	assert.Equal(t, 0, stockOf(t, s, 1))

	orders, err := s.ListOrders(ctx, port.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, orders, 3)
}

func TestPlaceOrder_AtomicOnMidTransactionFailure(t *testing.T) {
	s, _ := newFixture(t, config.OrdersConfig{})
	w := NewWorkflow(&failingStore{Store: s, failAt: 2}, config.OrdersConfig{}, zap.NewNop())
	ctx := context.Background()

	_, err := w.PlaceOrder(ctx, input(customer.ID, line(1, 1, 100), line(2, 4, 25)))
	require.ErrorIs(t, err, errs.ErrTransactionConflict)

	assert.Equal(t, 3, stockOf(t, s, 1))
	assert.Equal(t, 10, stockOf(t, s, 2))

	orders, err := s.ListOrders(ctx, port.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrder_PriceSnapshot(t *testing.T) {
	s, w := newFixture(t, config.OrdersConfig{})
	ctx := context.Background()

	placed, err := w.PlaceOrder(ctx, input(customer.ID, line(1, 1, 100), line(2, 2, 25)))
	require.NoError(t, err)

	require.NoError(t, s.UpsertProduct(ctx, &models.Product{ID: 1, Name: "Keyboard v2", Price: decimal.NewFromInt(999), Stock: 50}))

	stored, err := s.GetOrder(ctx, placed.ID)
	require.NoError(t, err)

	want := []models.OrderItem{
		{OrderID: placed.ID, ProductID: 1, ProductName: "Keyboard", Quantity: 1, PriceAtPurchase: decimal.NewFromInt(100)},
		{OrderID: placed.ID, ProductID: 2, ProductName: "Mouse", Quantity: 2, PriceAtPurchase: decimal.NewFromInt(25)},
	}
	if diff := cmp.Diff(want, stored.Items, decimalEqual, cmpopts.IgnoreFields(models.OrderItem{}, "ID")); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, decimal.NewFromInt(150).Equal(stored.TotalAmount))
}

func TestPlaceOrder_MergesRepeatedProducts(t *testing.T) {
	s, w := newFixture(t, config.OrdersConfig{})
	ctx := context.Background()

	placed, err := w.PlaceOrder(ctx, input("", line(2, 1, 25), line(1, 1, 100), line(2, 2, 25)))
	require.NoError(t, err)

	require.Len(t, placed.Items, 2)
	assert.Equal(t, int64(2), placed.Items[0].ProductID)
	assert.Equal(t, 3, placed.Items[0].Quantity)
	assert.Equal(t, 7, stockOf(t, s, 2))
	assert.Nil(t, placed.UserID)
}

func TestPlaceOrder_Rejections(t *testing.T) {
	s, w := newFixture(t, config.OrdersConfig{})
	ctx := context.Background()

	blank := input("", line(1, 1, 100))
	blank.Address = "   "

	tests := []struct {
		name    string
		in      PlaceOrderInput
		wantErr error
	}{
		{"no lines", input(""), errs.ErrInvalidInput},
		{"zero quantity", input("", line(1, 0, 100)), errs.ErrInvalidQuantity},
		{"negative quantity", input("", line(1, -2, 100)), errs.ErrInvalidQuantity},
		{"negative price", input("", line(1, 1, -1)), errs.ErrInvalidInput},
		{"missing price", input("", LineInput{ProductID: 1, Quantity: 1}), errs.ErrInvalidInput},
		{"sub-cent price", input("", pricedLine(1, 1, "10.005")), errs.ErrInvalidInput},
		{"quantity over limit", input("", line(2, models.MaxLineQuantity+1, 25)), errs.ErrInvalidQuantity},
		{"merged quantity over limit", input("", line(2, models.MaxLineQuantity, 25), line(2, 1, 25)), errs.ErrInvalidQuantity},
		{"blank address", blank, errs.ErrInvalidInput},
		{"two prices for one product", input("", line(1, 1, 100), line(1, 1, 90)), errs.ErrInvalidInput},
		{"unknown product", input("", line(42, 1, 1)), errs.ErrProductNotFound},
		{"soft deleted product", input("", line(3, 1, 5)), errs.ErrProductUnavailable},
		{"not enough stock", input("", line(2, 1, 25), line(1, 4, 100)), errs.ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.PlaceOrder(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Equal(t, 3, stockOf(t, s, 1))
	assert.Equal(t, 10, stockOf(t, s, 2))
}

func TestPlaceOrder_CentPricesAreKeptExactly(t *testing.T) {
	_, w := newFixture(t, config.OrdersConfig{})

	placed, err := w.PlaceOrder(context.Background(), input("", pricedLine(2, 3, "19.99")))
	require.NoError(t, err)

	assert.Equal(t, "59.97", placed.TotalAmount.String())
	assert.Equal(t, "19.99", placed.Items[0].PriceAtPurchase.String())
}

func TestPlaceOrder_RetriesConflicts(t *testing.T) {
	tests := []struct {
		name      string
		conflicts int
		wantErr   error
	}{
		{"recovers within budget", 2, nil},
		{"gives up after budget", 3, errs.ErrTransactionConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newFixture(t, config.OrdersConfig{})
			store := &conflictStore{Store: s, conflicts: tt.conflicts}
			w := NewWorkflow(store, config.OrdersConfig{ConflictRetries: 2}, zap.NewNop())

			_, err := w.PlaceOrder(context.Background(), input("", line(1, 1, 100)))
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, 2, stockOf(t, s, 1))
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr))
			assert.True(t, errs.Retryable(err))
			assert.Equal(t, 3, store.attempts)
		})
	}
}

func TestPlaceOrder_WarmsCache(t *testing.T) {
	s, _ := newFixture(t, config.OrdersConfig{})
	cache := newMemCache()
	w := NewWorkflow(s, config.OrdersConfig{}, zap.NewNop(), WithCache(cache))

	placed, err := w.PlaceOrder(context.Background(), input(customer.ID, line(1, 1, 100)))
	require.NoError(t, err)
	assert.True(t, cache.has(placed.ID))
}
