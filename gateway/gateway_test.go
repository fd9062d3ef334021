package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/example/storefront/pkg/audit"
	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/inventory"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/order"
	"github.com/example/storefront/pkg/port"
	"github.com/example/storefront/pkg/repository/memstore"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testAPI struct {
	t       *testing.T
	gw      *Gateway
	store   *memstore.Store
	metrics *metrics.Metrics
	lookups *atomic.Int64
}

// countingCatalog counts the product reads the cart service makes.
type countingCatalog struct {
	port.Catalog
	n *atomic.Int64
}

func (c countingCatalog) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	c.n.Add(1)
	return c.Catalog.GetProduct(ctx, productID)
}

func newTestAPI(t *testing.T, ready func(context.Context) error) *testAPI {
	t.Helper()
	ctx := context.Background()

	store := memstore.New()
	require.NoError(t, store.UpsertProduct(ctx, &models.Product{ID: 1, Name: "Keyboard", Price: decimal.NewFromInt(100), Stock: 3}))
	require.NoError(t, store.UpsertProduct(ctx, &models.Product{ID: 2, Name: "Mouse", Price: decimal.NewFromInt(25), Stock: 10}))
	require.NoError(t, store.UpsertProduct(ctx, &models.Product{ID: 3, Name: "Retired", Price: decimal.NewFromInt(5), Stock: 10}))
	require.NoError(t, store.SoftDeleteProduct(ctx, 3))
	for _, u := range []*models.User{
		{ID: "admin-1", FullName: "Admin", Email: "admin@example.com", Role: models.RoleAdmin},
		{ID: "user-1", FullName: "Ann", Email: "ann@example.com"},
		{ID: "user-2", FullName: "Bob", Email: "bob@example.com"},
	} {
		require.NoError(t, store.UpsertUser(ctx, u))
	}

	logger := zap.NewNop()
	m := metrics.New()
	sessions := memstore.NewSessions()
	lookups := new(atomic.Int64)
	carts := cart.NewService(sessions, store, countingCatalog{Catalog: store, n: lookups})
	cfg := &config.Config{
		Shop:   config.ShopConfig{Currency: "USD"},
		Orders: config.OrdersConfig{ConflictRetries: 1},
	}

	gw, err := NewGateway(cfg, logger, Services{
		Orders:     order.NewWorkflow(store, cfg.Orders, logger, order.WithMetrics(m)),
		History:    order.NewHistory(store, nil, logger),
		Inventory:  inventory.NewService(store, nil, logger),
		Carts:      carts,
		Reconciler: cart.NewReconciler(carts, sessions, nil, m, logger),
		Users:      store,
		AuditTrail: staticTrail{},
		Metrics:    m,
		Ready:      ready,
	})
	require.NoError(t, err)

	return &testAPI{t: t, gw: gw, store: store, metrics: m, lookups: lookups}
}

type request struct {
	method    string
	path      string
	body      interface{}
	sessionID string
	userID    string
}

func (a *testAPI) do(r request) *httptest.ResponseRecorder {
	a.t.Helper()
	var body bytes.Buffer
	if r.body != nil {
		require.NoError(a.t, json.NewEncoder(&body).Encode(r.body))
	}
	req := httptest.NewRequest(r.method, r.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if r.sessionID != "" {
		req.Header.Set(headerSessionID, r.sessionID)
	}
	if r.userID != "" {
		req.Header.Set(headerUserID, r.userID)
	}

	rec := httptest.NewRecorder()
	a.gw.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func checkout(lines ...order.LineInput) order.PlaceOrderInput {
	return order.PlaceOrderInput{
		Customer: order.Customer{
			FullName: gofakeit.Name(),
			Phone:    gofakeit.Phone(),
			Address:  gofakeit.Address().Address,
		},
		Lines: lines,
	}
}

func lineOf(productID int64, qty int, price int64) order.LineInput {
	p := decimal.NewFromInt(price)
	return order.LineInput{ProductID: productID, Quantity: qty, Price: &p}
}

func (a *testAPI) placeOrder(userID string, lines ...order.LineInput) orderResponse {
	a.t.Helper()
	rec := a.do(request{method: http.MethodPost, path: "/api/v1/orders", body: checkout(lines...), userID: userID})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[orderResponse](a.t, rec)
}

type staticTrail struct{}

func (staticTrail) AuditTrail(_ context.Context, entityID string, limit int64) ([]audit.Event, error) {
	return []audit.Event{{ID: "evt-1", Action: audit.ActionOrderPlaced, EntityID: entityID}}, nil
}

func TestPlaceOrder(t *testing.T) {
	api := newTestAPI(t, nil)

	got := api.placeOrder("user-1", lineOf(1, 2, 100), lineOf(2, 1, 25))

	assert.Equal(t, models.OrderStatusPending, got.Status)
	assert.True(t, decimal.NewFromInt(225).Equal(got.TotalAmount))
	assert.Equal(t, "USD", got.Currency)
	assert.NotEmpty(t, got.TotalDisplay)
	require.NotNil(t, got.UserID)
	assert.Equal(t, "user-1", *got.UserID)

	p, err := api.store.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stock)
}

func TestPlaceOrder_Guest(t *testing.T) {
	api := newTestAPI(t, nil)

	got := api.placeOrder("", lineOf(2, 1, 25))
	assert.Nil(t, got.UserID)
}

func TestPlaceOrder_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		in     order.PlaceOrderInput
		status int
		code   string
	}{
		{"insufficient stock", checkout(lineOf(1, 5, 100)), http.StatusConflict, "insufficient_stock"},
		{"unknown product", checkout(lineOf(99, 1, 1)), http.StatusNotFound, "not_found"},
		{"soft deleted product", checkout(lineOf(3, 1, 5)), http.StatusGone, "product_unavailable"},
		{"zero quantity", checkout(lineOf(2, 0, 25)), http.StatusBadRequest, "invalid_quantity"},
		{"quantity over limit", checkout(lineOf(2, models.MaxLineQuantity+1, 25)), http.StatusBadRequest, "invalid_quantity"},
		{"no lines", checkout(), http.StatusBadRequest, "invalid_input"},
		{"missing price", checkout(order.LineInput{ProductID: 2, Quantity: 1}), http.StatusBadRequest, "invalid_input"},
		{"sub-cent price", func() order.PlaceOrderInput {
			l := lineOf(2, 1, 0)
			*l.Price = decimal.RequireFromString("10.005")
			return checkout(l)
		}(), http.StatusBadRequest, "invalid_input"},
		{"blank address", func() order.PlaceOrderInput {
			in := checkout(lineOf(2, 1, 25))
			in.Address = "   "
			return in
		}(), http.StatusBadRequest, "invalid_input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, nil)

			rec := api.do(request{method: http.MethodPost, path: "/api/v1/orders", body: tt.in})

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[map[string]interface{}](t, rec)["code"])
		})
	}
}

func TestPlaceOrder_PriceIsRequired(t *testing.T) {
	api := newTestAPI(t, nil)
	body := map[string]interface{}{
		"full_name": gofakeit.Name(),
		"phone":     gofakeit.Phone(),
		"address":   gofakeit.Address().Address,
		"lines":     []map[string]interface{}{{"product_id": 2, "quantity": 4}},
	}

	rec := api.do(request{method: http.MethodPost, path: "/api/v1/orders", body: body})

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	p, err := api.store.GetProduct(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)
}

func TestPlaceOrder_InsufficientStockNamesTheProduct(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(request{method: http.MethodPost, path: "/api/v1/orders", body: checkout(lineOf(2, 1, 25), lineOf(1, 4, 100))})

	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	assert.EqualValues(t, 1, body["product_id"])
	assert.EqualValues(t, 3, body["available"])

	p, err := api.store.GetProduct(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)
}

func TestOrderVisibility(t *testing.T) {
	api := newTestAPI(t, nil)
	placed := api.placeOrder("user-1", lineOf(2, 1, 25))
	path := "/api/v1/orders/" + placed.ID

	assert.Equal(t, http.StatusUnauthorized, api.do(request{method: http.MethodGet, path: path}).Code)
	assert.Equal(t, http.StatusForbidden, api.do(request{method: http.MethodGet, path: path, userID: "user-2"}).Code)
	assert.Equal(t, http.StatusOK, api.do(request{method: http.MethodGet, path: path, userID: "user-1"}).Code)
	assert.Equal(t, http.StatusOK, api.do(request{method: http.MethodGet, path: path, userID: "admin-1"}).Code)
	assert.Equal(t, http.StatusNotFound, api.do(request{method: http.MethodGet, path: "/api/v1/orders/missing", userID: "admin-1"}).Code)
}

func TestUnknownUserIsRejected(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(request{method: http.MethodGet, path: "/api/v1/cart", sessionID: "s1", userID: "ghost"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMyOrders(t *testing.T) {
	api := newTestAPI(t, nil)
	api.placeOrder("user-1", lineOf(2, 1, 25))
	api.placeOrder("user-2", lineOf(2, 1, 25))
	api.placeOrder("user-1", lineOf(2, 2, 25))

	rec := api.do(request{method: http.MethodGet, path: "/api/v1/orders/me", userID: "user-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	orders := decode[[]orderResponse](t, rec)
	require.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, "user-1", *o.UserID)
	}
	assert.Equal(t, 2, orders[0].Items[0].Quantity)
}

func TestAdminRoutes(t *testing.T) {
	api := newTestAPI(t, nil)
	placed := api.placeOrder("user-1", lineOf(2, 1, 25))
	statusPath := fmt.Sprintf("/api/v1/admin/orders/%s/status", placed.ID)

	assert.Equal(t, http.StatusUnauthorized,
		api.do(request{method: http.MethodPatch, path: statusPath, body: statusRequest{Status: "SHIPPED"}}).Code)
	assert.Equal(t, http.StatusForbidden,
		api.do(request{method: http.MethodPatch, path: statusPath, body: statusRequest{Status: "SHIPPED"}, userID: "user-1"}).Code)

	rec := api.do(request{method: http.MethodPatch, path: statusPath, body: statusRequest{Status: "SHIPPED"}, userID: "admin-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.OrderStatusShipped, decode[orderResponse](t, rec).Status)

	rec = api.do(request{method: http.MethodPatch, path: statusPath, body: statusRequest{Status: "PENDING"}, userID: "admin-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(request{method: http.MethodPatch, path: statusPath, body: statusRequest{Status: "LOST"}, userID: "admin-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(request{method: http.MethodGet, path: "/api/v1/admin/orders?status=SHIPPED", userID: "admin-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]orderResponse](t, rec), 1)
}

func TestAdminShippingEdit(t *testing.T) {
	api := newTestAPI(t, nil)
	placed := api.placeOrder("user-1", lineOf(2, 1, 25))

	rec := api.do(request{
		method: http.MethodPatch,
		path:   fmt.Sprintf("/api/v1/admin/orders/%s/shipping", placed.ID),
		body:   order.Customer{FullName: "Ann Lee", Phone: "0900000000", Address: "1 Main St"},
		userID: "admin-1",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1 Main St", decode[orderResponse](t, rec).Address)
}

func TestProductAvailability(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(request{method: http.MethodGet, path: "/api/v1/products/1/availability?qty=2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, inventory.Availability{ProductID: 1, Requested: 2, Available: 3, OK: true}, decode[inventory.Availability](t, rec))

	assert.Equal(t, http.StatusGone, api.do(request{method: http.MethodGet, path: "/api/v1/products/3/availability"}).Code)
	assert.Equal(t, http.StatusNotFound, api.do(request{method: http.MethodGet, path: "/api/v1/products/99/availability"}).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(request{method: http.MethodGet, path: "/api/v1/products/abc/availability"}).Code)
}

func TestAdjustStock(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(request{method: http.MethodPatch, path: "/api/v1/admin/products/1/stock", body: stockRequest{Delta: 5}, userID: "admin-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 8, decode[models.Product](t, rec).Stock)

	rec = api.do(request{method: http.MethodPatch, path: "/api/v1/admin/products/1/stock", body: stockRequest{Delta: 0}, userID: "admin-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartAndLogin(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(request{method: http.MethodGet, path: "/api/v1/cart"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "anonymous cart without a session")

	rec = api.do(request{method: http.MethodPost, path: "/api/v1/cart/lines", body: addLineRequest{ProductID: 2, Quantity: 2}, sessionID: "s1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = api.do(request{method: http.MethodPost, path: "/api/v1/cart/lines", body: addLineRequest{ProductID: 1, Quantity: 1}, sessionID: "s1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(request{method: http.MethodPatch, path: "/api/v1/cart/lines/1", body: quantityRequest{Quantity: 0}, sessionID: "s1"})
	require.Equal(t, http.StatusOK, rec.Code)
	local := decode[cartResponse](t, rec)
	require.Len(t, local.Lines, 1)
	assert.True(t, decimal.NewFromInt(50).Equal(local.Total))

	rec = api.do(request{method: http.MethodPost, path: "/api/v1/cart/lines", body: addLineRequest{ProductID: 2, Quantity: 3}, userID: "user-1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(request{method: http.MethodPost, path: "/api/v1/session/login", body: loginRequest{LoginEventID: "login-1"}, sessionID: "s1", userID: "user-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	merged := decode[cartResponse](t, rec)
	require.Len(t, merged.Lines, 1)
	assert.Equal(t, 5, merged.Lines[0].Quantity)
	assert.Equal(t, 1, merged.Merged)

	rec = api.do(request{method: http.MethodPost, path: "/api/v1/session/login", body: loginRequest{LoginEventID: "login-1"}, sessionID: "s1", userID: "user-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	replay := decode[cartResponse](t, rec)
	assert.True(t, replay.Replayed)
	assert.Equal(t, 5, replay.Lines[0].Quantity)

	rec = api.do(request{method: http.MethodGet, path: "/api/v1/cart", sessionID: "s1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[cartResponse](t, rec).Lines, "session cart is cleared after login")

	rec = api.do(request{method: http.MethodDelete, path: "/api/v1/cart", userID: "user-1"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCartResponseReadsCatalogOnce(t *testing.T) {
	api := newTestAPI(t, nil)

	for _, id := range []int64{1, 2} {
		rec := api.do(request{method: http.MethodPost, path: "/api/v1/cart/lines", body: addLineRequest{ProductID: id, Quantity: 1}, sessionID: "s1"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	api.lookups.Store(0)

	rec := api.do(request{method: http.MethodGet, path: "/api/v1/cart", sessionID: "s1"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[cartResponse](t, rec)
	assert.Equal(t, int64(2), api.lookups.Load(), "one catalog read per line")
	assert.True(t, decimal.NewFromInt(125).Equal(got.Total), got.Total.String())
}

func TestLoginRequiresUser(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(request{method: http.MethodPost, path: "/api/v1/session/login", sessionID: "s1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutDropsSessionCart(t *testing.T) {
	api := newTestAPI(t, nil)
	rec := api.do(request{method: http.MethodPost, path: "/api/v1/cart/lines", body: addLineRequest{ProductID: 2, Quantity: 1}, sessionID: "s1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, http.StatusNoContent, api.do(request{method: http.MethodPost, path: "/api/v1/session/logout", sessionID: "s1"}).Code)

	rec = api.do(request{method: http.MethodGet, path: "/api/v1/cart", sessionID: "s1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[cartResponse](t, rec).Lines)
}

func TestAuditTrailRoute(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(request{method: http.MethodGet, path: "/api/v1/admin/audit/order:1?limit=10", userID: "admin-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]audit.Event](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, "order:1", events[0].EntityID)

	rec = api.do(request{method: http.MethodGet, path: "/api/v1/admin/audit/order:1?limit=0", userID: "admin-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t, nil)
	api.placeOrder("", lineOf(2, 1, 25))

	assert.Equal(t, http.StatusOK, api.do(request{method: http.MethodGet, path: "/health"}).Code)

	rec := api.do(request{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_orders_placed_total 1")

	down := newTestAPI(t, func(context.Context) error { return errors.New("mysql down") })
	assert.Equal(t, http.StatusServiceUnavailable, down.do(request{method: http.MethodGet, path: "/health"}).Code)
}

func TestWriteError_ConflictIsRetryable(t *testing.T) {
	api := newTestAPI(t, nil)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)

	api.gw.writeError(c, fmt.Errorf("place order: %w", errs.ErrTransactionConflict))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, true, decode[map[string]interface{}](t, rec)["retryable"])
}

func TestWriteError_UnknownIsInternal(t *testing.T) {
	api := newTestAPI(t, nil)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	api.gw.writeError(c, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}
