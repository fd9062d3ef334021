// Package order places orders against the inventory ledger and drives their
// lifecycle afterwards.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/storefront/pkg/audit"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/inventory"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/port"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultPaymentMethod = "COD"

type Customer struct {
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Address  string `json:"address" binding:"required"`
}

func (c Customer) normalize() (Customer, error) {
	out := Customer{
		FullName: strings.TrimSpace(c.FullName),
		Phone:    strings.TrimSpace(c.Phone),
		Address:  strings.TrimSpace(c.Address),
	}
	if out.FullName == "" || out.Phone == "" || out.Address == "" {
		return Customer{}, fmt.Errorf("full name, phone and address are required: %w", errs.ErrInvalidInput)
	}
	return out, nil
}

// LineInput is one product of a checkout. Price is the price the customer was
// shown; it becomes the order line's price at purchase and must be given.
type LineInput struct {
	ProductID int64            `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
}

type PlaceOrderInput struct {
	Customer
	UserID        string      `json:"-"`
	PaymentMethod string      `json:"payment_method"`
	Note          string      `json:"note"`
	Lines         []LineInput `json:"lines" binding:"required,min=1,dive"`
}

// mergeLines validates every line and folds repeated products into one line so
// that no product row is debited twice in the same transaction.
func mergeLines(lines []LineInput) ([]LineInput, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("order has no lines: %w", errs.ErrInvalidInput)
	}

	merged := make([]LineInput, 0, len(lines))
	index := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 || l.Quantity > models.MaxLineQuantity {
			return nil, fmt.Errorf("product %d quantity %d: %w", l.ProductID, l.Quantity, errs.ErrInvalidQuantity)
		}
		if l.Price == nil {
			return nil, fmt.Errorf("product %d has no price: %w", l.ProductID, errs.ErrInvalidInput)
		}
		if l.Price.IsNegative() || !l.Price.Equal(l.Price.Round(models.MoneyScale)) {
			return nil, fmt.Errorf("product %d price %s: %w", l.ProductID, l.Price, errs.ErrInvalidInput)
		}

		i, seen := index[l.ProductID]
		if !seen {
			index[l.ProductID] = len(merged)
			merged = append(merged, l)
			continue
		}
		if !merged[i].Price.Equal(*l.Price) {
			return nil, fmt.Errorf("product %d quoted at two prices: %w", l.ProductID, errs.ErrInvalidInput)
		}
		if merged[i].Quantity+l.Quantity > models.MaxLineQuantity {
			return nil, fmt.Errorf("product %d quantity over %d: %w", l.ProductID, models.MaxLineQuantity, errs.ErrInvalidQuantity)
		}
		merged[i].Quantity += l.Quantity
	}
	return merged, nil
}

type Option func(*Workflow)

func WithCache(cache port.OrderCache) Option {
	return func(w *Workflow) { w.cache = cache }
}

func WithAudit(recorder audit.Recorder) Option {
	return func(w *Workflow) { w.audit = recorder }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

// Workflow owns every write to orders.
type Workflow struct {
	store   port.Store
	cache   port.OrderCache
	audit   audit.Recorder
	metrics *metrics.Metrics
	logger  *zap.Logger
	cfg     config.OrdersConfig
	now     func() time.Time
}

func NewWorkflow(store port.Store, cfg config.OrdersConfig, logger *zap.Logger, opts ...Option) *Workflow {
	w := &Workflow{
		store:  store,
		audit:  audit.Discard{},
		logger: logger.Named("order"),
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// PlaceOrder turns the lines into a PENDING order and debits stock for all of
// them in one transaction. Either everything is written or nothing is.
func (w *Workflow) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	start := time.Now()

	order, err := w.placeOrder(ctx, in)
	if err != nil {
		w.metrics.OrderFailed(failureReason(err), time.Since(start))
		w.logger.Info("Order rejected", zap.String("reason", failureReason(err)), zap.Error(err))
		return nil, err
	}
	w.metrics.OrderPlaced(time.Since(start))

	w.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("lines", len(order.Items)))

	w.audit.Record(audit.Event{
		Action:   audit.ActionOrderPlaced,
		EntityID: order.ID,
		ActorID:  in.UserID,
		Data: map[string]interface{}{
			"total":          order.TotalAmount.String(),
			"items":          len(order.Items),
			"payment_method": order.PaymentMethod,
		},
	})
	w.cachePut(ctx, order)

	return order, nil
}

func (w *Workflow) placeOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	customer, err := in.Customer.normalize()
	if err != nil {
		return nil, err
	}
	lines, err := mergeLines(in.Lines)
	if err != nil {
		return nil, err
	}

	payment := strings.TrimSpace(in.PaymentMethod)
	if payment == "" {
		payment = DefaultPaymentMethod
	}
	var userID *string
	if in.UserID != "" {
		uid := in.UserID
		userID = &uid
	}

	var order *models.Order
	err = w.withRetry(ctx, "place order", func() error {
		order = &models.Order{
			ID:            uuid.NewString(),
			UserID:        userID,
			FullName:      customer.FullName,
			Phone:         customer.Phone,
			Address:       customer.Address,
			PaymentMethod: payment,
			Note:          strings.TrimSpace(in.Note),
			Status:        models.OrderStatusPending,
			CreatedAt:     w.now(),
		}
		return w.store.InTx(ctx, func(tx port.Tx) error {
			return placeInTx(ctx, tx, order, lines)
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func placeInTx(ctx context.Context, tx port.Tx, order *models.Order, lines []LineInput) error {
	ledger := inventory.NewLedger(tx)

	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		p, err := ledger.Resolve(ctx, l.ProductID)
		if err != nil {
			return err
		}
		items = append(items, models.OrderItem{
			ProductID:       l.ProductID,
			ProductName:     p.Name,
			Quantity:        l.Quantity,
			PriceAtPurchase: *l.Price,
		})
	}

	for _, l := range lines {
		avail, err := ledger.CheckAvailability(ctx, l.ProductID, l.Quantity)
		if err != nil {
			return err
		}
		if !avail.OK {
			return errs.InsufficientStock(l.ProductID, l.Quantity, avail.Available)
		}
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	order.Items = items
	order.TotalAmount = total

	if err := tx.CreateOrder(ctx, order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	for _, l := range lines {
		if err := ledger.Debit(ctx, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// withRetry repeats fn while it fails with a transaction conflict. Nothing was
// committed by a failed attempt, so the inputs can be replayed unchanged.
func (w *Workflow) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !errs.Retryable(err) || attempt >= w.cfg.ConflictRetries {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		w.logger.Warn("Transaction conflict, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
}

func (w *Workflow) cachePut(ctx context.Context, order *models.Order) {
	if w.cache == nil {
		return
	}
	if err := w.cache.PutOrder(ctx, order); err != nil {
		w.logger.Warn("Failed to cache order", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (w *Workflow) cacheInvalidate(ctx context.Context, orderID string) {
	if w.cache == nil {
		return
	}
	if err := w.cache.InvalidateOrder(ctx, orderID); err != nil {
		w.logger.Warn("Failed to invalidate cached order", zap.String("order_id", orderID), zap.Error(err))
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, errs.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, errs.ErrProductUnavailable):
		return "product_unavailable"
	case errors.Is(err, errs.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, errs.ErrInvalidQuantity), errors.Is(err, errs.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, errs.ErrTransactionConflict):
		return "conflict"
	default:
		return "error"
	}
}
