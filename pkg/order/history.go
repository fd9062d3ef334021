package order

import (
	"context"
	"fmt"

	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/port"
	"go.uber.org/zap"
)

// History is the read side of orders.
type History struct {
	store  port.Store
	cache  port.OrderCache
	logger *zap.Logger
}

// NewHistory accepts a nil cache.
func NewHistory(store port.Store, cache port.OrderCache, logger *zap.Logger) *History {
	return &History{store: store, cache: cache, logger: logger.Named("order-history")}
}

// GetOrder returns the order to its owner or to an administrator. Guest
// orders have no owner.
func (h *History) GetOrder(ctx context.Context, viewer *models.User, orderID string) (*models.Order, error) {
	if viewer == nil {
		return nil, errs.ErrUnauthenticated
	}

	o, err := h.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() && !o.OwnedBy(viewer.ID) {
		return nil, errs.ErrUnauthorized
	}
	return o, nil
}

func (h *History) load(ctx context.Context, orderID string) (*models.Order, error) {
	if h.cache != nil {
		o, err := h.cache.GetOrder(ctx, orderID)
		if err != nil {
			h.logger.Warn("Order cache read failed", zap.String("order_id", orderID), zap.Error(err))
		}
		if o != nil {
			return o, nil
		}
	}

	o, err := h.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.PutOrder(ctx, o); err != nil {
			h.logger.Warn("Failed to cache order", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return o, nil
}

// ListForUser returns the orders of one account, newest first.
func (h *History) ListForUser(ctx context.Context, viewer *models.User, userID string) ([]models.Order, error) {
	if viewer == nil {
		return nil, errs.ErrUnauthenticated
	}
	if viewer.ID != userID && !viewer.IsAdmin() {
		return nil, errs.ErrUnauthorized
	}
	return h.store.ListOrders(ctx, port.OrderFilter{UserID: userID})
}

// ListAll is the admin order table, newest first. An empty status lists every
// order.
func (h *History) ListAll(ctx context.Context, viewer *models.User, status string) ([]models.Order, error) {
	if viewer == nil {
		return nil, errs.ErrUnauthenticated
	}
	if !viewer.IsAdmin() {
		return nil, errs.ErrUnauthorized
	}

	filter := port.OrderFilter{}
	if status != "" {
		st, ok := models.ParseOrderStatus(status)
		if !ok {
			return nil, fmt.Errorf("%q: %w", status, errs.ErrInvalidStatus)
		}
		filter.Status = st
	}
	return h.store.ListOrders(ctx, filter)
}
