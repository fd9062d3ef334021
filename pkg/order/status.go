package order

import (
	"context"
	"fmt"

	"github.com/example/storefront/pkg/audit"
	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/inventory"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/port"
	"go.uber.org/zap"
)

// UpdateStatus moves an order along PENDING → SHIPPED → COMPLETED, or to
// CANCELLED from either non-terminal status. Terminal orders are frozen.
func (w *Workflow) UpdateStatus(ctx context.Context, actor *models.User, orderID, status string) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, errs.ErrUnauthorized
	}
	next, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, fmt.Errorf("%q: %w", status, errs.ErrInvalidStatus)
	}

	var (
		updated  *models.Order
		previous models.OrderStatus
	)
	err := w.withRetry(ctx, "update status", func() error {
		return w.store.InTx(ctx, func(tx port.Tx) error {
			o, err := tx.LockOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if !o.Status.CanTransitionTo(next) {
				return fmt.Errorf("order %s %s -> %s: %w", orderID, o.Status, next, errs.ErrInvalidTransition)
			}

			if next == models.OrderStatusCancelled && w.cfg.RestockOnCancel {
				if err := restock(ctx, tx, o); err != nil {
					return err
				}
			}

			previous = o.Status
			o.Status = next
			if err := tx.UpdateOrder(ctx, o); err != nil {
				return fmt.Errorf("update order: %w", err)
			}
			updated = o
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	w.metrics.StatusChanged(string(next))
	w.logger.Info("Order status changed",
		zap.String("order_id", orderID),
		zap.String("from", string(previous)),
		zap.String("to", string(next)),
		zap.String("actor_id", actor.ID))

	w.audit.Record(audit.Event{
		Action:   audit.ActionOrderStatusChanged,
		EntityID: orderID,
		ActorID:  actor.ID,
		Data: map[string]interface{}{
			"from":      string(previous),
			"to":        string(next),
			"restocked": next == models.OrderStatusCancelled && w.cfg.RestockOnCancel,
		},
	})
	w.cacheInvalidate(ctx, orderID)

	return updated, nil
}

func restock(ctx context.Context, tx port.Tx, o *models.Order) error {
	ledger := inventory.NewLedger(tx)
	for _, item := range o.Items {
		if err := ledger.Credit(ctx, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("restock order %s: %w", o.ID, err)
		}
	}
	return nil
}

// UpdateShipping replaces the contact snapshot of an order that has not
// reached a terminal status. Items and totals never change.
func (w *Workflow) UpdateShipping(ctx context.Context, actor *models.User, orderID string, shipping Customer) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, errs.ErrUnauthorized
	}
	shipping, err := shipping.normalize()
	if err != nil {
		return nil, err
	}

	var updated *models.Order
	err = w.withRetry(ctx, "update shipping", func() error {
		return w.store.InTx(ctx, func(tx port.Tx) error {
			o, err := tx.LockOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if o.Status.Terminal() {
				return fmt.Errorf("order %s is %s: %w", orderID, o.Status, errs.ErrInvalidTransition)
			}

			o.FullName = shipping.FullName
			o.Phone = shipping.Phone
			o.Address = shipping.Address
			if err := tx.UpdateOrder(ctx, o); err != nil {
				return fmt.Errorf("update order: %w", err)
			}
			updated = o
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	w.logger.Info("Order shipping updated", zap.String("order_id", orderID), zap.String("actor_id", actor.ID))
	w.audit.Record(audit.Event{
		Action:   audit.ActionOrderShipping,
		EntityID: orderID,
		ActorID:  actor.ID,
		Data:     map[string]interface{}{"full_name": shipping.FullName, "address": shipping.Address},
	})
	w.cacheInvalidate(ctx, orderID)

	return updated, nil
}
