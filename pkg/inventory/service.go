package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/example/storefront/pkg/audit"
	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/port"
	"go.uber.org/zap"
)

// Service exposes the ledger operations that run outside an order.
type Service struct {
	store  port.Store
	audit  audit.Recorder
	logger *zap.Logger
}

func NewService(store port.Store, recorder audit.Recorder, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.Discard{}
	}
	return &Service{store: store, audit: recorder, logger: logger}
}

// Availability is an advisory read for product pages. It takes no lock, so the
// answer may be stale by the time an order is placed.
func (s *Service) Availability(ctx context.Context, productID int64, qty int) (Availability, error) {
	if qty <= 0 {
		return Availability{}, errs.ErrInvalidQuantity
	}

	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return Availability{}, err
	}
	if p.Deleted() {
		return Availability{}, fmt.Errorf("product %d: %w", productID, errs.ErrProductUnavailable)
	}

	return Availability{
		ProductID: productID,
		Requested: qty,
		Available: p.Stock,
		OK:        p.Stock >= qty,
	}, nil
}

// Adjust applies a manual stock correction by an administrator. It locks the
// row like a checkout does, so it serializes with in-flight orders.
func (s *Service) Adjust(ctx context.Context, actor *models.User, productID int64, delta int) (*models.Product, error) {
	if !actor.IsAdmin() {
		return nil, errs.ErrUnauthorized
	}
	if delta == 0 {
		return nil, fmt.Errorf("stock delta must not be zero: %w", errs.ErrInvalidQuantity)
	}

	var adjusted models.Product
	err := s.store.InTx(ctx, func(tx port.Tx) error {
		ledger := NewLedger(tx)

		var err error
		if delta > 0 {
			err = ledger.Credit(ctx, productID, delta)
		} else {
			err = ledger.WriteOff(ctx, productID, -delta)
		}
		if errors.Is(err, errs.ErrInsufficientStock) {
			return fmt.Errorf("adjustment would make stock negative: %w", errs.ErrInvalidQuantity)
		}
		if err != nil {
			return err
		}

		adjusted = *ledger.locked[productID]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock adjusted",
		zap.Int64("product_id", productID),
		zap.Int("delta", delta),
		zap.Int("stock", adjusted.Stock),
		zap.String("actor_id", actor.ID))

	s.audit.Record(audit.Event{
		Action:   audit.ActionStockAdjusted,
		EntityID: "product:" + strconv.FormatInt(productID, 10),
		ActorID:  actor.ID,
		Data:     map[string]interface{}{"delta": delta, "stock": adjusted.Stock},
	})

	return &adjusted, nil
}
