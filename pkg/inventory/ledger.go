// Package inventory is the unit of truth for "can this quantity be sold".
package inventory

import (
	"context"
	"fmt"

	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/port"
)

type Availability struct {
	ProductID int64 `json:"product_id"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
	OK        bool  `json:"ok"`
}

// Ledger is bound to one transaction. Every product it touches is locked on
// first use and stays locked until the transaction ends, so a check followed by
// a debit cannot race another checkout.
type Ledger struct {
	store  port.StockStore
	locked map[int64]*models.Product
}

func NewLedger(store port.StockStore) *Ledger {
	return &Ledger{store: store, locked: make(map[int64]*models.Product)}
}

// Resolve locks the product and rejects soft-deleted ones.
func (l *Ledger) Resolve(ctx context.Context, productID int64) (*models.Product, error) {
	p, err := l.lock(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Deleted() {
		return nil, fmt.Errorf("product %d: %w", productID, errs.ErrProductUnavailable)
	}
	return p, nil
}

func (l *Ledger) CheckAvailability(ctx context.Context, productID int64, qty int) (Availability, error) {
	p, err := l.Resolve(ctx, productID)
	if err != nil {
		return Availability{}, err
	}
	return Availability{
		ProductID: productID,
		Requested: qty,
		Available: p.Stock,
		OK:        qty > 0 && p.Stock >= qty,
	}, nil
}

// Debit takes qty units out of stock or fails with InsufficientStock.
func (l *Ledger) Debit(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("debit %d of product %d: %w", qty, productID, errs.ErrInvalidQuantity)
	}

	avail, err := l.CheckAvailability(ctx, productID, qty)
	if err != nil {
		return err
	}
	if !avail.OK {
		return errs.InsufficientStock(productID, qty, avail.Available)
	}

	return l.add(ctx, productID, -qty)
}

// Credit puts qty units back. Soft-deleted products are credited too; the
// units physically exist whether or not the product is sold.
func (l *Ledger) Credit(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("credit %d of product %d: %w", qty, productID, errs.ErrInvalidQuantity)
	}
	if _, err := l.lock(ctx, productID); err != nil {
		return err
	}
	return l.add(ctx, productID, qty)
}

// WriteOff removes qty units outside of a sale, e.g. damaged or miscounted
// goods. Like Credit it applies to soft-deleted products as well.
func (l *Ledger) WriteOff(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("write off %d of product %d: %w", qty, productID, errs.ErrInvalidQuantity)
	}
	p, err := l.lock(ctx, productID)
	if err != nil {
		return err
	}
	if p.Stock < qty {
		return errs.InsufficientStock(productID, qty, p.Stock)
	}
	return l.add(ctx, productID, -qty)
}

func (l *Ledger) lock(ctx context.Context, productID int64) (*models.Product, error) {
	if p, ok := l.locked[productID]; ok {
		return p, nil
	}

	p, err := l.store.LockProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	l.locked[productID] = p
	return p, nil
}

func (l *Ledger) add(ctx context.Context, productID int64, delta int) error {
	if err := l.store.AddStock(ctx, productID, delta); err != nil {
		return fmt.Errorf("stock change %+d on product %d: %w", delta, productID, err)
	}
	l.locked[productID].Stock += delta
	return nil
}
