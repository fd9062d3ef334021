// Package memstore keeps the whole storefront in process memory. It backs the
// "memory" storage driver and the service tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/port"
	"gorm.io/gorm"
)

type storedOrder struct {
	order *models.Order
	seq   uint64
}

// Store serializes transactions on a single mutex. A transaction stages its
// writes and publishes them only when fn returns nil.
type Store struct {
	mu sync.Mutex

	products map[int64]*models.Product
	orders   map[string]*storedOrder
	users    map[string]*models.User
	carts    map[string]*models.Cart // by user id
	seq      uint64

	now func() time.Time
}

func New() *Store {
	return &Store{
		products: make(map[int64]*models.Product),
		orders:   make(map[string]*storedOrder),
		users:    make(map[string]*models.User),
		carts:    make(map[string]*models.Cart),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) UpsertProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Stock < 0 {
		return fmt.Errorf("product %d: %w", p.ID, errs.ErrInvalidQuantity)
	}
	c := *p
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	c.UpdatedAt = s.now()
	s.products[c.ID] = &c
	return nil
}

// CreateProductIfMissing inserts p unless a product with its id exists,
// deleted or not. An existing row is left untouched.
func (s *Store) CreateProductIfMissing(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; ok {
		return nil
	}
	if p.Stock < 0 {
		return fmt.Errorf("product %d: %w", p.ID, errs.ErrInvalidQuantity)
	}
	c := *p
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	s.products[c.ID] = &c
	return nil
}

// SoftDeleteProduct hides the product from sale without removing it.
func (s *Store) SoftDeleteProduct(_ context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("product %d: %w", productID, errs.ErrProductNotFound)
	}
	p.DeletedAt = gorm.DeletedAt{Time: s.now(), Valid: true}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, errs.ErrProductNotFound)
	}
	c := *p
	return &c, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, errs.ErrOrderNotFound)
	}
	return o.order.Clone(), nil
}

func (s *Store) ListOrders(ctx context.Context, filter port.OrderFilter) ([]models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*storedOrder, 0, len(s.orders))
	for _, o := range s.orders {
		if filter.UserID != "" && !o.order.OwnedBy(filter.UserID) {
			continue
		}
		if filter.Status != "" && o.order.Status != filter.Status {
			continue
		}
		matched = append(matched, o)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.order.CreatedAt.Equal(b.order.CreatedAt) {
			return a.order.CreatedAt.After(b.order.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]models.Order, 0, len(matched))
	for _, o := range matched {
		out = append(out, *o.order.Clone())
	}
	return out, nil
}

// InTx holds the store lock for the whole of fn.
func (s *Store) InTx(ctx context.Context, fn func(tx port.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		products: make(map[int64]*models.Product),
		orders:   make(map[string]*models.Order),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tx.commit()
	return nil
}

type memTx struct {
	store *Store

	products map[int64]*models.Product
	orders   map[string]*models.Order
	created  []string
}

func (t *memTx) LockProduct(ctx context.Context, productID int64) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := t.product(productID)
	if err != nil {
		return nil, err
	}
	c := *p
	return &c, nil
}

func (t *memTx) AddStock(ctx context.Context, productID int64, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := t.product(productID)
	if err != nil {
		return err
	}
	if p.Stock+delta < 0 {
		return errs.InsufficientStock(productID, -delta, p.Stock)
	}
	p.Stock += delta
	p.UpdatedAt = t.store.now()
	return nil
}

func (t *memTx) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.store.orders[order.ID]; ok {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	if _, ok := t.orders[order.ID]; ok {
		return fmt.Errorf("order %s already exists", order.ID)
	}

	now := t.store.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	for i := range order.Items {
		order.Items[i].ID = uint64(i + 1)
		order.Items[i].OrderID = order.ID
	}

	t.orders[order.ID] = order.Clone()
	t.created = append(t.created, order.ID)
	return nil
}

func (t *memTx) LockOrder(ctx context.Context, orderID string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o, ok := t.orders[orderID]; ok {
		return o.Clone(), nil
	}
	o, ok := t.store.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, errs.ErrOrderNotFound)
	}
	return o.order.Clone(), nil
}

func (t *memTx) UpdateOrder(ctx context.Context, order *models.Order) error {
	current, err := t.LockOrder(ctx, order.ID)
	if err != nil {
		return err
	}

	current.Status = order.Status
	current.FullName = order.FullName
	current.Phone = order.Phone
	current.Address = order.Address
	current.UpdatedAt = t.store.now()
	t.orders[order.ID] = current

	order.UpdatedAt = current.UpdatedAt
	return nil
}

func (t *memTx) product(productID int64) (*models.Product, error) {
	if p, ok := t.products[productID]; ok {
		return p, nil
	}
	p, ok := t.store.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, errs.ErrProductNotFound)
	}
	c := *p
	t.products[productID] = &c
	return &c, nil
}

func (t *memTx) commit() {
	for id, p := range t.products {
		t.store.products[id] = p
	}

	// seq keeps creation order stable for orders sharing a timestamp.
	for _, id := range t.created {
		t.store.seq++
		t.store.orders[id] = &storedOrder{seq: t.store.seq}
	}
	for id, o := range t.orders {
		t.store.orders[id].order = o
	}
}
