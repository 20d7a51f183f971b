package orders

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/joao-fontenele/zakup/internal/domain"
	"github.com/joao-fontenele/zakup/internal/inventory"
)

// memStore is an in-memory Store. A transaction holds the lock for its whole
// duration and restores a snapshot when fn fails.
type memStore struct {
	mu       sync.Mutex
	products map[string]domain.Product
	orders   map[string]domain.Order
	// insertErr, when set, makes Insert fail after stock was taken.
	insertErr error
	// locked records every LockProducts call.
	locked [][]string
}

func newMemStore(products ...domain.Product) *memStore {
	s := &memStore{
		products: make(map[string]domain.Product),
		orders:   make(map[string]domain.Order),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) stock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := maps.Clone(s.products)
	orders := make(map[string]domain.Order, len(s.orders))
	for id, o := range s.orders {
		orders[id] = copyOrder(o)
	}

	if err := fn(&memTx{store: s}); err != nil {
		s.products = products
		s.orders = orders
		return err
	}
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	o = copyOrder(o)
	return &o, nil
}

func (s *memStore) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.list(func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (s *memStore) ListBySeller(ctx context.Context, sellerID string) ([]domain.Order, error) {
	return s.list(func(o domain.Order) bool { return o.HasSeller(sellerID) }), nil
}

func (s *memStore) list(keep func(domain.Order) bool) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := []domain.Order{}
	for _, o := range s.orders {
		if keep(o) {
			result = append(result, copyOrder(o))
		}
	}
	slices.SortFunc(result, func(a, b domain.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		o.DeliveredAt = &t
	}
	return o
}

type memTx struct {
	store *memStore
}

func (t *memTx) Product(ctx context.Context, id string) (*domain.Product, error) {
	p, ok := t.store.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *memTx) LockProducts(ctx context.Context, ids []string) error {
	t.store.locked = append(t.store.locked, slices.Clone(ids))
	return nil
}

func (t *memTx) DecrementStock(ctx context.Context, productID string, quantity int) error {
	p, ok := t.store.products[productID]
	if !ok || p.Stock < quantity {
		return inventory.ErrInsufficientStock
	}
	p.Stock -= quantity
	t.store.products[productID] = p
	return nil
}

func (t *memTx) RestoreStock(ctx context.Context, productID string, quantity int) error {
	p, ok := t.store.products[productID]
	if !ok {
		return inventory.ErrProductNotFound
	}
	p.Stock += quantity
	t.store.products[productID] = p
	return nil
}

func (t *memTx) Insert(ctx context.Context, order *domain.Order) error {
	if t.store.insertErr != nil {
		return t.store.insertErr
	}
	if _, exists := t.store.orders[order.ID]; exists {
		return errors.New("duplicate order id")
	}
	t.store.orders[order.ID] = copyOrder(*order)
	return nil
}

func (t *memTx) OrderForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	o, ok := t.store.orders[id]
	if !ok {
		return nil, nil
	}
	o = copyOrder(o)
	return &o, nil
}

func (t *memTx) SaveStatus(ctx context.Context, order *domain.Order) error {
	o, ok := t.store.orders[order.ID]
	if !ok {
		return errors.New("order not found")
	}
	o.Status = order.Status
	o.DeliveredAt = order.DeliveredAt
	o.UpdatedAt = order.UpdatedAt
	t.store.orders[order.ID] = o
	return nil
}
