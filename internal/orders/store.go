package orders

import (
	"context"

	"github.com/joao-fontenele/zakup/internal/domain"
)

// Store persists orders. Reads return (nil, nil) when the order does not exist.
type Store interface {
	// WithinTx runs fn in a single transaction, rolling back every write made
	// through tx when fn returns an error.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListBySeller(ctx context.Context, sellerID string) ([]domain.Order, error)
}

// Tx is the set of writes the order flow performs atomically.
type Tx interface {
	Product(ctx context.Context, id string) (*domain.Product, error)
	// LockProducts locks the product rows in id order until the transaction
	// ends.
	LockProducts(ctx context.Context, ids []string) error
	// DecrementStock returns inventory.ErrInsufficientStock when the product
	// no longer has quantity units.
	DecrementStock(ctx context.Context, productID string, quantity int) error
	RestoreStock(ctx context.Context, productID string, quantity int) error
	Insert(ctx context.Context, order *domain.Order) error
	// OrderForUpdate loads and locks the order until the transaction ends.
	OrderForUpdate(ctx context.Context, id string) (*domain.Order, error)
	SaveStatus(ctx context.Context, order *domain.Order) error
}
