// Package inventory adjusts product stock. Callers pass the transaction (or
// pool) the change must be part of.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Lock takes row locks on the given products in id order. Transactions that
// lock before adjusting stock cannot deadlock on each other whatever order
// their callers list the products in.
func Lock(ctx context.Context, db Execer, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}

	_, err := db.ExecContext(ctx, `
		SELECT id FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, pq.Array(productIDs))
	if err != nil {
		return fmt.Errorf("lock products: %w", err)
	}
	return nil
}

// Decrement removes quantity units from the product's stock in one
// conditional statement, so concurrent orders can never drive it below zero.
// It returns ErrInsufficientStock when fewer than quantity units remain.
func Decrement(ctx context.Context, db Execer, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	result, err := db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`, productID, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock for %s: %w", productID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInsufficientStock
	}

	return nil
}

// Restore puts quantity units back, used when an order is cancelled.
func Restore(ctx context.Context, db Execer, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	result, err := db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
	`, productID, quantity)
	if err != nil {
		return fmt.Errorf("restore stock for %s: %w", productID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}
