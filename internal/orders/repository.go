package orders

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/zakup/internal/domain"
	"github.com/joao-fontenele/zakup/internal/inventory"
)

const orderColumns = `
	id, user_id, street, city, postal_code, country, payment_method, payment_reference,
	total, shipping_fee, status, delivered_at, created_at, updated_at`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&orderTx{tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return getOrder(ctx, r.db, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return listOrders(ctx, r.db, `
		SELECT`+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
}

func (r *OrderRepository) ListBySeller(ctx context.Context, sellerID string) ([]domain.Order, error) {
	return listOrders(ctx, r.db, `
		SELECT`+orderColumns+`
		FROM orders
		WHERE id IN (SELECT order_id FROM order_items WHERE seller_id = $1)
		ORDER BY created_at DESC
	`, sellerID)
}

type orderTx struct {
	tx *sql.Tx
}

func (t *orderTx) Product(ctx context.Context, id string) (*domain.Product, error) {
	p := &domain.Product{}
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, price, stock, seller_id, seller_kind, visible
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.SellerID, &p.SellerKind, &p.Visible)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (t *orderTx) LockProducts(ctx context.Context, ids []string) error {
	return inventory.Lock(ctx, t.tx, ids)
}

func (t *orderTx) DecrementStock(ctx context.Context, productID string, quantity int) error {
	return inventory.Decrement(ctx, t.tx, productID, quantity)
}

func (t *orderTx) RestoreStock(ctx context.Context, productID string, quantity int) error {
	return inventory.Restore(ctx, t.tx, productID, quantity)
}

func (t *orderTx) Insert(ctx context.Context, order *domain.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		order.ID, order.UserID,
		order.Address.Street, order.Address.City, order.Address.PostalCode, order.Address.Country,
		order.Payment.Method, order.Payment.Reference,
		order.Total, order.ShippingFee, order.Status, order.DeliveredAt,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for i, item := range order.Items {
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, position, product_id, name, unit_price, quantity, seller_id, seller_kind)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, uuid.New().String(), order.ID, i, item.ProductID, item.Name, item.Price, item.Quantity, item.SellerID, item.SellerKind)
		if err != nil {
			return err
		}
	}

	return nil
}

func (t *orderTx) OrderForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return getOrder(ctx, t.tx, `SELECT`+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (t *orderTx) SaveStatus(ctx context.Context, order *domain.Order) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE orders SET status = $2, delivered_at = $3, updated_at = $4
		WHERE id = $1
	`, order.ID, order.Status, order.DeliveredAt, order.UpdatedAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		o           domain.Order
		deliveredAt sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.UserID,
		&o.Address.Street, &o.Address.City, &o.Address.PostalCode, &o.Address.Country,
		&o.Payment.Method, &o.Payment.Reference,
		&o.Total, &o.ShippingFee, &o.Status, &deliveredAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		o.DeliveredAt = &t
	}
	o.Items = []domain.OrderItem{}
	return &o, nil
}

func getOrder(ctx context.Context, q querier, query string, id string) (*domain.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := loadItems(ctx, q, map[string]*domain.Order{order.ID: order}, []string{order.ID}); err != nil {
		return nil, err
	}

	return order, nil
}

func listOrders(ctx context.Context, q querier, query string, args ...any) ([]domain.Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orderMap[order.ID] = order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	if err := loadItems(ctx, q, orderMap, orderIDs); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func loadItems(ctx context.Context, q querier, orderMap map[string]*domain.Order, orderIDs []string) error {
	rows, err := q.QueryContext(ctx, `
		SELECT order_id, product_id, name, unit_price, quantity, seller_id, seller_kind
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(orderIDs))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.Price, &item.Quantity, &item.SellerID, &item.SellerKind); err != nil {
			return err
		}
		if order, ok := orderMap[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	return rows.Err()
}
