package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/zakup/internal/domain"
)

const uniqueViolation = pq.ErrorCode("23505")

// ErrDuplicateReview is returned when the user already reviewed the product.
var ErrDuplicateReview = errors.New("duplicate review")

type scanner interface {
	Scan(dest ...any) error
}

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func scanProduct(row scanner) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.SellerID, &p.SellerKind,
		&p.Visible, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) List(ctx context.Context, f Filter) ([]domain.Product, error) {
	query, args := buildListQuery(f)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

// GetByID returns the product with its reviews, or (nil, nil).
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	p.Reviews, err = r.reviews(ctx, r.db, id)
	if err != nil {
		return nil, err
	}

	return p, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *ProductRepository) reviews(ctx context.Context, q queryer, productID string) ([]domain.Review, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, rating, comment, created_at
		FROM product_reviews
		WHERE product_id = $1
		ORDER BY created_at, id
	`, productID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}

	return reviews, rows.Err()
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.SellerID, p.SellerKind,
		p.Visible, p.AverageRating, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// Update writes the editable fields. Stock is only written when setStock is
// true so a catalog edit never overwrites decrements made by concurrent orders.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product, setStock bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, category = $5, visible = $6, updated_at = $7,
		    stock = CASE WHEN $8 THEN $9 ELSE stock END
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Price, p.Category, p.Visible, p.UpdatedAt, setStock, p.Stock)
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

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

// AddReview stores the review and recomputes the product's average rating in
// the same transaction.
func (r *ProductRepository) AddReview(ctx context.Context, productID string, review domain.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if review.ID == "" {
		review.ID = uuid.New().String()
	}

	// Lock the product row so concurrent reviews serialize on the average.
	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&id)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO product_reviews (id, product_id, user_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, review.ID, productID, review.UserID, review.Rating, review.Comment, review.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateReview
		}
		return err
	}

	reviews, err := r.reviews(ctx, tx, productID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products SET average_rating = $2 WHERE id = $1
	`, productID, domain.AverageRating(reviews))
	if err != nil {
		return err
	}

	return tx.Commit()
}
