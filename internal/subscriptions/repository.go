package subscriptions

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/zakup/internal/domain"
)

const subscriptionColumns = `id, user_id, club_id, tier, monthly_amount, status,
	started_at, next_payment_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanFormule(row scanner) (*domain.Formule, error) {
	var f domain.Formule
	if err := row.Scan(&f.ClubID, &f.Tier, &f.MonthlyPrice, pq.Array(&f.Benefits), &f.UpdatedAt); err != nil {
		return nil, err
	}
	if f.Benefits == nil {
		f.Benefits = []string{}
	}
	return &f, nil
}

func (r *Repository) Formules(ctx context.Context, clubID string) ([]domain.Formule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT club_id, tier, monthly_price, benefits, updated_at
		FROM formules
		WHERE club_id = $1
		ORDER BY monthly_price, tier
	`, clubID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	formules := []domain.Formule{}
	for rows.Next() {
		f, err := scanFormule(rows)
		if err != nil {
			return nil, err
		}
		formules = append(formules, *f)
	}

	return formules, rows.Err()
}

func (r *Repository) Formule(ctx context.Context, clubID string, tier domain.Tier) (*domain.Formule, error) {
	f, err := scanFormule(r.db.QueryRowContext(ctx, `
		SELECT club_id, tier, monthly_price, benefits, updated_at
		FROM formules
		WHERE club_id = $1 AND tier = $2
	`, clubID, tier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return f, nil
}

func (r *Repository) UpsertFormule(ctx context.Context, f *domain.Formule) error {
	benefits := f.Benefits
	if benefits == nil {
		benefits = []string{}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO formules (club_id, tier, monthly_price, benefits, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (club_id, tier) DO UPDATE
		SET monthly_price = EXCLUDED.monthly_price,
		    benefits = EXCLUDED.benefits,
		    updated_at = EXCLUDED.updated_at
	`, f.ClubID, f.Tier, f.MonthlyPrice, pq.Array(benefits), f.UpdatedAt)
	return err
}

func scanSubscription(row scanner) (*domain.Subscription, error) {
	var s domain.Subscription
	err := row.Scan(&s.ID, &s.UserID, &s.ClubID, &s.Tier, &s.MonthlyAmount, &s.Status,
		&s.StartedAt, &s.NextPaymentAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) Subscription(ctx context.Context, userID, clubID string) (*domain.Subscription, error) {
	s, err := scanSubscription(r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 AND club_id = $2`,
		userID, clubID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// SaveSubscription inserts s or overwrites the row already held by the same
// (user, club) pair. s.ID and s.CreatedAt are refreshed from the stored row.
// inserted is decided by Postgres, so two racing first subscriptions get one
// insert and one update.
func (r *Repository) SaveSubscription(ctx context.Context, s *domain.Subscription) (inserted bool, err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, club_id) DO UPDATE
		SET tier = EXCLUDED.tier,
		    monthly_amount = EXCLUDED.monthly_amount,
		    status = EXCLUDED.status,
		    started_at = EXCLUDED.started_at,
		    next_payment_at = EXCLUDED.next_payment_at,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, (xmax = 0) AS inserted
	`,
		s.ID, s.UserID, s.ClubID, s.Tier, s.MonthlyAmount, s.Status,
		s.StartedAt, s.NextPaymentAt, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID, &s.CreatedAt, &inserted)
	return inserted, err
}

func (r *Repository) listSubscriptions(ctx context.Context, query string, arg string) ([]domain.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	subs := []domain.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}

	return subs, rows.Err()
}

func (r *Repository) SubscriptionsByUser(ctx context.Context, userID string) ([]domain.Subscription, error) {
	return r.listSubscriptions(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
}

func (r *Repository) SubscribersOf(ctx context.Context, clubID string) ([]domain.Subscription, error) {
	return r.listSubscriptions(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE club_id = $1 AND status = 'actif' ORDER BY started_at`,
		clubID)
}

func (r *Repository) CreateDonation(ctx context.Context, d *domain.Donation) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO donations (id, sponsor_id, club_id, amount, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.ID, d.SponsorID, d.ClubID, d.Amount, d.Message, d.CreatedAt)
	return err
}

func (r *Repository) listDonations(ctx context.Context, column, value string) ([]domain.Donation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sponsor_id, club_id, amount, message, created_at
		FROM donations
		WHERE `+column+` = $1
		ORDER BY created_at DESC
	`, value)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	donations := []domain.Donation{}
	for rows.Next() {
		var d domain.Donation
		if err := rows.Scan(&d.ID, &d.SponsorID, &d.ClubID, &d.Amount, &d.Message, &d.CreatedAt); err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}

	return donations, rows.Err()
}

func (r *Repository) DonationsToClub(ctx context.Context, clubID string) ([]domain.Donation, error) {
	return r.listDonations(ctx, "club_id", clubID)
}

func (r *Repository) DonationsBySponsor(ctx context.Context, sponsorID string) ([]domain.Donation, error) {
	return r.listDonations(ctx, "sponsor_id", sponsorID)
}
