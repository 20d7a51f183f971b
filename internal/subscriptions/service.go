// Package subscriptions manages club formules, user subscriptions
// ("abonnements") and sponsor donations ("dons").
package subscriptions

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/zakup/internal/apperr"
	"github.com/joao-fontenele/zakup/internal/auth"
	"github.com/joao-fontenele/zakup/internal/domain"
)

type Store interface {
	Formules(ctx context.Context, clubID string) ([]domain.Formule, error)
	Formule(ctx context.Context, clubID string, tier domain.Tier) (*domain.Formule, error)
	UpsertFormule(ctx context.Context, f *domain.Formule) error
	Subscription(ctx context.Context, userID, clubID string) (*domain.Subscription, error)
	SaveSubscription(ctx context.Context, s *domain.Subscription) (inserted bool, err error)
	SubscriptionsByUser(ctx context.Context, userID string) ([]domain.Subscription, error)
	SubscribersOf(ctx context.Context, clubID string) ([]domain.Subscription, error)
	CreateDonation(ctx context.Context, d *domain.Donation) error
	DonationsToClub(ctx context.Context, clubID string) ([]domain.Donation, error)
	DonationsBySponsor(ctx context.Context, sponsorID string) ([]domain.Donation, error)
}

type FormuleInput struct {
	MonthlyPrice decimal.Decimal `json:"prixMensuel"`
	Benefits     []string        `json:"avantages"`
}

type SubscribeInput struct {
	ClubID string      `json:"club"`
	Tier   domain.Tier `json:"formule"`
}

type DonationInput struct {
	Amount  decimal.Decimal `json:"montant"`
	Message string          `json:"message"`
}

type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func forbidden() error {
	return apperr.Forbidden("Accès non autorisé")
}

// actsForClub reports whether p may manage clubID: the club account itself or
// an administrator.
func actsForClub(p auth.Principal, clubID string) bool {
	return p.IsAdmin() || (p.Role == auth.RoleClub && p.ID == clubID)
}

func (s *Service) Formules(ctx context.Context, clubID string) ([]domain.Formule, error) {
	return s.store.Formules(ctx, clubID)
}

func (s *Service) PutFormule(ctx context.Context, p auth.Principal, clubID string, tier domain.Tier, in FormuleInput) (*domain.Formule, error) {
	if !actsForClub(p, clubID) {
		return nil, forbidden()
	}
	if !tier.Valid() {
		return nil, apperr.BadRequest("Formule invalide: %s", tier)
	}
	if !domain.ValidAmount(in.MonthlyPrice) {
		return nil, apperr.BadRequest("Prix mensuel invalide: positif, deux décimales au plus et inférieur à %s", domain.MaxAmount)
	}

	benefits := make([]string, 0, len(in.Benefits))
	for _, b := range in.Benefits {
		if b = strings.TrimSpace(b); b != "" {
			benefits = append(benefits, b)
		}
	}

	f := &domain.Formule{
		ClubID:       clubID,
		Tier:         tier,
		MonthlyPrice: in.MonthlyPrice,
		Benefits:     benefits,
		UpdatedAt:    s.now(),
	}
	if err := s.store.UpsertFormule(ctx, f); err != nil {
		return nil, err
	}

	s.logger.Info("formule saved", "club_id", clubID, "tier", tier)
	return f, nil
}

// Subscribe creates the caller's subscription to a club or updates the one
// they already have. Switching tier keeps the billing dates of an active
// subscription; coming back after a cancellation restarts them. The boolean
// reports whether the store inserted a new row, which can be false even when
// no subscription was found beforehand.
func (s *Service) Subscribe(ctx context.Context, p auth.Principal, in SubscribeInput) (*domain.Subscription, bool, error) {
	if p.Role != auth.RoleUser {
		return nil, false, forbidden()
	}
	if in.ClubID == "" {
		return nil, false, apperr.BadRequest("Club manquant")
	}
	if !in.Tier.Valid() {
		return nil, false, apperr.BadRequest("Formule invalide: %s", in.Tier)
	}

	formule, err := s.store.Formule(ctx, in.ClubID, in.Tier)
	if err != nil {
		return nil, false, err
	}
	if formule == nil {
		return nil, false, apperr.NotFound("Formule non trouvée: %s", in.Tier)
	}

	existing, err := s.store.Subscription(ctx, p.ID, in.ClubID)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	sub := existing
	if sub == nil {
		sub = &domain.Subscription{
			UserID:    p.ID,
			ClubID:    in.ClubID,
			CreatedAt: now,
		}
	}
	if existing == nil || sub.Status != domain.SubscriptionActive {
		sub.Status = domain.SubscriptionActive
		sub.StartedAt = now
		sub.NextPaymentAt = domain.NextPaymentDate(now)
	}
	sub.Tier = formule.Tier
	sub.MonthlyAmount = formule.MonthlyPrice
	sub.UpdatedAt = now

	created, err := s.store.SaveSubscription(ctx, sub)
	if err != nil {
		return nil, false, err
	}

	s.logger.Info("subscription saved", "subscription_id", sub.ID, "user_id", p.ID, "club_id", in.ClubID, "created", created)
	return sub, created, nil
}

func (s *Service) Cancel(ctx context.Context, p auth.Principal, clubID string) (*domain.Subscription, error) {
	sub, err := s.store.Subscription(ctx, p.ID, clubID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, apperr.NotFound("Abonnement non trouvé")
	}
	if sub.Status == domain.SubscriptionCancelled {
		return sub, nil
	}

	sub.Status = domain.SubscriptionCancelled
	sub.UpdatedAt = s.now()
	if _, err := s.store.SaveSubscription(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("subscription cancelled", "subscription_id", sub.ID, "user_id", p.ID, "club_id", clubID)
	return sub, nil
}

func (s *Service) MySubscriptions(ctx context.Context, p auth.Principal) ([]domain.Subscription, error) {
	return s.store.SubscriptionsByUser(ctx, p.ID)
}

// Subscribers lists the active subscriptions of a club.
func (s *Service) Subscribers(ctx context.Context, p auth.Principal, clubID string) ([]domain.Subscription, error) {
	if !actsForClub(p, clubID) {
		return nil, forbidden()
	}
	return s.store.SubscribersOf(ctx, clubID)
}

func (s *Service) Donate(ctx context.Context, p auth.Principal, clubID string, in DonationInput) (*domain.Donation, error) {
	if p.Role != auth.RoleSponsor {
		return nil, forbidden()
	}
	if !in.Amount.IsPositive() || !domain.ValidAmount(in.Amount) {
		return nil, apperr.BadRequest("Montant du don invalide: strictement positif, deux décimales au plus et inférieur à %s", domain.MaxAmount)
	}

	d := &domain.Donation{
		SponsorID: p.ID,
		ClubID:    clubID,
		Amount:    in.Amount,
		Message:   strings.TrimSpace(in.Message),
		CreatedAt: s.now(),
	}
	if err := s.store.CreateDonation(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("donation recorded", "donation_id", d.ID, "sponsor_id", p.ID, "club_id", clubID, "amount", d.Amount.String())
	return d, nil
}

func (s *Service) DonationsReceived(ctx context.Context, p auth.Principal, clubID string) ([]domain.Donation, error) {
	if !actsForClub(p, clubID) {
		return nil, forbidden()
	}
	return s.store.DonationsToClub(ctx, clubID)
}

func (s *Service) DonationsMade(ctx context.Context, p auth.Principal) ([]domain.Donation, error) {
	if p.Role != auth.RoleSponsor {
		return nil, forbidden()
	}
	return s.store.DonationsBySponsor(ctx, p.ID)
}
