package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier is a club subscription level ("formule").
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierVIP     Tier = "vip"
)

func (t Tier) Valid() bool {
	return t == TierBasic || t == TierPremium || t == TierVIP
}

type Formule struct {
	ClubID       string          `json:"club"`
	Tier         Tier            `json:"type"`
	MonthlyPrice decimal.Decimal `json:"prixMensuel"`
	Benefits     []string        `json:"avantages"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "actif"
	SubscriptionCancelled SubscriptionStatus = "annule"
)

// Subscription ("abonnement") links a user to a club. There is at most one
// per (user, club) pair.
type Subscription struct {
	ID            string             `json:"id"`
	UserID        string             `json:"utilisateur"`
	ClubID        string             `json:"club"`
	Tier          Tier               `json:"formule"`
	MonthlyAmount decimal.Decimal    `json:"montantMensuel"`
	Status        SubscriptionStatus `json:"statut"`
	StartedAt     time.Time          `json:"dateDebut"`
	NextPaymentAt time.Time          `json:"prochainPaiement"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// NextPaymentDate is one calendar month after from.
func NextPaymentDate(from time.Time) time.Time {
	return from.AddDate(0, 1, 0)
}

// Donation ("don") is money given by a sponsor to a club.
type Donation struct {
	ID        string          `json:"id"`
	SponsorID string          `json:"sponsor"`
	ClubID    string          `json:"club"`
	Amount    decimal.Decimal `json:"montant"`
	Message   string          `json:"message,omitempty"`
	CreatedAt time.Time       `json:"date"`
}
