package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryClothing  Category = "vetements"
	CategoryEquipment Category = "equipement"
	CategoryAccessory Category = "accessoires"
	CategoryTickets   Category = "billetterie"
	CategoryOther     Category = "autre"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryClothing, CategoryEquipment, CategoryAccessory, CategoryTickets, CategoryOther:
		return true
	}
	return false
}

// SellerKind tags which kind of account sells a product.
type SellerKind string

const (
	SellerClub    SellerKind = "Club"
	SellerSponsor SellerKind = "Sponsor"
)

func (k SellerKind) Valid() bool {
	return k == SellerClub || k == SellerSponsor
}

type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"utilisateur"`
	Rating    int       `json:"note"`
	Comment   string    `json:"commentaire"`
	CreatedAt time.Time `json:"date"`
}

const (
	MinRating = 1
	MaxRating = 5
)

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"nom"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"prix"`
	Stock         int             `json:"stock"`
	Category      Category        `json:"categorie"`
	SellerID      string          `json:"vendeur"`
	SellerKind    SellerKind      `json:"vendeurModel"`
	Visible       bool            `json:"visible"`
	Reviews       []Review        `json:"avis,omitempty"`
	AverageRating float64         `json:"noteMoyenne"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// AverageRating returns the arithmetic mean of the review ratings, or 0 when
// there are none.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}
