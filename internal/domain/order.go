package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is the snapshot of a product taken when the order is placed.
// Later changes to the product never reach it.
type OrderItem struct {
	ProductID  string          `json:"produit"`
	Name       string          `json:"nom"`
	Price      decimal.Decimal `json:"prix"`
	Quantity   int             `json:"quantite"`
	SellerID   string          `json:"vendeur"`
	SellerKind SellerKind      `json:"vendeurModel"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type ShippingAddress struct {
	Street     string `json:"rue"`
	City       string `json:"ville"`
	PostalCode string `json:"codePostal"`
	Country    string `json:"pays"`
}

func (a ShippingAddress) Complete() bool {
	return a.Street != "" && a.City != "" && a.PostalCode != "" && a.Country != ""
}

type PaymentInfo struct {
	Method    string `json:"methode"`
	Reference string `json:"reference,omitempty"`
}

type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"utilisateur"`
	Items       []OrderItem     `json:"produits"`
	Address     ShippingAddress `json:"adresseLivraison"`
	Payment     PaymentInfo     `json:"informationsPaiement"`
	Total       decimal.Decimal `json:"prixTotal"`
	ShippingFee decimal.Decimal `json:"fraisLivraison"`
	Status      OrderStatus     `json:"statusCommande"`
	DeliveredAt *time.Time      `json:"dateLivraison,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// OrderTotal sums the line subtotals and adds the shipping fee.
func OrderTotal(items []OrderItem, shippingFee decimal.Decimal) decimal.Decimal {
	total := shippingFee
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// HasSeller reports whether at least one line of the order is sold by sellerID.
func (o *Order) HasSeller(sellerID string) bool {
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

// Sellers returns the distinct seller ids in line order.
func (o *Order) Sellers() []string {
	seen := make(map[string]bool, len(o.Items))
	var sellers []string
	for _, item := range o.Items {
		if seen[item.SellerID] {
			continue
		}
		seen[item.SellerID] = true
		sellers = append(sellers, item.SellerID)
	}
	return sellers
}
