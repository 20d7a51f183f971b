package domain

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "En attente"
	OrderStatusProcessing OrderStatus = "Traitement en cours"
	OrderStatusShipped    OrderStatus = "Expédiée"
	OrderStatusDelivered  OrderStatus = "Livrée"
	OrderStatusCancelled  OrderStatus = "Annulée"
)

// progression ranks the non-cancelled statuses along the delivery path.
var progression = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

func (s OrderStatus) Valid() bool {
	_, ok := progression[s]
	return ok || s == OrderStatusCancelled
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether an order in status s may move to next.
// Orders only move forward along the delivery path, possibly skipping steps,
// and any non-terminal order may be cancelled. Terminal statuses are final.
// Re-applying the current non-terminal status is allowed and changes nothing.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return progression[next] >= progression[s]
}
