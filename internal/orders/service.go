package orders

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/zakup/internal/apperr"
	"github.com/joao-fontenele/zakup/internal/auth"
	"github.com/joao-fontenele/zakup/internal/domain"
	"github.com/joao-fontenele/zakup/internal/inventory"
)

var tracer = otel.Tracer(instrumentationName)

// EventPublisher is satisfied by *messaging.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type LineRequest struct {
	ProductID string `json:"produit"`
	Quantity  int    `json:"quantite"`
}

type PlaceOrderInput struct {
	Items   []LineRequest          `json:"produits"`
	Address domain.ShippingAddress `json:"adresseLivraison"`
	Payment domain.PaymentInfo     `json:"informationsPaiement"`
}

type Option func(*Service)

// WithPublishers sets where order.placed and order.status_changed events go.
// Either may be nil.
func WithPublishers(placed, statusChanged EventPublisher) Option {
	return func(s *Service) {
		s.placed = placed
		s.statusChanged = statusChanged
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

type Service struct {
	store         Store
	shippingFee   decimal.Decimal
	placed        EventPublisher
	statusChanged EventPublisher
	metrics       *metrics
	logger        *slog.Logger
	now           func() time.Time
}

func NewService(store Store, shippingFee decimal.Decimal, logger *slog.Logger, opts ...Option) (*Service, error) {
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	s := &Service{
		store:       store,
		shippingFee: shippingFee,
		metrics:     m,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func validatePlaceOrder(req PlaceOrderInput) error {
	if len(req.Items) == 0 {
		return apperr.BadRequest("Le panier est vide")
	}
	for _, line := range req.Items {
		if line.ProductID == "" {
			return apperr.BadRequest("Produit manquant dans la commande")
		}
		if line.Quantity < 1 {
			return apperr.BadRequest("Quantité invalide pour le produit %s", line.ProductID)
		}
	}
	if !req.Address.Complete() {
		return apperr.BadRequest("Adresse de livraison incomplète")
	}
	if req.Payment.Method == "" {
		return apperr.BadRequest("Informations de paiement manquantes")
	}
	return nil
}

// lockOrder returns the distinct product ids sorted, the order every
// transaction touching several products locks them in.
func lockOrder[T any](lines []T, productID func(T) string) []string {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, productID(line))
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func insufficientStock(p *domain.Product) error {
	return apperr.BadRequest("Stock insuffisant pour %s", p.Name)
}

// PlaceOrder checks every line against the catalog, decrements stock and
// stores the order with prices captured at this instant. Lines are handled in
// request order and the first failing line aborts the whole order: no stock
// is taken and nothing is stored.
//
// All product rows are locked in id order before any line is processed, so
// two orders naming the same products in opposite orders wait on each other
// instead of deadlocking.
func (s *Service) PlaceOrder(ctx context.Context, p auth.Principal, req PlaceOrderInput) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.PlaceOrder", trace.WithAttributes(
		attribute.String("user.id", p.ID),
		attribute.Int("order.lines", len(req.Items)),
	))
	defer span.End()

	if p.Role != auth.RoleUser {
		return nil, apperr.Forbidden("Accès non autorisé")
	}

	if err := validatePlaceOrder(req); err != nil {
		s.metrics.recordRejected(ctx, "validation")
		return nil, err
	}

	now := s.now()
	order := &domain.Order{
		ID:          uuid.New().String(),
		UserID:      p.ID,
		Items:       make([]domain.OrderItem, 0, len(req.Items)),
		Address:     req.Address,
		Payment:     req.Payment,
		ShippingFee: s.shippingFee,
		Status:      domain.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		ids := lockOrder(req.Items, func(l LineRequest) string { return l.ProductID })
		if err := tx.LockProducts(ctx, ids); err != nil {
			return err
		}

		for _, line := range req.Items {
			product, err := tx.Product(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if product == nil || !product.Visible {
				return apperr.NotFound("Produit non trouvé: %s", line.ProductID)
			}
			if line.Quantity > product.Stock {
				return insufficientStock(product)
			}

			if err := tx.DecrementStock(ctx, product.ID, line.Quantity); err != nil {
				if errors.Is(err, inventory.ErrInsufficientStock) {
					return insufficientStock(product)
				}
				return err
			}

			order.Items = append(order.Items, domain.OrderItem{
				ProductID:  product.ID,
				Name:       product.Name,
				Price:      product.Price,
				Quantity:   line.Quantity,
				SellerID:   product.SellerID,
				SellerKind: product.SellerKind,
			})
		}

		order.Total = domain.OrderTotal(order.Items, order.ShippingFee)
		if !domain.ValidAmount(order.Total) {
			return apperr.BadRequest("Montant de la commande trop élevé")
		}
		return tx.Insert(ctx, order)
	})
	if err != nil {
		s.metrics.recordRejected(ctx, rejectionReason(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	s.metrics.recordPlaced(ctx, order)

	s.publish(ctx, s.placed, order.ID, domain.OrderPlacedEvent{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Items:     order.Items,
		Total:     order.Total,
		Timestamp: order.CreatedAt,
	})

	s.logger.Info("order placed", "order_id", order.ID, "user_id", order.UserID, "total", order.Total.String())
	return order, nil
}

func rejectionReason(err error) string {
	switch apperr.StatusOf(err) {
	case http.StatusNotFound:
		return "product_not_found"
	case http.StatusBadRequest:
		return "insufficient_stock"
	default:
		return "error"
	}
}

func canRead(p auth.Principal, order *domain.Order) bool {
	return p.IsAdmin() || order.UserID == p.ID || (p.IsSeller() && order.HasSeller(p.ID))
}

func (s *Service) GetOrder(ctx context.Context, p auth.Principal, id string) (*domain.Order, error) {
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("Commande non trouvée")
	}
	if !canRead(p, order) {
		return nil, apperr.Forbidden("Accès non autorisé")
	}
	return order, nil
}

// ListMine returns the caller's orders, newest first.
func (s *Service) ListMine(ctx context.Context, p auth.Principal) ([]domain.Order, error) {
	return s.store.ListByUser(ctx, p.ID)
}

// ListForSeller returns every order with at least one line sold by the caller.
// Lines from other sellers are included.
func (s *Service) ListForSeller(ctx context.Context, p auth.Principal) ([]domain.Order, error) {
	if !p.IsSeller() {
		return nil, apperr.Forbidden("Accès non autorisé")
	}
	return s.store.ListBySeller(ctx, p.ID)
}

// UpdateStatus moves an order along its lifecycle. Only an administrator or a
// seller with a line in the order may do it.
func (s *Service) UpdateStatus(ctx context.Context, p auth.Principal, id string, next domain.OrderStatus) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.status", string(next)),
	))
	defer span.End()

	if !next.Valid() {
		return nil, apperr.BadRequest("Statut invalide: %s", next)
	}

	return s.changeStatus(ctx, id, next, func(order *domain.Order) error {
		if !p.IsAdmin() && !(p.IsSeller() && order.HasSeller(p.ID)) {
			return apperr.Forbidden("Accès non autorisé")
		}
		return nil
	})
}

// Cancel lets the buyer withdraw an order that nobody has started processing.
func (s *Service) Cancel(ctx context.Context, p auth.Principal, id string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.Cancel", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	return s.changeStatus(ctx, id, domain.OrderStatusCancelled, func(order *domain.Order) error {
		if !p.IsAdmin() && order.UserID != p.ID {
			return apperr.Forbidden("Accès non autorisé")
		}
		if order.Status != domain.OrderStatusPending {
			return apperr.BadRequest("Seule une commande en attente peut être annulée")
		}
		return nil
	})
}

func (s *Service) changeStatus(ctx context.Context, id string, next domain.OrderStatus, authorize func(*domain.Order) error) (*domain.Order, error) {
	var (
		order    *domain.Order
		previous domain.OrderStatus
	)

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		order, err = tx.OrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return apperr.NotFound("Commande non trouvée")
		}
		if err := authorize(order); err != nil {
			return err
		}

		previous = order.Status
		if !previous.CanTransitionTo(next) {
			return apperr.BadRequest("Transition de statut invalide")
		}
		if previous == next {
			return nil
		}

		now := s.now()
		if next == domain.OrderStatusCancelled {
			ids := lockOrder(order.Items, func(i domain.OrderItem) string { return i.ProductID })
			if err := tx.LockProducts(ctx, ids); err != nil {
				return err
			}
			for _, item := range order.Items {
				err := tx.RestoreStock(ctx, item.ProductID, item.Quantity)
				if errors.Is(err, inventory.ErrProductNotFound) {
					s.logger.Warn("product gone, stock not restored", "order_id", order.ID, "product_id", item.ProductID)
					continue
				}
				if err != nil {
					return err
				}
			}
		}
		if next == domain.OrderStatusDelivered {
			order.DeliveredAt = &now
		}
		order.Status = next
		order.UpdatedAt = now

		return tx.SaveStatus(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	if previous == next {
		return order, nil
	}

	s.metrics.recordStatusChange(ctx, next)
	s.publish(ctx, s.statusChanged, order.ID, domain.OrderStatusChangedEvent{
		OrderID:   order.ID,
		UserID:    order.UserID,
		From:      previous,
		To:        next,
		Timestamp: order.UpdatedAt,
	})

	s.logger.Info("order status updated", "order_id", order.ID, "from", previous, "to", next)
	return order, nil
}

// publish is best effort: the order is already committed.
func (s *Service) publish(ctx context.Context, publisher EventPublisher, key string, event any) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, key, event); err != nil {
		s.logger.Error("failed to publish event", "error", err, "order_id", key)
	}
}
