package orders

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/zakup/internal/apperr"
	"github.com/joao-fontenele/zakup/internal/auth"
	"github.com/joao-fontenele/zakup/internal/domain"
	"github.com/joao-fontenele/zakup/internal/telemetry"
	"github.com/joao-fontenele/zakup/internal/web"
)

const idempotencyHeader = "Idempotency-Key"

// Deduplicator remembers which order an Idempotency-Key produced.
// Begin claims key and reports started=true when the caller should go on and
// place the order. Otherwise orderID is the order already placed with the
// key, or empty while the first request is still running.
type Deduplicator interface {
	Begin(ctx context.Context, key string) (orderID string, started bool, err error)
	Complete(ctx context.Context, key, orderID string) error
	Release(ctx context.Context, key string) error
}

type Handler struct {
	service *Service
	dedup   Deduplicator
	logger  *slog.Logger
}

// NewHandler builds the HTTP handler. dedup may be nil, in which case the
// Idempotency-Key header is ignored.
func NewHandler(service *Service, dedup Deduplicator, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		dedup:   dedup,
		logger:  logger,
	}
}

// Register mounts the order routes on mux. The literal /orders/vendeur route
// takes precedence over /orders/{id}.
func (h *Handler) Register(mux *http.ServeMux, verifier *auth.Verifier) {
	require := func(roles ...auth.Role) func(http.HandlerFunc) http.HandlerFunc {
		return verifier.Require(h.logger, roles...)
	}

	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(require(auth.RoleUser)(h.HandleCreate)))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(require()(h.HandleListMine)))
	mux.HandleFunc("GET /orders/vendeur", telemetry.WithHTTPRoute(require(auth.RoleClub, auth.RoleSponsor)(h.HandleListForSeller)))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(require()(h.HandleGet)))
	mux.HandleFunc("PUT /orders/{id}/status", telemetry.WithHTTPRoute(require()(h.HandleUpdateStatus)))
	mux.HandleFunc("PUT /orders/{id}/cancel", telemetry.WithHTTPRoute(require()(h.HandleCancel)))
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderInput
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	p := principal(r)
	key := r.Header.Get(idempotencyHeader)
	if key == "" || h.dedup == nil {
		order, err := h.service.PlaceOrder(r.Context(), p, req)
		if err != nil {
			web.WriteError(w, h.logger, err)
			return
		}
		web.WriteJSON(w, h.logger, http.StatusCreated, order)
		return
	}

	// Keys are scoped per user so two buyers cannot collide.
	key = p.ID + ":" + key

	orderID, started, err := h.dedup.Begin(r.Context(), key)
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}
	if !started {
		if orderID == "" {
			web.WriteError(w, h.logger, apperr.Conflict("Une requête identique est déjà en cours"))
			return
		}
		order, err := h.service.GetOrder(r.Context(), p, orderID)
		if err != nil {
			web.WriteError(w, h.logger, err)
			return
		}
		h.logger.Info("order replayed", "order_id", order.ID)
		web.WriteJSON(w, h.logger, http.StatusOK, order)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), p, req)
	if err != nil {
		if releaseErr := h.dedup.Release(r.Context(), key); releaseErr != nil {
			h.logger.Error("failed to release idempotency key", "error", releaseErr)
		}
		web.WriteError(w, h.logger, err)
		return
	}

	if err := h.dedup.Complete(r.Context(), key, order.ID); err != nil {
		h.logger.Error("failed to store idempotency key", "error", err, "order_id", order.ID)
	}

	web.WriteJSON(w, h.logger, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListMine(r.Context(), principal(r))
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	h.logger.Debug("orders listed", "count", len(orders))
	web.WriteJSON(w, h.logger, http.StatusOK, orders)
}

func (h *Handler) HandleListForSeller(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListForSeller(r.Context(), principal(r))
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	h.logger.Debug("seller orders listed", "count", len(orders))
	web.WriteJSON(w, h.logger, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"statusCommande"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), principal(r), r.PathValue("id"), req.Status)
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Cancel(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, order)
}
