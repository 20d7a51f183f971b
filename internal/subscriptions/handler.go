package subscriptions

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/zakup/internal/auth"
	"github.com/joao-fontenele/zakup/internal/domain"
	"github.com/joao-fontenele/zakup/internal/telemetry"
	"github.com/joao-fontenele/zakup/internal/web"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux, verifier *auth.Verifier) {
	require := func(roles ...auth.Role) func(http.HandlerFunc) http.HandlerFunc {
		return verifier.Require(h.logger, roles...)
	}

	mux.HandleFunc("GET /clubs/{clubId}/formules", telemetry.WithHTTPRoute(h.HandleListFormules))
	mux.HandleFunc("PUT /clubs/{clubId}/formules/{type}", telemetry.WithHTTPRoute(require(auth.RoleClub, auth.RoleAdmin)(h.HandlePutFormule)))
	mux.HandleFunc("GET /clubs/{clubId}/abonnes", telemetry.WithHTTPRoute(require(auth.RoleClub, auth.RoleAdmin)(h.HandleSubscribers)))
	mux.HandleFunc("POST /clubs/{clubId}/dons", telemetry.WithHTTPRoute(require(auth.RoleSponsor)(h.HandleDonate)))
	mux.HandleFunc("GET /clubs/{clubId}/dons", telemetry.WithHTTPRoute(require(auth.RoleClub, auth.RoleAdmin)(h.HandleDonationsReceived)))
	mux.HandleFunc("GET /dons", telemetry.WithHTTPRoute(require(auth.RoleSponsor)(h.HandleDonationsMade)))
	mux.HandleFunc("POST /abonnements", telemetry.WithHTTPRoute(require(auth.RoleUser)(h.HandleSubscribe)))
	mux.HandleFunc("GET /abonnements", telemetry.WithHTTPRoute(require(auth.RoleUser)(h.HandleMySubscriptions)))
	mux.HandleFunc("DELETE /abonnements/{clubId}", telemetry.WithHTTPRoute(require(auth.RoleUser)(h.HandleCancel)))
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

func (h *Handler) HandleListFormules(w http.ResponseWriter, r *http.Request) {
	formules, err := h.service.Formules(r.Context(), r.PathValue("clubId"))
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, formules)
}

func (h *Handler) HandlePutFormule(w http.ResponseWriter, r *http.Request) {
	var req FormuleInput
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	f, err := h.service.PutFormule(r.Context(), principal(r), r.PathValue("clubId"), domain.Tier(r.PathValue("type")), req)
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, f)
}

func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeInput
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	sub, created, err := h.service.Subscribe(r.Context(), principal(r), req)
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	web.WriteJSON(w, h.logger, status, sub)
}

func (h *Handler) HandleMySubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.MySubscriptions(r.Context(), principal(r))
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, subs)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.Cancel(r.Context(), principal(r), r.PathValue("clubId"))
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, sub)
}

func (h *Handler) HandleSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.Subscribers(r.Context(), principal(r), r.PathValue("clubId"))
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, subs)
}

func (h *Handler) HandleDonate(w http.ResponseWriter, r *http.Request) {
	var req DonationInput
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	d, err := h.service.Donate(r.Context(), principal(r), r.PathValue("clubId"), req)
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusCreated, d)
}

func (h *Handler) HandleDonationsReceived(w http.ResponseWriter, r *http.Request) {
	donations, err := h.service.DonationsReceived(r.Context(), principal(r), r.PathValue("clubId"))
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, donations)
}

func (h *Handler) HandleDonationsMade(w http.ResponseWriter, r *http.Request) {
	donations, err := h.service.DonationsMade(r.Context(), principal(r))
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, donations)
}
