package catalog

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/zakup/internal/auth"
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

	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(h.HandleList))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(verifier.Optional(h.HandleGet)))
	mux.HandleFunc("POST /products", telemetry.WithHTTPRoute(require(auth.RoleClub, auth.RoleSponsor)(h.HandleCreate)))
	mux.HandleFunc("PUT /products/{id}", telemetry.WithHTTPRoute(require()(h.HandleUpdate)))
	mux.HandleFunc("DELETE /products/{id}", telemetry.WithHTTPRoute(require()(h.HandleDelete)))
	mux.HandleFunc("POST /products/{id}/avis", telemetry.WithHTTPRoute(require(auth.RoleUser)(h.HandleAddReview)))
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Get(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, product)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req ProductInput
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	product, err := h.service.Create(r.Context(), principal(r), req)
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusCreated, product)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req ProductPatch
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	product, err := h.service.Update(r.Context(), principal(r), r.PathValue("id"), req)
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, product)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), principal(r), r.PathValue("id")); err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAddReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewInput
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	product, err := h.service.AddReview(r.Context(), principal(r), r.PathValue("id"), req)
	if err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusCreated, product)
}
