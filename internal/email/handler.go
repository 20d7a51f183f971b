// Package email is a stand-in mail relay: it validates and logs messages
// instead of delivering them.
package email

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/zakup/internal/apperr"
	"github.com/joao-fontenele/zakup/internal/web"
)

type Handler struct {
	from   string
	delay  func() time.Duration
	logger *slog.Logger
}

type Option func(*Handler)

// WithDelay overrides the simulated delivery latency.
func WithDelay(delay func() time.Duration) Option {
	return func(h *Handler) {
		h.delay = delay
	}
}

func NewHandler(from string, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		from:   from,
		logger: logger,
		delay: func() time.Duration {
			return time.Duration(50+rand.IntN(151)) * time.Millisecond
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

func (req sendRequest) validate() error {
	if _, err := mail.ParseAddress(req.To); err != nil {
		return apperr.BadRequest("Destinataire invalide")
	}
	if strings.TrimSpace(req.Subject) == "" {
		return apperr.BadRequest("Sujet manquant")
	}
	if strings.TrimSpace(req.Body) == "" {
		return apperr.BadRequest("Message vide")
	}
	return nil
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, err)
		return
	}
	if err := req.validate(); err != nil {
		web.WriteError(w, h.logger, err)
		return
	}

	select {
	case <-time.After(h.delay()):
	case <-r.Context().Done():
		return
	}

	id := uuid.New().String()
	h.logger.Info("email sent", "id", id, "from", h.from, "to", req.To, "subject", req.Subject)

	web.WriteJSON(w, h.logger, http.StatusOK, sendResponse{Status: "sent", ID: id})
}
