// Package gateway is the single public entry point. It routes each request to
// the service owning the resource and relays the response untouched.
package gateway

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/zakup/internal/apperr"
	"github.com/joao-fontenele/zakup/internal/telemetry"
	"github.com/joao-fontenele/zakup/internal/web"
)

type Handler struct {
	ordersProxy  *ServiceProxy
	catalogProxy *ServiceProxy
	clubsProxy   *ServiceProxy
	logger       *slog.Logger
}

func NewHandler(ordersProxy, catalogProxy, clubsProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		ordersProxy:  ordersProxy,
		catalogProxy: catalogProxy,
		clubsProxy:   clubsProxy,
		logger:       logger,
	}
}

// Register mounts every public prefix. Methods are left to the downstream
// service, which answers 405 for the ones it does not serve.
func (h *Handler) Register(mux *http.ServeMux) {
	for _, pattern := range []string{"/orders", "/orders/"} {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h.HandleOrders))
	}
	for _, pattern := range []string{"/products", "/products/"} {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h.HandleCatalog))
	}
	for _, pattern := range []string{"/clubs/", "/abonnements", "/abonnements/", "/dons"} {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h.HandleClubs))
	}
}

func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.ordersProxy)
}

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.catalogProxy)
}

func (h *Handler) HandleClubs(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.clubsProxy)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy) {
	path := r.URL.Path
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		web.WriteError(w, h.logger, apperr.New(http.StatusBadGateway, "Service indisponible"))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for _, name := range []string{"Content-Type", "Set-Cookie", "Location"} {
		for _, value := range resp.Header.Values(name) {
			w.Header().Add(name, value)
		}
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}
