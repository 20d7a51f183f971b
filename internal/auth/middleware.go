package auth

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/joao-fontenele/zakup/internal/apperr"
	"github.com/joao-fontenele/zakup/internal/web"
)

const cookieName = "token"

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// Require rejects requests without a valid token (401) or whose role is not
// listed (403). With no roles, any authenticated caller passes.
func (v *Verifier) Require(logger *slog.Logger, roles ...Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				web.WriteError(w, logger, apperr.Unauthorized("Non authentifié"))
				return
			}

			p, err := v.Verify(token)
			if err != nil {
				logger.Debug("token rejected", "error", err)
				web.WriteError(w, logger, apperr.Unauthorized("Jeton invalide"))
				return
			}

			if len(roles) > 0 && !slices.Contains(roles, p.Role) {
				web.WriteError(w, logger, apperr.Forbidden("Accès non autorisé"))
				return
			}

			next(w, r.WithContext(WithPrincipal(r.Context(), p)))
		}
	}
}

// Optional attaches the principal when a valid token is present and lets
// anonymous requests through unchanged.
func (v *Verifier) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := tokenFromRequest(r); token != "" {
			if p, err := v.Verify(token); err == nil {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
		}
		next(w, r)
	}
}
