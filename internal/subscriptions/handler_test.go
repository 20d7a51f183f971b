package subscriptions

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joao-fontenele/zakup/internal/auth"
	"github.com/joao-fontenele/zakup/internal/domain"
)

const testSecret = "test-secret"

func TestHandlers(t *testing.T) {
	svc, _ := newTestService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := http.NewServeMux()
	NewHandler(svc, logger).Register(mux, auth.NewVerifier(testSecret))

	do := func(p *auth.Principal, method, path, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		if p != nil {
			token, err := auth.IssueToken(testSecret, *p, time.Hour)
			if err != nil {
				t.Fatalf("failed to issue token: %v", err)
			}
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	t.Run("formules are public", func(t *testing.T) {
		rec := do(nil, http.MethodGet, "/clubs/club-1/formules", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var formules []domain.Formule
		if err := json.NewDecoder(rec.Body).Decode(&formules); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(formules) != 2 {
			t.Errorf("expected 2 formules, got %d", len(formules))
		}
	})

	t.Run("subscribe creates then updates", func(t *testing.T) {
		rec := do(&fan, http.MethodPost, "/abonnements", `{"club": "club-1", "formule": "basic"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}
		rec = do(&fan, http.MethodPost, "/abonnements", `{"club": "club-1", "formule": "premium"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("subscribers visible to the club only", func(t *testing.T) {
		if rec := do(&club, http.MethodGet, "/clubs/club-1/abonnes", ""); rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec := do(&rival, http.MethodGet, "/clubs/club-1/abonnes", ""); rec.Code != http.StatusForbidden {
			t.Errorf("expected status 403, got %d", rec.Code)
		}
		if rec := do(&fan, http.MethodGet, "/clubs/club-1/abonnes", ""); rec.Code != http.StatusForbidden {
			t.Errorf("expected status 403 for a user, got %d", rec.Code)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		rec := do(&fan, http.MethodDelete, "/abonnements/club-1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var sub domain.Subscription
		if err := json.NewDecoder(rec.Body).Decode(&sub); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if sub.Status != domain.SubscriptionCancelled {
			t.Errorf("expected status %q, got %q", domain.SubscriptionCancelled, sub.Status)
		}
	})

	t.Run("donations", func(t *testing.T) {
		rec := do(&sponsor, http.MethodPost, "/clubs/club-1/dons", `{"montant": "100", "message": "Bonne saison"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if rec := do(&sponsor, http.MethodPost, "/clubs/club-1/dons", `{"montant": "0"}`); rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for zero amount, got %d", rec.Code)
		}
		if rec := do(&sponsor, http.MethodGet, "/dons", ""); rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec := do(&club, http.MethodGet, "/clubs/club-1/dons", ""); rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})
}
