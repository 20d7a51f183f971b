package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/joao-fontenele/zakup/internal/auth"
	"github.com/joao-fontenele/zakup/internal/domain"
	"github.com/joao-fontenele/zakup/internal/web"
)

const testSecret = "test-secret"

type memDedup struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemDedup() *memDedup {
	return &memDedup{keys: make(map[string]string)}
}

func (d *memDedup) Begin(ctx context.Context, key string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v, ok := d.keys[key]; ok {
		return v, false, nil
	}
	d.keys[key] = ""
	return "", true, nil
}

func (d *memDedup) Complete(ctx context.Context, key, orderID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[key] = orderID
	return nil
}

func (d *memDedup) Release(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, key)
	return nil
}

type testServer struct {
	mux   *http.ServeMux
	store *memStore
	dedup *memDedup
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore(fixtureProducts()...)
	dedup := newMemDedup()

	h := NewHandler(newTestService(t, store), dedup, logger)
	mux := http.NewServeMux()
	h.Register(mux, auth.NewVerifier(testSecret))

	return &testServer{mux: mux, store: store, dedup: dedup}
}

func (s *testServer) do(t *testing.T, p *auth.Principal, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if p != nil {
		token, err := auth.IssueToken(testSecret, *p, time.Hour)
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeOrder(t *testing.T, rec *httptest.ResponseRecorder) domain.Order {
	t.Helper()
	var order domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	return order
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) web.ErrorResponse {
	t.Helper()
	var resp web.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	return resp
}

const orderBody = `{
	"produits": [{"produit": "jersey", "quantite": 2}, {"produit": "scarf", "quantite": 1}],
	"adresseLivraison": {"rue": "12 rue des Lilas", "ville": "Lyon", "codePostal": "69003", "pays": "France"},
	"informationsPaiement": {"methode": "carte"}
}`

func TestHandleCreate(t *testing.T) {
	t.Run("places order", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(t, &buyer, http.MethodPost, "/orders", orderBody)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}
		order := decodeOrder(t, rec)
		if order.Status != domain.OrderStatusPending {
			t.Errorf("expected status %q, got %q", domain.OrderStatusPending, order.Status)
		}
		if order.Total.String() != "77.5" {
			t.Errorf("expected total 77.5, got %s", order.Total)
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(t, nil, http.MethodPost, "/orders", orderBody)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401, got %d", rec.Code)
		}
		resp := decodeError(t, rec)
		if resp.Success || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("unexpected envelope: %+v", resp)
		}
	})

	t.Run("sellers cannot order", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(t, &club, http.MethodPost, "/orders", orderBody)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected status 403, got %d", rec.Code)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(t, &buyer, http.MethodPost, "/orders", "{invalid")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
		if resp := decodeError(t, rec); resp.Message != "Corps de requête invalide" {
			t.Errorf("unexpected message %q", resp.Message)
		}
	})

	t.Run("insufficient stock", func(t *testing.T) {
		s := newTestServer(t)
		body := `{
			"produits": [{"produit": "scarf", "quantite": 4}],
			"adresseLivraison": {"rue": "1 rue", "ville": "Lyon", "codePostal": "69001", "pays": "France"},
			"informationsPaiement": {"methode": "carte"}
		}`
		rec := s.do(t, &buyer, http.MethodPost, "/orders", body)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
		resp := decodeError(t, rec)
		if resp.Message != "Stock insuffisant pour Écharpe" {
			t.Errorf("unexpected message %q", resp.Message)
		}
		if resp.StatusCode != http.StatusBadRequest || resp.Success {
			t.Errorf("unexpected envelope: %+v", resp)
		}
	})
}

func TestHandleCreate_IdempotencyKey(t *testing.T) {
	s := newTestServer(t)

	first := s.do(t, &buyer, http.MethodPost, "/orders", orderBody, "Idempotency-Key", "checkout-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", first.Code, first.Body.String())
	}
	created := decodeOrder(t, first)

	replay := s.do(t, &buyer, http.MethodPost, "/orders", orderBody, "Idempotency-Key", "checkout-1")
	if replay.Code != http.StatusOK {
		t.Fatalf("expected status 200 on replay, got %d", replay.Code)
	}
	if got := decodeOrder(t, replay); got.ID != created.ID {
		t.Errorf("expected replayed order %s, got %s", created.ID, got.ID)
	}

	if n := s.store.orderCount(); n != 1 {
		t.Errorf("expected 1 stored order, got %d", n)
	}
	if stock := s.store.stock("jersey"); stock != 8 {
		t.Errorf("expected jersey stock 8, got %d", stock)
	}

	// Same key from another buyer is a different request.
	other := s.do(t, &otherBuyer, http.MethodPost, "/orders", orderBody, "Idempotency-Key", "checkout-1")
	if other.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for another buyer, got %d", other.Code)
	}
}

func TestHandleCreate_IdempotencyKeyInFlight(t *testing.T) {
	s := newTestServer(t)
	if _, _, err := s.dedup.Begin(context.Background(), "user-1:checkout-1"); err != nil {
		t.Fatalf("failed to claim key: %v", err)
	}

	rec := s.do(t, &buyer, http.MethodPost, "/orders", orderBody, "Idempotency-Key", "checkout-1")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
	if n := s.store.orderCount(); n != 0 {
		t.Errorf("expected no stored order, got %d", n)
	}
}

func TestHandleCreate_FailureReleasesIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	body := `{"produits": [], "adresseLivraison": {}, "informationsPaiement": {}}`

	rec := s.do(t, &buyer, http.MethodPost, "/orders", body, "Idempotency-Key", "checkout-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	rec = s.do(t, &buyer, http.MethodPost, "/orders", orderBody, "Idempotency-Key", "checkout-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected retry to succeed with 201, got %d", rec.Code)
	}
}

func TestHandleGet(t *testing.T) {
	s := newTestServer(t)
	created := decodeOrder(t, s.do(t, &buyer, http.MethodPost, "/orders", orderBody))

	tests := []struct {
		name   string
		caller *auth.Principal
		id     string
		status int
	}{
		{name: "buyer", caller: &buyer, id: created.ID, status: http.StatusOK},
		{name: "seller", caller: &club, id: created.ID, status: http.StatusOK},
		{name: "stranger", caller: &otherBuyer, id: created.ID, status: http.StatusForbidden},
		{name: "missing", caller: &admin, id: "nope", status: http.StatusNotFound},
		{name: "anonymous", caller: nil, id: created.ID, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.caller, http.MethodGet, "/orders/"+tt.id, nil)
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleListForSeller(t *testing.T) {
	s := newTestServer(t)
	created := decodeOrder(t, s.do(t, &buyer, http.MethodPost, "/orders", orderBody))

	rec := s.do(t, &club, http.MethodGet, "/orders/vendeur", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var orders []domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&orders); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != created.ID {
		t.Errorf("expected the placed order, got %+v", orders)
	}

	if rec := s.do(t, &buyer, http.MethodGet, "/orders/vendeur", nil); rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403 for buyer, got %d", rec.Code)
	}
}

func TestHandleListMine(t *testing.T) {
	s := newTestServer(t)
	s.do(t, &buyer, http.MethodPost, "/orders", orderBody)
	s.do(t, &buyer, http.MethodPost, "/orders", orderBody)

	rec := s.do(t, &buyer, http.MethodGet, "/orders", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var orders []domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&orders); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("expected 2 orders, got %d", len(orders))
	}

	rec = s.do(t, &otherBuyer, http.MethodGet, "/orders", nil)
	orders = nil
	if err := json.NewDecoder(rec.Body).Decode(&orders); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("expected no orders for another buyer, got %d", len(orders))
	}
}

func TestHandleUpdateStatus(t *testing.T) {
	s := newTestServer(t)
	created := decodeOrder(t, s.do(t, &buyer, http.MethodPost, "/orders", orderBody))
	path := "/orders/" + created.ID + "/status"

	rec := s.do(t, &club, http.MethodPut, path, map[string]string{"statusCommande": "Livrée"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	order := decodeOrder(t, rec)
	if order.Status != domain.OrderStatusDelivered || order.DeliveredAt == nil {
		t.Errorf("expected delivered order with date, got %+v", order)
	}

	rec = s.do(t, &club, http.MethodPut, path, map[string]string{"statusCommande": "En attente"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Message != "Transition de statut invalide" {
		t.Errorf("unexpected message %q", resp.Message)
	}

	rec = s.do(t, &otherClub, http.MethodPut, path, map[string]string{"statusCommande": "Annulée"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
}

func TestHandleCancel(t *testing.T) {
	s := newTestServer(t)
	created := decodeOrder(t, s.do(t, &buyer, http.MethodPost, "/orders", orderBody))

	rec := s.do(t, &buyer, http.MethodPut, "/orders/"+created.ID+"/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if order := decodeOrder(t, rec); order.Status != domain.OrderStatusCancelled {
		t.Errorf("expected cancelled order, got %q", order.Status)
	}
	if stock := s.store.stock("jersey"); stock != 10 {
		t.Errorf("expected jersey stock restored to 10, got %d", stock)
	}
}
