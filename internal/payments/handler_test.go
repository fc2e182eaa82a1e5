package payments

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/viradabrew/storefront/internal/auth"
	"github.com/viradabrew/storefront/internal/domain"
	"github.com/viradabrew/storefront/internal/mercadopago"
	"github.com/viradabrew/storefront/internal/pix"
)

func webhookHandler(gateway *fakeGateway, store *fakeOrderStore) *Handler {
	rec := NewReconciler(gateway, store, newFakeStock(), nil, nil, testLogger())
	return NewHandler(nil, nil, nil, rec, store, nil, pix.Merchant{}, "", testLogger())
}

func TestHandler_HandleCreatePreference(t *testing.T) {
	newCheckoutHandler := func(gateway *fakeGateway) (*Handler, *fakeOrderCreator, *fakeOrderStore) {
		store := &fakeOrderStore{orders: map[string]*domain.Order{}}
		creator := &fakeOrderCreator{store: store}
		intents := NewIntentService(gateway, store, "https://shop.example", "https://api.example", testLogger())
		h := NewHandler(creator, intents, nil, nil, store, nil, pix.Merchant{}, "", testLogger())
		return h, creator, store
	}

	authedRequest := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/create-preference", strings.NewReader(body))
		claims := &auth.Claims{
			Email:            "u@example.com",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		}
		return req.WithContext(auth.WithClaims(req.Context(), claims))
	}

	t.Run("creates the order and opens checkout in one call", func(t *testing.T) {
		gateway := &fakeGateway{preference: &mercadopago.Preference{ID: "pref-1", InitPoint: "https://pay.example/pref-1"}}
		h, creator, store := newCheckoutHandler(gateway)

		w := httptest.NewRecorder()
		h.HandleCreatePreference(w, authedRequest(`{
			"items": [{"product_id": "beer-1", "quantity": 2}],
			"shipping_address": {"cep": "01001-000", "street": "Rua A", "number": "10",
				"district": "Centro", "city": "Sao Paulo", "state": "SP"}
		}`))

		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		if len(creator.items) != 1 || creator.items[0].ProductID != "beer-1" {
			t.Fatalf("order must be created from the request items, got %+v", creator.items)
		}
		if creator.addr.District != "Centro" {
			t.Errorf("shipping address must be passed through, got %+v", creator.addr)
		}
		if len(gateway.preferenceCalls) != 1 {
			t.Fatalf("expected one preference call, got %d", len(gateway.preferenceCalls))
		}
		if got := gateway.preferenceCalls[0].ExternalReference; got != "order-1" {
			t.Errorf("preference must reference the freshly created order, got %q", got)
		}
		if store.orders["order-1"].PaymentInfo.PreferenceID != "pref-1" {
			t.Error("preference id must be persisted on the new order")
		}

		var resp createPreferenceResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if resp.Order == nil || resp.Order.ID != "order-1" {
			t.Errorf("response must carry the created order, got %+v", resp.Order)
		}
		if resp.Preference == nil || resp.Preference.InitPoint != "https://pay.example/pref-1" {
			t.Errorf("response must carry the checkout link, got %+v", resp.Preference)
		}
	})

	t.Run("invalid order input fails before any provider call", func(t *testing.T) {
		gateway := &fakeGateway{}
		h, _, _ := newCheckoutHandler(gateway)

		w := httptest.NewRecorder()
		h.HandleCreatePreference(w, authedRequest(`{"items": [], "shipping_address": {}}`))

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
		if len(gateway.preferenceCalls) != 0 {
			t.Error("provider must not be called for an invalid order")
		}
	})
}

func TestHandler_HandleWebhook(t *testing.T) {
	t.Run("reconciles the current payload shape", func(t *testing.T) {
		store := &fakeOrderStore{orders: map[string]*domain.Order{"order-1": pendingOrder("order-1")}}
		gateway := &fakeGateway{payment: approvedPayment("order-1")}
		h := webhookHandler(gateway, store)

		req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook",
			strings.NewReader(`{"type":"payment","data":{"id":777}}`))
		w := httptest.NewRecorder()

		h.HandleWebhook(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
		if len(store.updates) != 1 {
			t.Errorf("expected one update, got %d", len(store.updates))
		}
	})

	t.Run("reconciles the legacy payload shape via fetch, ignoring the embedded status", func(t *testing.T) {
		store := &fakeOrderStore{orders: map[string]*domain.Order{"order-1": pendingOrder("order-1")}}
		// Provider says approved even though the stale payload claims rejected.
		gateway := &fakeGateway{payment: approvedPayment("order-1")}
		h := webhookHandler(gateway, store)

		req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook",
			strings.NewReader(`{"action":"payment.updated","data":{"id":"777","status":"rejected"}}`))
		w := httptest.NewRecorder()

		h.HandleWebhook(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
		if len(gateway.getCalls) != 1 {
			t.Fatalf("expected an authoritative fetch, got %v", gateway.getCalls)
		}
		if store.updates[0].PaymentStatus != domain.PaymentStatusApproved {
			t.Errorf("fetched status must win over the payload hint, got %s", store.updates[0].PaymentStatus)
		}
	})

	t.Run("unparseable body still gets a 200", func(t *testing.T) {
		h := webhookHandler(&fakeGateway{}, &fakeOrderStore{})

		req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader("not json"))
		w := httptest.NewRecorder()

		h.HandleWebhook(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})

	t.Run("provider fetch failure still gets a 200", func(t *testing.T) {
		gateway := &fakeGateway{getErr: errors.New("provider down")}
		h := webhookHandler(gateway, &fakeOrderStore{})

		req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook",
			strings.NewReader(`{"type":"payment","data":{"id":777}}`))
		w := httptest.NewRecorder()

		h.HandleWebhook(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
		if w.Body.String() != "ok" {
			t.Errorf("expected ok body, got %q", w.Body.String())
		}
	})

	t.Run("signature mismatch is log-only", func(t *testing.T) {
		store := &fakeOrderStore{orders: map[string]*domain.Order{"order-1": pendingOrder("order-1")}}
		gateway := &fakeGateway{payment: approvedPayment("order-1")}
		rec := NewReconciler(gateway, store, newFakeStock(), nil, nil, testLogger())
		h := NewHandler(nil, nil, nil, rec, store, nil, pix.Merchant{}, "expected-secret", testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook",
			strings.NewReader(`{"type":"payment","data":{"id":777}}`))
		req.Header.Set("X-Webhook-Secret", "wrong")
		w := httptest.NewRecorder()

		h.HandleWebhook(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200 despite bad signature, got %d", w.Code)
		}
		if len(store.updates) != 1 {
			t.Errorf("delivery must still be processed, got %d updates", len(store.updates))
		}
	})
}
