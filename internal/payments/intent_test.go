package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/viradabrew/storefront/internal/domain"
	"github.com/viradabrew/storefront/internal/mercadopago"
)

func TestIntentService_CreatePreference(t *testing.T) {
	t.Run("builds preference with items, shipping line, and callbacks", func(t *testing.T) {
		store := &fakeOrderStore{orders: map[string]*domain.Order{"order-1": pendingOrder("order-1")}}
		gateway := &fakeGateway{preference: &mercadopago.Preference{ID: "pref-1", InitPoint: "https://pay.example/p"}}

		svc := NewIntentService(gateway, store, "https://shop.example", "https://api.shop.example", testLogger())

		pref, err := svc.CreatePreference(context.Background(), "order-1", "user-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pref.ID != "pref-1" {
			t.Errorf("expected pref-1, got %s", pref.ID)
		}

		if len(gateway.preferenceCalls) != 1 {
			t.Fatalf("expected one provider call, got %d", len(gateway.preferenceCalls))
		}
		req := gateway.preferenceCalls[0]
		if req.ExternalReference != "order-1" {
			t.Errorf("external reference must be the order id, got %s", req.ExternalReference)
		}
		if req.NotificationURL != "https://api.shop.example/api/payments/webhook" {
			t.Errorf("unexpected notification url %s", req.NotificationURL)
		}
		if len(req.Items) != 2 {
			t.Fatalf("expected item + shipping line, got %d items", len(req.Items))
		}
		if req.Items[0].UnitPrice != 30.0 || req.Items[0].Quantity != 2 {
			t.Errorf("unexpected item line %+v", req.Items[0])
		}
		if req.Items[1].ID != "shipping" || req.Items[1].UnitPrice != 0.01 {
			t.Errorf("unexpected shipping line %+v", req.Items[1])
		}

		if len(store.intents) != 1 || store.intents[0].PreferenceID != "pref-1" {
			t.Errorf("preference id must be persisted, got %+v", store.intents)
		}
	})

	t.Run("processed order is rejected before any provider call", func(t *testing.T) {
		order := pendingOrder("order-1")
		order.Status = domain.OrderStatusProcessing
		store := &fakeOrderStore{orders: map[string]*domain.Order{"order-1": order}}
		gateway := &fakeGateway{}

		svc := NewIntentService(gateway, store, "https://shop.example", "https://api.shop.example", testLogger())

		_, err := svc.CreatePreference(context.Background(), "order-1", "user-1")

		var stateErr *domain.InvalidStateError
		if !errors.As(err, &stateErr) {
			t.Fatalf("expected InvalidStateError, got %v", err)
		}
		if len(gateway.preferenceCalls) != 0 {
			t.Error("provider must not be called")
		}
	})

	t.Run("someone else's order reads as not found", func(t *testing.T) {
		store := &fakeOrderStore{orders: map[string]*domain.Order{"order-1": pendingOrder("order-1")}}
		svc := NewIntentService(&fakeGateway{}, store, "https://shop.example", "https://api.shop.example", testLogger())

		_, err := svc.CreatePreference(context.Background(), "order-1", "intruder")

		var notFoundErr *domain.NotFoundError
		if !errors.As(err, &notFoundErr) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})
}

func TestIntentService_CreatePixCharge(t *testing.T) {
	pixPayment := &mercadopago.Payment{
		ID:               555,
		Status:           "pending",
		PaymentMethodID:  "pix",
		DateOfExpiration: "2026-09-02T12:00:00.000-03:00",
		PointOfInteraction: &mercadopago.PointOfInteraction{
			TransactionData: mercadopago.TransactionData{
				QRCode:       "00020126pixcode",
				QRCodeBase64: "aW1hZ2U=",
			},
		},
		Raw: []byte(`{"id":555}`),
	}

	t.Run("charges the order total and persists the pix fields", func(t *testing.T) {
		store := &fakeOrderStore{orders: map[string]*domain.Order{"order-1": pendingOrder("order-1")}}
		gateway := &fakeGateway{payment: pixPayment}

		svc := NewIntentService(gateway, store, "https://shop.example", "https://api.shop.example", testLogger())

		info, err := svc.CreatePixCharge(context.Background(), "order-1", "user-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(gateway.paymentCalls) != 1 {
			t.Fatalf("expected one provider call, got %d", len(gateway.paymentCalls))
		}
		req := gateway.paymentCalls[0]
		if req.TransactionAmount != 60.01 {
			t.Errorf("expected charge of 60.01, got %v", req.TransactionAmount)
		}
		if req.PaymentMethodID != "pix" || req.ExternalReference != "order-1" {
			t.Errorf("unexpected request %+v", req)
		}

		if info.PaymentID != "555" || info.Method != domain.PaymentMethodPix {
			t.Errorf("unexpected payment info %+v", info)
		}
		if info.PixCode != "00020126pixcode" || info.QRCodeBase64 != "aW1hZ2U=" {
			t.Errorf("pix codes not captured: %+v", info)
		}
		if info.ExpiresAt == nil {
			t.Error("expiration must be parsed")
		}
		if len(store.intents) != 1 {
			t.Errorf("payment intent must be persisted, got %d", len(store.intents))
		}
	})

	t.Run("second charge attempt is rejected", func(t *testing.T) {
		order := pendingOrder("order-1")
		order.PaymentInfo.Status = domain.PaymentStatusInProcess
		store := &fakeOrderStore{orders: map[string]*domain.Order{"order-1": order}}
		gateway := &fakeGateway{}

		svc := NewIntentService(gateway, store, "https://shop.example", "https://api.shop.example", testLogger())

		_, err := svc.CreatePixCharge(context.Background(), "order-1", "user-1")

		var stateErr *domain.InvalidStateError
		if !errors.As(err, &stateErr) {
			t.Fatalf("expected InvalidStateError, got %v", err)
		}
		if len(gateway.paymentCalls) != 0 {
			t.Error("provider must not be called")
		}
	})
}

func TestParseExpiration(t *testing.T) {
	if got := parseExpiration("2026-09-02T12:00:00.000-03:00"); got == nil {
		t.Error("provider layout must parse")
	}
	if got := parseExpiration("2026-09-02T12:00:00Z"); got == nil {
		t.Error("RFC3339 fallback must parse")
	}
	if got := parseExpiration("not a time"); got != nil {
		t.Error("garbage must yield nil")
	}
	if got := parseExpiration(""); got != nil {
		t.Error("empty must yield nil")
	}
}
