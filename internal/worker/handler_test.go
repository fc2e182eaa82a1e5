package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/viradabrew/storefront/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func eventPayload(t *testing.T, status domain.PaymentStatus) []byte {
	t.Helper()
	payload, err := json.Marshal(domain.PaymentUpdatedEvent{
		OrderID:       "order-1",
		UserEmail:     "ana@example.com",
		PaymentStatus: status,
		OrderStatus:   domain.OrderStatusProcessing,
		Total:         6001,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func TestNotificationHandler_Handle(t *testing.T) {
	t.Run("approved payment sends a confirmation email", func(t *testing.T) {
		var sent map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/send" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if err := json.NewDecoder(r.Body).Decode(&sent); err != nil {
				t.Fatalf("decode email: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		h := NewNotificationHandler(server.URL, server.Client(), testLogger())

		if err := h.Handle(context.Background(), eventPayload(t, domain.PaymentStatusApproved)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if sent["to"] != "ana@example.com" {
			t.Errorf("unexpected recipient %q", sent["to"])
		}
		if !strings.Contains(sent["subject"], "order-1") {
			t.Errorf("subject must reference the order, got %q", sent["subject"])
		}
		if !strings.Contains(sent["body"], "60.01") {
			t.Errorf("body must state the amount, got %q", sent["body"])
		}
	})

	t.Run("refunded payment sends a cancellation email", func(t *testing.T) {
		var sent map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&sent)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		h := NewNotificationHandler(server.URL, server.Client(), testLogger())

		if err := h.Handle(context.Background(), eventPayload(t, domain.PaymentStatusRefunded)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(sent["subject"], "cancelled") {
			t.Errorf("expected cancellation subject, got %q", sent["subject"])
		}
	})

	t.Run("intermediate states send nothing", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		h := NewNotificationHandler(server.URL, server.Client(), testLogger())

		if err := h.Handle(context.Background(), eventPayload(t, domain.PaymentStatusInProcess)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if called {
			t.Error("relay must not be called for intermediate states")
		}
	})

	t.Run("relay failure surfaces as an error for redelivery", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		h := NewNotificationHandler(server.URL, server.Client(), testLogger())

		if err := h.Handle(context.Background(), eventPayload(t, domain.PaymentStatusApproved)); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("malformed payload errors", func(t *testing.T) {
		h := NewNotificationHandler("http://unused", http.DefaultClient, testLogger())

		if err := h.Handle(context.Background(), []byte("not json")); err == nil {
			t.Error("expected error")
		}
	})
}
