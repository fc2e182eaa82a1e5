// Package worker consumes payment.updated events and sends the matching
// customer notifications through the email relay.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/viradabrew/storefront/internal/domain"
)

type NotificationHandler struct {
	emailRelayURL string
	httpClient    *http.Client
	logger        *slog.Logger
}

func NewNotificationHandler(emailRelayURL string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailRelayURL: emailRelayURL,
		httpClient:    client,
		logger:        logger,
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.PaymentUpdatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal payment updated event: %w", err)
	}

	h.logger.Info("processing payment update",
		"order_id", event.OrderID, "payment_status", event.PaymentStatus)

	switch event.PaymentStatus {
	case domain.PaymentStatusApproved:
		return h.sendPaymentConfirmedEmail(ctx, event)
	case domain.PaymentStatusRefunded, domain.PaymentStatusRejected,
		domain.PaymentStatusCancelled, domain.PaymentStatusChargedBack:
		return h.sendCancellationEmail(ctx, event)
	default:
		// Intermediate states do not notify.
		return nil
	}
}

func (h *NotificationHandler) sendPaymentConfirmedEmail(ctx context.Context, event domain.PaymentUpdatedEvent) error {
	body := map[string]string{
		"to":      event.UserEmail,
		"subject": "Payment confirmed for order " + event.OrderID,
		"body": fmt.Sprintf("We received your payment of R$ %.2f. Order %s is now being prepared.",
			domain.BRLFromCents(event.Total), event.OrderID),
	}

	if err := h.sendEmail(ctx, body); err != nil {
		return fmt.Errorf("send payment confirmation: %w", err)
	}

	h.logger.Info("payment confirmation sent", "order_id", event.OrderID, "to", event.UserEmail)
	return nil
}

func (h *NotificationHandler) sendCancellationEmail(ctx context.Context, event domain.PaymentUpdatedEvent) error {
	body := map[string]string{
		"to":      event.UserEmail,
		"subject": "Order " + event.OrderID + " cancelled",
		"body": fmt.Sprintf("Order %s was cancelled (payment %s). Any captured amount will be refunded in full.",
			event.OrderID, event.PaymentStatus),
	}

	if err := h.sendEmail(ctx, body); err != nil {
		return fmt.Errorf("send cancellation email: %w", err)
	}

	h.logger.Info("cancellation email sent", "order_id", event.OrderID, "to", event.UserEmail)
	return nil
}

func (h *NotificationHandler) sendEmail(ctx context.Context, body map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailRelayURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email relay returned status %d", resp.StatusCode)
	}

	return nil
}
