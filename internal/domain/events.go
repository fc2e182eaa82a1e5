package domain

import "time"

const TopicPaymentUpdated = "payment.updated"

// PaymentUpdatedEvent is published after the reconciler or the refund flow
// persists a payment state change. Keyed by order id so deliveries for one
// order stay ordered.
type PaymentUpdatedEvent struct {
	OrderID       string        `json:"order_id"`
	UserEmail     string        `json:"user_email"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	OrderStatus   OrderStatus   `json:"order_status"`
	Total         int64         `json:"total"`
	OccurredAt    time.Time     `json:"occurred_at"`
}
