// Package payments holds the payment intent, webhook reconciliation, and
// cancellation/refund flows.
package payments

import (
	"context"

	"github.com/viradabrew/storefront/internal/domain"
	"github.com/viradabrew/storefront/internal/mercadopago"
	"github.com/viradabrew/storefront/internal/orders"
)

// OrderCreator opens a pending order during checkout. Satisfied by
// orders.Service.
type OrderCreator interface {
	Create(ctx context.Context, userID, userEmail string, items []orders.ItemInput, addr domain.ShippingAddress) (*domain.Order, error)
}

// Gateway is the provider surface the payment flows depend on. The concrete
// client is injected so tests can run against fakes.
type Gateway interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
	CreatePayment(ctx context.Context, req mercadopago.PaymentRequest) (*mercadopago.Payment, error)
	GetPayment(ctx context.Context, id string) (*mercadopago.Payment, error)
	CreateRefund(ctx context.Context, paymentID string, amount float64) (*mercadopago.Refund, error)
}

// OrderStore is the order persistence surface for payment flows.
type OrderStore interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)
	SavePaymentIntent(ctx context.Context, id string, info domain.PaymentInfo) error
	ApplyPaymentUpdate(ctx context.Context, id string, update domain.PaymentUpdate) error
	MarkStockReduced(ctx context.Context, id string) (bool, error)
	ClearStockReduced(ctx context.Context, id string) (bool, error)
	MarkCancelled(ctx context.Context, id string, note string) error
}

// StockStore adjusts catalog quantities.
type StockStore interface {
	Debit(ctx context.Context, productID string, quantity int) (int, error)
	Restore(ctx context.Context, productID string, quantity int) error
}

// Cache is the optional Redis-backed dedup and status cache. All uses are
// best effort; a cache failure never fails the flow. Deliveries are marked
// seen only after they were fully applied, so a failed delivery stays
// eligible for the provider's retries.
type Cache interface {
	AlreadyDelivered(ctx context.Context, notificationID string) (bool, error)
	MarkDelivered(ctx context.Context, notificationID string) error
	SetPaymentStatus(ctx context.Context, orderID string, body []byte) error
	GetPaymentStatus(ctx context.Context, orderID string) ([]byte, error)
	InvalidatePaymentStatus(ctx context.Context, orderID string) error
}

// Publisher emits payment.updated events.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}
