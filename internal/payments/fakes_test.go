package payments

import (
	"context"
	"io"
	"log/slog"

	"github.com/viradabrew/storefront/internal/domain"
	"github.com/viradabrew/storefront/internal/mercadopago"
	"github.com/viradabrew/storefront/internal/orders"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fakeGateway struct {
	preference *mercadopago.Preference
	payment    *mercadopago.Payment
	refund     *mercadopago.Refund

	getErr    error
	refundErr error

	preferenceCalls []mercadopago.PreferenceRequest
	paymentCalls    []mercadopago.PaymentRequest
	getCalls        []string
	refundCalls     []float64
}

func (f *fakeGateway) CreatePreference(_ context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	f.preferenceCalls = append(f.preferenceCalls, req)
	return f.preference, nil
}

func (f *fakeGateway) CreatePayment(_ context.Context, req mercadopago.PaymentRequest) (*mercadopago.Payment, error) {
	f.paymentCalls = append(f.paymentCalls, req)
	return f.payment, nil
}

func (f *fakeGateway) GetPayment(_ context.Context, id string) (*mercadopago.Payment, error) {
	f.getCalls = append(f.getCalls, id)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.payment, nil
}

func (f *fakeGateway) CreateRefund(_ context.Context, _ string, amount float64) (*mercadopago.Refund, error) {
	f.refundCalls = append(f.refundCalls, amount)
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return f.refund, nil
}

type fakeOrderStore struct {
	orders map[string]*domain.Order

	updates     []domain.PaymentUpdate
	intents     []domain.PaymentInfo
	cancelNotes []string

	// applyErr fails the next ApplyPaymentUpdate once, then clears.
	applyErr error
}

func (f *fakeOrderStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	return f.orders[id], nil
}

func (f *fakeOrderStore) GetByPaymentID(_ context.Context, paymentID string) (*domain.Order, error) {
	for _, o := range f.orders {
		if o.PaymentInfo.PaymentID == paymentID {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeOrderStore) SavePaymentIntent(_ context.Context, id string, info domain.PaymentInfo) error {
	f.intents = append(f.intents, info)
	if o, ok := f.orders[id]; ok {
		o.PaymentInfo = info
	}
	return nil
}

func (f *fakeOrderStore) ApplyPaymentUpdate(_ context.Context, id string, update domain.PaymentUpdate) error {
	if f.applyErr != nil {
		err := f.applyErr
		f.applyErr = nil
		return err
	}
	f.updates = append(f.updates, update)
	o, ok := f.orders[id]
	if !ok {
		return &domain.NotFoundError{Entity: "order", ID: id}
	}
	o.PaymentInfo.PaymentID = update.PaymentID
	o.PaymentInfo.Status = update.PaymentStatus
	if update.OrderStatus != "" {
		o.Status = update.OrderStatus
	}
	return nil
}

func (f *fakeOrderStore) MarkStockReduced(_ context.Context, id string) (bool, error) {
	o, ok := f.orders[id]
	if !ok || o.IsStockReduced {
		return false, nil
	}
	o.IsStockReduced = true
	return true, nil
}

func (f *fakeOrderStore) ClearStockReduced(_ context.Context, id string) (bool, error) {
	o, ok := f.orders[id]
	if !ok || !o.IsStockReduced {
		return false, nil
	}
	o.IsStockReduced = false
	return true, nil
}

func (f *fakeOrderStore) MarkCancelled(_ context.Context, id string, note string) error {
	o, ok := f.orders[id]
	if !ok {
		return &domain.NotFoundError{Entity: "order", ID: id}
	}
	o.Status = domain.OrderStatusCancelled
	o.PaymentInfo.Status = domain.PaymentStatusRefunded
	o.Notes = note
	f.cancelNotes = append(f.cancelNotes, note)
	return nil
}

type fakeStock struct {
	debits   map[string]int
	restores map[string]int
}

func newFakeStock() *fakeStock {
	return &fakeStock{debits: map[string]int{}, restores: map[string]int{}}
}

func (f *fakeStock) Debit(_ context.Context, productID string, quantity int) (int, error) {
	f.debits[productID] += quantity
	return 10 - f.debits[productID], nil
}

func (f *fakeStock) Restore(_ context.Context, productID string, quantity int) error {
	f.restores[productID] += quantity
	return nil
}

type fakeCache struct {
	seen        map[string]bool
	statuses    map[string][]byte
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{seen: map[string]bool{}, statuses: map[string][]byte{}}
}

func (f *fakeCache) AlreadyDelivered(_ context.Context, notificationID string) (bool, error) {
	return f.seen[notificationID], nil
}

func (f *fakeCache) MarkDelivered(_ context.Context, notificationID string) error {
	f.seen[notificationID] = true
	return nil
}

func (f *fakeCache) SetPaymentStatus(_ context.Context, orderID string, body []byte) error {
	f.statuses[orderID] = body
	return nil
}

func (f *fakeCache) GetPaymentStatus(_ context.Context, orderID string) ([]byte, error) {
	return f.statuses[orderID], nil
}

func (f *fakeCache) InvalidatePaymentStatus(_ context.Context, orderID string) error {
	delete(f.statuses, orderID)
	f.invalidated = append(f.invalidated, orderID)
	return nil
}

// fakeOrderCreator persists the created order into the shared store so the
// intent service can immediately look it up.
type fakeOrderCreator struct {
	store *fakeOrderStore

	items []orders.ItemInput
	addr  domain.ShippingAddress
}

func (f *fakeOrderCreator) Create(_ context.Context, userID, userEmail string, items []orders.ItemInput, addr domain.ShippingAddress) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, domain.Validationf("order must contain at least one item")
	}
	f.items = items
	f.addr = addr

	order := pendingOrder("order-1")
	order.UserID = userID
	order.UserEmail = userEmail
	order.ShippingAddress = addr
	f.store.orders[order.ID] = order
	return order, nil
}

type fakePublisher struct {
	events []domain.PaymentUpdatedEvent
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event any) error {
	if e, ok := event.(domain.PaymentUpdatedEvent); ok {
		f.events = append(f.events, e)
	}
	return nil
}

func pendingOrder(id string) *domain.Order {
	return &domain.Order{
		ID:        id,
		UserID:    "user-1",
		UserEmail: "u@example.com",
		Items: []domain.OrderItem{
			{ProductID: "beer-1", Name: "Vira IPA", UnitPrice: 3000, Quantity: 2},
		},
		Subtotal:     6000,
		ShippingCost: 1,
		Total:        6001,
		Status:       domain.OrderStatusPending,
		PaymentInfo:  domain.PaymentInfo{Status: domain.PaymentStatusPending},
	}
}
