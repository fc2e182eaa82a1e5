package payments

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/viradabrew/storefront/internal/domain"
)

// Notification is the normalized form of a provider webhook delivery. Only
// the payment id matters; any status carried in the payload is a hint that is
// never trusted, the provider is always re-queried.
type Notification struct {
	PaymentID  string
	Action     string
	StatusHint string
}

type notificationPayload struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID     json.Number `json:"id"`
		Status string      `json:"status"`
	} `json:"data"`
}

// ParseNotification accepts both delivery shapes the provider sends:
// {"type":"payment","data":{"id":...}} and the legacy
// {"action":"payment.updated","data":{"id":...,"status":...}}.
// Non-payment notifications come back with an empty PaymentID.
func ParseNotification(body []byte) (Notification, error) {
	var payload notificationPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Notification{}, err
	}

	n := Notification{
		Action:     payload.Action,
		StatusHint: payload.Data.Status,
	}

	switch {
	case payload.Type == "payment":
		n.PaymentID = payload.Data.ID.String()
	case payload.Action == "payment.updated":
		n.PaymentID = payload.Data.ID.String()
	}
	return n, nil
}

// Reconciler turns provider notifications into order state. Every delivery is
// re-fetched from the provider before anything is persisted.
type Reconciler struct {
	gateway   Gateway
	orders    OrderStore
	stock     StockStore
	cache     Cache
	publisher Publisher
	logger    *slog.Logger
}

func NewReconciler(gateway Gateway, orders OrderStore, stock StockStore, cache Cache, publisher Publisher, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		gateway:   gateway,
		orders:    orders,
		stock:     stock,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

// mapPaymentStatus translates a provider payment status into the order
// lifecycle effect. An empty order status means the order is left alone.
func mapPaymentStatus(status domain.PaymentStatus) (orderStatus domain.OrderStatus, markPaid bool) {
	switch status {
	case domain.PaymentStatusApproved:
		return domain.OrderStatusProcessing, true
	case domain.PaymentStatusPending, domain.PaymentStatusInProcess:
		return domain.OrderStatusPending, false
	case domain.PaymentStatusRejected, domain.PaymentStatusCancelled,
		domain.PaymentStatusRefunded, domain.PaymentStatusChargedBack:
		return domain.OrderStatusCancelled, false
	default:
		return "", false
	}
}

func mapPaymentMethod(providerMethodID string) domain.PaymentMethod {
	switch providerMethodID {
	case "":
		return ""
	case "pix":
		return domain.PaymentMethodPix
	case "bolbradesco", "boleto":
		return domain.PaymentMethodBoleto
	case "debmaster", "debvisa", "debelo":
		return domain.PaymentMethodDebitCard
	case "master", "visa", "amex", "elo", "hipercard":
		return domain.PaymentMethodCreditCard
	default:
		return domain.PaymentMethodOther
	}
}

// Handle reconciles one notification. Errors bubble up for logging only; the
// HTTP layer acknowledges the delivery with 200 regardless.
func (r *Reconciler) Handle(ctx context.Context, n Notification) error {
	if n.PaymentID == "" {
		r.logger.Info("ignoring non-payment notification", "action", n.Action)
		return nil
	}

	payment, err := r.gateway.GetPayment(ctx, n.PaymentID)
	if err != nil {
		return err
	}

	status := domain.PaymentStatus(payment.Status)

	// Dedup keyed on (payment, status) so replays of one transition are
	// skipped but genuine transitions are not. Best effort only; the
	// stock flag below is the real idempotency guarantee.
	dedupKey := n.PaymentID + ":" + string(status)
	if r.cache != nil {
		delivered, err := r.cache.AlreadyDelivered(ctx, dedupKey)
		if err != nil {
			r.logger.Warn("webhook dedup unavailable", "error", err)
		} else if delivered {
			r.logger.Info("duplicate webhook delivery skipped", "payment_id", n.PaymentID, "status", status)
			return nil
		}
	}

	order, err := r.resolveOrder(ctx, payment.ExternalReference, n.PaymentID)
	if err != nil {
		return err
	}
	if order == nil {
		r.logger.Warn("notification references no known order",
			"payment_id", n.PaymentID, "external_reference", payment.ExternalReference)
		return nil
	}

	orderStatus, markPaid := mapPaymentStatus(status)

	update := domain.PaymentUpdate{
		PaymentID:     strconv.FormatInt(payment.ID, 10),
		PaymentStatus: status,
		Method:        mapPaymentMethod(payment.PaymentMethodID),
		RawPayload:    payment.Raw,
		OrderStatus:   orderStatus,
		MarkPaid:      markPaid,
	}
	if update.Method == "" {
		update.Method = order.PaymentInfo.Method
	}
	if payment.TransactionDetails != nil {
		update.NetReceivedAmount = domain.CentsFromBRL(payment.TransactionDetails.NetReceivedAmount)
	}
	update.ProviderFee = domain.CentsFromBRL(payment.TotalFees())

	if err := r.orders.ApplyPaymentUpdate(ctx, order.ID, update); err != nil {
		return err
	}

	if markPaid {
		r.debitStockOnce(ctx, order)
	}

	// Marked seen only now that the update persisted. A delivery that
	// failed above returns without marking, so the provider's retry of
	// the same transition still gets through.
	if r.cache != nil {
		if err := r.cache.MarkDelivered(ctx, dedupKey); err != nil {
			r.logger.Warn("failed to mark webhook delivery", "error", err, "payment_id", n.PaymentID)
		}
		if err := r.cache.InvalidatePaymentStatus(ctx, order.ID); err != nil {
			r.logger.Warn("failed to invalidate payment status cache", "error", err, "order_id", order.ID)
		}
	}

	finalOrderStatus := order.Status
	if orderStatus != "" {
		finalOrderStatus = orderStatus
	}
	r.publish(ctx, order, status, finalOrderStatus)

	r.logger.Info("payment reconciled",
		"order_id", order.ID, "payment_id", update.PaymentID,
		"payment_status", status, "order_status", finalOrderStatus)
	return nil
}

func (r *Reconciler) resolveOrder(ctx context.Context, externalReference, paymentID string) (*domain.Order, error) {
	if externalReference != "" {
		order, err := r.orders.GetByID(ctx, externalReference)
		if err != nil || order != nil {
			return order, err
		}
	}
	return r.orders.GetByPaymentID(ctx, paymentID)
}

// debitStockOnce wins or loses the stock flag flip atomically. Only the
// winner debits; replayed approvals lose the flip and leave stock alone.
func (r *Reconciler) debitStockOnce(ctx context.Context, order *domain.Order) {
	won, err := r.orders.MarkStockReduced(ctx, order.ID)
	if err != nil {
		r.logger.Error("failed to flip stock flag", "error", err, "order_id", order.ID)
		return
	}
	if !won {
		return
	}

	for _, item := range order.Items {
		remaining, err := r.stock.Debit(ctx, item.ProductID, item.Quantity)
		if err != nil {
			r.logger.Error("failed to debit stock", "error", err,
				"order_id", order.ID, "product_id", item.ProductID)
			continue
		}
		if remaining < 0 {
			r.logger.Warn("stock went negative", "product_id", item.ProductID,
				"remaining", remaining, "order_id", order.ID)
		}
	}
}

func (r *Reconciler) publish(ctx context.Context, order *domain.Order, paymentStatus domain.PaymentStatus, orderStatus domain.OrderStatus) {
	if r.publisher == nil {
		return
	}
	event := domain.PaymentUpdatedEvent{
		OrderID:       order.ID,
		UserEmail:     order.UserEmail,
		PaymentStatus: paymentStatus,
		OrderStatus:   orderStatus,
		Total:         order.Total,
		OccurredAt:    time.Now().UTC(),
	}
	if err := r.publisher.Publish(ctx, order.ID, event); err != nil {
		r.logger.Error("failed to publish payment update", "error", err, "order_id", order.ID)
	}
}
