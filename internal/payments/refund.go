package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/viradabrew/storefront/internal/domain"
)

// RefundService cancels an order and refunds its payment in full.
type RefundService struct {
	gateway   Gateway
	orders    OrderStore
	stock     StockStore
	cache     Cache
	publisher Publisher
	logger    *slog.Logger
}

func NewRefundService(gateway Gateway, orders OrderStore, stock StockStore, cache Cache, publisher Publisher, logger *slog.Logger) *RefundService {
	return &RefundService{
		gateway:   gateway,
		orders:    orders,
		stock:     stock,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

// CancelOrder validates the refund preconditions, refunds the full amount at
// the provider, and only then persists the cancellation. Stock is restored
// only when this order actually debited it.
func (s *RefundService) CancelOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &domain.NotFoundError{Entity: "order", ID: orderID}
	}

	if order.Status == domain.OrderStatusCancelled {
		return nil, domain.InvalidStatef("order is already cancelled")
	}
	if order.Status == domain.OrderStatusDelivered {
		return nil, domain.InvalidStatef("delivered orders cannot be cancelled")
	}
	if order.PaymentInfo.Status != domain.PaymentStatusApproved &&
		order.PaymentInfo.Status != domain.PaymentStatusAuthorized {
		return nil, domain.InvalidStatef("payment in status %q cannot be refunded", order.PaymentInfo.Status)
	}
	if order.PaymentInfo.PaymentID == "" {
		return nil, domain.Validationf("order has no payment to refund")
	}

	refund, err := s.gateway.CreateRefund(ctx, order.PaymentInfo.PaymentID, domain.BRLFromCents(order.Total))
	if err != nil {
		return nil, err
	}
	if refund.Status != "approved" && refund.Status != "pending" {
		return nil, &domain.GatewayError{
			Op:  "create refund",
			Err: fmt.Errorf("refund not accepted, status %q", refund.Status),
		}
	}

	note := fmt.Sprintf("Cancelled and refunded in full (refund %d, status %s) at %s",
		refund.ID, refund.Status, time.Now().UTC().Format(time.RFC3339))
	if err := s.orders.MarkCancelled(ctx, order.ID, note); err != nil {
		return nil, err
	}

	s.restoreStockOnce(ctx, order)

	if s.cache != nil {
		if err := s.cache.InvalidatePaymentStatus(ctx, order.ID); err != nil {
			s.logger.Warn("failed to invalidate payment status cache", "error", err, "order_id", order.ID)
		}
	}

	s.publishCancelled(ctx, order)

	s.logger.Info("order cancelled and refunded",
		"order_id", order.ID, "payment_id", order.PaymentInfo.PaymentID,
		"refund_id", refund.ID, "refund_status", refund.Status)

	return s.orders.GetByID(ctx, order.ID)
}

// restoreStockOnce mirrors the debit path: only the flip winner restores, so
// an order that never debited stock never inflates it.
func (s *RefundService) restoreStockOnce(ctx context.Context, order *domain.Order) {
	won, err := s.orders.ClearStockReduced(ctx, order.ID)
	if err != nil {
		s.logger.Error("failed to clear stock flag", "error", err, "order_id", order.ID)
		return
	}
	if !won {
		return
	}

	for _, item := range order.Items {
		if err := s.stock.Restore(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("failed to restore stock", "error", err,
				"order_id", order.ID, "product_id", item.ProductID)
		}
	}
}

func (s *RefundService) publishCancelled(ctx context.Context, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	event := domain.PaymentUpdatedEvent{
		OrderID:       order.ID,
		UserEmail:     order.UserEmail,
		PaymentStatus: domain.PaymentStatusRefunded,
		OrderStatus:   domain.OrderStatusCancelled,
		Total:         order.Total,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, order.ID, event); err != nil {
		s.logger.Error("failed to publish cancellation event", "error", err, "order_id", order.ID)
	}
}
