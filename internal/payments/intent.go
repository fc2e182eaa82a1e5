package payments

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/viradabrew/storefront/internal/domain"
	"github.com/viradabrew/storefront/internal/mercadopago"
)

// provider expiration timestamp layout, e.g. 2026-09-01T12:00:00.000-03:00
const expirationLayout = "2006-01-02T15:04:05.000-07:00"

type IntentService struct {
	gateway     Gateway
	orders      OrderStore
	frontendURL string
	backendURL  string
	logger      *slog.Logger
}

func NewIntentService(gateway Gateway, orders OrderStore, frontendURL, backendURL string, logger *slog.Logger) *IntentService {
	return &IntentService{
		gateway:     gateway,
		orders:      orders,
		frontendURL: frontendURL,
		backendURL:  backendURL,
		logger:      logger,
	}
}

func (s *IntentService) notificationURL() string {
	return s.backendURL + "/api/payments/webhook"
}

// lookup loads the order and hides it from anyone but its owner.
func (s *IntentService) lookup(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, &domain.NotFoundError{Entity: "order", ID: orderID}
	}
	return order, nil
}

// CreatePreference opens a hosted checkout for a pending order. The
// preference id is persisted only after the provider accepts the request.
func (s *IntentService) CreatePreference(ctx context.Context, orderID, userID string) (*mercadopago.Preference, error) {
	order, err := s.lookup(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusPending {
		return nil, domain.InvalidStatef("order already processed")
	}

	items := make([]mercadopago.PreferenceItem, 0, len(order.Items)+1)
	for _, it := range order.Items {
		items = append(items, mercadopago.PreferenceItem{
			ID:         it.ProductID,
			Title:      it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  domain.BRLFromCents(it.UnitPrice),
			CurrencyID: "BRL",
		})
	}
	if order.ShippingCost > 0 {
		items = append(items, mercadopago.PreferenceItem{
			ID:         "shipping",
			Title:      "Frete",
			Quantity:   1,
			UnitPrice:  domain.BRLFromCents(order.ShippingCost),
			CurrencyID: "BRL",
		})
	}

	pref, err := s.gateway.CreatePreference(ctx, mercadopago.PreferenceRequest{
		Items: items,
		Payer: mercadopago.Payer{Email: order.UserEmail},
		BackURLs: mercadopago.BackURLs{
			Success: s.frontendURL + "/checkout/success",
			Failure: s.frontendURL + "/checkout/failure",
			Pending: s.frontendURL + "/checkout/pending",
		},
		AutoReturn:        "approved",
		ExternalReference: order.ID,
		NotificationURL:   s.notificationURL(),
	})
	if err != nil {
		return nil, err
	}

	info := order.PaymentInfo
	info.PreferenceID = pref.ID
	if err := s.orders.SavePaymentIntent(ctx, order.ID, info); err != nil {
		return nil, err
	}

	s.logger.Info("checkout preference created", "order_id", order.ID, "preference_id", pref.ID)
	return pref, nil
}

// CreatePixCharge creates a PIX payment for a pending order. Both the order
// and its payment must still be pending; a second charge attempt is rejected.
func (s *IntentService) CreatePixCharge(ctx context.Context, orderID, userID string) (*domain.PaymentInfo, error) {
	order, err := s.lookup(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusPending || order.PaymentInfo.Status != domain.PaymentStatusPending {
		return nil, domain.InvalidStatef("order already processed")
	}

	payment, err := s.gateway.CreatePayment(ctx, mercadopago.PaymentRequest{
		TransactionAmount: domain.BRLFromCents(order.Total),
		Description:       "Pedido " + order.ID,
		PaymentMethodID:   "pix",
		Payer:             mercadopago.PaymentPayer{Email: order.UserEmail},
		ExternalReference: order.ID,
		NotificationURL:   s.notificationURL(),
	})
	if err != nil {
		return nil, err
	}

	info := order.PaymentInfo
	info.PaymentID = strconv.FormatInt(payment.ID, 10)
	info.Method = domain.PaymentMethodPix
	if payment.Status != "" {
		info.Status = domain.PaymentStatus(payment.Status)
	}
	if payment.PointOfInteraction != nil {
		info.PixCode = payment.PointOfInteraction.TransactionData.QRCode
		info.QRCodeBase64 = payment.PointOfInteraction.TransactionData.QRCodeBase64
	}
	info.ExpiresAt = parseExpiration(payment.DateOfExpiration)
	info.RawPayload = payment.Raw

	if err := s.orders.SavePaymentIntent(ctx, order.ID, info); err != nil {
		return nil, err
	}

	s.logger.Info("pix charge created", "order_id", order.ID, "payment_id", info.PaymentID)
	return &info, nil
}

func parseExpiration(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(expirationLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil
		}
	}
	return &t
}
