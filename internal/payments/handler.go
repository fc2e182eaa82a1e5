package payments

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/viradabrew/storefront/internal/auth"
	"github.com/viradabrew/storefront/internal/domain"
	"github.com/viradabrew/storefront/internal/httpx"
	"github.com/viradabrew/storefront/internal/mercadopago"
	"github.com/viradabrew/storefront/internal/orders"
	"github.com/viradabrew/storefront/internal/pix"
)

const maxWebhookBody = 1 << 20

type Handler struct {
	creator       OrderCreator
	intents       *IntentService
	refunds       *RefundService
	reconciler    *Reconciler
	orders        OrderStore
	cache         Cache
	merchant      pix.Merchant
	webhookSecret string
	logger        *slog.Logger
}

func NewHandler(creator OrderCreator, intents *IntentService, refunds *RefundService, reconciler *Reconciler,
	orders OrderStore, cache Cache, merchant pix.Merchant, webhookSecret string, logger *slog.Logger) *Handler {
	return &Handler{
		creator:       creator,
		intents:       intents,
		refunds:       refunds,
		reconciler:    reconciler,
		orders:        orders,
		cache:         cache,
		merchant:      merchant,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

type orderIDRequest struct {
	OrderID string `json:"order_id"`
}

func decodeOrderID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	var req orderIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		httpx.Fail(w, logger, http.StatusBadRequest, "order_id is required")
		return "", false
	}
	return req.OrderID, true
}

type createPreferenceRequest struct {
	Items           []orders.ItemInput     `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
}

type createPreferenceResponse struct {
	Order      *domain.Order           `json:"order"`
	Preference *mercadopago.Preference `json:"preference"`
}

// HandleCreatePreference opens the order and the hosted checkout in one call:
// the client sends items and a shipping address, never an order id.
func (h *Handler) HandleCreatePreference(w http.ResponseWriter, r *http.Request) {
	var req createPreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := auth.UserID(r.Context())
	order, err := h.creator.Create(r.Context(), userID, auth.UserEmail(r.Context()), req.Items, req.ShippingAddress)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	pref, err := h.intents.CreatePreference(r.Context(), order.ID, userID)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	httpx.JSON(w, h.logger, http.StatusCreated, createPreferenceResponse{Order: order, Preference: pref})
}

func (h *Handler) HandleCreatePixCharge(w http.ResponseWriter, r *http.Request) {
	orderID, ok := decodeOrderID(w, r, h.logger)
	if !ok {
		return
	}

	info, err := h.intents.CreatePixCharge(r.Context(), orderID, auth.UserID(r.Context()))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	httpx.JSON(w, h.logger, http.StatusCreated, info)
}

type staticPixResponse struct {
	Payload      string `json:"payload"`
	QRCodeBase64 string `json:"qr_code_base64"`
}

// HandleStaticPix serves the provider-less fallback: an EMV payload against
// the store's own PIX key, with the order id as txid.
func (h *Handler) HandleStaticPix(w http.ResponseWriter, r *http.Request) {
	orderID, ok := decodeOrderID(w, r, h.logger)
	if !ok {
		return
	}
	if h.merchant.Key == "" {
		httpx.Fail(w, h.logger, http.StatusServiceUnavailable, "static pix is not configured")
		return
	}

	order, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if order == nil || order.UserID != auth.UserID(r.Context()) {
		httpx.Fail(w, h.logger, http.StatusNotFound, "order not found")
		return
	}
	if order.Status != domain.OrderStatusPending {
		httpx.Error(w, h.logger, domain.InvalidStatef("order already processed"))
		return
	}

	payload := pix.Payload(h.merchant, order.ID, order.Total)
	png, err := pix.QRCodePNG(payload)
	if err != nil {
		h.logger.Error("failed to render pix qr code", "error", err, "order_id", order.ID)
		httpx.Fail(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.JSON(w, h.logger, http.StatusOK, staticPixResponse{
		Payload:      payload,
		QRCodeBase64: base64.StdEncoding.EncodeToString(png),
	})
}

type statusResponse struct {
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	OrderStatus   domain.OrderStatus   `json:"order_status"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")
	if orderID == "" {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "missing order id")
		return
	}

	if h.cache != nil {
		if cached, err := h.cache.GetPaymentStatus(r.Context(), orderID); err == nil && cached != nil {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(cached)
			return
		}
	}

	order, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if order == nil || (order.UserID != auth.UserID(r.Context()) && !auth.IsAdmin(r.Context())) {
		httpx.Fail(w, h.logger, http.StatusNotFound, "order not found")
		return
	}

	body, err := json.Marshal(statusResponse{
		PaymentStatus: order.PaymentInfo.Status,
		OrderStatus:   order.Status,
	})
	if err != nil {
		httpx.Fail(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.cache != nil {
		if err := h.cache.SetPaymentStatus(r.Context(), orderID, body); err != nil {
			h.logger.Warn("failed to cache payment status", "error", err, "order_id", orderID)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// HandleWebhook acknowledges every delivery with 200. Failing a delivery only
// makes the provider hammer the endpoint with retries for state we already
// reconcile idempotently.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		h.acknowledge(w)
		return
	}

	h.checkSignature(r)

	notification, err := ParseNotification(body)
	if err != nil {
		h.logger.Warn("unparseable webhook payload", "error", err)
		h.acknowledge(w)
		return
	}

	if err := h.reconciler.Handle(r.Context(), notification); err != nil {
		h.logger.Error("webhook reconciliation failed", "error", err,
			"payment_id", notification.PaymentID, "status_hint", notification.StatusHint)
	}

	h.acknowledge(w)
}

// checkSignature is log-only: deliveries are never rejected, the
// authoritative fetch makes forged payloads harmless.
func (h *Handler) checkSignature(r *http.Request) {
	if h.webhookSecret == "" {
		return
	}
	got := r.Header.Get("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
		h.logger.Warn("webhook signature mismatch", "remote_addr", r.RemoteAddr)
	}
}

func (h *Handler) acknowledge(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.refunds.CancelOrder(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	httpx.JSON(w, h.logger, http.StatusOK, order)
}
