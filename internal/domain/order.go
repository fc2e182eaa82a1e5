package domain

import (
	"encoding/json"
	"math"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ValidOrderStatus reports whether s is one of the five lifecycle values.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus is the provider-side payment lifecycle, distinct from the
// order lifecycle. An order can be pending while its payment is in_process.
type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusApproved    PaymentStatus = "approved"
	PaymentStatusAuthorized  PaymentStatus = "authorized"
	PaymentStatusInProcess   PaymentStatus = "in_process"
	PaymentStatusRejected    PaymentStatus = "rejected"
	PaymentStatusCancelled   PaymentStatus = "cancelled"
	PaymentStatusRefunded    PaymentStatus = "refunded"
	PaymentStatusChargedBack PaymentStatus = "charged_back"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
	PaymentMethodBoleto     PaymentMethod = "boleto"
	PaymentMethodPix        PaymentMethod = "pix"
	PaymentMethodOther      PaymentMethod = "other"
)

// OrderItem is a snapshot of the product at purchase time; later catalog
// changes never alter historical orders.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image,omitempty"`
}

type ShippingAddress struct {
	CEP        string `json:"cep"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
}

// PaymentInfo carries the provider-side identifiers and state for an order.
// RawPayload keeps the provider response verbatim for audit; all logic reads
// the typed fields instead.
type PaymentInfo struct {
	PaymentID         string          `json:"payment_id,omitempty"`
	PreferenceID      string          `json:"preference_id,omitempty"`
	Method            PaymentMethod   `json:"method,omitempty"`
	Status            PaymentStatus   `json:"status"`
	PixCode           string          `json:"pix_code,omitempty"`
	QRCodeBase64      string          `json:"qr_code_base64,omitempty"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	RawPayload        json.RawMessage `json:"-"`
	NetReceivedAmount int64           `json:"net_received_amount,omitempty"`
	ProviderFee       int64           `json:"provider_fee,omitempty"`
}

// DefaultShippingCost is one centavo, the store's flat rate.
const DefaultShippingCost int64 = 1

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	UserEmail       string          `json:"user_email"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentInfo     PaymentInfo     `json:"payment_info"`
	Subtotal        int64           `json:"subtotal"`
	ShippingCost    int64           `json:"shipping_cost"`
	Total           int64           `json:"total"`
	Status          OrderStatus     `json:"status"`
	IsStockReduced  bool            `json:"is_stock_reduced"`
	Notes           string          `json:"notes,omitempty"`
	TrackingCode    string          `json:"tracking_code,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	ShippedAt       *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PaymentUpdate is the reconciled outcome of one provider notification.
// An empty OrderStatus leaves the order's lifecycle untouched.
type PaymentUpdate struct {
	PaymentID         string
	PaymentStatus     PaymentStatus
	Method            PaymentMethod
	RawPayload        json.RawMessage
	NetReceivedAmount int64
	ProviderFee       int64
	OrderStatus       OrderStatus
	MarkPaid          bool
}

// ComputeTotals derives subtotal and total from the item snapshot. It runs
// exactly once, at creation: totals are never recalculated after a payment
// request exists for the order.
func (o *Order) ComputeTotals() {
	var subtotal int64
	for _, it := range o.Items {
		subtotal += it.UnitPrice * int64(it.Quantity)
	}
	o.Subtotal = subtotal
	o.Total = subtotal + o.ShippingCost
}

// CentsFromBRL converts a provider-side decimal amount to centavos.
func CentsFromBRL(v float64) int64 {
	return int64(math.Round(v * 100))
}

// BRLFromCents converts centavos to the decimal amount the provider expects.
func BRLFromCents(c int64) float64 {
	return float64(c) / 100
}
