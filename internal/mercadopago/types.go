package mercadopago

import "encoding/json"

type PreferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type Payer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	Payer             Payer            `json:"payer"`
	BackURLs          BackURLs         `json:"back_urls"`
	AutoReturn        string           `json:"auto_return,omitempty"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url"`
}

type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type Identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type PaymentPayer struct {
	Email          string          `json:"email"`
	FirstName      string          `json:"first_name,omitempty"`
	LastName       string          `json:"last_name,omitempty"`
	Identification *Identification `json:"identification,omitempty"`
}

type PaymentRequest struct {
	TransactionAmount float64      `json:"transaction_amount"`
	Description       string       `json:"description"`
	PaymentMethodID   string       `json:"payment_method_id"`
	Payer             PaymentPayer `json:"payer"`
	ExternalReference string       `json:"external_reference"`
	NotificationURL   string       `json:"notification_url"`
}

type TransactionData struct {
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
}

type PointOfInteraction struct {
	TransactionData TransactionData `json:"transaction_data"`
}

type TransactionDetails struct {
	NetReceivedAmount float64 `json:"net_received_amount"`
}

type FeeDetail struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

// Payment is the narrow typed projection of a provider payment record. Raw
// carries the unmodified response body for audit storage.
type Payment struct {
	ID                 int64               `json:"id"`
	Status             string              `json:"status"`
	StatusDetail       string              `json:"status_detail"`
	ExternalReference  string              `json:"external_reference"`
	PaymentMethodID    string              `json:"payment_method_id"`
	DateOfExpiration   string              `json:"date_of_expiration"`
	PointOfInteraction *PointOfInteraction `json:"point_of_interaction"`
	TransactionDetails *TransactionDetails `json:"transaction_details"`
	FeeDetails         []FeeDetail         `json:"fee_details"`

	Raw json.RawMessage `json:"-"`
}

// TotalFees sums every provider fee line.
func (p *Payment) TotalFees() float64 {
	var sum float64
	for _, f := range p.FeeDetails {
		sum += f.Amount
	}
	return sum
}

type Refund struct {
	ID           int64  `json:"id"`
	Status       string `json:"status"`
	StatusDetail string `json:"status_detail"`
}

type refundRequest struct {
	Amount float64 `json:"amount"`
}

// apiError is the provider's error body shape.
type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Cause   []struct {
		Code        json.Number `json:"code"`
		Description string      `json:"description"`
	} `json:"cause"`
}
