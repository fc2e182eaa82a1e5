// Package mercadopago is a thin typed client for the external payment
// provider: checkout preferences, PIX charges, payment lookups, and refunds.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/viradabrew/storefront/internal/domain"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	timeout     time.Duration
}

// NewClient builds a provider client. httpClient may be nil, in which case a
// default client is used; callers wire an otelhttp transport in production.
func NewClient(baseURL, accessToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  httpClient,
		timeout:     defaultTimeout,
	}
}

func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	var pref Preference
	if _, err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, &pref); err != nil {
		return nil, err
	}
	return &pref, nil
}

func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	var p Payment
	raw, err := c.do(ctx, http.MethodPost, "/v1/payments", req, &p)
	if err != nil {
		return nil, err
	}
	p.Raw = raw
	return &p, nil
}

func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var p Payment
	raw, err := c.do(ctx, http.MethodGet, "/v1/payments/"+id, nil, &p)
	if err != nil {
		return nil, err
	}
	p.Raw = raw
	return &p, nil
}

// CreateRefund refunds amount (decimal BRL) against the given payment.
func (c *Client) CreateRefund(ctx context.Context, paymentID string, amount float64) (*Refund, error) {
	var ref Refund
	path := "/v1/payments/" + paymentID + "/refunds"
	if _, err := c.do(ctx, http.MethodPost, path, refundRequest{Amount: amount}, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// do performs one bounded request. It returns the raw response body so
// callers can keep the provider payload verbatim for audit.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	op := method + " " + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &domain.GatewayError{Op: op, Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &domain.GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.GatewayError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.GatewayError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, gatewayError(op, resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, &domain.GatewayError{
				Op:         op,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("decode response: %w", err),
			}
		}
	}
	return respBody, nil
}

func gatewayError(op string, status int, body []byte) error {
	ge := &domain.GatewayError{Op: op, StatusCode: status}

	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil {
		for _, c := range ae.Cause {
			ge.Causes = append(ge.Causes, domain.GatewayCause{
				Code:        c.Code.String(),
				Description: c.Description,
			})
		}
		if ae.Message != "" {
			ge.Err = fmt.Errorf("%s", ae.Message)
		}
	}
	return ge
}
