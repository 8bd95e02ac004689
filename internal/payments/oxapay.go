package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	apperrors "vpn-rent-bot/internal/errors"
)

const defaultOxaPayURL = "https://api.oxapay.com/v1"

// CryptoProvider creates and checks crypto invoices via the OxaPay API.
// Amounts are taken in RUB and converted to USD through the rate source.
type CryptoProvider struct {
	httpClient *resty.Client
	baseURL    string
	apiKey     string
	rates      *RateSource
	logger     *logrus.Logger
}

// NewCryptoProvider creates a new crypto payment provider
func NewCryptoProvider(apiKey string, rates *RateSource, logger *logrus.Logger) *CryptoProvider {
	return &CryptoProvider{
		httpClient: resty.New(),
		baseURL:    defaultOxaPayURL,
		apiKey:     apiKey,
		rates:      rates,
		logger:     logger,
	}
}

type oxaInvoiceResponse struct {
	Status int `json:"status"`
	Data   struct {
		PaymentURL string `json:"payment_url"`
		TrackID    string `json:"track_id"`
		PayStatus  string `json:"status"`
	} `json:"data"`
}

// CreateInvoice creates an invoice for the given RUB amount
func (p *CryptoProvider) CreateInvoice(ctx context.Context, amountRUB int) (*Payment, error) {
	rate, err := p.rates.USDToRUB(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve exchange rate: %w", err)
	}
	amountUSD := math.Round(float64(amountRUB)/rate*100) / 100

	return p.createInvoice(ctx, amountUSD, false)
}

func (p *CryptoProvider) createInvoice(ctx context.Context, amountUSD float64, retried bool) (*Payment, error) {
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetHeader("merchant_api_key", p.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"amount":        amountUSD,
			"mixed_payment": false,
		}).
		Post(p.baseURL + "/payment/invoice")
	if err != nil {
		return nil, fmt.Errorf("create invoice request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		p.logger.Errorf("Create invoice failed - Status: %d, Response: %s", resp.StatusCode(), string(resp.Body()))
		return nil, &apperrors.PaymentError{Provider: "oxapay", Status: resp.StatusCode(), Message: string(resp.Body())}
	}

	var invoice oxaInvoiceResponse
	if err := json.Unmarshal(resp.Body(), &invoice); err != nil {
		return nil, fmt.Errorf("failed to parse invoice response: %w", err)
	}

	// The provider signals rate limiting in the body with HTTP 200
	if invoice.Status == http.StatusTooManyRequests {
		if retried {
			return nil, &apperrors.PaymentError{Provider: "oxapay", Status: invoice.Status, Message: "rate limited"}
		}
		return p.createInvoice(ctx, amountUSD, true)
	}

	return &Payment{ID: invoice.Data.TrackID, URL: invoice.Data.PaymentURL}, nil
}

// IsPaid checks whether the invoice with the given track id has been paid
func (p *CryptoProvider) IsPaid(ctx context.Context, trackID string) (bool, error) {
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetHeader("merchant_api_key", p.apiKey).
		Get(p.baseURL + "/payment/" + trackID)
	if err != nil {
		return false, fmt.Errorf("invoice lookup failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return false, &apperrors.PaymentError{Provider: "oxapay", Status: resp.StatusCode(), Message: string(resp.Body())}
	}

	var invoice oxaInvoiceResponse
	if err := json.Unmarshal(resp.Body(), &invoice); err != nil {
		return false, fmt.Errorf("failed to parse invoice response: %w", err)
	}

	return invoice.Data.PayStatus == "paid", nil
}
