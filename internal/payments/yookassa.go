package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "vpn-rent-bot/internal/errors"
)

const defaultYooKassaURL = "https://api.yookassa.ru/v3"

// CardProvider creates and checks card payments via the YooKassa API
type CardProvider struct {
	httpClient *resty.Client
	baseURL    string
	accountID  string
	secretKey  string
	returnURL  string
	logger     *logrus.Logger
}

// NewCardProvider creates a new card payment provider
func NewCardProvider(accountID, secretKey, returnURL string, logger *logrus.Logger) *CardProvider {
	return &CardProvider{
		httpClient: resty.New(),
		baseURL:    defaultYooKassaURL,
		accountID:  accountID,
		secretKey:  secretKey,
		returnURL:  returnURL,
		logger:     logger,
	}
}

type yooAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type yooPaymentResponse struct {
	ID           string `json:"id"`
	Paid         bool   `json:"paid"`
	Confirmation struct {
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
}

// CreatePayment creates a payment and returns the redirect URL and id
func (p *CardProvider) CreatePayment(ctx context.Context, amount int, description string) (*Payment, error) {
	body := map[string]interface{}{
		"amount": yooAmount{Value: fmt.Sprintf("%d.00", amount), Currency: "RUB"},
		"confirmation": map[string]string{
			"type":       "redirect",
			"return_url": p.returnURL,
		},
		"capture":     true,
		"description": description,
	}

	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetBasicAuth(p.accountID, p.secretKey).
		SetHeader("Idempotence-Key", uuid.NewString()).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(p.baseURL + "/payments")
	if err != nil {
		return nil, fmt.Errorf("create payment request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		p.logger.Errorf("Create card payment failed - Status: %d, Response: %s", resp.StatusCode(), string(resp.Body()))
		return nil, &apperrors.PaymentError{Provider: "yookassa", Status: resp.StatusCode(), Message: string(resp.Body())}
	}

	var payment yooPaymentResponse
	if err := json.Unmarshal(resp.Body(), &payment); err != nil {
		return nil, fmt.Errorf("failed to parse payment response: %w", err)
	}

	return &Payment{ID: payment.ID, URL: payment.Confirmation.ConfirmationURL}, nil
}

// IsPaid checks whether the payment with the given id has completed
func (p *CardProvider) IsPaid(ctx context.Context, paymentID string) (bool, error) {
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetBasicAuth(p.accountID, p.secretKey).
		Get(p.baseURL + "/payments/" + paymentID)
	if err != nil {
		return false, fmt.Errorf("payment lookup failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return false, &apperrors.PaymentError{Provider: "yookassa", Status: resp.StatusCode(), Message: string(resp.Body())}
	}

	var payment yooPaymentResponse
	if err := json.Unmarshal(resp.Body(), &payment); err != nil {
		return false, fmt.Errorf("failed to parse payment response: %w", err)
	}

	return payment.Paid, nil
}
