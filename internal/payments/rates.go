package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

const defaultRatesURL = "https://open.er-api.com/v6/latest/USD"

// RateSource resolves the USD exchange rate used to convert RUB prices
// for the crypto provider.
type RateSource struct {
	httpClient *resty.Client
	baseURL    string
}

// NewRateSource creates a new FX rate source
func NewRateSource() *RateSource {
	return &RateSource{
		httpClient: resty.New(),
		baseURL:    defaultRatesURL,
	}
}

// USDToRUB returns how many RUB one USD buys
func (r *RateSource) USDToRUB(ctx context.Context) (float64, error) {
	resp, err := r.httpClient.R().
		SetContext(ctx).
		Get(r.baseURL)
	if err != nil {
		return 0, fmt.Errorf("rate request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("rate request failed with status %d", resp.StatusCode())
	}

	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return 0, fmt.Errorf("failed to parse rate response: %w", err)
	}

	rub, ok := body.Rates["RUB"]
	if !ok || rub <= 0 {
		return 0, fmt.Errorf("RUB rate missing from response")
	}
	return rub, nil
}
