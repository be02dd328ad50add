// Package oracle resolves fiat spot prices for display. Prices are
// advisory only and never enter transaction construction.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/etherpouch/etherpouch/internal/log"
)

// ErrUnavailable means the price source could not produce a quote.
var ErrUnavailable = errors.New("price feed unavailable")

// PriceSource quotes the fiat spot price of an asset pair such as
// "ETH-USD".
type PriceSource interface {
	SpotPrice(ctx context.Context, pair string) (decimal.Decimal, error)
}

const (
	defaultBaseURL = "https://api.coinbase.com"
	defaultTimeout = 10 * time.Second
)

// Coinbase fetches spot prices from the Coinbase public price API.
type Coinbase struct {
	baseURL string
	client  *http.Client
}

// NewCoinbase creates a Coinbase price source against the public API.
func NewCoinbase() *Coinbase {
	return NewCoinbaseWithURL(defaultBaseURL)
}

// NewCoinbaseWithURL creates a Coinbase price source against a custom
// endpoint.
func NewCoinbaseWithURL(baseURL string) *Coinbase {
	return &Coinbase{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// spotResponse is the envelope of GET /v2/prices/{pair}/spot.
type spotResponse struct {
	Data struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"data"`
}

// SpotPrice returns the current spot price for pair, for example
// "ETH-USD". Failures map to ErrUnavailable so callers can degrade to a
// priceless display.
func (c *Coinbase) SpotPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/v2/prices/%s/spot", c.baseURL, pair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Oracle.Warn().Err(err).Str("pair", pair).Msg("spot price request failed")
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body spotResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	price, err := decimal.NewFromString(body.Data.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad amount %q", ErrUnavailable, body.Data.Amount)
	}
	return price, nil
}

// FiatValue multiplies an asset amount by the pair's spot price. The
// empty string is returned when the feed is unavailable so callers show
// the amount without a fiat figure.
func FiatValue(ctx context.Context, src PriceSource, pair, amount string) string {
	qty, err := decimal.NewFromString(amount)
	if err != nil {
		return ""
	}
	price, err := src.SpotPrice(ctx, pair)
	if err != nil {
		return ""
	}
	return qty.Mul(price).StringFixed(2)
}
