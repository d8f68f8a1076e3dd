package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"campus-mobility/pkg/logger"
)

const defaultProduct = "uberX"

// UberClient queries the Uber price estimates API.
type UberClient struct {
	token   string
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewUberClient builds a client for baseURL (sandbox or production).
func NewUberClient(token, baseURL string) *UberClient {
	return &UberClient{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     logger.Named("uber"),
	}
}

type uberPrice struct {
	DisplayName     string   `json:"display_name"`
	LowEstimate     *float64 `json:"low_estimate"`
	HighEstimate    *float64 `json:"high_estimate"`
	CurrencyCode    string   `json:"currency_code"`
	Duration        int      `json:"duration"`
	Distance        float64  `json:"distance"`
	SurgeMultiplier *float64 `json:"surge_multiplier"`
}

type uberResponse struct {
	Prices []uberPrice `json:"prices"`
}

// Estimate asks for a quote between two points. product selects by display
// name, ignoring case and spaces; the first product is used otherwise.
func (c *UberClient) Estimate(ctx context.Context, origin, dest Point, product string) Result[Estimate] {
	if c.token == "" {
		return Unavailable[Estimate]("Uber pricing is not configured")
	}

	q := url.Values{}
	q.Set("start_latitude", strconv.FormatFloat(origin.lat(), 'f', -1, 64))
	q.Set("start_longitude", strconv.FormatFloat(origin.lng(), 'f', -1, 64))
	q.Set("end_latitude", strconv.FormatFloat(dest.lat(), 'f', -1, 64))
	q.Set("end_longitude", strconv.FormatFloat(dest.lng(), 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1.2/estimates/price?"+q.Encode(), nil)
	if err != nil {
		return Unavailable[Estimate]("Uber pricing is unavailable")
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept-Language", "en_US")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("price request failed", zap.Error(err))
		return Unavailable[Estimate]("Uber pricing is unavailable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("price request rejected", zap.Int("status", resp.StatusCode))
		return Unavailable[Estimate](fmt.Sprintf("Uber pricing returned status %d", resp.StatusCode))
	}

	var body uberResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Warn("price response undecodable", zap.Error(err))
		return Unavailable[Estimate]("Uber pricing returned an unreadable response")
	}
	p, ok := pickProduct(body.Prices, product)
	if !ok {
		return Unavailable[Estimate]("No Uber products available for this trip")
	}
	return Available(formatPrice(p))
}

func pickProduct(prices []uberPrice, product string) (uberPrice, bool) {
	if len(prices) == 0 {
		return uberPrice{}, false
	}
	if product == "" {
		product = defaultProduct
	}
	want := strings.ToLower(product)
	for _, p := range prices {
		if strings.ToLower(strings.ReplaceAll(p.DisplayName, " ", "")) == want {
			return p, true
		}
	}
	return prices[0], true
}

func formatPrice(p uberPrice) Estimate {
	e := Estimate{
		CurrencyCode:      p.CurrencyCode,
		DisplayName:       p.DisplayName,
		Duration:          p.Duration,
		Distance:          p.Distance,
		SurgeMultiplier:   1.0,
		FormattedEstimate: "N/A",
		FormattedRange:    "N/A",
		Source:            "uber_api",
	}
	if e.CurrencyCode == "" {
		e.CurrencyCode = "USD"
	}
	if p.SurgeMultiplier != nil {
		e.SurgeMultiplier = *p.SurgeMultiplier
	}
	if p.LowEstimate != nil {
		e.LowEstimate = *p.LowEstimate
	}
	if p.HighEstimate != nil {
		e.HighEstimate = *p.HighEstimate
	}
	if e.LowEstimate > 0 && e.HighEstimate > 0 {
		e.Estimate = (e.LowEstimate + e.HighEstimate) / 2
		e.FormattedEstimate = fmt.Sprintf("$%.2f", e.Estimate)
		e.FormattedRange = fmt.Sprintf("$%.2f - $%.2f", e.LowEstimate, e.HighEstimate)
	}
	return e
}
