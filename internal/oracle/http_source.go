package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPSource reads prices from a JSON endpoint: GET {base}/{feed} returning
// {"price":"123.45"}.
type HTTPSource struct {
	name    string
	baseURL string
	client  *http.Client
}

func NewHTTPSource(name, baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Name() string { return s.name }

func (s *HTTPSource) GetPrice(ctx context.Context, feedID string) (decimal.Decimal, error) {
	endpoint := s.baseURL + "/" + url.PathEscape(feedID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, Unavailable(s.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, Unavailable(s.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return decimal.Zero, Unavailable(s.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, Unavailable(s.name, fmt.Errorf("status %d", resp.StatusCode))
	}

	var payload struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, Unavailable(s.name, fmt.Errorf("parse: %w", err))
	}
	if payload.Price == "" {
		return decimal.Zero, Unavailable(s.name, fmt.Errorf("empty price field"))
	}
	price, err := decimal.NewFromString(payload.Price)
	if err != nil {
		return decimal.Zero, Unavailable(s.name, fmt.Errorf("decimal: %w", err))
	}
	return price, nil
}
