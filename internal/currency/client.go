package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/shopspring/decimal"
)

// Client fetches rates from an exchangerate-api compatible endpoint: GET {baseURL}/{BASE}.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

type ratesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (c *Client) Fetch(ctx context.Context, base string) (*Rates, error) {
	base = strings.ToUpper(base)
	url := fmt.Sprintf("%s/%s", c.baseURL, base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewInternalError("failed to build rates request", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fetching exchange rates", "url", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewExternalError("exchange rate service unreachable", errors.ErrCodeRatesUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewExternalError(fmt.Sprintf("exchange rate service answered %d", resp.StatusCode), errors.ErrCodeRatesUnavailable, nil)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.NewExternalError("invalid exchange rate response", errors.ErrCodeRatesUnavailable, err)
	}
	if len(body.Rates) == 0 {
		return nil, errors.NewExternalError("exchange rate response has no rates", errors.ErrCodeRatesUnavailable, nil)
	}
	if body.Base == "" {
		body.Base = base
	}
	return &Rates{Base: strings.ToUpper(body.Base), Rates: body.Rates, FetchedAt: time.Now()}, nil
}
