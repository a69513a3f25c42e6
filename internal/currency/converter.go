package currency

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/storage/jsonfile"
	"github.com/shopspring/decimal"
)

type Fetcher interface {
	Fetch(ctx context.Context, base string) (*Rates, error)
}

// Converter converts amounts with cached rates. Rates are loaded lazily from the cache file
// and refreshed from the fetcher on demand.
type Converter struct {
	fetcher Fetcher
	path    string
	base    string
	ttl     time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	rates  *Rates
	loaded bool
}

func NewConverter(fetcher Fetcher, dataDir, base string, ttl time.Duration, logger *slog.Logger) *Converter {
	return &Converter{
		fetcher: fetcher,
		path:    filepath.Join(dataDir, CacheFile),
		base:    strings.ToUpper(base),
		ttl:     ttl,
		logger:  logger,
	}
}

func (c *Converter) load() *Rates {
	if c.loaded {
		return c.rates
	}
	c.loaded = true
	var cached Rates
	found, err := jsonfile.ReadJSON(c.path, &cached)
	if err != nil {
		c.logger.Warn("ignoring unreadable rate cache", "error", err)
		return nil
	}
	if found {
		c.rates = &cached
	}
	return c.rates
}

// Rates returns the cached rates, or nil when nothing was ever fetched.
func (c *Converter) Rates() *Rates {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

// Refresh fetches fresh rates for the base currency and writes them to the cache.
func (c *Converter) Refresh(ctx context.Context) (*Rates, error) {
	rates, err := c.fetcher.Fetch(ctx, c.base)
	if err != nil {
		return nil, err
	}
	if err := jsonfile.WriteJSON(c.path, rates); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.rates, c.loaded = rates, true
	c.mu.Unlock()

	c.logger.Info("exchange rates updated", "base", rates.Base, "currencies", len(rates.Rates))
	return rates, nil
}

// EnsureFresh refreshes stale rates. Failures are logged and the cache stays in use.
func (c *Converter) EnsureFresh(ctx context.Context, now time.Time) {
	if !c.Rates().Stale(now, c.ttl) {
		return
	}
	if _, err := c.Refresh(ctx); err != nil {
		c.logger.Warn("using cached exchange rates", "error", err)
	}
}

// Rate is the number of units of to per one unit of from. Unknown currencies count as 1.0.
func (c *Converter) Rate(from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if !ValidCode(from) || !ValidCode(to) {
		return decimal.Zero, errors.NewValidationFieldError("currency", "unknown currency "+from+"/"+to, errors.ErrCodeInvalidCurrency)
	}

	rates := c.Rates()
	if rates == nil {
		c.logger.Warn("no exchange rates cached, using 1.0", "from", from, "to", to)
		return decimal.NewFromInt(1), nil
	}

	fromRate := c.lookup(rates, from)
	toRate := c.lookup(rates, to)
	return toRate.Div(fromRate), nil
}

func (c *Converter) lookup(rates *Rates, code string) decimal.Decimal {
	if code == rates.Base {
		return decimal.NewFromInt(1)
	}
	if r, ok := rates.Rates[code]; ok && r.IsPositive() {
		return r
	}
	c.logger.Warn("missing exchange rate, using 1.0", "currency", code, "base", rates.Base)
	return decimal.NewFromInt(1)
}

func (c *Converter) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	rate, err := c.Rate(from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate).Round(2), nil
}
