package currency

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	isocurrency "golang.org/x/text/currency"
)

// CacheFile is the document holding the last fetched rates.
const CacheFile = "exchange_rates.json"

// Rates maps currency codes to units per one unit of Base.
type Rates struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"date"`
}

func (r *Rates) Stale(now time.Time, ttl time.Duration) bool {
	return r == nil || r.FetchedAt.IsZero() || now.Sub(r.FetchedAt) > ttl
}

// Codes returns the known currency codes.
func (r *Rates) Codes() []string {
	if r == nil {
		return nil
	}
	codes := make([]string, 0, len(r.Rates))
	for code := range r.Rates {
		codes = append(codes, code)
	}
	return codes
}

// ValidCode reports whether code is an ISO 4217 currency code.
func ValidCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	_, err := isocurrency.ParseISO(strings.ToUpper(code))
	return err == nil
}
