package importer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var amountTolerance = decimal.NewFromFloat(0.01)

type fingerprint struct {
	amount decimal.Decimal
	note   string
	date   time.Time
}

// Detector recognizes transactions already present in the ledger or earlier in the same
// batch: amounts within 0.01, dates within the tolerance in days, and notes where one
// contains the other ignoring case.
type Detector struct {
	tolerance int
	seen      []fingerprint
}

func NewDetector(toleranceDays int) *Detector {
	return &Detector{tolerance: toleranceDays}
}

// Remember adds a known transaction.
func (d *Detector) Remember(amount decimal.Decimal, note string, date time.Time) {
	d.seen = append(d.seen, fingerprint{amount: amount.Abs(), note: strings.ToUpper(strings.TrimSpace(note)), date: date})
}

func (d *Detector) IsDuplicate(amount decimal.Decimal, note string, date time.Time) bool {
	candidate := fingerprint{amount: amount.Abs(), note: strings.ToUpper(strings.TrimSpace(note)), date: date}
	for _, f := range d.seen {
		if f.amount.Sub(candidate.amount).Abs().GreaterThan(amountTolerance) {
			continue
		}
		if !strings.Contains(f.note, candidate.note) && !strings.Contains(candidate.note, f.note) {
			continue
		}
		if daysApart(f.date, candidate.date) <= d.tolerance {
			return true
		}
	}
	return false
}

func daysApart(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}
