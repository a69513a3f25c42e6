package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/shopspring/decimal"
)

type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
	FormatOFX   Format = "ofx"
)

// DefaultDateFormats is used when the configuration does not list any.
var DefaultDateFormats = []string{"2006-01-02", "01/02/2006", "02/01/2006", "2006/01/02", "Jan 2, 2006", "02 Jan 2006", "20060102"}

// DetectFormat picks the parser from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatExcel, nil
	case ".ofx", ".qfx":
		return FormatOFX, nil
	}
	return "", errors.NewImportParseError(fmt.Sprintf("cannot tell the format of %q: pass --format csv, xlsx or ofx", filepath.Base(path)), errors.ErrCodeImportUnreadable)
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatExcel, FormatOFX:
		return f, nil
	case "excel", "xls":
		return FormatExcel, nil
	case "qfx":
		return FormatOFX, nil
	}
	return "", errors.NewValidationFieldError("format", fmt.Sprintf("unknown import format %q", s), errors.ErrCodeValidationFailed)
}

// Transaction is one statement line before it becomes an expense. Amount keeps the sign
// found in the file: negative for debits.
type Transaction struct {
	Row         int             `json:"row"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	Currency    string          `json:"currency,omitempty"`
}

// Skip records a row left out of the import and why.
type Skip struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

const (
	ReasonZero      = "zero amount"
	ReasonCredit    = "credit"
	ReasonDuplicate = "duplicate"
)

type Parsed struct {
	Transactions []Transaction
	Skipped      []Skip
}

// Options tune parsing. Zero values mean auto-detection.
type Options struct {
	Format      Format
	Mapping     Mapping
	DateFormats []string
	Delimiter   rune
	Sheet       string
	Currency    string
	SkipCredits bool
	SkipInvalid bool
	DryRun      bool
}

func (o Options) dateFormats() []string {
	if len(o.DateFormats) == 0 {
		return DefaultDateFormats
	}
	return o.DateFormats
}

// Parse reads a whole statement in the given format.
func Parse(r io.Reader, format Format, opts Options) (*Parsed, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(r, opts)
	case FormatExcel:
		return ParseExcel(r, opts)
	case FormatOFX:
		return ParseOFX(r, opts)
	}
	return nil, errors.NewImportParseError(fmt.Sprintf("unsupported format %q", format), errors.ErrCodeImportUnreadable)
}

// admit applies the sign rules shared by every format; skipped rows are recorded in p.
func (p *Parsed) admit(tx Transaction, opts Options) {
	switch {
	case tx.Amount.IsZero():
		p.Skipped = append(p.Skipped, Skip{Row: tx.Row, Reason: ReasonZero})
		return
	case tx.Amount.IsPositive() && opts.SkipCredits:
		p.Skipped = append(p.Skipped, Skip{Row: tx.Row, Reason: ReasonCredit})
		return
	}
	p.Transactions = append(p.Transactions, tx)
}

// reject either fails the import or records the row as skipped, depending on SkipInvalid.
func (p *Parsed) reject(row int, reason string, opts Options) error {
	if !opts.SkipInvalid {
		return errors.NewImportParseError(fmt.Sprintf("row %d: %s", row, reason), errors.ErrCodeImportRow)
	}
	p.Skipped = append(p.Skipped, Skip{Row: row, Reason: "invalid: " + reason})
	return nil
}

func unreadable(what string, err error) error {
	return errors.NewImportParseError(fmt.Sprintf("cannot read %s: %v", what, err), errors.ErrCodeImportUnreadable).WithCause(err)
}

// parseDate tries every configured layout, then RFC 3339 and a plain timestamp.
func parseDate(raw string, layouts []string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q matches none of the formats %s", raw, strings.Join(layouts, ", "))
}
