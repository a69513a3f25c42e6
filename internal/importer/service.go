package importer

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/category"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/shopspring/decimal"
)

const maxNoteLength = 500

type Ledger interface {
	List(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error)
	ImportBatch(ctx context.Context, dtos []expense.AddExpenseDTO) ([]*expense.Expense, error)
}

type Categorizer interface {
	Categorize(description string, amount decimal.Decimal) category.Result
}

// Entry is a transaction with the category it will be filed under.
type Entry struct {
	Transaction
	Category       string `json:"category"`
	CategorySource string `json:"category_source"`
}

// Expense is the amount recorded in the ledger: always the absolute value.
func (e Entry) Expense() decimal.Decimal {
	return e.Amount.Abs()
}

type Report struct {
	File       string             `json:"file"`
	Format     Format             `json:"format"`
	DryRun     bool               `json:"dry_run"`
	Entries    []Entry            `json:"entries"`
	Duplicates []Entry            `json:"duplicates"`
	Skipped    []Skip             `json:"skipped"`
	Imported   []*expense.Expense `json:"imported,omitempty"`
}

type Service struct {
	ledger      Ledger
	categorizer Categorizer
	cfg         internal.ImportConfig
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(ledger Ledger, categorizer Categorizer, cfg internal.ImportConfig, logger *slog.Logger) *Service {
	return &Service{
		ledger:      ledger,
		categorizer: categorizer,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ImportFile opens path and runs Import with the format taken from opts or the extension.
func (s *Service) ImportFile(ctx context.Context, path string, opts Options) (*Report, error) {
	if opts.Format == "" {
		format, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		opts.Format = format
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, unreadable(filepath.Base(path), err)
	}
	defer f.Close()

	report, err := s.Import(ctx, f, opts)
	if err != nil {
		return nil, err
	}
	report.File = path
	return report, nil
}

// Import parses, categorizes and de-duplicates a statement, then stores the remaining
// entries in one batch. With DryRun nothing is stored.
func (s *Service) Import(ctx context.Context, r io.Reader, opts Options) (*Report, error) {
	if len(opts.DateFormats) == 0 {
		opts.DateFormats = s.cfg.DateFormats
	}

	parsed, err := Parse(r, opts.Format, opts)
	if err != nil {
		s.logger.Warn("statement rejected", "format", opts.Format, "error", err)
		return nil, err
	}

	now := s.now()
	txs := make([]Transaction, 0, len(parsed.Transactions))
	for _, tx := range parsed.Transactions {
		if tx.Date.After(now) {
			if err := parsed.reject(tx.Row, "date "+tx.Date.Format("2006-01-02")+" is in the future", opts); err != nil {
				return nil, err
			}
			continue
		}
		txs = append(txs, tx)
	}

	report := &Report{
		Format:     opts.Format,
		DryRun:     opts.DryRun,
		Entries:    []Entry{},
		Duplicates: []Entry{},
		Skipped:    parsed.Skipped,
	}

	detector, err := s.detector(ctx, txs)
	if err != nil {
		return nil, err
	}

	for _, tx := range txs {
		entry := s.categorize(tx)
		if detector.IsDuplicate(tx.Amount, tx.Description, tx.Date) {
			report.Duplicates = append(report.Duplicates, entry)
			report.Skipped = append(report.Skipped, Skip{Row: tx.Row, Reason: ReasonDuplicate})
			continue
		}
		detector.Remember(tx.Amount, tx.Description, tx.Date)
		report.Entries = append(report.Entries, entry)
	}

	if opts.DryRun || len(report.Entries) == 0 {
		s.logger.Info("import planned", "format", opts.Format, "entries", len(report.Entries), "duplicates", len(report.Duplicates), "skipped", len(report.Skipped))
		return report, nil
	}

	dtos := make([]expense.AddExpenseDTO, len(report.Entries))
	for i, e := range report.Entries {
		date := e.Date
		dtos[i] = expense.AddExpenseDTO{
			Amount:   e.Expense(),
			Currency: e.Currency,
			Category: e.Category,
			Note:     truncate(e.Description, maxNoteLength),
			Date:     &date,
			Source:   expense.SourceImported,
		}
	}

	imported, err := s.ledger.ImportBatch(ctx, dtos)
	if err != nil {
		return nil, err
	}
	report.Imported = imported

	s.logger.Info("import completed", "format", opts.Format, "imported", len(imported), "duplicates", len(report.Duplicates), "skipped", len(report.Skipped))
	return report, nil
}

// detector is seeded with the ledger records that could collide with txs.
func (s *Service) detector(ctx context.Context, txs []Transaction) (*Detector, error) {
	d := NewDetector(s.cfg.DuplicateToleranceDays)
	if len(txs) == 0 {
		return d, nil
	}

	from, to := txs[0].Date, txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date.Before(from) {
			from = tx.Date
		}
		if tx.Date.After(to) {
			to = tx.Date
		}
	}
	from = expense.Day.Start(from).AddDate(0, 0, -(s.cfg.DuplicateToleranceDays + 1))
	to = expense.EndOfDay(to).AddDate(0, 0, s.cfg.DuplicateToleranceDays+1)

	existing, err := s.ledger.List(ctx, expense.Filter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		d.Remember(e.Amount, e.Note, e.Date)
	}
	return d, nil
}

func (s *Service) categorize(tx Transaction) Entry {
	if tx.Category != "" {
		return Entry{Transaction: tx, Category: expense.NormalizeCategory(tx.Category), CategorySource: "file"}
	}
	if s.categorizer == nil {
		return Entry{Transaction: tx, Category: category.Uncategorized, CategorySource: category.SourceFallback}
	}
	result := s.categorizer.Categorize(tx.Description, tx.Amount.Abs())
	return Entry{Transaction: tx, Category: result.Category, CategorySource: result.Source}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
