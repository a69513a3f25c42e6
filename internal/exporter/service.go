package exporter

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/storage/jsonfile"
	"github.com/shopspring/decimal"
)

type Ledger interface {
	List(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error)
	InBase(e *expense.Expense) (decimal.Decimal, error)
	BaseCurrency() string
}

type Options struct {
	Format    Format
	Fields    []string
	Delimiter rune
	Filter    expense.Filter
}

type Service struct {
	ledger Ledger
	logger *slog.Logger
	now    func() time.Time
}

func NewService(ledger Ledger, logger *slog.Logger) *Service {
	return &Service{ledger: ledger, logger: logger, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Write renders the filtered ledger to w and returns the number of records written.
func (s *Service) Write(ctx context.Context, w io.Writer, opts Options) (int, error) {
	if len(opts.Fields) == 0 {
		opts.Fields = DefaultFields
	}
	expenses, err := s.ledger.List(ctx, opts.Filter)
	if err != nil {
		return 0, err
	}

	total := decimal.Zero
	for _, e := range expenses {
		amount, err := s.ledger.InBase(e)
		if err != nil {
			return 0, err
		}
		total = total.Add(amount)
	}

	switch opts.Format {
	case FormatJSON:
		err = WriteJSON(w, expenses, opts.Fields, s.ledger.BaseCurrency(), total, s.now())
	default:
		err = WriteCSV(w, expenses, opts.Fields, opts.Delimiter, total)
	}
	if err != nil {
		return 0, errors.NewInternalError("failed to render export", err)
	}
	return len(expenses), nil
}

// ExportFile writes the export to path. A directory gets a timestamped file name.
func (s *Service) ExportFile(ctx context.Context, path string, opts Options) (string, int, error) {
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "expenses_"+s.now().Format("20060102_150405")+"."+string(opts.Format))
	}

	var buf bytes.Buffer
	n, err := s.Write(ctx, &buf, opts)
	if err != nil {
		return "", 0, err
	}
	if err := jsonfile.WriteAtomic(path, buf.Bytes()); err != nil {
		s.logger.Error("failed to write export", "error", err, "path", path)
		return "", 0, errors.NewStorageError("failed to write "+filepath.Base(path), errors.ErrCodeStorageWrite, err)
	}

	s.logger.Info("export written", "path", path, "format", opts.Format, "count", n)
	return path, n, nil
}
