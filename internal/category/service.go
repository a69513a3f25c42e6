package category

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/shopspring/decimal"
)

// Ledger is the read side used for training and for listing categories.
type Ledger interface {
	List(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error)
	Aggregate(ctx context.Context, filter expense.Filter, groupBy expense.GroupBy, granularity expense.Granularity) ([]expense.Bucket, error)
}

// Service assigns categories to free-text descriptions: ordered rules first, then the
// learned model, then Uncategorized.
type Service struct {
	rules  []*Rule
	ledger Ledger
	logger *slog.Logger

	mu      sync.RWMutex
	learner *Learner
}

func NewService(rules []*Rule, ledger Ledger, logger *slog.Logger) *Service {
	return &Service{
		rules:  rules,
		ledger: ledger,
		logger: logger,
	}
}

// RulesFromConfig compiles the configured rules ahead of the default set.
func RulesFromConfig(cfg internal.CategorizeConfig) ([]*Rule, error) {
	rules := make([]*Rule, 0, len(cfg.Rules))
	for _, rc := range cfg.Rules {
		min, err := optionalDecimal(rc.MinAmount)
		if err != nil {
			return nil, err
		}
		max, err := optionalDecimal(rc.MaxAmount)
		if err != nil {
			return nil, err
		}
		rule, err := NewRule(rc.Pattern, expense.NormalizeCategory(rc.Category), min, max)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return append(rules, DefaultRules()...), nil
}

func optionalDecimal(raw string) (*decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil, internal.NewValidationFieldError("amount", "invalid rule amount "+raw, internal.ErrCodeInvalidConfig)
	}
	return &d, nil
}

// Train fits the model on the notes of the ledger. Too little history leaves the service
// rules-only.
func (s *Service) Train(ctx context.Context) error {
	expenses, err := s.ledger.List(ctx, expense.Filter{})
	if err != nil {
		return err
	}
	samples := make([]Sample, 0, len(expenses))
	for _, e := range expenses {
		if e.Note == "" || e.Category == Uncategorized {
			continue
		}
		samples = append(samples, Sample{Description: e.Note, Category: e.Category})
	}

	learner := Train(samples)
	s.mu.Lock()
	s.learner = learner
	s.mu.Unlock()

	if learner == nil {
		s.logger.Debug("not enough history to train categorizer", "samples", len(samples))
	} else {
		s.logger.Debug("categorizer trained", "samples", len(samples), "categories", len(learner.Categories()))
	}
	return nil
}

func (s *Service) Categorize(description string, amount decimal.Decimal) Result {
	for _, rule := range s.rules {
		if rule.Match(description, amount) {
			return Result{Category: rule.Category, Source: SourceRule}
		}
	}

	s.mu.RLock()
	learner := s.learner
	s.mu.RUnlock()
	if category, ok := learner.Predict(description); ok {
		return Result{Category: category, Source: SourceModel}
	}
	return Result{Category: Uncategorized, Source: SourceFallback}
}

type Summary struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// Known lists every category in use in the ledger, alphabetically.
func (s *Service) Known(ctx context.Context) ([]Summary, error) {
	buckets, err := s.ledger.Aggregate(ctx, expense.Filter{}, expense.GroupByCategory, expense.Month)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, Summary{Name: b.Key, Total: b.Total, Count: b.Count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
