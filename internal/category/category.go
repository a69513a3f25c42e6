package category

import (
	"fmt"
	"regexp"
	"strings"

	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/shopspring/decimal"
)

// Uncategorized is assigned when neither the rules nor the model produce a category.
const Uncategorized = "Uncategorized"

const (
	SourceRule     = "rule"
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// Rule assigns Category to descriptions matching Pattern (case-insensitive) whose amount lies
// within the optional bounds.
type Rule struct {
	Pattern   string           `json:"pattern"`
	Category  string           `json:"category"`
	MinAmount *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`

	re *regexp.Regexp
}

func NewRule(pattern, category string, min, max *decimal.Decimal) (*Rule, error) {
	if strings.TrimSpace(category) == "" {
		return nil, errors.NewValidationFieldError("category", "rule category is required", errors.ErrCodeInvalidConfig)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, errors.NewValidationFieldError("pattern", fmt.Sprintf("invalid rule pattern %q: %v", pattern, err), errors.ErrCodeInvalidConfig)
	}
	return &Rule{Pattern: pattern, Category: category, MinAmount: min, MaxAmount: max, re: re}, nil
}

func (r *Rule) Match(description string, amount decimal.Decimal) bool {
	if r.MinAmount != nil && amount.LessThan(*r.MinAmount) {
		return false
	}
	if r.MaxAmount != nil && amount.GreaterThan(*r.MaxAmount) {
		return false
	}
	return r.re.MatchString(description)
}

// DefaultRules covers common merchants.
func DefaultRules() []*Rule {
	defs := []struct{ pattern, category string }{
		{`UBER|LYFT`, "Transport"},
		{`SAFEWAY|TRADER JOE|WHOLE FOODS`, "Groceries"},
		{`NETFLIX|SPOTIFY|HBO|DISNEY`, "Entertainment"},
		{`AMAZON|EBAY`, "Shopping"},
		{`PG&E|EVERSOURCE|\bSCE\b`, "Utilities"},
		{`STARBUCKS|COFFEE|CAFE|PEET'S`, "Dining"},
		{`RESTAURANT|DINER|PIZZA|BURGER|SUSHI`, "Dining"},
	}
	rules := make([]*Rule, 0, len(defs))
	for _, d := range defs {
		rule, _ := NewRule(d.pattern, d.category, nil, nil)
		rules = append(rules, rule)
	}
	return rules
}

type Result struct {
	Category string `json:"category"`
	Source   string `json:"source"`
}
