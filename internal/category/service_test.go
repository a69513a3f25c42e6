package category_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/category"
	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"github.com/frahmantamala/dot-spend/internal/expense"
)

func TestCategoryService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Category Service Suite")
}

type memoryExpenses struct {
	items []*expenseDatamodel.Expense
}

func (m *memoryExpenses) Create(e *expenseDatamodel.Expense) error {
	m.items = append(m.items, e)
	return nil
}

func (m *memoryExpenses) CreateBatch(es []*expenseDatamodel.Expense) error {
	m.items = append(m.items, es...)
	return nil
}

func (m *memoryExpenses) GetByID(id string) (*expenseDatamodel.Expense, error) {
	for _, e := range m.items {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, internal.ErrRecordNotFound
}

func (m *memoryExpenses) Update(e *expenseDatamodel.Expense) error { return nil }
func (m *memoryExpenses) Delete(id string) error                  { return nil }

func (m *memoryExpenses) List(f expense.Filter) ([]*expenseDatamodel.Expense, error) {
	return expense.ApplyFilter(m.items, f), nil
}

func (m *memoryExpenses) DeleteAll() (int, error) { return 0, nil }

func newLedger() *expense.Service {
	slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return expense.NewService(&memoryExpenses{}, nil, nil, "USD", slogger)
}

func seed(ledger *expense.Service, category, note string, n int) {
	for i := 0; i < n; i++ {
		_, err := ledger.Add(context.Background(), expense.AddExpenseDTO{
			Amount:   decimal.NewFromInt(10),
			Category: category,
			Note:     note,
		})
		Expect(err).NotTo(HaveOccurred())
	}
}

var _ = Describe("Category Service", func() {
	var (
		ctx     context.Context
		ledger  *expense.Service
		service *category.Service
		slogger *slog.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		ledger = newLedger()
		service = category.NewService(category.DefaultRules(), ledger, slogger)
	})

	DescribeTable("default rules",
		func(description, expected string) {
			Expect(service.Categorize(description, decimal.NewFromInt(10))).To(Equal(category.Result{Category: expected, Source: category.SourceRule}))
		},
		Entry("ride share", "UBER *TRIP 1234", "Transport"),
		Entry("lower case merchant", "whole foods market", "Groceries"),
		Entry("streaming", "Netflix.com", "Entertainment"),
		Entry("coffee", "Blue Bottle Coffee", "Dining"),
		Entry("restaurant", "Joe's Pizza", "Dining"),
	)

	It("falls back to Uncategorized", func() {
		Expect(service.Categorize("ACME HARDWARE", decimal.NewFromInt(10))).To(Equal(category.Result{Category: category.Uncategorized, Source: category.SourceFallback}))
	})

	It("honors amount bounds", func() {
		min := decimal.NewFromInt(100)
		rule, err := category.NewRule("AMAZON", "Electronics", &min, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(rule.Match("amazon mktp", decimal.NewFromInt(250))).To(BeTrue())
		Expect(rule.Match("amazon mktp", decimal.NewFromInt(20))).To(BeFalse())
	})

	It("puts configured rules ahead of the defaults", func() {
		rules, err := category.RulesFromConfig(internal.CategorizeConfig{Rules: []internal.CategoryRuleConfig{
			{Pattern: "amazon", Category: "big purchases", MinAmount: "100"},
		}})
		Expect(err).NotTo(HaveOccurred())
		svc := category.NewService(rules, ledger, slogger)

		Expect(svc.Categorize("AMAZON", decimal.NewFromInt(150)).Category).To(Equal("Big Purchases"))
		Expect(svc.Categorize("AMAZON", decimal.NewFromInt(15)).Category).To(Equal("Shopping"))
	})

	It("rejects an invalid configured pattern", func() {
		_, err := category.RulesFromConfig(internal.CategorizeConfig{Rules: []internal.CategoryRuleConfig{
			{Pattern: "([", Category: "Broken"},
		}})

		Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
	})

	Describe("learning from history", func() {
		It("predicts from notes once trained", func() {
			seed(ledger, "Pets", "vet clinic checkup", 6)
			seed(ledger, "Housing", "monthly rent payment", 6)

			Expect(service.Train(ctx)).To(Succeed())

			Expect(service.Categorize("VET CLINIC", decimal.NewFromInt(80))).To(Equal(category.Result{Category: "Pets", Source: category.SourceModel}))
			Expect(service.Categorize("rent", decimal.NewFromInt(900)).Category).To(Equal("Housing"))
		})

		It("stays rules-only with too little history", func() {
			seed(ledger, "Pets", "vet clinic checkup", 3)
			seed(ledger, "Housing", "monthly rent payment", 3)

			Expect(service.Train(ctx)).To(Succeed())

			Expect(service.Categorize("vet clinic", decimal.NewFromInt(80)).Source).To(Equal(category.SourceFallback))
		})

		It("needs two categories", func() {
			samples := make([]category.Sample, 12)
			for i := range samples {
				samples[i] = category.Sample{Description: "grocery run", Category: "Food"}
			}

			Expect(category.Train(samples)).To(BeNil())
		})
	})

	It("lists categories in use", func() {
		seed(ledger, "travel", "", 1)
		seed(ledger, "Food", "", 2)

		known, err := service.Known(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(known).To(HaveLen(2))
		Expect(known[0].Name).To(Equal("Food"))
		Expect(known[0].Count).To(Equal(2))
		Expect(known[1].Name).To(Equal("Travel"))
	})

	It("tokenizes descriptions into words", func() {
		Expect(category.Tokenize("PEET'S Coffee #1234, SF")).To(Equal([]string{"peet's", "coffee", "sf"}))
	})
})
