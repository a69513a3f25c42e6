package budget_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	apperrors "github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/budget"
	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"github.com/frahmantamala/dot-spend/internal/expense"
)

func TestBudgetService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Budget Service Suite")
}

type mockBudgetRepository struct {
	budgets map[string]*expenseDatamodel.Budget
}

func (m *mockBudgetRepository) Upsert(b *expenseDatamodel.Budget) error {
	clone := *b
	m.budgets[b.Category] = &clone
	return nil
}

func (m *mockBudgetRepository) Get(category string) (*expenseDatamodel.Budget, error) {
	b, ok := m.budgets[category]
	if !ok {
		return nil, apperrors.ErrRecordNotFound
	}
	return b, nil
}

func (m *mockBudgetRepository) Delete(category string) error {
	if _, ok := m.budgets[category]; !ok {
		return apperrors.ErrRecordNotFound
	}
	delete(m.budgets, category)
	return nil
}

func (m *mockBudgetRepository) List() ([]*expenseDatamodel.Budget, error) {
	out := make([]*expenseDatamodel.Budget, 0, len(m.budgets))
	for _, b := range m.budgets {
		out = append(out, b)
	}
	return out, nil
}

func (m *mockBudgetRepository) DeleteAll() (int, error) {
	n := len(m.budgets)
	m.budgets = map[string]*expenseDatamodel.Budget{}
	return n, nil
}

// in-memory ledger repository shared with the real expense service
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
	return nil, apperrors.ErrRecordNotFound
}
func (m *memoryExpenses) Update(*expenseDatamodel.Expense) error { return nil }
func (m *memoryExpenses) Delete(string) error                    { return nil }
func (m *memoryExpenses) List(f expense.Filter) ([]*expenseDatamodel.Expense, error) {
	return expense.ApplyFilter(m.items, f), nil
}
func (m *memoryExpenses) DeleteAll() (int, error) { return 0, nil }

var _ = Describe("Budget Service", func() {
	var (
		ctx     context.Context
		ledger  *expense.Service
		service *budget.Service
		now     time.Time
	)

	dec := decimal.RequireFromString

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		ledger = expense.NewService(&memoryExpenses{}, nil, nil, "USD", logger)
		service = budget.NewService(&mockBudgetRepository{budgets: map[string]*expenseDatamodel.Budget{}}, ledger, logger)
		now = time.Now()
	})

	It("reports remaining 380 and 24 percent for 120 spent of 500", func() {
		// Given
		_, err := service.Set("Food", dec("500"))
		Expect(err).NotTo(HaveOccurred())
		for _, amount := range []string{"50", "40", "30"} {
			_, err := ledger.Add(ctx, expense.AddExpenseDTO{Amount: dec(amount), Category: "Food"})
			Expect(err).NotTo(HaveOccurred())
		}

		// When
		statuses, err := service.Status(ctx, now)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(statuses).To(HaveLen(1))
		Expect(statuses[0].Spent.Equal(dec("120"))).To(BeTrue())
		Expect(statuses[0].Remaining.Equal(dec("380"))).To(BeTrue())
		Expect(statuses[0].PercentUsed.Equal(dec("24"))).To(BeTrue())
		Expect(statuses[0].Over).To(BeFalse())
	})

	It("reports zero for a category without expenses", func() {
		_, err := service.Set("Travel", dec("200"))
		Expect(err).NotTo(HaveOccurred())

		st, err := service.StatusFor(ctx, "travel", now)

		Expect(err).NotTo(HaveOccurred())
		Expect(st.Spent.IsZero()).To(BeTrue())
		Expect(st.PercentUsed.IsZero()).To(BeTrue())
		Expect(st.Remaining.Equal(dec("200"))).To(BeTrue())
	})

	It("flags an exceeded budget and caps the display percentage", func() {
		service.Set("Food", dec("100"))
		ledger.Add(ctx, expense.AddExpenseDTO{Amount: dec("150"), Category: "food"})

		st, err := service.StatusFor(ctx, "Food", now)

		Expect(err).NotTo(HaveOccurred())
		Expect(st.Over).To(BeTrue())
		Expect(st.PercentUsed.Equal(dec("150"))).To(BeTrue())
		Expect(st.Remaining.Equal(dec("-50"))).To(BeTrue())
		Expect(st.DisplayPercent()).To(Equal(100.0))
	})

	It("ignores spending outside the current month", func() {
		service.Set("Food", dec("100"))
		lastMonth := expense.Month.Start(now).AddDate(0, 0, -3)
		ledger.Add(ctx, expense.AddExpenseDTO{Amount: dec("60"), Category: "Food", Date: &lastMonth})

		st, err := service.StatusFor(ctx, "Food", now)

		Expect(err).NotTo(HaveOccurred())
		Expect(st.Spent.IsZero()).To(BeTrue())
	})

	It("upserts instead of adding a second budget", func() {
		service.Set("Food", dec("100"))
		service.Set("FOOD", dec("250"))

		budgets, err := service.List()

		Expect(err).NotTo(HaveOccurred())
		Expect(budgets).To(HaveLen(1))
		Expect(budgets[0].Limit.Equal(dec("250"))).To(BeTrue())
	})

	It("rejects a non-positive limit", func() {
		_, err := service.Set("Food", decimal.Zero)
		Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(BeTrue())
	})

	It("fails with not found when removing an unknown budget", func() {
		err := service.Remove("Nothing")
		Expect(apperrors.IsType(err, apperrors.ErrorTypeNotFound)).To(BeTrue())
	})
})
