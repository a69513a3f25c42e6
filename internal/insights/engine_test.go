package insights_test

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
	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/insights"
)

func TestInsights(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Insights Suite")
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
	return nil, apperrors.ErrRecordNotFound
}

func (m *memoryExpenses) Update(e *expenseDatamodel.Expense) error { return nil }
func (m *memoryExpenses) Delete(id string) error                  { return nil }

func (m *memoryExpenses) List(f expense.Filter) ([]*expenseDatamodel.Expense, error) {
	return expense.ApplyFilter(m.items, f), nil
}

func (m *memoryExpenses) DeleteAll() (int, error) {
	n := len(m.items)
	m.items = nil
	return n, nil
}

var _ = Describe("Engine", func() {
	var (
		ctx     context.Context
		ledger  *expense.Service
		engine  *insights.Engine
		now     time.Time
		add     func(amount string, category string, date time.Time)
		slogger *slog.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		ledger = expense.NewService(&memoryExpenses{}, nil, nil, "USD", slogger)
		engine = insights.NewEngine(ledger, 6, slogger)
		now = time.Date(2024, time.June, 20, 15, 0, 0, 0, time.Local)
		ledger.SetClock(func() time.Time { return now })

		add = func(amount string, category string, date time.Time) {
			d := date
			_, err := ledger.Add(ctx, expense.AddExpenseDTO{
				Amount:   decimal.RequireFromString(amount),
				Category: category,
				Date:     &d,
			})
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("reports zeros for an empty ledger", func() {
		s, err := engine.Summarize(ctx, expense.Month, now)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Count).To(Equal(0))
		Expect(s.Total.IsZero()).To(BeTrue())
		Expect(s.Trend).To(HaveLen(6))
		Expect(s.Prediction.Amount.IsZero()).To(BeTrue())
		Expect(s.Consistency).To(BeNil())
		Expect(s.BiggestDay).To(BeNil())
	})

	It("summarizes the current month", func() {
		add("30", "Food", time.Date(2024, time.June, 3, 12, 0, 0, 0, time.Local))
		add("10", "Travel", time.Date(2024, time.June, 4, 12, 0, 0, 0, time.Local))
		add("20", "Food", time.Date(2024, time.June, 4, 18, 0, 0, 0, time.Local))
		add("99", "Food", time.Date(2024, time.May, 4, 18, 0, 0, 0, time.Local))

		s, err := engine.Summarize(ctx, expense.Month, now)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Key).To(Equal("2024-06"))
		Expect(s.Count).To(Equal(3))
		Expect(s.Total.Equal(decimal.NewFromInt(60))).To(BeTrue())
		Expect(s.Average.Equal(decimal.NewFromInt(20))).To(BeTrue())
		Expect(s.ActiveDays).To(Equal(2))
		Expect(s.DailyAverage.Equal(decimal.NewFromInt(3))).To(BeTrue())
		Expect(s.Projection).NotTo(BeNil())
		Expect(s.Projection.Equal(decimal.NewFromInt(90))).To(BeTrue())

		Expect(s.TopCategories).To(HaveLen(2))
		Expect(s.TopCategories[0].Category).To(Equal("Food"))
		Expect(s.TopCategories[0].Share.String()).To(Equal("83.3"))

		Expect(s.BiggestDay).NotTo(BeNil())
		Expect(s.BiggestDay.Total.Equal(decimal.NewFromInt(30))).To(BeTrue())
		Expect(s.BusiestWeekday).To(Equal("Tuesday"))
	})

	It("builds a zero-filled trailing trend ending with the current period", func() {
		add("40", "Food", time.Date(2024, time.March, 10, 12, 0, 0, 0, time.Local))
		add("50", "Food", time.Date(2024, time.June, 10, 12, 0, 0, 0, time.Local))

		s, err := engine.Summarize(ctx, expense.Month, now)

		Expect(err).NotTo(HaveOccurred())
		keys := make([]string, len(s.Trend))
		for i, b := range s.Trend {
			keys[i] = b.Key
		}
		Expect(keys).To(Equal([]string{"2024-01", "2024-02", "2024-03", "2024-04", "2024-05", "2024-06"}))
		Expect(s.Trend[2].Total.Equal(decimal.NewFromInt(40))).To(BeTrue())
		Expect(s.Trend[3].Total.IsZero()).To(BeTrue())
	})

	It("extrapolates a linear trend", func() {
		for i, amount := range []string{"10", "20", "30", "40", "50"} {
			add(amount, "Food", time.Date(2024, time.Month(i+1), 15, 12, 0, 0, 0, time.Local))
		}

		s, err := engine.Summarize(ctx, expense.Month, now)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Prediction.Points).To(Equal(5))
		Expect(s.Prediction.Amount.Equal(decimal.NewFromInt(60))).To(BeTrue())
		Expect(s.Prediction.Slope.Equal(decimal.NewFromInt(10))).To(BeTrue())
	})

	It("never predicts negative spending", func() {
		for i, amount := range []string{"50", "40", "30", "20", "1"} {
			add(amount, "Food", time.Date(2024, time.Month(i+1), 15, 12, 0, 0, 0, time.Local))
		}
		add("500", "Food", time.Date(2023, time.December, 15, 12, 0, 0, 0, time.Local))

		s, err := engine.Summarize(ctx, expense.Month, now)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Prediction.Amount.IsNegative()).To(BeFalse())
	})

	It("grades perfectly even spending as A", func() {
		for d := 1; d <= 6; d++ {
			add("10", "Food", time.Date(2024, time.June, d, 12, 0, 0, 0, time.Local))
		}

		s, err := engine.Summarize(ctx, expense.Month, now)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Consistency).NotTo(BeNil())
		Expect(s.Consistency.Score).To(Equal(100.0))
		Expect(s.Consistency.Grade).To(Equal("A"))
	})

	DescribeTable("grades",
		func(score float64, grade string) {
			Expect(insights.Grade(score)).To(Equal(grade))
		},
		Entry("above 80", 81.0, "A"),
		Entry("80 exactly", 80.0, "B"),
		Entry("above 40", 41.0, "C"),
		Entry("low", 10.0, "F"),
	)
})
