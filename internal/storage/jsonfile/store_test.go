package jsonfile_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	apperrors "github.com/frahmantamala/dot-spend/internal"
	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	recurringDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/recurring"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/storage/jsonfile"
)

func TestJSONFileStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "JSON File Store Suite")
}

func record(id, amount, category string, date time.Time) *expenseDatamodel.Expense {
	return &expenseDatamodel.Expense{
		ID:        id,
		Amount:    decimal.RequireFromString(amount),
		Currency:  "USD",
		Category:  category,
		Date:      date,
		Source:    expenseDatamodel.SourceManual,
		CreatedAt: date,
		UpdatedAt: date,
	}
}

var _ = Describe("JSON file store", func() {
	var (
		dir     string
		store   *jsonfile.Store
		slogger *slog.Logger
	)

	BeforeEach(func() {
		var err error
		dir = GinkgoT().TempDir()
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		store, err = jsonfile.Open(dir, "USD", slogger)
		Expect(err).NotTo(HaveOccurred())
	})

	writeFile := func(name, content string) {
		Expect(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)).To(Succeed())
	}

	Describe("ExpenseRepository", func() {
		var repo *jsonfile.ExpenseRepository

		BeforeEach(func() {
			repo = store.Expenses()
		})

		It("lists nothing when the file does not exist", func() {
			recs, err := repo.List(expense.Filter{})

			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(BeEmpty())
		})

		It("persists records as a JSON array", func() {
			day := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.Local)
			Expect(repo.Create(record("aaaa1111", "12.50", "Food", day))).To(Succeed())

			data, err := os.ReadFile(filepath.Join(dir, jsonfile.ExpensesFile))
			Expect(err).NotTo(HaveOccurred())
			var docs []map[string]interface{}
			Expect(json.Unmarshal(data, &docs)).To(Succeed())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0]["id"]).To(Equal("aaaa1111"))
			Expect(docs[0]["category"]).To(Equal("Food"))

			got, err := repo.GetByID("aaaa1111")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Amount.Equal(decimal.RequireFromString("12.5"))).To(BeTrue())
			Expect(got.Date).To(BeTemporally("==", day))
		})

		It("leaves no temp files behind", func() {
			Expect(repo.Create(record("aaaa1111", "1", "Food", time.Now()))).To(Succeed())
			Expect(repo.Create(record("bbbb2222", "2", "Food", time.Now()))).To(Succeed())

			entries, err := os.ReadDir(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Name()).To(Equal(jsonfile.ExpensesFile))
		})

		It("rejects a duplicate id", func() {
			Expect(repo.Create(record("aaaa1111", "1", "Food", time.Now()))).To(Succeed())

			err := repo.Create(record("aaaa1111", "2", "Food", time.Now()))

			Expect(apperrors.IsType(err, apperrors.ErrorTypeConflict)).To(BeTrue())
		})

		It("updates, deletes and reports missing records", func() {
			rec := record("aaaa1111", "1", "Food", time.Now())
			Expect(repo.Create(rec)).To(Succeed())

			rec.Note = "edited"
			Expect(repo.Update(rec)).To(Succeed())
			got, err := repo.GetByID("aaaa1111")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Note).To(Equal("edited"))

			Expect(repo.Delete("aaaa1111")).To(Succeed())
			Expect(repo.Delete("aaaa1111")).To(MatchError(apperrors.ErrRecordNotFound))
			Expect(repo.Update(rec)).To(MatchError(apperrors.ErrRecordNotFound))
		})

		It("applies filters newest first", func() {
			base := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.Local)
			Expect(repo.CreateBatch([]*expenseDatamodel.Expense{
				record("aaaa1111", "1", "Food", base),
				record("bbbb2222", "2", "Travel", base.AddDate(0, 0, 1)),
				record("cccc3333", "3", "Food", base.AddDate(0, 0, 2)),
			})).To(Succeed())

			recs, err := repo.List(expense.Filter{Category: "food"})

			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(2))
			Expect(recs[0].ID).To(Equal("cccc3333"))
		})

		It("upgrades legacy records on load", func() {
			writeFile(jsonfile.ExpensesFile, `[{"amount": 5.25, "category": "Food", "note": "old", "timestamp": "2023-03-04T10:11:12.123456"}]`)

			recs, err := repo.List(expense.Filter{})

			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].ID).To(HaveLen(expense.IDLength))
			Expect(recs[0].Currency).To(Equal("USD"))
			Expect(recs[0].Source).To(Equal(expenseDatamodel.SourceManual))
			Expect(recs[0].Date.Year()).To(Equal(2023))
			Expect(recs[0].Amount.Equal(decimal.RequireFromString("5.25"))).To(BeTrue())
		})

		It("keeps minted ids stable and writes the upgrade back", func() {
			writeFile(jsonfile.ExpensesFile, `[{"amount": 5, "category": "FOOD", "note": "x", "date": "2024-01-05T12:30:00Z"}]`)

			first, err := repo.List(expense.Filter{})
			Expect(err).NotTo(HaveOccurred())
			second, err := repo.List(expense.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(second[0].ID).To(Equal(first[0].ID))

			data, err := os.ReadFile(filepath.Join(dir, jsonfile.ExpensesFile))
			Expect(err).NotTo(HaveOccurred())
			var docs []map[string]interface{}
			Expect(json.Unmarshal(data, &docs)).To(Succeed())
			Expect(docs[0]["id"]).To(Equal(first[0].ID))
			Expect(docs[0]["currency"]).To(Equal("USD"))

			Expect(repo.Delete(first[0].ID)).To(Succeed())
			recs, err := repo.List(expense.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(BeEmpty())
		})

		DescribeTable("reads records written by earlier releases",
			func(content string, want time.Time) {
				writeFile(jsonfile.ExpensesFile, content)

				recs, err := repo.List(expense.Filter{})

				Expect(err).NotTo(HaveOccurred())
				Expect(recs).To(HaveLen(1))
				Expect(recs[0].ID).To(Equal("ab12cd34"))
				Expect(recs[0].Date).To(BeTemporally("~", want, time.Millisecond))

				data, err := os.ReadFile(filepath.Join(dir, jsonfile.ExpensesFile))
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).NotTo(ContainSubstring("timestamp"))
				again, err := repo.GetByID("ab12cd34")
				Expect(err).NotTo(HaveOccurred())
				Expect(again.Date).To(BeTemporally("~", want, time.Millisecond))
			},
			Entry("unix seconds timestamp",
				`[{"id": "ab12cd34", "amount": 12.5, "category": "Food", "note": "lunch", "date": "2024-01-05 12:30", "timestamp": 1704457800.12}]`,
				time.Unix(1704457800, 120000000)),
			Entry("ISO string timestamp",
				`[{"id": "ab12cd34", "amount": 12.5, "category": "Food", "note": "lunch", "date": "2024-01-05 12:30", "timestamp": "2024-01-05T12:30:45.500000"}]`,
				time.Date(2024, time.January, 5, 12, 30, 45, 500000000, time.Local)),
			Entry("display date alone",
				`[{"id": "ab12cd34", "amount": 12.5, "category": "Food", "note": "lunch", "date": "2024-01-05 12:30"}]`,
				time.Date(2024, time.January, 5, 12, 30, 0, 0, time.Local)),
		)

		DescribeTable("refuses corrupt documents without touching them",
			func(content string) {
				writeFile(jsonfile.ExpensesFile, content)

				_, err := repo.List(expense.Filter{})

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeStorage))
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeStorageCorrupt))

				err = repo.Create(record("aaaa1111", "1", "Food", time.Now()))
				Expect(err).To(HaveOccurred())
				data, readErr := os.ReadFile(filepath.Join(dir, jsonfile.ExpensesFile))
				Expect(readErr).NotTo(HaveOccurred())
				Expect(string(data)).To(Equal(content))
			},
			Entry("invalid JSON", `[{"id": "x",`),
			Entry("object instead of array", `{"id": "x"}`),
			Entry("negative amount", `[{"id":"a","amount":"-1","category":"Food","date":"2024-01-01"}]`),
			Entry("empty category", `[{"id":"a","amount":"1","category":" ","date":"2024-01-01"}]`),
			Entry("bad date", `[{"id":"a","amount":"1","category":"Food","date":"yesterday-ish"}]`),
			Entry("timestamp of the wrong type", `[{"id":"a","amount":"1","category":"Food","timestamp":true}]`),
			Entry("duplicate ids", `[{"id":"a","amount":"1","category":"Food","date":"2024-01-01"},{"id":"a","amount":"2","category":"Food","date":"2024-01-02"}]`),
		)

		It("counts removed records on DeleteAll", func() {
			Expect(repo.CreateBatch([]*expenseDatamodel.Expense{
				record("aaaa1111", "1", "Food", time.Now()),
				record("bbbb2222", "2", "Food", time.Now()),
			})).To(Succeed())

			n, err := repo.DeleteAll()

			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
			recs, err := repo.List(expense.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(BeEmpty())
		})
	})

	Describe("BudgetRepository", func() {
		It("stores budgets as a category to limit object", func() {
			repo := store.Budgets()
			Expect(repo.Upsert(&expenseDatamodel.Budget{Category: "Food", Limit: decimal.NewFromInt(500)})).To(Succeed())
			Expect(repo.Upsert(&expenseDatamodel.Budget{Category: "Food", Limit: decimal.NewFromInt(600)})).To(Succeed())

			data, err := os.ReadFile(filepath.Join(dir, jsonfile.BudgetsFile))
			Expect(err).NotTo(HaveOccurred())
			var doc map[string]decimal.Decimal
			Expect(json.Unmarshal(data, &doc)).To(Succeed())
			Expect(doc).To(HaveLen(1))
			Expect(doc["Food"].Equal(decimal.NewFromInt(600))).To(BeTrue())

			b, err := repo.Get("Food")
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Period).To(Equal(expenseDatamodel.PeriodMonthly))
		})

		It("accepts plain numbers written by hand", func() {
			writeFile(jsonfile.BudgetsFile, `{"Food": 500, "Travel": "120.5"}`)

			budgets, err := store.Budgets().List()

			Expect(err).NotTo(HaveOccurred())
			Expect(budgets).To(HaveLen(2))
		})

		It("reports missing budgets", func() {
			Expect(store.Budgets().Delete("Food")).To(MatchError(apperrors.ErrRecordNotFound))
		})
	})

	Describe("RecurringRepository", func() {
		It("round-trips rules", func() {
			repo := store.Recurring()
			rule := &recurringDatamodel.Rule{
				ID:        "rule0001",
				Amount:    decimal.NewFromInt(15),
				Currency:  "USD",
				Category:  "Subscriptions",
				Frequency: "monthly",
				Day:       31,
				StartDate: time.Date(2024, time.January, 31, 0, 0, 0, 0, time.Local),
				Active:    true,
			}
			Expect(repo.Create(rule)).To(Succeed())

			rule.Active = false
			Expect(repo.Update(rule)).To(Succeed())

			rules, err := repo.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(rules).To(HaveLen(1))
			Expect(rules[0].Active).To(BeFalse())
			Expect(rules[0].Day).To(Equal(31))

			Expect(repo.Delete("rule0001")).To(Succeed())
			_, err = repo.GetByID("rule0001")
			Expect(err).To(MatchError(apperrors.ErrRecordNotFound))
		})
	})

	It("supports the ledger end to end", func() {
		ctx := context.Background()
		ledger := expense.NewService(store.Expenses(), nil, nil, "USD", slogger)

		_, err := ledger.Add(ctx, expense.AddExpenseDTO{Amount: decimal.RequireFromString("12.50"), Category: "Food", Note: "Lunch"})
		Expect(err).NotTo(HaveOccurred())

		reopened, err := jsonfile.Open(dir, "USD", slogger)
		Expect(err).NotTo(HaveOccurred())
		list, err := expense.NewService(reopened.Expenses(), nil, nil, "USD", slogger).List(ctx, expense.Filter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(1))
		Expect(list[0].Amount.Equal(decimal.RequireFromString("12.50"))).To(BeTrue())
		Expect(list[0].Note).To(Equal("Lunch"))
	})
})
