package storage_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/dot-spend/internal"
	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/storage"
	"github.com/frahmantamala/dot-spend/internal/storage/jsonfile"
)

func TestStorage(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Storage Suite")
}

var _ = Describe("Storage", func() {
	var (
		ctx     context.Context
		cfg     *internal.Config
		slogger *slog.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		cfg = &internal.Config{
			DataDir: GinkgoT().TempDir(),
			Storage: internal.StorageConfig{Backend: internal.BackendJSON, SQLiteFile: "expenses.db"},
			Currency: internal.CurrencyConfig{
				Base: "USD",
			},
		}
	})

	It("opens the JSON backend by default", func() {
		backend, err := storage.New(ctx, cfg, slogger)

		Expect(err).NotTo(HaveOccurred())
		Expect(backend.Kind).To(Equal(internal.BackendJSON))
		Expect(backend.SQL).To(BeNil())
		Expect(backend.Ping(ctx)).To(Succeed())
	})

	It("opens SQLite relative to the data directory", func() {
		cfg.Storage.Backend = internal.BackendSQLite

		backend, err := storage.New(ctx, cfg, slogger)

		Expect(err).NotTo(HaveOccurred())
		defer backend.Close()
		Expect(backend.SQL).NotTo(BeNil())
		Expect(filepath.Join(cfg.DataDir, "expenses.db")).To(BeAnExistingFile())
	})

	It("rejects unknown backends", func() {
		cfg.Storage.Backend = "csv"

		_, err := storage.New(ctx, cfg, slogger)

		Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
	})

	It("moves JSON data into SQLite after a backup", func() {
		src, err := storage.Open(ctx, cfg, internal.BackendJSON, slogger)
		Expect(err).NotTo(HaveOccurred())
		day := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.Local)
		Expect(src.Expenses.Create(&expenseDatamodel.Expense{
			ID: "aaaa1111", Amount: decimal.NewFromInt(5), Currency: "USD", Category: "Food",
			Date: day, Source: expenseDatamodel.SourceManual, CreatedAt: day, UpdatedAt: day,
		})).To(Succeed())
		Expect(src.Budgets.Upsert(&expenseDatamodel.Budget{Category: "Food", Limit: decimal.NewFromInt(500), Period: expenseDatamodel.PeriodMonthly})).To(Succeed())

		backupDir, err := storage.BackupJSON(cfg.DataDir, time.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Join(backupDir, jsonfile.ExpensesFile)).To(BeAnExistingFile())
		Expect(filepath.Join(backupDir, jsonfile.BudgetsFile)).To(BeAnExistingFile())

		dst, err := storage.Open(ctx, cfg, internal.BackendSQLite, slogger)
		Expect(err).NotTo(HaveOccurred())
		defer dst.Close()

		res, err := storage.Transfer(src, dst)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(storage.TransferResult{Expenses: 1, Budgets: 1, Recurring: 0}))

		recs, err := dst.Expenses.List(expense.Filter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(1))
		Expect(recs[0].ID).To(Equal("aaaa1111"))
	})
})
