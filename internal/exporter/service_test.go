package exporter_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/exporter"
	"github.com/frahmantamala/dot-spend/internal/storage/jsonfile"
)

func TestExporter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Exporter Suite")
}

var _ = Describe("Export Service", func() {
	var (
		ctx     context.Context
		dir     string
		ledger  *expense.Service
		service *exporter.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		store, err := jsonfile.Open(filepath.Join(dir, "data"), "USD", slogger)
		Expect(err).NotTo(HaveOccurred())
		ledger = expense.NewService(store.Expenses(), nil, nil, "USD", slogger)
		service = exporter.NewService(ledger, slogger)
		service.SetClock(func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local) })

		for _, e := range []struct {
			amount, category, note string
			day                    int
		}{
			{"12.50", "Food", "Lunch", 1},
			{"30", "Transport", "Train, return", 2},
			{"7.25", "Food", "", 3},
		} {
			date := time.Date(2024, 2, e.day, 12, 0, 0, 0, time.Local)
			_, err := ledger.Add(ctx, expense.AddExpenseDTO{Amount: decimal.RequireFromString(e.amount), Category: e.category, Note: e.note, Date: &date})
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("writes CSV with a header and a TOTAL row", func() {
		var buf bytes.Buffer
		n, err := service.Write(ctx, &buf, exporter.Options{Format: exporter.FormatCSV})

		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(3))
		records, err := csv.NewReader(&buf).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(5))
		Expect(records[0]).To(Equal(exporter.DefaultFields))
		Expect(records[1][1]).To(Equal("2024-02-03"))
		Expect(records[2][3]).To(Equal("Train, return"))
		Expect(records[4][0]).To(Equal("TOTAL"))
		Expect(records[4][2]).To(Equal("Count: 3"))
		Expect(records[4][4]).To(Equal("49.75"))
	})

	It("honours field selection and filters", func() {
		fields, err := exporter.ParseFields("date, amount")
		Expect(err).NotTo(HaveOccurred())

		var buf bytes.Buffer
		_, err = service.Write(ctx, &buf, exporter.Options{
			Format: exporter.FormatCSV,
			Fields: fields,
			Filter: expense.Filter{Category: "food"},
		})

		Expect(err).NotTo(HaveOccurred())
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(Equal([]string{"date,amount", "2024-02-03,7.25", "2024-02-01,12.50", ",19.75"}))
	})

	It("rejects unknown fields", func() {
		_, err := exporter.ParseFields("id,password")
		Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
	})

	It("writes a JSON document", func() {
		var buf bytes.Buffer
		_, err := service.Write(ctx, &buf, exporter.Options{Format: exporter.FormatJSON})
		Expect(err).NotTo(HaveOccurred())

		var doc struct {
			Currency string                   `json:"currency"`
			Count    int                      `json:"count"`
			Total    decimal.Decimal          `json:"total"`
			Expenses []map[string]interface{} `json:"expenses"`
		}
		Expect(json.Unmarshal(buf.Bytes(), &doc)).To(Succeed())
		Expect(doc.Currency).To(Equal("USD"))
		Expect(doc.Count).To(Equal(3))
		Expect(doc.Total.Equal(decimal.RequireFromString("49.75"))).To(BeTrue())
		Expect(doc.Expenses[0]).To(HaveKeyWithValue("category", "Food"))
	})

	It("names the file when given a directory", func() {
		out := filepath.Join(dir, "exports")
		Expect(os.MkdirAll(out, 0o755)).To(Succeed())

		path, n, err := service.ExportFile(ctx, out, exporter.Options{Format: exporter.FormatJSON})

		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(3))
		Expect(path).To(Equal(filepath.Join(out, "expenses_20240301_100000.json")))
		Expect(path).To(BeAnExistingFile())
	})
})
