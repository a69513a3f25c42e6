package currency_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	apperrors "github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/currency"
)

func TestCurrency(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Currency Suite")
}

var _ = Describe("Currency", func() {
	var (
		ctx       context.Context
		dir       string
		server    *httptest.Server
		requests  int
		status    int
		slogger   *slog.Logger
		converter *currency.Converter
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		requests = 0
		status = http.StatusOK
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			if status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			if r.URL.Path != "/latest/USD" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprint(w, `{"base":"USD","rates":{"USD":1,"EUR":0.5,"GBP":0.25}}`)
		}))
		DeferCleanup(server.Close)

		client := currency.NewClient(server.URL+"/latest/", time.Second, slogger)
		converter = currency.NewConverter(client, dir, "usd", 24*time.Hour, slogger)
	})

	It("fetches and caches rates", func() {
		rates, err := converter.Refresh(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(rates.Base).To(Equal("USD"))
		Expect(filepath.Join(dir, currency.CacheFile)).To(BeAnExistingFile())

		reloaded := currency.NewConverter(nil, dir, "USD", 24*time.Hour, slogger)
		Expect(reloaded.Rates()).NotTo(BeNil())
		Expect(reloaded.Rates().Rates).To(HaveKey("EUR"))
	})

	It("converts from, to and across the base", func() {
		_, err := converter.Refresh(ctx)
		Expect(err).NotTo(HaveOccurred())

		toEUR, err := converter.Convert(decimal.NewFromInt(10), "USD", "EUR")
		Expect(err).NotTo(HaveOccurred())
		Expect(toEUR.Equal(decimal.NewFromInt(5))).To(BeTrue())

		fromEUR, err := converter.Convert(decimal.NewFromInt(10), "EUR", "USD")
		Expect(err).NotTo(HaveOccurred())
		Expect(fromEUR.Equal(decimal.NewFromInt(20))).To(BeTrue())

		cross, err := converter.Convert(decimal.NewFromInt(10), "EUR", "GBP")
		Expect(err).NotTo(HaveOccurred())
		Expect(cross.Equal(decimal.NewFromInt(5))).To(BeTrue())
	})

	It("treats a missing rate as 1.0", func() {
		_, err := converter.Refresh(ctx)
		Expect(err).NotTo(HaveOccurred())

		amount, err := converter.Convert(decimal.NewFromInt(10), "JPY", "USD")

		Expect(err).NotTo(HaveOccurred())
		Expect(amount.Equal(decimal.NewFromInt(10))).To(BeTrue())
	})

	It("rejects codes that are not ISO 4217", func() {
		_, err := converter.Convert(decimal.NewFromInt(10), "XYZW", "USD")

		Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(BeTrue())
	})

	It("reports an unreachable service as an external error", func() {
		status = http.StatusServiceUnavailable

		_, err := converter.Refresh(ctx)

		appErr, ok := apperrors.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(apperrors.ErrCodeRatesUnavailable))
	})

	It("refreshes only stale rates", func() {
		now := time.Now()
		converter.EnsureFresh(ctx, now)
		converter.EnsureFresh(ctx, now)
		Expect(requests).To(Equal(1))

		converter.EnsureFresh(ctx, now.Add(25*time.Hour))
		Expect(requests).To(Equal(2))
	})

	It("keeps the cache when a refresh fails", func() {
		_, err := converter.Refresh(ctx)
		Expect(err).NotTo(HaveOccurred())
		status = http.StatusInternalServerError

		converter.EnsureFresh(ctx, time.Now().Add(48*time.Hour))

		Expect(converter.Rates().Rates).To(HaveKey("GBP"))
	})

	DescribeTable("formats amounts",
		func(amount, code, expected string) {
			Expect(currency.Format(decimal.RequireFromString(amount), code)).To(Equal(expected))
		},
		Entry("dollars", "1234.5", "USD", "$1,234.50"),
		Entry("lower-case code", "12.5", "usd", "$12.50"),
		Entry("unknown code", "3", "ZZZ", "3.00 ZZZ"),
	)

	DescribeTable("validates codes",
		func(code string, valid bool) {
			Expect(currency.ValidCode(code)).To(Equal(valid))
		},
		Entry("USD", "USD", true),
		Entry("lower case", "eur", true),
		Entry("too long", "EURO", false),
		Entry("unknown", "QQQ", false),
	)
})
