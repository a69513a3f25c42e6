package expense_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Expense Handler", func() {
	var (
		service *expense.Service
		router  *chi.Mux
	)

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = expense.NewService(newMockExpenseRepository(), nil, nil, "USD", slogger)
		handler := expense.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		router = chi.NewRouter()
		router.Get("/expenses", handler.ListExpenses)
		router.Post("/expenses", handler.CreateExpense)
		router.Get("/expenses/summary", handler.Summary)
		router.Get("/expenses/{id}", handler.GetExpense)
		router.Patch("/expenses/{id}", handler.EditExpense)
		router.Delete("/expenses/{id}", handler.DeleteExpense)
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("creates an expense and lists it", func() {
		w := do(http.MethodPost, "/expenses", `{"amount":"12.50","category":"food","note":"Lunch"}`)
		Expect(w.Code).To(Equal(http.StatusCreated))

		var created expense.Expense
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.Category).To(Equal("Food"))

		w = do(http.MethodGet, "/expenses?category=Food", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var list expense.ListResponse
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Count).To(Equal(1))
		Expect(list.Expenses[0].ID).To(Equal(created.ID))
	})

	It("answers 400 for a non-numeric amount", func() {
		w := do(http.MethodPost, "/expenses", `{"amount":"lots","category":"Food"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("VALIDATION_ERROR"))
	})

	It("answers 404 when deleting an unknown id", func() {
		w := do(http.MethodDelete, "/expenses/nope1234", "")
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("patches only the provided fields", func() {
		created, err := service.Add(context.Background(), expense.AddExpenseDTO{Amount: dec("8"), Category: "Food", Note: "Snack"})
		Expect(err).NotTo(HaveOccurred())

		w := do(http.MethodPatch, "/expenses/"+created.ID, `{"amount":"9.25"}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		var edited expense.Expense
		Expect(json.NewDecoder(w.Body).Decode(&edited)).To(Succeed())
		Expect(edited.Amount.Equal(dec("9.25"))).To(BeTrue())
		Expect(edited.Note).To(Equal("Snack"))
	})

	It("summarizes by category", func() {
		service.Add(context.Background(), expense.AddExpenseDTO{Amount: dec("8"), Category: "Food"})
		service.Add(context.Background(), expense.AddExpenseDTO{Amount: dec("2"), Category: "Food"})

		w := do(http.MethodGet, "/expenses/summary?group_by=category", "")

		Expect(w.Code).To(Equal(http.StatusOK))
		var summary expense.SummaryResponse
		Expect(json.NewDecoder(w.Body).Decode(&summary)).To(Succeed())
		Expect(summary.Buckets).To(HaveLen(1))
		Expect(summary.Buckets[0].Total.Equal(dec("10"))).To(BeTrue())
	})
})
