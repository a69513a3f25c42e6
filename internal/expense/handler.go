package expense

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/dot-spend/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Add(ctx context.Context, dto AddExpenseDTO) (*Expense, error)
	Get(ctx context.Context, id string) (*Expense, error)
	Edit(ctx context.Context, id string, dto EditExpenseDTO) (*Expense, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter Filter) ([]*Expense, error)
	Aggregate(ctx context.Context, filter Filter, groupBy GroupBy, granularity Granularity) ([]Bucket, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

type createExpenseRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Category string `json:"category"`
	Note     string `json:"note"`
	Date     string `json:"date"`
}

type editExpenseRequest struct {
	Amount   *string `json:"amount"`
	Currency *string `json:"currency"`
	Category *string `json:"category"`
	Note     *string `json:"note"`
	Date     *string `json:"date"`
}

type ListResponse struct {
	Expenses []*Expense `json:"expenses"`
	Count    int        `json:"count"`
}

type SummaryResponse struct {
	GroupBy GroupBy  `json:"group_by"`
	Buckets []Bucket `json:"buckets"`
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("CreateExpense: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := ParseAmount(req.Amount)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	dto := AddExpenseDTO{
		Amount:   amount,
		Currency: req.Currency,
		Category: req.Category,
		Note:     req.Note,
	}
	if req.Date != "" {
		date, err := ParseDate(req.Date, time.Now())
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		dto.Date = &date
	}

	exp, err := h.Service.Add(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, exp)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	exp, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) EditExpense(w http.ResponseWriter, r *http.Request) {
	var req editExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("EditExpense: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dto := EditExpenseDTO{
		Currency: req.Currency,
		Category: req.Category,
		Note:     req.Note,
	}
	if req.Amount != nil {
		amount, err := ParseAmount(*req.Amount)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		dto.Amount = &amount
	}
	if req.Date != nil {
		date, err := ParseDate(*req.Date, time.Now())
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		dto.Date = &date
	}

	exp, err := h.Service.Edit(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	expenses, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{Expenses: expenses, Count: len(expenses)})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	filter.LastN = 0

	groupBy := GroupBy(r.URL.Query().Get("group_by"))
	if groupBy == "" {
		groupBy = GroupByCategory
	}
	granularity, err := ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	buckets, err := h.Service.Aggregate(r.Context(), filter, groupBy, granularity)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, SummaryResponse{GroupBy: groupBy, Buckets: buckets})
}

func filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{
		Category: q.Get("category"),
		Source:   q.Get("source"),
	}
	if last := q.Get("last"); last != "" {
		n, err := strconv.Atoi(last)
		if err != nil {
			n = -1
		}
		filter.LastN = n
	}
	now := time.Now()
	if from := q.Get("from"); from != "" {
		t, err := ParseDate(from, now)
		if err != nil {
			return filter, err
		}
		filter.From = &t
	}
	if to := q.Get("to"); to != "" {
		t, err := ParseDate(to, now)
		if err != nil {
			return filter, err
		}
		end := EndOfDay(t)
		filter.To = &end
	}
	return filter, nil
}

// EndOfDay returns the last representable instant of t's day.
func EndOfDay(t time.Time) time.Time {
	return Day.Start(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
