package budget

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/transport"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
)

type ServiceAPI interface {
	Set(category string, limit decimal.Decimal) (*Budget, error)
	Remove(category string) error
	Status(ctx context.Context, now time.Time) ([]Status, error)
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

type setBudgetRequest struct {
	Limit string `json:"limit"`
}

type StatusResponse struct {
	Budgets []Status `json:"budgets"`
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.Service.Status(r.Context(), time.Now())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, StatusResponse{Budgets: statuses})
}

func (h *Handler) SetBudget(w http.ResponseWriter, r *http.Request) {
	var req setBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	limit, err := expense.ParseAmount(req.Limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	b, err := h.Service.Set(chi.URLParam(r, "category"), limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) RemoveBudget(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Remove(chi.URLParam(r, "category")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
