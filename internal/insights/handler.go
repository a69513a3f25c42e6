package insights

import (
	"context"
	"net/http"
	"time"

	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/transport"
)

type EngineAPI interface {
	Summarize(ctx context.Context, period expense.Granularity, now time.Time) (*Summary, error)
}

type Handler struct {
	*transport.BaseHandler
	Engine EngineAPI
}

func NewHandler(baseHandler *transport.BaseHandler, engine EngineAPI) *Handler {
	return &Handler{BaseHandler: baseHandler, Engine: engine}
}

func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	period, err := expense.ParseGranularity(r.URL.Query().Get("period"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	summary, err := h.Engine.Summarize(r.Context(), period, time.Now())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}
