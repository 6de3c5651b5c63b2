package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/signalhq/signal-backend/internal/repository"
)

func (api *API) ListSignals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.SignalListFilter{
		CompanyID:   query.Get("company_id"),
		Category:    query.Get("category"),
		IncludeDead: query.Get("include_dead") == "true",
		Limit:       parseIntOrDefault(query.Get("limit"), 20),
	}
	if raw := query.Get("min_score"); raw != "" {
		minScore, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "min_score must be a number")
			return
		}
		filter.MinScore = minScore
	}

	signals, err := api.records.ListSignals(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	views := make([]signalView, 0, len(signals))
	for _, signal := range signals {
		views = append(views, newSignalView(signal, filter.CompanyID))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views, "total": len(views)})
}

func (api *API) GetSignal(w http.ResponseWriter, r *http.Request) {
	signal, err := api.records.GetSignal(r.Context(), chi.URLParam(r, "signalID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSignalView(signal, r.URL.Query().Get("company_id")))
}
