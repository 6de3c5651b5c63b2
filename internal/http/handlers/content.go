package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/repository"
)

func (api *API) ListStrategies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	strategies, err := api.records.ListStrategies(r.Context(), repository.StrategyListFilter{
		CompanyID:  query.Get("company_id"),
		CampaignID: query.Get("campaign_id"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	views := make([]strategyView, 0, len(strategies))
	for _, strategy := range strategies {
		views = append(views, newStrategyView(strategy))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views, "total": len(views)})
}

func (api *API) GetStrategy(w http.ResponseWriter, r *http.Request) {
	strategy, err := api.records.GetStrategy(r.Context(), chi.URLParam(r, "strategyID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStrategyView(strategy))
}

func (api *API) ListPieces(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.PieceListFilter{
		CompanyID:  query.Get("company_id"),
		StrategyID: query.Get("strategy_id"),
		Status:     domain.PieceStatus(query.Get("status")),
		Page:       parseIntOrDefault(query.Get("page"), 1),
		PageSize:   parseIntOrDefault(query.Get("page_size"), 20),
	}

	pieces, total, err := api.records.ListPieces(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	views := make([]pieceView, 0, len(pieces))
	for _, piece := range pieces {
		views = append(views, newPieceView(piece))
	}
	writeJSON(w, http.StatusOK, pagedResponse{
		Items:    views,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

func (api *API) GetPiece(w http.ResponseWriter, r *http.Request) {
	piece, err := api.records.GetPiece(r.Context(), chi.URLParam(r, "pieceID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPieceView(piece))
}

type pieceStatusRequest struct {
	Status string `json:"status"`
}

// UpdatePieceStatus advances the piece lifecycle one forward step:
// draft -> review -> approved -> published.
func (api *API) UpdatePieceStatus(w http.ResponseWriter, r *http.Request) {
	piece, err := api.records.GetPiece(r.Context(), chi.URLParam(r, "pieceID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var request pieceStatusRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	target := domain.PieceStatus(strings.TrimSpace(request.Status))
	if !piece.Status.CanTransition(target) {
		writeError(w, r, http.StatusConflict, "invalid_status",
			"piece cannot move from "+string(piece.Status)+" to "+string(target))
		return
	}

	piece.Status = target
	piece.UpdatedAt = time.Now().UTC()
	if err := api.records.UpdatePiece(r.Context(), piece); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPieceView(piece))
}
