package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListSharedPatterns exposes the anonymized cross-company aggregates. There is
// never a company id in this payload.
func (api *API) ListSharedPatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := api.params.ListSharedPatterns(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	views := make([]patternView, 0, len(patterns))
	for _, pattern := range patterns {
		views = append(views, newPatternView(pattern))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views, "total": len(views)})
}

func (api *API) ListCalibrations(w http.ResponseWriter, r *http.Request) {
	entries, err := api.params.ListCalibrations(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	views := make([]calibrationView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, newCalibrationView(entry))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views, "total": len(views)})
}

// GetParameters returns one company's adaptive weights.
func (api *API) GetParameters(w http.ResponseWriter, r *http.Request) {
	params, err := api.params.GetParameters(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newParametersView(params))
}
