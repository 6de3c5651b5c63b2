package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/signalhq/signal-backend/internal/pipeline"
)

// CreateCompany is the synchronous brand intake endpoint.
func (api *API) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var request pipeline.IntakeRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	company, err := api.intake.Create(r.Context(), request)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCompanyView(company))
}

func (api *API) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	var request pipeline.IntakeRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	company, err := api.intake.Update(r.Context(), chi.URLParam(r, "companyID"), request)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCompanyView(company))
}

func (api *API) GetCompany(w http.ResponseWriter, r *http.Request) {
	company, err := api.records.GetCompany(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCompanyView(company))
}

func (api *API) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := api.records.ListCompanies(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	views := make([]companyView, 0, len(companies))
	for _, company := range companies {
		views = append(views, newCompanyView(company))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views, "total": len(views)})
}
