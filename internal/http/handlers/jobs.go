package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/repository"
)

type submitJobRequest struct {
	Type      string          `json:"type"`
	CompanyID string          `json:"company_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// SubmitJob accepts a job for async execution and returns 202 with the id to
// poll.
func (api *API) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var request submitJobRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	job, err := api.orchestrator.Submit(
		r.Context(),
		domain.JobType(strings.TrimSpace(request.Type)),
		strings.TrimSpace(request.CompanyID),
		request.Payload,
	)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"type":   string(job.Type),
		"status": string(job.Status),
	})
}

// GetJob is the polling read. It never mutates the job.
func (api *API) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := api.orchestrator.Get(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newJobView(job))
}

func (api *API) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.JobListFilter{
		CompanyID: query.Get("company_id"),
		Type:      domain.JobType(query.Get("type")),
		Status:    domain.JobStatus(query.Get("status")),
		Page:      parseIntOrDefault(query.Get("page"), 1),
		PageSize:  parseIntOrDefault(query.Get("page_size"), 20),
	}

	jobs, total, err := api.orchestrator.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, newJobView(job))
	}
	writeJSON(w, http.StatusOK, pagedResponse{
		Items:    views,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

func parseIntOrDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
