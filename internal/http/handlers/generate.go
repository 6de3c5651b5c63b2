package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/pipeline"
)

// Typed submission endpoints. Each wraps its body into the matching job
// payload and answers 202 like SubmitJob, so clients don't have to build the
// generic jobs envelope.

type signalRefreshRequest struct {
	CompanyID  string   `json:"company_id"`
	Categories []string `json:"categories,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

func (api *API) RefreshSignals(w http.ResponseWriter, r *http.Request) {
	var request signalRefreshRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	api.acceptJob(w, r, domain.JobTypeSignalRefresh, request.CompanyID, pipeline.SignalRefreshPayload{
		Categories: request.Categories,
		Limit:      request.Limit,
	})
}

type campaignGenerateRequest struct {
	CompanyID    string   `json:"company_id"`
	SignalIDs    []string `json:"signal_ids,omitempty"`
	ConceptCount int      `json:"concept_count,omitempty"`
}

func (api *API) GenerateCampaigns(w http.ResponseWriter, r *http.Request) {
	var request campaignGenerateRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	api.acceptJob(w, r, domain.JobTypeCampaignGenerate, request.CompanyID, pipeline.CampaignGeneratePayload{
		SignalIDs:    request.SignalIDs,
		ConceptCount: request.ConceptCount,
	})
}

type strategyGenerateRequest struct {
	CompanyID  string `json:"company_id"`
	CampaignID string `json:"campaign_id"`
	MaxItems   int    `json:"max_items,omitempty"`
}

func (api *API) GenerateStrategy(w http.ResponseWriter, r *http.Request) {
	var request strategyGenerateRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	api.acceptJob(w, r, domain.JobTypeStrategyGenerate, request.CompanyID, pipeline.StrategyGeneratePayload{
		CampaignID: request.CampaignID,
		MaxItems:   request.MaxItems,
	})
}

type pieceGenerateRequest struct {
	CompanyID  string `json:"company_id"`
	StrategyID string `json:"strategy_id"`
}

func (api *API) GeneratePiece(w http.ResponseWriter, r *http.Request) {
	var request pieceGenerateRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	api.acceptJob(w, r, domain.JobTypePieceGenerate, request.CompanyID, pipeline.PieceGeneratePayload{
		StrategyID: request.StrategyID,
	})
}

// feedbackTriggerRequest scopes a feedback run. Loop flags left unset mean
// all loops; company_id left empty targets the most recently onboarded
// company.
type feedbackTriggerRequest struct {
	CompanyID   string `json:"company_id,omitempty"`
	Weights     *bool  `json:"weights,omitempty"`
	Patterns    *bool  `json:"patterns,omitempty"`
	Calibration *bool  `json:"calibration,omitempty"`
}

func (api *API) TriggerFeedback(w http.ResponseWriter, r *http.Request) {
	var request feedbackTriggerRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	companyID := strings.TrimSpace(request.CompanyID)
	if companyID == "" {
		companies, err := api.records.ListCompanies(r.Context())
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if len(companies) == 0 {
			writeError(w, r, http.StatusNotFound, "not_found", "no companies to run feedback for")
			return
		}
		companyID = companies[len(companies)-1].ID
	}

	scoped := request.Weights != nil || request.Patterns != nil || request.Calibration != nil
	loops := make([]string, 0, 3)
	if request.Weights != nil && *request.Weights {
		loops = append(loops, "weights")
	}
	if request.Patterns != nil && *request.Patterns {
		loops = append(loops, "patterns")
	}
	if request.Calibration != nil && *request.Calibration {
		loops = append(loops, "calibration")
	}
	if scoped && len(loops) == 0 {
		writeError(w, r, http.StatusBadRequest, "validation_error", "at least one feedback loop must be enabled")
		return
	}

	api.acceptJob(w, r, domain.JobTypeFeedbackTrigger, companyID, pipeline.FeedbackTriggerPayload{Loops: loops})
}

func (api *API) acceptJob(w http.ResponseWriter, r *http.Request, jobType domain.JobType, companyID string, payload any) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	job, err := api.orchestrator.Submit(r.Context(), jobType, strings.TrimSpace(companyID), encoded)
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
