package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/repository"
)

func (api *API) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	createdAfter, err := parseOptionalDateTime(query.Get("created_after"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "created_after must be RFC3339")
		return
	}

	filter := repository.CampaignListFilter{
		CompanyID: query.Get("company_id"),
		Status:    domain.CampaignStatus(query.Get("status")),
		SignalID:  query.Get("signal_id"),
		Page:      parseIntOrDefault(query.Get("page"), 1),
		PageSize:  parseIntOrDefault(query.Get("page_size"), 20),
	}
	if createdAfter != nil {
		filter.CreatedAfter = createdAfter
	}

	campaigns, total, err := api.records.ListCampaigns(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	views := make([]campaignView, 0, len(campaigns))
	for _, campaign := range campaigns {
		views = append(views, newCampaignView(campaign))
	}
	writeJSON(w, http.StatusOK, pagedResponse{
		Items:    views,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

func (api *API) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := api.records.GetCampaign(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCampaignView(campaign))
}

// ApproveCampaign moves a draft to approved. Any other starting status is a
// conflict.
func (api *API) ApproveCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := api.records.GetCampaign(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if campaign.Status != domain.CampaignStatusDraft {
		writeError(w, r, http.StatusConflict, "invalid_status",
			"only draft campaigns can be approved")
		return
	}

	campaign.Status = domain.CampaignStatusApproved
	campaign.UpdatedAt = time.Now().UTC()
	if err := api.records.UpdateCampaign(r.Context(), campaign); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCampaignView(campaign))
}

type metricRequest struct {
	Channel        string   `json:"channel"`
	Impressions    int64    `json:"impressions"`
	Clicks         int64    `json:"clicks"`
	EngagementRate float64  `json:"engagement_rate,omitempty"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
	RecordedAt     string   `json:"recorded_at,omitempty"`
}

// AppendCampaignMetric ingests one engagement observation and marks the
// campaign posted. Metrics are append-only; nothing is ever updated in place.
func (api *API) AppendCampaignMetric(w http.ResponseWriter, r *http.Request) {
	campaign, err := api.records.GetCampaign(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var request metricRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	channel := domain.Channel(request.Channel)
	if !channel.Valid() {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "unknown channel")
		return
	}
	if request.Impressions < 0 || request.Clicks < 0 ||
		request.EngagementRate < 0 || request.EngagementRate > 1 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "metric values out of range")
		return
	}

	recordedAt := time.Now().UTC()
	if request.RecordedAt != "" {
		parsed, err := parseOptionalDateTime(request.RecordedAt)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "recorded_at must be RFC3339")
			return
		}
		recordedAt = *parsed
	}

	metric := &domain.Metric{
		ID:             uuid.NewString(),
		CampaignID:     campaign.ID,
		CompanyID:      campaign.CompanyID,
		Channel:        channel,
		Impressions:    request.Impressions,
		Clicks:         request.Clicks,
		EngagementRate: request.EngagementRate,
		SentimentScore: request.SentimentScore,
		RecordedAt:     recordedAt,
	}
	if err := api.records.AppendMetric(r.Context(), metric); err != nil {
		writeDomainError(w, r, err)
		return
	}

	// First observed engagement means the campaign is live.
	if campaign.Status == domain.CampaignStatusDraft || campaign.Status == domain.CampaignStatusApproved {
		campaign.Status = domain.CampaignStatusPosted
		campaign.UpdatedAt = time.Now().UTC()
		if err := api.records.UpdateCampaign(r.Context(), campaign); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"metric_id":       metric.ID,
		"campaign_id":     campaign.ID,
		"campaign_status": string(campaign.Status),
	})
}
