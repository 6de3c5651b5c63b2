package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/repository"
)

// IntakeRequest is the submitted brand profile. Name, industry, tone,
// audience and goals are required; the rest is optional color.
type IntakeRequest struct {
	Name            string   `json:"name"`
	Industry        string   `json:"industry"`
	Website         string   `json:"website,omitempty"`
	ToneOfVoice     string   `json:"tone_of_voice"`
	TargetAudience  string   `json:"target_audience"`
	CampaignGoals   string   `json:"campaign_goals"`
	Competitors     []string `json:"competitors,omitempty"`
	ContentHistory  []string `json:"content_history,omitempty"`
	VisualStyle     string   `json:"visual_style,omitempty"`
	SafetyThreshold float64  `json:"safety_threshold,omitempty"`
}

// IntakeService onboards companies synchronously: validate, enrich with
// defaults and persist. Unlike generation it never queues a job.
type IntakeService struct {
	records          repository.RecordsRepository
	defaultThreshold float64
	logger           *logrus.Entry
}

func NewIntakeService(
	records repository.RecordsRepository,
	defaultThreshold float64,
	logger *logrus.Entry,
) *IntakeService {
	if defaultThreshold <= 0 || defaultThreshold > 1 {
		defaultThreshold = 0.7
	}
	return &IntakeService{records: records, defaultThreshold: defaultThreshold, logger: logger}
}

// Create validates and persists a new company profile. Validation failures
// surface synchronously as a 400.
func (s *IntakeService) Create(ctx context.Context, request IntakeRequest) (*domain.CompanyProfile, error) {
	profile, err := s.buildProfile(request)
	if err != nil {
		return nil, err
	}
	profile.ID = uuid.NewString()
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if err := s.records.CreateCompany(ctx, profile); err != nil {
		return nil, fmt.Errorf("persist company: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"company_id": profile.ID,
		"industry":   profile.Industry,
	}).Info("company onboarded")
	return profile, nil
}

// Update replaces the mutable fields of an existing profile.
func (s *IntakeService) Update(ctx context.Context, companyID string, request IntakeRequest) (*domain.CompanyProfile, error) {
	existing, err := s.records.GetCompany(ctx, companyID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, fmt.Errorf("%w: company %s", domain.ErrNotFound, companyID)
		}
		return nil, fmt.Errorf("load company: %w", err)
	}

	profile, err := s.buildProfile(request)
	if err != nil {
		return nil, err
	}
	profile.ID = existing.ID
	profile.CreatedAt = existing.CreatedAt
	profile.UpdatedAt = time.Now().UTC()

	if err := s.records.UpdateCompany(ctx, profile); err != nil {
		return nil, fmt.Errorf("persist company: %w", err)
	}
	return profile, nil
}

// buildProfile validates required fields and fills enrichment defaults.
func (s *IntakeService) buildProfile(request IntakeRequest) (*domain.CompanyProfile, error) {
	missing := make([]string, 0, 5)
	for field, value := range map[string]string{
		"name":            request.Name,
		"industry":        request.Industry,
		"tone_of_voice":   request.ToneOfVoice,
		"target_audience": request.TargetAudience,
		"campaign_goals":  request.CampaignGoals,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, domain.NewValidationError("missing required fields: %s", strings.Join(missing, ", "))
	}

	threshold := request.SafetyThreshold
	if threshold <= 0 {
		threshold = s.defaultThreshold
	}
	if threshold > 1 {
		return nil, domain.NewValidationError("safety_threshold must be in (0, 1]")
	}

	return &domain.CompanyProfile{
		Name:            strings.TrimSpace(request.Name),
		Industry:        strings.TrimSpace(request.Industry),
		Website:         strings.TrimSpace(request.Website),
		ToneOfVoice:     strings.TrimSpace(request.ToneOfVoice),
		TargetAudience:  strings.TrimSpace(request.TargetAudience),
		CampaignGoals:   strings.TrimSpace(request.CampaignGoals),
		Competitors:     trimAll(request.Competitors),
		ContentHistory:  trimAll(request.ContentHistory),
		VisualStyle:     strings.TrimSpace(request.VisualStyle),
		SafetyThreshold: threshold,
	}, nil
}

func trimAll(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
