package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/ai"
	"github.com/signalhq/signal-backend/internal/cache"
	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/feedback"
	httpserver "github.com/signalhq/signal-backend/internal/http"
	"github.com/signalhq/signal-backend/internal/http/handlers"
	"github.com/signalhq/signal-backend/internal/metrics"
	"github.com/signalhq/signal-backend/internal/orchestrator"
	"github.com/signalhq/signal-backend/internal/pipeline"
	"github.com/signalhq/signal-backend/internal/queue"
	"github.com/signalhq/signal-backend/internal/repository"
)

type integrationRuntime struct {
	server *httptest.Server
	cancel context.CancelFunc
}

// scriptedGenerator returns deterministic, contract-valid output per stage so
// the full pipeline runs without a model provider. Stages listed in fail
// return an error instead.
type scriptedGenerator struct {
	fail map[string]bool
}

func (g *scriptedGenerator) Generate(_ context.Context, request ai.GenerateRequest) (ai.GenerateResult, error) {
	if g.fail[request.Stage] {
		return ai.GenerateResult{}, fmt.Errorf("scripted failure for stage %s", request.Stage)
	}

	var text string
	switch request.Stage {
	case "campaign_concept":
		text = `{"headline": "Prediction markets say AI tooling is about to go mainstream",
"body": "` + strings.Repeat("Developer teams are adopting assistants faster than analysts expected and the market odds keep climbing. ", 4) + `Now is the moment to show how your platform fits that shift.",
"visual_direction": "split-screen chart of adoption odds over time",
"tone": "tone_confident",
"hook": "hook_statistic"}`
	case "distribution_routing":
		text = `{"channel": "linkedin", "reasoning": "The audience skews professional and the concept leans on data."}`
	case "content_strategy":
		text = `{"strategies": [
{"content_type": "blog_post", "reasoning": "Long form carries the data story best.",
 "target_length": 1200, "tone_direction": "confident, analytical",
 "structure_outline": ["The signal", "What it means", "What to do"], "priority_score": 0.85},
{"content_type": "tweet_thread", "reasoning": "Thread distills the numbers for reach.",
 "target_length": 400, "tone_direction": "punchy", "structure_outline": ["Hook", "Data", "CTA"],
 "priority_score": 0.7}]}`
	case "content_piece":
		text = `{"title": "What rising adoption odds mean for your roadmap",
"body": "` + strings.Repeat("The market has moved and the evidence is hard to ignore for any team planning next quarter. ", 14) + `Plan for the shift before your competitors do.",
"summary": "Adoption odds are climbing; here is how to respond.",
"visual_prompt": "line chart of market probability with annotated milestones"}`
	default:
		return ai.GenerateResult{}, fmt.Errorf("unscripted stage %q", request.Stage)
	}

	return ai.GenerateResult{Text: text, ModelID: "scripted-test-model"}, nil
}

func (g *scriptedGenerator) Available() bool { return true }

func startIntegrationRuntime(t *testing.T, generator ai.Generator) integrationRuntime {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	base := logrus.New()
	base.SetOutput(io.Discard)
	logger := base.WithField("service", "integration-test")

	collector := metrics.NewCollector()
	jobsRepo := repository.NewMemoryJobsRepository()
	recordsRepo := repository.NewMemoryRecordsRepository()
	paramsRepo := repository.NewMemoryParamsRepository()
	localQueue := queue.NewLocalQueue(2048, logger)

	if generator == nil {
		generator = &scriptedGenerator{}
	}
	genCache := cache.NewGenerationCache(cache.Config{TTL: 10 * time.Minute, MaxEntries: 500})

	signalStage := pipeline.NewSignalStage(
		recordsRepo, paramsRepo,
		pipeline.NewSeedSignalSource(pipeline.DefaultSeedSignals()),
		logger,
	)
	campaignStage := pipeline.NewCampaignStage(recordsRepo, paramsRepo, generator, logger)
	strategyStage := pipeline.NewStrategyStage(recordsRepo, paramsRepo, generator, logger)
	pieceStage := pipeline.NewPieceStage(recordsRepo, generator, genCache, collector, logger)
	feedbackEngine := feedback.NewEngine(recordsRepo, paramsRepo, feedback.EngineConfig{}, collector, logger)

	coordinator := pipeline.NewCoordinator(
		recordsRepo, signalStage, campaignStage, strategyStage, pieceStage,
		feedbackEngine, logger,
	)

	orchestratorService := orchestrator.NewService(jobsRepo, localQueue, collector, logger)
	intakeService := pipeline.NewIntakeService(recordsRepo, 0.7, logger)

	worker := orchestrator.NewWorker(
		localQueue, jobsRepo, coordinator,
		func(domain.JobType) time.Duration { return 15 * time.Second },
		2, collector, logger,
	)
	go worker.Start(ctx)

	api := handlers.NewAPI(orchestratorService, intakeService, recordsRepo, paramsRepo, logger)
	router := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Collector:      collector,
		Logger:         logger,
		AuthToken:      "",
		CORSOrigins:    []string{"*"},
		RateLimitRPS:   20000,
		RateLimitBurst: 20000,
	})

	server := httptest.NewServer(router)
	return integrationRuntime{
		server: server,
		cancel: func() {
			cancel()
			server.Close()
		},
	}
}

func doJSON(t *testing.T, client *http.Client, method, url string, payload any) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		t.Fatalf("execute request: %v", err)
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(response.Body)
	if len(raw) == 0 {
		return response.StatusCode, map[string]any{}
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode response body (%d): %s", response.StatusCode, string(raw))
	}
	return response.StatusCode, decoded
}

func postJSON(t *testing.T, client *http.Client, url string, payload any) (int, map[string]any) {
	t.Helper()
	return doJSON(t, client, http.MethodPost, url, payload)
}

func getJSON(t *testing.T, client *http.Client, url string) (int, map[string]any) {
	t.Helper()
	return doJSON(t, client, http.MethodGet, url, nil)
}

// waitForJob polls the job until it reaches the wanted terminal status.
// Reaching the other terminal status is a test failure.
func waitForJob(
	t *testing.T,
	client *http.Client,
	baseURL string,
	jobID string,
	want string,
	timeout time.Duration,
) map[string]any {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status, body := getJSON(t, client, fmt.Sprintf("%s/api/jobs/%s", baseURL, jobID))
		if status != http.StatusOK {
			time.Sleep(20 * time.Millisecond)
			continue
		}

		jobStatus, _ := body["status"].(string)
		switch jobStatus {
		case want:
			return body
		case "succeeded", "failed":
			t.Fatalf("job %s reached %s, wanted %s: %+v", jobID, jobStatus, want, body)
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Fatalf("timeout waiting for job %s to reach %s", jobID, want)
	return nil
}

func createTestCompany(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()

	status, body := postJSON(t, client, baseURL+"/api/companies", map[string]any{
		"name":            "Acme Dev Tools",
		"industry":        "developer tools",
		"tone_of_voice":   "confident and direct",
		"target_audience": "engineering leaders at mid-size tech companies",
		"campaign_goals":  "grow awareness of our ai tools platform",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from company intake, got %d body=%+v", status, body)
	}
	companyID, _ := body["id"].(string)
	if strings.TrimSpace(companyID) == "" {
		t.Fatalf("expected company id, got %+v", body)
	}
	return companyID
}

func submitJob(
	t *testing.T,
	client *http.Client,
	baseURL string,
	jobType string,
	companyID string,
	payload map[string]any,
) string {
	t.Helper()

	request := map[string]any{"type": jobType, "company_id": companyID}
	if payload != nil {
		request["payload"] = payload
	}
	status, body := postJSON(t, client, baseURL+"/api/jobs", request)
	if status != http.StatusAccepted {
		t.Fatalf("expected 202 submitting %s, got %d body=%+v", jobType, status, body)
	}
	jobID, _ := body["job_id"].(string)
	if strings.TrimSpace(jobID) == "" {
		t.Fatalf("expected job id submitting %s, got %+v", jobType, body)
	}
	if got, _ := body["status"].(string); got != "queued" {
		t.Fatalf("expected queued status on submit, got %q", got)
	}
	return jobID
}

func TestCampaignLifecycleAndFeedback(t *testing.T) {
	runtime := startIntegrationRuntime(t, nil)
	defer runtime.cancel()

	client := runtime.server.Client()
	baseURL := runtime.server.URL
	companyID := createTestCompany(t, client, baseURL)

	refreshJobID := submitJob(t, client, baseURL, "signal_refresh", companyID, nil)
	refreshJob := waitForJob(t, client, baseURL, refreshJobID, "succeeded", 5*time.Second)
	refreshResult, ok := refreshJob["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected signal refresh result, got %+v", refreshJob)
	}
	signals, ok := refreshResult["signals"].([]any)
	if !ok || len(signals) == 0 {
		t.Fatalf("expected ranked signals in result, got %+v", refreshResult)
	}

	campaignJobID := submitJob(t, client, baseURL, "campaign_generate", companyID, map[string]any{
		"concept_count": 2,
	})
	campaignJob := waitForJob(t, client, baseURL, campaignJobID, "succeeded", 5*time.Second)
	campaignResult, ok := campaignJob["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected campaign result, got %+v", campaignJob)
	}
	campaigns, ok := campaignResult["campaigns"].([]any)
	if !ok || len(campaigns) != 2 {
		t.Fatalf("expected 2 campaign concepts, got %+v", campaignResult)
	}
	firstConcept, _ := campaigns[0].(map[string]any)
	campaignID, _ := firstConcept["campaign_id"].(string)
	if campaignID == "" {
		t.Fatalf("expected campaign id in result item, got %+v", firstConcept)
	}

	getStatus, campaignBody := getJSON(t, client, baseURL+"/api/campaigns/"+campaignID)
	if getStatus != http.StatusOK {
		t.Fatalf("expected 200 reading campaign, got %d body=%+v", getStatus, campaignBody)
	}
	if got, _ := campaignBody["status"].(string); got != "draft" {
		t.Fatalf("expected generated campaign in draft, got %q", got)
	}

	approveStatus, approveBody := postJSON(t, client, baseURL+"/api/campaigns/"+campaignID+"/approve", nil)
	if approveStatus != http.StatusOK {
		t.Fatalf("expected 200 approving campaign, got %d body=%+v", approveStatus, approveBody)
	}
	if got, _ := approveBody["status"].(string); got != "approved" {
		t.Fatalf("expected approved status, got %q", got)
	}

	// Approving twice is a conflict, not an idempotent success.
	repeatStatus, repeatBody := postJSON(t, client, baseURL+"/api/campaigns/"+campaignID+"/approve", nil)
	if repeatStatus != http.StatusConflict {
		t.Fatalf("expected 409 on second approve, got %d body=%+v", repeatStatus, repeatBody)
	}

	metricStatus, metricBody := postJSON(t, client, baseURL+"/api/campaigns/"+campaignID+"/metrics", map[string]any{
		"channel":         "linkedin",
		"impressions":     1200,
		"clicks":          96,
		"engagement_rate": 0.42,
	})
	if metricStatus != http.StatusCreated {
		t.Fatalf("expected 201 appending metric, got %d body=%+v", metricStatus, metricBody)
	}
	if got, _ := metricBody["campaign_status"].(string); got != "posted" {
		t.Fatalf("expected campaign posted after first metric, got %q", got)
	}

	feedbackJobID := submitJob(t, client, baseURL, "feedback_trigger", companyID, nil)
	feedbackJob := waitForJob(t, client, baseURL, feedbackJobID, "succeeded", 5*time.Second)
	feedbackResult, ok := feedbackJob["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected feedback result, got %+v", feedbackJob)
	}
	loops, ok := feedbackResult["loops"].([]any)
	if !ok || len(loops) != 3 {
		t.Fatalf("expected all three loops in feedback result, got %+v", feedbackResult)
	}

	paramsStatus, paramsBody := getJSON(t, client, baseURL+"/api/feedback/parameters/"+companyID)
	if paramsStatus != http.StatusOK {
		t.Fatalf("expected 200 reading parameters, got %d body=%+v", paramsStatus, paramsBody)
	}
	weights, ok := paramsBody["weights"].(map[string]any)
	if !ok || len(weights) == 0 {
		t.Fatalf("expected learned weights, got %+v", paramsBody)
	}
	// The linkedin metric scored 0.42 against the neutral 0.5 starting point,
	// so the smoothed channel weight must have moved below it.
	channelWeight, ok := weights["channel_linkedin"].(float64)
	if !ok {
		t.Fatalf("expected channel_linkedin weight, got %+v", weights)
	}
	if channelWeight >= 0.5 || channelWeight <= 0 {
		t.Fatalf("expected smoothed channel weight in (0, 0.5), got %v", channelWeight)
	}

	// Rerunning the loop finds nothing past the watermark and leaves the
	// weights untouched.
	rerunJobID := submitJob(t, client, baseURL, "feedback_trigger", companyID, map[string]any{
		"loops": []string{"weights"},
	})
	waitForJob(t, client, baseURL, rerunJobID, "succeeded", 5*time.Second)
	_, rerunParams := getJSON(t, client, baseURL+"/api/feedback/parameters/"+companyID)
	rerunWeights, _ := rerunParams["weights"].(map[string]any)
	if got, _ := rerunWeights["channel_linkedin"].(float64); got != channelWeight {
		t.Fatalf("expected idempotent rerun, weight moved from %v to %v", channelWeight, got)
	}
}

func TestStrategyAndPieceProduction(t *testing.T) {
	runtime := startIntegrationRuntime(t, nil)
	defer runtime.cancel()

	client := runtime.server.Client()
	baseURL := runtime.server.URL
	companyID := createTestCompany(t, client, baseURL)

	// campaign_generate without explicit signals runs the refresh itself.
	campaignJobID := submitJob(t, client, baseURL, "campaign_generate", companyID, map[string]any{
		"concept_count": 1,
	})
	campaignJob := waitForJob(t, client, baseURL, campaignJobID, "succeeded", 5*time.Second)
	campaignResult, _ := campaignJob["result"].(map[string]any)
	concepts, _ := campaignResult["campaigns"].([]any)
	if len(concepts) != 1 {
		t.Fatalf("expected single concept, got %+v", campaignResult)
	}
	concept, _ := concepts[0].(map[string]any)
	campaignID, _ := concept["campaign_id"].(string)

	strategyJobID := submitJob(t, client, baseURL, "content_strategy_generate", companyID, map[string]any{
		"campaign_id": campaignID,
	})
	strategyJob := waitForJob(t, client, baseURL, strategyJobID, "succeeded", 5*time.Second)
	strategyResult, _ := strategyJob["result"].(map[string]any)
	strategies, ok := strategyResult["strategies"].([]any)
	if !ok || len(strategies) == 0 {
		t.Fatalf("expected strategy items, got %+v", strategyResult)
	}
	firstStrategy, _ := strategies[0].(map[string]any)
	strategyID, _ := firstStrategy["strategy_id"].(string)
	if strategyID == "" {
		t.Fatalf("expected strategy id, got %+v", firstStrategy)
	}

	pieceJobID := submitJob(t, client, baseURL, "content_piece_generate", companyID, map[string]any{
		"strategy_id": strategyID,
	})
	pieceJob := waitForJob(t, client, baseURL, pieceJobID, "succeeded", 8*time.Second)
	pieceResult, _ := pieceJob["result"].(map[string]any)
	pieceID, _ := pieceResult["piece_id"].(string)
	if pieceID == "" {
		t.Fatalf("expected piece id, got %+v", pieceResult)
	}
	if words, _ := pieceResult["word_count"].(float64); words <= 0 {
		t.Fatalf("expected positive word count, got %+v", pieceResult)
	}
	if score, _ := pieceResult["quality_score"].(float64); score <= 0 {
		t.Fatalf("expected positive quality score, got %+v", pieceResult)
	}

	pieceStatus, pieceBody := getJSON(t, client, baseURL+"/api/pieces/"+pieceID)
	if pieceStatus != http.StatusOK {
		t.Fatalf("expected 200 reading piece, got %d body=%+v", pieceStatus, pieceBody)
	}
	if got, _ := pieceBody["status"].(string); got != "draft" {
		t.Fatalf("expected drafted piece, got %q", got)
	}

	reviewStatus, reviewBody := doJSON(t, client, http.MethodPatch,
		baseURL+"/api/pieces/"+pieceID+"/status", map[string]any{"status": "review"})
	if reviewStatus != http.StatusOK {
		t.Fatalf("expected 200 moving piece to review, got %d body=%+v", reviewStatus, reviewBody)
	}

	// Skipping approved is not allowed; the lifecycle only steps forward.
	skipStatus, skipBody := doJSON(t, client, http.MethodPatch,
		baseURL+"/api/pieces/"+pieceID+"/status", map[string]any{"status": "published"})
	if skipStatus != http.StatusConflict {
		t.Fatalf("expected 409 skipping lifecycle step, got %d body=%+v", skipStatus, skipBody)
	}
}

func TestFeedbackTriggerScopesLoopsAndDefaultsCompany(t *testing.T) {
	runtime := startIntegrationRuntime(t, nil)
	defer runtime.cancel()

	client := runtime.server.Client()
	baseURL := runtime.server.URL
	companyID := createTestCompany(t, client, baseURL)

	// No company_id: the trigger targets the most recently onboarded company.
	status, body := postJSON(t, client, baseURL+"/api/feedback/trigger", map[string]any{
		"weights": true,
	})
	if status != http.StatusAccepted {
		t.Fatalf("expected 202 from feedback trigger, got %d body=%+v", status, body)
	}
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatalf("expected job id, got %+v", body)
	}

	job := waitForJob(t, client, baseURL, jobID, "succeeded", 5*time.Second)
	if got, _ := job["company_id"].(string); got != companyID {
		t.Fatalf("expected trigger to target %s, got %q", companyID, got)
	}
	result, ok := job["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected feedback result, got %+v", job)
	}

	loops, ok := result["loops"].([]any)
	if !ok || len(loops) != 3 {
		t.Fatalf("expected an entry per loop, got %+v", result)
	}
	for _, item := range loops {
		loop, _ := item.(map[string]any)
		name, _ := loop["loop"].(string)
		loopStatus, _ := loop["status"].(string)
		reason, _ := loop["reason"].(string)
		switch name {
		case "weights":
			// No metrics yet, but the loop was requested and ran its check.
			if loopStatus != "skipped" || reason != "no new metrics" {
				t.Fatalf("unexpected weights entry: %+v", loop)
			}
		case "patterns", "calibration":
			if loopStatus != "skipped" || reason != "not requested" {
				t.Fatalf("expected %s marked not requested, got %+v", name, loop)
			}
		default:
			t.Fatalf("unexpected loop entry %+v", loop)
		}
	}

	if summary, _ := result["summary"].(string); summary != "3 skipped" {
		t.Fatalf("unexpected summary %q", result["summary"])
	}
	if _, ok := result["total_latency_ms"].(float64); !ok {
		t.Fatalf("expected total latency in result, got %+v", result)
	}

	// All loop flags disabled is a contradiction, not an all-loops run.
	status, body = postJSON(t, client, baseURL+"/api/feedback/trigger", map[string]any{
		"company_id": companyID,
		"weights":    false,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 when every loop is disabled, got %d body=%+v", status, body)
	}
}

func TestConcurrentCampaignGenerationForOneCompany(t *testing.T) {
	runtime := startIntegrationRuntime(t, nil)
	defer runtime.cancel()

	client := runtime.server.Client()
	baseURL := runtime.server.URL
	companyID := createTestCompany(t, client, baseURL)

	// Two submissions land in the queue back to back; the worker pool picks
	// both up, and the per-company serialization runs them one at a time.
	jobIDs := make([]string, 0, 2)
	for _, conceptCount := range []int{2, 1} {
		status, body := postJSON(t, client, baseURL+"/api/campaigns/generate", map[string]any{
			"company_id":    companyID,
			"concept_count": conceptCount,
		})
		if status != http.StatusAccepted {
			t.Fatalf("expected 202 from campaign generate, got %d body=%+v", status, body)
		}
		jobID, _ := body["job_id"].(string)
		if jobID == "" {
			t.Fatalf("expected job id, got %+v", body)
		}
		jobIDs = append(jobIDs, jobID)
	}

	for _, jobID := range jobIDs {
		waitForJob(t, client, baseURL, jobID, "succeeded", 10*time.Second)
	}

	listStatus, listBody := getJSON(t, client, baseURL+"/api/campaigns?company_id="+companyID)
	if listStatus != http.StatusOK {
		t.Fatalf("expected 200 listing campaigns, got %d body=%+v", listStatus, listBody)
	}
	if total, _ := listBody["total"].(float64); total != 3 {
		t.Fatalf("expected both runs' concepts persisted, got %+v", listBody)
	}
}

func TestValidationNotFoundAndFailedJobs(t *testing.T) {
	runtime := startIntegrationRuntime(t, &scriptedGenerator{
		fail: map[string]bool{"campaign_concept": true},
	})
	defer runtime.cancel()

	client := runtime.server.Client()
	baseURL := runtime.server.URL

	badTypeStatus, badTypeBody := postJSON(t, client, baseURL+"/api/jobs", map[string]any{
		"type":       "sentiment_analysis",
		"company_id": "some-company",
	})
	if badTypeStatus != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown job type, got %d body=%+v", badTypeStatus, badTypeBody)
	}
	envelope, ok := badTypeBody["error"].(map[string]any)
	if !ok || fmt.Sprintf("%v", envelope["code"]) != "validation_error" {
		t.Fatalf("expected validation_error envelope, got %+v", badTypeBody)
	}

	companyID := createTestCompany(t, client, baseURL)

	missingFieldStatus, missingFieldBody := postJSON(t, client, baseURL+"/api/jobs", map[string]any{
		"type":       "content_strategy_generate",
		"company_id": companyID,
		"payload":    map[string]any{},
	})
	if missingFieldStatus != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing campaign_id, got %d body=%+v", missingFieldStatus, missingFieldBody)
	}

	intakeStatus, intakeBody := postJSON(t, client, baseURL+"/api/companies", map[string]any{
		"name": "No Profile Inc",
	})
	if intakeStatus != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete intake, got %d body=%+v", intakeStatus, intakeBody)
	}

	notFoundStatus, notFoundBody := getJSON(t, client, baseURL+"/api/jobs/does-not-exist")
	if notFoundStatus != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d body=%+v", notFoundStatus, notFoundBody)
	}

	// A generation failure surfaces on the job record, never as an HTTP error
	// at submit time.
	failingJobID := submitJob(t, client, baseURL, "campaign_generate", companyID, nil)
	failedJob := waitForJob(t, client, baseURL, failingJobID, "failed", 5*time.Second)
	if _, hasResult := failedJob["result"]; hasResult {
		t.Fatalf("failed job must not carry a result, got %+v", failedJob)
	}
	jobError, ok := failedJob["error"].(map[string]any)
	if !ok || fmt.Sprintf("%v", jobError["message"]) == "" {
		t.Fatalf("expected error detail on failed job, got %+v", failedJob)
	}

	// Nothing was persisted for the failed generation.
	listStatus, listBody := getJSON(t, client, baseURL+"/api/campaigns?company_id="+companyID)
	if listStatus != http.StatusOK {
		t.Fatalf("expected 200 listing campaigns, got %d body=%+v", listStatus, listBody)
	}
	if total, _ := listBody["total"].(float64); total != 0 {
		t.Fatalf("expected no campaigns after failed generation, got %+v", listBody)
	}
}
