package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
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

type scenarioResult struct {
	Name          string   `json:"name"`
	Total         int      `json:"total"`
	Success       int      `json:"success"`
	Errors        int      `json:"errors"`
	P50MS         float64  `json:"p50_ms"`
	P95MS         float64  `json:"p95_ms"`
	P99MS         float64  `json:"p99_ms"`
	MaxMS         float64  `json:"max_ms"`
	ThroughputRPS float64  `json:"throughput_rps"`
	ErrorSamples  []string `json:"error_samples,omitempty"`
}

type cacheResult struct {
	FirstRunCacheHit  bool    `json:"first_run_cache_hit"`
	SecondRunCacheHit bool    `json:"second_run_cache_hit"`
	FirstRunMS        float64 `json:"first_run_ms"`
	SecondRunMS       float64 `json:"second_run_ms"`
}

type runResult struct {
	GeneratedAtUTC string           `json:"generated_at_utc"`
	Environment    string           `json:"environment"`
	Results        []scenarioResult `json:"results"`
	CacheReuse     cacheResult      `json:"cache_reuse"`
	SLOEvaluation  map[string]bool  `json:"slo_evaluation"`
}

type benchmarkEnv struct {
	server *httptest.Server
	cancel context.CancelFunc
}

func main() {
	intakeTotal := flag.Int("intake-total", 200, "total company intake requests")
	intakeConcurrency := flag.Int("intake-concurrency", 20, "concurrency for intake requests")
	submitTotal := flag.Int("submit-total", 300, "total job submit requests")
	submitConcurrency := flag.Int("submit-concurrency", 24, "concurrency for job submit requests")
	pollTotal := flag.Int("poll-total", 400, "total job status polls")
	pollConcurrency := flag.Int("poll-concurrency", 32, "concurrency for job status polls")
	listTotal := flag.Int("list-total", 200, "total campaign list requests")
	listConcurrency := flag.Int("list-concurrency", 20, "concurrency for campaign list requests")
	outputPath := flag.String("output", "", "optional path to persist benchmark results JSON")
	flag.Parse()

	env, err := startBenchmarkEnvironment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start local benchmark environment: %v\n", err)
		os.Exit(1)
	}
	defer env.cancel()
	defer env.server.Close()

	client := &http.Client{Timeout: 15 * time.Second}
	baseURL := env.server.URL

	companyID, err := createCompany(client, baseURL, "Benchmark Seed Co")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed company: %v\n", err)
		os.Exit(1)
	}
	seedJobID, err := runJob(client, baseURL, companyID, "signal_refresh", nil, 20*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed signal refresh: %v\n", err)
		os.Exit(1)
	}

	intakeScenario := runScenario("companies_intake", *intakeTotal, *intakeConcurrency, func(index int) error {
		payload := map[string]any{
			"name":            fmt.Sprintf("Load Co %d", index),
			"industry":        "developer tools",
			"tone_of_voice":   "confident and direct",
			"target_audience": "engineering leaders",
			"campaign_goals":  "grow awareness of our platform",
		}
		return postJSON(client, baseURL+"/api/companies", payload, http.StatusCreated)
	})

	submitScenario := runScenario("jobs_submit", *submitTotal, *submitConcurrency, func(index int) error {
		payload := map[string]any{
			"type":       "signal_refresh",
			"company_id": companyID,
			"payload":    map[string]any{"limit": 5 + index%5},
		}
		return postJSON(client, baseURL+"/api/jobs", payload, http.StatusAccepted)
	})

	pollScenario := runScenario("jobs_poll", *pollTotal, *pollConcurrency, func(int) error {
		return getJSON(client, baseURL+"/api/jobs/"+seedJobID, http.StatusOK)
	})

	listScenario := runScenario("campaigns_list", *listTotal, *listConcurrency, func(index int) error {
		query := fmt.Sprintf("%s/api/campaigns?company_id=%s&page=%d&page_size=20",
			baseURL, companyID, (index%3)+1)
		return getJSON(client, query, http.StatusOK)
	})

	cacheReuse, err := runCacheReuseScenario(client, baseURL, companyID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cache reuse scenario failed: %v\n", err)
	}

	results := []scenarioResult{intakeScenario, submitScenario, pollScenario, listScenario}
	slo := map[string]bool{
		"job_submit_p95_le_250ms":    submitScenario.P95MS <= 250,
		"job_poll_p95_le_100ms":      pollScenario.P95MS <= 100,
		"intake_p95_le_250ms":        intakeScenario.P95MS <= 250,
		"second_piece_run_cache_hit": cacheReuse.SecondRunCacheHit,
	}

	report := runResult{
		GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Environment:    "local-httptest",
		Results:        results,
		CacheReuse:     cacheReuse,
		SLOEvaluation:  slo,
	}

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal benchmark report: %v\n", err)
		os.Exit(1)
	}

	if *outputPath != "" {
		if err := os.WriteFile(*outputPath, encoded, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write output file: %v\n", err)
			os.Exit(1)
		}
	}

	_, _ = fmt.Fprintln(os.Stdout, string(encoded))
}

// benchGenerator serves canned, contract-valid output so the benchmark never
// depends on a model provider.
type benchGenerator struct{}

func (benchGenerator) Generate(_ context.Context, request ai.GenerateRequest) (ai.GenerateResult, error) {
	var text string
	switch request.Stage {
	case "campaign_concept":
		text = `{"headline": "Adoption odds keep climbing for AI tooling",
"body": "` + strings.Repeat("Teams are adopting assistants faster than expected and the market reflects it. ", 6) + `Show how your platform fits that shift.",
"visual_direction": "adoption odds chart", "tone": "tone_confident", "hook": "hook_statistic"}`
	case "distribution_routing":
		text = `{"channel": "linkedin", "reasoning": "Professional audience, data-led concept."}`
	case "content_strategy":
		text = `{"strategies": [{"content_type": "blog_post", "reasoning": "Long form carries the data story.",
"target_length": 1200, "tone_direction": "confident", "structure_outline": ["Signal", "Meaning", "Action"],
"priority_score": 0.8}]}`
	case "content_piece":
		text = `{"title": "What rising adoption odds mean for your roadmap",
"body": "` + strings.Repeat("The market has moved and the evidence matters for any team planning next quarter. ", 16) + `Plan for the shift now.",
"summary": "Adoption odds are climbing; respond early.",
"visual_prompt": "probability line chart"}`
	default:
		return ai.GenerateResult{}, fmt.Errorf("unscripted stage %q", request.Stage)
	}
	return ai.GenerateResult{Text: text, ModelID: "bench-model"}, nil
}

func (benchGenerator) Available() bool { return true }

func startBenchmarkEnvironment() (*benchmarkEnv, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Keep stdout clean for the JSON report.
	base := logrus.New()
	base.SetOutput(io.Discard)
	logger := base.WithField("service", "signal-benchmark")

	collector := metrics.NewCollector()
	jobsRepo := repository.NewMemoryJobsRepository()
	recordsRepo := repository.NewMemoryRecordsRepository()
	paramsRepo := repository.NewMemoryParamsRepository()
	localQueue := queue.NewLocalQueue(4096, logger)

	generator := benchGenerator{}
	genCache := cache.NewGenerationCache(cache.Config{TTL: 10 * time.Minute, MaxEntries: 4000})

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
		func(domain.JobType) time.Duration { return 30 * time.Second },
		4, collector, logger,
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
	return &benchmarkEnv{server: server, cancel: cancel}, nil
}

func createCompany(client *http.Client, baseURL, name string) (string, error) {
	body, err := postJSONBody(client, baseURL+"/api/companies", map[string]any{
		"name":            name,
		"industry":        "developer tools",
		"tone_of_voice":   "confident and direct",
		"target_audience": "engineering leaders",
		"campaign_goals":  "grow awareness of our platform",
	}, http.StatusCreated)
	if err != nil {
		return "", err
	}
	companyID, _ := body["id"].(string)
	if companyID == "" {
		return "", fmt.Errorf("no company id in response: %+v", body)
	}
	return companyID, nil
}

// runJob submits a job and polls it to success, returning the job id.
func runJob(
	client *http.Client,
	baseURL, companyID, jobType string,
	payload map[string]any,
	timeout time.Duration,
) (string, error) {
	request := map[string]any{"type": jobType, "company_id": companyID}
	if payload != nil {
		request["payload"] = payload
	}
	body, err := postJSONBody(client, baseURL+"/api/jobs", request, http.StatusAccepted)
	if err != nil {
		return "", err
	}
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		return "", fmt.Errorf("no job id in response: %+v", body)
	}
	if _, err := awaitJob(client, baseURL, jobID, timeout); err != nil {
		return "", err
	}
	return jobID, nil
}

func awaitJob(client *http.Client, baseURL, jobID string, timeout time.Duration) (map[string]any, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		body, err := getJSONBody(client, baseURL+"/api/jobs/"+jobID, http.StatusOK)
		if err == nil {
			switch status, _ := body["status"].(string); status {
			case "succeeded":
				return body, nil
			case "failed":
				return nil, fmt.Errorf("job %s failed: %+v", jobID, body["error"])
			}
		}
		time.Sleep(25 * time.Millisecond)
	}
	return nil, fmt.Errorf("timeout waiting for job %s", jobID)
}

// runCacheReuseScenario generates the same content piece twice and reports
// whether the second run reused the cached adapter output.
func runCacheReuseScenario(client *http.Client, baseURL, companyID string) (cacheResult, error) {
	campaignBody, err := runJobResult(client, baseURL, companyID, "campaign_generate",
		map[string]any{"concept_count": 1}, 20*time.Second)
	if err != nil {
		return cacheResult{}, err
	}
	campaigns, _ := campaignBody["campaigns"].([]any)
	if len(campaigns) == 0 {
		return cacheResult{}, fmt.Errorf("no campaigns in result")
	}
	concept, _ := campaigns[0].(map[string]any)
	campaignID, _ := concept["campaign_id"].(string)

	strategyBody, err := runJobResult(client, baseURL, companyID, "content_strategy_generate",
		map[string]any{"campaign_id": campaignID}, 20*time.Second)
	if err != nil {
		return cacheResult{}, err
	}
	strategies, _ := strategyBody["strategies"].([]any)
	if len(strategies) == 0 {
		return cacheResult{}, fmt.Errorf("no strategies in result")
	}
	strategy, _ := strategies[0].(map[string]any)
	strategyID, _ := strategy["strategy_id"].(string)

	result := cacheResult{}
	for run := 0; run < 2; run++ {
		started := time.Now()
		pieceBody, err := runJobResult(client, baseURL, companyID, "content_piece_generate",
			map[string]any{"strategy_id": strategyID}, 30*time.Second)
		if err != nil {
			return result, err
		}
		elapsed := round2(float64(time.Since(started).Microseconds()) / 1000.0)
		hit, _ := pieceBody["cache_hit"].(bool)
		if run == 0 {
			result.FirstRunCacheHit = hit
			result.FirstRunMS = elapsed
		} else {
			result.SecondRunCacheHit = hit
			result.SecondRunMS = elapsed
		}
	}
	return result, nil
}

func runJobResult(
	client *http.Client,
	baseURL, companyID, jobType string,
	payload map[string]any,
	timeout time.Duration,
) (map[string]any, error) {
	request := map[string]any{"type": jobType, "company_id": companyID}
	if payload != nil {
		request["payload"] = payload
	}
	body, err := postJSONBody(client, baseURL+"/api/jobs", request, http.StatusAccepted)
	if err != nil {
		return nil, err
	}
	jobID, _ := body["job_id"].(string)
	job, err := awaitJob(client, baseURL, jobID, timeout)
	if err != nil {
		return nil, err
	}
	result, ok := job["result"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("job %s has no result payload", jobID)
	}
	return result, nil
}

func runScenario(
	name string,
	total int,
	concurrency int,
	requestFn func(index int) error,
) scenarioResult {
	if total <= 0 {
		return scenarioResult{Name: name}
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	startedAt := time.Now()
	type sample struct {
		durationMS float64
		err        string
	}

	jobs := make(chan int, total)
	results := make(chan sample, total)
	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				requestStart := time.Now()
				err := requestFn(index)
				s := sample{
					durationMS: float64(time.Since(requestStart).Microseconds()) / 1000.0,
				}
				if err != nil {
					s.err = err.Error()
				}
				results <- s
			}
		}()
	}
	wg.Wait()
	close(results)

	durations := make([]float64, 0, total)
	errorSamples := make([]string, 0, 5)
	success := 0
	errorsCount := 0
	for item := range results {
		durations = append(durations, item.durationMS)
		if item.err == "" {
			success++
			continue
		}
		errorsCount++
		if len(errorSamples) < 5 {
			errorSamples = append(errorSamples, item.err)
		}
	}

	sort.Float64s(durations)
	elapsedSeconds := time.Since(startedAt).Seconds()
	throughput := 0.0
	if elapsedSeconds > 0 {
		throughput = float64(total) / elapsedSeconds
	}

	return scenarioResult{
		Name:          name,
		Total:         total,
		Success:       success,
		Errors:        errorsCount,
		P50MS:         percentile(durations, 0.50),
		P95MS:         percentile(durations, 0.95),
		P99MS:         percentile(durations, 0.99),
		MaxMS:         percentile(durations, 1.00),
		ThroughputRPS: round2(throughput),
		ErrorSamples:  errorSamples,
	}
}

func postJSON(client *http.Client, url string, payload any, expectedStatus int) error {
	_, err := postJSONBody(client, url, payload, expectedStatus)
	return err
}

func postJSONBody(client *http.Client, url string, payload any, expectedStatus int) (map[string]any, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	request, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if response.StatusCode != expectedStatus {
		message := string(raw)
		if len(message) > 1024 {
			message = message[:1024]
		}
		return nil, fmt.Errorf("unexpected status %d (expected %d): %s", response.StatusCode, expectedStatus, message)
	}

	decoded := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return decoded, nil
}

func getJSON(client *http.Client, url string, expectedStatus int) error {
	_, err := getJSONBody(client, url, expectedStatus)
	return err
}

func getJSONBody(client *http.Client, url string, expectedStatus int) (map[string]any, error) {
	request, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if response.StatusCode != expectedStatus {
		message := string(raw)
		if len(message) > 1024 {
			message = message[:1024]
		}
		return nil, fmt.Errorf("unexpected status %d (expected %d): %s", response.StatusCode, expectedStatus, message)
	}

	decoded := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return decoded, nil
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return round2(values[0])
	}
	if p >= 1 {
		return round2(values[len(values)-1])
	}
	rank := int(math.Ceil(float64(len(values))*p)) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(values) {
		rank = len(values) - 1
	}
	return round2(values[rank])
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
