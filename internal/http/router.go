package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/http/handlers"
	"github.com/signalhq/signal-backend/internal/http/middleware"
	"github.com/signalhq/signal-backend/internal/metrics"
)

type RouterDependencies struct {
	API            *handlers.API
	Collector      *metrics.Collector
	Logger         *logrus.Entry
	AuthToken      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps RouterDependencies) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Trace(deps.Logger))
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	}))
	router.Use(middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst))
	router.Use(middleware.Auth(deps.AuthToken))
	if deps.Collector != nil {
		router.Use(deps.Collector.Middleware(func(r *http.Request) string {
			routeContext := chi.RouteContext(r.Context())
			if routeContext == nil {
				return r.URL.Path
			}
			return routeContext.RoutePattern()
		}))
	}

	router.Get("/healthz", deps.API.Health)
	if deps.Collector != nil {
		router.Method(http.MethodGet, "/metrics", deps.Collector.Handler())
	}

	router.Route("/api", func(api chi.Router) {
		api.Route("/jobs", func(r chi.Router) {
			r.Post("/", deps.API.SubmitJob)
			r.Get("/", deps.API.ListJobs)
			r.Get("/{jobID}", deps.API.GetJob)
		})

		api.Route("/companies", func(r chi.Router) {
			r.Post("/", deps.API.CreateCompany)
			r.Get("/", deps.API.ListCompanies)
			r.Get("/{companyID}", deps.API.GetCompany)
			r.Put("/{companyID}", deps.API.UpdateCompany)
		})

		api.Route("/signals", func(r chi.Router) {
			r.Post("/refresh", deps.API.RefreshSignals)
			r.Get("/", deps.API.ListSignals)
			r.Get("/{signalID}", deps.API.GetSignal)
		})

		api.Route("/campaigns", func(r chi.Router) {
			r.Post("/generate", deps.API.GenerateCampaigns)
			r.Get("/", deps.API.ListCampaigns)
			r.Get("/{campaignID}", deps.API.GetCampaign)
			r.Post("/{campaignID}/approve", deps.API.ApproveCampaign)
			r.Post("/{campaignID}/metrics", deps.API.AppendCampaignMetric)
		})

		api.Route("/strategies", func(r chi.Router) {
			r.Get("/", deps.API.ListStrategies)
			r.Get("/{strategyID}", deps.API.GetStrategy)
		})

		api.Route("/pieces", func(r chi.Router) {
			r.Get("/", deps.API.ListPieces)
			r.Get("/{pieceID}", deps.API.GetPiece)
			r.Patch("/{pieceID}/status", deps.API.UpdatePieceStatus)
		})

		api.Route("/content", func(r chi.Router) {
			r.Post("/strategies/generate", deps.API.GenerateStrategy)
			r.Post("/pieces/generate", deps.API.GeneratePiece)
		})

		api.Route("/feedback", func(r chi.Router) {
			r.Post("/trigger", deps.API.TriggerFeedback)
			r.Get("/patterns", deps.API.ListSharedPatterns)
			r.Get("/calibrations", deps.API.ListCalibrations)
			r.Get("/parameters/{companyID}", deps.API.GetParameters)
		})
	})

	return router
}
