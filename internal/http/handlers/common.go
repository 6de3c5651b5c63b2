package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/http/middleware"
	"github.com/signalhq/signal-backend/internal/orchestrator"
	"github.com/signalhq/signal-backend/internal/pipeline"
	"github.com/signalhq/signal-backend/internal/repository"
)

var errInvalidPayload = errors.New("invalid payload")

// API bundles the handler dependencies. One instance serves all routes.
type API struct {
	orchestrator *orchestrator.Service
	intake       *pipeline.IntakeService
	records      repository.RecordsRepository
	params       repository.ParamsRepository
	logger       *logrus.Entry
}

func NewAPI(
	orchestratorService *orchestrator.Service,
	intake *pipeline.IntakeService,
	records repository.RecordsRepository,
	params repository.ParamsRepository,
	logger *logrus.Entry,
) *API {
	return &API{
		orchestrator: orchestratorService,
		intake:       intake,
		records:      records,
		params:       params,
		logger:       logger,
	}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, r, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}

func parseOptionalDateTime(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, errInvalidPayload
	}
	return &parsed, nil
}

func jsonRawOrFallback(value []byte) any {
	var decoded any
	if err := json.Unmarshal(value, &decoded); err == nil {
		return decoded
	}
	return string(value)
}
