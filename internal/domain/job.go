package domain

import (
	"encoding/json"
	"time"
)

type JobType string

const (
	JobTypeSignalRefresh    JobType = "signal_refresh"
	JobTypeCampaignGenerate JobType = "campaign_generate"
	JobTypeStrategyGenerate JobType = "content_strategy_generate"
	JobTypePieceGenerate    JobType = "content_piece_generate"
	JobTypeFeedbackTrigger  JobType = "feedback_trigger"
)

// Class groups job types by the records they read-then-write. Two jobs with
// the same class and the same company must not run concurrently; everything
// else may run in parallel.
func (t JobType) Class() string {
	switch t {
	case JobTypeCampaignGenerate, JobTypeFeedbackTrigger:
		return "parameters"
	case JobTypeStrategyGenerate, JobTypePieceGenerate:
		return "content"
	default:
		return "signals"
	}
}

func (t JobType) Valid() bool {
	switch t {
	case JobTypeSignalRefresh, JobTypeCampaignGenerate, JobTypeStrategyGenerate,
		JobTypePieceGenerate, JobTypeFeedbackTrigger:
		return true
	}
	return false
}

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Job is the canonical async unit executed by the orchestrator. Status moves
// queued -> running -> succeeded|failed and never backwards; Result and
// ErrorMessage are mutually exclusive and both empty until terminal.
type Job struct {
	ID            string
	Type          JobType
	CompanyID     string
	Payload       json.RawMessage
	Status        JobStatus
	Result        json.RawMessage
	ErrorMessage  string
	ProgressStep  int
	ProgressTotal int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// JobMessage is the transport format sent to queue backends.
type JobMessage struct {
	JobID       string          `json:"job_id"`
	Type        JobType         `json:"type"`
	CompanyID   string          `json:"company_id"`
	Payload     json.RawMessage `json:"payload"`
	RequestedAt time.Time       `json:"requested_at"`
}
