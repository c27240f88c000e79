package analysisflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/certquiz-backend/internal/analysis"
	"github.com/yungbote/certquiz-backend/internal/events"
)

const (
	WorkflowQuizAnalysis     = events.WorkflowQuizAnalysis
	WorkflowQuizAnalyzer     = events.WorkflowQuizAnalyzer
	WorkflowDashboardRefresh = events.WorkflowDashboardRefresh

	ActivityCreateAnalysis        = "quiz_analysis_create"
	ActivityFetchQuizData         = "quiz_analysis_fetch_data"
	ActivityResolveTier           = "quiz_analysis_resolve_tier"
	ActivityRecordTier            = "quiz_analysis_record_tier"
	ActivityRunAnalyzer           = "quiz_analysis_run_analyzer"
	ActivityFinalize              = "quiz_analysis_finalize"
	ActivityMarkFailed            = "quiz_analysis_mark_failed"
	ActivityReproject             = "quiz_analysis_reproject"
	ActivityRequestDashboard      = "dashboard_request_update"
	ActivityAcquireDashboardSlot  = "dashboard_acquire_window"
	ActivityRefreshDashboardCache = "dashboard_refresh_snapshot"
)

// Application error types raised as non-retryable by activities.
const (
	ErrTypeAnalysisExists   = "AnalysisExists"
	ErrTypeAttemptNotFound  = "AttemptNotFound"
	ErrTypeUnknownAnalyzer  = "UnknownAnalyzer"
	ErrTypeAnalysisNotFound = "AnalysisNotFound"
)

// Outcome values reported by the quiz_analysis workflow.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
)

// Options are fixed per worker process and read by workflow code, so they
// must not change while executions are in flight.
type Options struct {
	JoinTimeout       time.Duration
	RunAttempts       int
	ScoringAttempts   int
	StrengthsAttempts int
	RecsAttempts      int
	MasteryAttempts   int
	TierRechecks      int
	TierRecheckDelay  time.Duration
	// AITaskQueue routes AI analyzer activities; empty keeps them on the
	// workflow's own queue.
	AITaskQueue string
	LLMTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.JoinTimeout <= 0 {
		o.JoinTimeout = 5 * time.Minute
	}
	if o.RunAttempts <= 0 {
		o.RunAttempts = 2
	}
	if o.ScoringAttempts <= 0 {
		o.ScoringAttempts = 3
	}
	if o.StrengthsAttempts <= 0 {
		o.StrengthsAttempts = 2
	}
	if o.RecsAttempts <= 0 {
		o.RecsAttempts = 2
	}
	if o.MasteryAttempts <= 0 {
		o.MasteryAttempts = 3
	}
	if o.TierRechecks < 0 {
		o.TierRechecks = 0
	}
	if o.TierRecheckDelay <= 0 {
		o.TierRecheckDelay = 10 * time.Second
	}
	if o.LLMTimeout <= 0 {
		o.LLMTimeout = 25 * time.Second
	}
	return o
}

// maxAttempts is the activity retry budget for one analyzer.
func (o Options) maxAttempts(analyzer string) int {
	switch analyzer {
	case analysis.AnalyzerStrengthsWeaknesses:
		return o.StrengthsAttempts
	case analysis.AnalyzerRecommendations:
		return o.RecsAttempts
	case analysis.AnalyzerTopicMastery:
		return o.MasteryAttempts
	default:
		return o.ScoringAttempts
	}
}

type CreateAnalysisInput struct {
	UserID    uuid.UUID `json:"user_id"`
	AttemptID uuid.UUID `json:"attempt_id"`
	// Resume lets a retried run adopt the analysis its previous run created.
	Resume bool `json:"resume"`
}

type CreateAnalysisResult struct {
	AnalysisID uuid.UUID `json:"analysis_id"`
	StartedAt  time.Time `json:"started_at"`
}

type RecordTierInput struct {
	AnalysisID uuid.UUID           `json:"analysis_id"`
	Tier       analysis.TierResult `json:"tier"`
}

type RunAnalyzerInput struct {
	Analyzer string                      `json:"analyzer"`
	Request  events.AnalyzeRequestedData `json:"request"`
}

type FinalizeInput struct {
	analysis.FinalizeInput
	UserID uuid.UUID `json:"user_id"`
}

type MarkFailedInput struct {
	AnalysisID uuid.UUID `json:"analysis_id"`
	Reason     string    `json:"reason"`
}

// AnalysisResult is the quiz_analysis workflow result.
type AnalysisResult struct {
	AnalysisID       uuid.UUID         `json:"analysis_id"`
	Outcome          string            `json:"outcome"`
	Tier             analysis.Tier     `json:"tier,omitempty"`
	Error            string            `json:"error,omitempty"`
	AnalyzerStatus   map[string]string `json:"analyzer_status,omitempty"`
	ProcessingTimeMs int64             `json:"processing_time_ms,omitempty"`
}
