package analysisflow

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/certquiz-backend/internal/analysis"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/events"
)

// Workflows holds the quiz analysis workflow definitions. Register its methods
// with Register so they resolve by the names the dispatcher starts.
type Workflows struct {
	opts Options
}

func NewWorkflows(opts Options) *Workflows {
	return &Workflows{opts: opts.withDefaults()}
}

func (w *Workflows) dbActivities(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	})
}

func (w *Workflows) analyzerActivities(ctx workflow.Context, analyzer string) workflow.Context {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        int32(w.opts.maxAttempts(analyzer)),
			NonRetryableErrorTypes: []string{ErrTypeUnknownAnalyzer},
		},
	}
	if analysis.IsAIAnalyzer(analyzer) {
		// Prompt building and fact writes ride on top of the model call.
		ao.StartToCloseTimeout = w.opts.LLMTimeout + 15*time.Second
		ao.TaskQueue = w.opts.AITaskQueue
	}
	return workflow.WithActivityOptions(ctx, ao)
}

// QuizAnalysis runs the whole pipeline for one completed attempt: create the
// analysis, load the attempt, settle the tier, fan out analyzers, wait for them
// (bounded by the join timeout) and project the result.
func (w *Workflows) QuizAnalysis(ctx workflow.Context, in events.QuizCompletedData) (*AnalysisResult, error) {
	log := workflow.GetLogger(ctx)
	info := workflow.GetInfo(ctx)
	dbCtx := w.dbActivities(ctx)
	lastRun := int(info.Attempt) >= w.opts.RunAttempts

	var created CreateAnalysisResult
	err := workflow.ExecuteActivity(dbCtx, ActivityCreateAnalysis, CreateAnalysisInput{
		UserID:    in.UserID,
		AttemptID: in.QuizAttemptID,
		Resume:    info.Attempt > 1,
	}).Get(ctx, &created)
	if isApplicationError(err, ErrTypeAnalysisExists) {
		log.Info("analysis already exists; nothing to do", "quiz_attempt_id", in.QuizAttemptID)
		return &AnalysisResult{Outcome: OutcomeDuplicate}, nil
	}
	if err != nil {
		return nil, err
	}
	result := &AnalysisResult{AnalysisID: created.AnalysisID}

	// abort settles the analysis as failed when this run cannot succeed and no
	// further run will retry it.
	abort := func(step string, cause error) (*AnalysisResult, error) {
		permanent := isNonRetryable(cause)
		if !permanent && !lastRun {
			return nil, cause
		}
		reason := fmt.Sprintf("%s: %s", step, rootMessage(cause))
		if err := workflow.ExecuteActivity(dbCtx, ActivityMarkFailed, MarkFailedInput{AnalysisID: created.AnalysisID, Reason: reason}).Get(ctx, nil); err != nil {
			log.Error("mark analysis failed", "analysis_id", created.AnalysisID, "error", err)
			return nil, err
		}
		result.Outcome = OutcomeFailed
		result.Error = reason
		if permanent {
			return result, nil
		}
		return nil, cause
	}

	var data *analysis.QuizData
	if err := workflow.ExecuteActivity(dbCtx, ActivityFetchQuizData, in.QuizAttemptID).Get(ctx, &data); err != nil {
		return abort("fetch quiz data", err)
	}

	tier, err := w.resolveTier(ctx, dbCtx, in.UserID)
	if err != nil {
		return abort("resolve tier", err)
	}
	result.Tier = tier.Tier
	if err := workflow.ExecuteActivity(dbCtx, ActivityRecordTier, RecordTierInput{AnalysisID: created.AnalysisID, Tier: tier}).Get(ctx, nil); err != nil {
		return abort("record tier", err)
	}

	expected := append([]string{}, analysis.ScoringAnalyzers...)
	var skipped []string
	if tier.Tier.Premium() {
		expected = append(expected, analysis.AIAnalyzers...)
	} else {
		skipped = append(skipped, analysis.AIAnalyzers...)
	}
	req := events.AnalyzeRequestedData{AnalysisID: created.AnalysisID, QuizData: data, Tier: tier.Tier}
	pending := w.fanOut(ctx, req, expected, int(info.Attempt))

	var fin analysis.FinalizeResult
	if err := workflow.ExecuteActivity(dbCtx, ActivityFinalize, FinalizeInput{
		FinalizeInput: analysis.FinalizeInput{
			AnalysisID: created.AnalysisID,
			StartedAt:  created.StartedAt,
			Expected:   expected,
			Skipped:    skipped,
			Pending:    pending,
		},
		UserID: in.UserID,
	}).Get(ctx, &fin); err != nil {
		return abort("finalize", err)
	}
	result.Outcome = fin.Status
	result.Error = fin.Error
	result.AnalyzerStatus = fin.AnalyzerStatus
	result.ProcessingTimeMs = fin.ProcessingTimeMs

	if fin.Status == domain.AnalysisCompleted {
		if err := workflow.ExecuteActivity(dbCtx, ActivityRequestDashboard, in.UserID).Get(ctx, nil); err != nil {
			log.Warn("dashboard update request failed", "user_id", in.UserID, "error", err)
		}
	}
	return result, nil
}

// resolveTier re-checks a fail-open tier a bounded number of times before the
// pipeline gates on it.
func (w *Workflows) resolveTier(ctx, dbCtx workflow.Context, userID uuid.UUID) (analysis.TierResult, error) {
	var tier analysis.TierResult
	for i := 0; ; i++ {
		if err := workflow.ExecuteActivity(dbCtx, ActivityResolveTier, userID).Get(ctx, &tier); err != nil {
			return tier, err
		}
		if tier.Known || i >= w.opts.TierRechecks {
			return tier, nil
		}
		workflow.GetLogger(ctx).Warn("tier unknown; re-checking", "user_id", userID, "check", i+1, "error", tier.Error)
		if err := workflow.Sleep(ctx, w.opts.TierRecheckDelay); err != nil {
			return tier, err
		}
	}
}

// fanOut starts one abandoned child per analyzer and blocks until every child
// has settled or the join timeout fires. It returns the analyzers still running.
func (w *Workflows) fanOut(ctx workflow.Context, req events.AnalyzeRequestedData, analyzers []string, run int) []string {
	log := workflow.GetLogger(ctx)
	outstanding := map[string]bool{}
	sel := workflow.NewSelector(ctx)

	for _, name := range analyzers {
		name := name
		cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID:            fmt.Sprintf("%s-r%d", events.QuizAnalyzerWorkflowID(req.AnalysisID, name), run),
			ParentClosePolicy:     enums.PARENT_CLOSE_POLICY_ABANDON,
			WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		})
		fut := workflow.ExecuteChildWorkflow(cctx, WorkflowQuizAnalyzer, events.AnalyzerRunData{Analyzer: name, Request: req})
		outstanding[name] = true
		sel.AddFuture(fut, func(f workflow.Future) {
			delete(outstanding, name)
			var out analysis.Outcome
			if err := f.Get(ctx, &out); err != nil {
				log.Warn("analyzer settled with error", "analyzer", name, "analysis_id", req.AnalysisID, "error", err)
				return
			}
			log.Info("analyzer settled", "analyzer", name, "status", out.Status)
		})
	}

	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	defer cancelTimer()
	timedOut := false
	sel.AddFuture(workflow.NewTimer(timerCtx, w.opts.JoinTimeout), func(f workflow.Future) {
		if f.Get(ctx, nil) == nil {
			timedOut = true
		}
	})
	for len(outstanding) > 0 && !timedOut {
		sel.Select(ctx)
	}

	pending := make([]string, 0, len(outstanding))
	for name := range outstanding {
		pending = append(pending, name)
	}
	sort.Strings(pending)
	if len(pending) > 0 {
		log.Warn("join timed out", "analysis_id", req.AnalysisID, "pending", pending)
	}
	return pending
}

// QuizAnalyzer runs one analyzer with its own retry budget, then re-projects
// the view. While the orchestrator is still joining the re-projection is a
// no-op; once it has finalized, this is how a late result reaches the record.
func (w *Workflows) QuizAnalyzer(ctx workflow.Context, in events.AnalyzerRunData) (*analysis.Outcome, error) {
	log := workflow.GetLogger(ctx)
	var out analysis.Outcome
	runErr := workflow.ExecuteActivity(w.analyzerActivities(ctx, in.Analyzer), ActivityRunAnalyzer, RunAnalyzerInput{
		Analyzer: in.Analyzer,
		Request:  in.Request,
	}).Get(ctx, &out)
	if isApplicationError(runErr, ErrTypeUnknownAnalyzer) {
		return nil, runErr
	}

	var status string
	if err := workflow.ExecuteActivity(w.dbActivities(ctx), ActivityReproject, in.Request.AnalysisID).Get(ctx, &status); err != nil {
		log.Warn("reproject failed", "analysis_id", in.Request.AnalysisID, "analyzer", in.Analyzer, "error", err)
		// Orchestrated runs still have finalize to fall back on.
		if runErr == nil && in.Standalone {
			return nil, err
		}
	} else if status != domain.AnalysisProcessing {
		log.Info("analysis view re-projected", "analysis_id", in.Request.AnalysisID, "analyzer", in.Analyzer, "status", status)
	}
	if runErr != nil {
		return nil, runErr
	}
	return &out, nil
}

// DashboardRefresh rebuilds the dashboard snapshot at most once per debounce
// window per user. It reports whether a refresh ran.
func (w *Workflows) DashboardRefresh(ctx workflow.Context, in events.DashboardUpdateRequestedData) (bool, error) {
	dbCtx := w.dbActivities(ctx)
	var acquired bool
	if err := workflow.ExecuteActivity(dbCtx, ActivityAcquireDashboardSlot, in.UserID).Get(ctx, &acquired); err != nil {
		return false, err
	}
	if !acquired {
		workflow.GetLogger(ctx).Debug("dashboard refresh debounced", "user_id", in.UserID)
		return false, nil
	}
	if err := workflow.ExecuteActivity(dbCtx, ActivityRefreshDashboardCache, in.UserID).Get(ctx, nil); err != nil {
		return false, err
	}
	return true, nil
}

func isApplicationError(err error, errType string) bool {
	var appErr *temporal.ApplicationError
	return errors.As(err, &appErr) && appErr.Type() == errType
}

func isNonRetryable(err error) bool {
	var appErr *temporal.ApplicationError
	return errors.As(err, &appErr) && appErr.NonRetryable()
}

// rootMessage unwraps Temporal's activity error envelope down to the cause.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
