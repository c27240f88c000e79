package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

var (
	// ErrAlreadyStarted means a workflow for the same key is running or, for
	// quiz/completed, has ever run.
	ErrAlreadyStarted = errors.New("workflow already started")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrBadPayload     = errors.New("event payload does not match event name")
)

// WorkflowStarter is the slice of the Temporal client the dispatcher needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options temporalsdkclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (temporalsdkclient.WorkflowRun, error)
}

type DispatcherConfig struct {
	TaskQueue string
	// RunAttempts bounds retries of a whole orchestrator run.
	RunAttempts int
}

// Dispatcher turns named events into workflow starts. Each event family has a
// deterministic workflow ID so redelivered events collapse onto one execution.
type Dispatcher struct {
	tc  WorkflowStarter
	cfg DispatcherConfig
	log *logger.Logger
}

func NewDispatcher(tc WorkflowStarter, cfg DispatcherConfig, log *logger.Logger) *Dispatcher {
	if cfg.RunAttempts <= 0 {
		cfg.RunAttempts = 2
	}
	return &Dispatcher{tc: tc, cfg: cfg, log: log.With("component", "EventDispatcher")}
}

// Send starts the workflow for ev and returns its run ID.
func (d *Dispatcher) Send(ctx context.Context, ev Event) (string, error) {
	if d == nil || d.tc == nil {
		return "", fmt.Errorf("event dispatcher not configured")
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		TaskQueue:                                d.cfg.TaskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	var (
		workflowName string
		arg          any
	)
	switch ev.Name {
	case QuizCompleted:
		data, ok := ev.Data.(QuizCompletedData)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrBadPayload, ev.Name)
		}
		workflowName, arg = WorkflowQuizAnalysis, data
		opts.ID = QuizAnalysisWorkflowID(data.QuizAttemptID)
		// One orchestrator per attempt, ever.
		opts.WorkflowIDReusePolicy = enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE
		opts.RetryPolicy = &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    int32(d.cfg.RunAttempts),
		}
	case DashboardUpdateRequestedEvent:
		data, ok := ev.Data.(DashboardUpdateRequestedData)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrBadPayload, ev.Name)
		}
		workflowName, arg = WorkflowDashboardRefresh, data
		opts.ID = DashboardRefreshWorkflowID(data.UserID)
		opts.WorkflowIDReusePolicy = enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE
	default:
		analyzer, ok := AnalyzerForEvent(ev.Name)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Name)
		}
		data, ok := ev.Data.(AnalyzeRequestedData)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrBadPayload, ev.Name)
		}
		workflowName = WorkflowQuizAnalyzer
		arg = AnalyzerRunData{Analyzer: analyzer, Request: data, Standalone: true}
		opts.ID = QuizAnalyzerWorkflowID(data.AnalysisID, analyzer)
		opts.WorkflowIDReusePolicy = enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE
	}

	run, err := d.tc.ExecuteWorkflow(ctx, opts, workflowName, arg)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			d.log.Debug("event collapsed onto existing workflow", "event", ev.Name, "workflow_id", opts.ID)
			return "", fmt.Errorf("%w: %s", ErrAlreadyStarted, opts.ID)
		}
		return "", fmt.Errorf("send %s: %w", ev.Name, err)
	}
	d.log.Info("event dispatched", "event", ev.Name, "workflow_id", opts.ID, "run_id", run.GetRunID())
	return run.GetRunID(), nil
}
