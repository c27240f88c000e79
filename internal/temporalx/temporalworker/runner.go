package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/yungbote/certquiz-backend/internal/platform/logger"
	"github.com/yungbote/certquiz-backend/internal/temporalx"
	"github.com/yungbote/certquiz-backend/internal/temporalx/analysisflow"
)

// Runner polls two queues: the main queue for workflows and database
// activities, and the AI queue for model-backed analyzer runs, which carries
// a server-side rate limit.
type Runner struct {
	log *logger.Logger
	cfg temporalx.Config

	tc        temporalsdkclient.Client
	workflows *analysisflow.Workflows
	acts      *analysisflow.Activities
	// aiPerSecond caps AI analyzer activity starts across all AI workers.
	aiPerSecond float64
}

func NewRunner(
	log *logger.Logger,
	cfg temporalx.Config,
	tc temporalsdkclient.Client,
	workflows *analysisflow.Workflows,
	acts *analysisflow.Activities,
	aiPerMinute float64,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if workflows == nil || acts == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{
		log:         log.With("component", "TemporalWorker"),
		cfg:         cfg,
		tc:          tc,
		workflows:   workflows,
		acts:        acts,
		aiPerSecond: aiPerMinute / 60,
	}, nil
}

// Start brings both workers up, retrying while the cluster or namespace is not
// ready, and stops them when ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("Starting Temporal workers", "address", r.cfg.Address, "namespace", r.cfg.Namespace,
		"task_queue", r.cfg.TaskQueue, "ai_task_queue", r.cfg.AITaskQueue)

	if r.cfg.AutoRegisterNamespace {
		if err := temporalx.EnsureNamespace(ctx, r.cfg, r.log); err != nil {
			r.log.Warn("Temporal namespace ensure failed; worker will retry on start", "namespace", r.cfg.Namespace, "error", err)
		}
	}

	deadline := time.Now().Add(r.cfg.StartMaxWait)
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		workers := r.newWorkers()
		startErr := startAll(workers)
		if startErr == nil {
			go func() {
				<-ctx.Done()
				for _, w := range workers {
					w.Stop()
				}
			}()
			r.log.Info("Temporal workers started", "namespace", r.cfg.Namespace, "workers", len(workers), "attempts", attempt)
			return nil
		}

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && r.cfg.AutoRegisterNamespace {
			_ = temporalx.EnsureNamespace(ctx, r.cfg, r.log)
		}

		if r.cfg.StartMaxWait <= 0 || time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal workers failed to start; retrying", "namespace", r.cfg.Namespace, "attempt", attempt, "error", startErr)
		time.Sleep(temporalx.ClampBackoff(r.cfg.StartBackoff, r.cfg.StartBackoffMax, attempt))
	}
}

func (r *Runner) newWorkers() []worker.Worker {
	concurrency := r.cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	main := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	analysisflow.Register(main, r.workflows, r.acts)
	if r.cfg.AITaskQueue == "" || r.cfg.AITaskQueue == r.cfg.TaskQueue {
		return []worker.Worker{main}
	}

	aiOpts := worker.Options{MaxConcurrentActivityExecutionSize: concurrency}
	if r.aiPerSecond > 0 {
		aiOpts.TaskQueueActivitiesPerSecond = r.aiPerSecond
	}
	ai := worker.New(r.tc, r.cfg.AITaskQueue, aiOpts)
	analysisflow.RegisterAnalyzerActivity(ai, r.acts)
	return []worker.Worker{main, ai}
}

// startAll starts every worker or none.
func startAll(workers []worker.Worker) error {
	for i, w := range workers {
		if err := w.Start(); err != nil {
			for _, started := range workers[:i+1] {
				started.Stop()
			}
			return err
		}
	}
	return nil
}
