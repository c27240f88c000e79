package analysisflow

import (
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"
)

// WorkflowRegistry and ActivityRegistry are satisfied by both worker.Worker
// and the test environment.
type WorkflowRegistry interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
}

type ActivityRegistry interface {
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

type Registry interface {
	WorkflowRegistry
	ActivityRegistry
}

// Register wires the workflows and every activity onto one worker.
func Register(r Registry, wf *Workflows, acts *Activities) {
	RegisterWorkflows(r, wf)
	RegisterActivities(r, acts)
}

func RegisterWorkflows(r WorkflowRegistry, wf *Workflows) {
	r.RegisterWorkflowWithOptions(wf.QuizAnalysis, workflow.RegisterOptions{Name: WorkflowQuizAnalysis})
	r.RegisterWorkflowWithOptions(wf.QuizAnalyzer, workflow.RegisterOptions{Name: WorkflowQuizAnalyzer})
	r.RegisterWorkflowWithOptions(wf.DashboardRefresh, workflow.RegisterOptions{Name: WorkflowDashboardRefresh})
}

func RegisterActivities(r ActivityRegistry, acts *Activities) {
	r.RegisterActivityWithOptions(acts.CreateAnalysis, activity.RegisterOptions{Name: ActivityCreateAnalysis})
	r.RegisterActivityWithOptions(acts.FetchQuizData, activity.RegisterOptions{Name: ActivityFetchQuizData})
	r.RegisterActivityWithOptions(acts.ResolveTier, activity.RegisterOptions{Name: ActivityResolveTier})
	r.RegisterActivityWithOptions(acts.RecordTier, activity.RegisterOptions{Name: ActivityRecordTier})
	RegisterAnalyzerActivity(r, acts)
	r.RegisterActivityWithOptions(acts.Finalize, activity.RegisterOptions{Name: ActivityFinalize})
	r.RegisterActivityWithOptions(acts.MarkFailed, activity.RegisterOptions{Name: ActivityMarkFailed})
	r.RegisterActivityWithOptions(acts.Reproject, activity.RegisterOptions{Name: ActivityReproject})
	r.RegisterActivityWithOptions(acts.RequestDashboardUpdate, activity.RegisterOptions{Name: ActivityRequestDashboard})
	r.RegisterActivityWithOptions(acts.AcquireDashboardWindow, activity.RegisterOptions{Name: ActivityAcquireDashboardSlot})
	r.RegisterActivityWithOptions(acts.RefreshDashboard, activity.RegisterOptions{Name: ActivityRefreshDashboardCache})
}

// RegisterAnalyzerActivity is all the rate-limited AI worker needs.
func RegisterAnalyzerActivity(r ActivityRegistry, acts *Activities) {
	r.RegisterActivityWithOptions(acts.RunAnalyzer, activity.RegisterOptions{Name: ActivityRunAnalyzer})
}
