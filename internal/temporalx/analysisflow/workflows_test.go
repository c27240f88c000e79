package analysisflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/analysis"
	analysisrepo "github.com/yungbote/certquiz-backend/internal/data/repos/analysis"
	"github.com/yungbote/certquiz-backend/internal/data/repos/billing"
	"github.com/yungbote/certquiz-backend/internal/data/repos/learning"
	"github.com/yungbote/certquiz-backend/internal/data/repos/quiz"
	"github.com/yungbote/certquiz-backend/internal/data/repos/testutil"
	"github.com/yungbote/certquiz-backend/internal/data/repos/user"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/events"
	"github.com/yungbote/certquiz-backend/internal/llm"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/realtime"
	"github.com/yungbote/certquiz-backend/internal/realtime/bus"
	"github.com/yungbote/certquiz-backend/internal/services"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []events.Event
}

func (s *recordingSender) Send(_ context.Context, ev events.Event) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ev)
	return "run-" + ev.Name, nil
}

func (s *recordingSender) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, ev := range s.sent {
		out = append(out, ev.Name)
	}
	return out
}

type stubDashboard struct {
	acquire     bool
	refreshed   int
	invalidated []uuid.UUID
}

func (d *stubDashboard) Snapshot(context.Context, uuid.UUID) (*services.DashboardSnapshot, error) {
	return &services.DashboardSnapshot{}, nil
}

func (d *stubDashboard) Refresh(_ context.Context, userID uuid.UUID) (*services.DashboardSnapshot, error) {
	d.refreshed++
	return &services.DashboardSnapshot{UserID: userID}, nil
}

func (d *stubDashboard) AcquireRefresh(context.Context, uuid.UUID) (bool, error) {
	return d.acquire, nil
}

func (d *stubDashboard) Invalidate(_ context.Context, userID uuid.UUID) error {
	d.invalidated = append(d.invalidated, userID)
	return nil
}

// flakySubs fails the first lookups before delegating.
type flakySubs struct {
	billing.SubscriptionRepo
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakySubs) GetActiveByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.Subscription, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return nil, errors.New("billing db unreachable")
	}
	return f.SubscriptionRepo.GetActiveByUserID(dbc, userID)
}

type fixture struct {
	db      *gorm.DB
	svc     *analysis.Service
	model   *llm.MockProvider
	sender  *recordingSender
	subs    *flakySubs
	bus     *bus.Memory
	user    *domain.User
	attempt *domain.QuizAttempt
	acts    *Activities
}

func newFixture(t *testing.T, plan string, h llm.MockHandler) *fixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	u := testutil.SeedUser(t, ctx, db, "flow-"+uuid.NewString()+"@example.com")
	cat := testutil.SeedCategory(t, ctx, db, "S3")
	q := testutil.SeedQuiz(t, ctx, db, "Storage basics", cat, 10)
	a := testutil.SeedAttempt(t, ctx, db, u.ID, q, 8, 600)
	if plan != "" {
		testutil.SeedSubscription(t, ctx, db, u.ID, domain.SubscriptionActive, plan)
	}

	model := llm.NewMockProviderFunc(h)
	subs := &flakySubs{SubscriptionRepo: billing.NewSubscriptionRepo(db, log)}
	svc := analysis.NewService(analysis.ServiceDeps{
		DB:        db,
		Analyses:  analysisrepo.NewQuizAnalysisRepo(db, log),
		Results:   analysisrepo.NewAnalyzerResultRepo(db, log),
		Mastery:   learning.NewTopicMasteryRepo(db, log),
		Formatter: analysis.NewFormatter(quiz.NewQuizAttemptRepo(db, log), user.NewOnboardingProfileRepo(db, log)),
		Tiers:     analysis.NewTierResolver(subs, log),
		AI:        analysis.NewAIAnalyzer(model, 1024, log),
		Log:       log,
	})
	sender := &recordingSender{}
	mem := bus.NewMemory()
	return &fixture{
		db: db, svc: svc, model: model, sender: sender, subs: subs, bus: mem, user: u, attempt: a,
		acts: &Activities{Log: log, Analysis: svc, Dashboard: &stubDashboard{acquire: true}, Events: sender, Bus: mem},
	}
}

func (f *fixture) env(t *testing.T, opts Options) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	Register(env, NewWorkflows(opts), f.acts)
	return env
}

func (f *fixture) run(t *testing.T, env *testsuite.TestWorkflowEnvironment) *AnalysisResult {
	t.Helper()
	env.ExecuteWorkflow(WorkflowQuizAnalysis, events.QuizCompletedData{UserID: f.user.ID, QuizAttemptID: f.attempt.ID})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var res AnalysisResult
	require.NoError(t, env.GetWorkflowResult(&res))
	return &res
}

func (f *fixture) view(t *testing.T) *domain.QuizAnalysis {
	t.Helper()
	v, err := f.svc.GetByAttempt(context.Background(), f.attempt.ID)
	require.NoError(t, err)
	require.NotNil(t, v)
	return v
}

func goodModel(ctx context.Context, req llm.Request) llm.MockResponse {
	switch req.Schema.Name {
	case "strengths-weaknesses":
		return llm.MockResponse{Content: json.RawMessage(`{"strengths":["Lifecycle rules"],"weaknesses":["Replication"],"insight":"Strong storage fundamentals."}`)}
	case "recommendations":
		return llm.MockResponse{Content: json.RawMessage(`{"recommendations":[{"priority":1,"topic":"Replication","action":"Review CRR","reason":"missed"}]}`)}
	case "topic-mastery":
		return llm.MockResponse{Content: json.RawMessage(`{"topics":[{"topic":"Buckets","questions":[1,2,3,4,5,6,7,8,9,10]}]}`)}
	}
	return llm.MockResponse{Err: errors.New("unexpected schema")}
}

func TestQuizAnalysisPremiumCompletes(t *testing.T) {
	f := newFixture(t, "Premium Monthly", goodModel)
	env := f.env(t, Options{})

	res := f.run(t, env)
	assert.Equal(t, domain.AnalysisCompleted, res.Outcome)
	assert.Equal(t, analysis.TierPremium, res.Tier)
	for _, name := range append(append([]string{}, analysis.ScoringAnalyzers...), analysis.AIAnalyzers...) {
		assert.Equal(t, analysis.StatusSucceeded, res.AnalyzerStatus[name], name)
	}

	v := f.view(t)
	assert.Equal(t, domain.AnalysisCompleted, v.Status)
	assert.Equal(t, string(analysis.TierPremium), v.Tier)
	assert.Equal(t, domain.TierStatusConfirmed, v.TierStatus)
	require.NotNil(t, v.OverallScore)
	assert.Equal(t, 80, *v.OverallScore)
	require.NotNil(t, v.Insight)
	assert.Equal(t, "Strong storage fundamentals.", *v.Insight)

	assert.Equal(t, []string{events.DashboardUpdateRequestedEvent}, f.sender.names())
	assert.Equal(t, []uuid.UUID{f.user.ID}, f.acts.Dashboard.(*stubDashboard).invalidated)

	published := f.bus.Published()
	require.Len(t, published, 1)
	assert.Equal(t, realtime.EventAnalysisSettled, published[0].Event)
	assert.Equal(t, realtime.UserChannel(f.user.ID), published[0].Channel)
}

func TestQuizAnalysisSurvivesAIFailure(t *testing.T) {
	f := newFixture(t, "Premium Monthly", func(ctx context.Context, req llm.Request) llm.MockResponse {
		if req.Schema.Name == "strengths-weaknesses" {
			return llm.MockResponse{Err: &llm.ErrRateLimit{}}
		}
		return goodModel(ctx, req)
	})
	env := f.env(t, Options{StrengthsAttempts: 2})

	res := f.run(t, env)
	assert.Equal(t, domain.AnalysisCompleted, res.Outcome)
	assert.Equal(t, analysis.StatusFailed, res.AnalyzerStatus[analysis.AnalyzerStrengthsWeaknesses])
	assert.Equal(t, analysis.StatusSucceeded, res.AnalyzerStatus[analysis.AnalyzerRecommendations])

	v := f.view(t)
	assert.Nil(t, v.Insight)
	assert.NotEmpty(t, v.Recommendations)
}

func TestQuizAnalysisDuplicateIsNoop(t *testing.T) {
	f := newFixture(t, "", goodModel)
	_, err := f.svc.Create(context.Background(), f.user.ID, f.attempt.ID)
	require.NoError(t, err)

	res := f.run(t, f.env(t, Options{}))
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Zero(t, f.model.CallCount())
	assert.Equal(t, domain.AnalysisProcessing, f.view(t).Status)
}

func TestQuizAnalysisFreeTierSkipsAI(t *testing.T) {
	f := newFixture(t, "", goodModel)

	res := f.run(t, f.env(t, Options{}))
	assert.Equal(t, domain.AnalysisCompleted, res.Outcome)
	assert.Equal(t, analysis.TierFree, res.Tier)
	for _, name := range analysis.AIAnalyzers {
		assert.Equal(t, analysis.StatusSkipped, res.AnalyzerStatus[name], name)
	}
	assert.Zero(t, f.model.CallCount())
}

func TestQuizAnalysisJoinTimeout(t *testing.T) {
	f := newFixture(t, "", goodModel)
	env := f.env(t, Options{JoinTimeout: time.Minute})
	env.OnWorkflow(WorkflowQuizAnalyzer, mock.Anything, mock.Anything).
		Return(&analysis.Outcome{Status: analysis.StatusSucceeded}, nil).
		After(10 * time.Minute)

	res := f.run(t, env)
	assert.Equal(t, domain.AnalysisFailed, res.Outcome)
	assert.Contains(t, res.Error, "timed out waiting for 2 analyzers")
	assert.Equal(t, analysis.StatusPending, res.AnalyzerStatus[analysis.AnalyzerCategoryScores])
	assert.Empty(t, f.sender.names(), "failed analyses do not refresh the dashboard")

	v := f.view(t)
	assert.Equal(t, domain.AnalysisFailed, v.Status)
	require.NotNil(t, v.Error)
	assert.Contains(t, *v.Error, "timed out waiting")
}

func TestLateAnalyzersRepairTimedOutAnalysis(t *testing.T) {
	f := newFixture(t, "Premium Monthly", goodModel)
	env := f.env(t, Options{JoinTimeout: time.Minute})
	env.OnWorkflow(WorkflowQuizAnalyzer, mock.Anything, mock.Anything).
		Return(&analysis.Outcome{Status: analysis.StatusSucceeded}, nil).
		After(10 * time.Minute)

	res := f.run(t, env)
	require.Equal(t, domain.AnalysisFailed, res.Outcome)
	assert.Nil(t, f.view(t).Insight)

	// The abandoned children finish after finalize, exactly as the orchestrator started them.
	data, err := f.svc.FetchQuizData(context.Background(), f.attempt.ID)
	require.NoError(t, err)
	req := events.AnalyzeRequestedData{AnalysisID: res.AnalysisID, QuizData: data, Tier: analysis.TierPremium}
	for _, name := range append(append([]string{}, analysis.ScoringAnalyzers...), analysis.AIAnalyzers...) {
		childEnv := f.env(t, Options{})
		childEnv.ExecuteWorkflow(WorkflowQuizAnalyzer, events.AnalyzerRunData{Analyzer: name, Request: req})
		require.True(t, childEnv.IsWorkflowCompleted(), name)
		require.NoError(t, childEnv.GetWorkflowError(), name)
	}

	v := f.view(t)
	assert.Equal(t, domain.AnalysisCompleted, v.Status)
	assert.Nil(t, v.Error)
	require.NotNil(t, v.OverallScore)
	assert.Equal(t, 80, *v.OverallScore)
	require.NotNil(t, v.Insight)
	assert.Equal(t, "Strong storage fundamentals.", *v.Insight)
	assert.NotEmpty(t, v.Recommendations)

	statuses := map[string]string{}
	require.NoError(t, json.Unmarshal(v.AnalyzerStatus, &statuses))
	for _, name := range append(append([]string{}, analysis.ScoringAnalyzers...), analysis.AIAnalyzers...) {
		assert.Equal(t, analysis.StatusSucceeded, statuses[name], name)
	}
	// once at finalize, then after every late re-projection
	assert.Len(t, f.acts.Dashboard.(*stubDashboard).invalidated, 6)
}

func TestQuizAnalysisRechecksUnknownTier(t *testing.T) {
	f := newFixture(t, "Pro Annual", goodModel)
	f.subs.failures = 1
	env := f.env(t, Options{TierRechecks: 2, TierRecheckDelay: time.Second})

	res := f.run(t, env)
	assert.Equal(t, analysis.TierPro, res.Tier)
	assert.Equal(t, 2, f.subs.calls)
	assert.Equal(t, domain.TierStatusConfirmed, f.view(t).TierStatus)
}

func TestQuizAnalysisMissingAttemptFails(t *testing.T) {
	f := newFixture(t, "", goodModel)
	f.attempt = &domain.QuizAttempt{ID: uuid.New()}

	res := f.run(t, f.env(t, Options{}))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Error, "fetch quiz data")

	v := f.view(t)
	assert.Equal(t, domain.AnalysisFailed, v.Status)
}

func TestQuizAnalyzerStandaloneReprojects(t *testing.T) {
	f := newFixture(t, "", goodModel)
	row, err := f.svc.Create(context.Background(), f.user.ID, f.attempt.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.MarkFailed(context.Background(), row.ID, "worker lost"))
	data, err := f.svc.FetchQuizData(context.Background(), f.attempt.ID)
	require.NoError(t, err)

	env := f.env(t, Options{})
	env.ExecuteWorkflow(WorkflowQuizAnalyzer, events.AnalyzerRunData{
		Analyzer:   analysis.AnalyzerCategoryScores,
		Request:    events.AnalyzeRequestedData{AnalysisID: row.ID, QuizData: data, Tier: analysis.TierFree},
		Standalone: true,
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var out analysis.Outcome
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Equal(t, analysis.StatusSucceeded, out.Status)

	v := f.view(t)
	assert.NotEmpty(t, v.CategoryScores)
	assert.Equal(t, domain.AnalysisFailed, v.Status, "time efficiency is still missing")
}

func TestQuizAnalyzerUnknownAnalyzerFailsFast(t *testing.T) {
	f := newFixture(t, "", goodModel)
	env := f.env(t, Options{})
	env.ExecuteWorkflow(WorkflowQuizAnalyzer, events.AnalyzerRunData{Analyzer: "vibes"})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	assert.True(t, isApplicationError(env.GetWorkflowError(), ErrTypeUnknownAnalyzer))
}

func TestDashboardRefreshDebounces(t *testing.T) {
	f := newFixture(t, "", goodModel)
	dash := &stubDashboard{acquire: true}
	f.acts.Dashboard = dash

	for _, want := range []bool{true, false} {
		dash.acquire = want
		env := f.env(t, Options{})
		env.ExecuteWorkflow(WorkflowDashboardRefresh, events.DashboardUpdateRequestedData{UserID: f.user.ID})
		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())
		var ran bool
		require.NoError(t, env.GetWorkflowResult(&ran))
		assert.Equal(t, want, ran)
	}
	assert.Equal(t, 1, dash.refreshed)
}
