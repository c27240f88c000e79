package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	analysisrepo "github.com/yungbote/certquiz-backend/internal/data/repos/analysis"
	"github.com/yungbote/certquiz-backend/internal/data/repos/learning"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

// ErrUnknownAnalyzer is returned for analyzer names outside the fixed set.
var ErrUnknownAnalyzer = errors.New("unknown analyzer")

// Service owns the analysis record lifecycle. Analyzers append facts; the
// QuizAnalysis row is only ever written by projecting those facts.
type Service struct {
	db        *gorm.DB
	analyses  analysisrepo.QuizAnalysisRepo
	results   analysisrepo.AnalyzerResultRepo
	mastery   learning.TopicMasteryRepo
	formatter *Formatter
	tiers     *TierResolver
	ai        *AIAnalyzer
	log       *logger.Logger
	now       func() time.Time
}

type ServiceDeps struct {
	DB        *gorm.DB
	Analyses  analysisrepo.QuizAnalysisRepo
	Results   analysisrepo.AnalyzerResultRepo
	Mastery   learning.TopicMasteryRepo
	Formatter *Formatter
	Tiers     *TierResolver
	AI        *AIAnalyzer
	Log       *logger.Logger
}

func NewService(d ServiceDeps) *Service {
	return &Service{
		db:        d.DB,
		analyses:  d.Analyses,
		results:   d.Results,
		mastery:   d.Mastery,
		formatter: d.Formatter,
		tiers:     d.Tiers,
		ai:        d.AI,
		log:       d.Log.With("service", "AnalysisService"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts the analysis in processing. A second call for the same
// attempt returns analysisrepo.ErrAnalysisExists.
func (s *Service) Create(ctx context.Context, userID, attemptID uuid.UUID) (*domain.QuizAnalysis, error) {
	row := &domain.QuizAnalysis{
		QuizAttemptID: attemptID,
		UserID:        userID,
		Status:        domain.AnalysisProcessing,
	}
	if err := s.analyses.Create(dbctx.New(ctx), row); err != nil {
		return nil, err
	}
	s.log.Info("analysis created", "analysis_id", row.ID, "quiz_attempt_id", attemptID, "user_id", userID)
	return row, nil
}

// Resume returns the attempt's analysis when it is still processing, which is
// what a retried orchestrator run expects to find. Anything else is reported
// as analysisrepo.ErrAnalysisExists.
func (s *Service) Resume(ctx context.Context, attemptID uuid.UUID) (*domain.QuizAnalysis, error) {
	row, err := s.analyses.GetByAttemptID(dbctx.New(ctx), attemptID)
	if err != nil {
		return nil, err
	}
	if row == nil || row.Status != domain.AnalysisProcessing {
		return nil, analysisrepo.ErrAnalysisExists
	}
	return row, nil
}

func (s *Service) GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*domain.QuizAnalysis, error) {
	return s.analyses.GetByAttemptID(dbctx.New(ctx), attemptID)
}

func (s *Service) FetchQuizData(ctx context.Context, attemptID uuid.UUID) (*QuizData, error) {
	return s.formatter.Format(ctx, attemptID)
}

func (s *Service) ResolveTier(ctx context.Context, userID uuid.UUID) TierResult {
	return s.tiers.Resolve(ctx, userID)
}

func (s *Service) RecordTier(ctx context.Context, analysisID uuid.UUID, tr TierResult) error {
	status := domain.TierStatusConfirmed
	if !tr.Known {
		status = domain.TierStatusUnknown
	}
	return s.analyses.UpdateTier(dbctx.New(ctx), analysisID, string(tr.Tier), status)
}

type RunInput struct {
	AnalysisID uuid.UUID
	Analyzer   string
	Data       *QuizData
	Tier       Tier
	// Attempt is the retry attempt number, recorded on the fact.
	Attempt int
}

// Run executes one analyzer and appends its fact. Retryable failures are
// recorded as a failed fact and returned. A prior success for the same analysis
// is returned as-is so a redelivered run cannot double count topic mastery.
func (s *Service) Run(ctx context.Context, in RunInput) (*Outcome, error) {
	if !KnownAnalyzer(in.Analyzer) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnalyzer, in.Analyzer)
	}
	if in.Data == nil {
		return nil, fmt.Errorf("%s: quiz data is required", in.Analyzer)
	}
	dbc := dbctx.New(ctx)
	latest, err := s.results.LatestByAnalysis(dbc, in.AnalysisID)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}
	if f := latest[in.Analyzer]; f != nil && f.Status == StatusSucceeded {
		return &Outcome{Analyzer: in.Analyzer, Status: StatusSucceeded, Payload: json.RawMessage(f.Payload)}, nil
	}

	if IsAIAnalyzer(in.Analyzer) && !in.Tier.Premium() {
		out := &Outcome{Analyzer: in.Analyzer, Status: StatusSkipped}
		return out, s.appendFact(dbc, in, out, 0)
	}

	if s.ai == nil && in.Analyzer != AnalyzerCategoryScores && in.Analyzer != AnalyzerTimeEfficiency {
		return nil, fmt.Errorf("%s: no language model configured", in.Analyzer)
	}

	start := time.Now()
	var payload any
	switch in.Analyzer {
	case AnalyzerCategoryScores:
		payload = ScoreCategories(in.Data)
	case AnalyzerTimeEfficiency:
		payload = ScoreTimeEfficiency(in.Data)
	case AnalyzerStrengthsWeaknesses:
		payload, err = s.ai.StrengthsWeaknesses(ctx, in.Data)
	case AnalyzerRecommendations:
		var prior []string
		if prior, err = s.priorWeaknesses(ctx, in.Data); err == nil {
			payload, err = s.ai.Recommendations(ctx, in.Data, prior)
		}
	case AnalyzerTopicMastery:
		return s.runTopicMastery(ctx, in, start)
	}
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		s.log.Warn("analyzer failed", "analyzer", in.Analyzer, "analysis_id", in.AnalysisID, "attempt", in.Attempt, "error", err)
		out := &Outcome{Analyzer: in.Analyzer, Status: StatusFailed, Error: err.Error()}
		if ferr := s.appendFact(dbc, in, out, elapsed); ferr != nil {
			return nil, errors.Join(err, ferr)
		}
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", in.Analyzer, err)
	}
	out := &Outcome{Analyzer: in.Analyzer, Status: StatusSucceeded, Payload: raw}
	if err := s.appendFact(dbc, in, out, elapsed); err != nil {
		return nil, err
	}
	return out, nil
}

// runTopicMastery folds topic scores and appends the fact in one transaction.
func (s *Service) runTopicMastery(ctx context.Context, in RunInput, start time.Time) (*Outcome, error) {
	groups, err := s.ai.TopicGroups(ctx, in.Data)
	if err != nil {
		s.log.Warn("analyzer failed", "analyzer", in.Analyzer, "analysis_id", in.AnalysisID, "attempt", in.Attempt, "error", err)
		out := &Outcome{Analyzer: in.Analyzer, Status: StatusFailed, Error: err.Error()}
		if ferr := s.appendFact(dbctx.New(ctx), in, out, time.Since(start).Milliseconds()); ferr != nil {
			return nil, errors.Join(err, ferr)
		}
		return nil, err
	}
	scores := ScoreTopics(in.Data, groups)
	topics := make([]string, 0, len(scores))
	for _, sc := range scores {
		topics = append(topics, sc.Topic)
	}

	var out *Outcome
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		existing, err := s.mastery.GetByUserAndTopics(dbc, in.Data.User.ID, topics)
		if err != nil {
			return fmt.Errorf("load topic mastery: %w", err)
		}
		rows := FoldMastery(in.Data.User.ID, existing, scores, s.now())
		if err := s.mastery.Upsert(dbc, rows); err != nil {
			return fmt.Errorf("upsert topic mastery: %w", err)
		}
		raw, err := json.Marshal(scores)
		if err != nil {
			return err
		}
		out = &Outcome{Analyzer: in.Analyzer, Status: StatusSucceeded, Payload: raw}
		return s.appendFact(dbc, in, out, time.Since(start).Milliseconds())
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) priorWeaknesses(ctx context.Context, data *QuizData) ([]string, error) {
	prev, err := s.analyses.GetLatestCompletedForUser(dbctx.New(ctx), data.User.ID, data.Attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("load previous analysis: %w", err)
	}
	if prev == nil || !hasJSON(prev.Weaknesses) {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(prev.Weaknesses, &out); err != nil {
		s.log.Warn("ignoring unreadable prior weaknesses", "analysis_id", prev.ID, "error", err)
		return nil, nil
	}
	return out, nil
}

func (s *Service) appendFact(dbc dbctx.Context, in RunInput, out *Outcome, elapsedMs int64) error {
	attempt := in.Attempt
	if attempt <= 0 {
		attempt = 1
	}
	row := &domain.AnalyzerResult{
		AnalysisID: in.AnalysisID,
		Analyzer:   in.Analyzer,
		Status:     out.Status,
		Attempt:    attempt,
		DurationMs: elapsedMs,
	}
	if len(out.Payload) > 0 {
		row.Payload = []byte(out.Payload)
	}
	if out.Error != "" {
		msg := out.Error
		row.Error = &msg
	}
	if err := s.results.Append(dbc, row); err != nil {
		return fmt.Errorf("append %s fact: %w", in.Analyzer, err)
	}
	return nil
}

type FinalizeInput struct {
	AnalysisID uuid.UUID
	StartedAt  time.Time
	Expected   []string
	Skipped    []string
	// Pending lists analyzers that had not settled when the join timed out.
	Pending []string
}

type FinalizeResult struct {
	Status           string            `json:"status"`
	Error            string            `json:"error,omitempty"`
	AnalyzerStatus   map[string]string `json:"analyzer_status"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
}

// Finalize projects the facts and settles the analysis exactly once. Calling it
// on an already terminal analysis returns the stored outcome.
func (s *Service) Finalize(ctx context.Context, in FinalizeInput) (*FinalizeResult, error) {
	var res *FinalizeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		view, err := s.analyses.GetForUpdate(dbc, in.AnalysisID)
		if err != nil {
			return err
		}
		if view == nil {
			return fmt.Errorf("analysis %s not found", in.AnalysisID)
		}
		if view.Status == domain.AnalysisCompleted || view.Status == domain.AnalysisFailed {
			res = storedResult(view)
			return nil
		}
		facts, err := s.results.LatestByAnalysis(dbc, in.AnalysisID)
		if err != nil {
			return err
		}
		if err := ApplyFacts(view, facts); err != nil {
			return err
		}
		statuses := AnalyzerStatuses(facts, in.Expected, in.Skipped, in.Pending)
		status, msg := Decide(view, in.Pending)

		now := s.now()
		elapsed := now.Sub(in.StartedAt).Milliseconds()
		if in.StartedAt.IsZero() || elapsed < 0 {
			elapsed = now.Sub(view.CreatedAt).Milliseconds()
		}
		view.Status = status
		view.AnalyzerStatus = mustJSON(statuses)
		view.ProcessingTimeMs = &elapsed
		view.CompletedAt = &now
		view.Error = nil
		if msg != "" {
			view.Error = &msg
		}
		if err := s.analyses.SaveView(dbc, view); err != nil {
			return err
		}
		res = &FinalizeResult{Status: status, Error: msg, AnalyzerStatus: statuses, ProcessingTimeMs: elapsed}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("finalize analysis %s: %w", in.AnalysisID, err)
	}
	s.log.Info("analysis finalized", "analysis_id", in.AnalysisID, "status", res.Status, "processing_ms", res.ProcessingTimeMs)
	return res, nil
}

// MarkFailed settles a processing analysis as failed without projecting.
func (s *Service) MarkFailed(ctx context.Context, analysisID uuid.UUID, reason string) error {
	dbc := dbctx.New(ctx)
	view, err := s.analyses.GetByID(dbc, analysisID)
	if err != nil {
		return err
	}
	if view == nil || view.Status == domain.AnalysisCompleted || view.Status == domain.AnalysisFailed {
		return nil
	}
	now := s.now()
	elapsed := now.Sub(view.CreatedAt).Milliseconds()
	view.Status = domain.AnalysisFailed
	view.Error = &reason
	view.CompletedAt = &now
	view.ProcessingTimeMs = &elapsed
	return s.analyses.SaveView(dbc, view)
}

// Reproject folds facts that settled after the analysis was finalized into
// its view. A failed analysis whose required data has since arrived is
// promoted to completed. A view still processing is returned untouched;
// Finalize will read the same facts.
func (s *Service) Reproject(ctx context.Context, analysisID uuid.UUID) (*domain.QuizAnalysis, error) {
	var view *domain.QuizAnalysis
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		v, err := s.analyses.GetForUpdate(dbc, analysisID)
		if err != nil || v == nil {
			return err
		}
		if v.Status == domain.AnalysisProcessing {
			view = v
			return nil
		}
		facts, err := s.results.LatestByAnalysis(dbc, analysisID)
		if err != nil {
			return err
		}
		if err := ApplyFacts(v, facts); err != nil {
			return err
		}
		statuses := map[string]string{}
		if hasJSON(v.AnalyzerStatus) {
			_ = json.Unmarshal(v.AnalyzerStatus, &statuses)
		}
		for name, f := range facts {
			statuses[name] = f.Status
		}
		v.AnalyzerStatus = mustJSON(statuses)
		if v.Status == domain.AnalysisFailed && HasRequired(v) {
			now := s.now()
			v.Status = domain.AnalysisCompleted
			v.Error = nil
			v.CompletedAt = &now
		}
		view = v
		return s.analyses.SaveView(dbc, v)
	})
	if err != nil {
		return nil, fmt.Errorf("reproject analysis %s: %w", analysisID, err)
	}
	return view, nil
}

func storedResult(view *domain.QuizAnalysis) *FinalizeResult {
	res := &FinalizeResult{Status: view.Status, AnalyzerStatus: map[string]string{}}
	if view.Error != nil {
		res.Error = *view.Error
	}
	if view.ProcessingTimeMs != nil {
		res.ProcessingTimeMs = *view.ProcessingTimeMs
	}
	if hasJSON(view.AnalyzerStatus) {
		_ = json.Unmarshal(view.AnalyzerStatus, &res.AnalyzerStatus)
	}
	return res
}
