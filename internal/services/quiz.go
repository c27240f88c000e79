package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/analysis"
	"github.com/yungbote/certquiz-backend/internal/config"
	analysisrepo "github.com/yungbote/certquiz-backend/internal/data/repos/analysis"
	"github.com/yungbote/certquiz-backend/internal/data/repos/quiz"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/events"
	"github.com/yungbote/certquiz-backend/internal/gamification"
	"github.com/yungbote/certquiz-backend/internal/platform/apierr"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

// EventSender is satisfied by *events.Dispatcher.
type EventSender interface {
	Send(ctx context.Context, ev events.Event) (string, error)
}

// ActivityRecorder is satisfied by *gamification.Recorder.
type ActivityRecorder interface {
	Record(ctx context.Context, userID uuid.UUID, kind gamification.Kind, xp int, meta gamification.Meta) (*gamification.Result, error)
}

type AnswerInput struct {
	QuestionID        uuid.UUID   `json:"question_id"`
	SelectedOptionIDs []uuid.UUID `json:"selected_option_ids"`
	TimeSpentSeconds  int         `json:"time_spent_seconds"`
}

type SubmitAttemptInput struct {
	QuizID           uuid.UUID     `json:"quiz_id"`
	StartedAt        *time.Time    `json:"started_at,omitempty"`
	TimeSpentSeconds int           `json:"time_spent_seconds"`
	Answers          []AnswerInput `json:"answers"`
}

const (
	AnalysisQueued    = "queued"
	AnalysisNotQueued = "not_queued"
)

type SubmitAttemptResult struct {
	Attempt        *domain.QuizAttempt  `json:"attempt"`
	Gamification   *gamification.Result `json:"gamification,omitempty"`
	AnalysisStatus string               `json:"analysis_status"`
}

type QuizService interface {
	ListQuizzes(ctx context.Context, certification string) ([]*domain.Quiz, error)
	GetQuiz(ctx context.Context, id uuid.UUID) (*domain.Quiz, error)
	GetAttempt(ctx context.Context, userID, attemptID uuid.UUID) (*domain.QuizAttempt, error)
	SubmitAttempt(ctx context.Context, userID uuid.UUID, in SubmitAttemptInput) (*SubmitAttemptResult, error)
	GetAnalysis(ctx context.Context, userID, attemptID uuid.UUID) (*domain.QuizAnalysis, error)
	RequestAnalysis(ctx context.Context, userID, attemptID uuid.UUID) error
}

type QuizDeps struct {
	DB       *gorm.DB
	Quizzes  quiz.QuizRepo
	Attempts quiz.QuizAttemptRepo
	Analyses analysisrepo.QuizAnalysisRepo
	Recorder ActivityRecorder
	Events   EventSender
	// Dashboard is optional; its cached snapshot is dropped after each attempt.
	Dashboard DashboardInvalidator
	Config    config.GamificationConfig
	Log       *logger.Logger
}

type quizService struct {
	d   QuizDeps
	log *logger.Logger
	now func() time.Time
}

func NewQuizService(d QuizDeps) QuizService {
	return &quizService{d: d, log: d.Log.With("service", "QuizService"), now: time.Now}
}

func (s *quizService) ListQuizzes(ctx context.Context, certification string) ([]*domain.Quiz, error) {
	return s.d.Quizzes.ListPublished(dbctx.New(ctx), certification)
}

func (s *quizService) GetQuiz(ctx context.Context, id uuid.UUID) (*domain.Quiz, error) {
	q, err := s.d.Quizzes.GetWithQuestions(dbctx.New(ctx), id)
	if err != nil {
		return nil, err
	}
	if q == nil || !q.Published {
		return nil, apierr.NotFound("quiz_not_found", fmt.Errorf("quiz %s not found", id))
	}
	return q, nil
}

func (s *quizService) GetAttempt(ctx context.Context, userID, attemptID uuid.UUID) (*domain.QuizAttempt, error) {
	a, err := s.d.Attempts.GetByID(dbctx.New(ctx), attemptID)
	if err != nil {
		return nil, err
	}
	if a == nil || a.UserID != userID {
		return nil, apierr.NotFound("attempt_not_found", fmt.Errorf("quiz attempt %s not found", attemptID))
	}
	return a, nil
}

// SubmitAttempt grades answers against the stored options, persists the attempt,
// then records gamification and emits quiz/completed. Only grading and
// persistence can fail the request.
func (s *quizService) SubmitAttempt(ctx context.Context, userID uuid.UUID, in SubmitAttemptInput) (*SubmitAttemptResult, error) {
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthorized", errors.New("missing user"))
	}
	q, err := s.GetQuiz(ctx, in.QuizID)
	if err != nil {
		return nil, err
	}
	attempt, err := gradeAttempt(q, userID, in, s.now().UTC())
	if err != nil {
		return nil, apierr.BadRequest("invalid_answers", err)
	}

	if err := s.d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.d.Attempts.Create(dbctx.WithTx(ctx, tx), attempt)
	}); err != nil {
		return nil, fmt.Errorf("save quiz attempt: %w", err)
	}

	out := &SubmitAttemptResult{Attempt: attempt, AnalysisStatus: AnalysisNotQueued}
	if s.d.Recorder != nil {
		xp := gamification.QuizXP(s.d.Config, attempt.Score, len(attempt.Questions))
		res, err := s.d.Recorder.Record(ctx, userID, gamification.KindQuiz, xp, gamification.Meta{
			QuestionsAnswered: len(attempt.Questions),
			TimeSpentSeconds:  attempt.TimeSpentSeconds,
			Description:       q.Title,
			Extra:             map[string]any{"quiz_attempt_id": attempt.ID.String()},
		})
		if err != nil {
			s.log.Warn("gamification record failed", "user_id", userID, "attempt_id", attempt.ID, "error", err)
		} else {
			out.Gamification = res
			invalidateDashboard(ctx, s.d.Dashboard, s.log, userID)
		}
	}
	if s.d.Events != nil {
		if _, err := s.d.Events.Send(ctx, events.NewQuizCompleted(userID, attempt.ID)); err != nil {
			s.log.Warn("quiz/completed not dispatched", "attempt_id", attempt.ID, "error", err)
		} else {
			out.AnalysisStatus = AnalysisQueued
		}
	}
	return out, nil
}

// GetAnalysis returns a pending placeholder while the orchestrator has not yet
// created the row.
func (s *quizService) GetAnalysis(ctx context.Context, userID, attemptID uuid.UUID) (*domain.QuizAnalysis, error) {
	if _, err := s.GetAttempt(ctx, userID, attemptID); err != nil {
		return nil, err
	}
	row, err := s.d.Analyses.GetByAttemptID(dbctx.New(ctx), attemptID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return &domain.QuizAnalysis{QuizAttemptID: attemptID, UserID: userID, Status: domain.AnalysisPending}, nil
	}
	return row, nil
}

func (s *quizService) RequestAnalysis(ctx context.Context, userID, attemptID uuid.UUID) error {
	if _, err := s.GetAttempt(ctx, userID, attemptID); err != nil {
		return err
	}
	existing, err := s.d.Analyses.GetByAttemptID(dbctx.New(ctx), attemptID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apierr.Conflict("analysis_exists", analysisrepo.ErrAnalysisExists)
	}
	if s.d.Events == nil {
		return apierr.Internal("events_unavailable", errors.New("event dispatcher not configured"))
	}
	if _, err := s.d.Events.Send(ctx, events.NewQuizCompleted(userID, attemptID)); err != nil {
		if errors.Is(err, events.ErrAlreadyStarted) {
			return apierr.Conflict("analysis_exists", err)
		}
		return fmt.Errorf("request analysis: %w", err)
	}
	return nil
}

// gradeAttempt marks a question correct only when the selected option set equals
// the correct option set. Unanswered questions are recorded as incorrect.
func gradeAttempt(q *domain.Quiz, userID uuid.UUID, in SubmitAttemptInput, now time.Time) (*domain.QuizAttempt, error) {
	if len(q.Questions) == 0 {
		return nil, errors.New("quiz has no questions")
	}
	answers := make(map[uuid.UUID]AnswerInput, len(in.Answers))
	known := make(map[uuid.UUID]*domain.Question, len(q.Questions))
	for _, qq := range q.Questions {
		known[qq.ID] = qq
	}
	for _, a := range in.Answers {
		if _, ok := known[a.QuestionID]; !ok {
			return nil, fmt.Errorf("question %s is not part of quiz %s", a.QuestionID, q.ID)
		}
		answers[a.QuestionID] = a
	}

	attempt := &domain.QuizAttempt{UserID: userID, QuizID: q.ID, CompletedAt: &now}
	total := in.TimeSpentSeconds
	sumPerQuestion := 0
	for _, qq := range q.Questions {
		a := answers[qq.ID]
		correct := sameOptions(a.SelectedOptionIDs, qq.Options)
		selected := a.SelectedOptionIDs
		if selected == nil {
			selected = []uuid.UUID{}
		}
		raw, err := json.Marshal(selected)
		if err != nil {
			return nil, err
		}
		if correct {
			attempt.Score++
		}
		sumPerQuestion += a.TimeSpentSeconds
		attempt.Questions = append(attempt.Questions, &domain.QuestionAttempt{
			QuestionID:        qq.ID,
			Position:          qq.Position,
			SelectedOptionIDs: datatypes.JSON(raw),
			IsCorrect:         correct,
			TimeSpentSeconds:  a.TimeSpentSeconds,
		})
	}
	if total <= 0 {
		total = sumPerQuestion
	}
	attempt.TimeSpentSeconds = total
	attempt.Percentage = analysis.Percent(attempt.Score, len(q.Questions))
	if in.StartedAt != nil {
		attempt.StartedAt = in.StartedAt.UTC()
	} else {
		attempt.StartedAt = now.Add(-time.Duration(total) * time.Second)
	}
	return attempt, nil
}

func sameOptions(selected []uuid.UUID, options []*domain.QuestionOption) bool {
	want := map[uuid.UUID]bool{}
	valid := map[uuid.UUID]bool{}
	for _, o := range options {
		valid[o.ID] = true
		if o.IsCorrect {
			want[o.ID] = true
		}
	}
	got := map[uuid.UUID]bool{}
	for _, id := range selected {
		if !valid[id] {
			return false
		}
		got[id] = true
	}
	if len(got) != len(want) || len(want) == 0 {
		return false
	}
	for id := range want {
		if !got[id] {
			return false
		}
	}
	return true
}
