package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/config"
	analysisrepo "github.com/yungbote/certquiz-backend/internal/data/repos/analysis"
	"github.com/yungbote/certquiz-backend/internal/data/repos/quiz"
	"github.com/yungbote/certquiz-backend/internal/data/repos/testutil"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/events"
	"github.com/yungbote/certquiz-backend/internal/gamification"
	"github.com/yungbote/certquiz-backend/internal/platform/apierr"
)

type fakeSender struct {
	sent []events.Event
	err  error
}

func (f *fakeSender) Send(ctx context.Context, ev events.Event) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, ev)
	return "run-" + uuid.NewString(), nil
}

type fakeRecorder struct {
	calls int
	xp    int
	err   error
}

func (f *fakeRecorder) Record(ctx context.Context, userID uuid.UUID, kind gamification.Kind, xp int, meta gamification.Meta) (*gamification.Result, error) {
	f.calls++
	f.xp = xp
	if f.err != nil {
		return nil, f.err
	}
	return &gamification.Result{XPAwarded: xp > 0, XP: xp, TotalXP: xp, CurrentStreak: 1}, nil
}

type fakeInvalidator struct {
	users []uuid.UUID
	err   error
}

func (f *fakeInvalidator) Invalidate(_ context.Context, userID uuid.UUID) error {
	f.users = append(f.users, userID)
	return f.err
}

var quizGamCfg = config.GamificationConfig{QuizBaseXP: 25, XPPerCorrect: 2, PerfectBonusXP: 20}

type quizFixture struct {
	db       *gorm.DB
	svc      QuizService
	sender   *fakeSender
	recorder *fakeRecorder
	dash     *fakeInvalidator
	quiz     *domain.Quiz
	userID   uuid.UUID
}

func newQuizFixture(t *testing.T) *quizFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, db, "quiz-"+uuid.NewString()+"@example.com")
	cat := testutil.SeedCategory(t, ctx, db, "IAM")
	q := testutil.SeedQuiz(t, ctx, db, "Identity", cat, 3)
	sender := &fakeSender{}
	rec := &fakeRecorder{}
	dash := &fakeInvalidator{}
	svc := NewQuizService(QuizDeps{
		DB:        db,
		Quizzes:   quiz.NewQuizRepo(db, log),
		Attempts:  quiz.NewQuizAttemptRepo(db, log),
		Analyses:  analysisrepo.NewQuizAnalysisRepo(db, log),
		Recorder:  rec,
		Events:    sender,
		Dashboard: dash,
		Config:    quizGamCfg,
		Log:       log,
	})
	return &quizFixture{db: db, svc: svc, sender: sender, recorder: rec, dash: dash, quiz: q, userID: user.ID}
}

// answers picks the correct option for the first `correct` questions.
func (f *quizFixture) answers(correct int) []AnswerInput {
	var out []AnswerInput
	for i, q := range f.quiz.Questions {
		pick := q.Options[1].ID
		if i < correct {
			pick = q.Options[0].ID
		}
		out = append(out, AnswerInput{QuestionID: q.ID, SelectedOptionIDs: []uuid.UUID{pick}, TimeSpentSeconds: 40})
	}
	return out
}

func TestSubmitAttemptGradesAndEmits(t *testing.T) {
	f := newQuizFixture(t)
	ctx := context.Background()

	res, err := f.svc.SubmitAttempt(ctx, f.userID, SubmitAttemptInput{QuizID: f.quiz.ID, Answers: f.answers(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempt.Score)
	assert.Equal(t, 67, res.Attempt.Percentage)
	assert.Equal(t, 120, res.Attempt.TimeSpentSeconds)
	assert.Equal(t, AnalysisQueued, res.AnalysisStatus)
	require.NotNil(t, res.Gamification)
	assert.Equal(t, gamification.QuizXP(quizGamCfg, 2, 3), f.recorder.xp)
	assert.Equal(t, []uuid.UUID{f.userID}, f.dash.users, "cached dashboard is dropped")

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, events.QuizCompleted, f.sender.sent[0].Name)
	data := f.sender.sent[0].Data.(events.QuizCompletedData)
	assert.Equal(t, res.Attempt.ID, data.QuizAttemptID)

	var stored int64
	f.db.Model(&domain.QuestionAttempt{}).Where("quiz_attempt_id = ?", res.Attempt.ID).Count(&stored)
	assert.EqualValues(t, 3, stored)
}

func TestSubmitAttemptSideEffectsAreNonFatal(t *testing.T) {
	f := newQuizFixture(t)
	f.recorder.err = errors.New("db locked")
	f.sender.err = errors.New("temporal down")

	res, err := f.svc.SubmitAttempt(context.Background(), f.userID, SubmitAttemptInput{QuizID: f.quiz.ID, Answers: f.answers(3)})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Attempt.Percentage)
	assert.Nil(t, res.Gamification)
	assert.Equal(t, AnalysisNotQueued, res.AnalysisStatus)
	assert.Equal(t, 1, f.recorder.calls)
	assert.Empty(t, f.dash.users, "nothing changed, nothing to invalidate")
}

func TestSubmitAttemptRejectsForeignQuestion(t *testing.T) {
	f := newQuizFixture(t)
	answers := append(f.answers(1), AnswerInput{QuestionID: uuid.New()})

	_, err := f.svc.SubmitAttempt(context.Background(), f.userID, SubmitAttemptInput{QuizID: f.quiz.ID, Answers: answers})
	ae, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Empty(t, f.sender.sent)
}

func TestSubmitAttemptUnknownQuiz(t *testing.T) {
	f := newQuizFixture(t)
	_, err := f.svc.SubmitAttempt(context.Background(), f.userID, SubmitAttemptInput{QuizID: uuid.New()})
	ae, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, ae.Status)
}

func TestSameOptionsRequiresExactSet(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	opts := []*domain.QuestionOption{{ID: a, IsCorrect: true}, {ID: b, IsCorrect: true}, {ID: c}}

	assert.True(t, sameOptions([]uuid.UUID{b, a}, opts))
	assert.False(t, sameOptions([]uuid.UUID{a}, opts))
	assert.False(t, sameOptions([]uuid.UUID{a, b, c}, opts))
	assert.False(t, sameOptions([]uuid.UUID{a, b, uuid.New()}, opts))
	assert.False(t, sameOptions(nil, opts))
}

func TestGetAnalysisPendingPlaceholder(t *testing.T) {
	f := newQuizFixture(t)
	ctx := context.Background()
	attempt := testutil.SeedAttempt(t, ctx, f.db, f.userID, f.quiz, 2, 90)

	got, err := f.svc.GetAnalysis(ctx, f.userID, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisPending, got.Status)

	_, err = f.svc.GetAnalysis(ctx, uuid.New(), attempt.ID)
	ae, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, ae.Status)
}

func TestRequestAnalysisConflicts(t *testing.T) {
	f := newQuizFixture(t)
	ctx := context.Background()
	attempt := testutil.SeedAttempt(t, ctx, f.db, f.userID, f.quiz, 2, 90)

	require.NoError(t, f.svc.RequestAnalysis(ctx, f.userID, attempt.ID))
	require.Len(t, f.sender.sent, 1)

	f.sender.err = events.ErrAlreadyStarted
	err := f.svc.RequestAnalysis(ctx, f.userID, attempt.ID)
	ae, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, ae.Status)
	assert.Equal(t, "analysis_exists", ae.Code)

	f.sender.err = nil
	require.NoError(t, f.db.Create(&domain.QuizAnalysis{QuizAttemptID: attempt.ID, UserID: f.userID, Status: domain.AnalysisCompleted}).Error)
	err = f.svc.RequestAnalysis(ctx, f.userID, attempt.ID)
	ae, ok = apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, ae.Status)
	assert.ErrorIs(t, err, analysisrepo.ErrAnalysisExists)
	assert.Len(t, f.sender.sent, 1)
}
