package gamification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/certquiz-backend/internal/config"
	repos "github.com/yungbote/certquiz-backend/internal/data/repos/gamification"
	"github.com/yungbote/certquiz-backend/internal/data/repos/testutil"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
)

var testCfg = config.GamificationConfig{
	Timezone:       "UTC",
	QuizBaseXP:     25,
	XPPerCorrect:   2,
	PerfectBonusXP: 20,
	QuestionXP:     2,
	FlashcardXP:    1,
	LoginXP:        5,
	DailyGoalXP:    50,
}

type recorderFixture struct {
	rec   *Recorder
	daily repos.DailyActivityRepo
	txns  repos.XPTransactionRepo
	board *Leaderboard
	clock *time.Time
}

func newRecorder(t *testing.T, rdb *goredis.Client) *recorderFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	xp := repos.NewUserXPRepo(db, log)
	daily := repos.NewDailyActivityRepo(db, log)
	txns := repos.NewXPTransactionRepo(db, log)
	board := NewLeaderboard(rdb, xp, log)
	rec, err := NewRecorder(RecorderDeps{
		DB:           db,
		Streaks:      repos.NewUserStreakRepo(db, log),
		XP:           xp,
		Daily:        daily,
		Transactions: txns,
		Leaderboard:  board,
		Config:       testCfg,
		Log:          log,
	})
	require.NoError(t, err)
	clock := day0
	rec.now = func() time.Time { return clock }
	return &recorderFixture{rec: rec, daily: daily, txns: txns, board: board, clock: &clock}
}

func TestRecordQuizActivity(t *testing.T) {
	f := newRecorder(t, nil)
	ctx := context.Background()
	userID := uuid.New()

	xp := QuizXP(testCfg, 7, 10)
	require.Equal(t, 39, xp)
	res, err := f.rec.Record(ctx, userID, KindQuiz, xp, Meta{QuestionsAnswered: 10, TimeSpentSeconds: 500})
	require.NoError(t, err)
	assert.True(t, res.XPAwarded)
	assert.Equal(t, 1, res.CurrentStreak)
	assert.Equal(t, 39, res.TotalXP)
	assert.Equal(t, 1, res.NewLevel)
	assert.False(t, res.LeveledUp)
	assert.False(t, res.GoalMet)

	res, err = f.rec.Record(ctx, userID, KindQuiz, QuizXP(testCfg, 10, 10), Meta{QuestionsAnswered: 10, TimeSpentSeconds: 300})
	require.NoError(t, err)
	assert.Equal(t, 104, res.TotalXP)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 2, res.NewLevel)
	assert.True(t, res.GoalMet)
	assert.Equal(t, 1, res.CurrentStreak, "same day keeps the streak")

	day, err := f.daily.Get(dbctx.New(ctx), userID, "2026-05-04")
	require.NoError(t, err)
	require.NotNil(t, day)
	assert.Equal(t, 2, day.QuizzesCompleted)
	assert.Equal(t, 20, day.QuestionsAnswered)
	assert.Equal(t, 800, day.TimeSpentSeconds)
	assert.Equal(t, 104, day.XPEarned)
	assert.Equal(t, 50, day.GoalXP)

	sum, err := f.txns.SumByUser(dbctx.New(ctx), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(104), sum)
}

func TestRecordStreakAcrossDays(t *testing.T) {
	f := newRecorder(t, nil)
	ctx := context.Background()
	userID := uuid.New()

	for d := 0; d < 7; d++ {
		*f.clock = at(d, 12)
		res, err := f.rec.Record(ctx, userID, KindLogin, ActivityXP(testCfg, KindLogin, 1), Meta{})
		require.NoError(t, err)
		assert.Equal(t, d+1, res.CurrentStreak)
		assert.Equal(t, d == 6, res.FreezeGranted)
	}

	*f.clock = at(9, 12)
	res, err := f.rec.Record(ctx, userID, KindFlashcard, 0, Meta{FlashcardsReviewed: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CurrentStreak)
	assert.Equal(t, 7, res.LongestStreak)
	assert.False(t, res.XPAwarded)

	txns, err := f.txns.ListByUser(dbctx.New(ctx), userID, 0)
	require.NoError(t, err)
	assert.Len(t, txns, 7, "zero-xp activities are not logged")
}

func TestRecordJoinsRowsCreatedByAnotherRequest(t *testing.T) {
	f := newRecorder(t, nil)
	ctx := context.Background()
	userID := uuid.New()

	// Another request inserted today's bucket and committed first.
	require.NoError(t, f.daily.Save(dbctx.New(ctx), &domain.DailyActivity{
		UserID: userID, ActivityDate: "2026-05-04", Logins: 1, XPEarned: 5, GoalXP: 50,
	}))

	res, err := f.rec.Record(ctx, userID, KindQuestion, ActivityXP(testCfg, KindQuestion, 1), Meta{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalXP)
	assert.Equal(t, 1, res.CurrentStreak)

	day, err := f.daily.Get(dbctx.New(ctx), userID, "2026-05-04")
	require.NoError(t, err)
	require.NotNil(t, day)
	assert.Equal(t, 1, day.Logins)
	assert.Equal(t, 1, day.QuestionsAnswered)
	assert.Equal(t, 7, day.XPEarned)
}

func TestRecordRejectsBadInput(t *testing.T) {
	f := newRecorder(t, nil)
	ctx := context.Background()

	_, err := f.rec.Record(ctx, uuid.Nil, KindQuiz, 10, Meta{})
	assert.ErrorIs(t, err, ErrInvalidActivity)
	_, err = f.rec.Record(ctx, uuid.New(), Kind("nap"), 10, Meta{})
	assert.ErrorIs(t, err, ErrInvalidActivity)
	_, err = f.rec.Record(ctx, uuid.New(), KindQuiz, -1, Meta{})
	assert.ErrorIs(t, err, ErrInvalidActivity)
}

func TestActivityXP(t *testing.T) {
	assert.Equal(t, 6, ActivityXP(testCfg, KindQuestion, 3))
	assert.Equal(t, 1, ActivityXP(testCfg, KindFlashcard, 0))
	assert.Equal(t, 5, ActivityXP(testCfg, KindLogin, 9))
	assert.Equal(t, 0, ActivityXP(testCfg, KindQuiz, 1))
	assert.Equal(t, 65, QuizXP(testCfg, 10, 10))
}

func TestLeaderboardFallsBackToDatabase(t *testing.T) {
	// nothing listens on port 1; every redis call fails fast
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newRecorder(t, rdb)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	_, err := f.rec.Record(ctx, a, KindQuiz, 30, Meta{})
	require.NoError(t, err, "leaderboard failures never fail the activity")
	_, err = f.rec.Record(ctx, b, KindQuiz, 120, Meta{})
	require.NoError(t, err)

	top, err := f.board.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, b, top[0].UserID)
	assert.Equal(t, int64(1), top[0].Rank)
	assert.Equal(t, 2, top[0].Level)

	rank, err := f.board.Rank(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rank)

	rank, err = f.board.Rank(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, rank)
}
