package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	redisclient "github.com/yungbote/certquiz-backend/internal/clients/redis"
	analysisrepo "github.com/yungbote/certquiz-backend/internal/data/repos/analysis"
	gamerepo "github.com/yungbote/certquiz-backend/internal/data/repos/gamification"
	"github.com/yungbote/certquiz-backend/internal/data/repos/learning"
	"github.com/yungbote/certquiz-backend/internal/data/repos/quiz"
	"github.com/yungbote/certquiz-backend/internal/data/repos/testutil"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/gamification"
	"github.com/yungbote/certquiz-backend/internal/realtime"
	"github.com/yungbote/certquiz-backend/internal/realtime/bus"
)

func newDashboard(t *testing.T, db *gorm.DB) (DashboardService, *bus.Memory) {
	return newDashboardWithRedis(t, db, nil)
}

func newDashboardWithRedis(t *testing.T, db *gorm.DB, rdb *goredis.Client) (DashboardService, *bus.Memory) {
	t.Helper()
	log := testutil.Logger(t)
	xp := gamerepo.NewUserXPRepo(db, log)
	mem := bus.NewMemory()
	svc := NewDashboardService(DashboardDeps{
		Attempts:    quiz.NewQuizAttemptRepo(db, log),
		Analyses:    analysisrepo.NewQuizAnalysisRepo(db, log),
		Mastery:     learning.NewTopicMasteryRepo(db, log),
		Streaks:     gamerepo.NewUserStreakRepo(db, log),
		XP:          xp,
		Daily:       gamerepo.NewDailyActivityRepo(db, log),
		Leaderboard: gamification.NewLeaderboard(nil, xp, log),
		Cache:       redisclient.NewJSONCache(rdb, "dashboard:snapshot:", 24*time.Hour),
		Debouncer:   redisclient.NewDebouncer(rdb, "dashboard:debounce:"),
		Bus:         mem,
		Log:         log,
	})
	return svc, mem
}

func TestDashboardSnapshotAggregates(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	svc, _ := newDashboard(t, db)

	user := testutil.SeedUser(t, ctx, db, "dash-"+uuid.NewString()+"@example.com")
	cat := testutil.SeedCategory(t, ctx, db, "EC2")
	q := testutil.SeedQuiz(t, ctx, db, "Compute", cat, 4)
	attempt := testutil.SeedAttempt(t, ctx, db, user.ID, q, 3, 240)
	testutil.SeedAttempt(t, ctx, db, user.ID, q, 1, 300)

	score := 75
	insight := "Solid on compute."
	now := time.Now().UTC()
	require.NoError(t, db.Create(&domain.QuizAnalysis{
		QuizAttemptID: attempt.ID,
		UserID:        user.ID,
		Status:        domain.AnalysisCompleted,
		OverallScore:  &score,
		Insight:       &insight,
		Weaknesses:    []byte(`["IAM policies"]`),
		CompletedAt:   &now,
	}).Error)
	require.NoError(t, db.Create(&domain.TopicMastery{UserID: user.ID, Topic: "VPC", MasteryScore: 20, Trend: domain.TrendDeclining, LastPracticedAt: now}).Error)
	require.NoError(t, db.Create(&domain.TopicMastery{UserID: user.ID, Topic: "S3", MasteryScore: 90, Trend: domain.TrendStable, LastPracticedAt: now}).Error)
	require.NoError(t, db.Create(&domain.UserStreak{UserID: user.ID, CurrentStreak: 4, LongestStreak: 9, StreakFreezes: 1}).Error)
	require.NoError(t, db.Create(&domain.UserXP{UserID: user.ID, TotalXP: 150, Level: 2}).Error)

	snap, err := svc.Snapshot(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, snap.Attempts)
	assert.InDelta(t, 50.0, snap.AveragePercentage, 0.01)
	require.NotNil(t, snap.LatestAnalysis)
	assert.Equal(t, attempt.ID, snap.LatestAnalysis.QuizAttemptID)
	assert.Equal(t, []string{"IAM policies"}, snap.LatestAnalysis.Weaknesses)
	require.Len(t, snap.WeakestTopics, 2)
	assert.Equal(t, "VPC", snap.WeakestTopics[0].Topic)
	assert.Equal(t, 4, snap.CurrentStreak)
	assert.Equal(t, 9, snap.LongestStreak)
	assert.Equal(t, 2, snap.Level.Level)
	assert.EqualValues(t, 1, snap.Rank)
	assert.Nil(t, snap.Today)
}

func TestDashboardSnapshotEmptyUser(t *testing.T) {
	db := testutil.DB(t)
	svc, _ := newDashboard(t, db)

	snap, err := svc.Snapshot(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, snap.Attempts)
	assert.Nil(t, snap.LatestAnalysis)
	assert.Empty(t, snap.WeakestTopics)
	assert.Equal(t, 1, snap.Level.Level)
}

func TestDashboardRefreshPublishes(t *testing.T) {
	db := testutil.DB(t)
	svc, mem := newDashboard(t, db)
	userID := uuid.New()

	_, err := svc.Refresh(context.Background(), userID)
	require.NoError(t, err)

	msgs := mem.Published()
	require.Len(t, msgs, 1)
	assert.Equal(t, realtime.UserChannel(userID), msgs[0].Channel)
	assert.Equal(t, realtime.EventDashboardUpdated, msgs[0].Event)
}

func TestDashboardAcquireWithoutRedis(t *testing.T) {
	db := testutil.DB(t)
	svc, _ := newDashboard(t, db)

	ok, err := svc.AcquireRefresh(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDashboardReflectsActivityAfterDebouncedRefresh(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	dash, _ := newDashboardWithRedis(t, db, rdb)

	xp := gamerepo.NewUserXPRepo(db, log)
	streaks := gamerepo.NewUserStreakRepo(db, log)
	daily := gamerepo.NewDailyActivityRepo(db, log)
	txns := gamerepo.NewXPTransactionRepo(db, log)
	rec, err := gamification.NewRecorder(gamification.RecorderDeps{
		DB: db, Streaks: streaks, XP: xp, Daily: daily, Transactions: txns,
		Config: activityCfg, Log: log,
	})
	require.NoError(t, err)
	game := NewGamificationService(GamificationDeps{
		Recorder: rec, Streaks: streaks, XP: xp, Daily: daily, Transactions: txns,
		Mastery: learning.NewTopicMasteryRepo(db, log), Dashboard: dash,
		Config: activityCfg, Log: log,
	})
	userID := uuid.New()

	// A login refreshes the cache and takes the debounce window.
	_, err = game.RecordActivity(ctx, userID, ActivityInput{Kind: "login"})
	require.NoError(t, err)
	ok, err := dash.AcquireRefresh(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = dash.Refresh(ctx, userID)
	require.NoError(t, err)
	assert.True(t, mr.Exists("dashboard:snapshot:"+userID.String()))

	// A question two minutes later is debounced, so no refresh runs.
	mr.FastForward(2 * time.Minute)
	_, err = game.RecordActivity(ctx, userID, ActivityInput{Kind: "question", Count: 3})
	require.NoError(t, err)
	ok, err = dash.AcquireRefresh(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)

	snap, err := dash.Snapshot(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 11, snap.Level.TotalXP)
	require.NotNil(t, snap.Today)
	assert.Equal(t, 3, snap.Today.QuestionsAnswered)
	assert.True(t, mr.Exists("dashboard:snapshot:"+userID.String()), "the rebuilt snapshot is cached again")
}
