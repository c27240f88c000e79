package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/certquiz-backend/internal/config"
	gamerepo "github.com/yungbote/certquiz-backend/internal/data/repos/gamification"
	"github.com/yungbote/certquiz-backend/internal/data/repos/learning"
	"github.com/yungbote/certquiz-backend/internal/data/repos/testutil"
	"github.com/yungbote/certquiz-backend/internal/events"
	"github.com/yungbote/certquiz-backend/internal/gamification"
	"github.com/yungbote/certquiz-backend/internal/platform/apierr"
)

var activityCfg = config.GamificationConfig{Timezone: "UTC", QuestionXP: 2, FlashcardXP: 1, LoginXP: 5, DailyGoalXP: 50}

func newGamificationService(t *testing.T) (GamificationService, *fakeSender) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	xp := gamerepo.NewUserXPRepo(db, log)
	streaks := gamerepo.NewUserStreakRepo(db, log)
	daily := gamerepo.NewDailyActivityRepo(db, log)
	txns := gamerepo.NewXPTransactionRepo(db, log)
	board := gamification.NewLeaderboard(nil, xp, log)
	rec, err := gamification.NewRecorder(gamification.RecorderDeps{
		DB: db, Streaks: streaks, XP: xp, Daily: daily, Transactions: txns,
		Leaderboard: board, Config: activityCfg, Log: log,
	})
	require.NoError(t, err)
	sender := &fakeSender{}
	svc := NewGamificationService(GamificationDeps{
		Recorder:     rec,
		Streaks:      streaks,
		XP:           xp,
		Daily:        daily,
		Transactions: txns,
		Mastery:      learning.NewTopicMasteryRepo(db, log),
		Leaderboard:  board,
		Events:       sender,
		Config:       activityCfg,
		Log:          log,
	})
	return svc, sender
}

func TestRecordActivityAndProfile(t *testing.T) {
	svc, sender := newGamificationService(t)
	ctx := context.Background()
	userID := uuid.New()

	res, err := svc.RecordActivity(ctx, userID, ActivityInput{Kind: "flashcard", Count: 12})
	require.NoError(t, err)
	assert.Equal(t, 12, res.XP)
	assert.Equal(t, 1, res.CurrentStreak)

	_, err = svc.RecordActivity(ctx, userID, ActivityInput{Kind: "login"})
	require.NoError(t, err)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, events.DashboardUpdateRequestedEvent, sender.sent[0].Name)

	p, err := svc.Profile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 17, p.Level.TotalXP)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.EqualValues(t, 1, p.Rank)
	require.NotNil(t, p.Today)
	assert.Equal(t, 12, p.Today.FlashcardsReviewed)
	assert.Equal(t, 1, p.Today.Logins)
	assert.Len(t, p.RecentTransactions, 2)

	top, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, userID, top[0].UserID)
}

func TestRecordActivityRejectsQuizAndUnknown(t *testing.T) {
	svc, sender := newGamificationService(t)
	for _, kind := range []string{"quiz", "video", ""} {
		_, err := svc.RecordActivity(context.Background(), uuid.New(), ActivityInput{Kind: kind})
		ae, ok := apierr.As(err)
		require.True(t, ok, kind)
		assert.Equal(t, http.StatusBadRequest, ae.Status)
	}
	assert.Empty(t, sender.sent)
}

func TestTopicMasteryEmpty(t *testing.T) {
	svc, _ := newGamificationService(t)
	rows, err := svc.TopicMastery(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
