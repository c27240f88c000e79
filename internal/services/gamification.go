package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/certquiz-backend/internal/config"
	gamerepo "github.com/yungbote/certquiz-backend/internal/data/repos/gamification"
	"github.com/yungbote/certquiz-backend/internal/data/repos/learning"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/events"
	"github.com/yungbote/certquiz-backend/internal/gamification"
	"github.com/yungbote/certquiz-backend/internal/platform/apierr"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

const recentTransactionLimit = 20

type ActivityInput struct {
	Kind             string `json:"kind"`
	Count            int    `json:"count"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
	Description      string `json:"description"`
}

type GamificationProfile struct {
	CurrentStreak      int                        `json:"current_streak"`
	LongestStreak      int                        `json:"longest_streak"`
	StreakFreezes      int                        `json:"streak_freezes"`
	LastActivityAt     *time.Time                 `json:"last_activity_at,omitempty"`
	Level              gamification.LevelProgress `json:"level"`
	Rank               int64                      `json:"rank"`
	Today              *domain.DailyActivity      `json:"today,omitempty"`
	RecentTransactions []*domain.XPTransaction    `json:"recent_transactions"`
}

type GamificationService interface {
	RecordActivity(ctx context.Context, userID uuid.UUID, in ActivityInput) (*gamification.Result, error)
	Profile(ctx context.Context, userID uuid.UUID) (*GamificationProfile, error)
	Leaderboard(ctx context.Context, limit int) ([]gamification.LeaderboardEntry, error)
	TopicMastery(ctx context.Context, userID uuid.UUID) ([]*domain.TopicMastery, error)
}

type GamificationDeps struct {
	Recorder     ActivityRecorder
	Streaks      gamerepo.UserStreakRepo
	XP           gamerepo.UserXPRepo
	Daily        gamerepo.DailyActivityRepo
	Transactions gamerepo.XPTransactionRepo
	Mastery      learning.TopicMasteryRepo
	Leaderboard  *gamification.Leaderboard
	Events       EventSender
	Dashboard    DashboardInvalidator
	Config       config.GamificationConfig
	Location     *time.Location
	Log          *logger.Logger
}

type gamificationService struct {
	d   GamificationDeps
	log *logger.Logger
	now func() time.Time
}

func NewGamificationService(d GamificationDeps) GamificationService {
	if d.Location == nil {
		d.Location = time.UTC
	}
	return &gamificationService{d: d, log: d.Log.With("service", "GamificationService"), now: time.Now}
}

// RecordActivity handles question, flashcard and login activity. Quiz activity
// is recorded by quiz submission.
func (s *gamificationService) RecordActivity(ctx context.Context, userID uuid.UUID, in ActivityInput) (*gamification.Result, error) {
	kind, err := gamification.ParseKind(in.Kind)
	if err != nil {
		return nil, apierr.BadRequest("invalid_activity", err)
	}
	if kind == gamification.KindQuiz {
		return nil, apierr.BadRequest("invalid_activity", errors.New("quiz activity is recorded by submitting an attempt"))
	}
	if in.Count < 0 || in.TimeSpentSeconds < 0 {
		return nil, apierr.BadRequest("invalid_activity", errors.New("counts must not be negative"))
	}
	meta := gamification.Meta{TimeSpentSeconds: in.TimeSpentSeconds, Description: in.Description}
	switch kind {
	case gamification.KindQuestion:
		meta.QuestionsAnswered = in.Count
	case gamification.KindFlashcard:
		meta.FlashcardsReviewed = in.Count
	}
	res, err := s.d.Recorder.Record(ctx, userID, kind, gamification.ActivityXP(s.d.Config, kind, in.Count), meta)
	if err != nil {
		return nil, fmt.Errorf("record %s activity: %w", kind, err)
	}
	invalidateDashboard(ctx, s.d.Dashboard, s.log, userID)
	if s.d.Events != nil {
		if _, err := s.d.Events.Send(ctx, events.NewDashboardUpdateRequested(userID)); err != nil && !errors.Is(err, events.ErrAlreadyStarted) {
			s.log.Warn("dashboard update not requested", "user_id", userID, "error", err)
		}
	}
	return res, nil
}

func (s *gamificationService) Profile(ctx context.Context, userID uuid.UUID) (*GamificationProfile, error) {
	dbc := dbctx.New(ctx)
	out := &GamificationProfile{RecentTransactions: []*domain.XPTransaction{}}

	streak, err := s.d.Streaks.GetByUserID(dbc, userID)
	if err != nil {
		return nil, err
	}
	if streak != nil {
		out.CurrentStreak = streak.CurrentStreak
		out.LongestStreak = streak.LongestStreak
		out.StreakFreezes = streak.StreakFreezes
		out.LastActivityAt = streak.LastActivityAt
	}

	xp, err := s.d.XP.GetByUserID(dbc, userID)
	if err != nil {
		return nil, err
	}
	total := 0
	if xp != nil {
		total = xp.TotalXP
	}
	out.Level = gamification.Progress(total)

	if s.d.Leaderboard != nil {
		if out.Rank, err = s.d.Leaderboard.Rank(ctx, userID); err != nil {
			return nil, err
		}
	}
	if out.Today, err = s.d.Daily.Get(dbc, userID, gamification.LocalDate(s.now(), s.d.Location)); err != nil {
		return nil, err
	}
	txns, err := s.d.Transactions.ListByUser(dbc, userID, recentTransactionLimit)
	if err != nil {
		return nil, err
	}
	if txns != nil {
		out.RecentTransactions = txns
	}
	return out, nil
}

func (s *gamificationService) Leaderboard(ctx context.Context, limit int) ([]gamification.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.d.Leaderboard.Top(ctx, limit)
}

func (s *gamificationService) TopicMastery(ctx context.Context, userID uuid.UUID) ([]*domain.TopicMastery, error) {
	rows, err := s.d.Mastery.ListByUser(dbctx.New(ctx), userID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*domain.TopicMastery{}
	}
	return rows, nil
}
