package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	redisclient "github.com/yungbote/certquiz-backend/internal/clients/redis"
	analysisrepo "github.com/yungbote/certquiz-backend/internal/data/repos/analysis"
	gamerepo "github.com/yungbote/certquiz-backend/internal/data/repos/gamification"
	"github.com/yungbote/certquiz-backend/internal/data/repos/learning"
	"github.com/yungbote/certquiz-backend/internal/data/repos/quiz"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/gamification"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
	"github.com/yungbote/certquiz-backend/internal/realtime"
	"github.com/yungbote/certquiz-backend/internal/realtime/bus"
)

const weakestTopicLimit = 5

type AnalysisSummary struct {
	ID            uuid.UUID  `json:"id"`
	QuizAttemptID uuid.UUID  `json:"quiz_attempt_id"`
	Status        string     `json:"status"`
	OverallScore  *int       `json:"overall_score,omitempty"`
	Insight       *string    `json:"insight,omitempty"`
	Weaknesses    []string   `json:"weaknesses,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

type TopicSummary struct {
	Topic        string  `json:"topic"`
	MasteryScore float64 `json:"mastery_score"`
	Trend        string  `json:"trend"`
}

// DashboardSnapshot is everything the dashboard home renders in one payload.
type DashboardSnapshot struct {
	UserID            uuid.UUID                  `json:"user_id"`
	GeneratedAt       time.Time                  `json:"generated_at"`
	Attempts          int64                      `json:"attempts"`
	AveragePercentage float64                    `json:"average_percentage"`
	LatestAnalysis    *AnalysisSummary           `json:"latest_analysis,omitempty"`
	WeakestTopics     []TopicSummary             `json:"weakest_topics"`
	CurrentStreak     int                        `json:"current_streak"`
	LongestStreak     int                        `json:"longest_streak"`
	StreakFreezes     int                        `json:"streak_freezes"`
	Level             gamification.LevelProgress `json:"level"`
	Rank              int64                      `json:"rank"`
	Today             *domain.DailyActivity      `json:"today,omitempty"`
}

type DashboardService interface {
	// Snapshot serves the cached snapshot, building one on a miss.
	Snapshot(ctx context.Context, userID uuid.UUID) (*DashboardSnapshot, error)
	// Refresh rebuilds, caches and publishes the snapshot.
	Refresh(ctx context.Context, userID uuid.UUID) (*DashboardSnapshot, error)
	// AcquireRefresh reports whether a refresh may run now for userID.
	AcquireRefresh(ctx context.Context, userID uuid.UUID) (bool, error)
	DashboardInvalidator
}

// DashboardInvalidator drops a cached snapshot so the next read rebuilds it.
// Refreshes are debounced, so writers invalidate rather than wait for one.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// invalidateDashboard is best effort; a stale snapshot still expires on its TTL.
func invalidateDashboard(ctx context.Context, inv DashboardInvalidator, log *logger.Logger, userID uuid.UUID) {
	if inv == nil {
		return
	}
	if err := inv.Invalidate(ctx, userID); err != nil {
		log.Warn("dashboard cache invalidation failed", "user_id", userID, "error", err)
	}
}

type DashboardDeps struct {
	Attempts    quiz.QuizAttemptRepo
	Analyses    analysisrepo.QuizAnalysisRepo
	Mastery     learning.TopicMasteryRepo
	Streaks     gamerepo.UserStreakRepo
	XP          gamerepo.UserXPRepo
	Daily       gamerepo.DailyActivityRepo
	Leaderboard *gamification.Leaderboard
	Cache       *redisclient.JSONCache
	Debouncer   *redisclient.Debouncer
	Bus         bus.Bus
	Debounce    time.Duration
	Location    *time.Location
	Log         *logger.Logger
}

type dashboardService struct {
	d   DashboardDeps
	log *logger.Logger
	now func() time.Time
}

func NewDashboardService(d DashboardDeps) DashboardService {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Debounce <= 0 {
		d.Debounce = 5 * time.Minute
	}
	return &dashboardService{d: d, log: d.Log.With("service", "DashboardService"), now: time.Now}
}

func (s *dashboardService) Snapshot(ctx context.Context, userID uuid.UUID) (*DashboardSnapshot, error) {
	var cached DashboardSnapshot
	hit, err := s.d.Cache.Get(ctx, userID.String(), &cached)
	if err != nil {
		s.log.Warn("dashboard cache read failed", "user_id", userID, "error", err)
	}
	if hit {
		return &cached, nil
	}
	snap, err := s.build(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.d.Cache.Set(ctx, userID.String(), snap); err != nil {
		s.log.Warn("dashboard cache write failed", "user_id", userID, "error", err)
	}
	return snap, nil
}

func (s *dashboardService) Refresh(ctx context.Context, userID uuid.UUID) (*DashboardSnapshot, error) {
	snap, err := s.build(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.d.Cache.Set(ctx, userID.String(), snap); err != nil {
		return nil, fmt.Errorf("cache dashboard snapshot: %w", err)
	}
	if s.d.Bus != nil {
		msg := realtime.Message{Channel: realtime.UserChannel(userID), Event: realtime.EventDashboardUpdated, Data: snap}
		if err := s.d.Bus.Publish(ctx, msg); err != nil {
			s.log.Warn("dashboard publish failed", "user_id", userID, "error", err)
		}
	}
	return snap, nil
}

func (s *dashboardService) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return s.d.Cache.Delete(ctx, userID.String())
}

// AcquireRefresh fails open: a Redis outage lets the refresh through.
func (s *dashboardService) AcquireRefresh(ctx context.Context, userID uuid.UUID) (bool, error) {
	ok, err := s.d.Debouncer.Acquire(ctx, userID.String(), s.d.Debounce)
	if err != nil {
		s.log.Warn("dashboard debounce unavailable, refreshing anyway", "user_id", userID, "error", err)
		return true, nil
	}
	return ok, nil
}

func (s *dashboardService) build(ctx context.Context, userID uuid.UUID) (*DashboardSnapshot, error) {
	snap := &DashboardSnapshot{UserID: userID, GeneratedAt: s.now().UTC(), WeakestTopics: []TopicSummary{}}
	today := gamification.LocalDate(s.now(), s.d.Location)

	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.New(gctx)

	g.Go(func() error {
		stats, err := s.d.Attempts.StatsByUser(dbc, userID)
		if err != nil {
			return fmt.Errorf("attempt stats: %w", err)
		}
		snap.Attempts = stats.Count
		snap.AveragePercentage = stats.AveragePercentage
		return nil
	})
	g.Go(func() error {
		row, err := s.d.Analyses.GetLatestForUser(dbc, userID)
		if err != nil {
			return fmt.Errorf("latest analysis: %w", err)
		}
		snap.LatestAnalysis = summarizeAnalysis(row)
		return nil
	})
	g.Go(func() error {
		rows, err := s.d.Mastery.ListWeakest(dbc, userID, weakestTopicLimit)
		if err != nil {
			return fmt.Errorf("weakest topics: %w", err)
		}
		for _, r := range rows {
			snap.WeakestTopics = append(snap.WeakestTopics, TopicSummary{Topic: r.Topic, MasteryScore: r.MasteryScore, Trend: r.Trend})
		}
		return nil
	})
	g.Go(func() error {
		row, err := s.d.Streaks.GetByUserID(dbc, userID)
		if err != nil {
			return fmt.Errorf("streak: %w", err)
		}
		if row != nil {
			snap.CurrentStreak = row.CurrentStreak
			snap.LongestStreak = row.LongestStreak
			snap.StreakFreezes = row.StreakFreezes
		}
		return nil
	})
	g.Go(func() error {
		row, err := s.d.XP.GetByUserID(dbc, userID)
		if err != nil {
			return fmt.Errorf("xp: %w", err)
		}
		total := 0
		if row != nil {
			total = row.TotalXP
		}
		snap.Level = gamification.Progress(total)
		return nil
	})
	g.Go(func() error {
		if s.d.Leaderboard == nil {
			return nil
		}
		rank, err := s.d.Leaderboard.Rank(gctx, userID)
		if err != nil {
			return fmt.Errorf("rank: %w", err)
		}
		snap.Rank = rank
		return nil
	})
	g.Go(func() error {
		row, err := s.d.Daily.Get(dbc, userID, today)
		if err != nil {
			return fmt.Errorf("daily activity: %w", err)
		}
		snap.Today = row
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build dashboard for %s: %w", userID, err)
	}
	return snap, nil
}

func summarizeAnalysis(row *domain.QuizAnalysis) *AnalysisSummary {
	if row == nil {
		return nil
	}
	out := &AnalysisSummary{
		ID:            row.ID,
		QuizAttemptID: row.QuizAttemptID,
		Status:        row.Status,
		OverallScore:  row.OverallScore,
		Insight:       row.Insight,
		CompletedAt:   row.CompletedAt,
	}
	if len(row.Weaknesses) > 0 {
		_ = json.Unmarshal(row.Weaknesses, &out.Weaknesses)
	}
	return out
}
