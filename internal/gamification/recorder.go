package gamification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/config"
	repos "github.com/yungbote/certquiz-backend/internal/data/repos/gamification"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

type Kind string

const (
	KindQuiz      Kind = "quiz"
	KindQuestion  Kind = "question"
	KindFlashcard Kind = "flashcard"
	KindLogin     Kind = "login"
)

var ErrInvalidActivity = errors.New("invalid activity")

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindQuiz, KindQuestion, KindFlashcard, KindLogin:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidActivity, s)
}

// Meta carries the optional per-activity counters. Zero counts default to one
// for question and flashcard activities.
type Meta struct {
	QuestionsAnswered  int            `json:"questions_answered,omitempty"`
	FlashcardsReviewed int            `json:"flashcards_reviewed,omitempty"`
	TimeSpentSeconds   int            `json:"time_spent_seconds,omitempty"`
	Description        string         `json:"description,omitempty"`
	Extra              map[string]any `json:"extra,omitempty"`
}

type Result struct {
	XPAwarded     bool `json:"xp_awarded"`
	XP            int  `json:"xp"`
	LeveledUp     bool `json:"leveled_up"`
	NewLevel      int  `json:"new_level"`
	CurrentStreak int  `json:"current_streak"`
	LongestStreak int  `json:"longest_streak"`
	FreezeGranted bool `json:"freeze_granted"`
	TotalXP       int  `json:"total_xp"`
	GoalMet       bool `json:"goal_met"`
}

type RecorderDeps struct {
	DB           *gorm.DB
	Streaks      repos.UserStreakRepo
	XP           repos.UserXPRepo
	Daily        repos.DailyActivityRepo
	Transactions repos.XPTransactionRepo
	// Leaderboard is optional and refreshed after commit.
	Leaderboard *Leaderboard
	Config      config.GamificationConfig
	Log         *logger.Logger
}

// Recorder turns a learning action into XP, streak and daily goal progress.
type Recorder struct {
	db     *gorm.DB
	streak repos.UserStreakRepo
	xp     repos.UserXPRepo
	daily  repos.DailyActivityRepo
	txns   repos.XPTransactionRepo
	board  *Leaderboard
	loc    *time.Location
	goalXP int
	log    *logger.Logger
	now    func() time.Time
}

func NewRecorder(d RecorderDeps) (*Recorder, error) {
	tz := d.Config.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Recorder{
		db:     d.DB,
		streak: d.Streaks,
		xp:     d.XP,
		daily:  d.Daily,
		txns:   d.Transactions,
		board:  d.Leaderboard,
		loc:    loc,
		goalXP: d.Config.DailyGoalXP,
		log:    d.Log.With("service", "ActivityRecorder"),
		now:    time.Now,
	}, nil
}

// Record applies one activity in a single transaction. Persistence errors are
// returned unchanged; callers that treat gamification as best effort log them.
func (r *Recorder) Record(ctx context.Context, userID uuid.UUID, kind Kind, xp int, meta Meta) (*Result, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidActivity)
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if xp < 0 {
		return nil, fmt.Errorf("%w: negative xp %d", ErrInvalidActivity, xp)
	}

	now := r.now()
	res := &Result{XPAwarded: xp > 0, XP: xp}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		if err := r.bumpDaily(dbc, userID, kind, xp, meta, now, res); err != nil {
			return err
		}
		if err := r.advanceStreak(dbc, userID, now, res); err != nil {
			return err
		}
		if err := r.addXP(dbc, userID, xp, res); err != nil {
			return err
		}
		if xp == 0 {
			return nil
		}
		return r.appendTransaction(dbc, userID, kind, xp, meta)
	})
	if err != nil {
		return nil, fmt.Errorf("record %s activity: %w", kind, err)
	}

	if r.board != nil && xp > 0 {
		if err := r.board.Set(ctx, userID, res.TotalXP); err != nil {
			r.log.Warn("leaderboard update failed", "user_id", userID, "error", err)
		}
	}
	if res.LeveledUp {
		r.log.Info("level up", "user_id", userID, "level", res.NewLevel, "total_xp", res.TotalXP)
	}
	return res, nil
}

func (r *Recorder) bumpDaily(dbc dbctx.Context, userID uuid.UUID, kind Kind, xp int, meta Meta, now time.Time, res *Result) error {
	date := LocalDate(now, r.loc)
	row, err := r.daily.LockOrCreate(dbc, userID, date)
	if err != nil {
		return fmt.Errorf("load daily activity: %w", err)
	}
	switch kind {
	case KindQuiz:
		row.QuizzesCompleted++
		row.QuestionsAnswered += meta.QuestionsAnswered
	case KindQuestion:
		row.QuestionsAnswered += atLeastOne(meta.QuestionsAnswered)
	case KindFlashcard:
		row.FlashcardsReviewed += atLeastOne(meta.FlashcardsReviewed)
	case KindLogin:
		row.Logins++
	}
	row.XPEarned += xp
	if meta.TimeSpentSeconds > 0 {
		row.TimeSpentSeconds += meta.TimeSpentSeconds
	}
	if row.GoalXP == 0 {
		row.GoalXP = r.goalXP
	}
	row.GoalMet = row.GoalXP > 0 && row.XPEarned >= row.GoalXP
	res.GoalMet = row.GoalMet
	if err := r.daily.Save(dbc, row); err != nil {
		return fmt.Errorf("save daily activity: %w", err)
	}
	return nil
}

func (r *Recorder) advanceStreak(dbc dbctx.Context, userID uuid.UUID, now time.Time, res *Result) error {
	row, err := r.streak.LockOrCreate(dbc, userID)
	if err != nil {
		return fmt.Errorf("load streak: %w", err)
	}
	ch := AdvanceStreak(row, now, r.loc)
	if err := r.streak.Save(dbc, row); err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	res.CurrentStreak = row.CurrentStreak
	res.LongestStreak = row.LongestStreak
	res.FreezeGranted = ch.FreezeGranted
	return nil
}

func (r *Recorder) addXP(dbc dbctx.Context, userID uuid.UUID, xp int, res *Result) error {
	row, err := r.xp.LockOrCreate(dbc, userID)
	if err != nil {
		return fmt.Errorf("load xp: %w", err)
	}
	prev := row.Level
	row.TotalXP += xp
	row.Level = LevelForXP(row.TotalXP)
	if err := r.xp.Save(dbc, row); err != nil {
		return fmt.Errorf("save xp: %w", err)
	}
	res.TotalXP = row.TotalXP
	res.NewLevel = row.Level
	res.LeveledUp = row.Level > prev
	return nil
}

func (r *Recorder) appendTransaction(dbc dbctx.Context, userID uuid.UUID, kind Kind, xp int, meta Meta) error {
	desc := meta.Description
	if desc == "" {
		desc = fmt.Sprintf("%s activity", kind)
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode xp metadata: %w", err)
	}
	row := &domain.XPTransaction{
		UserID:      userID,
		Amount:      xp,
		Source:      string(kind),
		Description: desc,
		Metadata:    raw,
	}
	if err := r.txns.Create(dbc, row); err != nil {
		return fmt.Errorf("append xp transaction: %w", err)
	}
	return nil
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// QuizXP is the award for a completed quiz: a base amount, a per-correct bonus,
// and a perfect-score bonus.
func QuizXP(cfg config.GamificationConfig, correct, total int) int {
	xp := cfg.QuizBaseXP + cfg.XPPerCorrect*correct
	if total > 0 && correct == total {
		xp += cfg.PerfectBonusXP
	}
	return xp
}

// ActivityXP is the configured award for a non-quiz activity.
func ActivityXP(cfg config.GamificationConfig, kind Kind, count int) int {
	switch kind {
	case KindQuestion:
		return cfg.QuestionXP * atLeastOne(count)
	case KindFlashcard:
		return cfg.FlashcardXP * atLeastOne(count)
	case KindLogin:
		return cfg.LoginXP
	}
	return 0
}
