package quiz

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

var ErrAttemptIncomplete = errors.New("quiz attempt must be completed before it is stored")

// AttemptStats is the per-user aggregate shown on the dashboard.
type AttemptStats struct {
	Count             int64   `json:"count"`
	AveragePercentage float64 `json:"average_percentage"`
}

// QuizAttemptRepo stores completed attempts. There is no update path: attempts
// are immutable once written.
type QuizAttemptRepo interface {
	Create(dbc dbctx.Context, attempt *domain.QuizAttempt) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.QuizAttempt, error)
	GetForAnalysis(dbc dbctx.Context, id uuid.UUID) (*domain.QuizAttempt, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*domain.QuizAttempt, error)
	StatsByUser(dbc dbctx.Context, userID uuid.UUID) (AttemptStats, error)
}

type quizAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuizAttemptRepo {
	return &quizAttemptRepo{db: db, log: baseLog.With("repo", "QuizAttemptRepo")}
}

// Create writes the attempt and its question attempts in one statement batch.
func (r *quizAttemptRepo) Create(dbc dbctx.Context, attempt *domain.QuizAttempt) error {
	if attempt == nil {
		return nil
	}
	if attempt.CompletedAt == nil {
		return ErrAttemptIncomplete
	}
	if attempt.StartedAt.IsZero() {
		attempt.StartedAt = attempt.CompletedAt.Add(-time.Duration(attempt.TimeSpentSeconds) * time.Second)
	}
	return dbc.DB(r.db).Create(attempt).Error
}

func (r *quizAttemptRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.QuizAttempt, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row domain.QuizAttempt
	err := dbc.DB(r.db).Preload("Quiz").Where("id = ?", id).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetForAnalysis loads the attempt with the full question graph the formatter needs.
func (r *quizAttemptRepo) GetForAnalysis(dbc dbctx.Context, id uuid.UUID) (*domain.QuizAttempt, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row domain.QuizAttempt
	err := dbc.DB(r.db).
		Preload("Quiz").
		Preload("Quiz.Category").
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Questions.Question").
		Preload("Questions.Question.Category").
		Preload("Questions.Question.Options", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *quizAttemptRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*domain.QuizAttempt, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	var out []*domain.QuizAttempt
	err := dbc.DB(r.db).
		Preload("Quiz").
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Order("completed_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *quizAttemptRepo) StatsByUser(dbc dbctx.Context, userID uuid.UUID) (AttemptStats, error) {
	var row struct {
		Count int64
		Avg   *float64
	}
	err := dbc.DB(r.db).
		Model(&domain.QuizAttempt{}).
		Select("COUNT(*) AS count, AVG(percentage) AS avg").
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Scan(&row).Error
	if err != nil {
		return AttemptStats{}, err
	}
	out := AttemptStats{Count: row.Count}
	if row.Avg != nil {
		out.AveragePercentage = *row.Avg
	}
	return out, nil
}
