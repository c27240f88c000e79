package analysis

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/certquiz-backend/internal/data/db"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

// ErrAnalysisExists is returned when an attempt already has an analysis row.
var ErrAnalysisExists = errors.New("analysis already exists for quiz attempt")

type QuizAnalysisRepo interface {
	Create(dbc dbctx.Context, row *domain.QuizAnalysis) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.QuizAnalysis, error)
	// GetForUpdate locks the view row on Postgres so finalize and late
	// re-projections apply one after the other.
	GetForUpdate(dbc dbctx.Context, id uuid.UUID) (*domain.QuizAnalysis, error)
	GetByAttemptID(dbc dbctx.Context, attemptID uuid.UUID) (*domain.QuizAnalysis, error)
	GetLatestCompletedForUser(dbc dbctx.Context, userID uuid.UUID, excludeAttemptID uuid.UUID) (*domain.QuizAnalysis, error)
	GetLatestForUser(dbc dbctx.Context, userID uuid.UUID) (*domain.QuizAnalysis, error)
	SaveView(dbc dbctx.Context, row *domain.QuizAnalysis) error
	UpdateTier(dbc dbctx.Context, id uuid.UUID, tier, tierStatus string) error
}

type quizAnalysisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) QuizAnalysisRepo {
	return &quizAnalysisRepo{db: db, log: baseLog.With("repo", "QuizAnalysisRepo")}
}

// Create inserts a new analysis. The unique index on quiz_attempt_id is the
// arbiter; any violation is reported as ErrAnalysisExists.
func (r *quizAnalysisRepo) Create(dbc dbctx.Context, row *domain.QuizAnalysis) error {
	if row == nil {
		return nil
	}
	err := dbc.DB(r.db).Create(row).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		r.log.Debug("analysis already exists", "quiz_attempt_id", row.QuizAttemptID)
		return ErrAnalysisExists
	}
	return err
}

func (r *quizAnalysisRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.QuizAnalysis, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).Where("id = ?", id))
}

func (r *quizAnalysisRepo) GetForUpdate(dbc dbctx.Context, id uuid.UUID) (*domain.QuizAnalysis, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	q := dbc.DB(r.db)
	if db.IsPostgres(q) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.first(q.Where("id = ?", id))
}

func (r *quizAnalysisRepo) GetByAttemptID(dbc dbctx.Context, attemptID uuid.UUID) (*domain.QuizAnalysis, error) {
	if attemptID == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).Where("quiz_attempt_id = ?", attemptID))
}

// GetLatestCompletedForUser returns the user's most recent completed analysis,
// skipping the one belonging to excludeAttemptID.
func (r *quizAnalysisRepo) GetLatestCompletedForUser(dbc dbctx.Context, userID uuid.UUID, excludeAttemptID uuid.UUID) (*domain.QuizAnalysis, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	q := dbc.DB(r.db).Where("user_id = ? AND status = ?", userID, domain.AnalysisCompleted)
	if excludeAttemptID != uuid.Nil {
		q = q.Where("quiz_attempt_id <> ?", excludeAttemptID)
	}
	return r.first(q.Order("completed_at DESC"))
}

// GetLatestForUser returns the newest analysis in any status.
func (r *quizAnalysisRepo) GetLatestForUser(dbc dbctx.Context, userID uuid.UUID) (*domain.QuizAnalysis, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).Where("user_id = ?", userID).Order("created_at DESC"))
}

// SaveView writes the projected columns. Identity columns are never touched.
func (r *quizAnalysisRepo) SaveView(dbc dbctx.Context, row *domain.QuizAnalysis) error {
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Model(&domain.QuizAnalysis{}).
		Where("id = ?", row.ID).
		Select(
			"status", "tier", "tier_status",
			"category_scores", "time_efficiency", "overall_score",
			"strengths", "weaknesses", "insight",
			"recommendations", "topic_mastery", "analyzer_status",
			"processing_time_ms", "error", "completed_at", "updated_at",
		).
		Updates(row).Error
}

func (r *quizAnalysisRepo) UpdateTier(dbc dbctx.Context, id uuid.UUID, tier, tierStatus string) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Model(&domain.QuizAnalysis{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"tier": tier, "tier_status": tierStatus}).Error
}

func (r *quizAnalysisRepo) first(q *gorm.DB) (*domain.QuizAnalysis, error) {
	var row domain.QuizAnalysis
	if err := q.First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "sqlstate 23505")
}
