package quiz

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

type QuizRepo interface {
	Create(dbc dbctx.Context, q *domain.Quiz) error
	ListPublished(dbc dbctx.Context, certification string) ([]*domain.Quiz, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Quiz, error)
	GetWithQuestions(dbc dbctx.Context, id uuid.UUID) (*domain.Quiz, error)
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	return &quizRepo{db: db, log: baseLog.With("repo", "QuizRepo")}
}

// Create inserts the quiz along with any nested questions and options.
func (r *quizRepo) Create(dbc dbctx.Context, q *domain.Quiz) error {
	if q == nil {
		return nil
	}
	return dbc.DB(r.db).Create(q).Error
}

func (r *quizRepo) ListPublished(dbc dbctx.Context, certification string) ([]*domain.Quiz, error) {
	var out []*domain.Quiz
	q := dbc.DB(r.db).
		Preload("Category").
		Where("published = ?", true)
	if certification != "" {
		q = q.Where("certification = ?", certification)
	}
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *quizRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Quiz, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row domain.Quiz
	err := dbc.DB(r.db).Preload("Category").Where("id = ?", id).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *quizRepo) GetWithQuestions(dbc dbctx.Context, id uuid.UUID) (*domain.Quiz, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row domain.Quiz
	err := dbc.DB(r.db).
		Preload("Category").
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Questions.Category").
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
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
