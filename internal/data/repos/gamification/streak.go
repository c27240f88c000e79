package gamification

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/certquiz-backend/internal/data/db"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

type UserStreakRepo interface {
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.UserStreak, error)
	// LockOrCreate inserts a zero streak if the user has none, then locks the
	// row on Postgres. On SQLite the transaction itself serializes writers.
	LockOrCreate(dbc dbctx.Context, userID uuid.UUID) (*domain.UserStreak, error)
	Save(dbc dbctx.Context, row *domain.UserStreak) error
}

type userStreakRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserStreakRepo(db *gorm.DB, baseLog *logger.Logger) UserStreakRepo {
	return &userStreakRepo{db: db, log: baseLog.With("repo", "UserStreakRepo")}
}

func (r *userStreakRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.UserStreak, error) {
	return r.get(dbc.DB(r.db), userID)
}

func (r *userStreakRepo) LockOrCreate(dbc dbctx.Context, userID uuid.UUID) (*domain.UserStreak, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("streak: user is required")
	}
	if err := insertIfAbsent(dbc.DB(r.db), &domain.UserStreak{UserID: userID}, "user_id"); err != nil {
		return nil, err
	}
	row, err := r.get(lockForUpdate(dbc.DB(r.db)), userID)
	if err == nil && row == nil {
		err = fmt.Errorf("streak for %s vanished after insert", userID)
	}
	return row, err
}

func (r *userStreakRepo) get(q *gorm.DB, userID uuid.UUID) (*domain.UserStreak, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var row domain.UserStreak
	if err := q.Where("user_id = ?", userID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *userStreakRepo) Save(dbc dbctx.Context, row *domain.UserStreak) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).Save(row).Error
}

// insertIfAbsent creates row unless the unique key already exists. Two first
// writers racing on Postgres both succeed here; the loser waits for the
// winner's commit instead of failing on the index.
func insertIfAbsent(q *gorm.DB, row interface{}, keys ...string) error {
	cols := make([]clause.Column, 0, len(keys))
	for _, k := range keys {
		cols = append(cols, clause.Column{Name: k})
	}
	return q.Clauses(clause.OnConflict{Columns: cols, DoNothing: true}).Create(row).Error
}

func lockForUpdate(q *gorm.DB) *gorm.DB {
	if db.IsPostgres(q) {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}
