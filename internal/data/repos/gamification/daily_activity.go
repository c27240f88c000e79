package gamification

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

type DailyActivityRepo interface {
	Get(dbc dbctx.Context, userID uuid.UUID, date string) (*domain.DailyActivity, error)
	// LockOrCreate returns the bucket for date, inserting an empty one first if
	// needed, locked for the rest of the transaction on Postgres.
	LockOrCreate(dbc dbctx.Context, userID uuid.UUID, date string) (*domain.DailyActivity, error)
	Save(dbc dbctx.Context, row *domain.DailyActivity) error
	// ListRange returns buckets with from <= date <= to, oldest first. Dates are YYYY-MM-DD.
	ListRange(dbc dbctx.Context, userID uuid.UUID, from, to string) ([]*domain.DailyActivity, error)
}

type dailyActivityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDailyActivityRepo(db *gorm.DB, baseLog *logger.Logger) DailyActivityRepo {
	return &dailyActivityRepo{db: db, log: baseLog.With("repo", "DailyActivityRepo")}
}

func (r *dailyActivityRepo) Get(dbc dbctx.Context, userID uuid.UUID, date string) (*domain.DailyActivity, error) {
	return r.get(dbc.DB(r.db), userID, date)
}

func (r *dailyActivityRepo) LockOrCreate(dbc dbctx.Context, userID uuid.UUID, date string) (*domain.DailyActivity, error) {
	if userID == uuid.Nil || date == "" {
		return nil, fmt.Errorf("daily activity: user and date are required")
	}
	seed := &domain.DailyActivity{UserID: userID, ActivityDate: date}
	if err := insertIfAbsent(dbc.DB(r.db), seed, "user_id", "activity_date"); err != nil {
		return nil, err
	}
	row, err := r.get(lockForUpdate(dbc.DB(r.db)), userID, date)
	if err == nil && row == nil {
		err = fmt.Errorf("daily activity %s/%s vanished after insert", userID, date)
	}
	return row, err
}

func (r *dailyActivityRepo) get(q *gorm.DB, userID uuid.UUID, date string) (*domain.DailyActivity, error) {
	if userID == uuid.Nil || date == "" {
		return nil, nil
	}
	var row domain.DailyActivity
	if err := q.Where("user_id = ? AND activity_date = ?", userID, date).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *dailyActivityRepo) Save(dbc dbctx.Context, row *domain.DailyActivity) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).Save(row).Error
}

func (r *dailyActivityRepo) ListRange(dbc dbctx.Context, userID uuid.UUID, from, to string) ([]*domain.DailyActivity, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var out []*domain.DailyActivity
	if err := dbc.DB(r.db).
		Where("user_id = ? AND activity_date >= ? AND activity_date <= ?", userID, from, to).
		Order("activity_date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
