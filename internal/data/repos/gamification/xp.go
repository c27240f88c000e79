package gamification

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

type UserXPRepo interface {
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.UserXP, error)
	LockOrCreate(dbc dbctx.Context, userID uuid.UUID) (*domain.UserXP, error)
	Save(dbc dbctx.Context, row *domain.UserXP) error
	Top(dbc dbctx.Context, limit int) ([]*domain.UserXP, error)
	// Rank is 1 + the number of users with strictly more XP.
	Rank(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type userXPRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserXPRepo(db *gorm.DB, baseLog *logger.Logger) UserXPRepo {
	return &userXPRepo{db: db, log: baseLog.With("repo", "UserXPRepo")}
}

func (r *userXPRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.UserXP, error) {
	return r.get(dbc.DB(r.db), userID)
}

func (r *userXPRepo) LockOrCreate(dbc dbctx.Context, userID uuid.UUID) (*domain.UserXP, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("xp: user is required")
	}
	if err := insertIfAbsent(dbc.DB(r.db), &domain.UserXP{UserID: userID, Level: 1}, "user_id"); err != nil {
		return nil, err
	}
	row, err := r.get(lockForUpdate(dbc.DB(r.db)), userID)
	if err == nil && row == nil {
		err = fmt.Errorf("xp for %s vanished after insert", userID)
	}
	return row, err
}

func (r *userXPRepo) get(q *gorm.DB, userID uuid.UUID) (*domain.UserXP, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var row domain.UserXP
	if err := q.Where("user_id = ?", userID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *userXPRepo) Save(dbc dbctx.Context, row *domain.UserXP) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).Save(row).Error
}

func (r *userXPRepo) Top(dbc dbctx.Context, limit int) ([]*domain.UserXP, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []*domain.UserXP
	if err := dbc.DB(r.db).
		Order("total_xp DESC, updated_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userXPRepo) Rank(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	row, err := r.GetByUserID(dbc, userID)
	if err != nil || row == nil {
		return 0, err
	}
	var ahead int64
	if err := dbc.DB(r.db).
		Model(&domain.UserXP{}).
		Where("total_xp > ?", row.TotalXP).
		Count(&ahead).Error; err != nil {
		return 0, err
	}
	return ahead + 1, nil
}
