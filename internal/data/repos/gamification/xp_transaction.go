package gamification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

type XPTransactionRepo interface {
	Create(dbc dbctx.Context, row *domain.XPTransaction) error
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*domain.XPTransaction, error)
	SumByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type xpTransactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewXPTransactionRepo(db *gorm.DB, baseLog *logger.Logger) XPTransactionRepo {
	return &xpTransactionRepo{db: db, log: baseLog.With("repo", "XPTransactionRepo")}
}

func (r *xpTransactionRepo) Create(dbc dbctx.Context, row *domain.XPTransaction) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *xpTransactionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*domain.XPTransaction, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*domain.XPTransaction
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *xpTransactionRepo) SumByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var sum *int64
	if err := dbc.DB(r.db).
		Model(&domain.XPTransaction{}).
		Select("SUM(amount)").
		Where("user_id = ?", userID).
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
