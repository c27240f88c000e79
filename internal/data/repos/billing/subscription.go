package billing

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

// SubscriptionRepo is read-only; rows are maintained by the payments webhook.
type SubscriptionRepo interface {
	GetActiveByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.Subscription, error)
}

type subscriptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) SubscriptionRepo {
	return &subscriptionRepo{db: db, log: baseLog.With("repo", "SubscriptionRepo")}
}

// GetActiveByUserID returns the active or trialing subscription with the latest
// period end, or nil when the user has none.
func (r *subscriptionRepo) GetActiveByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.Subscription, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var row domain.Subscription
	err := dbc.DB(r.db).
		Where("user_id = ? AND status IN ?", userID, []string{domain.SubscriptionActive, domain.SubscriptionTrialing}).
		Order("current_period_end IS NULL, current_period_end DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
