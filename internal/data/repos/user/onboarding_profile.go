package user

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

type OnboardingProfileRepo interface {
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.OnboardingProfile, error)
	Upsert(dbc dbctx.Context, row *domain.OnboardingProfile) error
}

type onboardingProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOnboardingProfileRepo(db *gorm.DB, baseLog *logger.Logger) OnboardingProfileRepo {
	return &onboardingProfileRepo{db: db, log: baseLog.With("repo", "OnboardingProfileRepo")}
}

func (r *onboardingProfileRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.OnboardingProfile, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var row domain.OnboardingProfile
	if err := dbc.DB(r.db).Where("user_id = ?", userID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *onboardingProfileRepo) Upsert(dbc dbctx.Context, row *domain.OnboardingProfile) error {
	if row == nil || row.UserID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"target_certification", "experience_level", "study_hours_per_week",
				"exam_date", "goals", "updated_at",
			}),
		}).
		Create(row).Error
}
