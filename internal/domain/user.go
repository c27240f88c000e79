package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User mirrors the identity issued by the external auth provider.
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	DisplayName string         `gorm:"column:display_name" json:"display_name"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

type OnboardingProfile struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID              uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	TargetCertification string     `gorm:"column:target_certification" json:"target_certification"`
	ExperienceLevel     string     `gorm:"column:experience_level" json:"experience_level"`
	StudyHoursPerWeek   int        `gorm:"column:study_hours_per_week;not null;default:0" json:"study_hours_per_week"`
	ExamDate            *time.Time `gorm:"column:exam_date" json:"exam_date,omitempty"`
	Goals               string     `gorm:"column:goals" json:"goals"`
	CreatedAt           time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"not null" json:"updated_at"`
}

func (OnboardingProfile) TableName() string { return "onboarding_profile" }

const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionCanceled = "canceled"
	SubscriptionPastDue  = "past_due"
)

// Subscription is written by the billing webhook integration; this service only reads it.
type Subscription struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Status           string     `gorm:"column:status;not null;index" json:"status"`
	PlanName         string     `gorm:"column:plan_name;not null" json:"plan_name"`
	CurrentPeriodEnd *time.Time `gorm:"column:current_period_end" json:"current_period_end,omitempty"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscription" }
