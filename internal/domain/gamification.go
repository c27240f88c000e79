package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const MaxStreakFreezes = 2

type UserStreak struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CurrentStreak  int        `gorm:"column:current_streak;not null;default:0" json:"current_streak"`
	LongestStreak  int        `gorm:"column:longest_streak;not null;default:0" json:"longest_streak"`
	LastActivityAt *time.Time `gorm:"column:last_activity_at" json:"last_activity_at,omitempty"`
	StreakFreezes  int        `gorm:"column:streak_freezes;not null;default:0" json:"streak_freezes"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (UserStreak) TableName() string { return "user_streak" }

type UserXP struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	TotalXP   int       `gorm:"column:total_xp;not null;default:0;index" json:"total_xp"`
	Level     int       `gorm:"column:level;not null;default:1" json:"level"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UserXP) TableName() string { return "user_xp" }

// DailyActivity is a per-user, per-calendar-day counter bucket. ActivityDate is
// the local date formatted as YYYY-MM-DD.
type DailyActivity struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_daily_activity_user_date,priority:1" json:"user_id"`
	ActivityDate       string    `gorm:"column:activity_date;not null;uniqueIndex:idx_daily_activity_user_date,priority:2" json:"activity_date"`
	QuizzesCompleted   int       `gorm:"column:quizzes_completed;not null;default:0" json:"quizzes_completed"`
	QuestionsAnswered  int       `gorm:"column:questions_answered;not null;default:0" json:"questions_answered"`
	FlashcardsReviewed int       `gorm:"column:flashcards_reviewed;not null;default:0" json:"flashcards_reviewed"`
	Logins             int       `gorm:"column:logins;not null;default:0" json:"logins"`
	XPEarned           int       `gorm:"column:xp_earned;not null;default:0" json:"xp_earned"`
	TimeSpentSeconds   int       `gorm:"column:time_spent_seconds;not null;default:0" json:"time_spent_seconds"`
	GoalXP             int       `gorm:"column:goal_xp;not null;default:0" json:"goal_xp"`
	GoalMet            bool      `gorm:"column:goal_met;not null;default:false" json:"goal_met"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`
}

func (DailyActivity) TableName() string { return "daily_activity" }

type XPTransaction struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount      int            `gorm:"column:amount;not null" json:"amount"`
	Source      string         `gorm:"column:source;not null" json:"source"`
	Description string         `gorm:"column:description" json:"description"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
}

func (XPTransaction) TableName() string { return "xp_transaction" }
