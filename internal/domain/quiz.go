package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Category) TableName() string { return "category" }

type Quiz struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string         `gorm:"column:title;not null" json:"title"`
	Description   string         `gorm:"column:description" json:"description"`
	Certification string         `gorm:"column:certification;index" json:"certification"`
	CategoryID    *uuid.UUID     `gorm:"type:uuid;column:category_id;index" json:"category_id,omitempty"`
	Category      *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Published     bool           `gorm:"column:published;not null;default:false;index" json:"published"`
	Questions     []*Question    `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Quiz) TableName() string { return "quiz" }

type Question struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"quiz_id"`
	CategoryID  *uuid.UUID        `gorm:"type:uuid;column:category_id;index" json:"category_id,omitempty"`
	Category    *Category         `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Position    int               `gorm:"column:position;not null;default:0" json:"position"`
	Content     string            `gorm:"column:content;not null" json:"content"`
	Difficulty  string            `gorm:"column:difficulty" json:"difficulty"`
	Explanation string            `gorm:"column:explanation" json:"explanation"`
	MultiSelect bool              `gorm:"column:multi_select;not null;default:false" json:"multi_select"`
	Options     []*QuestionOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null" json:"updated_at"`
}

func (Question) TableName() string { return "question" }

type QuestionOption struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;index" json:"question_id"`
	Position   int       `gorm:"column:position;not null;default:0" json:"position"`
	Content    string    `gorm:"column:content;not null" json:"content"`
	IsCorrect  bool      `gorm:"column:is_correct;not null;default:false" json:"-"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (QuestionOption) TableName() string { return "question_option" }

// QuizAttempt is one completed take of a quiz. Rows are immutable once CompletedAt is set.
type QuizAttempt struct {
	ID               uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	QuizID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Quiz             *Quiz              `gorm:"foreignKey:QuizID" json:"quiz,omitempty"`
	Score            int                `gorm:"column:score;not null;default:0" json:"score"`
	Percentage       int                `gorm:"column:percentage;not null;default:0" json:"percentage"`
	TimeSpentSeconds int                `gorm:"column:time_spent_seconds;not null;default:0" json:"time_spent_seconds"`
	StartedAt        time.Time          `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt      *time.Time         `gorm:"column:completed_at;index" json:"completed_at,omitempty"`
	Questions        []*QuestionAttempt `gorm:"foreignKey:QuizAttemptID" json:"questions,omitempty"`
	CreatedAt        time.Time          `gorm:"not null" json:"created_at"`
}

func (QuizAttempt) TableName() string { return "quiz_attempt" }

type QuestionAttempt struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QuizAttemptID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"quiz_attempt_id"`
	QuestionID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"question_id"`
	Question          *Question      `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
	Position          int            `gorm:"column:position;not null;default:0" json:"position"`
	SelectedOptionIDs datatypes.JSON `gorm:"column:selected_option_ids;type:jsonb" json:"selected_option_ids"`
	IsCorrect         bool           `gorm:"column:is_correct;not null;default:false" json:"is_correct"`
	TimeSpentSeconds  int            `gorm:"column:time_spent_seconds;not null;default:0" json:"time_spent_seconds"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
}

func (QuestionAttempt) TableName() string { return "question_attempt" }
