package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AnalysisPending    = "pending"
	AnalysisProcessing = "processing"
	AnalysisCompleted  = "completed"
	AnalysisFailed     = "failed"
)

const (
	TierStatusConfirmed = "confirmed"
	TierStatusUnknown   = "unknown"
)

// QuizAnalysis is the projected view of a single attempt's analysis. Analyzers never
// write it directly; it is rebuilt from AnalyzerResult facts.
type QuizAnalysis struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QuizAttemptID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_quiz_analysis_attempt" json:"quiz_attempt_id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Status           string         `gorm:"column:status;not null;index" json:"status"`
	Tier             string         `gorm:"column:tier" json:"tier"`
	TierStatus       string         `gorm:"column:tier_status" json:"tier_status"`
	CategoryScores   datatypes.JSON `gorm:"column:category_scores;type:jsonb" json:"category_scores,omitempty"`
	TimeEfficiency   datatypes.JSON `gorm:"column:time_efficiency;type:jsonb" json:"time_efficiency,omitempty"`
	OverallScore     *int           `gorm:"column:overall_score" json:"overall_score,omitempty"`
	Strengths        datatypes.JSON `gorm:"column:strengths;type:jsonb" json:"strengths,omitempty"`
	Weaknesses       datatypes.JSON `gorm:"column:weaknesses;type:jsonb" json:"weaknesses,omitempty"`
	Insight          *string        `gorm:"column:insight" json:"insight,omitempty"`
	Recommendations  datatypes.JSON `gorm:"column:recommendations;type:jsonb" json:"recommendations,omitempty"`
	TopicMastery     datatypes.JSON `gorm:"column:topic_mastery;type:jsonb" json:"topic_mastery,omitempty"`
	AnalyzerStatus   datatypes.JSON `gorm:"column:analyzer_status;type:jsonb" json:"analyzer_status,omitempty"`
	ProcessingTimeMs *int64         `gorm:"column:processing_time_ms" json:"processing_time_ms,omitempty"`
	Error            *string        `gorm:"column:error" json:"error,omitempty"`
	CompletedAt      *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (QuizAnalysis) TableName() string { return "quiz_analysis" }

// AnalyzerResult is an append-only record of one analyzer invocation.
type AnalyzerResult struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AnalysisID uuid.UUID      `gorm:"type:uuid;not null;index:idx_analyzer_result_lookup,priority:1" json:"analysis_id"`
	Analyzer   string         `gorm:"column:analyzer;not null;index:idx_analyzer_result_lookup,priority:2" json:"analyzer"`
	Status     string         `gorm:"column:status;not null" json:"status"`
	Payload    datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	Error      *string        `gorm:"column:error" json:"error,omitempty"`
	Attempt    int            `gorm:"column:attempt;not null;default:1" json:"attempt"`
	DurationMs int64          `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`
	CreatedAt  time.Time      `gorm:"not null;index:idx_analyzer_result_lookup,priority:3" json:"created_at"`
}

func (AnalyzerResult) TableName() string { return "analyzer_result" }

const (
	TrendNew       = "new"
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

type TopicMastery struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_topic_mastery_user_topic,priority:1" json:"user_id"`
	Topic             string    `gorm:"column:topic;not null;uniqueIndex:idx_topic_mastery_user_topic,priority:2" json:"topic"`
	MasteryScore      float64   `gorm:"column:mastery_score;not null;default:0" json:"mastery_score"`
	QuestionsAnswered int       `gorm:"column:questions_answered;not null;default:0" json:"questions_answered"`
	CorrectAnswers    int       `gorm:"column:correct_answers;not null;default:0" json:"correct_answers"`
	LastPracticedAt   time.Time `gorm:"column:last_practiced_at;not null" json:"last_practiced_at"`
	Trend             string    `gorm:"column:trend;not null" json:"trend"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}

func (TopicMastery) TableName() string { return "topic_mastery" }

// TopicKey is the case- and spacing-insensitive identity of a topic name.
// The stored Topic keeps the casing it was first written with.
func TopicKey(topic string) string {
	return strings.ToLower(strings.Join(strings.Fields(topic), " "))
}
