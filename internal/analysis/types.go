package analysis

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrAttemptNotFound = errors.New("quiz attempt not found")

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierPro     Tier = "pro"
)

func (t Tier) rank() int {
	switch t {
	case TierPro:
		return 2
	case TierPremium:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether t is entitled to everything other is.
func (t Tier) AtLeast(other Tier) bool { return t.rank() >= other.rank() }

// Premium gates the AI analyzers.
func (t Tier) Premium() bool { return t.AtLeast(TierPremium) }

// TierResult distinguishes a confirmed tier from a fail-open guess made while
// the subscription store was unreachable.
type TierResult struct {
	Tier  Tier   `json:"tier"`
	Known bool   `json:"known"`
	Plan  string `json:"plan,omitempty"`
	Error string `json:"error,omitempty"`
}

// Analyzer names. They double as AnalyzerResult.Analyzer values.
const (
	AnalyzerCategoryScores      = "category_scores"
	AnalyzerTimeEfficiency      = "time_efficiency"
	AnalyzerStrengthsWeaknesses = "strengths_weaknesses"
	AnalyzerRecommendations     = "recommendations"
	AnalyzerTopicMastery        = "topic_mastery"
)

// ScoringAnalyzers always run; AIAnalyzers only for premium tiers.
var (
	ScoringAnalyzers = []string{AnalyzerCategoryScores, AnalyzerTimeEfficiency}
	AIAnalyzers      = []string{AnalyzerStrengthsWeaknesses, AnalyzerRecommendations, AnalyzerTopicMastery}
)

// RequiredAnalyzers must succeed for an analysis to complete.
var RequiredAnalyzers = ScoringAnalyzers

func IsAIAnalyzer(name string) bool {
	for _, a := range AIAnalyzers {
		if a == name {
			return true
		}
	}
	return false
}

func KnownAnalyzer(name string) bool {
	return IsAIAnalyzer(name) || name == AnalyzerCategoryScores || name == AnalyzerTimeEfficiency
}

// Analyzer outcome statuses recorded on facts and in the analysis status map.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	StatusPending   = "pending"
)

// QuizData is the normalized, prompt-ready view of one attempt. Analyzers read
// nothing else.
type QuizData struct {
	Quiz      QuizInfo         `json:"quiz"`
	User      UserProfile      `json:"user"`
	Attempt   AttemptSummary   `json:"attempt"`
	Questions []QuestionRecord `json:"questions"`
}

type QuizInfo struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Certification string    `json:"certification,omitempty"`
	Category      string    `json:"category"`
}

type UserProfile struct {
	ID                  uuid.UUID  `json:"id"`
	TargetCertification string     `json:"target_certification,omitempty"`
	ExperienceLevel     string     `json:"experience_level,omitempty"`
	StudyHoursPerWeek   int        `json:"study_hours_per_week,omitempty"`
	ExamDate            *time.Time `json:"exam_date,omitempty"`
	Goals               string     `json:"goals,omitempty"`
}

type AttemptSummary struct {
	ID               uuid.UUID  `json:"id"`
	Score            int        `json:"score"`
	Percentage       int        `json:"percentage"`
	TimeSpentSeconds int        `json:"time_spent_seconds"`
	TotalQuestions   int        `json:"total_questions"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

type QuestionRecord struct {
	Number           int       `json:"number"`
	QuestionID       uuid.UUID `json:"question_id"`
	Content          string    `json:"content"`
	Category         string    `json:"category"`
	Difficulty       string    `json:"difficulty,omitempty"`
	IsCorrect        bool      `json:"is_correct"`
	UserAnswers      []string  `json:"user_answers"`
	CorrectAnswers   []string  `json:"correct_answers"`
	Explanation      string    `json:"explanation,omitempty"`
	TimeSpentSeconds int       `json:"time_spent_seconds,omitempty"`
}

func (d *QuizData) CorrectCount() int {
	n := 0
	for _, q := range d.Questions {
		if q.IsCorrect {
			n++
		}
	}
	return n
}

type CategoryScore struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

type CategoryScores map[string]CategoryScore

type TimeEfficiency struct {
	AverageSecondsPerQuestion float64 `json:"averageSecondsPerQuestion"`
	BenchmarkSeconds          int     `json:"benchmarkSeconds"`
	Rating                    string  `json:"rating"`
	TotalSeconds              int     `json:"totalSeconds"`
	OverallScore              int     `json:"overallScore"`
}

type StrengthsWeaknesses struct {
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Insight    string   `json:"insight"`
}

type Recommendation struct {
	Priority int    `json:"priority"`
	Topic    string `json:"topic"`
	Action   string `json:"action"`
	Reason   string `json:"reason"`
}

type Recommendations struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// TopicGroup is the model's grouping of question numbers into one topic.
type TopicGroup struct {
	Topic     string `json:"topic"`
	Questions []int  `json:"questions"`
}

type TopicScore struct {
	Topic        string  `json:"topic"`
	Correct      int     `json:"correct"`
	Total        int     `json:"total"`
	Percentage   int     `json:"percentage"`
	MasteryScore float64 `json:"masteryScore"`
	Trend        string  `json:"trend"`
}

// Outcome is what a single analyzer run produced.
type Outcome struct {
	Analyzer string          `json:"analyzer"`
	Status   string          `json:"status"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Error    string          `json:"error,omitempty"`
}
