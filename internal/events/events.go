package events

import (
	"github.com/google/uuid"

	"github.com/yungbote/certquiz-backend/internal/analysis"
)

// Event names accepted by Dispatcher.Send.
const (
	QuizCompleted                  = "quiz/completed"
	QuizAnalyzeCategoryScores      = "quiz/analyze-category-scores"
	QuizAnalyzeTimeEfficiency      = "quiz/analyze-time-efficiency"
	QuizAnalyzeStrengthsWeaknesses = "quiz/analyze-strengths-weaknesses"
	QuizAnalyzeRecommendations     = "quiz/analyze-recommendations"
	QuizAnalyzeTopicMastery        = "quiz/analyze-topic-mastery"
	DashboardUpdateRequestedEvent  = "dashboard/update-requested"
)

// Workflow type names started for each event family.
const (
	WorkflowQuizAnalysis     = "quiz_analysis"
	WorkflowQuizAnalyzer     = "quiz_analyzer"
	WorkflowDashboardRefresh = "dashboard_refresh"
)

var analyzerEvents = map[string]string{
	QuizAnalyzeCategoryScores:      analysis.AnalyzerCategoryScores,
	QuizAnalyzeTimeEfficiency:      analysis.AnalyzerTimeEfficiency,
	QuizAnalyzeStrengthsWeaknesses: analysis.AnalyzerStrengthsWeaknesses,
	QuizAnalyzeRecommendations:     analysis.AnalyzerRecommendations,
	QuizAnalyzeTopicMastery:        analysis.AnalyzerTopicMastery,
}

// AnalyzerForEvent maps a quiz/analyze-* event onto its analyzer name.
func AnalyzerForEvent(name string) (string, bool) {
	a, ok := analyzerEvents[name]
	return a, ok
}

// EventForAnalyzer is the inverse of AnalyzerForEvent.
func EventForAnalyzer(analyzer string) (string, bool) {
	for ev, a := range analyzerEvents {
		if a == analyzer {
			return ev, true
		}
	}
	return "", false
}

type Event struct {
	Name string
	Data any
}

type QuizCompletedData struct {
	UserID        uuid.UUID `json:"userId"`
	QuizAttemptID uuid.UUID `json:"quizAttemptId"`
}

type AnalyzeRequestedData struct {
	AnalysisID uuid.UUID          `json:"analysisId"`
	QuizData   *analysis.QuizData `json:"quizData"`
	Tier       analysis.Tier      `json:"tier"`
}

// AnalyzerRunData is the input of the quiz_analyzer workflow. Standalone runs
// were requested outside an orchestrator, so a failed re-projection fails them.
type AnalyzerRunData struct {
	Analyzer   string               `json:"analyzer"`
	Request    AnalyzeRequestedData `json:"request"`
	Standalone bool                 `json:"standalone"`
}

type DashboardUpdateRequestedData struct {
	UserID uuid.UUID `json:"userId"`
}

func NewQuizCompleted(userID, attemptID uuid.UUID) Event {
	return Event{Name: QuizCompleted, Data: QuizCompletedData{UserID: userID, QuizAttemptID: attemptID}}
}

func NewDashboardUpdateRequested(userID uuid.UUID) Event {
	return Event{Name: DashboardUpdateRequestedEvent, Data: DashboardUpdateRequestedData{UserID: userID}}
}

func NewAnalyzeRequested(analyzer string, data AnalyzeRequestedData) (Event, bool) {
	name, ok := EventForAnalyzer(analyzer)
	return Event{Name: name, Data: data}, ok
}

// Workflow IDs. One orchestrator per attempt; one refresh workflow per user at a time.
func QuizAnalysisWorkflowID(attemptID uuid.UUID) string { return "quiz-analysis-" + attemptID.String() }

func QuizAnalyzerWorkflowID(analysisID uuid.UUID, analyzer string) string {
	return "quiz-analyzer-" + analysisID.String() + "-" + analyzer
}

func DashboardRefreshWorkflowID(userID uuid.UUID) string { return "dashboard-refresh-" + userID.String() }
