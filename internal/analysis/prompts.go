package analysis

import (
	"fmt"
	"strings"

	"github.com/yungbote/certquiz-backend/internal/llm"
)

// RecommendationMissLimit caps how many missed questions go into the
// recommendations prompt.
const RecommendationMissLimit = 10

const systemPrompt = "You are an expert cloud certification coach. You analyze practice quiz results " +
	"and give precise, encouraging, actionable feedback. Respond with JSON only, matching the requested format exactly."

var (
	strengthsSchema = &llm.Schema{
		Name:       "strengths-weaknesses",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"strengths":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"weaknesses": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"insight":    map[string]any{"type": "string"},
			},
			"required": []any{"strengths", "weaknesses", "insight"},
		},
	}
	recommendationsSchema = &llm.Schema{
		Name:       "recommendations",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"recommendations": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"priority": map[string]any{"type": "integer", "minimum": 1},
							"topic":    map[string]any{"type": "string"},
							"action":   map[string]any{"type": "string"},
							"reason":   map[string]any{"type": "string"},
						},
						"required": []any{"priority", "topic", "action", "reason"},
					},
				},
			},
			"required": []any{"recommendations"},
		},
	}
	topicSchema = &llm.Schema{
		Name:       "topic-mastery",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"topics": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"topic":     map[string]any{"type": "string", "minLength": 1},
							"questions": map[string]any{"type": "array", "items": map[string]any{"type": "integer", "minimum": 1}},
						},
						"required": []any{"topic", "questions"},
					},
				},
			},
			"required": []any{"topics"},
		},
	}
)

func writeHeader(b *strings.Builder, data *QuizData) {
	fmt.Fprintf(b, "Quiz: %s", data.Quiz.Title)
	if data.Quiz.Certification != "" {
		fmt.Fprintf(b, " (%s)", data.Quiz.Certification)
	}
	fmt.Fprintf(b, "\nCategory: %s\n", data.Quiz.Category)
	fmt.Fprintf(b, "Score: %d/%d (%d%%), time spent: %ds\n",
		data.Attempt.Score, len(data.Questions), data.Attempt.Percentage, data.Attempt.TimeSpentSeconds)
	if u := data.User; u.TargetCertification != "" || u.ExperienceLevel != "" {
		fmt.Fprintf(b, "Learner: target %q, experience %q, %d study hours/week",
			u.TargetCertification, u.ExperienceLevel, u.StudyHoursPerWeek)
		if u.ExamDate != nil {
			fmt.Fprintf(b, ", exam on %s", u.ExamDate.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeQuestion(b *strings.Builder, q QuestionRecord) {
	mark := "INCORRECT"
	if q.IsCorrect {
		mark = "CORRECT"
	}
	fmt.Fprintf(b, "Q%d [%s | %s] %s\n", q.Number, q.Category, orDash(q.Difficulty), mark)
	fmt.Fprintf(b, "  Question: %s\n", q.Content)
	fmt.Fprintf(b, "  User answer: %s\n", joinOrNone(q.UserAnswers))
	fmt.Fprintf(b, "  Correct answer: %s\n", joinOrNone(q.CorrectAnswers))
	if q.Explanation != "" {
		fmt.Fprintf(b, "  Explanation: %s\n", q.Explanation)
	}
}

func StrengthsPrompt(data *QuizData) string {
	var b strings.Builder
	writeHeader(&b, data)
	for _, q := range data.Questions {
		writeQuestion(&b, q)
	}
	b.WriteString("\nIdentify 2-4 strengths and 2-4 weaknesses grounded in the questions above, ")
	b.WriteString("and one short insight paragraph.\n")
	b.WriteString(`Return {"strengths": [string], "weaknesses": [string], "insight": string}.`)
	return b.String()
}

// RecommendationsPrompt includes only the most recent misses, newest last.
func RecommendationsPrompt(data *QuizData, priorWeaknesses []string) string {
	var b strings.Builder
	writeHeader(&b, data)

	misses := RecentMisses(data, RecommendationMissLimit)
	if len(misses) == 0 {
		b.WriteString("The learner answered every question correctly.\n")
	} else {
		fmt.Fprintf(&b, "Missed questions (%d most recent):\n", len(misses))
		for _, q := range misses {
			writeQuestion(&b, q)
		}
	}
	if len(priorWeaknesses) > 0 {
		b.WriteString("\nWeaknesses identified in the previous analysis:\n")
		for _, w := range priorWeaknesses {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	b.WriteString("\nGive 3-5 prioritized study recommendations (priority 1 is most urgent).\n")
	b.WriteString(`Return {"recommendations": [{"priority": int, "topic": string, "action": string, "reason": string}]}.`)
	return b.String()
}

func TopicMasteryPrompt(data *QuizData) string {
	var b strings.Builder
	writeHeader(&b, data)
	for _, q := range data.Questions {
		fmt.Fprintf(&b, "Q%d [%s] %s\n", q.Number, q.Category, q.Content)
	}
	b.WriteString("\nGroup every question number above into specific exam topics (for example \"VPC peering\", ")
	b.WriteString("\"S3 storage classes\"). Each question belongs to exactly one topic.\n")
	b.WriteString(`Return {"topics": [{"topic": string, "questions": [int]}]}.`)
	return b.String()
}

// RecentMisses returns up to limit incorrect answers, keeping the last ones in
// question order.
func RecentMisses(data *QuizData, limit int) []QuestionRecord {
	var misses []QuestionRecord
	for _, q := range data.Questions {
		if !q.IsCorrect {
			misses = append(misses, q)
		}
	}
	if limit > 0 && len(misses) > limit {
		misses = misses[len(misses)-limit:]
	}
	return misses
}

func joinOrNone(xs []string) string {
	if len(xs) == 0 {
		return "(none)"
	}
	return strings.Join(xs, "; ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
