package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gorm.io/datatypes"

	"github.com/yungbote/certquiz-backend/internal/domain"
)

// ApplyFacts rebuilds the analyzer-owned columns of view from the newest fact
// per analyzer. Only succeeded facts contribute data.
func ApplyFacts(view *domain.QuizAnalysis, facts map[string]*domain.AnalyzerResult) error {
	for _, name := range append(append([]string{}, ScoringAnalyzers...), AIAnalyzers...) {
		f := facts[name]
		if f == nil || f.Status != StatusSucceeded || len(f.Payload) == 0 {
			continue
		}
		if err := applyFact(view, name, f.Payload); err != nil {
			return fmt.Errorf("project %s: %w", name, err)
		}
	}
	return nil
}

func applyFact(view *domain.QuizAnalysis, name string, payload []byte) error {
	switch name {
	case AnalyzerCategoryScores:
		view.CategoryScores = datatypes.JSON(payload)
	case AnalyzerTimeEfficiency:
		var te TimeEfficiency
		if err := json.Unmarshal(payload, &te); err != nil {
			return err
		}
		view.TimeEfficiency = datatypes.JSON(payload)
		score := te.OverallScore
		view.OverallScore = &score
	case AnalyzerStrengthsWeaknesses:
		var sw StrengthsWeaknesses
		if err := json.Unmarshal(payload, &sw); err != nil {
			return err
		}
		view.Strengths = mustJSON(sw.Strengths)
		view.Weaknesses = mustJSON(sw.Weaknesses)
		insight := sw.Insight
		view.Insight = &insight
	case AnalyzerRecommendations:
		var recs Recommendations
		if err := json.Unmarshal(payload, &recs); err != nil {
			return err
		}
		view.Recommendations = mustJSON(recs.Recommendations)
	case AnalyzerTopicMastery:
		var scores []TopicScore
		if err := json.Unmarshal(payload, &scores); err != nil {
			return err
		}
		byTopic := make(map[string]TopicScore, len(scores))
		for _, s := range scores {
			byTopic[s.Topic] = s
		}
		view.TopicMastery = mustJSON(byTopic)
	}
	return nil
}

// AnalyzerStatuses summarizes every analyzer this run cared about.
// skipped were gated off, pending had not settled when the join gave up.
// An expected analyzer with no fact is reported failed.
func AnalyzerStatuses(facts map[string]*domain.AnalyzerResult, expected, skipped, pending []string) map[string]string {
	out := map[string]string{}
	for _, name := range skipped {
		out[name] = StatusSkipped
	}
	for _, name := range expected {
		out[name] = StatusFailed
	}
	for name, f := range facts {
		out[name] = f.Status
	}
	for _, name := range pending {
		if f := facts[name]; f == nil || f.Status != StatusSucceeded {
			out[name] = StatusPending
		}
	}
	return out
}

// HasRequired reports whether the view carries every field completion depends on.
func HasRequired(view *domain.QuizAnalysis) bool {
	return hasJSON(view.CategoryScores) && hasJSON(view.TimeEfficiency)
}

// MissingRequired names the required analyzers whose data is absent.
func MissingRequired(view *domain.QuizAnalysis) []string {
	var out []string
	if !hasJSON(view.CategoryScores) {
		out = append(out, AnalyzerCategoryScores)
	}
	if !hasJSON(view.TimeEfficiency) {
		out = append(out, AnalyzerTimeEfficiency)
	}
	return out
}

// Decide returns the terminal status and error text for a finalized view.
// AI analyzers never block completion. When required data is missing, a join
// timeout is reported separately from analyzers that settled without data.
func Decide(view *domain.QuizAnalysis, pending []string) (string, string) {
	if HasRequired(view) {
		return domain.AnalysisCompleted, ""
	}
	if len(pending) > 0 {
		p := append([]string{}, pending...)
		sort.Strings(p)
		return domain.AnalysisFailed, fmt.Sprintf("timed out waiting for %d analyzers: %s", len(p), strings.Join(p, ", "))
	}
	return domain.AnalysisFailed, "required analyses missing: " + strings.Join(MissingRequired(view), ", ")
}

func hasJSON(j datatypes.JSON) bool {
	s := strings.TrimSpace(string(j))
	return s != "" && s != "null" && s != "{}"
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(b)
}
