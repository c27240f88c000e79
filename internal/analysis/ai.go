package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/certquiz-backend/internal/llm"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

// AIAnalyzer issues one model call per analysis facet. Retrying is the caller's job.
type AIAnalyzer struct {
	provider  llm.Provider
	maxTokens int
	log       *logger.Logger
}

func NewAIAnalyzer(provider llm.Provider, maxTokens int, log *logger.Logger) *AIAnalyzer {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &AIAnalyzer{provider: provider, maxTokens: maxTokens, log: log.With("component", "AIAnalyzer")}
}

func (a *AIAnalyzer) call(ctx context.Context, purpose string, data *QuizData, prompt string, schema *llm.Schema, out any) error {
	ctx = llm.WithCallTag(ctx, llm.CallTag{Purpose: purpose, AttemptID: data.Attempt.ID.String()})
	resp, err := a.provider.Generate(ctx, llm.UserPrompt(systemPrompt, prompt, schema, a.maxTokens))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Content, out); err != nil {
		return &llm.ErrInvalidResponse{Content: resp.Content, Err: fmt.Errorf("decode %s: %w", purpose, err)}
	}
	return nil
}

func (a *AIAnalyzer) StrengthsWeaknesses(ctx context.Context, data *QuizData) (*StrengthsWeaknesses, error) {
	var out StrengthsWeaknesses
	if err := a.call(ctx, AnalyzerStrengthsWeaknesses, data, StrengthsPrompt(data), strengthsSchema, &out); err != nil {
		return nil, err
	}
	out.Strengths = cleanList(out.Strengths)
	out.Weaknesses = cleanList(out.Weaknesses)
	out.Insight = strings.TrimSpace(out.Insight)
	return &out, nil
}

// Recommendations returns the model's list sorted by ascending priority.
func (a *AIAnalyzer) Recommendations(ctx context.Context, data *QuizData, priorWeaknesses []string) (*Recommendations, error) {
	var out Recommendations
	if err := a.call(ctx, AnalyzerRecommendations, data, RecommendationsPrompt(data, priorWeaknesses), recommendationsSchema, &out); err != nil {
		return nil, err
	}
	sort.SliceStable(out.Recommendations, func(i, j int) bool {
		return out.Recommendations[i].Priority < out.Recommendations[j].Priority
	})
	return &out, nil
}

// TopicGroups asks the model to cluster question numbers into topics.
func (a *AIAnalyzer) TopicGroups(ctx context.Context, data *QuizData) ([]TopicGroup, error) {
	var out struct {
		Topics []TopicGroup `json:"topics"`
	}
	if err := a.call(ctx, AnalyzerTopicMastery, data, TopicMasteryPrompt(data), topicSchema, &out); err != nil {
		return nil, err
	}
	if len(out.Topics) == 0 {
		return nil, &llm.ErrInvalidResponse{Err: fmt.Errorf("no topics returned")}
	}
	return out.Topics, nil
}

func cleanList(xs []string) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if x = strings.TrimSpace(x); x != "" {
			out = append(out, x)
		}
	}
	return out
}
