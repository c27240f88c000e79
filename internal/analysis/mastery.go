package analysis

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/certquiz-backend/internal/domain"
)

// ScoreTopics computes per-topic correctness from the model's grouping.
// Question numbers outside the attempt are ignored and a question is only
// counted for the first topic that claims it.
func ScoreTopics(data *QuizData, groups []TopicGroup) []TopicScore {
	byNumber := make(map[int]QuestionRecord, len(data.Questions))
	for _, q := range data.Questions {
		byNumber[q.Number] = q
	}
	claimed := map[int]bool{}
	index := map[string]int{}
	var out []TopicScore
	for _, g := range groups {
		topic := strings.Join(strings.Fields(g.Topic), " ")
		if topic == "" {
			continue
		}
		key := domain.TopicKey(topic)
		i, ok := index[key]
		if !ok {
			out = append(out, TopicScore{Topic: topic})
			i = len(out) - 1
			index[key] = i
		}
		for _, n := range g.Questions {
			q, ok := byNumber[n]
			if !ok || claimed[n] {
				continue
			}
			claimed[n] = true
			out[i].Total++
			if q.IsCorrect {
				out[i].Correct++
			}
		}
	}
	kept := out[:0]
	for _, s := range out {
		if s.Total == 0 {
			continue
		}
		s.Percentage = Percent(s.Correct, s.Total)
		kept = append(kept, s)
	}
	return kept
}

// Trend compares a freshly computed mastery score with the stored one.
func Trend(prev *float64, next float64) string {
	switch {
	case prev == nil:
		return domain.TrendNew
	case next > *prev:
		return domain.TrendImproving
	case next < *prev:
		return domain.TrendDeclining
	default:
		return domain.TrendStable
	}
}

// FoldMastery merges this attempt's topic scores into the long-lived rows.
// existing is keyed by domain.TopicKey, and a matched row keeps its stored
// spelling. The mastery score is the cumulative percentage correct, rounded to
// one decimal. scores is updated in place with the resulting topic, mastery
// and trend.
func FoldMastery(userID uuid.UUID, existing map[string]*domain.TopicMastery, scores []TopicScore, now time.Time) []*domain.TopicMastery {
	rows := make([]*domain.TopicMastery, 0, len(scores))
	for i := range scores {
		s := &scores[i]
		answered, correct := s.Total, s.Correct
		var prev *float64
		if old, ok := existing[domain.TopicKey(s.Topic)]; ok && old != nil {
			s.Topic = old.Topic
			p := old.MasteryScore
			prev = &p
			answered += old.QuestionsAnswered
			correct += old.CorrectAnswers
		}
		score := 0.0
		if answered > 0 {
			score = math.Round(1000*float64(correct)/float64(answered)) / 10
		}
		s.MasteryScore = score
		s.Trend = Trend(prev, score)
		rows = append(rows, &domain.TopicMastery{
			UserID:            userID,
			Topic:             s.Topic,
			MasteryScore:      score,
			QuestionsAnswered: answered,
			CorrectAnswers:    correct,
			LastPracticedAt:   now,
			Trend:             s.Trend,
			UpdatedAt:         now,
		})
	}
	return rows
}
