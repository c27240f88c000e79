package analysis

import "math"

// Time-efficiency bands, in average seconds per question.
const (
	FastThresholdSeconds    = 60
	AverageThresholdSeconds = 90
	BenchmarkSeconds        = 75
)

const (
	RatingFast    = "fast"
	RatingAverage = "average"
	RatingSlow    = "slow"
)

// ScoreCategories groups questions by category label and computes the rounded
// percentage correct for each group.
func ScoreCategories(data *QuizData) CategoryScores {
	out := CategoryScores{}
	for _, q := range data.Questions {
		cat := q.Category
		if cat == "" {
			cat = DefaultCategory
		}
		s := out[cat]
		s.Total++
		if q.IsCorrect {
			s.Correct++
		}
		out[cat] = s
	}
	for cat, s := range out {
		s.Percentage = Percent(s.Correct, s.Total)
		out[cat] = s
	}
	return out
}

// ScoreTimeEfficiency rates the average pace and carries the attempt's overall
// percentage along for the analysis record.
func ScoreTimeEfficiency(data *QuizData) TimeEfficiency {
	n := len(data.Questions)
	total := data.Attempt.TimeSpentSeconds
	avg := 0.0
	if n > 0 {
		avg = float64(total) / float64(n)
	}
	overall := data.Attempt.Percentage
	if overall == 0 && n > 0 {
		overall = Percent(data.CorrectCount(), n)
	}
	return TimeEfficiency{
		AverageSecondsPerQuestion: math.Round(avg*10) / 10,
		BenchmarkSeconds:          BenchmarkSeconds,
		Rating:                    RateTime(avg),
		TotalSeconds:              total,
		OverallScore:              overall,
	}
}

func RateTime(avgSeconds float64) string {
	switch {
	case avgSeconds <= FastThresholdSeconds:
		return RatingFast
	case avgSeconds <= AverageThresholdSeconds:
		return RatingAverage
	default:
		return RatingSlow
	}
}

// Percent is round(100*num/den), 0 when den is 0.
func Percent(num, den int) int {
	if den <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(num) / float64(den)))
}
