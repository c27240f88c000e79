package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/certquiz-backend/internal/data/repos/quiz"
	"github.com/yungbote/certquiz-backend/internal/data/repos/user"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
)

const DefaultCategory = "General"

type Formatter struct {
	attempts quiz.QuizAttemptRepo
	profiles user.OnboardingProfileRepo
}

func NewFormatter(attempts quiz.QuizAttemptRepo, profiles user.OnboardingProfileRepo) *Formatter {
	return &Formatter{attempts: attempts, profiles: profiles}
}

func (f *Formatter) Format(ctx context.Context, attemptID uuid.UUID) (*QuizData, error) {
	dbc := dbctx.New(ctx)
	attempt, err := f.attempts.GetForAnalysis(dbc, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load attempt %s: %w", attemptID, err)
	}
	if attempt == nil {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, attemptID)
	}
	profile, err := f.profiles.GetByUserID(dbc, attempt.UserID)
	if err != nil {
		return nil, fmt.Errorf("load onboarding profile: %w", err)
	}
	return BuildQuizData(attempt, profile)
}

// BuildQuizData reshapes a fully preloaded attempt. profile may be nil.
func BuildQuizData(attempt *domain.QuizAttempt, profile *domain.OnboardingProfile) (*QuizData, error) {
	out := &QuizData{
		User: UserProfile{ID: attempt.UserID},
		Attempt: AttemptSummary{
			ID:               attempt.ID,
			Score:            attempt.Score,
			Percentage:       attempt.Percentage,
			TimeSpentSeconds: attempt.TimeSpentSeconds,
			TotalQuestions:   len(attempt.Questions),
			StartedAt:        attempt.StartedAt,
			CompletedAt:      attempt.CompletedAt,
		},
	}

	quizCategory := DefaultCategory
	if q := attempt.Quiz; q != nil {
		if q.Category != nil && q.Category.Name != "" {
			quizCategory = q.Category.Name
		}
		out.Quiz = QuizInfo{ID: q.ID, Title: q.Title, Certification: q.Certification, Category: quizCategory}
	} else {
		out.Quiz = QuizInfo{ID: attempt.QuizID, Category: quizCategory}
	}

	if profile != nil {
		out.User.TargetCertification = profile.TargetCertification
		out.User.ExperienceLevel = profile.ExperienceLevel
		out.User.StudyHoursPerWeek = profile.StudyHoursPerWeek
		out.User.ExamDate = profile.ExamDate
		out.User.Goals = profile.Goals
	}

	for i, qa := range attempt.Questions {
		rec := QuestionRecord{
			Number:           i + 1,
			QuestionID:       qa.QuestionID,
			Category:         DefaultCategory,
			IsCorrect:        qa.IsCorrect,
			TimeSpentSeconds: qa.TimeSpentSeconds,
			UserAnswers:      []string{},
			CorrectAnswers:   []string{},
		}
		selected, err := decodeSelected(qa.SelectedOptionIDs)
		if err != nil {
			return nil, fmt.Errorf("question attempt %s: %w", qa.ID, err)
		}
		if q := qa.Question; q != nil {
			rec.Content = q.Content
			rec.Difficulty = q.Difficulty
			rec.Explanation = q.Explanation
			if q.Category != nil && q.Category.Name != "" {
				rec.Category = q.Category.Name
			}
			for _, opt := range q.Options {
				if opt.IsCorrect {
					rec.CorrectAnswers = append(rec.CorrectAnswers, opt.Content)
				}
				if selected[opt.ID] {
					rec.UserAnswers = append(rec.UserAnswers, opt.Content)
				}
			}
		}
		out.Questions = append(out.Questions, rec)
	}
	return out, nil
}

func decodeSelected(raw []byte) (map[uuid.UUID]bool, error) {
	out := map[uuid.UUID]bool{}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode selected options: %w", err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
