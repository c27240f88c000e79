package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *domain.User {
	tb.Helper()
	u := &domain.User{Email: email, DisplayName: "Test User"}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCategory(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *domain.Category {
	tb.Helper()
	c := &domain.Category{Name: name, Slug: fmt.Sprintf("%s-%s", name, uuid.NewString()[:8])}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed category: %v", err)
	}
	return c
}

// SeedQuiz creates a published quiz with n single-answer questions in the given
// category (nil for uncategorized). Option 0 of every question is correct.
func SeedQuiz(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, category *domain.Category, n int) *domain.Quiz {
	tb.Helper()
	q := &domain.Quiz{Title: title, Certification: "AWS SAA", Published: true}
	if category != nil {
		q.CategoryID = &category.ID
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed quiz: %v", err)
	}
	for i := 0; i < n; i++ {
		question := &domain.Question{
			QuizID:      q.ID,
			Position:    i + 1,
			Content:     fmt.Sprintf("Question %d", i+1),
			Difficulty:  "medium",
			Explanation: fmt.Sprintf("Explanation %d", i+1),
		}
		if category != nil {
			question.CategoryID = &category.ID
		}
		if err := tx.WithContext(ctx).Create(question).Error; err != nil {
			tb.Fatalf("seed question: %v", err)
		}
		for j := 0; j < 4; j++ {
			opt := &domain.QuestionOption{
				QuestionID: question.ID,
				Position:   j,
				Content:    fmt.Sprintf("Option %c", 'A'+j),
				IsCorrect:  j == 0,
			}
			if err := tx.WithContext(ctx).Create(opt).Error; err != nil {
				tb.Fatalf("seed option: %v", err)
			}
			question.Options = append(question.Options, opt)
		}
		q.Questions = append(q.Questions, question)
	}
	return q
}

// SeedAttempt records a completed attempt where the first `correct` questions
// were answered right and the rest picked the second option.
func SeedAttempt(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, quiz *domain.Quiz, correct, totalSeconds int) *domain.QuizAttempt {
	tb.Helper()
	n := len(quiz.Questions)
	pct := 0
	if n > 0 {
		pct = (100*correct + n/2) / n
	}
	done := time.Now().UTC()
	a := &domain.QuizAttempt{
		UserID:           userID,
		QuizID:           quiz.ID,
		Score:            correct,
		Percentage:       pct,
		TimeSpentSeconds: totalSeconds,
		StartedAt:        done.Add(-time.Duration(totalSeconds) * time.Second),
		CompletedAt:      &done,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed attempt: %v", err)
	}
	per := 0
	if n > 0 {
		per = totalSeconds / n
	}
	for i, q := range quiz.Questions {
		pick := q.Options[1].ID
		if i < correct {
			pick = q.Options[0].ID
		}
		sel, _ := json.Marshal([]uuid.UUID{pick})
		qa := &domain.QuestionAttempt{
			QuizAttemptID:     a.ID,
			QuestionID:        q.ID,
			Position:          q.Position,
			SelectedOptionIDs: datatypes.JSON(sel),
			IsCorrect:         i < correct,
			TimeSpentSeconds:  per,
		}
		if err := tx.WithContext(ctx).Create(qa).Error; err != nil {
			tb.Fatalf("seed question attempt: %v", err)
		}
	}
	return a
}

func SeedSubscription(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, status, plan string) *domain.Subscription {
	tb.Helper()
	end := time.Now().UTC().Add(30 * 24 * time.Hour)
	s := &domain.Subscription{UserID: userID, Status: status, PlanName: plan, CurrentPeriodEnd: &end}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed subscription: %v", err)
	}
	return s
}
