package app

import (
	"gorm.io/gorm"

	analysisrepo "github.com/yungbote/certquiz-backend/internal/data/repos/analysis"
	"github.com/yungbote/certquiz-backend/internal/data/repos/billing"
	gamerepo "github.com/yungbote/certquiz-backend/internal/data/repos/gamification"
	"github.com/yungbote/certquiz-backend/internal/data/repos/learning"
	"github.com/yungbote/certquiz-backend/internal/data/repos/quiz"
	"github.com/yungbote/certquiz-backend/internal/data/repos/user"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

type Repos struct {
	User          user.UserRepo
	Onboarding    user.OnboardingProfileRepo
	Subscription  billing.SubscriptionRepo
	Quiz          quiz.QuizRepo
	QuizAttempt   quiz.QuizAttemptRepo
	QuizAnalysis  analysisrepo.QuizAnalysisRepo
	AnalyzerRun   analysisrepo.AnalyzerResultRepo
	TopicMastery  learning.TopicMasteryRepo
	Streak        gamerepo.UserStreakRepo
	XP            gamerepo.UserXPRepo
	DailyActivity gamerepo.DailyActivityRepo
	XPTransaction gamerepo.XPTransactionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:          user.NewUserRepo(db, log),
		Onboarding:    user.NewOnboardingProfileRepo(db, log),
		Subscription:  billing.NewSubscriptionRepo(db, log),
		Quiz:          quiz.NewQuizRepo(db, log),
		QuizAttempt:   quiz.NewQuizAttemptRepo(db, log),
		QuizAnalysis:  analysisrepo.NewQuizAnalysisRepo(db, log),
		AnalyzerRun:   analysisrepo.NewAnalyzerResultRepo(db, log),
		TopicMastery:  learning.NewTopicMasteryRepo(db, log),
		Streak:        gamerepo.NewUserStreakRepo(db, log),
		XP:            gamerepo.NewUserXPRepo(db, log),
		DailyActivity: gamerepo.NewDailyActivityRepo(db, log),
		XPTransaction: gamerepo.NewXPTransactionRepo(db, log),
	}
}
