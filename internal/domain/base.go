package domain

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID fills a nil primary key before insert so models stay portable
// across Postgres and SQLite (no uuid_generate_v4 default).
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error              { assignID(&u.ID); return nil }
func (p *OnboardingProfile) BeforeCreate(*gorm.DB) error { assignID(&p.ID); return nil }
func (s *Subscription) BeforeCreate(*gorm.DB) error      { assignID(&s.ID); return nil }
func (c *Category) BeforeCreate(*gorm.DB) error          { assignID(&c.ID); return nil }
func (q *Quiz) BeforeCreate(*gorm.DB) error              { assignID(&q.ID); return nil }
func (q *Question) BeforeCreate(*gorm.DB) error          { assignID(&q.ID); return nil }
func (o *QuestionOption) BeforeCreate(*gorm.DB) error    { assignID(&o.ID); return nil }
func (a *QuizAttempt) BeforeCreate(*gorm.DB) error       { assignID(&a.ID); return nil }
func (a *QuestionAttempt) BeforeCreate(*gorm.DB) error   { assignID(&a.ID); return nil }
func (a *QuizAnalysis) BeforeCreate(*gorm.DB) error      { assignID(&a.ID); return nil }
func (r *AnalyzerResult) BeforeCreate(*gorm.DB) error    { assignID(&r.ID); return nil }
func (m *TopicMastery) BeforeCreate(*gorm.DB) error      { assignID(&m.ID); return nil }
func (s *UserStreak) BeforeCreate(*gorm.DB) error        { assignID(&s.ID); return nil }
func (x *UserXP) BeforeCreate(*gorm.DB) error            { assignID(&x.ID); return nil }
func (d *DailyActivity) BeforeCreate(*gorm.DB) error     { assignID(&d.ID); return nil }
func (t *XPTransaction) BeforeCreate(*gorm.DB) error     { assignID(&t.ID); return nil }

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&OnboardingProfile{},
		&Subscription{},
		&Category{},
		&Quiz{},
		&Question{},
		&QuestionOption{},
		&QuizAttempt{},
		&QuestionAttempt{},
		&QuizAnalysis{},
		&AnalyzerResult{},
		&TopicMastery{},
		&UserStreak{},
		&UserXP{},
		&DailyActivity{},
		&XPTransaction{},
	}
}
