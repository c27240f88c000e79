package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

type TopicMasteryRepo interface {
	// GetByUserAndTopics matches topics case-insensitively; the map is keyed by domain.TopicKey.
	GetByUserAndTopics(dbc dbctx.Context, userID uuid.UUID, topics []string) (map[string]*domain.TopicMastery, error)
	Upsert(dbc dbctx.Context, rows []*domain.TopicMastery) error
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*domain.TopicMastery, error)
	ListWeakest(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*domain.TopicMastery, error)
}

type topicMasteryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicMasteryRepo(db *gorm.DB, baseLog *logger.Logger) TopicMasteryRepo {
	return &topicMasteryRepo{db: db, log: baseLog.With("repo", "TopicMasteryRepo")}
}

func (r *topicMasteryRepo) GetByUserAndTopics(dbc dbctx.Context, userID uuid.UUID, topics []string) (map[string]*domain.TopicMastery, error) {
	out := map[string]*domain.TopicMastery{}
	if userID == uuid.Nil || len(topics) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(topics))
	for _, t := range topics {
		keys = append(keys, domain.TopicKey(t))
	}
	var rows []*domain.TopicMastery
	if err := dbc.DB(r.db).
		Where("user_id = ? AND LOWER(topic) IN ?", userID, keys).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if _, dup := out[domain.TopicKey(row.Topic)]; !dup {
			out[domain.TopicKey(row.Topic)] = row
		}
	}
	return out, nil
}

func (r *topicMasteryRepo) Upsert(dbc dbctx.Context, rows []*domain.TopicMastery) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "topic"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"mastery_score", "questions_answered", "correct_answers",
				"last_practiced_at", "trend", "updated_at",
			}),
		}).
		Create(rows).Error
}

func (r *topicMasteryRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*domain.TopicMastery, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var out []*domain.TopicMastery
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("topic ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *topicMasteryRepo) ListWeakest(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*domain.TopicMastery, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}
	var out []*domain.TopicMastery
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("mastery_score ASC, topic ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
