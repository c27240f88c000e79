package analysis

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

// AnalyzerResultRepo is append-only. Each analyzer invocation writes a fact and the
// analysis view is rebuilt from the newest fact per analyzer.
type AnalyzerResultRepo interface {
	Append(dbc dbctx.Context, row *domain.AnalyzerResult) error
	LatestByAnalysis(dbc dbctx.Context, analysisID uuid.UUID) (map[string]*domain.AnalyzerResult, error)
	ListByAnalysis(dbc dbctx.Context, analysisID uuid.UUID) ([]*domain.AnalyzerResult, error)
}

type analyzerResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalyzerResultRepo(db *gorm.DB, baseLog *logger.Logger) AnalyzerResultRepo {
	return &analyzerResultRepo{db: db, log: baseLog.With("repo", "AnalyzerResultRepo")}
}

func (r *analyzerResultRepo) Append(dbc dbctx.Context, row *domain.AnalyzerResult) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *analyzerResultRepo) ListByAnalysis(dbc dbctx.Context, analysisID uuid.UUID) ([]*domain.AnalyzerResult, error) {
	if analysisID == uuid.Nil {
		return nil, nil
	}
	var out []*domain.AnalyzerResult
	err := dbc.DB(r.db).
		Where("analysis_id = ?", analysisID).
		Order("created_at ASC, attempt ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *analyzerResultRepo) LatestByAnalysis(dbc dbctx.Context, analysisID uuid.UUID) (map[string]*domain.AnalyzerResult, error) {
	rows, err := r.ListByAnalysis(dbc, analysisID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*domain.AnalyzerResult, len(rows))
	for _, row := range rows {
		out[row.Analyzer] = row
	}
	return out, nil
}
