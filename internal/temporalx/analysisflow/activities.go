package analysisflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/certquiz-backend/internal/analysis"
	analysisrepo "github.com/yungbote/certquiz-backend/internal/data/repos/analysis"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/events"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
	"github.com/yungbote/certquiz-backend/internal/realtime"
	"github.com/yungbote/certquiz-backend/internal/realtime/bus"
	"github.com/yungbote/certquiz-backend/internal/services"
)

type Activities struct {
	Log       *logger.Logger
	Analysis  *analysis.Service
	Dashboard services.DashboardService
	Events    services.EventSender
	// Bus is optional; settled analyses are announced on the user channel.
	Bus bus.Bus
}

func (a *Activities) CreateAnalysis(ctx context.Context, in CreateAnalysisInput) (CreateAnalysisResult, error) {
	row, err := a.Analysis.Create(ctx, in.UserID, in.AttemptID)
	if errors.Is(err, analysisrepo.ErrAnalysisExists) && in.Resume {
		row, err = a.Analysis.Resume(ctx, in.AttemptID)
	}
	if errors.Is(err, analysisrepo.ErrAnalysisExists) {
		return CreateAnalysisResult{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("analysis already exists for attempt %s", in.AttemptID), ErrTypeAnalysisExists, err)
	}
	if err != nil {
		return CreateAnalysisResult{}, err
	}
	return CreateAnalysisResult{AnalysisID: row.ID, StartedAt: row.CreatedAt}, nil
}

func (a *Activities) FetchQuizData(ctx context.Context, attemptID uuid.UUID) (*analysis.QuizData, error) {
	data, err := a.Analysis.FetchQuizData(ctx, attemptID)
	if errors.Is(err, analysis.ErrAttemptNotFound) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeAttemptNotFound, err)
	}
	return data, err
}

func (a *Activities) ResolveTier(ctx context.Context, userID uuid.UUID) (analysis.TierResult, error) {
	return a.Analysis.ResolveTier(ctx, userID), nil
}

func (a *Activities) RecordTier(ctx context.Context, in RecordTierInput) error {
	return a.Analysis.RecordTier(ctx, in.AnalysisID, in.Tier)
}

// RunAnalyzer records the Temporal attempt number on the fact it appends.
func (a *Activities) RunAnalyzer(ctx context.Context, in RunAnalyzerInput) (*analysis.Outcome, error) {
	out, err := a.Analysis.Run(ctx, analysis.RunInput{
		AnalysisID: in.Request.AnalysisID,
		Analyzer:   in.Analyzer,
		Data:       in.Request.QuizData,
		Tier:       in.Request.Tier,
		Attempt:    int(activity.GetInfo(ctx).Attempt),
	})
	if errors.Is(err, analysis.ErrUnknownAnalyzer) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeUnknownAnalyzer, err)
	}
	return out, err
}

func (a *Activities) Finalize(ctx context.Context, in FinalizeInput) (*analysis.FinalizeResult, error) {
	res, err := a.Analysis.Finalize(ctx, in.FinalizeInput)
	if err != nil {
		return nil, err
	}
	a.invalidateDashboard(ctx, in.UserID)
	if a.Bus != nil && in.UserID != uuid.Nil {
		msg := realtime.Message{
			Channel: realtime.UserChannel(in.UserID),
			Event:   realtime.EventAnalysisSettled,
			Data:    map[string]any{"analysis_id": in.AnalysisID, "status": res.Status},
		}
		if perr := a.Bus.Publish(ctx, msg); perr != nil {
			a.Log.Warn("publish analysis settled failed", "analysis_id", in.AnalysisID, "error", perr)
		}
	}
	return res, nil
}

func (a *Activities) MarkFailed(ctx context.Context, in MarkFailedInput) error {
	return a.Analysis.MarkFailed(ctx, in.AnalysisID, in.Reason)
}

func (a *Activities) Reproject(ctx context.Context, analysisID uuid.UUID) (string, error) {
	view, err := a.Analysis.Reproject(ctx, analysisID)
	if err != nil {
		return "", err
	}
	if view == nil {
		return "", temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("analysis %s not found", analysisID), ErrTypeAnalysisNotFound, nil)
	}
	if view.Status != domain.AnalysisProcessing {
		a.invalidateDashboard(ctx, view.UserID)
	}
	return view.Status, nil
}

func (a *Activities) invalidateDashboard(ctx context.Context, userID uuid.UUID) {
	if a.Dashboard == nil || userID == uuid.Nil {
		return
	}
	if err := a.Dashboard.Invalidate(ctx, userID); err != nil {
		a.Log.Warn("dashboard cache invalidation failed", "user_id", userID, "error", err)
	}
}

// RequestDashboardUpdate emits dashboard/update-requested. A refresh that is
// already running absorbs the request.
func (a *Activities) RequestDashboardUpdate(ctx context.Context, userID uuid.UUID) error {
	if a.Events == nil {
		return nil
	}
	_, err := a.Events.Send(ctx, events.NewDashboardUpdateRequested(userID))
	if errors.Is(err, events.ErrAlreadyStarted) {
		return nil
	}
	return err
}

func (a *Activities) AcquireDashboardWindow(ctx context.Context, userID uuid.UUID) (bool, error) {
	return a.Dashboard.AcquireRefresh(ctx, userID)
}

func (a *Activities) RefreshDashboard(ctx context.Context, userID uuid.UUID) error {
	_, err := a.Dashboard.Refresh(ctx, userID)
	return err
}
