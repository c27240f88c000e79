package analysis

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/certquiz-backend/internal/data/repos/billing"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

type TierResolver struct {
	subs billing.SubscriptionRepo
	log  *logger.Logger
}

func NewTierResolver(subs billing.SubscriptionRepo, log *logger.Logger) *TierResolver {
	return &TierResolver{subs: subs, log: log.With("component", "TierResolver")}
}

// Resolve never returns an error. A failed lookup yields free with Known=false
// so the caller can decide whether to look again before gating.
func (r *TierResolver) Resolve(ctx context.Context, userID uuid.UUID) TierResult {
	sub, err := r.subs.GetActiveByUserID(dbctx.New(ctx), userID)
	if err != nil {
		r.log.Warn("subscription lookup failed, defaulting to free", "user_id", userID, "error", err)
		return TierResult{Tier: TierFree, Known: false, Error: err.Error()}
	}
	if sub == nil {
		return TierResult{Tier: TierFree, Known: true}
	}
	return TierResult{Tier: ClassifyPlan(sub.PlanName), Known: true, Plan: sub.PlanName}
}

// ClassifyPlan maps an active plan name onto a tier. Unrecognized paid plans
// are premium.
func ClassifyPlan(plan string) Tier {
	p := strings.ToLower(plan)
	switch {
	case strings.Contains(p, "pro"):
		return TierPro
	case strings.Contains(p, "premium"):
		return TierPremium
	default:
		return TierPremium
	}
}
