package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/yungbote/certquiz-backend/internal/data/repos/billing"
	"github.com/yungbote/certquiz-backend/internal/data/repos/testutil"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
)

type brokenSubs struct{}

func (brokenSubs) GetActiveByUserID(dbctx.Context, uuid.UUID) (*domain.Subscription, error) {
	return nil, errors.New("billing db unreachable")
}

func TestClassifyPlan(t *testing.T) {
	assert.Equal(t, TierPro, ClassifyPlan("Pro Annual"))
	assert.Equal(t, TierPro, ClassifyPlan("PRO"))
	assert.Equal(t, TierPremium, ClassifyPlan("Premium Monthly"))
	assert.Equal(t, TierPremium, ClassifyPlan("Starter"))
	assert.Equal(t, TierPremium, ClassifyPlan(""))
}

func TestTierOrdering(t *testing.T) {
	assert.True(t, TierPro.AtLeast(TierPremium))
	assert.True(t, TierPremium.AtLeast(TierFree))
	assert.False(t, TierFree.AtLeast(TierPremium))
	assert.False(t, TierFree.Premium())
	assert.True(t, TierPro.Premium())
}

func TestTierResolver(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	log := testutil.Logger(t)
	r := NewTierResolver(billing.NewSubscriptionRepo(db, log), log)

	free := uuid.New()
	assert.Equal(t, TierResult{Tier: TierFree, Known: true}, r.Resolve(ctx, free))

	premium := uuid.New()
	testutil.SeedSubscription(t, ctx, db, premium, domain.SubscriptionActive, "Premium Monthly")
	got := r.Resolve(ctx, premium)
	assert.Equal(t, TierPremium, got.Tier)
	assert.True(t, got.Known)

	pro := uuid.New()
	testutil.SeedSubscription(t, ctx, db, pro, domain.SubscriptionTrialing, "Pro Trial")
	assert.Equal(t, TierPro, r.Resolve(ctx, pro).Tier)

	broken := NewTierResolver(brokenSubs{}, log)
	got = broken.Resolve(ctx, premium)
	assert.Equal(t, TierFree, got.Tier)
	assert.False(t, got.Known, "lookup failures are not confirmed free")
	assert.NotEmpty(t, got.Error)
}
