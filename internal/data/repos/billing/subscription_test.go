package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/certquiz-backend/internal/data/repos/testutil"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
)

func TestSubscriptionRepoActive(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.WithTx(ctx, tx)
	repo := NewSubscriptionRepo(db, testutil.Logger(t))

	userID := uuid.New()
	if got, err := repo.GetActiveByUserID(dbc, userID); err != nil || got != nil {
		t.Fatalf("expected no subscription, got %v err=%v", got, err)
	}

	testutil.SeedSubscription(t, ctx, tx, userID, domain.SubscriptionCanceled, "Pro Monthly")
	if got, _ := repo.GetActiveByUserID(dbc, userID); got != nil {
		t.Fatalf("canceled subscription must not count as active")
	}

	trial := testutil.SeedSubscription(t, ctx, tx, userID, domain.SubscriptionTrialing, "Premium Trial")
	got, err := repo.GetActiveByUserID(dbc, userID)
	if err != nil || got == nil || got.ID != trial.ID {
		t.Fatalf("expected trialing subscription, got %v err=%v", got, err)
	}
}
