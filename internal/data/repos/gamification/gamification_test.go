package gamification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/certquiz-backend/internal/data/repos/testutil"
	"github.com/yungbote/certquiz-backend/internal/domain"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
)

func TestUserXPRepoRank(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.WithTx(context.Background(), tx)
	repo := NewUserXPRepo(db, testutil.Logger(t))

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	for _, row := range []*domain.UserXP{
		{UserID: a, TotalXP: 500, Level: 3},
		{UserID: b, TotalXP: 1200, Level: 5},
		{UserID: c, TotalXP: 500, Level: 3},
	} {
		if err := repo.Save(dbc, row); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	top, err := repo.Top(dbc, 2)
	if err != nil || len(top) != 2 || top[0].UserID != b {
		t.Fatalf("Top: got %v err=%v", top, err)
	}

	if rank, err := repo.Rank(dbc, a); err != nil || rank != 2 {
		t.Fatalf("Rank(a): expected 2 got %d err=%v", rank, err)
	}
	if rank, err := repo.Rank(dbc, c); err != nil || rank != 2 {
		t.Fatalf("Rank(c): ties share a rank, got %d err=%v", rank, err)
	}
	if rank, _ := repo.Rank(dbc, uuid.New()); rank != 0 {
		t.Fatalf("Rank(unknown): expected 0, got %d", rank)
	}
}

func TestStreakAndDailyActivityRepos(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.WithTx(context.Background(), tx)
	log := testutil.Logger(t)

	streaks := NewUserStreakRepo(db, log)
	days := NewDailyActivityRepo(db, log)
	txns := NewXPTransactionRepo(db, log)

	userID := uuid.New()
	if got, err := streaks.GetByUserID(dbc, userID); err != nil || got != nil {
		t.Fatalf("GetByUserID missing: expected nil,nil got %v,%v", got, err)
	}
	now := time.Now().UTC()
	if err := streaks.Save(dbc, &domain.UserStreak{UserID: userID, CurrentStreak: 1, LongestStreak: 1, LastActivityAt: &now}); err != nil {
		t.Fatalf("Save streak: %v", err)
	}
	if got, _ := streaks.GetByUserID(dbc, userID); got == nil || got.CurrentStreak != 1 {
		t.Fatalf("GetByUserID: got %v", got)
	}

	for _, d := range []string{"2026-01-01", "2026-01-02", "2026-01-05"} {
		if err := days.Save(dbc, &domain.DailyActivity{UserID: userID, ActivityDate: d, XPEarned: 10}); err != nil {
			t.Fatalf("Save day: %v", err)
		}
	}
	rng, err := days.ListRange(dbc, userID, "2026-01-01", "2026-01-03")
	if err != nil || len(rng) != 2 || rng[0].ActivityDate != "2026-01-01" {
		t.Fatalf("ListRange: got %v err=%v", rng, err)
	}

	for _, amt := range []int{10, 25} {
		if err := txns.Create(dbc, &domain.XPTransaction{UserID: userID, Amount: amt, Source: "quiz"}); err != nil {
			t.Fatalf("Create txn: %v", err)
		}
	}
	if sum, err := txns.SumByUser(dbc, userID); err != nil || sum != 35 {
		t.Fatalf("SumByUser: got %d err=%v", sum, err)
	}
}

func TestLockOrCreateToleratesExistingRows(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.WithTx(context.Background(), tx)
	log := testutil.Logger(t)

	streaks := NewUserStreakRepo(db, log)
	xp := NewUserXPRepo(db, log)
	days := NewDailyActivityRepo(db, log)
	userID := uuid.New()

	// A brand-new user gets zero rows.
	s, err := streaks.LockOrCreate(dbc, userID)
	if err != nil || s == nil || s.CurrentStreak != 0 {
		t.Fatalf("LockOrCreate streak: got %v err=%v", s, err)
	}
	x, err := xp.LockOrCreate(dbc, userID)
	if err != nil || x == nil || x.TotalXP != 0 || x.Level != 1 {
		t.Fatalf("LockOrCreate xp: got %v err=%v", x, err)
	}
	d, err := days.LockOrCreate(dbc, userID, "2026-03-01")
	if err != nil || d == nil || d.XPEarned != 0 {
		t.Fatalf("LockOrCreate day: got %v err=%v", d, err)
	}

	// Another writer got there first: the insert is a no-op and the stored row wins.
	s.CurrentStreak = 4
	x.TotalXP = 120
	d.XPEarned = 30
	if err := streaks.Save(dbc, s); err != nil {
		t.Fatalf("Save streak: %v", err)
	}
	if err := xp.Save(dbc, x); err != nil {
		t.Fatalf("Save xp: %v", err)
	}
	if err := days.Save(dbc, d); err != nil {
		t.Fatalf("Save day: %v", err)
	}

	s2, err := streaks.LockOrCreate(dbc, userID)
	if err != nil || s2.ID != s.ID || s2.CurrentStreak != 4 {
		t.Fatalf("LockOrCreate existing streak: got %v err=%v", s2, err)
	}
	x2, err := xp.LockOrCreate(dbc, userID)
	if err != nil || x2.ID != x.ID || x2.TotalXP != 120 {
		t.Fatalf("LockOrCreate existing xp: got %v err=%v", x2, err)
	}
	d2, err := days.LockOrCreate(dbc, userID, "2026-03-01")
	if err != nil || d2.ID != d.ID || d2.XPEarned != 30 {
		t.Fatalf("LockOrCreate existing day: got %v err=%v", d2, err)
	}

	if _, err := streaks.LockOrCreate(dbc, uuid.Nil); err == nil {
		t.Fatalf("LockOrCreate nil user: expected error")
	}
}
