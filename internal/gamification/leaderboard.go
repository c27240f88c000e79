package gamification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	repos "github.com/yungbote/certquiz-backend/internal/data/repos/gamification"
	"github.com/yungbote/certquiz-backend/internal/platform/dbctx"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

const LeaderboardKey = "leaderboard:xp"

type LeaderboardEntry struct {
	UserID  uuid.UUID `json:"user_id"`
	TotalXP int64     `json:"total_xp"`
	Level   int       `json:"level"`
	Rank    int64     `json:"rank"`
}

// Leaderboard ranks users by total XP. Redis is the fast path; the user_xp
// table answers whenever Redis is absent or failing.
type Leaderboard struct {
	rdb *goredis.Client
	xp  repos.UserXPRepo
	log *logger.Logger
}

// NewLeaderboard accepts a nil client for a DB-only board.
func NewLeaderboard(rdb *goredis.Client, xp repos.UserXPRepo, log *logger.Logger) *Leaderboard {
	return &Leaderboard{rdb: rdb, xp: xp, log: log.With("service", "Leaderboard")}
}

func (l *Leaderboard) Set(ctx context.Context, userID uuid.UUID, totalXP int) error {
	if l.rdb == nil {
		return nil
	}
	return l.rdb.ZAdd(ctx, LeaderboardKey, goredis.Z{Score: float64(totalXP), Member: userID.String()}).Err()
}

func (l *Leaderboard) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if l.rdb != nil {
		entries, err := l.topFromRedis(ctx, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			l.log.Warn("leaderboard redis read failed, using database", "error", err)
		}
	}
	rows, err := l.xp.Top(dbctx.New(ctx), limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard from db: %w", err)
	}
	out := make([]LeaderboardEntry, len(rows))
	for i, r := range rows {
		out[i] = LeaderboardEntry{UserID: r.UserID, TotalXP: int64(r.TotalXP), Level: r.Level, Rank: int64(i + 1)}
	}
	return out, nil
}

func (l *Leaderboard) topFromRedis(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	zs, err := l.rdb.ZRevRangeWithScores(ctx, LeaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		id, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		xp := int64(z.Score)
		out = append(out, LeaderboardEntry{UserID: id, TotalXP: xp, Level: LevelForXP(int(xp)), Rank: int64(i + 1)})
	}
	return out, nil
}

// Rank is 1-indexed; 0 means the user has no XP yet.
func (l *Leaderboard) Rank(ctx context.Context, userID uuid.UUID) (int64, error) {
	if l.rdb != nil {
		rank, err := l.rdb.ZRevRank(ctx, LeaderboardKey, userID.String()).Result()
		switch {
		case err == nil:
			return rank + 1, nil
		case errors.Is(err, goredis.Nil):
		default:
			l.log.Warn("leaderboard redis rank failed, using database", "user_id", userID, "error", err)
		}
	}
	return l.xp.Rank(dbctx.New(ctx), userID)
}
