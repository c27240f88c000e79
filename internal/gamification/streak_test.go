package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/certquiz-backend/internal/domain"
)

var day0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func at(days int, hour int) time.Time {
	return time.Date(2026, 5, 4+days, hour, 0, 0, 0, time.UTC)
}

func TestAdvanceStreakRules(t *testing.T) {
	s := &domain.UserStreak{}
	ch := AdvanceStreak(s, day0, time.UTC)
	assert.Equal(t, 1, ch.Current)
	assert.True(t, ch.Advanced)

	ch = AdvanceStreak(s, at(0, 22), time.UTC)
	assert.Equal(t, 1, ch.Current, "same day is idempotent")
	assert.False(t, ch.Advanced)

	ch = AdvanceStreak(s, at(1, 1), time.UTC)
	assert.Equal(t, 2, ch.Current, "yesterday increments by one")

	ch = AdvanceStreak(s, at(4, 12), time.UTC)
	assert.Equal(t, 1, ch.Current, "gap resets")
	assert.True(t, ch.Reset)
	assert.Equal(t, 2, s.LongestStreak, "longest never decreases")
}

func TestAdvanceStreakUsesLocalDays(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 23:30 and 00:30 New York time are consecutive local days even though
	// they are the same UTC date.
	first := time.Date(2026, 5, 4, 3, 30, 0, 0, time.UTC)
	second := time.Date(2026, 5, 4, 4, 30, 0, 0, time.UTC)
	s := &domain.UserStreak{}
	AdvanceStreak(s, first, ny)
	ch := AdvanceStreak(s, second, ny)
	assert.Equal(t, 2, ch.Current)
}

func TestFreezesEverySeventhDayCapped(t *testing.T) {
	s := &domain.UserStreak{}
	for d := 0; d < 30; d++ {
		before := s.StreakFreezes
		ch := AdvanceStreak(s, at(d, 10), time.UTC)
		assert.LessOrEqual(t, s.StreakFreezes, domain.MaxStreakFreezes)
		if s.StreakFreezes > before {
			assert.Zero(t, ch.Current%FreezeMilestone, "freeze granted on day %d", ch.Current)
		}
	}
	assert.Equal(t, 30, s.CurrentStreak)
	assert.Equal(t, domain.MaxStreakFreezes, s.StreakFreezes)
}

func TestSameDayRepeatAtMilestoneDoesNotGrantAgain(t *testing.T) {
	s := &domain.UserStreak{}
	for d := 0; d < 7; d++ {
		AdvanceStreak(s, at(d, 8), time.UTC)
	}
	require.Equal(t, 1, s.StreakFreezes)
	ch := AdvanceStreak(s, at(6, 20), time.UTC)
	assert.False(t, ch.FreezeGranted)
	assert.Equal(t, 1, s.StreakFreezes)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(at(0, 1), at(0, 23), time.UTC))
	assert.Equal(t, 1, DaysBetween(at(0, 23), at(1, 0), time.UTC))
	assert.Equal(t, -1, DaysBetween(at(1, 0), at(0, 23), time.UTC))
	assert.Equal(t, "2026-05-04", LocalDate(day0, time.UTC))
}
