package gamification

import (
	"time"

	"github.com/yungbote/certquiz-backend/internal/domain"
)

// FreezeMilestone is the streak length interval that earns a streak freeze.
const FreezeMilestone = 7

type StreakChange struct {
	Previous      int  `json:"previous"`
	Current       int  `json:"current"`
	Advanced      bool `json:"advanced"`
	Reset         bool `json:"reset"`
	FreezeGranted bool `json:"freeze_granted"`
}

// AdvanceStreak applies one activity at now to s. Days are calendar days in loc.
// A second activity on the same day leaves the count alone.
func AdvanceStreak(s *domain.UserStreak, now time.Time, loc *time.Location) StreakChange {
	ch := StreakChange{Previous: s.CurrentStreak}
	switch {
	case s.LastActivityAt == nil || s.CurrentStreak <= 0:
		s.CurrentStreak = 1
		ch.Advanced = true
	default:
		switch diff := DaysBetween(*s.LastActivityAt, now, loc); {
		case diff <= 0:
			ch.Current = s.CurrentStreak
			if diff < 0 {
				// clock skew: keep the later timestamp
				return ch
			}
		case diff == 1:
			s.CurrentStreak++
			ch.Advanced = true
		default:
			s.CurrentStreak = 1
			ch.Reset = true
		}
	}

	if ch.Advanced && s.CurrentStreak%FreezeMilestone == 0 && s.StreakFreezes < domain.MaxStreakFreezes {
		s.StreakFreezes++
		ch.FreezeGranted = true
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	t := now.UTC()
	s.LastActivityAt = &t
	ch.Current = s.CurrentStreak
	return ch
}

// DaysBetween counts calendar-day boundaries from a to b in loc.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// LocalDate formats t as the YYYY-MM-DD bucket key in loc.
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
