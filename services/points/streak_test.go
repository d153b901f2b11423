package points

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) Day {
	t.Helper()
	d, err := ParseDay(s)
	require.NoError(t, err)
	return d
}

func TestNextStreakTransitions(t *testing.T) {
	tests := []struct {
		name   string
		prev   *StreakState
		today  string
		want   StreakState
		wantTr Transition
	}{
		{
			name:   "first check-in",
			prev:   nil,
			today:  "2026-03-01",
			want:   StreakState{Current: 1, Longest: 1, Last: day(t, "2026-03-01"), Total: 1},
			wantTr: TransitionStarted,
		},
		{
			name:   "consecutive day",
			prev:   &StreakState{Current: 3, Longest: 5, Last: day(t, "2026-03-01"), Total: 9},
			today:  "2026-03-02",
			want:   StreakState{Current: 4, Longest: 5, Last: day(t, "2026-03-02"), Total: 10},
			wantTr: TransitionContinued,
		},
		{
			name:   "consecutive day raises longest",
			prev:   &StreakState{Current: 5, Longest: 5, Last: day(t, "2026-03-01"), Total: 5},
			today:  "2026-03-02",
			want:   StreakState{Current: 6, Longest: 6, Last: day(t, "2026-03-02"), Total: 6},
			wantTr: TransitionContinued,
		},
		{
			name:   "gap resets",
			prev:   &StreakState{Current: 4, Longest: 4, Last: day(t, "2026-03-01"), Total: 4},
			today:  "2026-03-03",
			want:   StreakState{Current: 1, Longest: 4, Last: day(t, "2026-03-03"), Total: 5},
			wantTr: TransitionReset,
		},
		{
			name:   "future last date resets",
			prev:   &StreakState{Current: 2, Longest: 7, Last: day(t, "2026-03-10"), Total: 12},
			today:  "2026-03-02",
			want:   StreakState{Current: 1, Longest: 7, Last: day(t, "2026-03-02"), Total: 13},
			wantTr: TransitionReset,
		},
		{
			name:   "same day is a duplicate",
			prev:   &StreakState{Current: 2, Longest: 2, Last: day(t, "2026-03-02"), Total: 2},
			today:  "2026-03-02",
			want:   StreakState{Current: 2, Longest: 2, Last: day(t, "2026-03-02"), Total: 2},
			wantTr: TransitionDuplicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tr := NextStreak(tt.prev, day(t, tt.today))
			require.Equal(t, tt.wantTr, tr)
			require.Equal(t, tt.want, got)
			require.LessOrEqual(t, got.Current, got.Longest)
		})
	}
}

func TestNextStreakConsecutiveRun(t *testing.T) {
	var state *StreakState
	today := day(t, "2026-01-28")
	for i := 1; i <= 10; i++ {
		next, _ := NextStreak(state, today)
		require.Equal(t, i, next.Current)
		require.Equal(t, i, next.Longest)
		state = &next
		today = today.AddDays(1)
	}
}

func TestActiveStreak(t *testing.T) {
	s := StreakState{Current: 4, Longest: 4, Last: day(t, "2026-03-02")}
	require.Equal(t, 4, s.ActiveStreak(day(t, "2026-03-02")))
	require.Equal(t, 4, s.ActiveStreak(day(t, "2026-03-03")))
	require.Equal(t, 0, s.ActiveStreak(day(t, "2026-03-04")))
	require.Equal(t, 0, StreakState{}.ActiveStreak(day(t, "2026-03-04")))
}
