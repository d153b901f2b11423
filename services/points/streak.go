package points

// Transition names the edge taken by the check-in state machine.
type Transition int

const (
	// TransitionStarted is the first check-in of a user.
	TransitionStarted Transition = iota
	// TransitionContinued is a check-in on the day after the previous one.
	TransitionContinued
	// TransitionReset is a check-in after a gap, or after a last date in the future.
	TransitionReset
	// TransitionDuplicate is a second check-in on the same day; nothing changes.
	TransitionDuplicate
)

func (t Transition) String() string {
	switch t {
	case TransitionStarted:
		return "started"
	case TransitionContinued:
		return "continued"
	case TransitionReset:
		return "reset"
	case TransitionDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// StreakState is the per-user streak as persisted.
type StreakState struct {
	Current int
	Longest int
	Last    Day
	Total   int64
}

// NextStreak evaluates a check-in on today against the previous state.
// prev may be nil for a user with no history.
func NextStreak(prev *StreakState, today Day) (StreakState, Transition) {
	if prev == nil || prev.Last.IsZero() {
		next := StreakState{Current: 1, Longest: 1, Last: today, Total: 1}
		if prev != nil {
			next.Longest = max(prev.Longest, 1)
			next.Total = prev.Total + 1
		}
		return next, TransitionStarted
	}

	next := StreakState{Longest: prev.Longest, Last: today, Total: prev.Total + 1}
	var tr Transition
	switch today.DaysSince(prev.Last) {
	case 0:
		return *prev, TransitionDuplicate
	case 1:
		next.Current = prev.Current + 1
		tr = TransitionContinued
	default:
		// gap of two or more days, or a stored date ahead of the server clock
		next.Current = 1
		tr = TransitionReset
	}
	next.Longest = max(next.Longest, next.Current)
	return next, tr
}

// ActiveStreak is the streak a user keeps if they check in today:
// the stored streak when the last check-in was today or yesterday, otherwise 0.
func (s StreakState) ActiveStreak(today Day) int {
	if s.Last.IsZero() {
		return 0
	}
	switch today.DaysSince(s.Last) {
	case 0, 1:
		return s.Current
	default:
		return 0
	}
}
