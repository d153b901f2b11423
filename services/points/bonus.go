package points

import "fmt"

// BonusRule grants Bonus points on a check-in whose new streak matches.
// Exactly one of Every (streak % Every == 0) or At (streak == At) is set.
type BonusRule struct {
	Every int
	At    int
	Bonus int
}

func (r BonusRule) matches(streak int) bool {
	switch {
	case r.Every > 0:
		return streak > 0 && streak%r.Every == 0
	case r.At > 0:
		return streak == r.At
	default:
		return false
	}
}

// BonusSchedule is the streak milestone table. Bonuses of all matching rules add up.
type BonusSchedule []BonusRule

// Validate rejects rules that can never match or grant negative points.
func (s BonusSchedule) Validate() error {
	for i, r := range s {
		if r.Bonus < 0 {
			return fmt.Errorf("bonus rule %d: negative bonus %d", i, r.Bonus)
		}
		if r.Every < 0 || r.At < 0 {
			return fmt.Errorf("bonus rule %d: negative streak length", i)
		}
		if (r.Every > 0) == (r.At > 0) {
			return fmt.Errorf("bonus rule %d: set exactly one of Every or At", i)
		}
	}
	return nil
}

// BonusFor returns the bonus awarded when a check-in brings the streak to streak.
func (s BonusSchedule) BonusFor(streak int) int {
	total := 0
	for _, r := range s {
		if r.matches(streak) {
			total += r.Bonus
		}
	}
	return total
}

// NextBonusIn returns how many more consecutive check-ins, counted from streak,
// reach the next streak that carries a bonus. 0 means no rule will pay out again.
func (s BonusSchedule) NextBonusIn(streak int) int {
	best := 0
	for _, r := range s {
		if r.Bonus == 0 {
			continue
		}
		k := 0
		switch {
		case r.Every > 0:
			k = r.Every - streak%r.Every
		case r.At > streak:
			k = r.At - streak
		}
		if k > 0 && (best == 0 || k < best) {
			best = k
		}
	}
	return best
}
