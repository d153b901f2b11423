package points

import "time"

const dayLayout = "2006-01-02"

// Day is a calendar date with no time-of-day component.
type Day struct {
	t time.Time // midnight UTC
}

// DayOf returns the calendar date of t as observed in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc != nil {
		t = t.In(loc)
	}
	return Day{t: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses a 2006-01-02 date. The empty string yields the zero Day.
func ParseDay(s string) (Day, error) {
	if s == "" {
		return Day{}, nil
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, err
	}
	return Day{t: t}, nil
}

func (d Day) IsZero() bool { return d.t.IsZero() }

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dayLayout)
}

func (d Day) AddDays(n int) Day { return Day{t: d.t.AddDate(0, 0, n)} }

func (d Day) Equal(o Day) bool { return d.t.Equal(o.t) }

// DaysSince returns the number of calendar days from o to d (negative when o is later).
func (d Day) DaysSince(o Day) int {
	return int(d.t.Sub(o.t).Hours() / 24)
}
