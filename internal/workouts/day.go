package workouts

import (
	"fmt"
	"time"
)

const DayLayout = "2006-01-02"

// Day is a calendar date in YYYY-MM-DD form, the grouping key of all
// daily and weekly aggregations.
type Day string

func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	return Day(t.In(loc).Format(DayLayout))
}

func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid day [%s], expected YYYY-MM-DD", s)
	}
	return Day(t.Format(DayLayout)), nil
}

func (d Day) String() string {
	return string(d)
}

// Start is the first instant of the day in loc.
func (d Day) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DayLayout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d Day) AddDays(n int) Day {
	t, err := time.Parse(DayLayout, string(d))
	if err != nil {
		return d
	}
	return Day(t.AddDate(0, 0, n).Format(DayLayout))
}

func (d Day) Weekday() time.Weekday {
	t, err := time.Parse(DayLayout, string(d))
	if err != nil {
		return time.Sunday
	}
	return t.Weekday()
}

// ShortWeekday is the three letter weekday label, e.g. "Mon".
func (d Day) ShortWeekday() string {
	return d.Weekday().String()[:3]
}
