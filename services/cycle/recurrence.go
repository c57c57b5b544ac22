package cycle

import (
	"fmt"
	"time"
)

// Period is one concrete operating window. End is inclusive (last day of the
// period at midnight UTC).
type Period struct {
	Start time.Time
	End   time.Time
	Label string
}

// Recurrence computes the period containing a run date. Cadences are
// pluggable; the generator never assumes a fixed one.
type Recurrence interface {
	Name() string
	PeriodFor(t time.Time) Period
}

var recurrences = map[string]Recurrence{
	"monthly":   monthly{},
	"weekly":    weekly{},
	"quarterly": quarterly{},
}

// ResolveRecurrence looks up a cadence by name, falling back to the given
// default for unknown or empty names.
func ResolveRecurrence(name, fallback string) Recurrence {
	if r, ok := recurrences[name]; ok {
		return r
	}
	if r, ok := recurrences[fallback]; ok {
		return r
	}
	return monthly{}
}

type monthly struct{}

func (monthly) Name() string { return "monthly" }

func (monthly) PeriodFor(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return Period{
		Start: start,
		End:   end,
		Label: start.Format("Jan 2006"),
	}
}

type weekly struct{}

func (weekly) Name() string { return "weekly" }

func (weekly) PeriodFor(t time.Time) Period {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday start
	start := day.AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 6)
	return Period{
		Start: start,
		End:   end,
		Label: "Week of " + start.Format("Jan 02 2006"),
	}
}

type quarterly struct{}

func (quarterly) Name() string { return "quarterly" }

func (quarterly) PeriodFor(t time.Time) Period {
	quarter := (int(t.Month()) - 1) / 3
	start := time.Date(t.Year(), time.Month(quarter*3+1), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, -1)
	return Period{
		Start: start,
		End:   end,
		Label: fmt.Sprintf("Q%d %d", quarter+1, start.Year()),
	}
}

// manualLabel derives a label for explicitly bounded cycles: the policy label
// when the bounds line up with a policy period, a date range otherwise.
func manualLabel(r Recurrence, start, end time.Time) string {
	p := r.PeriodFor(start)
	if p.Start.Equal(start) && p.End.Equal(end) {
		return p.Label
	}
	return start.Format("Jan 02 2006") + " – " + end.Format("Jan 02 2006")
}
