package cycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthlyPeriod(t *testing.T) {
	p := monthly{}.PeriodFor(date(2025, time.February, 17))
	require.Equal(t, date(2025, time.February, 1), p.Start)
	require.Equal(t, date(2025, time.February, 28), p.End)
	require.Equal(t, "Feb 2025", p.Label)

	// Leap year.
	p = monthly{}.PeriodFor(date(2024, time.February, 29))
	require.Equal(t, date(2024, time.February, 29), p.End)

	// Every day of the month maps to the same period.
	first := monthly{}.PeriodFor(date(2025, time.March, 1))
	last := monthly{}.PeriodFor(date(2025, time.March, 31))
	require.Equal(t, first.Start, last.Start)
	require.Equal(t, first.End, last.End)
}

func TestWeeklyPeriod(t *testing.T) {
	// 2025-06-18 is a Wednesday; the week starts on Monday the 16th.
	p := weekly{}.PeriodFor(date(2025, time.June, 18))
	require.Equal(t, date(2025, time.June, 16), p.Start)
	require.Equal(t, date(2025, time.June, 22), p.End)
	require.Equal(t, "Week of Jun 16 2025", p.Label)

	// Monday and Sunday land in the same week.
	mon := weekly{}.PeriodFor(date(2025, time.June, 16))
	sun := weekly{}.PeriodFor(date(2025, time.June, 22))
	require.Equal(t, mon.Start, sun.Start)
}

func TestQuarterlyPeriod(t *testing.T) {
	p := quarterly{}.PeriodFor(date(2025, time.August, 30))
	require.Equal(t, date(2025, time.July, 1), p.Start)
	require.Equal(t, date(2025, time.September, 30), p.End)
	require.Equal(t, "Q3 2025", p.Label)

	p = quarterly{}.PeriodFor(date(2025, time.January, 1))
	require.Equal(t, "Q1 2025", p.Label)
	require.Equal(t, date(2025, time.March, 31), p.End)
}

func TestResolveRecurrence(t *testing.T) {
	require.Equal(t, "weekly", ResolveRecurrence("weekly", "monthly").Name())
	require.Equal(t, "monthly", ResolveRecurrence("", "monthly").Name())
	require.Equal(t, "quarterly", ResolveRecurrence("daily", "quarterly").Name())
	require.Equal(t, "monthly", ResolveRecurrence("daily", "hourly").Name())
}

func TestManualLabel(t *testing.T) {
	// Bounds matching the policy period reuse its label.
	label := manualLabel(monthly{}, date(2025, time.April, 1), date(2025, time.April, 30))
	require.Equal(t, "Apr 2025", label)

	// Arbitrary bounds fall back to a date range.
	label = manualLabel(monthly{}, date(2025, time.April, 10), date(2025, time.April, 20))
	require.Equal(t, "Apr 10 2025 – Apr 20 2025", label)
}
