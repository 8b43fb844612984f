package schedule

import (
	"time"
)

// DateOnly truncates t to midnight UTC, the precision all scheduling math
// works at.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday of the week containing d.
func WeekStart(d time.Time) time.Time {
	d = DateOnly(d)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDate(0, 0, -offset)
}

// WeekEnd returns the Sunday of the week containing d.
func WeekEnd(d time.Time) time.Time {
	return WeekStart(d).AddDate(0, 0, 6)
}

// MonthStart returns the first day of the month containing d.
func MonthStart(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last day of the month containing d.
func MonthEnd(d time.Time) time.Time {
	return MonthStart(d).AddDate(0, 1, -1)
}

// PeriodStartFor returns the start of the scheduling period containing d for
// the given step granularity.
func PeriodStartFor(step Step, d time.Time) time.Time {
	if step.Granularity() == GranularityMonth {
		return MonthStart(d)
	}
	return WeekStart(d)
}

// PeriodEndFor returns the last day of the scheduling period containing d.
func PeriodEndFor(step Step, d time.Time) time.Time {
	if step.Granularity() == GranularityMonth {
		return MonthEnd(d)
	}
	return WeekEnd(d)
}

// PeriodKeyFor returns the canonical period key for d: the week start date
// for day steps, "YYYY-MM" for month steps.
func PeriodKeyFor(step Step, d time.Time) string {
	if step.Granularity() == GranularityMonth {
		return d.Format("2006-01")
	}
	return WeekStart(d).Format("2006-01-02")
}

// addMonthsClamped adds n months to d, clamping the day to the target
// month's length instead of letting it spill over (Jan 31 + 1 month is
// Feb 28/29, not Mar 2/3).
func addMonthsClamped(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// shiftOffWeekend moves a Saturday or Sunday date backward onto the nearest
// preceding weekday.
func shiftOffWeekend(d time.Time) time.Time {
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// AddStep advances d by one step. Month steps clamp to month length and are
// shifted off weekends; day steps land wherever they land.
func AddStep(d time.Time, step Step) time.Time {
	if step.Months > 0 {
		return shiftOffWeekend(addMonthsClamped(d, step.Months))
	}
	return d.AddDate(0, 0, step.Days)
}
