package notification

import (
	"fmt"
	"time"

	"github.com/aquatrack/aquatrack/core/pool"
)

// frequencyFor maps a pool to the reporting frequency used for missed-visit
// checks. The frequency enum wins here; a bare day interval is bucketed into
// the closest named frequency.
func frequencyFor(p pool.Pool) (string, bool) {
	if p.ServiceFrequency.Valid && p.ServiceFrequency.String != "" {
		return p.ServiceFrequency.String, true
	}
	if !p.ServiceIntervalDays.Valid || p.ServiceIntervalDays.Int <= 0 {
		return "", false
	}
	switch d := p.ServiceIntervalDays.Int; {
	case d <= 7:
		return pool.FreqWeekly, true
	case d <= 15:
		return pool.FreqTwiceMonthly, true
	case d <= 31:
		return pool.FreqMonthly, true
	case d <= 62:
		return pool.FreqBimonthly, true
	case d <= 93:
		return pool.FreqQuarterly, true
	case d <= 186:
		return pool.FreqTwiceYearly, true
	default:
		return pool.FreqYearly, true
	}
}

// periodBounds returns the inclusive reporting period containing today for
// the frequency, plus its canonical key.
func periodBounds(today time.Time, frequency string) (start, end time.Time, key string, ok bool) {
	y, m, d := today.Date()
	switch frequency {
	case pool.FreqWeekly:
		offset := (int(today.Weekday()) + 6) % 7
		start = today.AddDate(0, 0, -offset)
		end = start.AddDate(0, 0, 6)
		isoYear, isoWeek := start.ISOWeek()
		return start, end, fmt.Sprintf("%d-W%02d", isoYear, isoWeek), true
	case pool.FreqTwiceMonthly:
		if d <= 15 {
			start = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
			end = time.Date(y, m, 15, 0, 0, 0, 0, time.UTC)
			return start, end, fmt.Sprintf("%04d-%02d-H1", y, m), true
		}
		start = time.Date(y, m, 16, 0, 0, 0, 0, time.UTC)
		end = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
		return start, end, fmt.Sprintf("%04d-%02d-H2", y, m), true
	case pool.FreqMonthly:
		start = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, -1)
		return start, end, fmt.Sprintf("%04d-%02d", y, m), true
	case pool.FreqBimonthly:
		startMonth := (int(m)-1)/2*2 + 1
		start = time.Date(y, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 2, -1)
		return start, end, fmt.Sprintf("%04d-B%02d", y, startMonth), true
	case pool.FreqQuarterly:
		quarter := (int(m)-1)/3 + 1
		start = time.Date(y, time.Month(1+(quarter-1)*3), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 3, -1)
		return start, end, fmt.Sprintf("%04d-Q%d", y, quarter), true
	case pool.FreqTwiceYearly:
		if m <= time.June {
			start = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
			end = time.Date(y, time.June, 30, 0, 0, 0, 0, time.UTC)
			return start, end, fmt.Sprintf("%04d-H1", y), true
		}
		start = time.Date(y, time.July, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
		return start, end, fmt.Sprintf("%04d-H2", y), true
	case pool.FreqYearly:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
		return start, end, fmt.Sprintf("%04d", y), true
	}
	return time.Time{}, time.Time{}, "", false
}

var periodLabels = map[string]string{
	pool.FreqWeekly:       "this week",
	pool.FreqTwiceMonthly: "this half of the month",
	pool.FreqMonthly:      "this month",
	pool.FreqBimonthly:    "these two months",
	pool.FreqQuarterly:    "this quarter",
	pool.FreqTwiceYearly:  "this half-year",
	pool.FreqYearly:       "this year",
}
