package schedule

import (
	"github.com/aquatrack/aquatrack/core/pool"
)

var freqSteps = map[string]Step{
	pool.FreqWeekly:       {Days: 7},
	pool.FreqTwiceMonthly: {Days: 14},
	pool.FreqMonthly:      {Months: 1},
	pool.FreqBimonthly:    {Months: 2},
	pool.FreqQuarterly:    {Months: 3},
	pool.FreqTwiceYearly:  {Months: 6},
	pool.FreqYearly:       {Months: 12},
}

// Resolve determines a pool's scheduling cadence. An explicit day interval
// always wins over the frequency enum; a pool with neither has no schedule.
// Suspended pools resolve to no schedule regardless of their settings and
// are reported separately by the projector.
func Resolve(p pool.Pool) (Step, bool) {
	if p.ServiceSuspended {
		return Step{}, false
	}
	if p.ServiceIntervalDays.Valid && p.ServiceIntervalDays.Int > 0 {
		return Step{Days: p.ServiceIntervalDays.Int}, true
	}
	if p.ServiceFrequency.Valid {
		if step, ok := freqSteps[p.ServiceFrequency.String]; ok {
			return step, true
		}
	}
	return Step{}, false
}
