package schedule

import (
	"sort"
	"time"

	"github.com/aquatrack/aquatrack/core/pool"
)

// Input is everything the projector needs, pre-fetched: the pools to
// project, their readings recorded by organization staff (client-submitted
// readings never drive the visit calendar), and any manual plan overrides.
type Input struct {
	Today    time.Time
	Window   Window
	Pools    []pool.Pool
	Readings []pool.WaterReading
	Plans    []VisitPlan
}

// Project runs the full scheduling pipeline over one window: resolve each
// pool's cadence, step due dates forward from its anchor, apply manual
// overrides, match readings to due dates, and surface leftover readings as
// extra visits. It is pure: no clock, no storage.
func Project(in Input) Projection {
	out := Projection{
		Events:      []Event{},
		Paused:      []string{},
		Unscheduled: []string{},
	}
	today := DateOnly(in.Today)
	start := DateOnly(in.Window.Start)
	end := DateOnly(in.Window.End)

	readingsByPool := make(map[string][]pool.WaterReading)
	for _, r := range in.Readings {
		readingsByPool[r.PoolID] = append(readingsByPool[r.PoolID], r)
	}
	for _, rs := range readingsByPool {
		sort.Slice(rs, func(i, j int) bool {
			if !rs[i].Date.Equal(rs[j].Date) {
				return rs[i].Date.Before(rs[j].Date)
			}
			return rs[i].ID < rs[j].ID
		})
	}

	plansByPool := make(map[string]map[time.Time]VisitPlan)
	for _, p := range in.Plans {
		byPeriod := plansByPool[p.PoolID]
		if byPeriod == nil {
			byPeriod = make(map[time.Time]VisitPlan)
			plansByPool[p.PoolID] = byPeriod
		}
		byPeriod[DateOnly(p.PeriodStart)] = p
	}

	consumed := make(map[string]bool)
	steps := make(map[string]Step)

	for _, pl := range in.Pools {
		if pl.ServiceSuspended {
			out.Paused = append(out.Paused, pl.ID)
			continue
		}
		step, ok := Resolve(pl)
		if !ok {
			out.Unscheduled = append(out.Unscheduled, pl.ID)
			continue
		}
		steps[pl.ID] = step

		anchor, ok := anchorFor(pl, readingsByPool[pl.ID], start)
		if !ok {
			out.Unscheduled = append(out.Unscheduled, pl.ID)
			continue
		}

		seen := make(map[string]bool)
		cur := anchor
		for {
			due := AddStep(cur, step)
			if due.After(end) {
				break
			}
			key := PeriodKeyFor(step, due)
			if due.Before(start) || seen[key] {
				cur = due
				continue
			}
			seen[key] = true

			expected := due
			if override, ok := planFor(plansByPool[pl.ID], step, due); ok {
				expected = DateOnly(override.PlannedDate)
			}

			ev := Event{
				PoolID:      pl.ID,
				ClientID:    pl.ClientID,
				DueDate:     due,
				PlannedDate: expected,
				PeriodStart: PeriodStartFor(step, due),
				PeriodKey:   key,
				Granularity: step.Granularity(),
			}

			if match, ok := matchReading(readingsByPool[pl.ID], consumed, step, expected); ok {
				consumed[match.ID] = true
				ev.Status = StatusDone
				ev.ActualDate = DateOnly(match.Date)
				ev.ReadingID = match.ID
				out.Events = append(out.Events, ev)
				// an actual visit absorbs drift: stepping resumes from it
				cur = ev.ActualDate
				continue
			}

			if PeriodEndFor(step, due).Before(today) {
				ev.Status = StatusOverdue
			} else {
				ev.Status = StatusPlanned
			}
			out.Events = append(out.Events, ev)
			cur = due
		}
	}

	// leftover readings inside the window are visits nobody projected:
	// show them rather than hide the work that was done
	for _, pl := range in.Pools {
		step, ok := steps[pl.ID]
		if !ok {
			continue
		}
		for _, r := range readingsByPool[pl.ID] {
			d := DateOnly(r.Date)
			if consumed[r.ID] || d.Before(start) || d.After(end) {
				continue
			}
			consumed[r.ID] = true
			out.Events = append(out.Events, Event{
				PoolID:      pl.ID,
				ClientID:    pl.ClientID,
				DueDate:     d,
				PlannedDate: d,
				ActualDate:  d,
				ReadingID:   r.ID,
				PeriodStart: PeriodStartFor(step, d),
				PeriodKey:   PeriodKeyFor(step, d),
				Granularity: step.Granularity(),
				Status:      StatusDone,
				Extra:       true,
			})
		}
	}

	sort.SliceStable(out.Events, func(i, j int) bool {
		di, dj := out.Events[i].Date(), out.Events[j].Date()
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return out.Events[i].PoolID < out.Events[j].PoolID
	})

	for _, ev := range out.Events {
		if ev.Extra {
			continue
		}
		switch ev.Status {
		case StatusDone:
			out.Totals.Done++
		case StatusPlanned:
			out.Totals.Planned++
		case StatusOverdue:
			out.Totals.Overdue++
		}
	}
	return out
}

// anchorFor picks the stepping origin: the latest staff reading strictly
// before the window, else the pool's creation date.
func anchorFor(pl pool.Pool, readings []pool.WaterReading, windowStart time.Time) (time.Time, bool) {
	anchor := time.Time{}
	for _, r := range readings {
		d := DateOnly(r.Date)
		if d.Before(windowStart) && d.After(anchor) {
			anchor = d
		}
	}
	if !anchor.IsZero() {
		return anchor, true
	}
	if pl.CreatedAt.IsZero() {
		return time.Time{}, false
	}
	return DateOnly(pl.CreatedAt), true
}

// planFor looks up the manual override for the period containing due.
// Overrides only apply to cadences that can be dragged on the calendar:
// week-granularity steps of at most two weeks, and month-granularity steps.
func planFor(byPeriod map[time.Time]VisitPlan, step Step, due time.Time) (VisitPlan, bool) {
	if byPeriod == nil {
		return VisitPlan{}, false
	}
	if !step.PlanApplies() && step.Granularity() != GranularityMonth {
		return VisitPlan{}, false
	}
	p, ok := byPeriod[PeriodStartFor(step, due)]
	return p, ok
}

// matchReading finds the unconsumed reading in the same period as expected
// that is closest to it by absolute day distance. Ties go to the earlier
// date, then the lower ID, so reconciliation is deterministic.
func matchReading(readings []pool.WaterReading, consumed map[string]bool, step Step, expected time.Time) (pool.WaterReading, bool) {
	pStart := PeriodStartFor(step, expected)
	pEnd := PeriodEndFor(step, expected)

	var best pool.WaterReading
	bestDiff := -1
	for _, r := range readings {
		if consumed[r.ID] {
			continue
		}
		d := DateOnly(r.Date)
		if d.Before(pStart) || d.After(pEnd) {
			continue
		}
		diff := int(d.Sub(expected).Hours() / 24)
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = r, diff
			continue
		}
		if diff == bestDiff {
			bd := DateOnly(best.Date)
			if d.Before(bd) || (d.Equal(bd) && r.ID < best.ID) {
				best = r
			}
		}
	}
	return best, bestDiff >= 0
}
