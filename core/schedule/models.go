package schedule

import (
	"time"
)

// Event statuses
const (
	StatusPlanned = "planned"
	StatusDone    = "done"
	StatusOverdue = "overdue"
)

// Period granularities
const (
	GranularityWeek  = "week"
	GranularityMonth = "month"
)

// Step is a resolved scheduling cadence: either a fixed day interval or a
// fixed month interval, never both.
type Step struct {
	Days   int
	Months int
}

// Granularity returns the period granularity the step buckets into: month
// steps use calendar months, day steps use calendar weeks.
func (s Step) Granularity() string {
	if s.Months > 0 {
		return GranularityMonth
	}
	return GranularityWeek
}

// PlanApplies reports whether manual visit plans (and week-drag constraints)
// apply to pools with this step: only week-granularity cadences of at most
// two weeks.
func (s Step) PlanApplies() bool {
	return s.Days > 0 && s.Days <= 14
}

// VisitPlan is a manual override of one projected visit: for one pool and
// one period (identified by its start date), the preferred planned date.
// It records intent, not a completed visit.
type VisitPlan struct {
	ID          string    `json:"id"`
	PoolID      string    `json:"pool_id"`
	PeriodStart time.Time `json:"period_start"` // week start (Monday) or first of month
	PlannedDate time.Time `json:"planned_date"`
}

// Window is the visible, date-precision inclusive projection range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Event is one projected or recorded service visit on the calendar.
type Event struct {
	PoolID   string `json:"pool_id"`
	ClientID string `json:"client_id"`

	// DueDate is the naive frequency-stepped date; PlannedDate is the due
	// date after applying any manual override. Both are retained so an
	// overridden event stays auditable.
	DueDate     time.Time `json:"due_date"`
	PlannedDate time.Time `json:"planned_date"`
	// ActualDate is set when a reading was matched (status "done").
	ActualDate time.Time `json:"actual_date,omitempty"`
	// ReadingID is the matched reading, when status is "done".
	ReadingID string `json:"reading_id,omitempty"`

	PeriodStart time.Time `json:"period_start"`
	PeriodKey   string    `json:"period_key"`
	Granularity string    `json:"granularity"`

	Status string `json:"status"`
	// Extra marks a reading that matched no projected due date: an
	// over-serviced pool's additional visit, keyed by its own date.
	Extra bool `json:"extra"`
}

// Date returns the day the event is rendered on.
func (e Event) Date() time.Time {
	if e.Status == StatusDone {
		return e.ActualDate
	}
	return e.PlannedDate
}

// Totals summarizes non-extra events of one projection.
type Totals struct {
	Done    int `json:"done"`
	Planned int `json:"planned"`
	Overdue int `json:"overdue"`
}

// Projection is the pure pipeline output for one window.
type Projection struct {
	Events      []Event  `json:"events"`
	Paused      []string `json:"paused"`      // suspended pool IDs
	Unscheduled []string `json:"unscheduled"` // pool IDs with no scheduling driver
	Totals      Totals   `json:"totals"`
}
