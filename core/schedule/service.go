package schedule

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/aquatrack/aquatrack/core"
	"github.com/aquatrack/aquatrack/core/pool"
	"github.com/aquatrack/aquatrack/core/task"
)

// NowFunc is overridable in tests.
var NowFunc = time.Now

type (
	Repository interface {
		// UpsertVisitPlan inserts or replaces the plan for (pool, period start).
		UpsertVisitPlan(ctx context.Context, p VisitPlan) (VisitPlan, error)
		QueryVisitPlans(ctx context.Context, poolIDs []string, from, to time.Time) ([]VisitPlan, error)
	}

	// OrgDirectory is the slice of the organization service the scheduler needs.
	OrgDirectory interface {
		HasOrganizationAccess(ctx context.Context, userID, orgID string) (bool, error)
		StaffIDs(ctx context.Context, orgID string) ([]string, error)
	}

	// TaskLister is the slice of the task service the calendar needs.
	TaskLister interface {
		QueryByOrganization(ctx context.Context, orgID string, from, to time.Time) ([]task.ServiceTask, error)
	}

	Service struct {
		repo  Repository
		pools pool.Repository
		orgs  OrgDirectory
		tasks TaskLister
	}

	// Move is a drag of one or more visit tiles to a new planned date. Week
	// moves carry the source week; month moves carry the source month.
	Move struct {
		PoolIDs     []string `json:"pool_ids" validate:"required,min=1"`
		SourceWeek  string   `json:"source_week" validate:"omitempty,datetime=2006-01-02"`
		SourceMonth string   `json:"source_month" validate:"omitempty,yearmonth"`
		PlannedDate string   `json:"planned_date" validate:"required,datetime=2006-01-02"`
	}

	// VisitTile is one draggable calendar tile: the pools of one client that
	// share a scheduling bucket on one day.
	VisitTile struct {
		ClientID    string    `json:"client_id"`
		PoolIDs     []string  `json:"pool_ids"`
		Date        time.Time `json:"date"`
		DueDate     time.Time `json:"due_date"`
		PeriodStart time.Time `json:"period_start"`
		Granularity string    `json:"granularity"`
		Status      string    `json:"status"`
		Extra       bool      `json:"extra"`
	}

	CalendarDay struct {
		Date   time.Time   `json:"date"`
		Visits []VisitTile `json:"visits"`
		Tasks  []task.Tile `json:"tasks"`
	}

	CalendarMonth struct {
		Month       string        `json:"month"`
		Days        []CalendarDay `json:"days"`
		Totals      Totals        `json:"totals"`
		Paused      []string      `json:"paused"`
		Unscheduled []string      `json:"unscheduled"`
	}
)

func NewService(repo Repository, pools pool.Repository, orgs OrgDirectory, tasks TaskLister) *Service {
	return &Service{repo: repo, pools: pools, orgs: orgs, tasks: tasks}
}

// Calendar assembles the month grid for one organization: projected and
// reconciled visits merged with ad-hoc task tiles. responsibleID, when set,
// restricts task tiles to that user's tasks.
func (svc *Service) Calendar(ctx context.Context, orgID, month, responsibleID string) (CalendarMonth, error) {
	mStart, err := time.ParseInLocation("2006-01", month, time.UTC)
	if err != nil {
		return CalendarMonth{}, core.NewRequestError(core.ReasonValidation, "month must be formatted YYYY-MM")
	}
	window := Window{Start: mStart, End: MonthEnd(mStart)}
	today := DateOnly(NowFunc().UTC())

	pools, err := svc.pools.QueryPoolsByOrganization(ctx, orgID)
	if err != nil {
		return CalendarMonth{}, errors.Wrap(err, "querying pools")
	}
	staffIDs, err := svc.orgs.StaffIDs(ctx, orgID)
	if err != nil {
		return CalendarMonth{}, errors.Wrap(err, "querying staff")
	}

	readings, err := svc.staffReadings(ctx, pools, staffIDs, window)
	if err != nil {
		return CalendarMonth{}, err
	}

	poolIDs := make([]string, len(pools))
	for i, p := range pools {
		poolIDs[i] = p.ID
	}
	plans, err := svc.repo.QueryVisitPlans(ctx, poolIDs, WeekStart(window.Start), window.End)
	if err != nil {
		return CalendarMonth{}, errors.Wrap(err, "querying visit plans")
	}

	proj := Project(Input{
		Today:    today,
		Window:   window,
		Pools:    pools,
		Readings: readings,
		Plans:    plans,
	})

	tasks, err := svc.tasks.QueryByOrganization(ctx, orgID, window.Start, window.End)
	if err != nil {
		return CalendarMonth{}, errors.Wrap(err, "querying tasks")
	}
	tiles := task.TilesForRange(tasks, window.Start, window.End, today)
	if responsibleID != "" {
		tiles = filterTiles(tiles, responsibleID)
	}

	return assembleMonth(month, window, proj, tiles), nil
}

// staffReadings fetches the window's readings plus each pool's latest
// pre-window reading, restricted to organization staff authors. The
// pre-window reading anchors the projection.
func (svc *Service) staffReadings(ctx context.Context, pools []pool.Pool, staffIDs []string, window Window) ([]pool.WaterReading, error) {
	if len(pools) == 0 {
		return nil, nil
	}
	poolIDs := make([]string, len(pools))
	for i, p := range pools {
		poolIDs[i] = p.ID
	}
	inWindow, err := svc.pools.QueryReadings(ctx, pool.ReadingFilter{
		PoolIDs:  poolIDs,
		DateFrom: window.Start,
		DateTo:   window.End,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying readings")
	}

	staff := make(map[string]bool, len(staffIDs))
	for _, id := range staffIDs {
		staff[id] = true
	}
	readings := make([]pool.WaterReading, 0, len(inWindow)+len(pools))
	for _, r := range inWindow {
		if r.AddedByID.Valid && staff[r.AddedByID.String] {
			readings = append(readings, r)
		}
	}

	for _, p := range pools {
		anchor, err := svc.pools.LatestReadingBefore(ctx, p.ID, window.Start, staffIDs)
		if err != nil {
			if errors.Cause(err) == pool.ErrReadingNotFound {
				continue
			}
			return nil, errors.Wrapf(err, "anchor reading for pool %s", p.ID)
		}
		readings = append(readings, anchor)
	}
	return readings, nil
}

// MoveVisitPlans validates a tile drag for every pool before writing anything,
// then upserts the plans one by one. Validation is all-or-nothing; a storage
// failure mid-write can leave earlier plans applied.
func (svc *Service) MoveVisitPlans(ctx context.Context, actorID string, mv Move) error {
	planned, err := time.ParseInLocation("2006-01-02", mv.PlannedDate, time.UTC)
	if err != nil {
		return core.NewRequestError(core.ReasonValidation, "planned_date must be formatted YYYY-MM-DD")
	}

	staffByOrg := make(map[string][]string)
	plans := make([]VisitPlan, 0, len(mv.PoolIDs))
	for _, poolID := range mv.PoolIDs {
		p, err := svc.pools.GetPoolByID(ctx, poolID)
		if err != nil {
			if errors.Cause(err) == pool.ErrNotFound {
				return core.NewRequestError(core.ReasonNotFound, "pool not found")
			}
			return errors.Wrapf(err, "fetching pool %s", poolID)
		}
		if !p.OrganizationID.Valid {
			return core.NewRequestError(core.ReasonForbidden, "pool is not managed by an organization")
		}
		orgID := p.OrganizationID.String
		ok, err := svc.orgs.HasOrganizationAccess(ctx, actorID, orgID)
		if err != nil {
			return errors.Wrap(err, "checking organization access")
		}
		if !ok {
			return core.NewRequestError(core.ReasonForbidden, "no access to the pool's organization")
		}

		step, ok := Resolve(p)
		if !ok {
			return core.NewRequestError(core.ReasonValidation, "pool has no service schedule")
		}

		periodStart, err := movePeriodStart(step, mv, planned)
		if err != nil {
			return err
		}

		if _, ok := staffByOrg[orgID]; !ok {
			ids, err := svc.orgs.StaffIDs(ctx, orgID)
			if err != nil {
				return errors.Wrap(err, "querying staff")
			}
			staffByOrg[orgID] = ids
		}
		conflict, err := svc.hasReadingInWeek(ctx, poolID, staffByOrg[orgID], planned)
		if err != nil {
			return err
		}
		if conflict {
			return core.NewRequestError(core.ReasonConflict, "a reading already exists in the target week")
		}

		plans = append(plans, VisitPlan{PoolID: poolID, PeriodStart: periodStart, PlannedDate: planned})
	}

	for _, plan := range plans {
		if _, err := svc.repo.UpsertVisitPlan(ctx, plan); err != nil {
			return errors.Wrapf(err, "upserting visit plan for pool %s", plan.PoolID)
		}
	}
	return nil
}

// movePeriodStart validates the drag against the pool's period granularity
// and returns the period the plan is keyed under.
func movePeriodStart(step Step, mv Move, planned time.Time) (time.Time, error) {
	if step.Granularity() == GranularityMonth {
		if mv.SourceMonth == "" {
			return time.Time{}, core.NewRequestError(core.ReasonValidation, "source_month is required for month-based schedules")
		}
		srcMonth, err := time.ParseInLocation("2006-01", mv.SourceMonth, time.UTC)
		if err != nil {
			return time.Time{}, core.NewRequestError(core.ReasonValidation, "source_month must be formatted YYYY-MM")
		}
		if !MonthStart(planned).Equal(srcMonth) {
			return time.Time{}, core.NewRequestError(core.ReasonInvalidPeriod, "visit cannot be moved outside its month")
		}
		return srcMonth, nil
	}

	if !step.PlanApplies() {
		return time.Time{}, core.NewRequestError(core.ReasonValidation, "pool's schedule does not support manual planning")
	}
	if mv.SourceWeek == "" {
		return time.Time{}, core.NewRequestError(core.ReasonValidation, "source_week is required for week-based schedules")
	}
	src, err := time.ParseInLocation("2006-01-02", mv.SourceWeek, time.UTC)
	if err != nil {
		return time.Time{}, core.NewRequestError(core.ReasonValidation, "source_week must be formatted YYYY-MM-DD")
	}
	srcWeek := WeekStart(src)
	if planned.Before(srcWeek) || planned.After(srcWeek.AddDate(0, 0, 6)) {
		return time.Time{}, core.NewRequestError(core.ReasonInvalidPeriod, "visit cannot be moved outside its week")
	}
	return srcWeek, nil
}

func (svc *Service) hasReadingInWeek(ctx context.Context, poolID string, staffIDs []string, day time.Time) (bool, error) {
	readings, err := svc.pools.QueryReadings(ctx, pool.ReadingFilter{
		PoolID:   poolID,
		DateFrom: WeekStart(day),
		DateTo:   WeekEnd(day),
	}, nil)
	if err != nil {
		return false, errors.Wrap(err, "querying target week readings")
	}
	staff := make(map[string]bool, len(staffIDs))
	for _, id := range staffIDs {
		staff[id] = true
	}
	for _, r := range readings {
		if r.AddedByID.Valid && staff[r.AddedByID.String] {
			return true, nil
		}
	}
	return false, nil
}

func filterTiles(tiles []task.Tile, responsibleID string) []task.Tile {
	filtered := tiles[:0]
	for _, t := range tiles {
		for _, id := range t.ResponsibleIDs {
			if id == responsibleID {
				filtered = append(filtered, t)
				break
			}
		}
	}
	return filtered
}

func assembleMonth(month string, window Window, proj Projection, tiles []task.Tile) CalendarMonth {
	type tileKey struct {
		clientID  string
		date      time.Time
		periodKey string
		status    string
		extra     bool
	}
	grouped := make(map[tileKey]*VisitTile)
	order := []tileKey{}
	for _, ev := range proj.Events {
		k := tileKey{ev.ClientID, ev.Date(), ev.PeriodKey, ev.Status, ev.Extra}
		vt, ok := grouped[k]
		if !ok {
			vt = &VisitTile{
				ClientID:    ev.ClientID,
				Date:        ev.Date(),
				DueDate:     ev.DueDate,
				PeriodStart: ev.PeriodStart,
				Granularity: ev.Granularity,
				Status:      ev.Status,
				Extra:       ev.Extra,
			}
			grouped[k] = vt
			order = append(order, k)
		}
		vt.PoolIDs = append(vt.PoolIDs, ev.PoolID)
	}

	visitsByDay := make(map[time.Time][]VisitTile)
	for _, k := range order {
		vt := grouped[k]
		sort.Strings(vt.PoolIDs)
		visitsByDay[vt.Date] = append(visitsByDay[vt.Date], *vt)
	}
	tasksByDay := make(map[time.Time][]task.Tile)
	for _, t := range tiles {
		tasksByDay[t.Date] = append(tasksByDay[t.Date], t)
	}

	cm := CalendarMonth{
		Month:       month,
		Totals:      proj.Totals,
		Paused:      proj.Paused,
		Unscheduled: proj.Unscheduled,
	}
	for d := window.Start; !d.After(window.End); d = d.AddDate(0, 0, 1) {
		day := CalendarDay{Date: d, Visits: visitsByDay[d], Tasks: tasksByDay[d]}
		if day.Visits == nil {
			day.Visits = []VisitTile{}
		}
		if day.Tasks == nil {
			day.Tasks = []task.Tile{}
		}
		cm.Days = append(cm.Days, day)
	}
	return cm
}
