package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core"
	"github.com/aquatrack/aquatrack/core/org"
	"github.com/aquatrack/aquatrack/core/pool"
	"github.com/aquatrack/aquatrack/core/schedule"
	"github.com/aquatrack/aquatrack/core/task"
	inmemdb "github.com/aquatrack/aquatrack/storage/database/inmem"
)

type fixture struct {
	svc      *schedule.Service
	poolRepo pool.Repository
	planRepo schedule.Repository
	orgRepo  org.Repository
	taskSvc  *task.Service
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := inmemdb.NewDB()
	poolRepo := inmemdb.NewPoolRepository(db)
	planRepo := inmemdb.NewVisitPlanRepository(db)
	orgRepo := inmemdb.NewOrgRepository(db)
	taskSvc := task.NewService(inmemdb.NewTaskRepository(db))
	orgSvc := org.NewService(orgRepo)
	svc := schedule.NewService(planRepo, poolRepo, orgSvc, taskSvc)

	ctx := context.Background()
	if _, err := orgRepo.CreateOrganization(ctx, org.Organization{ID: "org1", Name: "Crystal Pools", CreatedAt: date(2026, 1, 1)}); err != nil {
		t.Fatalf("seeding org failed: %v", err)
	}
	if _, err := orgRepo.CreateOrganizationAccess(ctx, org.OrganizationAccess{UserID: "staff1", OrganizationID: "org1", Role: org.RoleManager}); err != nil {
		t.Fatalf("seeding access failed: %v", err)
	}
	return fixture{svc: svc, poolRepo: poolRepo, planRepo: planRepo, orgRepo: orgRepo, taskSvc: taskSvc}
}

func (f fixture) addPool(t *testing.T, p pool.Pool) pool.Pool {
	t.Helper()
	p.OrganizationID = null.StringFrom("org1")
	created, err := f.poolRepo.CreatePool(context.Background(), p)
	if err != nil {
		t.Fatalf("seeding pool failed: %v", err)
	}
	return created
}

func (f fixture) addReading(t *testing.T, poolID, authorID string, d time.Time) {
	t.Helper()
	_, err := f.poolRepo.CreateReading(context.Background(), pool.WaterReading{
		PoolID:    poolID,
		Date:      d,
		AddedByID: null.StringFrom(authorID),
	})
	if err != nil {
		t.Fatalf("seeding reading failed: %v", err)
	}
}

func wantReason(t *testing.T, err error, reason string) {
	t.Helper()
	reqErr, ok := errors.Cause(err).(*core.RequestError)
	if !ok {
		t.Fatalf("error = %v, want a request error with reason %q", err, reason)
	}
	if reqErr.Reason != reason {
		t.Errorf("reason = %q, want %q", reqErr.Reason, reason)
	}
}

func TestCalendar(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	schedule.NowFunc = func() time.Time { return date(2026, 9, 16) }
	defer func() { schedule.NowFunc = time.Now }()

	p := f.addPool(t, pool.Pool{
		ClientID:         "c1",
		ServiceFrequency: null.StringFrom(pool.FreqWeekly),
		CreatedAt:        date(2026, 6, 1),
	})
	f.addReading(t, p.ID, "staff1", date(2026, 8, 27))
	f.addReading(t, p.ID, "staff1", date(2026, 9, 2))
	// client-submitted readings never drive the visit calendar
	f.addReading(t, p.ID, "client9", date(2026, 9, 10))

	if _, err := f.taskSvc.Create(ctx, "staff1", task.NewTask{
		OrganizationID: "org1",
		Title:          "Replace sand filter",
		Priority:       task.PriorityNormal,
		StartDate:      date(2026, 9, 10),
	}); err != nil {
		t.Fatalf("seeding task failed: %v", err)
	}

	cal, err := f.svc.Calendar(ctx, "org1", "2026-09", "")
	if err != nil {
		t.Fatalf("Calendar() failed: %v", err)
	}

	if cal.Month != "2026-09" {
		t.Errorf("month = %q, want 2026-09", cal.Month)
	}
	if len(cal.Days) != 30 {
		t.Fatalf("days = %d, want 30", len(cal.Days))
	}

	want := schedule.Totals{Done: 1, Planned: 3, Overdue: 1}
	if cal.Totals != want {
		t.Errorf("totals = %+v, want %+v", cal.Totals, want)
	}

	sep2 := cal.Days[1] // 2026-09-02
	if len(sep2.Visits) != 1 || sep2.Visits[0].Status != schedule.StatusDone {
		t.Errorf("Sep 2 visits = %+v, want one done tile", sep2.Visits)
	}
	sep10 := cal.Days[9]
	if len(sep10.Tasks) != 1 || sep10.Tasks[0].Title != "Replace sand filter" {
		t.Errorf("Sep 10 tasks = %+v, want the seeded task tile", sep10.Tasks)
	}
	if len(sep10.Visits) != 0 {
		t.Errorf("Sep 10 visits = %+v, want none (client reading ignored)", sep10.Visits)
	}

	t.Run("bad month is a validation error", func(t *testing.T) {
		_, err := f.svc.Calendar(ctx, "org1", "September", "")
		wantReason(t, err, core.ReasonValidation)
	})
}

func TestMoveVisitPlans(t *testing.T) {
	ctx := context.Background()

	weekly := func(t *testing.T, f fixture) pool.Pool {
		return f.addPool(t, pool.Pool{
			ClientID:         "c1",
			ServiceFrequency: null.StringFrom(pool.FreqWeekly),
			CreatedAt:        date(2026, 6, 1),
		})
	}

	t.Run("actor outside the organization is rejected", func(t *testing.T) {
		f := setup(t)
		p := weekly(t, f)
		err := f.svc.MoveVisitPlans(ctx, "intruder", schedule.Move{
			PoolIDs:     []string{p.ID},
			SourceWeek:  "2026-09-07",
			PlannedDate: "2026-09-09",
		})
		wantReason(t, err, core.ReasonForbidden)
	})

	t.Run("target outside the source week is rejected", func(t *testing.T) {
		f := setup(t)
		p := weekly(t, f)
		err := f.svc.MoveVisitPlans(ctx, "staff1", schedule.Move{
			PoolIDs:     []string{p.ID},
			SourceWeek:  "2026-09-03",
			PlannedDate: "2026-09-12",
		})
		wantReason(t, err, core.ReasonInvalidPeriod)
	})

	t.Run("a visited week cannot be replanned", func(t *testing.T) {
		f := setup(t)
		p := weekly(t, f)
		f.addReading(t, p.ID, "staff1", date(2026, 9, 2))
		err := f.svc.MoveVisitPlans(ctx, "staff1", schedule.Move{
			PoolIDs:     []string{p.ID},
			SourceWeek:  "2026-09-03",
			PlannedDate: "2026-09-04",
		})
		wantReason(t, err, core.ReasonConflict)
	})

	t.Run("repeat moves keep one plan per period", func(t *testing.T) {
		f := setup(t)
		p := weekly(t, f)

		first := schedule.Move{PoolIDs: []string{p.ID}, SourceWeek: "2026-09-07", PlannedDate: "2026-09-09"}
		if err := f.svc.MoveVisitPlans(ctx, "staff1", first); err != nil {
			t.Fatalf("MoveVisitPlans() failed: %v", err)
		}
		second := schedule.Move{PoolIDs: []string{p.ID}, SourceWeek: "2026-09-07", PlannedDate: "2026-09-11"}
		if err := f.svc.MoveVisitPlans(ctx, "staff1", second); err != nil {
			t.Fatalf("MoveVisitPlans() failed: %v", err)
		}

		plans, err := f.planRepo.QueryVisitPlans(ctx, []string{p.ID}, date(2026, 9, 1), date(2026, 9, 30))
		if err != nil {
			t.Fatalf("QueryVisitPlans() failed: %v", err)
		}
		if len(plans) != 1 {
			t.Fatalf("plans = %d, want 1", len(plans))
		}
		if !plans[0].PeriodStart.Equal(date(2026, 9, 7)) {
			t.Errorf("period start = %v, want 2026-09-07", plans[0].PeriodStart)
		}
		// last write wins
		if !plans[0].PlannedDate.Equal(date(2026, 9, 11)) {
			t.Errorf("planned date = %v, want 2026-09-11", plans[0].PlannedDate)
		}
	})

	t.Run("any invalid pool aborts the whole drag", func(t *testing.T) {
		f := setup(t)
		ok := weekly(t, f)
		visited := weekly(t, f)
		f.addReading(t, visited.ID, "staff1", date(2026, 9, 8))

		err := f.svc.MoveVisitPlans(ctx, "staff1", schedule.Move{
			PoolIDs:     []string{ok.ID, visited.ID},
			SourceWeek:  "2026-09-07",
			PlannedDate: "2026-09-09",
		})
		wantReason(t, err, core.ReasonConflict)

		plans, err := f.planRepo.QueryVisitPlans(ctx, []string{ok.ID, visited.ID}, date(2026, 9, 1), date(2026, 9, 30))
		if err != nil {
			t.Fatalf("QueryVisitPlans() failed: %v", err)
		}
		if len(plans) != 0 {
			t.Errorf("plans = %d, want 0 after failed drag", len(plans))
		}
	})

	t.Run("month-granularity pools move within their month", func(t *testing.T) {
		f := setup(t)
		p := f.addPool(t, pool.Pool{
			ClientID:         "c1",
			ServiceFrequency: null.StringFrom(pool.FreqQuarterly),
			CreatedAt:        date(2026, 6, 1),
		})

		err := f.svc.MoveVisitPlans(ctx, "staff1", schedule.Move{
			PoolIDs:     []string{p.ID},
			SourceMonth: "2026-09",
			PlannedDate: "2026-10-02",
		})
		wantReason(t, err, core.ReasonInvalidPeriod)

		if err := f.svc.MoveVisitPlans(ctx, "staff1", schedule.Move{
			PoolIDs:     []string{p.ID},
			SourceMonth: "2026-09",
			PlannedDate: "2026-09-21",
		}); err != nil {
			t.Fatalf("MoveVisitPlans() failed: %v", err)
		}

		plans, err := f.planRepo.QueryVisitPlans(ctx, []string{p.ID}, date(2026, 9, 1), date(2026, 9, 30))
		if err != nil {
			t.Fatalf("QueryVisitPlans() failed: %v", err)
		}
		if len(plans) != 1 || !plans[0].PeriodStart.Equal(date(2026, 9, 1)) {
			t.Fatalf("plans = %+v, want one keyed to 2026-09-01", plans)
		}
	})

	t.Run("long day intervals cannot be planned manually", func(t *testing.T) {
		f := setup(t)
		p := f.addPool(t, pool.Pool{
			ClientID:            "c1",
			ServiceIntervalDays: null.IntFrom(45),
			CreatedAt:           date(2026, 6, 1),
		})
		err := f.svc.MoveVisitPlans(ctx, "staff1", schedule.Move{
			PoolIDs:     []string{p.ID},
			SourceWeek:  "2026-09-07",
			PlannedDate: "2026-09-09",
		})
		wantReason(t, err, core.ReasonValidation)
	})
}
