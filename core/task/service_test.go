package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core"
	"github.com/aquatrack/aquatrack/core/task"
	inmemdb "github.com/aquatrack/aquatrack/storage/database/inmem"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newSvc() *task.Service {
	return task.NewService(inmemdb.NewTaskRepository(inmemdb.NewDB()))
}

func seedTask(t *testing.T, svc *task.Service, nt task.NewTask) task.ServiceTask {
	t.Helper()
	if nt.OrganizationID == "" {
		nt.OrganizationID = "org1"
	}
	if nt.Priority == "" {
		nt.Priority = task.PriorityNormal
	}
	created, err := svc.Create(context.Background(), "staff1", nt)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return created
}

func changesByField(t *testing.T, svc *task.Service, taskID string) map[string]task.Change {
	t.Helper()
	changes, err := svc.Changes(context.Background(), taskID)
	if err != nil {
		t.Fatalf("Changes() failed: %v", err)
	}
	byField := make(map[string]task.Change, len(changes))
	for _, c := range changes {
		byField[c.Field] = c
	}
	return byField
}

func TestUpdateRecordsChanges(t *testing.T) {
	ctx := context.Background()
	svc := newSvc()
	created := seedTask(t, svc, task.NewTask{Title: "Winterize", StartDate: date(2026, 10, 5)})

	title := "Winterize and cover"
	samePriority := task.PriorityNormal
	updated, err := svc.Update(ctx, "staff2", created.ID, task.UpdateTask{
		Title:    &title,
		Priority: &samePriority,
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if updated.Title != title {
		t.Errorf("title = %q, want %q", updated.Title, title)
	}

	byField := changesByField(t, svc, created.ID)
	if len(byField) != 2 {
		t.Fatalf("changes = %d, want 2 (creation + title; unchanged priority must not be recorded)", len(byField))
	}
	c := byField["title"]
	if c.OldValue != "Winterize" || c.NewValue != title || c.UserID != "staff2" {
		t.Errorf("title change = %+v", c)
	}
}

func TestCreateOpensAuditTrail(t *testing.T) {
	svc := newSvc()
	created := seedTask(t, svc, task.NewTask{
		Title:          "Winterize",
		StartDate:      date(2026, 10, 5),
		ResponsibleIDs: []string{"staff2", "staff1"},
	})

	byField := changesByField(t, svc, created.ID)
	if len(byField) != 2 {
		t.Fatalf("changes = %d, want 2 (creation + responsible list)", len(byField))
	}
	if c := byField["created"]; c.UserID != "staff1" || c.NewValue != "Winterize" {
		t.Errorf("created change = %+v", c)
	}
	if c := byField["responsible"]; c.NewValue != "staff1,staff2" {
		t.Errorf("responsible change = %+v", c)
	}
}

func TestUpdateRejectsInvertedDates(t *testing.T) {
	svc := newSvc()
	created := seedTask(t, svc, task.NewTask{Title: "Season opening", StartDate: date(2026, 10, 5)})

	end := null.TimeFrom(date(2026, 10, 1))
	_, err := svc.Update(context.Background(), "staff1", created.ID, task.UpdateTask{EndDate: &end})
	if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
		t.Fatalf("error = %v, want a validation error", err)
	}
}

func TestTimeRange(t *testing.T) {
	ctx := context.Background()
	svc := newSvc()
	created := seedTask(t, svc, task.NewTask{
		Title:     "Chemicals delivery",
		StartDate: date(2026, 9, 10),
		StartTime: null.StringFrom("09:30"),
	})
	if created.StartTime.String != "09:30" {
		t.Fatalf("StartTime = %+v, want 09:30", created.StartTime)
	}

	end := null.StringFrom("11:00")
	updated, err := svc.Update(ctx, "staff1", created.ID, task.UpdateTask{EndTime: &end})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if updated.EndTime.String != "11:00" {
		t.Errorf("EndTime = %+v, want 11:00", updated.EndTime)
	}
	if c := changesByField(t, svc, created.ID)["end_time"]; c.OldValue != "" || c.NewValue != "11:00" {
		t.Errorf("end_time change = %+v", c)
	}

	tiles := task.TilesForRange([]task.ServiceTask{updated}, date(2026, 9, 1), date(2026, 9, 30), date(2026, 9, 16))
	if len(tiles) != 1 || tiles[0].StartTime.String != "09:30" || tiles[0].EndTime.String != "11:00" {
		t.Errorf("tiles = %+v, want the time range carried onto the tile", tiles)
	}
}

func TestCompleteAndReopen(t *testing.T) {
	ctx := context.Background()
	svc := newSvc()
	created := seedTask(t, svc, task.NewTask{Title: "Fix heater", StartDate: date(2026, 9, 10)})

	done, err := svc.Complete(ctx, "staff1", created.ID)
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if !done.CompletedAt.Valid {
		t.Fatal("CompletedAt not set")
	}

	// idempotent
	if _, err := svc.Complete(ctx, "staff1", created.ID); err != nil {
		t.Fatalf("second Complete() failed: %v", err)
	}
	changes, err := svc.Changes(ctx, created.ID)
	if err != nil {
		t.Fatalf("Changes() failed: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("changes = %d, want 2 (creation + completion) after repeated completion", len(changes))
	}
	if changes[1].Field != "completed" || changes[1].NewValue != "true" {
		t.Errorf("change = %+v", changes[1])
	}

	reopened, err := svc.Reopen(ctx, "staff1", created.ID)
	if err != nil {
		t.Fatalf("Reopen() failed: %v", err)
	}
	if reopened.CompletedAt.Valid {
		t.Error("CompletedAt still set after reopen")
	}
	changes, err = svc.Changes(ctx, created.ID)
	if err != nil {
		t.Fatalf("Changes() failed: %v", err)
	}
	if len(changes) != 3 || changes[2].NewValue != "false" {
		t.Errorf("changes = %+v, want a completed=false record", changes)
	}
}

func TestMove(t *testing.T) {
	ctx := context.Background()

	t.Run("shifts the whole span by the drag delta", func(t *testing.T) {
		svc := newSvc()
		created := seedTask(t, svc, task.NewTask{
			Title:     "Liner replacement",
			StartDate: date(2026, 9, 10),
			EndDate:   null.TimeFrom(date(2026, 9, 12)),
		})

		// grabbed on the middle day, dropped three days later
		moved, err := svc.Move(ctx, "staff1", created.ID, date(2026, 9, 11), date(2026, 9, 14))
		if err != nil {
			t.Fatalf("Move() failed: %v", err)
		}
		if !moved.StartDate.Equal(date(2026, 9, 13)) {
			t.Errorf("start = %v, want 2026-09-13", moved.StartDate)
		}
		if !moved.EndDate.Time.Equal(date(2026, 9, 15)) {
			t.Errorf("end = %v, want 2026-09-15", moved.EndDate.Time)
		}

		byField := changesByField(t, svc, created.ID)
		if c := byField["start_date"]; c.OldValue != "2026-09-10" || c.NewValue != "2026-09-13" {
			t.Errorf("start_date change = %+v", c)
		}
		if c := byField["end_date"]; c.OldValue != "2026-09-12" || c.NewValue != "2026-09-15" {
			t.Errorf("end_date change = %+v", c)
		}
	})

	t.Run("zero delta is a no-op", func(t *testing.T) {
		svc := newSvc()
		created := seedTask(t, svc, task.NewTask{Title: "Backwash", StartDate: date(2026, 9, 10)})

		moved, err := svc.Move(ctx, "staff1", created.ID, date(2026, 9, 10), date(2026, 9, 10))
		if err != nil {
			t.Fatalf("Move() failed: %v", err)
		}
		if !moved.StartDate.Equal(created.StartDate) {
			t.Errorf("start = %v, want unchanged", moved.StartDate)
		}
		changes, err := svc.Changes(ctx, created.ID)
		if err != nil {
			t.Fatalf("Changes() failed: %v", err)
		}
		if len(changes) != 1 || changes[0].Field != "created" {
			t.Errorf("changes = %+v, want only the creation record", changes)
		}
	})

	t.Run("completed tasks stay put", func(t *testing.T) {
		svc := newSvc()
		created := seedTask(t, svc, task.NewTask{Title: "Acid wash", StartDate: date(2026, 9, 10)})
		if _, err := svc.Complete(ctx, "staff1", created.ID); err != nil {
			t.Fatalf("Complete() failed: %v", err)
		}

		_, err := svc.Move(ctx, "staff1", created.ID, date(2026, 9, 10), date(2026, 9, 12))
		reqErr, ok := errors.Cause(err).(*core.RequestError)
		if !ok || reqErr.Reason != core.ReasonConflict {
			t.Fatalf("error = %v, want a conflict request error", err)
		}
	})
}

func TestStatus(t *testing.T) {
	today := date(2026, 9, 16)
	tests := []struct {
		name string
		task task.ServiceTask
		want string
	}{
		{"future start", task.ServiceTask{StartDate: date(2026, 9, 20)}, task.StatusPlanned},
		{"starts today", task.ServiceTask{StartDate: today}, task.StatusPlanned},
		{"spans today", task.ServiceTask{StartDate: date(2026, 9, 14), EndDate: null.TimeFrom(date(2026, 9, 18))}, task.StatusPlanned},
		{"ended yesterday", task.ServiceTask{StartDate: date(2026, 9, 15)}, task.StatusOverdue},
		{"completed wins", task.ServiceTask{StartDate: date(2026, 9, 15), CompletedAt: null.TimeFrom(today)}, task.StatusDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.Status(today); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTilesForRange(t *testing.T) {
	from, to := date(2026, 9, 1), date(2026, 9, 30)
	today := date(2026, 9, 16)

	spanning := task.ServiceTask{
		ID:        "t1",
		Title:     "Pump overhaul",
		Priority:  task.PriorityHigh,
		StartDate: date(2026, 8, 30),
		EndDate:   null.TimeFrom(date(2026, 9, 2)),
	}
	outside := task.ServiceTask{
		ID:        "t2",
		Title:     "Next season prep",
		StartDate: date(2026, 10, 3),
	}

	tiles := task.TilesForRange([]task.ServiceTask{spanning, outside}, from, to, today)
	if len(tiles) != 2 {
		t.Fatalf("tiles = %d, want 2 (pre-window days clipped, October task excluded)", len(tiles))
	}
	if !tiles[0].Date.Equal(date(2026, 9, 1)) || !tiles[0].Continuation {
		t.Errorf("first tile = %+v, want a continuation on Sep 1", tiles[0])
	}
	if !tiles[1].Date.Equal(date(2026, 9, 2)) || tiles[1].Status != task.StatusOverdue {
		t.Errorf("second tile = %+v, want overdue Sep 2", tiles[1])
	}
}
