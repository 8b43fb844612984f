package notification_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core/notification"
	"github.com/aquatrack/aquatrack/core/org"
	"github.com/aquatrack/aquatrack/core/pool"
	"github.com/aquatrack/aquatrack/core/user"
	logsvc "github.com/aquatrack/aquatrack/services/logger"
	inmemdb "github.com/aquatrack/aquatrack/storage/database/inmem"
)

type genFixture struct {
	gen   *notification.Generator
	svc   *notification.Service
	pools pool.Repository
	orgs  org.Repository
	users user.Repository
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fridayNoon is a Friday on the 2026 calendar.
var fridayNoon = time.Date(2026, 9, 18, 12, 0, 0, 0, time.UTC)

func setupGen(t *testing.T, o org.Organization) genFixture {
	t.Helper()
	ctx := context.Background()
	db := inmemdb.NewDB()
	poolRepo := inmemdb.NewPoolRepository(db)
	orgRepo := inmemdb.NewOrgRepository(db)
	userRepo := inmemdb.NewUserRepository(db)
	svc := notification.NewService(inmemdb.NewNotificationRepository(db))
	gen := notification.NewGenerator(logsvc.NewStdLogger(log.New(os.Stdout, "", 0)), svc, poolRepo, orgRepo)

	o.ID = "org1"
	if _, err := orgRepo.CreateOrganization(ctx, o); err != nil {
		t.Fatalf("seeding org failed: %v", err)
	}
	for _, u := range []user.User{
		{ID: "staff1", Username: "staff1", IsActive: true},
		{ID: "staff2", Username: "staff2", IsActive: false},
		{ID: "cu1", Username: "cu1", IsActive: true},
	} {
		if _, err := userRepo.CreateUser(ctx, u); err != nil {
			t.Fatalf("seeding user failed: %v", err)
		}
	}
	for _, uid := range []string{"staff1", "staff2"} {
		if _, err := orgRepo.CreateOrganizationAccess(ctx, org.OrganizationAccess{UserID: uid, OrganizationID: "org1", Role: org.RoleManager}); err != nil {
			t.Fatalf("seeding access failed: %v", err)
		}
	}
	if _, err := orgRepo.CreateClient(ctx, org.Client{
		ID:             "c1",
		UserID:         null.StringFrom("cu1"),
		Name:           "Ivanov residence",
		OrganizationID: null.StringFrom("org1"),
	}); err != nil {
		t.Fatalf("seeding client failed: %v", err)
	}
	return genFixture{gen: gen, svc: svc, pools: poolRepo, orgs: orgRepo, users: userRepo}
}

func (f genFixture) addPool(t *testing.T, p pool.Pool) pool.Pool {
	t.Helper()
	if p.ClientID == "" {
		p.ClientID = "c1"
	}
	created, err := f.pools.CreatePool(context.Background(), p)
	if err != nil {
		t.Fatalf("seeding pool failed: %v", err)
	}
	return created
}

func (f genFixture) notifs(t *testing.T, userID string) []notification.Notification {
	t.Helper()
	notifs, err := f.svc.QueryByUser(context.Background(), userID, false)
	if err != nil {
		t.Fatalf("QueryByUser() failed: %v", err)
	}
	return notifs
}

func TestMissedVisits(t *testing.T) {
	ctx := context.Background()

	t.Run("unvisited pool alerts active staff once", func(t *testing.T) {
		f := setupGen(t, org.Organization{NotifyMissedVisits: true})
		p := f.addPool(t, pool.Pool{
			Address:          "12 Lakeside Dr",
			OrganizationID:   null.StringFrom("org1"),
			ServiceFrequency: null.StringFrom(pool.FreqWeekly),
		})

		if err := f.gen.MissedVisits(ctx, fridayNoon); err != nil {
			t.Fatalf("MissedVisits() failed: %v", err)
		}
		// again, same period: dedupe key suppresses a second copy
		if err := f.gen.MissedVisits(ctx, fridayNoon); err != nil {
			t.Fatalf("second MissedVisits() failed: %v", err)
		}

		got := f.notifs(t, "staff1")
		if len(got) != 1 {
			t.Fatalf("staff1 notifications = %d, want 1", len(got))
		}
		n := got[0]
		if n.Kind != notification.KindMissedVisit || n.PoolID.String != p.ID {
			t.Errorf("notification = %+v", n)
		}
		if n.DedupeKey != "missed_visit:"+p.ID+":2026-W38" {
			t.Errorf("dedupe key = %q", n.DedupeKey)
		}
		if inactive := f.notifs(t, "staff2"); len(inactive) != 0 {
			t.Errorf("inactive staff got %d notifications", len(inactive))
		}
	})

	t.Run("only runs on friday afternoon", func(t *testing.T) {
		f := setupGen(t, org.Organization{NotifyMissedVisits: true})
		f.addPool(t, pool.Pool{
			OrganizationID:   null.StringFrom("org1"),
			ServiceFrequency: null.StringFrom(pool.FreqWeekly),
		})

		wednesday := time.Date(2026, 9, 16, 12, 0, 0, 0, time.UTC)
		if err := f.gen.MissedVisits(ctx, wednesday); err != nil {
			t.Fatalf("MissedVisits() failed: %v", err)
		}
		fridayMorning := time.Date(2026, 9, 18, 9, 0, 0, 0, time.UTC)
		if err := f.gen.MissedVisits(ctx, fridayMorning); err != nil {
			t.Fatalf("MissedVisits() failed: %v", err)
		}
		if got := f.notifs(t, "staff1"); len(got) != 0 {
			t.Errorf("notifications = %d, want 0 outside the friday-noon gate", len(got))
		}
	})

	t.Run("a staff visit this period clears the alert", func(t *testing.T) {
		f := setupGen(t, org.Organization{NotifyMissedVisits: true})
		p := f.addPool(t, pool.Pool{
			OrganizationID:   null.StringFrom("org1"),
			ServiceFrequency: null.StringFrom(pool.FreqWeekly),
		})
		if _, err := f.pools.CreateReading(ctx, pool.WaterReading{
			PoolID:    p.ID,
			Date:      date(2026, 9, 15),
			AddedByID: null.StringFrom("staff1"),
		}); err != nil {
			t.Fatalf("seeding reading failed: %v", err)
		}

		if err := f.gen.MissedVisits(ctx, fridayNoon); err != nil {
			t.Fatalf("MissedVisits() failed: %v", err)
		}
		if got := f.notifs(t, "staff1"); len(got) != 0 {
			t.Errorf("notifications = %d, want 0 for a visited pool", len(got))
		}
	})

	t.Run("honors the organization's opt-out", func(t *testing.T) {
		f := setupGen(t, org.Organization{NotifyMissedVisits: false})
		f.addPool(t, pool.Pool{
			OrganizationID:   null.StringFrom("org1"),
			ServiceFrequency: null.StringFrom(pool.FreqWeekly),
		})

		if err := f.gen.MissedVisits(ctx, fridayNoon); err != nil {
			t.Fatalf("MissedVisits() failed: %v", err)
		}
		if got := f.notifs(t, "staff1"); len(got) != 0 {
			t.Errorf("notifications = %d, want 0 when opted out", len(got))
		}
	})
}

func TestDailyMissing(t *testing.T) {
	ctx := context.Background()
	today := date(2026, 9, 16)

	t.Run("alerts the client's user when today has no readings", func(t *testing.T) {
		f := setupGen(t, org.Organization{NotifyPoolStaffDaily: true})
		p := f.addPool(t, pool.Pool{
			Address:               "12 Lakeside Dr",
			OrganizationID:        null.StringFrom("org1"),
			DailyReadingsRequired: true,
		})

		if err := f.gen.DailyMissing(ctx, today); err != nil {
			t.Fatalf("DailyMissing() failed: %v", err)
		}
		got := f.notifs(t, "cu1")
		if len(got) != 1 {
			t.Fatalf("cu1 notifications = %d, want 1", len(got))
		}
		if got[0].Kind != notification.KindDailyMissing || got[0].PoolID.String != p.ID {
			t.Errorf("notification = %+v", got[0])
		}
	})

	t.Run("quiet when a reading exists today", func(t *testing.T) {
		f := setupGen(t, org.Organization{NotifyPoolStaffDaily: true})
		p := f.addPool(t, pool.Pool{
			OrganizationID:        null.StringFrom("org1"),
			DailyReadingsRequired: true,
		})
		if _, err := f.pools.CreateReading(ctx, pool.WaterReading{
			PoolID:    p.ID,
			Date:      today,
			AddedByID: null.StringFrom("cu1"),
		}); err != nil {
			t.Fatalf("seeding reading failed: %v", err)
		}

		if err := f.gen.DailyMissing(ctx, today); err != nil {
			t.Fatalf("DailyMissing() failed: %v", err)
		}
		if got := f.notifs(t, "cu1"); len(got) != 0 {
			t.Errorf("notifications = %d, want 0", len(got))
		}
	})
}

func TestMarkReadOwnership(t *testing.T) {
	ctx := context.Background()
	f := setupGen(t, org.Organization{NotifyMissedVisits: true})
	f.addPool(t, pool.Pool{
		OrganizationID:   null.StringFrom("org1"),
		ServiceFrequency: null.StringFrom(pool.FreqWeekly),
	})
	if err := f.gen.MissedVisits(ctx, fridayNoon); err != nil {
		t.Fatalf("MissedVisits() failed: %v", err)
	}
	n := f.notifs(t, "staff1")[0]

	if err := f.svc.MarkRead(ctx, "cu1", n.ID); err == nil {
		t.Error("MarkRead() by a non-owner succeeded")
	}
	if err := f.svc.MarkRead(ctx, "staff1", n.ID); err != nil {
		t.Fatalf("MarkRead() failed: %v", err)
	}
	if unread := func() int {
		notifs, err := f.svc.QueryByUser(ctx, "staff1", true)
		if err != nil {
			t.Fatalf("QueryByUser() failed: %v", err)
		}
		return len(notifs)
	}(); unread != 0 {
		t.Errorf("unread = %d, want 0", unread)
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	f := setupGen(t, org.Organization{NotifyMissedVisits: true})
	f.addPool(t, pool.Pool{
		OrganizationID:   null.StringFrom("org1"),
		ServiceFrequency: null.StringFrom(pool.FreqWeekly),
	})
	if err := f.gen.MissedVisits(ctx, fridayNoon); err != nil {
		t.Fatalf("MissedVisits() failed: %v", err)
	}
	n := f.notifs(t, "staff1")[0]

	if err := f.svc.Resolve(ctx, "cu1", n.ID); err == nil {
		t.Error("Resolve() by a non-owner succeeded")
	}
	if err := f.svc.Resolve(ctx, "staff1", n.ID); err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	got := f.notifs(t, "staff1")[0]
	if !got.IsResolved {
		t.Error("IsResolved = false, want true")
	}
	if !got.ResolvedAt.Valid {
		t.Fatal("ResolvedAt is not set")
	}
	if got.IsRead {
		t.Error("Resolve() marked the notification read")
	}

	// resolving again keeps the original timestamp
	first := got.ResolvedAt.Time
	if err := f.svc.Resolve(ctx, "staff1", n.ID); err != nil {
		t.Fatalf("second Resolve() failed: %v", err)
	}
	if at := f.notifs(t, "staff1")[0].ResolvedAt.Time; !at.Equal(first) {
		t.Errorf("ResolvedAt changed on repeat resolve: %v != %v", at, first)
	}
}

func TestReadingOutOfRange(t *testing.T) {
	ctx := context.Background()

	t.Run("client reading outside the norms alerts staff", func(t *testing.T) {
		f := setupGen(t, org.Organization{NotifyLimits: true})
		p := f.addPool(t, pool.Pool{
			Address:        "12 Lakeside Dr",
			OrganizationID: null.StringFrom("org1"),
		})
		r := pool.WaterReading{
			ID:        "r1",
			PoolID:    p.ID,
			Date:      date(2026, 9, 16),
			AddedByID: null.StringFrom("cu1"),
			PH:        null.Float64From(8.2),
		}

		if err := f.gen.ReadingOutOfRange(ctx, p, r); err != nil {
			t.Fatalf("ReadingOutOfRange() failed: %v", err)
		}
		got := f.notifs(t, "staff1")
		if len(got) != 1 {
			t.Fatalf("staff1 notifications = %d, want 1", len(got))
		}
		if got[0].Kind != notification.KindLimits {
			t.Errorf("kind = %q", got[0].Kind)
		}
	})

	t.Run("staff readings never trigger it", func(t *testing.T) {
		f := setupGen(t, org.Organization{NotifyLimits: true})
		p := f.addPool(t, pool.Pool{OrganizationID: null.StringFrom("org1")})
		r := pool.WaterReading{
			ID:        "r1",
			PoolID:    p.ID,
			AddedByID: null.StringFrom("staff1"),
			PH:        null.Float64From(8.2),
		}

		if err := f.gen.ReadingOutOfRange(ctx, p, r); err != nil {
			t.Fatalf("ReadingOutOfRange() failed: %v", err)
		}
		if got := f.notifs(t, "staff1"); len(got) != 0 {
			t.Errorf("notifications = %d, want 0", len(got))
		}
	})

	t.Run("in-range readings stay quiet", func(t *testing.T) {
		f := setupGen(t, org.Organization{NotifyLimits: true})
		p := f.addPool(t, pool.Pool{OrganizationID: null.StringFrom("org1")})
		r := pool.WaterReading{
			ID:        "r1",
			PoolID:    p.ID,
			AddedByID: null.StringFrom("cu1"),
			PH:        null.Float64From(7.2),
			ClFree:    null.Float64From(0.8),
		}

		if err := f.gen.ReadingOutOfRange(ctx, p, r); err != nil {
			t.Fatalf("ReadingOutOfRange() failed: %v", err)
		}
		if got := f.notifs(t, "staff1"); len(got) != 0 {
			t.Errorf("notifications = %d, want 0", len(got))
		}
	})
}
