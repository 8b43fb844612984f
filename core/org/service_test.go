package org_test

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core/org"
	"github.com/aquatrack/aquatrack/core/pool"
	inmemdb "github.com/aquatrack/aquatrack/storage/database/inmem"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCompanyHasAccess(t *testing.T) {
	now := date(2026, 9, 16)
	tests := []struct {
		name string
		org  org.Organization
		want bool
	}{
		{"paid plan active", org.Organization{PaidUntil: null.TimeFrom(date(2026, 12, 31))}, true},
		{"paid until today counts", org.Organization{PaidUntil: null.TimeFrom(now)}, true},
		{"paid plan lapsed, no trial", org.Organization{PaidUntil: null.TimeFrom(date(2026, 8, 1))}, false},
		{"trial running", org.Organization{TrialStartedAt: null.TimeFrom(date(2026, 9, 10))}, true},
		{"trial expired", org.Organization{TrialStartedAt: null.TimeFrom(date(2026, 8, 1))}, false},
		{
			"lapsed paid falls back to a running trial",
			org.Organization{PaidUntil: null.TimeFrom(date(2026, 8, 1)), TrialStartedAt: null.TimeFrom(date(2026, 9, 10))},
			true,
		},
		{"nothing set", org.Organization{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := org.CompanyHasAccess(tt.org, now); got != tt.want {
				t.Errorf("CompanyHasAccess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompanyTrialDaysLeft(t *testing.T) {
	now := date(2026, 9, 16)
	tests := []struct {
		name string
		org  org.Organization
		want int
	}{
		{"fresh trial", org.Organization{TrialStartedAt: null.TimeFrom(now)}, org.TrialDays},
		{"mid trial", org.Organization{TrialStartedAt: null.TimeFrom(date(2026, 9, 10))}, 8},
		{"expired trial", org.Organization{TrialStartedAt: null.TimeFrom(date(2026, 8, 1))}, 0},
		{"no trial", org.Organization{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := org.CompanyTrialDaysLeft(tt.org, now); got != tt.want {
				t.Errorf("CompanyTrialDaysLeft() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRegisterStartsTrial(t *testing.T) {
	svc := org.NewService(inmemdb.NewOrgRepository(inmemdb.NewDB()))

	o, err := svc.Register(context.Background(), org.NewOrganization{Name: "Crystal Pools"})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if !o.TrialStartedAt.Valid {
		t.Error("trial not started on registration")
	}
	if !o.NotifyMissedVisits || !o.NotifyPoolStaffDaily || !o.NotifyLimits {
		t.Error("notification settings not defaulted on")
	}
}

func TestIsPersonalFree(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*org.Service, org.Repository, pool.Repository) {
		t.Helper()
		db := inmemdb.NewDB()
		return org.NewService(inmemdb.NewOrgRepository(db)), inmemdb.NewOrgRepository(db), inmemdb.NewPoolRepository(db)
	}

	t.Run("org-less client with one pool is free", func(t *testing.T) {
		svc, orgRepo, poolRepo := seed(t)
		c, err := orgRepo.CreateClient(ctx, org.Client{UserID: null.StringFrom("u1")})
		if err != nil {
			t.Fatalf("seeding client failed: %v", err)
		}
		if _, err := poolRepo.CreatePool(ctx, pool.Pool{ClientID: c.ID}); err != nil {
			t.Fatalf("seeding pool failed: %v", err)
		}

		free, err := svc.IsPersonalFree(ctx, "u1")
		if err != nil {
			t.Fatalf("IsPersonalFree() failed: %v", err)
		}
		if !free {
			t.Error("IsPersonalFree() = false, want true")
		}
	})

	t.Run("a second pool ends the free plan", func(t *testing.T) {
		svc, orgRepo, poolRepo := seed(t)
		c, err := orgRepo.CreateClient(ctx, org.Client{UserID: null.StringFrom("u1")})
		if err != nil {
			t.Fatalf("seeding client failed: %v", err)
		}
		for i := 0; i < 2; i++ {
			if _, err := poolRepo.CreatePool(ctx, pool.Pool{ClientID: c.ID}); err != nil {
				t.Fatalf("seeding pool failed: %v", err)
			}
		}

		free, err := svc.IsPersonalFree(ctx, "u1")
		if err != nil {
			t.Fatalf("IsPersonalFree() failed: %v", err)
		}
		if free {
			t.Error("IsPersonalFree() = true, want false")
		}
	})

	t.Run("staff membership disqualifies", func(t *testing.T) {
		svc, orgRepo, poolRepo := seed(t)
		if _, err := orgRepo.CreateOrganizationAccess(ctx, org.OrganizationAccess{UserID: "u1", OrganizationID: "org1", Role: org.RoleManager}); err != nil {
			t.Fatalf("seeding access failed: %v", err)
		}
		c, err := orgRepo.CreateClient(ctx, org.Client{UserID: null.StringFrom("u1")})
		if err != nil {
			t.Fatalf("seeding client failed: %v", err)
		}
		if _, err := poolRepo.CreatePool(ctx, pool.Pool{ClientID: c.ID}); err != nil {
			t.Fatalf("seeding pool failed: %v", err)
		}

		free, err := svc.IsPersonalFree(ctx, "u1")
		if err != nil {
			t.Fatalf("IsPersonalFree() failed: %v", err)
		}
		if free {
			t.Error("IsPersonalFree() = true, want false")
		}
	})

	t.Run("no client profile disqualifies", func(t *testing.T) {
		svc, _, _ := seed(t)
		free, err := svc.IsPersonalFree(ctx, "u1")
		if err != nil {
			t.Fatalf("IsPersonalFree() failed: %v", err)
		}
		if free {
			t.Error("IsPersonalFree() = true, want false")
		}
	})
}

func TestIsOrgAccessBlocked(t *testing.T) {
	ctx := context.Background()
	now := date(2026, 9, 16)

	seed := func(t *testing.T, o org.Organization) *org.Service {
		t.Helper()
		repo := inmemdb.NewOrgRepository(inmemdb.NewDB())
		o.ID = "org1"
		if _, err := repo.CreateOrganization(ctx, o); err != nil {
			t.Fatalf("seeding org failed: %v", err)
		}
		if _, err := repo.CreateOrganizationAccess(ctx, org.OrganizationAccess{UserID: "staff1", OrganizationID: "org1", Role: org.RoleManager}); err != nil {
			t.Fatalf("seeding access failed: %v", err)
		}
		return org.NewService(repo)
	}

	t.Run("active plan passes", func(t *testing.T) {
		svc := seed(t, org.Organization{PaidUntil: null.TimeFrom(date(2026, 12, 31))})
		blocked, err := svc.IsOrgAccessBlocked(ctx, "staff1", now)
		if err != nil {
			t.Fatalf("IsOrgAccessBlocked() failed: %v", err)
		}
		if blocked {
			t.Error("blocked = true, want false")
		}
	})

	t.Run("lapsed plan blocks", func(t *testing.T) {
		svc := seed(t, org.Organization{TrialStartedAt: null.TimeFrom(date(2026, 8, 1))})
		blocked, err := svc.IsOrgAccessBlocked(ctx, "staff1", now)
		if err != nil {
			t.Fatalf("IsOrgAccessBlocked() failed: %v", err)
		}
		if !blocked {
			t.Error("blocked = false, want true")
		}
	})

	t.Run("users with no organization are never blocked", func(t *testing.T) {
		svc := org.NewService(inmemdb.NewOrgRepository(inmemdb.NewDB()))
		blocked, err := svc.IsOrgAccessBlocked(ctx, "loner", now)
		if err != nil {
			t.Fatalf("IsOrgAccessBlocked() failed: %v", err)
		}
		if blocked {
			t.Error("blocked = true, want false")
		}
	})
}
