package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core"
	"github.com/aquatrack/aquatrack/core/org"
	"github.com/aquatrack/aquatrack/core/pool"
)

// Generator produces the scheduled notifications: missed service visits and
// missing daily readings. It is meant to run periodically (hourly) and is
// idempotent thanks to dedupe keys.
type Generator struct {
	log   core.Logger
	svc   *Service
	pools pool.Repository
	orgs  org.Repository
}

func NewGenerator(log core.Logger, svc *Service, pools pool.Repository, orgs org.Repository) *Generator {
	return &Generator{log: log, svc: svc, pools: pools, orgs: orgs}
}

// Run executes one generation pass at the given time.
func (g *Generator) Run(ctx context.Context, now time.Time) error {
	if err := g.MissedVisits(ctx, now); err != nil {
		return errors.Wrap(err, "generating missed-visit notifications")
	}
	if err := g.DailyMissing(ctx, dateOnly(now)); err != nil {
		return errors.Wrap(err, "generating daily-missing notifications")
	}
	return nil
}

// isFridayNoon gates missed-visit checks to Friday afternoon, so a visit
// still has the working week to happen before anyone is nagged about it.
func isFridayNoon(now time.Time) bool {
	return now.Weekday() == time.Friday && now.Hour() >= 12
}

// MissedVisits notifies organization staff about every scheduled pool that
// has had no staff visit in its current service period.
func (g *Generator) MissedVisits(ctx context.Context, now time.Time) error {
	if !isFridayNoon(now) {
		return nil
	}
	today := dateOnly(now)

	pools, err := g.pools.QueryScheduledPools(ctx)
	if err != nil {
		return errors.Wrap(err, "querying scheduled pools")
	}
	for _, p := range pools {
		if p.ServiceSuspended || !p.OrganizationID.Valid {
			continue
		}
		o, err := g.orgs.GetOrganizationByID(ctx, p.OrganizationID.String)
		if err != nil {
			return errors.Wrapf(err, "fetching organization %s", p.OrganizationID.String)
		}
		if !o.NotifyMissedVisits {
			continue
		}
		frequency, ok := frequencyFor(p)
		if !ok {
			continue
		}
		staffIDs, err := g.staffIDs(ctx, o.ID)
		if err != nil {
			return err
		}
		if len(staffIDs) == 0 {
			continue
		}
		start, end, periodKey, ok := periodBounds(today, frequency)
		if !ok {
			continue
		}
		visited, err := g.hasStaffReading(ctx, p.ID, staffIDs, start, end)
		if err != nil {
			return err
		}
		if visited {
			continue
		}

		msg := Message{
			Title:          "No service visit",
			Body:           fmt.Sprintf("%s: no visit %s", p.Address, periodLabels[frequency]),
			Kind:           KindMissedVisit,
			Level:          LevelWarning,
			ActionURL:      fmt.Sprintf("/pools/%s", p.ID),
			OrganizationID: p.OrganizationID,
			PoolID:         null.StringFrom(p.ID),
			DedupeKey:      fmt.Sprintf("missed_visit:%s:%s", p.ID, periodKey),
		}
		if _, err := g.svc.NotifyOrgUsers(ctx, o.ID, msg); err != nil {
			return err
		}
	}
	return nil
}

// DailyMissing notifies a pool's client users when a pool that requires
// daily readings has none recorded today.
func (g *Generator) DailyMissing(ctx context.Context, today time.Time) error {
	pools, err := g.pools.QueryPoolsWithDailyReadings(ctx)
	if err != nil {
		return errors.Wrap(err, "querying daily-reading pools")
	}
	for _, p := range pools {
		if p.ServiceSuspended {
			continue
		}
		if p.OrganizationID.Valid {
			o, err := g.orgs.GetOrganizationByID(ctx, p.OrganizationID.String)
			if err != nil {
				return errors.Wrapf(err, "fetching organization %s", p.OrganizationID.String)
			}
			if !o.NotifyPoolStaffDaily {
				continue
			}
		}
		readings, err := g.pools.QueryReadings(ctx, pool.ReadingFilter{PoolID: p.ID, DateFrom: today, DateTo: today}, nil)
		if err != nil {
			return errors.Wrap(err, "querying today's readings")
		}
		if len(readings) > 0 {
			continue
		}

		msg := Message{
			Title:     "No daily readings",
			Body:      fmt.Sprintf("%s: no readings today", p.Address),
			Kind:      KindDailyMissing,
			Level:     LevelWarning,
			ActionURL: fmt.Sprintf("/pools/%s", p.ID),
			ClientID:  null.StringFrom(p.ClientID),
			PoolID:    null.StringFrom(p.ID),
			DedupeKey: fmt.Sprintf("daily_missing:%s:%s", p.ID, today.Format("2006-01-02")),
		}
		if _, err := g.svc.NotifyClientUsers(ctx, p.ClientID, msg); err != nil {
			return err
		}
	}
	return nil
}

// ReadingOutOfRange notifies organization staff when a client-submitted
// reading violates the organization's water norms. Staff-submitted readings
// never trigger it; staff see the numbers as they enter them.
func (g *Generator) ReadingOutOfRange(ctx context.Context, p pool.Pool, r pool.WaterReading) error {
	if p.ServiceSuspended || !p.OrganizationID.Valid {
		return nil
	}
	orgID := p.OrganizationID.String
	if r.AddedByID.Valid {
		staffIDs, err := g.staffIDs(ctx, orgID)
		if err != nil {
			return err
		}
		for _, id := range staffIDs {
			if id == r.AddedByID.String {
				return nil
			}
		}
	}
	o, err := g.orgs.GetOrganizationByID(ctx, orgID)
	if err != nil {
		return errors.Wrapf(err, "fetching organization %s", orgID)
	}
	if !o.NotifyLimits {
		return nil
	}

	norms, err := g.pools.GetWaterNorms(ctx, orgID)
	if err != nil {
		return errors.Wrap(err, "fetching water norms")
	}
	violations := pool.Violations(r, pool.Limits(norms))
	if len(violations) == 0 {
		return nil
	}

	label := p.Address
	if c, err := g.orgs.GetClientByID(ctx, p.ClientID); err == nil && c.Name != "" {
		label = c.Name
	}
	msg := Message{
		Title:          "Readings out of range",
		Body:           fmt.Sprintf("%s: %s", label, strings.Join(violations, "; ")),
		Kind:           KindLimits,
		Level:          LevelWarning,
		ActionURL:      fmt.Sprintf("/pools/%s", p.ID),
		OrganizationID: p.OrganizationID,
		PoolID:         null.StringFrom(p.ID),
		DedupeKey:      fmt.Sprintf("limits:%s", r.ID),
	}
	created, err := g.svc.NotifyOrgUsers(ctx, orgID, msg)
	if err != nil {
		return err
	}
	if len(created) > 0 {
		g.log.Info("out-of-range reading reported", "pool", p.ID, "reading", r.ID, "violations", len(violations))
	}
	return nil
}

func (g *Generator) staffIDs(ctx context.Context, orgID string) ([]string, error) {
	accesses, err := g.orgs.QueryOrganizationAccessesByOrganization(ctx, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "querying organization accesses")
	}
	ids := make([]string, 0, len(accesses))
	for _, a := range accesses {
		ids = append(ids, a.UserID)
	}
	return ids, nil
}

func (g *Generator) hasStaffReading(ctx context.Context, poolID string, staffIDs []string, from, to time.Time) (bool, error) {
	readings, err := g.pools.QueryReadings(ctx, pool.ReadingFilter{PoolID: poolID, DateFrom: from, DateTo: to}, nil)
	if err != nil {
		return false, errors.Wrap(err, "querying period readings")
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

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
