package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/aquatrack/aquatrack/core/schedule"
)

type visitPlanRepository struct {
	db *DB
}

func NewVisitPlanRepository(db *DB) schedule.Repository {
	return &visitPlanRepository{db: db}
}

func planKey(poolID string, periodStart time.Time) string {
	return poolID + "|" + dateOnly(periodStart).Format("2006-01-02")
}

func (repo *visitPlanRepository) UpsertVisitPlan(ctx context.Context, p schedule.VisitPlan) (schedule.VisitPlan, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := planKey(p.PoolID, p.PeriodStart)
	if existing, ok := repo.db.plans[key]; ok {
		existing.PlannedDate = p.PlannedDate
		return *existing, nil
	}
	if p.ID == "" {
		p.ID = repo.db.nextPK()
	}
	repo.db.plans[key] = &p
	return p, nil
}

func (repo *visitPlanRepository) QueryVisitPlans(ctx context.Context, poolIDs []string, from, to time.Time) ([]schedule.VisitPlan, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make(map[string]bool, len(poolIDs))
	for _, id := range poolIDs {
		ids[id] = true
	}
	var plans []schedule.VisitPlan
	for _, p := range repo.db.plans {
		if !ids[p.PoolID] {
			continue
		}
		start := dateOnly(p.PeriodStart)
		if start.Before(dateOnly(from)) || start.After(dateOnly(to)) {
			continue
		}
		plans = append(plans, *p)
	}
	sort.Slice(plans, func(i, j int) bool {
		if !plans[i].PeriodStart.Equal(plans[j].PeriodStart) {
			return plans[i].PeriodStart.Before(plans[j].PeriodStart)
		}
		return plans[i].PoolID < plans[j].PoolID
	})
	return plans, nil
}
