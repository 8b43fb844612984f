package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/aquatrack/aquatrack/core/schedule"
)

type visitPlanRow struct {
	ID          string    `db:"id"`
	PoolID      string    `db:"pool_id"`
	PeriodStart time.Time `db:"period_start"`
	PlannedDate time.Time `db:"planned_date"`
}

func (r visitPlanRow) model() schedule.VisitPlan {
	return schedule.VisitPlan(r)
}

type visitPlanRepository struct {
	db *sqlx.DB
}

func NewVisitPlanRepository(db *sqlx.DB) schedule.Repository {
	return &visitPlanRepository{db: db}
}

// UpsertVisitPlan keeps one plan per (pool, period start); concurrent moves
// of the same tile resolve last-write-wins.
func (repo *visitPlanRepository) UpsertVisitPlan(ctx context.Context, p schedule.VisitPlan) (schedule.VisitPlan, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	q := `INSERT INTO service_visit_plan (id, pool_id, period_start, planned_date)
		VALUES (:id, :pool_id, :period_start, :planned_date)
		ON CONFLICT (pool_id, period_start) DO UPDATE SET planned_date = EXCLUDED.planned_date`
	if _, err := repo.db.NamedExecContext(ctx, q, visitPlanRow(p)); err != nil {
		return schedule.VisitPlan{}, errors.Wrap(err, "upserting visit plan")
	}
	return p, nil
}

func (repo *visitPlanRepository) QueryVisitPlans(ctx context.Context, poolIDs []string, from, to time.Time) ([]schedule.VisitPlan, error) {
	if len(poolIDs) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(
		`SELECT * FROM service_visit_plan WHERE pool_id IN (?) AND period_start >= ? AND period_start <= ? ORDER BY period_start`,
		poolIDs, from, to,
	)
	if err != nil {
		return nil, errors.Wrap(err, "building visit plan query")
	}
	var rows []visitPlanRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying visit plans")
	}
	plans := make([]schedule.VisitPlan, len(rows))
	for i, row := range rows {
		plans[i] = row.model()
	}
	return plans, nil
}
