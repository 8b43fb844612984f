package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core"
	"github.com/aquatrack/aquatrack/core/pool"
)

type poolRow struct {
	ID                    string       `db:"id"`
	ClientID              string       `db:"client_id"`
	OrganizationID        null.String  `db:"organization_id"`
	Address               string       `db:"address"`
	Description           string       `db:"description"`
	Shape                 string       `db:"shape"`
	PoolType              string       `db:"pool_type"`
	Length                null.Float64 `db:"length"`
	Width                 null.Float64 `db:"width"`
	Diameter              null.Float64 `db:"diameter"`
	VariableDepth         bool         `db:"variable_depth"`
	Depth                 null.Float64 `db:"depth"`
	DepthMin              null.Float64 `db:"depth_min"`
	DepthMax              null.Float64 `db:"depth_max"`
	OverflowVolume        null.Float64 `db:"overflow_volume"`
	SurfaceArea           null.Float64 `db:"surface_area"`
	Volume                null.Float64 `db:"volume"`
	DosingStation         bool         `db:"dosing_station"`
	ServiceFrequency      null.String  `db:"service_frequency"`
	ServiceIntervalDays   null.Int     `db:"service_interval_days"`
	ServiceSuspended      bool         `db:"service_suspended"`
	DailyReadingsRequired bool         `db:"daily_readings_required"`
	CreatedAt             time.Time    `db:"created_at"`
}

func (r poolRow) model() pool.Pool {
	return pool.Pool(r)
}

type readingRow struct {
	ID                   string       `db:"id"`
	PoolID               string       `db:"pool_id"`
	Date                 time.Time    `db:"date"`
	AddedByID            null.String  `db:"added_by_id"`
	Temperature          null.Float64 `db:"temperature"`
	PH                   null.Float64 `db:"ph"`
	ClFree               null.Float64 `db:"cl_free"`
	ClTotal              null.Float64 `db:"cl_total"`
	PHDosingStation      null.Float64 `db:"ph_dosing_station"`
	ClFreeDosingStation  null.Float64 `db:"cl_free_dosing_station"`
	ClTotalDosingStation null.Float64 `db:"cl_total_dosing_station"`
	RedoxDosingStation   null.Float64 `db:"redox_dosing_station"`
	Comment              string       `db:"comment"`
	RequiredMaterials    string       `db:"required_materials"`
	PerformedWorks       string       `db:"performed_works"`
}

func (r readingRow) model() pool.WaterReading {
	return pool.WaterReading(r)
}

type normsRow struct {
	ID             string       `db:"id"`
	OrganizationID string       `db:"organization_id"`
	PHMin          null.Float64 `db:"ph_min"`
	PHMax          null.Float64 `db:"ph_max"`
	ClFreeMin      null.Float64 `db:"cl_free_min"`
	ClFreeMax      null.Float64 `db:"cl_free_max"`
	ClTotalMin     null.Float64 `db:"cl_total_min"`
	ClTotalMax     null.Float64 `db:"cl_total_max"`
}

func (r normsRow) model() pool.WaterNorms {
	return pool.WaterNorms(r)
}

type poolRepository struct {
	db *sqlx.DB
}

func NewPoolRepository(db *sqlx.DB) pool.Repository {
	return &poolRepository{db: db}
}

func (repo *poolRepository) CreatePool(ctx context.Context, p pool.Pool) (pool.Pool, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	q := `INSERT INTO pool (id, client_id, organization_id, address, description, shape, pool_type,
			length, width, diameter, variable_depth, depth, depth_min, depth_max, overflow_volume,
			surface_area, volume, dosing_station, service_frequency, service_interval_days,
			service_suspended, daily_readings_required, created_at)
		VALUES (:id, :client_id, :organization_id, :address, :description, :shape, :pool_type,
			:length, :width, :diameter, :variable_depth, :depth, :depth_min, :depth_max, :overflow_volume,
			:surface_area, :volume, :dosing_station, :service_frequency, :service_interval_days,
			:service_suspended, :daily_readings_required, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, poolRow(p)); err != nil {
		return pool.Pool{}, errors.Wrap(err, "inserting pool")
	}
	return p, nil
}

func (repo *poolRepository) GetPoolByID(ctx context.Context, id string) (pool.Pool, error) {
	var row poolRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM pool WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return pool.Pool{}, pool.ErrNotFound
	}
	if err != nil {
		return pool.Pool{}, errors.Wrap(err, "getting pool")
	}
	return row.model(), nil
}

func (repo *poolRepository) QueryPoolsByOrganization(ctx context.Context, orgID string) ([]pool.Pool, error) {
	return repo.queryPools(ctx, `SELECT * FROM pool WHERE organization_id = $1 ORDER BY created_at`, orgID)
}

func (repo *poolRepository) QueryPoolsByClient(ctx context.Context, clientID string) ([]pool.Pool, error) {
	return repo.queryPools(ctx, `SELECT * FROM pool WHERE client_id = $1 ORDER BY created_at`, clientID)
}

func (repo *poolRepository) QueryPoolsWithDailyReadings(ctx context.Context) ([]pool.Pool, error) {
	return repo.queryPools(ctx, `SELECT * FROM pool WHERE daily_readings_required AND NOT service_suspended`)
}

func (repo *poolRepository) QueryScheduledPools(ctx context.Context) ([]pool.Pool, error) {
	q := `SELECT * FROM pool WHERE organization_id IS NOT NULL
		AND (service_frequency IS NOT NULL OR service_interval_days IS NOT NULL)`
	return repo.queryPools(ctx, q)
}

func (repo *poolRepository) queryPools(ctx context.Context, q string, args ...interface{}) ([]pool.Pool, error) {
	var rows []poolRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying pools")
	}
	pools := make([]pool.Pool, len(rows))
	for i, row := range rows {
		pools[i] = row.model()
	}
	return pools, nil
}

func (repo *poolRepository) UpdatePool(ctx context.Context, p pool.Pool) (pool.Pool, error) {
	q := `UPDATE pool SET client_id = :client_id, organization_id = :organization_id, address = :address,
		description = :description, shape = :shape, pool_type = :pool_type, length = :length, width = :width,
		diameter = :diameter, variable_depth = :variable_depth, depth = :depth, depth_min = :depth_min,
		depth_max = :depth_max, overflow_volume = :overflow_volume, surface_area = :surface_area,
		volume = :volume, dosing_station = :dosing_station, service_frequency = :service_frequency,
		service_interval_days = :service_interval_days, service_suspended = :service_suspended,
		daily_readings_required = :daily_readings_required WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, poolRow(p))
	if err != nil {
		return pool.Pool{}, errors.Wrap(err, "updating pool")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return pool.Pool{}, pool.ErrNotFound
	}
	return p, nil
}

func (repo *poolRepository) CreateReading(ctx context.Context, r pool.WaterReading) (pool.WaterReading, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	q := `INSERT INTO water_reading (id, pool_id, date, added_by_id, temperature, ph, cl_free, cl_total,
			ph_dosing_station, cl_free_dosing_station, cl_total_dosing_station, redox_dosing_station,
			comment, required_materials, performed_works)
		VALUES (:id, :pool_id, :date, :added_by_id, :temperature, :ph, :cl_free, :cl_total,
			:ph_dosing_station, :cl_free_dosing_station, :cl_total_dosing_station, :redox_dosing_station,
			:comment, :required_materials, :performed_works)`
	if _, err := repo.db.NamedExecContext(ctx, q, readingRow(r)); err != nil {
		return pool.WaterReading{}, errors.Wrap(err, "inserting reading")
	}
	return r, nil
}

func (repo *poolRepository) QueryReadings(ctx context.Context, filter pool.ReadingFilter, ordering []core.DBOrdering) ([]pool.WaterReading, error) {
	q := `SELECT * FROM water_reading WHERE 1=1`
	var args []interface{}
	if filter.PoolID != "" {
		q += ` AND pool_id = ?`
		args = append(args, filter.PoolID)
	}
	if len(filter.PoolIDs) > 0 {
		inQ, inArgs, err := sqlx.In(` AND pool_id IN (?)`, filter.PoolIDs)
		if err != nil {
			return nil, errors.Wrap(err, "building readings query")
		}
		q += inQ
		args = append(args, inArgs...)
	}
	if !filter.DateFrom.IsZero() {
		q += ` AND date::date >= ?`
		args = append(args, filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		q += ` AND date::date <= ?`
		args = append(args, filter.DateTo)
	}
	q += orderBy(ordering, "date, id")

	var rows []readingRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying readings")
	}
	readings := make([]pool.WaterReading, len(rows))
	for i, row := range rows {
		readings[i] = row.model()
	}
	return readings, nil
}

func (repo *poolRepository) LatestReadingBefore(ctx context.Context, poolID string, before time.Time, authorIDs []string) (pool.WaterReading, error) {
	q := `SELECT * FROM water_reading WHERE pool_id = ? AND date::date < ?`
	args := []interface{}{poolID, before}
	if len(authorIDs) > 0 {
		inQ, inArgs, err := sqlx.In(` AND added_by_id IN (?)`, authorIDs)
		if err != nil {
			return pool.WaterReading{}, errors.Wrap(err, "building anchor query")
		}
		q += inQ
		args = append(args, inArgs...)
	}
	q += ` ORDER BY date DESC, id DESC LIMIT 1`

	var row readingRow
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind(q), args...)
	if err == sql.ErrNoRows {
		return pool.WaterReading{}, pool.ErrReadingNotFound
	}
	if err != nil {
		return pool.WaterReading{}, errors.Wrap(err, "getting latest reading")
	}
	return row.model(), nil
}

func (repo *poolRepository) GetWaterNorms(ctx context.Context, orgID string) (*pool.WaterNorms, error) {
	var row normsRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM organization_water_norms WHERE organization_id = $1`, orgID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "getting water norms")
	}
	n := row.model()
	return &n, nil
}

func (repo *poolRepository) UpsertWaterNorms(ctx context.Context, n pool.WaterNorms) (pool.WaterNorms, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	q := `INSERT INTO organization_water_norms (id, organization_id, ph_min, ph_max, cl_free_min, cl_free_max, cl_total_min, cl_total_max)
		VALUES (:id, :organization_id, :ph_min, :ph_max, :cl_free_min, :cl_free_max, :cl_total_min, :cl_total_max)
		ON CONFLICT (organization_id) DO UPDATE SET ph_min = EXCLUDED.ph_min, ph_max = EXCLUDED.ph_max,
			cl_free_min = EXCLUDED.cl_free_min, cl_free_max = EXCLUDED.cl_free_max,
			cl_total_min = EXCLUDED.cl_total_min, cl_total_max = EXCLUDED.cl_total_max`
	if _, err := repo.db.NamedExecContext(ctx, q, normsRow(n)); err != nil {
		return pool.WaterNorms{}, errors.Wrap(err, "upserting water norms")
	}
	return n, nil
}
