package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/aquatrack/aquatrack/core"
	"github.com/aquatrack/aquatrack/core/pool"
)

type poolRepository struct {
	db *DB
}

func NewPoolRepository(db *DB) pool.Repository {
	return &poolRepository{db: db}
}

func (repo *poolRepository) CreatePool(ctx context.Context, p pool.Pool) (pool.Pool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if p.ID == "" {
		p.ID = repo.db.nextPK()
	}
	repo.db.pools[p.ID] = &p
	return p, nil
}

func (repo *poolRepository) GetPoolByID(ctx context.Context, id string) (pool.Pool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.pools[id]; ok {
		return *p, nil
	}
	return pool.Pool{}, pool.ErrNotFound
}

func (repo *poolRepository) QueryPoolsByOrganization(ctx context.Context, orgID string) ([]pool.Pool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.filter(func(p pool.Pool) bool {
		return p.OrganizationID.Valid && p.OrganizationID.String == orgID
	}), nil
}

func (repo *poolRepository) QueryPoolsByClient(ctx context.Context, clientID string) ([]pool.Pool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.filter(func(p pool.Pool) bool { return p.ClientID == clientID }), nil
}

func (repo *poolRepository) QueryPoolsWithDailyReadings(ctx context.Context) ([]pool.Pool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.filter(func(p pool.Pool) bool {
		return p.DailyReadingsRequired && !p.ServiceSuspended
	}), nil
}

func (repo *poolRepository) QueryScheduledPools(ctx context.Context) ([]pool.Pool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.filter(func(p pool.Pool) bool {
		return p.OrganizationID.Valid && (p.ServiceFrequency.Valid || p.ServiceIntervalDays.Valid)
	}), nil
}

func (repo *poolRepository) filter(keep func(pool.Pool) bool) []pool.Pool {
	var pools []pool.Pool
	for _, p := range repo.db.pools {
		if keep(*p) {
			pools = append(pools, *p)
		}
	}
	sort.Slice(pools, func(i, j int) bool { return pools[i].ID < pools[j].ID })
	return pools
}

func (repo *poolRepository) UpdatePool(ctx context.Context, p pool.Pool) (pool.Pool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.pools[p.ID]; !ok {
		return pool.Pool{}, pool.ErrNotFound
	}
	repo.db.pools[p.ID] = &p
	return p, nil
}

func (repo *poolRepository) CreateReading(ctx context.Context, r pool.WaterReading) (pool.WaterReading, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if r.ID == "" {
		r.ID = repo.db.nextPK()
	}
	repo.db.readings[r.ID] = &r
	return r, nil
}

func (repo *poolRepository) QueryReadings(ctx context.Context, filter pool.ReadingFilter, ordering []core.DBOrdering) ([]pool.WaterReading, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	poolIDs := make(map[string]bool, len(filter.PoolIDs))
	for _, id := range filter.PoolIDs {
		poolIDs[id] = true
	}

	var readings []pool.WaterReading
	for _, r := range repo.db.readings {
		if filter.PoolID != "" && r.PoolID != filter.PoolID {
			continue
		}
		if len(poolIDs) > 0 && !poolIDs[r.PoolID] {
			continue
		}
		d := dateOnly(r.Date)
		if !filter.DateFrom.IsZero() && d.Before(dateOnly(filter.DateFrom)) {
			continue
		}
		if !filter.DateTo.IsZero() && d.After(dateOnly(filter.DateTo)) {
			continue
		}
		readings = append(readings, *r)
	}
	sort.Slice(readings, func(i, j int) bool {
		if !readings[i].Date.Equal(readings[j].Date) {
			return readings[i].Date.Before(readings[j].Date)
		}
		return readings[i].ID < readings[j].ID
	})
	return readings, nil
}

func (repo *poolRepository) LatestReadingBefore(ctx context.Context, poolID string, before time.Time, authorIDs []string) (pool.WaterReading, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	authors := make(map[string]bool, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = true
	}

	var (
		best  pool.WaterReading
		found bool
	)
	for _, r := range repo.db.readings {
		if r.PoolID != poolID || !dateOnly(r.Date).Before(dateOnly(before)) {
			continue
		}
		if len(authors) > 0 && (!r.AddedByID.Valid || !authors[r.AddedByID.String]) {
			continue
		}
		if !found || r.Date.After(best.Date) || (r.Date.Equal(best.Date) && r.ID > best.ID) {
			best, found = *r, true
		}
	}
	if !found {
		return pool.WaterReading{}, pool.ErrReadingNotFound
	}
	return best, nil
}

func (repo *poolRepository) GetWaterNorms(ctx context.Context, orgID string) (*pool.WaterNorms, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if n, ok := repo.db.norms[orgID]; ok {
		norms := *n
		return &norms, nil
	}
	return nil, nil
}

func (repo *poolRepository) UpsertWaterNorms(ctx context.Context, n pool.WaterNorms) (pool.WaterNorms, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if n.ID == "" {
		n.ID = repo.db.nextPK()
	}
	repo.db.norms[n.OrganizationID] = &n
	return n, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
