package pool

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core"
)

var (
	// errors
	ErrNotFound        = errors.New("pool not found")
	ErrReadingNotFound = errors.New("reading not found")
)

type (
	ReadingFilter struct {
		PoolID   string
		PoolIDs  []string
		DateFrom time.Time // inclusive, date precision
		DateTo   time.Time // inclusive, date precision
	}

	Repository interface {
		CreatePool(ctx context.Context, p Pool) (Pool, error)
		GetPoolByID(ctx context.Context, id string) (Pool, error)
		QueryPoolsByOrganization(ctx context.Context, orgID string) ([]Pool, error)
		QueryPoolsByClient(ctx context.Context, clientID string) ([]Pool, error)
		QueryPoolsWithDailyReadings(ctx context.Context) ([]Pool, error)
		QueryScheduledPools(ctx context.Context) ([]Pool, error)
		UpdatePool(ctx context.Context, p Pool) (Pool, error)

		CreateReading(ctx context.Context, r WaterReading) (WaterReading, error)
		QueryReadings(ctx context.Context, filter ReadingFilter, ordering []core.DBOrdering) ([]WaterReading, error)
		// LatestReadingBefore returns the most recent reading for the pool
		// strictly before the given date, restricted to the given authors
		// when authorIDs is non-empty.
		LatestReadingBefore(ctx context.Context, poolID string, before time.Time, authorIDs []string) (WaterReading, error)

		GetWaterNorms(ctx context.Context, orgID string) (*WaterNorms, error)
		UpsertWaterNorms(ctx context.Context, n WaterNorms) (WaterNorms, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, np NewPool) (Pool, error) {
	p := Pool{
		ClientID:    np.ClientID,
		Address:     np.Address,
		Description: np.Description,
		Shape:       np.Shape,
		PoolType:    np.PoolType,

		DailyReadingsRequired: np.DailyReadingsRequired,
		CreatedAt:             time.Now().UTC(),
	}
	if p.Shape == "" {
		p.Shape = ShapeRect
	}
	if p.PoolType == "" {
		p.PoolType = TypeSkimmer
	}
	if np.OrganizationID != "" {
		p.OrganizationID.SetValid(np.OrganizationID)
	}
	if np.ServiceFrequency != "" {
		p.ServiceFrequency.SetValid(np.ServiceFrequency)
	}
	if np.ServiceIntervalDays != nil {
		p.ServiceIntervalDays.SetValid(*np.ServiceIntervalDays)
	}
	return svc.repo.CreatePool(ctx, p)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Pool, error) {
	return svc.repo.GetPoolByID(ctx, id)
}

func (svc *Service) QueryByOrganization(ctx context.Context, orgID string) ([]Pool, error) {
	return svc.repo.QueryPoolsByOrganization(ctx, orgID)
}

func (svc *Service) QueryByClient(ctx context.Context, clientID string) ([]Pool, error) {
	return svc.repo.QueryPoolsByClient(ctx, clientID)
}

func (svc *Service) Update(ctx context.Context, p Pool) (Pool, error) {
	return svc.repo.UpdatePool(ctx, p)
}

func (svc *Service) AddReading(ctx context.Context, poolID, addedByID string, nr NewReading) (WaterReading, error) {
	if _, err := svc.repo.GetPoolByID(ctx, poolID); err != nil {
		return WaterReading{}, err
	}
	r := WaterReading{
		PoolID: poolID,
		Date:   nr.Date.UTC(),

		Temperature: null.Float64FromPtr(nr.Temperature),
		PH:          null.Float64FromPtr(nr.PH),
		ClFree:      null.Float64FromPtr(nr.ClFree),
		ClTotal:     null.Float64FromPtr(nr.ClTotal),

		PHDosingStation:      null.Float64FromPtr(nr.PHDosingStation),
		ClFreeDosingStation:  null.Float64FromPtr(nr.ClFreeDosingStation),
		ClTotalDosingStation: null.Float64FromPtr(nr.ClTotalDosingStation),
		RedoxDosingStation:   null.Float64FromPtr(nr.RedoxDosingStation),

		Comment:           nr.Comment,
		RequiredMaterials: nr.RequiredMaterials,
		PerformedWorks:    nr.PerformedWorks,
	}
	if addedByID != "" {
		r.AddedByID.SetValid(addedByID)
	}
	return svc.repo.CreateReading(ctx, r)
}

func (svc *Service) QueryReadings(ctx context.Context, filter ReadingFilter, ordering []core.DBOrdering) ([]WaterReading, error) {
	return svc.repo.QueryReadings(ctx, filter, ordering)
}

// WaterNormsFor returns the organization's custom norms, or nil when it
// runs on the defaults.
func (svc *Service) WaterNormsFor(ctx context.Context, orgID string) (*WaterNorms, error) {
	return svc.repo.GetWaterNorms(ctx, orgID)
}

func (svc *Service) SetWaterNorms(ctx context.Context, n WaterNorms) (WaterNorms, error) {
	return svc.repo.UpsertWaterNorms(ctx, n)
}

// NormsViolations applies the pool organization's water norms (or the
// defaults) to the reading.
func (svc *Service) NormsViolations(ctx context.Context, p Pool, r WaterReading) ([]string, error) {
	var norms *WaterNorms
	if p.OrganizationID.Valid {
		var err error
		norms, err = svc.repo.GetWaterNorms(ctx, p.OrganizationID.String)
		if err != nil {
			return nil, err
		}
	}
	return Violations(r, Limits(norms)), nil
}
