package inmemdb

import (
	"context"
	"sort"

	"github.com/aquatrack/aquatrack/core/org"
)

type orgRepository struct {
	db *DB
}

func NewOrgRepository(db *DB) org.Repository {
	return &orgRepository{db: db}
}

func (repo *orgRepository) CreateOrganization(ctx context.Context, o org.Organization) (org.Organization, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if o.ID == "" {
		o.ID = repo.db.nextPK()
	}
	repo.db.orgs[o.ID] = &o
	return o, nil
}

func (repo *orgRepository) GetOrganizationByID(ctx context.Context, id string) (org.Organization, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if o, ok := repo.db.orgs[id]; ok {
		return *o, nil
	}
	return org.Organization{}, org.ErrNotFound
}

func (repo *orgRepository) UpdateOrganization(ctx context.Context, o org.Organization) (org.Organization, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.orgs[o.ID]; !ok {
		return org.Organization{}, org.ErrNotFound
	}
	repo.db.orgs[o.ID] = &o
	return o, nil
}

func (repo *orgRepository) CreateClient(ctx context.Context, c org.Client) (org.Client, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if c.ID == "" {
		c.ID = repo.db.nextPK()
	}
	repo.db.clients[c.ID] = &c
	return c, nil
}

func (repo *orgRepository) GetClientByID(ctx context.Context, id string) (org.Client, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.clients[id]; ok {
		return *c, nil
	}
	return org.Client{}, org.ErrNotFound
}

func (repo *orgRepository) QueryClientsByOrganization(ctx context.Context, orgID string) ([]org.Client, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var clients []org.Client
	for _, c := range repo.db.clients {
		if c.OrganizationID.Valid && c.OrganizationID.String == orgID {
			clients = append(clients, *c)
		}
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })
	return clients, nil
}

func (repo *orgRepository) GetClientByUser(ctx context.Context, userID string) (org.Client, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, c := range repo.db.clients {
		if c.UserID.Valid && c.UserID.String == userID {
			return *c, nil
		}
	}
	return org.Client{}, org.ErrNotFound
}

func (repo *orgRepository) CreateOrganizationAccess(ctx context.Context, a org.OrganizationAccess) (org.OrganizationAccess, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.orgAccesses {
		if existing.UserID == a.UserID && existing.OrganizationID == a.OrganizationID {
			existing.Role = a.Role
			return *existing, nil
		}
	}
	if a.ID == "" {
		a.ID = repo.db.nextPK()
	}
	repo.db.orgAccesses[a.ID] = &a
	return a, nil
}

func (repo *orgRepository) QueryOrganizationAccessesByUser(ctx context.Context, userID string) ([]org.OrganizationAccess, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var accesses []org.OrganizationAccess
	for _, a := range repo.db.orgAccesses {
		if a.UserID == userID {
			accesses = append(accesses, *a)
		}
	}
	sort.Slice(accesses, func(i, j int) bool { return accesses[i].ID < accesses[j].ID })
	return accesses, nil
}

func (repo *orgRepository) QueryOrganizationAccessesByOrganization(ctx context.Context, orgID string) ([]org.OrganizationAccess, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var accesses []org.OrganizationAccess
	for _, a := range repo.db.orgAccesses {
		if a.OrganizationID == orgID {
			accesses = append(accesses, *a)
		}
	}
	sort.Slice(accesses, func(i, j int) bool { return accesses[i].ID < accesses[j].ID })
	return accesses, nil
}

func (repo *orgRepository) CreatePoolAccess(ctx context.Context, a org.PoolAccess) (org.PoolAccess, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.poolAccesses {
		if existing.UserID == a.UserID && existing.PoolID == a.PoolID {
			existing.Role = a.Role
			return *existing, nil
		}
	}
	if a.ID == "" {
		a.ID = repo.db.nextPK()
	}
	repo.db.poolAccesses[a.ID] = &a
	return a, nil
}

func (repo *orgRepository) QueryPoolAccessesByUser(ctx context.Context, userID string) ([]org.PoolAccess, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var accesses []org.PoolAccess
	for _, a := range repo.db.poolAccesses {
		if a.UserID == userID {
			accesses = append(accesses, *a)
		}
	}
	sort.Slice(accesses, func(i, j int) bool { return accesses[i].ID < accesses[j].ID })
	return accesses, nil
}

func (repo *orgRepository) QueryPoolAccessesByPool(ctx context.Context, poolID string) ([]org.PoolAccess, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var accesses []org.PoolAccess
	for _, a := range repo.db.poolAccesses {
		if a.PoolID == poolID {
			accesses = append(accesses, *a)
		}
	}
	sort.Slice(accesses, func(i, j int) bool { return accesses[i].ID < accesses[j].ID })
	return accesses, nil
}

func (repo *orgRepository) CountClientPools(ctx context.Context, clientID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var count int
	for _, p := range repo.db.pools {
		if p.ClientID == clientID {
			count++
		}
	}
	return count, nil
}
