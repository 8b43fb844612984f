package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core/org"
)

type organizationRow struct {
	ID                   string    `db:"id"`
	Name                 string    `db:"name"`
	INN                  string    `db:"inn"`
	City                 string    `db:"city"`
	Address              string    `db:"address"`
	Phone                string    `db:"phone"`
	Email                string    `db:"email"`
	TrialStartedAt       null.Time `db:"trial_started_at"`
	PaidUntil            null.Time `db:"paid_until"`
	NotifyMissedVisits   bool      `db:"notify_missed_visits"`
	NotifyPoolStaffDaily bool      `db:"notify_pool_staff_daily"`
	NotifyLimits         bool      `db:"notify_limits"`
	CreatedAt            time.Time `db:"created_at"`
}

func (r organizationRow) model() org.Organization {
	return org.Organization{
		ID:                   r.ID,
		Name:                 r.Name,
		INN:                  r.INN,
		City:                 r.City,
		Address:              r.Address,
		Phone:                r.Phone,
		Email:                r.Email,
		TrialStartedAt:       r.TrialStartedAt,
		PaidUntil:            r.PaidUntil,
		NotifyMissedVisits:   r.NotifyMissedVisits,
		NotifyPoolStaffDaily: r.NotifyPoolStaffDaily,
		NotifyLimits:         r.NotifyLimits,
		CreatedAt:            r.CreatedAt,
	}
}

func newOrganizationRow(o org.Organization) organizationRow {
	return organizationRow{
		ID:                   o.ID,
		Name:                 o.Name,
		INN:                  o.INN,
		City:                 o.City,
		Address:              o.Address,
		Phone:                o.Phone,
		Email:                o.Email,
		TrialStartedAt:       o.TrialStartedAt,
		PaidUntil:            o.PaidUntil,
		NotifyMissedVisits:   o.NotifyMissedVisits,
		NotifyPoolStaffDaily: o.NotifyPoolStaffDaily,
		NotifyLimits:         o.NotifyLimits,
		CreatedAt:            o.CreatedAt,
	}
}

type clientRow struct {
	ID             string      `db:"id"`
	UserID         null.String `db:"user_id"`
	ClientType     string      `db:"client_type"`
	Name           string      `db:"name"`
	FirstName      string      `db:"first_name"`
	LastName       string      `db:"last_name"`
	CompanyName    string      `db:"company_name"`
	Phone          string      `db:"phone"`
	Email          string      `db:"email"`
	INN            string      `db:"inn"`
	OrganizationID null.String `db:"organization_id"`
}

func (r clientRow) model() org.Client {
	return org.Client(r)
}

type orgRepository struct {
	db *sqlx.DB
}

func NewOrgRepository(db *sqlx.DB) org.Repository {
	return &orgRepository{db: db}
}

func (repo *orgRepository) CreateOrganization(ctx context.Context, o org.Organization) (org.Organization, error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	q := `INSERT INTO organization (id, name, inn, city, address, phone, email, trial_started_at, paid_until,
			notify_missed_visits, notify_pool_staff_daily, notify_limits, created_at)
		VALUES (:id, :name, :inn, :city, :address, :phone, :email, :trial_started_at, :paid_until,
			:notify_missed_visits, :notify_pool_staff_daily, :notify_limits, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, newOrganizationRow(o)); err != nil {
		return org.Organization{}, errors.Wrap(err, "inserting organization")
	}
	return o, nil
}

func (repo *orgRepository) GetOrganizationByID(ctx context.Context, id string) (org.Organization, error) {
	var row organizationRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM organization WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return org.Organization{}, org.ErrNotFound
	}
	if err != nil {
		return org.Organization{}, errors.Wrap(err, "getting organization")
	}
	return row.model(), nil
}

func (repo *orgRepository) UpdateOrganization(ctx context.Context, o org.Organization) (org.Organization, error) {
	q := `UPDATE organization SET name = :name, inn = :inn, city = :city, address = :address, phone = :phone,
		email = :email, trial_started_at = :trial_started_at, paid_until = :paid_until,
		notify_missed_visits = :notify_missed_visits, notify_pool_staff_daily = :notify_pool_staff_daily,
		notify_limits = :notify_limits WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newOrganizationRow(o))
	if err != nil {
		return org.Organization{}, errors.Wrap(err, "updating organization")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return org.Organization{}, org.ErrNotFound
	}
	return o, nil
}

func (repo *orgRepository) CreateClient(ctx context.Context, c org.Client) (org.Client, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	q := `INSERT INTO client (id, user_id, client_type, name, first_name, last_name, company_name, phone, email, inn, organization_id)
		VALUES (:id, :user_id, :client_type, :name, :first_name, :last_name, :company_name, :phone, :email, :inn, :organization_id)`
	if _, err := repo.db.NamedExecContext(ctx, q, clientRow(c)); err != nil {
		return org.Client{}, errors.Wrap(err, "inserting client")
	}
	return c, nil
}

func (repo *orgRepository) GetClientByID(ctx context.Context, id string) (org.Client, error) {
	var row clientRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM client WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return org.Client{}, org.ErrNotFound
	}
	if err != nil {
		return org.Client{}, errors.Wrap(err, "getting client")
	}
	return row.model(), nil
}

func (repo *orgRepository) QueryClientsByOrganization(ctx context.Context, orgID string) ([]org.Client, error) {
	var rows []clientRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM client WHERE organization_id = $1 ORDER BY name`, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "querying clients")
	}
	clients := make([]org.Client, len(rows))
	for i, row := range rows {
		clients[i] = row.model()
	}
	return clients, nil
}

func (repo *orgRepository) GetClientByUser(ctx context.Context, userID string) (org.Client, error) {
	var row clientRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM client WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return org.Client{}, org.ErrNotFound
	}
	if err != nil {
		return org.Client{}, errors.Wrap(err, "getting client by user")
	}
	return row.model(), nil
}

func (repo *orgRepository) CreateOrganizationAccess(ctx context.Context, a org.OrganizationAccess) (org.OrganizationAccess, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	q := `INSERT INTO organization_access (id, user_id, organization_id, role) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, organization_id) DO UPDATE SET role = EXCLUDED.role`
	if _, err := repo.db.ExecContext(ctx, q, a.ID, a.UserID, a.OrganizationID, a.Role); err != nil {
		return org.OrganizationAccess{}, errors.Wrap(err, "inserting organization access")
	}
	return a, nil
}

func (repo *orgRepository) QueryOrganizationAccessesByUser(ctx context.Context, userID string) ([]org.OrganizationAccess, error) {
	q := `SELECT id, user_id, organization_id, role FROM organization_access WHERE user_id = $1`
	rows, err := repo.db.QueryxContext(ctx, q, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying organization accesses")
	}
	defer func() { _ = rows.Close() }()
	var accesses []org.OrganizationAccess
	for rows.Next() {
		var a org.OrganizationAccess
		if err = rows.Scan(&a.ID, &a.UserID, &a.OrganizationID, &a.Role); err != nil {
			return nil, errors.Wrap(err, "scanning organization access")
		}
		accesses = append(accesses, a)
	}
	return accesses, rows.Err()
}

func (repo *orgRepository) QueryOrganizationAccessesByOrganization(ctx context.Context, orgID string) ([]org.OrganizationAccess, error) {
	q := `SELECT id, user_id, organization_id, role FROM organization_access WHERE organization_id = $1`
	rows, err := repo.db.QueryxContext(ctx, q, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "querying organization accesses")
	}
	defer func() { _ = rows.Close() }()
	var accesses []org.OrganizationAccess
	for rows.Next() {
		var a org.OrganizationAccess
		if err = rows.Scan(&a.ID, &a.UserID, &a.OrganizationID, &a.Role); err != nil {
			return nil, errors.Wrap(err, "scanning organization access")
		}
		accesses = append(accesses, a)
	}
	return accesses, rows.Err()
}

func (repo *orgRepository) CreatePoolAccess(ctx context.Context, a org.PoolAccess) (org.PoolAccess, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	q := `INSERT INTO pool_access (id, user_id, pool_id, role) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, pool_id) DO UPDATE SET role = EXCLUDED.role`
	if _, err := repo.db.ExecContext(ctx, q, a.ID, a.UserID, a.PoolID, a.Role); err != nil {
		return org.PoolAccess{}, errors.Wrap(err, "inserting pool access")
	}
	return a, nil
}

func (repo *orgRepository) QueryPoolAccessesByUser(ctx context.Context, userID string) ([]org.PoolAccess, error) {
	return repo.queryPoolAccesses(ctx, "user_id", userID)
}

func (repo *orgRepository) QueryPoolAccessesByPool(ctx context.Context, poolID string) ([]org.PoolAccess, error) {
	return repo.queryPoolAccesses(ctx, "pool_id", poolID)
}

func (repo *orgRepository) queryPoolAccesses(ctx context.Context, col, val string) ([]org.PoolAccess, error) {
	rows, err := repo.db.QueryxContext(ctx, `SELECT id, user_id, pool_id, role FROM pool_access WHERE `+col+` = $1`, val)
	if err != nil {
		return nil, errors.Wrap(err, "querying pool accesses")
	}
	defer func() { _ = rows.Close() }()
	var accesses []org.PoolAccess
	for rows.Next() {
		var a org.PoolAccess
		if err = rows.Scan(&a.ID, &a.UserID, &a.PoolID, &a.Role); err != nil {
			return nil, errors.Wrap(err, "scanning pool access")
		}
		accesses = append(accesses, a)
	}
	return accesses, rows.Err()
}

func (repo *orgRepository) CountClientPools(ctx context.Context, clientID string) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM pool WHERE client_id = $1`, clientID); err != nil {
		return 0, errors.Wrap(err, "counting client pools")
	}
	return count, nil
}
