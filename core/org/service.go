package org

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound   = errors.New("organization not found")
	ErrNameExists = errors.New("an organization with this name already exists")
)

type (
	Repository interface {
		CreateOrganization(ctx context.Context, o Organization) (Organization, error)
		GetOrganizationByID(ctx context.Context, id string) (Organization, error)
		UpdateOrganization(ctx context.Context, o Organization) (Organization, error)

		CreateClient(ctx context.Context, c Client) (Client, error)
		GetClientByID(ctx context.Context, id string) (Client, error)
		QueryClientsByOrganization(ctx context.Context, orgID string) ([]Client, error)
		GetClientByUser(ctx context.Context, userID string) (Client, error)

		CreateOrganizationAccess(ctx context.Context, a OrganizationAccess) (OrganizationAccess, error)
		QueryOrganizationAccessesByUser(ctx context.Context, userID string) ([]OrganizationAccess, error)
		QueryOrganizationAccessesByOrganization(ctx context.Context, orgID string) ([]OrganizationAccess, error)

		CreatePoolAccess(ctx context.Context, a PoolAccess) (PoolAccess, error)
		QueryPoolAccessesByUser(ctx context.Context, userID string) ([]PoolAccess, error)
		QueryPoolAccessesByPool(ctx context.Context, poolID string) ([]PoolAccess, error)

		// CountClientPools counts pools belonging to the given client.
		CountClientPools(ctx context.Context, clientID string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Register(ctx context.Context, no NewOrganization) (Organization, error) {
	now := time.Now().UTC()
	o := Organization{
		Name:    no.Name,
		INN:     no.INN,
		City:    no.City,
		Address: no.Address,
		Phone:   no.Phone,
		Email:   no.Email,

		NotifyMissedVisits:   true,
		NotifyPoolStaffDaily: true,
		NotifyLimits:         true,

		CreatedAt: now,
	}
	o.TrialStartedAt.SetValid(now)
	return svc.repo.CreateOrganization(ctx, o)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Organization, error) {
	return svc.repo.GetOrganizationByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, o Organization) (Organization, error) {
	return svc.repo.UpdateOrganization(ctx, o)
}

func (svc *Service) QueryClients(ctx context.Context, orgID string) ([]Client, error) {
	return svc.repo.QueryClientsByOrganization(ctx, orgID)
}

// ClientForUser returns the client profile linked to the user, or ErrNotFound.
func (svc *Service) ClientForUser(ctx context.Context, userID string) (Client, error) {
	return svc.repo.GetClientByUser(ctx, userID)
}

func (svc *Service) CreateClient(ctx context.Context, nc NewClient) (Client, error) {
	c := Client{
		ClientType:  nc.ClientType,
		Name:        nc.Name,
		FirstName:   nc.FirstName,
		LastName:    nc.LastName,
		CompanyName: nc.CompanyName,
		Phone:       nc.Phone,
		Email:       nc.Email,
		INN:         nc.INN,
	}
	if nc.OrganizationID != "" {
		c.OrganizationID.SetValid(nc.OrganizationID)
	}
	return svc.repo.CreateClient(ctx, c)
}

func (svc *Service) GrantOrganizationAccess(ctx context.Context, userID, orgID, role string) (OrganizationAccess, error) {
	return svc.repo.CreateOrganizationAccess(ctx, OrganizationAccess{UserID: userID, OrganizationID: orgID, Role: role})
}

func (svc *Service) GrantPoolAccess(ctx context.Context, userID, poolID, role string) (PoolAccess, error) {
	return svc.repo.CreatePoolAccess(ctx, PoolAccess{UserID: userID, PoolID: poolID, Role: role})
}

// AccessesForUser returns all of the user's organization accesses.
func (svc *Service) AccessesForUser(ctx context.Context, userID string) ([]OrganizationAccess, error) {
	return svc.repo.QueryOrganizationAccessesByUser(ctx, userID)
}

// OrganizationForUser returns the organization the user is staff of, or ErrNotFound.
func (svc *Service) OrganizationForUser(ctx context.Context, userID string) (Organization, error) {
	accesses, err := svc.repo.QueryOrganizationAccessesByUser(ctx, userID)
	if err != nil {
		return Organization{}, err
	}
	if len(accesses) == 0 {
		return Organization{}, ErrNotFound
	}
	return svc.repo.GetOrganizationByID(ctx, accesses[0].OrganizationID)
}

// StaffIDs returns the IDs of every user holding a staff role in the organization.
func (svc *Service) StaffIDs(ctx context.Context, orgID string) ([]string, error) {
	accesses, err := svc.repo.QueryOrganizationAccessesByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(accesses))
	for _, a := range accesses {
		ids = append(ids, a.UserID)
	}
	return ids, nil
}

// HasOrganizationAccess reports whether the user holds any staff role in the organization.
func (svc *Service) HasOrganizationAccess(ctx context.Context, userID, orgID string) (bool, error) {
	accesses, err := svc.repo.QueryOrganizationAccessesByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, a := range accesses {
		if a.OrganizationID == orgID {
			return true, nil
		}
	}
	return false, nil
}

// Billing plan bookkeeping.
//
// A company account runs on a 14-day trial from registration, then on
// explicit paid periods. A "personal" account (no staff role, an org-less
// client profile) is free as long as it owns exactly one pool.

// TrialEndsAt returns the end of the organization's trial, or a zero time
// when no trial was started.
func TrialEndsAt(o Organization) time.Time {
	if !o.TrialStartedAt.Valid {
		return time.Time{}
	}
	return o.TrialStartedAt.Time.Add(TrialDays * 24 * time.Hour)
}

// CompanyHasAccess reports whether the organization's plan (paid or trial)
// is active at the given moment.
func CompanyHasAccess(o Organization, now time.Time) bool {
	if o.PaidUntil.Valid && !o.PaidUntil.Time.Before(now) {
		return true
	}
	trialEnd := TrialEndsAt(o)
	return !trialEnd.IsZero() && trialEnd.After(now)
}

// CompanyTrialDaysLeft returns the number of whole-or-partial trial days
// remaining, never negative.
func CompanyTrialDaysLeft(o Organization, now time.Time) int {
	trialEnd := TrialEndsAt(o)
	if trialEnd.IsZero() {
		return 0
	}
	delta := trialEnd.Sub(now)
	if delta <= 0 {
		return 0
	}
	return int(math.Ceil(delta.Seconds() / 86400))
}

// IsPersonalFree reports whether the user is an individual pool owner on
// the free plan: no staff role anywhere, an org-less client profile, and
// exactly one pool.
func (svc *Service) IsPersonalFree(ctx context.Context, userID string) (bool, error) {
	accesses, err := svc.repo.QueryOrganizationAccessesByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if len(accesses) > 0 {
		return false, nil
	}
	client, err := svc.repo.GetClientByUser(ctx, userID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	if client.OrganizationID.Valid {
		return false, nil
	}
	cnt, err := svc.repo.CountClientPools(ctx, client.ID)
	if err != nil {
		return false, err
	}
	return cnt == 1, nil
}

// IsOrgAccessBlocked reports whether the user's organization plan has lapsed.
func (svc *Service) IsOrgAccessBlocked(ctx context.Context, userID string, now time.Time) (bool, error) {
	o, err := svc.OrganizationForUser(ctx, userID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return !CompanyHasAccess(o, now), nil
}
