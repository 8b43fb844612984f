package org

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Organization roles
const (
	RoleManager = "manager"
	RoleService = "service"
	RoleAdmin   = "admin"
)

// Pool access roles (client-delegated staff)
const (
	PoolRoleViewer = "viewer"
	PoolRoleEditor = "editor"
)

// Client types
const (
	ClientTypePrivate = "private"
	ClientTypeLegal   = "legal"
)

// TrialDays is the length of a new organization's free trial.
const TrialDays = 14

type Organization struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	INN     string `json:"inn,omitempty"`
	City    string `json:"city,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`

	// billing plan bookkeeping
	TrialStartedAt null.Time `json:"trial_started_at"`
	PaidUntil      null.Time `json:"paid_until"`

	// notification settings
	NotifyMissedVisits   bool `json:"notify_missed_visits"`
	NotifyPoolStaffDaily bool `json:"notify_pool_staff_daily"`
	NotifyLimits         bool `json:"notify_limits"`

	CreatedAt time.Time `json:"created_at"` // UTC
}

type Client struct {
	ID             string      `json:"id"`
	UserID         null.String `json:"user_id"`
	ClientType     string      `json:"client_type"`
	Name           string      `json:"name"`
	FirstName      string      `json:"first_name,omitempty"`
	LastName       string      `json:"last_name,omitempty"`
	CompanyName    string      `json:"company_name,omitempty"`
	Phone          string      `json:"phone,omitempty"`
	Email          string      `json:"email,omitempty"`
	INN            string      `json:"inn,omitempty"`
	OrganizationID null.String `json:"organization_id"`
}

// OrganizationAccess grants a user a staff role within one organization.
type OrganizationAccess struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Role           string `json:"role"`
}

// PoolAccess grants a non-staff user (the client or their delegates)
// access to one pool.
type PoolAccess struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	PoolID string `json:"pool_id"`
	Role   string `json:"role"`
}

// NewOrganization contains information needed to register an Organization.
type NewOrganization struct {
	Name    string `json:"name" validate:"required"`
	INN     string `json:"inn"`
	City    string `json:"city"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
}

// NewClient contains information needed to create a Client.
type NewClient struct {
	ClientType     string `json:"client_type" validate:"required,oneof=private legal"`
	Name           string `json:"name" validate:"required"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	CompanyName    string `json:"company_name"`
	Phone          string `json:"phone"`
	Email          string `json:"email" validate:"omitempty,email"`
	INN            string `json:"inn"`
	OrganizationID string `json:"organization_id"`
}
