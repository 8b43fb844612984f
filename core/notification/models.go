package notification

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Notification kinds
const (
	KindMissedVisit  = "missed_visit"
	KindDailyMissing = "daily_missing"
	KindLimits       = "limits"
)

// Notification levels
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// Notification is one in-app message for one user. DedupeKey, when set,
// makes delivery idempotent: at most one row per (user, key) ever exists.
type Notification struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Title          string      `json:"title"`
	Message        string      `json:"message"`
	Kind           string      `json:"kind"`
	Level          string      `json:"level"`
	ActionURL      string      `json:"action_url"`
	OrganizationID null.String `json:"organization_id"`
	ClientID       null.String `json:"client_id"`
	PoolID         null.String `json:"pool_id"`
	DedupeKey      string      `json:"dedupe_key"`
	IsRead         bool        `json:"is_read"`
	IsResolved     bool        `json:"is_resolved"`
	ResolvedAt     null.Time   `json:"resolved_at"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Message is the per-recipient payload of one notify call.
type Message struct {
	Title          string
	Body           string
	Kind           string
	Level          string
	ActionURL      string
	OrganizationID null.String
	ClientID       null.String
	PoolID         null.String
	DedupeKey      string
}
