package task

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core"
)

// Task statuses, derived, never stored. Same vocabulary as visit events.
const (
	StatusPlanned = "planned"
	StatusOverdue = "overdue"
	StatusDone    = "done"
)

// Task priorities
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

type (
	// ServiceTask is a one-off piece of work on the calendar, next to the
	// recurring visit schedule: equipment repair, chemicals delivery,
	// season opening. It may span several days and may be tied to a pool
	// or a client, or to neither.
	ServiceTask struct {
		ID             string      `json:"id"`
		OrganizationID string      `json:"organization_id"`
		PoolID         null.String `json:"pool_id"`
		ClientID       null.String `json:"client_id"`
		Title          string      `json:"title"`
		Description    string      `json:"description"`
		Priority       string      `json:"priority"`
		StartDate      time.Time   `json:"start_date"`
		EndDate        null.Time   `json:"end_date"`
		StartTime      null.String `json:"start_time"` // "15:04", optional
		EndTime        null.String `json:"end_time"`
		CompletedAt    null.Time   `json:"completed_at"`
		CreatedByID    string      `json:"created_by_id"`
		ResponsibleIDs []string    `json:"responsible_ids"`
		CreatedAt      time.Time   `json:"created_at"`
		UpdatedAt      time.Time   `json:"updated_at"`
	}

	// Change is one append-only audit record of a field edit.
	Change struct {
		ID        string    `json:"id"`
		TaskID    string    `json:"task_id"`
		UserID    string    `json:"user_id"`
		Field     string    `json:"field"`
		OldValue  string    `json:"old_value"`
		NewValue  string    `json:"new_value"`
		CreatedAt time.Time `json:"created_at"`
	}

	NewTask struct {
		OrganizationID string      `json:"organization_id" validate:"required"`
		PoolID         null.String `json:"pool_id"`
		ClientID       null.String `json:"client_id"`
		Title          string      `json:"title" validate:"required"`
		Description    string      `json:"description"`
		Priority       string      `json:"priority" validate:"omitempty,oneof=low normal high"`
		StartDate      time.Time   `json:"start_date" validate:"required"`
		EndDate        null.Time   `json:"end_date"`
		StartTime      null.String `json:"start_time" validate:"omitempty,datetime=15:04"`
		EndTime        null.String `json:"end_time" validate:"omitempty,datetime=15:04"`
		ResponsibleIDs []string    `json:"responsible_ids"`
	}

	UpdateTask struct {
		Title          *string      `json:"title" validate:"omitempty,min=1"`
		Description    *string      `json:"description"`
		Priority       *string      `json:"priority" validate:"omitempty,oneof=low normal high"`
		StartDate      *time.Time   `json:"start_date"`
		EndDate        *null.Time   `json:"end_date"`
		StartTime      *null.String `json:"start_time" validate:"omitempty,datetime=15:04"`
		EndTime        *null.String `json:"end_time" validate:"omitempty,datetime=15:04"`
		PoolID         *null.String `json:"pool_id"`
		ResponsibleIDs *[]string    `json:"responsible_ids"`
	}
)

// Status derives the task's calendar status for the given day.
func (t ServiceTask) Status(today time.Time) string {
	if t.CompletedAt.Valid {
		return StatusDone
	}
	end := t.StartDate
	if t.EndDate.Valid {
		end = t.EndDate.Time
	}
	if end.Before(today) {
		return StatusOverdue
	}
	return StatusPlanned
}

// LastDate is the final day a task occupies on the calendar.
func (t ServiceTask) LastDate() time.Time {
	if t.EndDate.Valid {
		return t.EndDate.Time
	}
	return t.StartDate
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	if nt.Priority == "" {
		nt.Priority = PriorityNormal
	}
	if err := validate.Struct(nt); err != nil {
		return err
	}
	if nt.EndDate.Valid && nt.EndDate.Time.Before(nt.StartDate) {
		return core.NewValidationError(
			errors.New("end date cannot precede start date"),
			core.FieldError{Field: "end_date", Error: "end date cannot precede start date"},
		)
	}
	return nil
}

func (ut *UpdateTask) Validate(validate *validator.Validate) error {
	if ut.Title != nil {
		*ut.Title = core.CleanString(*ut.Title)
	}
	if ut.Description != nil {
		*ut.Description = core.CleanString(*ut.Description)
	}
	return validate.Struct(ut)
}
