package task

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core"
)

var (
	// errors
	ErrNotFound = errors.New("task not found")
)

type (
	Repository interface {
		CreateTask(ctx context.Context, t ServiceTask) (ServiceTask, error)
		GetTaskByID(ctx context.Context, id string) (ServiceTask, error)
		QueryTasksByOrganization(ctx context.Context, orgID string, from, to time.Time) ([]ServiceTask, error)
		UpdateTask(ctx context.Context, t ServiceTask) (ServiceTask, error)
		DeleteTask(ctx context.Context, id string) error

		CreateChange(ctx context.Context, c Change) (Change, error)
		QueryChangesByTask(ctx context.Context, taskID string) ([]Change, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores the task and opens its audit trail with a creation record,
// plus the initial responsible list when one is assigned.
func (svc *Service) Create(ctx context.Context, actorID string, nt NewTask) (ServiceTask, error) {
	now := time.Now().UTC()
	t := ServiceTask{
		OrganizationID: nt.OrganizationID,
		PoolID:         nt.PoolID,
		ClientID:       nt.ClientID,
		Title:          nt.Title,
		Description:    nt.Description,
		Priority:       nt.Priority,
		StartDate:      nt.StartDate,
		EndDate:        nt.EndDate,
		StartTime:      nt.StartTime,
		EndTime:        nt.EndTime,
		ResponsibleIDs: nt.ResponsibleIDs,
		CreatedByID:    actorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	t, err := svc.repo.CreateTask(ctx, t)
	if err != nil {
		return ServiceTask{}, err
	}

	changes := []Change{{TaskID: t.ID, UserID: actorID, Field: "created", NewValue: t.Title}}
	if len(t.ResponsibleIDs) > 0 {
		changes = append(changes, Change{TaskID: t.ID, UserID: actorID, Field: "responsible", NewValue: fmtIDs(t.ResponsibleIDs)})
	}
	for _, c := range changes {
		if _, err = svc.repo.CreateChange(ctx, c); err != nil {
			return ServiceTask{}, err
		}
	}
	return t, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (ServiceTask, error) {
	return svc.repo.GetTaskByID(ctx, id)
}

func (svc *Service) QueryByOrganization(ctx context.Context, orgID string, from, to time.Time) ([]ServiceTask, error) {
	return svc.repo.QueryTasksByOrganization(ctx, orgID, from, to)
}

func (svc *Service) Changes(ctx context.Context, taskID string) ([]Change, error) {
	return svc.repo.QueryChangesByTask(ctx, taskID)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteTask(ctx, id)
}

// Update applies the provided fields and appends one audit record per field
// that actually changed.
func (svc *Service) Update(ctx context.Context, actorID, id string, ut UpdateTask) (ServiceTask, error) {
	t, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return ServiceTask{}, err
	}

	var changes []Change
	record := func(field, oldVal, newVal string) {
		if oldVal == newVal {
			return
		}
		changes = append(changes, Change{TaskID: t.ID, UserID: actorID, Field: field, OldValue: oldVal, NewValue: newVal})
	}

	if ut.Title != nil {
		record("title", t.Title, *ut.Title)
		t.Title = *ut.Title
	}
	if ut.Description != nil {
		record("description", t.Description, *ut.Description)
		t.Description = *ut.Description
	}
	if ut.Priority != nil {
		record("priority", t.Priority, *ut.Priority)
		t.Priority = *ut.Priority
	}
	if ut.StartDate != nil {
		record("start_date", fmtDate(t.StartDate), fmtDate(*ut.StartDate))
		t.StartDate = *ut.StartDate
	}
	if ut.EndDate != nil {
		record("end_date", fmtNullDate(t.EndDate), fmtNullDate(*ut.EndDate))
		t.EndDate = *ut.EndDate
	}
	if ut.StartTime != nil {
		record("start_time", t.StartTime.String, ut.StartTime.String)
		t.StartTime = *ut.StartTime
	}
	if ut.EndTime != nil {
		record("end_time", t.EndTime.String, ut.EndTime.String)
		t.EndTime = *ut.EndTime
	}
	if ut.PoolID != nil {
		record("pool", t.PoolID.String, ut.PoolID.String)
		t.PoolID = *ut.PoolID
	}
	if ut.ResponsibleIDs != nil {
		record("responsible", fmtIDs(t.ResponsibleIDs), fmtIDs(*ut.ResponsibleIDs))
		t.ResponsibleIDs = *ut.ResponsibleIDs
	}

	if len(changes) == 0 {
		return t, nil
	}
	if t.EndDate.Valid && t.EndDate.Time.Before(t.StartDate) {
		return ServiceTask{}, core.NewValidationError(
			errors.New("end date cannot precede start date"),
			core.FieldError{Field: "end_date", Error: "end date cannot precede start date"},
		)
	}

	t.UpdatedAt = time.Now().UTC()
	t, err = svc.repo.UpdateTask(ctx, t)
	if err != nil {
		return ServiceTask{}, err
	}
	for _, c := range changes {
		if _, err = svc.repo.CreateChange(ctx, c); err != nil {
			return ServiceTask{}, err
		}
	}
	return t, nil
}

// Complete marks the task done. Completing an already-completed task is a
// no-op success.
func (svc *Service) Complete(ctx context.Context, actorID, id string) (ServiceTask, error) {
	t, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return ServiceTask{}, err
	}
	if t.CompletedAt.Valid {
		return t, nil
	}
	now := time.Now().UTC()
	t.CompletedAt = null.TimeFrom(now)
	t.UpdatedAt = now
	t, err = svc.repo.UpdateTask(ctx, t)
	if err != nil {
		return ServiceTask{}, err
	}
	_, err = svc.repo.CreateChange(ctx, Change{TaskID: t.ID, UserID: actorID, Field: "completed", OldValue: "false", NewValue: "true"})
	return t, err
}

func (svc *Service) Reopen(ctx context.Context, actorID, id string) (ServiceTask, error) {
	t, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return ServiceTask{}, err
	}
	if !t.CompletedAt.Valid {
		return t, nil
	}
	t.CompletedAt = null.Time{}
	t.UpdatedAt = time.Now().UTC()
	t, err = svc.repo.UpdateTask(ctx, t)
	if err != nil {
		return ServiceTask{}, err
	}
	_, err = svc.repo.CreateChange(ctx, Change{TaskID: t.ID, UserID: actorID, Field: "completed", OldValue: "true", NewValue: "false"})
	return t, err
}

// Move shifts the whole task by the drag delta: the difference between the
// day the tile was grabbed on and the day it was dropped on, applied to both
// start and end dates. Completed tasks stay where they are.
func (svc *Service) Move(ctx context.Context, actorID, id string, sourceDate, targetDate time.Time) (ServiceTask, error) {
	t, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return ServiceTask{}, err
	}
	if t.CompletedAt.Valid {
		return ServiceTask{}, core.NewRequestError(core.ReasonConflict, "completed tasks cannot be moved")
	}

	delta := int(dateOnly(targetDate).Sub(dateOnly(sourceDate)).Hours() / 24)
	if delta == 0 {
		return t, nil
	}

	oldStart, oldEnd := t.StartDate, t.EndDate
	t.StartDate = t.StartDate.AddDate(0, 0, delta)
	if t.EndDate.Valid {
		t.EndDate = null.TimeFrom(t.EndDate.Time.AddDate(0, 0, delta))
	}
	t.UpdatedAt = time.Now().UTC()
	t, err = svc.repo.UpdateTask(ctx, t)
	if err != nil {
		return ServiceTask{}, err
	}

	changes := []Change{{TaskID: t.ID, UserID: actorID, Field: "start_date", OldValue: fmtDate(oldStart), NewValue: fmtDate(t.StartDate)}}
	if oldEnd.Valid {
		changes = append(changes, Change{TaskID: t.ID, UserID: actorID, Field: "end_date", OldValue: fmtNullDate(oldEnd), NewValue: fmtNullDate(t.EndDate)})
	}
	for _, c := range changes {
		if _, err = svc.repo.CreateChange(ctx, c); err != nil {
			return ServiceTask{}, err
		}
	}
	return t, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func fmtDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func fmtNullDate(t null.Time) string {
	if !t.Valid {
		return ""
	}
	return fmtDate(t.Time)
}

func fmtIDs(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
