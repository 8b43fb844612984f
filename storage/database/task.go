package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core/task"
)

type taskRow struct {
	ID             string      `db:"id"`
	OrganizationID string      `db:"organization_id"`
	PoolID         null.String `db:"pool_id"`
	ClientID       null.String `db:"client_id"`
	Title          string      `db:"title"`
	Description    string      `db:"description"`
	Priority       string      `db:"priority"`
	StartDate      time.Time   `db:"start_date"`
	EndDate        null.Time   `db:"end_date"`
	StartTime      null.String `db:"start_time"`
	EndTime        null.String `db:"end_time"`
	CompletedAt    null.Time   `db:"completed_at"`
	CreatedByID    string      `db:"created_by_id"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func (r taskRow) model() task.ServiceTask {
	return task.ServiceTask{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		PoolID:         r.PoolID,
		ClientID:       r.ClientID,
		Title:          r.Title,
		Description:    r.Description,
		Priority:       r.Priority,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		CompletedAt:    r.CompletedAt,
		CreatedByID:    r.CreatedByID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func newTaskRow(t task.ServiceTask) taskRow {
	return taskRow{
		ID:             t.ID,
		OrganizationID: t.OrganizationID,
		PoolID:         t.PoolID,
		ClientID:       t.ClientID,
		Title:          t.Title,
		Description:    t.Description,
		Priority:       t.Priority,
		StartDate:      t.StartDate,
		EndDate:        t.EndDate,
		StartTime:      t.StartTime,
		EndTime:        t.EndTime,
		CompletedAt:    t.CompletedAt,
		CreatedByID:    t.CreatedByID,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

type taskChangeRow struct {
	ID        string    `db:"id"`
	TaskID    string    `db:"task_id"`
	UserID    string    `db:"user_id"`
	Field     string    `db:"field"`
	OldValue  string    `db:"old_value"`
	NewValue  string    `db:"new_value"`
	CreatedAt time.Time `db:"created_at"`
}

func (r taskChangeRow) model() task.Change {
	return task.Change(r)
}

type taskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) task.Repository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) CreateTask(ctx context.Context, t task.ServiceTask) (task.ServiceTask, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	q := `INSERT INTO service_task (id, organization_id, pool_id, client_id, title, description, priority,
			start_date, end_date, start_time, end_time, completed_at, created_by_id, created_at, updated_at)
		VALUES (:id, :organization_id, :pool_id, :client_id, :title, :description, :priority,
			:start_date, :end_date, :start_time, :end_time, :completed_at, :created_by_id, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, newTaskRow(t)); err != nil {
		return task.ServiceTask{}, errors.Wrap(err, "inserting task")
	}
	if err := repo.setResponsible(ctx, t.ID, t.ResponsibleIDs); err != nil {
		return task.ServiceTask{}, err
	}
	return t, nil
}

func (repo *taskRepository) GetTaskByID(ctx context.Context, id string) (task.ServiceTask, error) {
	var row taskRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM service_task WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return task.ServiceTask{}, task.ErrNotFound
	}
	if err != nil {
		return task.ServiceTask{}, errors.Wrap(err, "getting task")
	}
	t := row.model()
	if t.ResponsibleIDs, err = repo.responsibleIDs(ctx, t.ID); err != nil {
		return task.ServiceTask{}, err
	}
	return t, nil
}

func (repo *taskRepository) QueryTasksByOrganization(ctx context.Context, orgID string, from, to time.Time) ([]task.ServiceTask, error) {
	q := `SELECT * FROM service_task WHERE organization_id = $1
		AND start_date <= $3 AND COALESCE(end_date, start_date) >= $2
		ORDER BY start_date, id`
	var rows []taskRow
	if err := repo.db.SelectContext(ctx, &rows, q, orgID, from, to); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]task.ServiceTask, len(rows))
	for i, row := range rows {
		t := row.model()
		var err error
		if t.ResponsibleIDs, err = repo.responsibleIDs(ctx, t.ID); err != nil {
			return nil, err
		}
		tasks[i] = t
	}
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(ctx context.Context, t task.ServiceTask) (task.ServiceTask, error) {
	q := `UPDATE service_task SET pool_id = :pool_id, client_id = :client_id, title = :title,
		description = :description, priority = :priority, start_date = :start_date, end_date = :end_date,
		start_time = :start_time, end_time = :end_time, completed_at = :completed_at,
		updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newTaskRow(t))
	if err != nil {
		return task.ServiceTask{}, errors.Wrap(err, "updating task")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return task.ServiceTask{}, task.ErrNotFound
	}
	if err := repo.setResponsible(ctx, t.ID, t.ResponsibleIDs); err != nil {
		return task.ServiceTask{}, err
	}
	return t, nil
}

func (repo *taskRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM service_task WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting task")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (repo *taskRepository) CreateChange(ctx context.Context, c task.Change) (task.Change, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	q := `INSERT INTO service_task_change (id, task_id, user_id, field, old_value, new_value, created_at)
		VALUES (:id, :task_id, :user_id, :field, :old_value, :new_value, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, taskChangeRow(c)); err != nil {
		return task.Change{}, errors.Wrap(err, "inserting task change")
	}
	return c, nil
}

func (repo *taskRepository) QueryChangesByTask(ctx context.Context, taskID string) ([]task.Change, error) {
	var rows []taskChangeRow
	q := `SELECT * FROM service_task_change WHERE task_id = $1 ORDER BY created_at, id`
	if err := repo.db.SelectContext(ctx, &rows, q, taskID); err != nil {
		return nil, errors.Wrap(err, "querying task changes")
	}
	changes := make([]task.Change, len(rows))
	for i, row := range rows {
		changes[i] = row.model()
	}
	return changes, nil
}

func (repo *taskRepository) responsibleIDs(ctx context.Context, taskID string) ([]string, error) {
	var ids []string
	q := `SELECT user_id FROM service_task_responsible WHERE task_id = $1 ORDER BY user_id`
	if err := repo.db.SelectContext(ctx, &ids, q, taskID); err != nil {
		return nil, errors.Wrap(err, "querying task responsible")
	}
	return ids, nil
}

func (repo *taskRepository) setResponsible(ctx context.Context, taskID string, userIDs []string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM service_task_responsible WHERE task_id = $1`, taskID); err != nil {
		return errors.Wrap(err, "clearing task responsible")
	}
	for _, uid := range userIDs {
		q := `INSERT INTO service_task_responsible (task_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		if _, err := repo.db.ExecContext(ctx, q, taskID, uid); err != nil {
			return errors.Wrap(err, "setting task responsible")
		}
	}
	return nil
}
