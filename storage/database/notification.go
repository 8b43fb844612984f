package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core/notification"
)

type notificationRow struct {
	ID             string      `db:"id"`
	UserID         string      `db:"user_id"`
	Title          string      `db:"title"`
	Message        string      `db:"message"`
	Kind           string      `db:"kind"`
	Level          string      `db:"level"`
	ActionURL      string      `db:"action_url"`
	OrganizationID null.String `db:"organization_id"`
	ClientID       null.String `db:"client_id"`
	PoolID         null.String `db:"pool_id"`
	DedupeKey      string      `db:"dedupe_key"`
	IsRead         bool        `db:"is_read"`
	IsResolved     bool        `db:"is_resolved"`
	ResolvedAt     null.Time   `db:"resolved_at"`
	CreatedAt      time.Time   `db:"created_at"`
}

func (r notificationRow) model() notification.Notification {
	return notification.Notification(r)
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

// CreateNotification inserts the notification, with the partial unique index
// on (user_id, dedupe_key) making keyed deliveries idempotent: a concurrent
// rerun that loses the race lands on the existing row instead of erroring.
func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	q := `INSERT INTO notification (id, user_id, title, message, kind, level, action_url,
			organization_id, client_id, pool_id, dedupe_key, is_read, is_resolved, resolved_at, created_at)
		VALUES (:id, :user_id, :title, :message, :kind, :level, :action_url,
			:organization_id, :client_id, :pool_id, :dedupe_key, :is_read, :is_resolved, :resolved_at, :created_at)
		ON CONFLICT (user_id, dedupe_key) WHERE dedupe_key <> '' DO NOTHING`
	res, err := repo.db.NamedExecContext(ctx, q, notificationRow(n))
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repo.GetNotificationByDedupeKey(ctx, n.UserID, n.DedupeKey)
	}
	return n, nil
}

func (repo *notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	var row notificationRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM notification WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return notification.Notification{}, notification.ErrNotFound
	}
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "getting notification")
	}
	return row.model(), nil
}

func (repo *notificationRepository) GetNotificationByDedupeKey(ctx context.Context, userID, key string) (notification.Notification, error) {
	var row notificationRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM notification WHERE user_id = $1 AND dedupe_key = $2`, userID, key)
	if err == sql.ErrNoRows {
		return notification.Notification{}, notification.ErrNotFound
	}
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "getting notification by dedupe key")
	}
	return row.model(), nil
}

func (repo *notificationRepository) QueryNotificationsByUser(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	q := `SELECT * FROM notification WHERE user_id = $1`
	if unreadOnly {
		q += ` AND NOT is_read`
	}
	q += ` ORDER BY created_at DESC, id`
	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, len(rows))
	for i, row := range rows {
		notifs[i] = row.model()
	}
	return notifs, nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE notification SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (repo *notificationRepository) MarkNotificationResolved(ctx context.Context, id string, at time.Time) error {
	q := `UPDATE notification SET is_resolved = true, resolved_at = $2 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return errors.Wrap(err, "marking notification resolved")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (repo *notificationRepository) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE notification SET is_read = true WHERE user_id = $1 AND NOT is_read`, userID)
	return errors.Wrap(err, "marking notifications read")
}

func (repo *notificationRepository) QueryActiveUserIDs(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`SELECT id FROM "user" WHERE is_active AND id IN (?)`, userIDs)
	if err != nil {
		return nil, errors.Wrap(err, "building active users query")
	}
	var ids []string
	if err := repo.db.SelectContext(ctx, &ids, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying active users")
	}
	return ids, nil
}

func (repo *notificationRepository) QueryActiveSuperuserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := repo.db.SelectContext(ctx, &ids, `SELECT id FROM "user" WHERE is_active AND is_superuser`); err != nil {
		return nil, errors.Wrap(err, "querying superusers")
	}
	return ids, nil
}

func (repo *notificationRepository) QueryActiveOrganizationUserIDs(ctx context.Context, orgID string) ([]string, error) {
	q := `SELECT DISTINCT u.id FROM "user" u
		JOIN organization_access oa ON oa.user_id = u.id
		WHERE u.is_active AND oa.organization_id = $1`
	var ids []string
	if err := repo.db.SelectContext(ctx, &ids, q, orgID); err != nil {
		return nil, errors.Wrap(err, "querying organization users")
	}
	return ids, nil
}

func (repo *notificationRepository) QueryActiveClientUserIDs(ctx context.Context, clientID string) ([]string, error) {
	// delegates with pool access to any of the client's pools, plus the
	// client's own linked user
	q := `SELECT DISTINCT u.id FROM "user" u
		JOIN pool_access pa ON pa.user_id = u.id
		JOIN pool p ON p.id = pa.pool_id
		WHERE u.is_active AND p.client_id = $1
		UNION
		SELECT u.id FROM "user" u
		JOIN client c ON c.user_id = u.id
		WHERE u.is_active AND c.id = $1`
	var ids []string
	if err := repo.db.SelectContext(ctx, &ids, q, clientID); err != nil {
		return nil, errors.Wrap(err, "querying client users")
	}
	return ids, nil
}
