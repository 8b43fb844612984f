package notification

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/aquatrack/aquatrack/core"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		// GetNotificationByDedupeKey returns ErrNotFound when the user has no
		// notification under the key.
		GetNotificationByDedupeKey(ctx context.Context, userID, key string) (Notification, error)
		QueryNotificationsByUser(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error)
		MarkNotificationRead(ctx context.Context, id string) error
		MarkAllNotificationsRead(ctx context.Context, userID string) error
		MarkNotificationResolved(ctx context.Context, id string, at time.Time) error

		// recipient resolution; all restricted to active users
		QueryActiveUserIDs(ctx context.Context, userIDs []string) ([]string, error)
		QueryActiveSuperuserIDs(ctx context.Context) ([]string, error)
		QueryActiveOrganizationUserIDs(ctx context.Context, orgID string) ([]string, error)
		// QueryActiveClientUserIDs covers users granted access to the client
		// plus the client's own linked user.
		QueryActiveClientUserIDs(ctx context.Context, clientID string) ([]string, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NotifyUsers delivers the message to every active user in userIDs and
// returns the notifications actually created. A recipient who already holds
// a notification under the message's dedupe key is silently skipped.
func (svc *Service) NotifyUsers(ctx context.Context, userIDs []string, msg Message) ([]Notification, error) {
	active, err := svc.repo.QueryActiveUserIDs(ctx, userIDs)
	if err != nil {
		return nil, errors.Wrap(err, "resolving active users")
	}
	return svc.deliver(ctx, active, msg)
}

func (svc *Service) NotifySuperusers(ctx context.Context, msg Message) ([]Notification, error) {
	ids, err := svc.repo.QueryActiveSuperuserIDs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "resolving superusers")
	}
	return svc.deliver(ctx, ids, msg)
}

func (svc *Service) NotifyOrgUsers(ctx context.Context, orgID string, msg Message) ([]Notification, error) {
	ids, err := svc.repo.QueryActiveOrganizationUserIDs(ctx, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "resolving organization users")
	}
	return svc.deliver(ctx, ids, msg)
}

func (svc *Service) NotifyClientUsers(ctx context.Context, clientID string, msg Message) ([]Notification, error) {
	ids, err := svc.repo.QueryActiveClientUserIDs(ctx, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "resolving client users")
	}
	return svc.deliver(ctx, ids, msg)
}

func (svc *Service) deliver(ctx context.Context, userIDs []string, msg Message) ([]Notification, error) {
	var created []Notification
	for _, uid := range userIDs {
		if msg.DedupeKey != "" {
			_, err := svc.repo.GetNotificationByDedupeKey(ctx, uid, msg.DedupeKey)
			if err == nil {
				continue
			}
			if errors.Cause(err) != ErrNotFound {
				return nil, errors.Wrap(err, "checking dedupe key")
			}
		}
		n, err := svc.repo.CreateNotification(ctx, Notification{
			UserID:         uid,
			Title:          msg.Title,
			Message:        msg.Body,
			Kind:           msg.Kind,
			Level:          msg.Level,
			ActionURL:      msg.ActionURL,
			OrganizationID: msg.OrganizationID,
			ClientID:       msg.ClientID,
			PoolID:         msg.PoolID,
			DedupeKey:      msg.DedupeKey,
			CreatedAt:      time.Now().UTC(),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "creating notification for user %s", uid)
		}
		created = append(created, n)
	}
	return created, nil
}

func (svc *Service) QueryByUser(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	return svc.repo.QueryNotificationsByUser(ctx, userID, unreadOnly)
}

// MarkRead marks one of the user's own notifications as read.
func (svc *Service) MarkRead(ctx context.Context, userID, id string) error {
	n, err := svc.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return core.NewRequestError(core.ReasonForbidden, "notification belongs to another user")
	}
	return svc.repo.MarkNotificationRead(ctx, id)
}

func (svc *Service) MarkAllRead(ctx context.Context, userID string) error {
	return svc.repo.MarkAllNotificationsRead(ctx, userID)
}

// Resolve marks one of the user's own notifications as handled. Resolving an
// already-resolved notification keeps the original resolution time.
func (svc *Service) Resolve(ctx context.Context, userID, id string) error {
	n, err := svc.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return core.NewRequestError(core.ReasonForbidden, "notification belongs to another user")
	}
	if n.IsResolved {
		return nil
	}
	return svc.repo.MarkNotificationResolved(ctx, id, time.Now().UTC())
}
