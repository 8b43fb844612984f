package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core/notification"
)

type notificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if n.ID == "" {
		n.ID = repo.db.nextPK()
	}
	repo.db.notifs[n.ID] = &n
	return n, nil
}

func (repo *notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if n, ok := repo.db.notifs[id]; ok {
		return *n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) GetNotificationByDedupeKey(ctx context.Context, userID, key string) (notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, n := range repo.db.notifs {
		if n.UserID == userID && n.DedupeKey == key {
			return *n, nil
		}
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) QueryNotificationsByUser(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var notifs []notification.Notification
	for _, n := range repo.db.notifs {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		notifs = append(notifs, *n)
	}
	sort.Slice(notifs, func(i, j int) bool {
		if !notifs[i].CreatedAt.Equal(notifs[j].CreatedAt) {
			return notifs[i].CreatedAt.After(notifs[j].CreatedAt)
		}
		return notifs[i].ID < notifs[j].ID
	})
	return notifs, nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n, ok := repo.db.notifs[id]
	if !ok {
		return notification.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (repo *notificationRepository) MarkNotificationResolved(ctx context.Context, id string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n, ok := repo.db.notifs[id]
	if !ok {
		return notification.ErrNotFound
	}
	n.IsResolved = true
	n.ResolvedAt = null.TimeFrom(at)
	return nil
}

func (repo *notificationRepository) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, n := range repo.db.notifs {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (repo *notificationRepository) QueryActiveUserIDs(ctx context.Context, userIDs []string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ids []string
	for _, id := range userIDs {
		if u, ok := repo.db.users[id]; ok && u.IsActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (repo *notificationRepository) QueryActiveSuperuserIDs(ctx context.Context) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ids []string
	for _, u := range repo.db.users {
		if u.IsActive && u.IsSuperuser {
			ids = append(ids, u.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *notificationRepository) QueryActiveOrganizationUserIDs(ctx context.Context, orgID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, a := range repo.db.orgAccesses {
		if a.OrganizationID != orgID || seen[a.UserID] {
			continue
		}
		if u, ok := repo.db.users[a.UserID]; ok && u.IsActive {
			seen[a.UserID] = true
			ids = append(ids, a.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *notificationRepository) QueryActiveClientUserIDs(ctx context.Context, clientID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	clientPools := make(map[string]bool)
	for _, p := range repo.db.pools {
		if p.ClientID == clientID {
			clientPools[p.ID] = true
		}
	}

	seen := make(map[string]bool)
	var ids []string
	add := func(userID string) {
		if seen[userID] {
			return
		}
		if u, ok := repo.db.users[userID]; ok && u.IsActive {
			seen[userID] = true
			ids = append(ids, userID)
		}
	}
	for _, a := range repo.db.poolAccesses {
		if clientPools[a.PoolID] {
			add(a.UserID)
		}
	}
	if c, ok := repo.db.clients[clientID]; ok && c.UserID.Valid {
		add(c.UserID.String)
	}
	sort.Strings(ids)
	return ids, nil
}
