package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/elimu/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	defer repo.db.lock(ctx)()
	repo.db.notifications[n.ID] = n
	return n, nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	defer repo.db.lock(ctx)()
	if n, ok := repo.db.notifications[id]; ok {
		return n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) ListNotifications(ctx context.Context, userID string) ([]notification.Notification, error) {
	defer repo.db.lock(ctx)()
	list := make([]notification.Notification, 0)
	for _, n := range repo.db.notifications {
		if n.UserID == userID {
			list = append(list, n)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()
	n, ok := repo.db.notifications[id]
	if !ok {
		return notification.ErrNotFound
	}
	n.IsRead = true
	repo.db.notifications[id] = n
	return nil
}

func (repo *notificationRepository) CreateEmailLog(ctx context.Context, l notification.EmailLog) (notification.EmailLog, error) {
	defer repo.db.lock(ctx)()
	repo.db.emailLogs[l.ID] = l
	return l, nil
}

func (repo *notificationRepository) ListEmailLogs(ctx context.Context) ([]notification.EmailLog, error) {
	defer repo.db.lock(ctx)()
	list := make([]notification.EmailLog, 0, len(repo.db.emailLogs))
	for _, l := range repo.db.emailLogs {
		list = append(list, l)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}
