package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/notification"
)

const (
	notificationColumns = `id, user_id, message, notification_type, is_read, created_at`
	emailLogColumns     = `id, user_id, subject, body, created_at`
)

type notificationRepository struct {
	repo
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{repo{db: db}}
}

func (r *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	q := `INSERT INTO notifications (` + notificationColumns + `)
		VALUES (:id, :user_id, :message, :notification_type, :is_read, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(ctx), q, n); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (r *notificationRepository) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	if !validID(id) {
		return notification.Notification{}, notification.ErrNotFound
	}
	var n notification.Notification
	if err := r.exec(ctx).GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id); err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "getting notification")
	}
	return n, nil
}

func (r *notificationRepository) ListNotifications(ctx context.Context, userID string) ([]notification.Notification, error) {
	list := make([]notification.Notification, 0)
	if !validID(userID) {
		return list, nil
	}
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC, id`
	if err := r.exec(ctx).SelectContext(ctx, &list, q, userID); err != nil {
		return nil, errors.Wrap(err, "listing notifications")
	}
	return list, nil
}

func (r *notificationRepository) MarkNotificationRead(ctx context.Context, id string) error {
	if !validID(id) {
		return notification.ErrNotFound
	}
	res, err := r.exec(ctx).ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) CreateEmailLog(ctx context.Context, l notification.EmailLog) (notification.EmailLog, error) {
	q := `INSERT INTO email_logs (` + emailLogColumns + `) VALUES (:id, :user_id, :subject, :body, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(ctx), q, l); err != nil {
		return notification.EmailLog{}, errors.Wrap(err, "inserting email log")
	}
	return l, nil
}

func (r *notificationRepository) ListEmailLogs(ctx context.Context) ([]notification.EmailLog, error) {
	list := make([]notification.EmailLog, 0)
	q := `SELECT ` + emailLogColumns + ` FROM email_logs ORDER BY created_at DESC, id`
	if err := r.exec(ctx).SelectContext(ctx, &list, q); err != nil {
		return nil, errors.Wrap(err, "listing email logs")
	}
	return list, nil
}
