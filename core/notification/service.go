package notification

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

var ErrNotFound = core.NewNotFoundError("notification not found")

const maxConcurrent = 16

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		GetNotification(ctx context.Context, id string) (Notification, error)
		ListNotifications(ctx context.Context, userID string) ([]Notification, error)
		MarkNotificationRead(ctx context.Context, id string) error
		CreateEmailLog(ctx context.Context, l EmailLog) (EmailLog, error)
		ListEmailLogs(ctx context.Context) ([]EmailLog, error)
	}

	// Publisher pushes a stored notification to live subscribers of its user.
	Publisher interface {
		Publish(ctx context.Context, n Notification) error
	}

	UserLookup interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	// Notifier is what the domain services use to emit side effects. Delivery is best-effort:
	// failures are logged and never reported to the caller.
	Notifier interface {
		Notify(ctx context.Context, userID, message string, typ Type)
		NotifyAll(ctx context.Context, typ Type, recipients ...Recipient)
		SendEmail(ctx context.Context, userID string, typ Type, subject, body string)
	}

	// Recipient pairs a user with the message addressed to them.
	Recipient struct {
		UserID  string
		Message string
	}

	Dispatcher struct {
		repo      Repository
		users     UserLookup
		mailer    core.EmailService
		publisher Publisher
		logger    core.Logger
		metrics   core.Metrics
	}
)

var _ Notifier = (*Dispatcher)(nil)

// NewDispatcher returns a Dispatcher. publisher may be nil.
func NewDispatcher(
	repo Repository,
	users UserLookup,
	mailer core.EmailService,
	publisher Publisher,
	logger core.Logger,
	metrics core.Metrics,
) *Dispatcher {
	if metrics == nil {
		metrics = core.NopMetrics{}
	}
	return &Dispatcher{
		repo:      repo,
		users:     users,
		mailer:    mailer,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, userID, message string, typ Type) {
	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Type:      typ,
		CreatedAt: time.Now().UTC(),
	}
	n, err := d.repo.CreateNotification(ctx, n)
	if err != nil {
		d.metrics.NotificationDispatched(string(typ), false)
		d.logger.Error(fmt.Sprintf("notifying user %s", userID), errors.Wrap(err, "creating notification"))
		return
	}
	d.metrics.NotificationDispatched(string(typ), true)

	if d.publisher != nil {
		if err = d.publisher.Publish(ctx, n); err != nil {
			d.logger.Warn(fmt.Sprintf("publishing notification %s", n.ID), err)
		}
	}
}

// NotifyAll notifies every recipient concurrently and returns once all are done.
func (d *Dispatcher) NotifyAll(ctx context.Context, typ Type, recipients ...Recipient) {
	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)
	for _, r := range recipients {
		r := r
		eg.Go(func() error {
			d.Notify(ctx, r.UserID, r.Message, typ)
			return nil
		})
	}
	_ = eg.Wait()
}

// SendEmail records an EmailLog for userID and mails it when the user has an address.
func (d *Dispatcher) SendEmail(ctx context.Context, userID string, typ Type, subject, body string) {
	usr, err := d.users.GetByID(ctx, userID)
	if err != nil {
		d.logger.Error(fmt.Sprintf("emailing user %s", userID), err)
		return
	}
	args := map[string]string{"user_id": userID}
	entry, err := d.repo.CreateEmailLog(ctx, EmailLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		d.logger.Error(fmt.Sprintf("logging email to user %s", userID), err)
	} else {
		args["email_log_id"] = entry.ID
	}
	if usr.Email == "" {
		return
	}
	d.mailer.SendMessages(&core.EmailMessage{
		To:       []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:  subject,
		BodyStr:  body,
		Category: strings.ToLower(string(typ)),
		Args:     args,
	})
}

// ListForUser returns the principal's own notifications, newest first.
func (d *Dispatcher) ListForUser(ctx context.Context, principal user.Principal) ([]Notification, error) {
	if !principal.IsAuthenticated() {
		return nil, core.ErrPermissionDenied
	}
	return d.repo.ListNotifications(ctx, principal.UserID)
}

// MarkRead flags a notification owned by principal as read.
func (d *Dispatcher) MarkRead(ctx context.Context, principal user.Principal, id string) (Notification, error) {
	n, err := d.repo.GetNotification(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if n.UserID != principal.UserID || !principal.IsAuthenticated() {
		// hide other users' notifications
		return Notification{}, ErrNotFound
	}
	if !n.IsRead {
		if err = d.repo.MarkNotificationRead(ctx, id); err != nil {
			return Notification{}, err
		}
		n.IsRead = true
	}
	return n, nil
}

func (d *Dispatcher) ListEmailLogs(ctx context.Context, principal user.Principal) ([]EmailLog, error) {
	if !principal.IsAdmin() {
		return nil, core.ErrPermissionDenied
	}
	return d.repo.ListEmailLogs(ctx)
}
