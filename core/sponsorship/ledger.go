package sponsorship

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/notification"
	"github.com/trezcool/elimu/core/user"
)

var (
	// errors
	ErrSponsorNotFound     = core.NewNotFoundError("sponsor not found")
	ErrNotFound            = core.NewNotFoundError("sponsorship not found")
	ErrInsufficientFunds   = core.NewInsufficientFundsError("insufficient funds in sponsor account")
	ErrAlreadyDecided      = core.NewInvalidStateError("sponsorship has already been decided")
	ErrSponsorExists       = core.NewInvalidStateError("user already has a sponsor account")
	ErrNoSponsorAccount    = core.NewPermissionError("user has no sponsor account")
	ErrNotSponsorsDecision = core.NewPermissionError("only the requested sponsor can decide on this sponsorship")
)

type (
	Repository interface {
		CreateSponsor(ctx context.Context, s Sponsor) (Sponsor, error)
		GetSponsor(ctx context.Context, id string) (Sponsor, error)
		GetSponsorByUser(ctx context.Context, userID string) (Sponsor, error)
		// DebitSponsor subtracts amount from the sponsor's balance in a single atomic step, only if the balance
		// covers it. Returns ErrInsufficientFunds otherwise, ErrSponsorNotFound if the sponsor does not exist.
		DebitSponsor(ctx context.Context, sponsorID string, amount decimal.Decimal) error

		CreateSponsorship(ctx context.Context, s Sponsorship) (Sponsorship, error)
		GetSponsorship(ctx context.Context, id string) (Sponsorship, error)
		// DecidePending sets status and amount of a sponsorship that is still pending.
		// Returns ErrAlreadyDecided when it no longer is, ErrNotFound if it does not exist.
		DecidePending(ctx context.Context, id string, status Status, amount decimal.Decimal, at time.Time) (Sponsorship, error)
		QuerySponsorships(ctx context.Context, filter QueryFilter) ([]Sponsorship, error)
	}

	UserLookup interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	// Ledger owns every write to sponsor balances and the sponsorship lifecycle.
	Ledger struct {
		repo     Repository
		tx       core.Transactor
		users    UserLookup
		notifier notification.Notifier
		validate *validator.Validate
		metrics  core.Metrics
	}
)

func NewLedger(
	repo Repository,
	tx core.Transactor,
	users UserLookup,
	notifier notification.Notifier,
	validate *validator.Validate,
	metrics core.Metrics,
) *Ledger {
	if metrics == nil {
		metrics = core.NopMetrics{}
	}
	return &Ledger{
		repo:     repo,
		tx:       tx,
		users:    users,
		notifier: notifier,
		validate: validate,
		metrics:  metrics,
	}
}

// userWithRole loads the user id and checks it resolves to role. field names the input on failure.
func (l *Ledger) userWithRole(ctx context.Context, id string, role user.Role, field, msg string) (user.User, error) {
	usr, err := l.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, core.NewFieldError(field, msg)
		}
		return user.User{}, err
	}
	if usr.Principal().Role != role {
		return user.User{}, core.NewFieldError(field, msg)
	}
	return usr, nil
}

// CreateSponsor opens the sponsor account of a user in the sponsor group. Admin only.
// The opening balance is the only way funds enter the ledger.
func (l *Ledger) CreateSponsor(ctx context.Context, principal user.Principal, ns NewSponsor) (Sponsor, error) {
	if !principal.IsAdmin() {
		return Sponsor{}, core.ErrPermissionDenied
	}
	ns.CompanyName = core.CleanString(ns.CompanyName)
	if err := l.validate.Struct(ns); err != nil {
		return Sponsor{}, err
	}
	if _, err := l.userWithRole(ctx, ns.UserID, user.RoleSponsor, "user", "the selected user is not a sponsor"); err != nil {
		return Sponsor{}, err
	}

	switch _, err := l.repo.GetSponsorByUser(ctx, ns.UserID); {
	case err == nil:
		return Sponsor{}, ErrSponsorExists
	case !errors.Is(err, ErrSponsorNotFound):
		return Sponsor{}, err
	}

	return l.repo.CreateSponsor(ctx, Sponsor{
		ID:            uuid.NewString(),
		UserID:        ns.UserID,
		CompanyName:   ns.CompanyName,
		FundsProvided: ns.FundsProvided,
		CreatedAt:     time.Now().UTC(),
	})
}

// Apply records a pending request of the acting student to a sponsor. No funds move.
func (l *Ledger) Apply(ctx context.Context, principal user.Principal, app Application) (Sponsorship, error) {
	if !principal.IsStudent() {
		return Sponsorship{}, core.NewPermissionError("only students can apply for a sponsorship")
	}
	if err := l.validate.Struct(app); err != nil {
		return Sponsorship{}, err
	}
	sponsor, err := l.repo.GetSponsor(ctx, app.SponsorID)
	if err != nil {
		if errors.Is(err, ErrSponsorNotFound) {
			return Sponsorship{}, core.NewFieldError("sponsor", "the selected sponsor does not exist")
		}
		return Sponsorship{}, err
	}
	if _, err = l.userWithRole(ctx, sponsor.UserID, user.RoleSponsor, "sponsor", "the selected user is not a sponsor"); err != nil {
		return Sponsorship{}, err
	}

	now := time.Now().UTC()
	s, err := l.repo.CreateSponsorship(ctx, Sponsorship{
		ID:          uuid.NewString(),
		SponsorID:   sponsor.ID,
		StudentID:   principal.UserID,
		Amount:      app.Amount,
		Status:      StatusPending,
		Utilization: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Sponsorship{}, err
	}

	l.notifier.NotifyAll(ctx, notification.TypeSponsorship,
		notification.Recipient{
			UserID:  principal.UserID,
			Message: fmt.Sprintf("Your sponsorship application to %s is pending review.", sponsor.CompanyName),
		},
		notification.Recipient{
			UserID:  sponsor.UserID,
			Message: fmt.Sprintf("New sponsorship request from %s for amount %s.", principal.DisplayName(), formatAmount(s.Amount)),
		},
	)
	return s, nil
}

// Fund grants amount from the acting sponsor to a student: the balance is debited and an approved
// sponsorship created in one transaction.
func (l *Ledger) Fund(ctx context.Context, principal user.Principal, f Funding) (Sponsorship, error) {
	if !principal.IsSponsor() {
		return Sponsorship{}, core.NewPermissionError("only sponsors can fund a sponsorship")
	}
	if err := l.validate.Struct(f); err != nil {
		return Sponsorship{}, err
	}
	sponsor, err := l.sponsorOf(ctx, principal)
	if err != nil {
		return Sponsorship{}, err
	}
	if _, err = l.userWithRole(ctx, f.StudentID, user.RoleStudent, "student", "the selected user is not a student"); err != nil {
		return Sponsorship{}, err
	}

	var s Sponsorship
	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := l.repo.DebitSponsor(ctx, sponsor.ID, f.Amount); err != nil {
			return err
		}
		now := time.Now().UTC()
		var err error
		s, err = l.repo.CreateSponsorship(ctx, Sponsorship{
			ID:          uuid.NewString(),
			SponsorID:   sponsor.ID,
			StudentID:   f.StudentID,
			Amount:      f.Amount,
			Status:      StatusApproved,
			Utilization: decimal.Zero,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		return err
	})
	if err != nil {
		return Sponsorship{}, err
	}

	l.metrics.FundsDebited(s.Amount)
	l.metrics.SponsorshipDecided(string(s.Status))
	l.notifier.Notify(ctx, s.StudentID,
		fmt.Sprintf("Your sponsorship request has been approved for %s.", formatAmount(s.Amount)),
		notification.TypeSponsorship)
	return s, nil
}

// Approve accepts a pending sponsorship addressed to the acting sponsor. A non-nil amount overrides the
// requested amount; it may lower the request but never raise it. The balance must cover the final amount.
func (l *Ledger) Approve(ctx context.Context, principal user.Principal, id string, amount *decimal.Decimal) (Sponsorship, error) {
	return l.Decide(ctx, principal, id, Decision{Status: StatusApproved, Amount: amount})
}

// Reject declines a pending sponsorship addressed to the acting sponsor. No funds move.
func (l *Ledger) Reject(ctx context.Context, principal user.Principal, id string) (Sponsorship, error) {
	return l.Decide(ctx, principal, id, Decision{Status: StatusRejected})
}

// Decide applies a Decision coming from the API.
func (l *Ledger) Decide(ctx context.Context, principal user.Principal, id string, d Decision) (Sponsorship, error) {
	if err := l.validate.Struct(d); err != nil {
		return Sponsorship{}, err
	}
	return l.decide(ctx, principal, id, d)
}

func (l *Ledger) decide(ctx context.Context, principal user.Principal, id string, d Decision) (Sponsorship, error) {
	if !principal.IsSponsor() {
		return Sponsorship{}, ErrNotSponsorsDecision
	}
	sponsor, err := l.sponsorOf(ctx, principal)
	if err != nil {
		return Sponsorship{}, err
	}
	s, err := l.repo.GetSponsorship(ctx, id)
	if err != nil {
		return Sponsorship{}, err
	}
	if s.SponsorID != sponsor.ID {
		return Sponsorship{}, ErrNotSponsorsDecision
	}
	if s.Status.IsTerminal() {
		return Sponsorship{}, ErrAlreadyDecided
	}

	amount := s.Amount
	if d.Status == StatusApproved && d.Amount != nil {
		if d.Amount.GreaterThan(s.Amount) {
			return Sponsorship{}, core.NewFieldError("amount", "amount cannot exceed the requested amount")
		}
		amount = *d.Amount
	}

	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		// status guard before the debit: a concurrent decision on the same request stops here
		var err error
		if s, err = l.repo.DecidePending(ctx, id, d.Status, amount, time.Now().UTC()); err != nil {
			return err
		}
		if d.Status == StatusApproved {
			return l.repo.DebitSponsor(ctx, sponsor.ID, amount)
		}
		return nil
	})
	if err != nil {
		return Sponsorship{}, err
	}

	l.metrics.SponsorshipDecided(string(s.Status))
	var msg string
	if s.Status == StatusApproved {
		l.metrics.FundsDebited(s.Amount)
		msg = fmt.Sprintf("Your sponsorship request has been approved for %s.", formatAmount(s.Amount))
	} else {
		msg = fmt.Sprintf("Your sponsorship request to %s has been rejected.", sponsor.CompanyName)
	}
	l.notifier.Notify(ctx, s.StudentID, msg, notification.TypeSponsorship)
	return s, nil
}

func (l *Ledger) sponsorOf(ctx context.Context, principal user.Principal) (Sponsor, error) {
	sponsor, err := l.repo.GetSponsorByUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, ErrSponsorNotFound) {
			return Sponsor{}, ErrNoSponsorAccount
		}
		return Sponsor{}, err
	}
	return sponsor, nil
}

// GetSponsor returns a sponsor account. Sponsors only see their own.
func (l *Ledger) GetSponsor(ctx context.Context, principal user.Principal, id string) (Sponsor, error) {
	sponsor, err := l.repo.GetSponsor(ctx, id)
	if err != nil {
		return Sponsor{}, err
	}
	if !principal.CanManage(sponsor.UserID) {
		return Sponsor{}, core.ErrPermissionDenied
	}
	return sponsor, nil
}

// Get returns a sponsorship visible to principal: admins see all, sponsors and students their own.
func (l *Ledger) Get(ctx context.Context, principal user.Principal, id string) (Sponsorship, error) {
	s, err := l.repo.GetSponsorship(ctx, id)
	if err != nil {
		return Sponsorship{}, err
	}
	switch {
	case principal.IsAdmin():
	case principal.IsStudent() && s.StudentID == principal.UserID:
	case principal.IsSponsor():
		sponsor, err := l.sponsorOf(ctx, principal)
		if err != nil || sponsor.ID != s.SponsorID {
			return Sponsorship{}, ErrNotFound
		}
	default:
		return Sponsorship{}, ErrNotFound
	}
	return s, nil
}

// Query lists sponsorships visible to principal, narrowed by filter.
func (l *Ledger) Query(ctx context.Context, principal user.Principal, filter QueryFilter) ([]Sponsorship, error) {
	switch {
	case principal.IsAdmin():
	case principal.IsStudent():
		filter.StudentID = principal.UserID
	case principal.IsSponsor():
		sponsor, err := l.sponsorOf(ctx, principal)
		if err != nil {
			return nil, err
		}
		filter.SponsorID = sponsor.ID
	default:
		return nil, core.ErrPermissionDenied
	}
	return l.repo.QuerySponsorships(ctx, filter)
}
