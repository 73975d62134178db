package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/elimu/core/sponsorship"
)

const (
	sponsorColumns     = `id, user_id, company_name, funds_provided, created_at`
	sponsorshipColumns = `id, sponsor_id, student_id, amount, status, utilization, created_at, updated_at`
)

type sponsorshipRepository struct {
	repo
}

var _ sponsorship.Repository = (*sponsorshipRepository)(nil)

func NewSponsorshipRepository(db *sqlx.DB) sponsorship.Repository {
	return &sponsorshipRepository{repo{db: db}}
}

func (r *sponsorshipRepository) CreateSponsor(ctx context.Context, s sponsorship.Sponsor) (sponsorship.Sponsor, error) {
	q := `INSERT INTO sponsors (` + sponsorColumns + `) VALUES (:id, :user_id, :company_name, :funds_provided, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(ctx), q, s); err != nil {
		if uniqueConstraint(err) == "sponsors_user_id_key" {
			return sponsorship.Sponsor{}, sponsorship.ErrSponsorExists
		}
		return sponsorship.Sponsor{}, errors.Wrap(err, "inserting sponsor")
	}
	return s, nil
}

func (r *sponsorshipRepository) getSponsor(ctx context.Context, where, arg string) (sponsorship.Sponsor, error) {
	if !validID(arg) {
		return sponsorship.Sponsor{}, sponsorship.ErrSponsorNotFound
	}
	var s sponsorship.Sponsor
	q := `SELECT ` + sponsorColumns + ` FROM sponsors WHERE ` + where
	if err := r.exec(ctx).GetContext(ctx, &s, q, arg); err != nil {
		return sponsorship.Sponsor{}, trapNoRowsErr(err, sponsorship.ErrSponsorNotFound, "getting sponsor")
	}
	return s, nil
}

func (r *sponsorshipRepository) GetSponsor(ctx context.Context, id string) (sponsorship.Sponsor, error) {
	return r.getSponsor(ctx, "id = $1", id)
}

func (r *sponsorshipRepository) GetSponsorByUser(ctx context.Context, userID string) (sponsorship.Sponsor, error) {
	return r.getSponsor(ctx, "user_id = $1", userID)
}

// DebitSponsor checks and decrements the balance in one statement; concurrent debits serialize on the sponsor row.
func (r *sponsorshipRepository) DebitSponsor(ctx context.Context, sponsorID string, amount decimal.Decimal) error {
	if !validID(sponsorID) {
		return sponsorship.ErrSponsorNotFound
	}
	exec := r.exec(ctx)
	res, err := exec.ExecContext(ctx,
		`UPDATE sponsors SET funds_provided = funds_provided - $1 WHERE id = $2 AND funds_provided >= $1`,
		amount, sponsorID)
	if err != nil {
		return errors.Wrap(err, "debiting sponsor")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "debiting sponsor")
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err = exec.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM sponsors WHERE id = $1)`, sponsorID); err != nil {
		return errors.Wrap(err, "checking sponsor")
	}
	if !exists {
		return sponsorship.ErrSponsorNotFound
	}
	return sponsorship.ErrInsufficientFunds
}

func (r *sponsorshipRepository) CreateSponsorship(ctx context.Context, s sponsorship.Sponsorship) (sponsorship.Sponsorship, error) {
	q := `INSERT INTO sponsorships (` + sponsorshipColumns + `)
		VALUES (:id, :sponsor_id, :student_id, :amount, :status, :utilization, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(ctx), q, s); err != nil {
		return sponsorship.Sponsorship{}, errors.Wrap(err, "inserting sponsorship")
	}
	return s, nil
}

func (r *sponsorshipRepository) GetSponsorship(ctx context.Context, id string) (sponsorship.Sponsorship, error) {
	if !validID(id) {
		return sponsorship.Sponsorship{}, sponsorship.ErrNotFound
	}
	var s sponsorship.Sponsorship
	q := `SELECT ` + sponsorshipColumns + ` FROM sponsorships WHERE id = $1`
	if err := r.exec(ctx).GetContext(ctx, &s, q, id); err != nil {
		return sponsorship.Sponsorship{}, trapNoRowsErr(err, sponsorship.ErrNotFound, "getting sponsorship")
	}
	return s, nil
}

func (r *sponsorshipRepository) DecidePending(
	ctx context.Context,
	id string,
	status sponsorship.Status,
	amount decimal.Decimal,
	at time.Time,
) (sponsorship.Sponsorship, error) {
	if !validID(id) {
		return sponsorship.Sponsorship{}, sponsorship.ErrNotFound
	}
	var s sponsorship.Sponsorship
	q := `UPDATE sponsorships SET status = $1, amount = $2, updated_at = $3
		WHERE id = $4 AND status = $5
		RETURNING ` + sponsorshipColumns
	err := r.exec(ctx).GetContext(ctx, &s, q, status, amount, at, id, sponsorship.StatusPending)
	switch {
	case err == nil:
		return s, nil
	case !errors.Is(err, sql.ErrNoRows):
		return sponsorship.Sponsorship{}, errors.Wrap(err, "deciding sponsorship")
	}
	// nothing pending under that id: missing or already decided
	if _, err = r.GetSponsorship(ctx, id); err != nil {
		return sponsorship.Sponsorship{}, err
	}
	return sponsorship.Sponsorship{}, sponsorship.ErrAlreadyDecided
}

func (r *sponsorshipRepository) QuerySponsorships(ctx context.Context, filter sponsorship.QueryFilter) ([]sponsorship.Sponsorship, error) {
	var (
		conds []string
		args  []interface{}
	)
	addCond := func(col string, val interface{}) {
		args = append(args, val)
		conds = append(conds, col+" = $"+strconv.Itoa(len(args)))
	}
	if filter.SponsorID != "" {
		if !validID(filter.SponsorID) {
			return []sponsorship.Sponsorship{}, nil
		}
		addCond("sponsor_id", filter.SponsorID)
	}
	if filter.StudentID != "" {
		if !validID(filter.StudentID) {
			return []sponsorship.Sponsorship{}, nil
		}
		addCond("student_id", filter.StudentID)
	}
	if filter.Status != "" {
		addCond("status", filter.Status)
	}

	q := `SELECT ` + sponsorshipColumns + ` FROM sponsorships`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at DESC, id`

	list := make([]sponsorship.Sponsorship, 0)
	if err := r.exec(ctx).SelectContext(ctx, &list, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying sponsorships")
	}
	return list, nil
}
