package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/user"
)

type userRow struct {
	user.User
	Username  *string        `db:"username"`
	Email     *string        `db:"email"`
	Roles     pq.StringArray `db:"roles"`
	LastLogin pq.NullTime    `db:"last_login"`
}

func (row userRow) user() user.User {
	usr := row.User
	if row.Username != nil {
		usr.Username = *row.Username
	}
	if row.Email != nil {
		usr.Email = *row.Email
	}
	usr.Roles = []string(row.Roles)
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	usr.LastLogin = row.LastLogin.Time
	return usr
}

const userColumns = `id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login`

type userRepository struct {
	repo
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{repo{db: db}}
}

func (r *userRepository) CheckUniqueness(ctx context.Context, username, email, excludedID string) error {
	var taken []userRow
	q := `SELECT ` + userColumns + ` FROM users
		WHERE (username = NULLIF($1, '') OR email = NULLIF($2, '')) AND id::text <> $3`
	if err := r.exec(ctx).SelectContext(ctx, &taken, q, username, email, excludedID); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range taken {
		if username != "" && row.Username != nil && *row.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(taken) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (r *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO users (id, name, username, email, is_active, roles, password_hash, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9)`
	_, err := r.exec(ctx).ExecContext(ctx, q,
		usr.ID, usr.Name, usr.Username, usr.Email, usr.IsActive, pq.StringArray(usr.Roles),
		usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt)
	if err != nil {
		switch uniqueConstraint(err) {
		case "users_username_key":
			return user.User{}, user.ErrUsernameExists
		case "users_email_key":
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (r *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		where string
		arg   string
	)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		where, arg = "id = $1", filter.ID
	case filter.Username != "":
		where, arg = "username = $1", filter.Username
	case filter.Email != "":
		where, arg = "email = $1", filter.Email
	case filter.UsernameOrEmail != "":
		where, arg = "(username = $1 OR email = $1)", filter.UsernameOrEmail
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1`
	if err := r.exec(ctx).GetContext(ctx, &row, q, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return row.user(), nil
}

func (r *userRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	if !validID(id) {
		return user.ErrNotFound
	}
	res, err := r.exec(ctx).ExecContext(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, id)
	if err != nil {
		return errors.Wrap(err, "setting last login")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *userRepository) SetPassword(ctx context.Context, id string, hash []byte, at time.Time) error {
	if !validID(id) {
		return user.ErrNotFound
	}
	res, err := r.exec(ctx).ExecContext(ctx, `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`, hash, at, id)
	if err != nil {
		return errors.Wrap(err, "setting password")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}
