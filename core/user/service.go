package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrRoleTooHigh    = errors.New("cannot grant a role above your own")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when taken by a user other than excludedID.
		CheckUniqueness(ctx context.Context, username, email, excludedID string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// GetUser applies AND operation on the non-empty GetFilter fields.
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		SetLastLogin(ctx context.Context, id string, at time.Time) error
		SetPassword(ctx context.Context, id string, hash []byte, at time.Time) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email, excludedID string) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, excludedID); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Create registers a new user. creator is the principal granting nu.Roles: anonymous callers (self sign-up)
// and non-admins may only grant the student or sponsor groups.
func (svc *Service) Create(ctx context.Context, creator Principal, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if len(nu.Roles) == 0 {
		nu.Roles = []string{GroupStudent}
	}
	if !creator.IsAdmin() && ResolveRole(nu.Roles) > RoleStudent {
		return User{}, core.NewValidationError(ErrRoleTooHigh, core.FieldError{Field: "roles", Error: ErrRoleTooHigh.Error()})
	}
	if err := svc.checkUniqueness(ctx, nu.Username, nu.Email, ""); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		ID:        uuid.NewString(),
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	if uname == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: uname})
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := time.Now().UTC()
	if err := svc.repo.SetLastLogin(ctx, usr.ID, now); err != nil {
		return User{}, err
	}
	usr.LastLogin = now
	return usr, nil
}

// ResetPassword replaces the password of the user found by username or email.
func (svc *Service) ResetPassword(ctx context.Context, uname, pwd string) (User, error) {
	if pwd == "" {
		return User{}, core.NewFieldError("password", "password is a required field")
	}
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if err = svc.repo.SetPassword(ctx, usr.ID, usr.PasswordHash, usr.UpdatedAt); err != nil {
		return User{}, err
	}
	return usr, nil
}

// RolesOf returns the group memberships of the user id.
func (svc *Service) RolesOf(ctx context.Context, id string) ([]string, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return usr.Roles, nil
}

// Principal resolves the acting identity of the user id. Unknown and inactive users are Anonymous.
func (svc *Service) Principal(ctx context.Context, id string) (Principal, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Anonymous, nil
		}
		return Anonymous, err
	}
	return usr.Principal(), nil
}
