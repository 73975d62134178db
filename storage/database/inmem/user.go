package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/elimu/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email, excludedID string) error {
	defer repo.db.lock(ctx)()

	for _, usr := range repo.db.users {
		if usr.ID == excludedID {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lock(ctx)()

	usr.Roles = append([]string(nil), usr.Roles...)
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	defer repo.db.lock(ctx)()

	for _, usr := range repo.db.users {
		if matches(usr, filter) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func matches(usr user.User, filter user.GetFilter) bool {
	if filter.ID != "" && usr.ID != filter.ID {
		return false
	}
	if filter.Username != "" && usr.Username != filter.Username {
		return false
	}
	if filter.Email != "" && usr.Email != filter.Email {
		return false
	}
	if filter.UsernameOrEmail != "" && usr.Username != filter.UsernameOrEmail && usr.Email != filter.UsernameOrEmail {
		return false
	}
	return filter != (user.GetFilter{})
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	defer repo.db.lock(ctx)()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.LastLogin = at
	repo.db.users[id] = usr
	return nil
}

func (repo *userRepository) SetPassword(ctx context.Context, id string, hash []byte, at time.Time) error {
	defer repo.db.lock(ctx)()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.PasswordHash = append([]byte(nil), hash...)
	usr.UpdatedAt = at
	repo.db.users[id] = usr
	return nil
}
