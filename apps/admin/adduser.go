package main

import (
	"context"

	"github.com/trezcool/elimu/core/user"
)

// addUser creates an active user member of group.
func (cli *commandLine) addUser(ctx context.Context, name, uname, email, group, pwd string) error {
	svcs, err := cli.services(ctx)
	if err != nil {
		return err
	}
	usr, err := svcs.Users.Create(ctx, adminPrincipal, user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           []string{group},
	})
	if err != nil {
		return err
	}
	cli.success("created %s %q (%s)", usr.Role(), usr.Username, usr.ID)
	return nil
}
