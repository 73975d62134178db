package main

import "context"

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	svcs, err := cli.services(ctx)
	if err != nil {
		return err
	}
	usr, err := svcs.Users.ResetPassword(ctx, uname, pwd)
	if err != nil {
		return err
	}
	cli.success("password of %q updated", usr.Username)
	return nil
}
