package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/sponsorship"
)

// addSponsor opens the sponsor account of an existing sponsor user.
func (cli *commandLine) addSponsor(ctx context.Context, uname, company, funds string) error {
	amount, err := decimal.NewFromString(core.CleanString(funds))
	if err != nil {
		return core.NewFieldError("funds", fmt.Sprintf("invalid funds %q", funds))
	}
	svcs, err := cli.services(ctx)
	if err != nil {
		return err
	}
	usr, err := svcs.Users.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	s, err := svcs.Ledger.CreateSponsor(ctx, adminPrincipal, sponsorship.NewSponsor{
		UserID:        usr.ID,
		CompanyName:   company,
		FundsProvided: amount,
	})
	if err != nil {
		return err
	}
	cli.success("opened sponsor account %s for %q with %s", s.ID, usr.Username, s.FundsProvided.StringFixed(2))
	return nil
}
