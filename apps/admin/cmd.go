package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/trezcool/elimu/apps/shared"
	"github.com/trezcool/elimu/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")

	// the CLI acts with full privileges
	adminPrincipal = user.Principal{UserID: "admin-cli", Username: "admin-cli", Role: user.RoleAdmin}
)

type commandLine struct {
	out         io.Writer
	connect     func(ctx context.Context) (shared.Services, error)
	migrateFunc func(ctx context.Context, command string, args ...string) error

	svcs *shared.Services
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -name NAME -username USERNAME -email EMAIL [-group GROUP] - create a user; the password is prompted")
	fmt.Fprintln(cli.out, "  addsponsor -username USERNAME|EMAIL -company NAME -funds AMOUNT - open the sponsor account of a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose command (up, down, status, redo, version...)")
}

func (cli *commandLine) services(ctx context.Context) (shared.Services, error) {
	if cli.svcs == nil {
		svcs, err := cli.connect(ctx)
		if err != nil {
			return shared.Services{}, err
		}
		cli.svcs = &svcs
	}
	return *cli.svcs, nil
}

func (cli *commandLine) success(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(cli.out, format+"\n", args...)
}

func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserGroup := addUserCmd.String("group", user.GroupAdmin, "One of admin, instructor, student or sponsor.")

	addSponsorCmd := flag.NewFlagSet("addsponsor", flag.ContinueOnError)
	addSponsorUname := addSponsorCmd.String("username", "", "The sponsor user's username or email.")
	addSponsorCompany := addSponsorCmd.String("company", "", "The company name.")
	addSponsorFunds := addSponsorCmd.String("funds", "0", "The opening balance.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	for _, fs := range []*flag.FlagSet{addUserCmd, addSponsorCmd, resetPasswordCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserName == "" || (*addUserUname == "" && *addUserEmail == "") {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(ctx, *addUserName, *addUserUname, *addUserEmail, *addUserGroup, pwd)

	case "addsponsor":
		if err := addSponsorCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addSponsorUname == "" || *addSponsorCompany == "" {
			addSponsorCmd.Usage()
			return errHelp
		}
		return cli.addSponsor(ctx, *addSponsorUname, *addSponsorCompany, *addSponsorFunds)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(ctx, *resetPasswordUname, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}
