package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/apps/shared"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

func setup(t *testing.T) (*testutil.App, *commandLine) {
	app := testutil.NewApp(t, nil)
	cli := &commandLine{
		out: new(bytes.Buffer),
		connect: func(context.Context) (shared.Services, error) {
			return shared.Services{
				Users:         app.Users,
				Courses:       app.Courses,
				Ledger:        app.Ledger,
				Quizzes:       app.Quizzes,
				Assessments:   app.Assessments,
				Notifications: app.Notifications,
			}, nil
		},
	}
	return app, cli
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantKind   core.ErrorKind
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	switch {
	case tt.wantErr != nil:
		assert.ErrorIs(t, err, tt.wantErr)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	case tt.wantKind != "":
		assert.Equal(t, tt.wantKind, core.KindOf(err), "err = %v", err)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	_, cli := setup(t)

	cli.migrateFunc = func(_ context.Context, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "grades", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	app, cli := setup(t)
	app.CreateMember(t, "taken", user.GroupStudent)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"adduser", "-lol"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Boss", "-username", "boss"}, wantErr: errHelp},
		{
			name: "username taken", args: []string{"adduser", "-name", "Taken", "-username", "taken"},
			extra: extra{pwd: "secret"}, wantKind: core.KindValidation,
		},
		{
			name: "unknown group", args: []string{"adduser", "-name", "Lol", "-username", "lol", "-group", "lol"},
			extra: extra{pwd: "secret"}, wantKind: core.KindValidation,
		},
		{name: "admin", args: []string{"adduser", "-name", "Boss", "-username", "boss"}, extra: extra{pwd: "secret"}},
		{
			name: "instructor", args: []string{"adduser", "-name", "Teacher", "-email", "teacher@test.cd", "-group", user.GroupInstructor},
			extra: extra{pwd: "secret"},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	ctx := context.Background()
	boss, err := app.Users.GetByUsernameOrEmail(ctx, "boss")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, boss.Role())
	assert.True(t, boss.IsActive)
	assert.NoError(t, boss.CheckPassword("secret"))

	teacher, err := app.Users.GetByUsernameOrEmail(ctx, "teacher@test.cd")
	require.NoError(t, err)
	assert.Equal(t, user.RoleInstructor, teacher.Role())
}

func Test_commandLine_addSponsor(t *testing.T) {
	app, cli := setup(t)
	acme := app.CreateMember(t, "acme", user.GroupSponsor)
	app.CreateMember(t, "student", user.GroupStudent)

	tests := []cliTest{
		{name: "no args", args: []string{"addsponsor"}, wantErr: errHelp},
		{name: "no company", args: []string{"addsponsor", "-username", "acme"}, wantErr: errHelp},
		{name: "bad funds", args: []string{"addsponsor", "-username", "acme", "-company", "Acme", "-funds", "lots"}, wantKind: core.KindValidation},
		{name: "unknown user", args: []string{"addsponsor", "-username", "lol", "-company", "Acme"}, wantErr: user.ErrNotFound},
		{name: "not a sponsor", args: []string{"addsponsor", "-username", "student", "-company", "Acme"}, wantKind: core.KindValidation},
		{name: "negative funds", args: []string{"addsponsor", "-username", "acme", "-company", "Acme", "-funds", "-1"}, wantKind: core.KindValidation},
		{name: "OK", args: []string{"addsponsor", "-username", "acme", "-company", "Acme", "-funds", "1000.50"}},
		{name: "already has an account", args: []string{"addsponsor", "-username", "acme", "-company", "Acme"}, wantKind: core.KindInvalidState},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	s, err := app.SponsorshipRepo.GetSponsorByUser(context.Background(), acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", s.CompanyName)
	assert.True(t, s.FundsProvided.Equal(decimal.RequireFromString("1000.50")))
	assert.Contains(t, cli.out.(*bytes.Buffer).String(), "1000.50")
}

func Test_commandLine_resetPassword(t *testing.T) {
	app, cli := setup(t)

	usr := testutil.CreateUser(t, app.UserRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}

	got, err := app.Users.GetByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("lmao"))
}
