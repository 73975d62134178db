package sponsorship_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/notification"
	"github.com/trezcool/elimu/core/sponsorship"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

type ledgerFixture struct {
	app        *testutil.App
	admin      user.User
	student    user.User
	sponsorUsr user.User
	sponsor    sponsorship.Sponsor
}

func setup(t *testing.T, funds string) ledgerFixture {
	return newFixture(t, testutil.NewApp(t, nil), funds)
}

func newFixture(t *testing.T, app *testutil.App, funds string) ledgerFixture {
	f := ledgerFixture{
		app:        app,
		admin:      app.CreateMember(t, "admin", user.GroupAdmin),
		student:    app.CreateMember(t, "hero", user.GroupStudent),
		sponsorUsr: app.CreateMember(t, "acme", user.GroupSponsor),
	}
	f.sponsor = app.CreateSponsor(t, f.sponsorUsr, "Acme Corp", funds)
	return f
}

func (f ledgerFixture) balance(t *testing.T) decimal.Decimal {
	s, err := f.app.SponsorshipRepo.GetSponsor(context.Background(), f.sponsor.ID)
	require.NoError(t, err)
	return s.FundsProvided
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestLedger_ApplyApprove(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "1000")

	s, err := f.app.Ledger.Apply(ctx, f.student.Principal(), sponsorship.Application{SponsorID: f.sponsor.ID, Amount: dec("300")})
	require.NoError(t, err)
	assert.Equal(t, sponsorship.StatusPending, s.Status)
	assert.True(t, f.balance(t).Equal(dec("1000")), "applying must not move funds")

	studentNotes := f.app.NotificationsOf(t, f.student.ID)
	require.Len(t, studentNotes, 1)
	assert.Equal(t, "Your sponsorship application to Acme Corp is pending review.", studentNotes[0].Message)
	sponsorNotes := f.app.NotificationsOf(t, f.sponsorUsr.ID)
	require.Len(t, sponsorNotes, 1)
	assert.Equal(t, "New sponsorship request from hero for amount 300.00.", sponsorNotes[0].Message)
	assert.Equal(t, notification.TypeSponsorship, sponsorNotes[0].Type)

	s, err = f.app.Ledger.Approve(ctx, f.sponsorUsr.Principal(), s.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, sponsorship.StatusApproved, s.Status)
	assert.True(t, s.Amount.Equal(dec("300")))
	assert.True(t, f.balance(t).Equal(dec("700")), "balance = %s", f.balance(t))

	studentNotes = f.app.NotificationsOf(t, f.student.ID)
	require.Len(t, studentNotes, 2)
	assert.Contains(t, []string{studentNotes[0].Message, studentNotes[1].Message},
		"Your sponsorship request has been approved for 300.00.")

	// terminal states are final
	_, err = f.app.Ledger.Approve(ctx, f.sponsorUsr.Principal(), s.ID, nil)
	assert.ErrorIs(t, err, sponsorship.ErrAlreadyDecided)
	_, err = f.app.Ledger.Reject(ctx, f.sponsorUsr.Principal(), s.ID)
	assert.ErrorIs(t, err, sponsorship.ErrAlreadyDecided)
	assert.True(t, f.balance(t).Equal(dec("700")))
}

func TestLedger_Reject(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "1000")

	s, err := f.app.Ledger.Apply(ctx, f.student.Principal(), sponsorship.Application{SponsorID: f.sponsor.ID, Amount: dec("300")})
	require.NoError(t, err)

	s, err = f.app.Ledger.Decide(ctx, f.sponsorUsr.Principal(), s.ID, sponsorship.Decision{Status: sponsorship.StatusRejected})
	require.NoError(t, err)
	assert.Equal(t, sponsorship.StatusRejected, s.Status)
	assert.True(t, f.balance(t).Equal(dec("1000")))

	notes := f.app.NotificationsOf(t, f.student.ID)
	require.Len(t, notes, 2)
	assert.Contains(t, []string{notes[0].Message, notes[1].Message}, "Your sponsorship request to Acme Corp has been rejected.")

	_, err = f.app.Ledger.Approve(ctx, f.sponsorUsr.Principal(), s.ID, nil)
	assert.ErrorIs(t, err, sponsorship.ErrAlreadyDecided)
}

func TestLedger_ApproveInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "100")

	s, err := f.app.Ledger.Apply(ctx, f.student.Principal(), sponsorship.Application{SponsorID: f.sponsor.ID, Amount: dec("300")})
	require.NoError(t, err)

	_, err = f.app.Ledger.Approve(ctx, f.sponsorUsr.Principal(), s.ID, nil)
	require.ErrorIs(t, err, sponsorship.ErrInsufficientFunds)
	assert.Equal(t, core.KindInsufficientFunds, core.KindOf(err))

	// the failed approval is rolled back: still pending, balance untouched
	got, err := f.app.SponsorshipRepo.GetSponsorship(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, sponsorship.StatusPending, got.Status)
	assert.True(t, f.balance(t).Equal(dec("100")))

	// a lower amount that fits is accepted
	got, err = f.app.Ledger.Approve(ctx, f.sponsorUsr.Principal(), s.ID, decPtr("100"))
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("100")))
	assert.True(t, f.balance(t).IsZero())
}

func TestLedger_Validation(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "1000")
	other := f.app.CreateMember(t, "globex", user.GroupSponsor)
	f.app.CreateSponsor(t, other, "Globex", "50")

	pending, err := f.app.Ledger.Apply(ctx, f.student.Principal(), sponsorship.Application{SponsorID: f.sponsor.ID, Amount: dec("300")})
	require.NoError(t, err)

	tests := []struct {
		name     string
		call     func() error
		wantKind core.ErrorKind
	}{
		{
			name: "apply zero amount",
			call: func() error {
				_, err := f.app.Ledger.Apply(ctx, f.student.Principal(), sponsorship.Application{SponsorID: f.sponsor.ID, Amount: decimal.Zero})
				return err
			},
			wantKind: core.KindValidation,
		},
		{
			name: "apply negative amount",
			call: func() error {
				_, err := f.app.Ledger.Apply(ctx, f.student.Principal(), sponsorship.Application{SponsorID: f.sponsor.ID, Amount: dec("-5")})
				return err
			},
			wantKind: core.KindValidation,
		},
		{
			name: "apply unknown sponsor",
			call: func() error {
				_, err := f.app.Ledger.Apply(ctx, f.student.Principal(), sponsorship.Application{SponsorID: "nope", Amount: dec("5")})
				return err
			},
			wantKind: core.KindValidation,
		},
		{
			name: "sponsor cannot apply",
			call: func() error {
				_, err := f.app.Ledger.Apply(ctx, f.sponsorUsr.Principal(), sponsorship.Application{SponsorID: f.sponsor.ID, Amount: dec("5")})
				return err
			},
			wantKind: core.KindPermission,
		},
		{
			name: "fund zero amount",
			call: func() error {
				_, err := f.app.Ledger.Fund(ctx, f.sponsorUsr.Principal(), sponsorship.Funding{StudentID: f.student.ID, Amount: decimal.Zero})
				return err
			},
			wantKind: core.KindValidation,
		},
		{
			name: "fund a non student",
			call: func() error {
				_, err := f.app.Ledger.Fund(ctx, f.sponsorUsr.Principal(), sponsorship.Funding{StudentID: f.admin.ID, Amount: dec("5")})
				return err
			},
			wantKind: core.KindValidation,
		},
		{
			name: "student cannot fund",
			call: func() error {
				_, err := f.app.Ledger.Fund(ctx, f.student.Principal(), sponsorship.Funding{StudentID: f.student.ID, Amount: dec("5")})
				return err
			},
			wantKind: core.KindPermission,
		},
		{
			name: "other sponsor cannot approve",
			call: func() error {
				_, err := f.app.Ledger.Approve(ctx, other.Principal(), pending.ID, nil)
				return err
			},
			wantKind: core.KindPermission,
		},
		{
			name: "admin cannot approve",
			call: func() error {
				_, err := f.app.Ledger.Approve(ctx, f.admin.Principal(), pending.ID, nil)
				return err
			},
			wantKind: core.KindPermission,
		},
		{
			name: "approve above requested amount",
			call: func() error {
				_, err := f.app.Ledger.Approve(ctx, f.sponsorUsr.Principal(), pending.ID, decPtr("301"))
				return err
			},
			wantKind: core.KindValidation,
		},
		{
			name: "approve negative amount",
			call: func() error {
				_, err := f.app.Ledger.Approve(ctx, f.sponsorUsr.Principal(), pending.ID, decPtr("-1"))
				return err
			},
			wantKind: core.KindValidation,
		},
		{
			name: "approve explicit zero amount",
			call: func() error {
				_, err := f.app.Ledger.Decide(ctx, f.sponsorUsr.Principal(), pending.ID,
					sponsorship.Decision{Status: sponsorship.StatusApproved, Amount: decPtr("0")})
				return err
			},
			wantKind: core.KindValidation,
		},
		{
			name: "approve fraction of a cent",
			call: func() error {
				_, err := f.app.Ledger.Approve(ctx, f.sponsorUsr.Principal(), pending.ID, decPtr("99.995"))
				return err
			},
			wantKind: core.KindValidation,
		},
		{
			name: "apply fraction of a cent",
			call: func() error {
				_, err := f.app.Ledger.Apply(ctx, f.student.Principal(), sponsorship.Application{SponsorID: f.sponsor.ID, Amount: dec("0.001")})
				return err
			},
			wantKind: core.KindValidation,
		},
		{
			name: "apply more than 10 digits",
			call: func() error {
				_, err := f.app.Ledger.Apply(ctx, f.student.Principal(), sponsorship.Application{SponsorID: f.sponsor.ID, Amount: dec("1e20")})
				return err
			},
			wantKind: core.KindValidation,
		},
		{
			name: "fund fraction of a cent",
			call: func() error {
				_, err := f.app.Ledger.Fund(ctx, f.sponsorUsr.Principal(), sponsorship.Funding{StudentID: f.student.ID, Amount: dec("0.005")})
				return err
			},
			wantKind: core.KindValidation,
		},
		{
			name: "decide unknown status",
			call: func() error {
				_, err := f.app.Ledger.Decide(ctx, f.sponsorUsr.Principal(), pending.ID, sponsorship.Decision{Status: sponsorship.StatusCompleted})
				return err
			},
			wantKind: core.KindValidation,
		},
		{
			name: "approve unknown sponsorship",
			call: func() error {
				_, err := f.app.Ledger.Approve(ctx, f.sponsorUsr.Principal(), "nope", nil)
				return err
			},
			wantKind: core.KindNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, core.KindOf(err), "err = %v", err)
		})
	}

	// nothing above moved funds or decided the request
	assert.True(t, f.balance(t).Equal(dec("1000")))
	got, err := f.app.SponsorshipRepo.GetSponsorship(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, sponsorship.StatusPending, got.Status)
}

func TestLedger_Fund(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "500")

	s, err := f.app.Ledger.Fund(ctx, f.sponsorUsr.Principal(), sponsorship.Funding{StudentID: f.student.ID, Amount: dec("200.50")})
	require.NoError(t, err)
	assert.Equal(t, sponsorship.StatusApproved, s.Status)
	assert.Equal(t, f.sponsor.ID, s.SponsorID)
	assert.True(t, f.balance(t).Equal(dec("299.50")))

	notes := f.app.NotificationsOf(t, f.student.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Your sponsorship request has been approved for 200.50.", notes[0].Message)

	_, err = f.app.Ledger.Fund(ctx, f.sponsorUsr.Principal(), sponsorship.Funding{StudentID: f.student.ID, Amount: dec("300")})
	require.ErrorIs(t, err, sponsorship.ErrInsufficientFunds)
	assert.True(t, f.balance(t).Equal(dec("299.50")))

	list, err := f.app.Ledger.Query(ctx, f.student.Principal(), sponsorship.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1, "the failed funding must not leave a sponsorship behind")
}

func TestLedger_CreateSponsor(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t, nil)
	admin := app.CreateMember(t, "admin", user.GroupAdmin)
	sponsorUsr := app.CreateMember(t, "acme", user.GroupSponsor)
	student := app.CreateMember(t, "hero", user.GroupStudent)

	_, err := app.Ledger.CreateSponsor(ctx, sponsorUsr.Principal(),
		sponsorship.NewSponsor{UserID: sponsorUsr.ID, CompanyName: "Acme", FundsProvided: dec("10")})
	assert.Equal(t, core.KindPermission, core.KindOf(err))

	_, err = app.Ledger.CreateSponsor(ctx, admin.Principal(),
		sponsorship.NewSponsor{UserID: student.ID, CompanyName: "Acme", FundsProvided: dec("10")})
	assert.Equal(t, core.KindValidation, core.KindOf(err))

	for _, funds := range []string{"-10", "0.001", "100000000"} {
		_, err = app.Ledger.CreateSponsor(ctx, admin.Principal(),
			sponsorship.NewSponsor{UserID: sponsorUsr.ID, CompanyName: "Acme", FundsProvided: dec(funds)})
		assert.Equal(t, core.KindValidation, core.KindOf(err), "funds = %s", funds)
	}

	s, err := app.Ledger.CreateSponsor(ctx, admin.Principal(),
		sponsorship.NewSponsor{UserID: sponsorUsr.ID, CompanyName: "  Acme  ", FundsProvided: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, "Acme", s.CompanyName)

	_, err = app.Ledger.CreateSponsor(ctx, admin.Principal(),
		sponsorship.NewSponsor{UserID: sponsorUsr.ID, CompanyName: "Acme 2", FundsProvided: dec("10")})
	assert.ErrorIs(t, err, sponsorship.ErrSponsorExists)

	got, err := app.Ledger.GetSponsor(ctx, sponsorUsr.Principal(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	_, err = app.Ledger.GetSponsor(ctx, student.Principal(), s.ID)
	assert.Equal(t, core.KindPermission, core.KindOf(err))
}

func TestLedger_ReadScoping(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "1000")
	intruder := f.app.CreateMember(t, "intruder", user.GroupStudent)
	other := f.app.CreateMember(t, "globex", user.GroupSponsor)
	f.app.CreateSponsor(t, other, "Globex", "50")

	s, err := f.app.Ledger.Apply(ctx, f.student.Principal(), sponsorship.Application{SponsorID: f.sponsor.ID, Amount: dec("10")})
	require.NoError(t, err)

	for _, p := range []user.Principal{f.admin.Principal(), f.student.Principal(), f.sponsorUsr.Principal()} {
		got, err := f.app.Ledger.Get(ctx, p, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
	}
	for _, p := range []user.Principal{intruder.Principal(), other.Principal(), user.Anonymous} {
		_, err = f.app.Ledger.Get(ctx, p, s.ID)
		assert.ErrorIs(t, err, sponsorship.ErrNotFound)
	}

	list, err := f.app.Ledger.Query(ctx, intruder.Principal(), sponsorship.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = f.app.Ledger.Query(ctx, other.Principal(), sponsorship.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = f.app.Ledger.Query(ctx, f.admin.Principal(), sponsorship.QueryFilter{Status: sponsorship.StatusPending})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = f.app.Ledger.Query(ctx, user.Anonymous, sponsorship.QueryFilter{})
	assert.Equal(t, core.KindPermission, core.KindOf(err))
}

func TestLedger_ConcurrentApprovalsNeverOverdraw(t *testing.T) {
	for _, eng := range testutil.Engines() {
		t.Run(eng.Name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, eng.New(t, nil), "1000")

			const requests = 10
			ids := make([]string, requests)
			for i := range ids {
				s, err := f.app.Ledger.Apply(ctx, f.student.Principal(), sponsorship.Application{SponsorID: f.sponsor.ID, Amount: dec("300")})
				require.NoError(t, err)
				ids[i] = s.ID
			}

			var approved, insufficient atomic.Int32
			var eg errgroup.Group
			for _, id := range ids {
				id := id
				eg.Go(func() error {
					_, err := f.app.Ledger.Approve(ctx, f.sponsorUsr.Principal(), id, nil)
					switch {
					case err == nil:
						approved.Add(1)
					case core.IsKind(err, core.KindInsufficientFunds):
						insufficient.Add(1)
					default:
						return err
					}
					return nil
				})
			}
			require.NoError(t, eg.Wait())

			assert.EqualValues(t, 3, approved.Load())
			assert.EqualValues(t, requests-3, insufficient.Load())
			assert.True(t, f.balance(t).Equal(dec("100")), "balance = %s", f.balance(t))
		})
	}
}

func TestLedger_ConcurrentDecisionsOnOneRequest(t *testing.T) {
	for _, eng := range testutil.Engines() {
		t.Run(eng.Name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, eng.New(t, nil), "1000")

			s, err := f.app.Ledger.Apply(ctx, f.student.Principal(), sponsorship.Application{SponsorID: f.sponsor.ID, Amount: dec("300")})
			require.NoError(t, err)

			var won, decided atomic.Int32
			var eg errgroup.Group
			for i := 0; i < 8; i++ {
				i := i
				eg.Go(func() error {
					var err error
					if i%2 == 0 {
						_, err = f.app.Ledger.Approve(ctx, f.sponsorUsr.Principal(), s.ID, nil)
					} else {
						_, err = f.app.Ledger.Reject(ctx, f.sponsorUsr.Principal(), s.ID)
					}
					switch {
					case err == nil:
						won.Add(1)
					case core.IsKind(err, core.KindInvalidState):
						decided.Add(1)
					default:
						return err
					}
					return nil
				})
			}
			require.NoError(t, eg.Wait())
			assert.EqualValues(t, 1, won.Load())
			assert.EqualValues(t, 7, decided.Load())

			got, err := f.app.SponsorshipRepo.GetSponsorship(ctx, s.ID)
			require.NoError(t, err)
			if got.Status == sponsorship.StatusApproved {
				assert.True(t, f.balance(t).Equal(dec("700")))
			} else {
				assert.Equal(t, sponsorship.StatusRejected, got.Status)
				assert.True(t, f.balance(t).Equal(dec("1000")))
			}
		})
	}
}

func TestLedger_ConcurrentFundingsNeverOverdraw(t *testing.T) {
	for _, eng := range testutil.Engines() {
		t.Run(eng.Name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, eng.New(t, nil), "1000")

			var eg errgroup.Group
			var funded atomic.Int32
			for i := 0; i < 12; i++ {
				eg.Go(func() error {
					_, err := f.app.Ledger.Fund(ctx, f.sponsorUsr.Principal(), sponsorship.Funding{StudentID: f.student.ID, Amount: dec("250")})
					if err == nil {
						funded.Add(1)
						return nil
					}
					if core.IsKind(err, core.KindInsufficientFunds) {
						return nil
					}
					return err
				})
			}
			require.NoError(t, eg.Wait())
			assert.EqualValues(t, 4, funded.Load())
			assert.True(t, f.balance(t).IsZero(), "balance = %s", f.balance(t))
		})
	}
}
