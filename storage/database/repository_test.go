package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/assessment"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/sponsorship"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newSponsorship(t *testing.T, app *testutil.App, sponsor sponsorship.Sponsor, student user.User, amount string) sponsorship.Sponsorship {
	now := time.Now().UTC()
	s, err := app.SponsorshipRepo.CreateSponsorship(context.Background(), sponsorship.Sponsorship{
		ID:          uuid.NewString(),
		SponsorID:   sponsor.ID,
		StudentID:   student.ID,
		Amount:      dec(amount),
		Status:      sponsorship.StatusPending,
		Utilization: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	return s
}

func TestSponsorshipRepository(t *testing.T) {
	for _, eng := range testutil.Engines() {
		t.Run(eng.Name, func(t *testing.T) {
			ctx := context.Background()
			app := eng.New(t, nil)
			repo := app.SponsorshipRepo
			sponsorUsr := app.CreateMember(t, "acme", user.GroupSponsor)
			student := app.CreateMember(t, "hero", user.GroupStudent)
			sponsor := app.CreateSponsor(t, sponsorUsr, "Acme", "100.50")

			balance := func() decimal.Decimal {
				s, err := repo.GetSponsor(ctx, sponsor.ID)
				require.NoError(t, err)
				return s.FundsProvided
			}

			t.Run("one sponsor account per user", func(t *testing.T) {
				_, err := repo.CreateSponsor(ctx, sponsorship.Sponsor{
					ID: uuid.NewString(), UserID: sponsorUsr.ID, CompanyName: "Acme 2", FundsProvided: dec("1"), CreatedAt: time.Now().UTC(),
				})
				assert.ErrorIs(t, err, sponsorship.ErrSponsorExists)
			})

			t.Run("debit", func(t *testing.T) {
				tests := []struct {
					name        string
					sponsorID   string
					amount      string
					wantErr     error
					wantBalance string
				}{
					{"more than the balance", sponsor.ID, "100.51", sponsorship.ErrInsufficientFunds, "100.50"},
					{"unknown sponsor", uuid.NewString(), "1", sponsorship.ErrSponsorNotFound, "100.50"},
					{"invalid id", "nope", "1", sponsorship.ErrSponsorNotFound, "100.50"},
					{"part of the balance", sponsor.ID, "0.50", nil, "100"},
					{"the whole balance", sponsor.ID, "100", nil, "0"},
					{"an empty balance", sponsor.ID, "0.01", sponsorship.ErrInsufficientFunds, "0"},
				}
				for _, tt := range tests {
					t.Run(tt.name, func(t *testing.T) {
						err := repo.DebitSponsor(ctx, tt.sponsorID, dec(tt.amount))
						if tt.wantErr != nil {
							assert.ErrorIs(t, err, tt.wantErr)
						} else {
							assert.NoError(t, err)
						}
						assert.True(t, balance().Equal(dec(tt.wantBalance)), "balance = %s", balance())
					})
				}
			})

			t.Run("decide pending once", func(t *testing.T) {
				s := newSponsorship(t, app, sponsor, student, "40")

				got, err := repo.DecidePending(ctx, s.ID, sponsorship.StatusApproved, dec("30"), time.Now().UTC())
				require.NoError(t, err)
				assert.Equal(t, sponsorship.StatusApproved, got.Status)
				assert.True(t, got.Amount.Equal(dec("30")))

				_, err = repo.DecidePending(ctx, s.ID, sponsorship.StatusRejected, dec("30"), time.Now().UTC())
				assert.ErrorIs(t, err, sponsorship.ErrAlreadyDecided)
				_, err = repo.DecidePending(ctx, uuid.NewString(), sponsorship.StatusRejected, dec("30"), time.Now().UTC())
				assert.ErrorIs(t, err, sponsorship.ErrNotFound)

				got, err = repo.GetSponsorship(ctx, s.ID)
				require.NoError(t, err)
				assert.Equal(t, sponsorship.StatusApproved, got.Status)
			})

			t.Run("rolled back with its transaction", func(t *testing.T) {
				s := newSponsorship(t, app, sponsor, student, "10")
				before := balance()
				errBoom := errors.New("boom")

				err := app.Tx.WithinTx(ctx, func(ctx context.Context) error {
					if _, err := repo.DecidePending(ctx, s.ID, sponsorship.StatusApproved, s.Amount, time.Now().UTC()); err != nil {
						return err
					}
					return errBoom
				})
				require.ErrorIs(t, err, errBoom)

				got, err := repo.GetSponsorship(ctx, s.ID)
				require.NoError(t, err)
				assert.Equal(t, sponsorship.StatusPending, got.Status)
				assert.True(t, balance().Equal(before))
			})
		})
	}
}

func TestUniqueConstraints(t *testing.T) {
	for _, eng := range testutil.Engines() {
		t.Run(eng.Name, func(t *testing.T) {
			ctx := context.Background()
			app := eng.New(t, nil)
			instructor := app.CreateMember(t, "teacher", user.GroupInstructor)
			student := app.CreateMember(t, "hero", user.GroupStudent)
			c := app.CreateCourse(t, instructor, "Go 101")
			app.Enroll(t, student, c)

			_, err := app.CourseRepo.CreateEnrollment(ctx, course.Enrollment{
				ID: uuid.NewString(), StudentID: student.ID, CourseID: c.ID,
				Status: course.EnrollmentActive, Progress: decimal.Zero, CreatedAt: time.Now().UTC(),
			})
			assert.ErrorIs(t, err, course.ErrAlreadyEnrolled)

			a, err := app.AssessmentRepo.CreateAssessment(ctx, assessment.Assessment{
				ID: uuid.NewString(), CourseID: c.ID, Title: "Essay", DueDate: time.Now().Add(24 * time.Hour).UTC(),
				MaxScore: 100, CreatedBy: instructor.ID, CreatedAt: time.Now().UTC(),
			})
			require.NoError(t, err)
			submit := func() error {
				_, err := app.AssessmentRepo.CreateSubmission(ctx, assessment.Submission{
					ID: uuid.NewString(), AssessmentID: a.ID, StudentID: student.ID, Content: "essay", SubmittedAt: time.Now().UTC(),
				})
				return err
			}
			require.NoError(t, submit())
			assert.ErrorIs(t, submit(), assessment.ErrDuplicateSubmission)
		})
	}
}
