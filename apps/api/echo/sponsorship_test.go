package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core/sponsorship"
	"github.com/trezcool/elimu/core/user"
)

func Test_sponsorshipApi_flow(t *testing.T) {
	app, srv := setup(t)

	admin := app.CreateMember(t, "admin", user.GroupAdmin)
	student := app.CreateMember(t, "student", user.GroupStudent)
	sponsorUsr := app.CreateMember(t, "acme", user.GroupSponsor)
	adminToken := getToken(t, srv, admin)
	studentToken := getToken(t, srv, student)
	sponsorToken := getToken(t, srv, sponsorUsr)

	// admin opens the sponsor account
	code, resp := do(t, srv, http.MethodPost, "/v1/sponsors", studentToken, sponsorship.NewSponsor{
		UserID: sponsorUsr.ID, CompanyName: "Acme", FundsProvided: decimal.NewFromInt(1000),
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = do(t, srv, http.MethodPost, "/v1/sponsors", adminToken, sponsorship.NewSponsor{
		UserID: sponsorUsr.ID, CompanyName: "Acme", FundsProvided: decimal.NewFromInt(1000),
	})
	require.Equal(t, http.StatusCreated, code, resp)
	sponsorID := resp["id"].(string)
	assert.Equal(t, "1000", resp["funds_provided"])

	// student applies
	code, resp = do(t, srv, http.MethodPost, "/v1/sponsorships", studentToken, SponsorshipRequest{
		SponsorID: sponsorID, Amount: decimal.NewFromInt(300),
	})
	require.Equal(t, http.StatusCreated, code, resp)
	assert.Equal(t, "pending", resp["status"])
	assert.Equal(t, student.ID, resp["student"])
	id := resp["id"].(string)

	// admins cannot decide
	code, resp = do(t, srv, http.MethodPatch, "/v1/sponsorships/"+id, adminToken, sponsorship.Decision{Status: sponsorship.StatusApproved})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "permission_denied", resp["kind"])

	code, resp = do(t, srv, http.MethodPatch, "/v1/sponsorships/"+id, sponsorToken, sponsorship.Decision{Status: "maybe"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp["fields"], "status")

	// an explicit amount must be a valid non-zero amount of money
	for _, body := range []rawJSON{`{"status": "approved", "amount": "0"}`, `{"status": "approved", "amount": "0.005"}`} {
		code, resp = do(t, srv, http.MethodPatch, "/v1/sponsorships/"+id, sponsorToken, body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Contains(t, resp["fields"], "amount")
	}

	code, resp = do(t, srv, http.MethodPatch, "/v1/sponsorships/"+id, sponsorToken, sponsorship.Decision{Status: sponsorship.StatusApproved})
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, "approved", resp["status"])

	sponsor, err := app.SponsorshipRepo.GetSponsor(context.Background(), sponsorID)
	require.NoError(t, err)
	assert.True(t, sponsor.FundsProvided.Equal(decimal.NewFromInt(700)))

	// terminal
	code, resp = do(t, srv, http.MethodPatch, "/v1/sponsorships/"+id, sponsorToken, sponsorship.Decision{Status: sponsorship.StatusRejected})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_state", resp["kind"])

	// the student sees it, a stranger does not
	code, resp = do(t, srv, http.MethodGet, "/v1/sponsorships/"+id, studentToken, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, resp["id"])

	stranger := app.CreateMember(t, "stranger", user.GroupStudent)
	code, resp = do(t, srv, http.MethodGet, "/v1/sponsorships/"+id, getToken(t, srv, stranger), nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", resp["kind"])
}

func Test_sponsorshipApi_fund(t *testing.T) {
	app, srv := setup(t)

	instructor := app.CreateMember(t, "teacher", user.GroupInstructor)
	student := app.CreateMember(t, "student", user.GroupStudent)
	sponsorUsr := app.CreateMember(t, "acme", user.GroupSponsor)
	app.CreateSponsor(t, sponsorUsr, "Acme", "500")
	sponsorToken := getToken(t, srv, sponsorUsr)

	tests := []struct {
		name     string
		token    string
		req      SponsorshipRequest
		wantCode int
		wantKind string
	}{
		{"not a sponsor nor student", getToken(t, srv, instructor), SponsorshipRequest{StudentID: student.ID, Amount: decimal.NewFromInt(10)}, http.StatusForbidden, "permission_denied"},
		{"zero amount", sponsorToken, SponsorshipRequest{StudentID: student.ID}, http.StatusBadRequest, "validation_error"},
		{"not a student", sponsorToken, SponsorshipRequest{StudentID: instructor.ID, Amount: decimal.NewFromInt(10)}, http.StatusBadRequest, "validation_error"},
		{"fraction of a cent", sponsorToken, SponsorshipRequest{StudentID: student.ID, Amount: decimal.RequireFromString("0.005")}, http.StatusBadRequest, "validation_error"},
		{"insufficient funds", sponsorToken, SponsorshipRequest{StudentID: student.ID, Amount: decimal.NewFromInt(501)}, http.StatusConflict, "insufficient_funds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := do(t, srv, http.MethodPost, "/v1/sponsorships", tt.token, tt.req)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantKind, resp["kind"])
		})
	}

	code, resp := do(t, srv, http.MethodPost, "/v1/sponsorships", sponsorToken, SponsorshipRequest{StudentID: student.ID, Amount: decimal.NewFromInt(500)})
	require.Equal(t, http.StatusCreated, code, resp)
	assert.Equal(t, "approved", resp["status"])

	req, rec := newAuthRequest(http.MethodGet, "/v1/sponsorships?status=approved", getToken(t, srv, student))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), resp["id"].(string))
}
