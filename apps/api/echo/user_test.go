package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

func Test_userApi_login(t *testing.T) {
	app, srv := setup(t)

	testutil.CreateUser(t, app.UserRepo, "Hero", "hero", "hero@test.cd", "pass", []string{user.GroupStudent}, true)
	testutil.CreateUser(t, app.UserRepo, "N Dog", "ndog", "ndog@test.cd", "pass", []string{user.GroupStudent}, false)

	tests := []httpTest{
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, LoginRequest{Username: "nobody", Password: "pass"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, LoginRequest{Username: "hero", Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, LoginRequest{Username: "ndog", Password: "pass"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	runTests(t, srv, tests)

	t.Run("username or email", func(t *testing.T) {
		for _, uname := range []string{"hero", "HERO ", "hero@test.cd"} {
			code, resp := do(t, srv, http.MethodPost, "/v1/users/login", "", LoginRequest{Username: uname, Password: "pass"})
			assert.Equal(t, http.StatusOK, code, uname)
			assert.NotEmpty(t, resp["token"], uname)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		code, resp := do(t, srv, http.MethodPost, "/v1/users/login", "", LoginRequest{})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "validation_error", resp["kind"])
		assert.Contains(t, resp["fields"], "username")
		assert.Contains(t, resp["fields"], "password")
	})

	t.Run("token works", func(t *testing.T) {
		_, resp := do(t, srv, http.MethodPost, "/v1/users/login", "", LoginRequest{Username: "hero", Password: "pass"})
		code, me := do(t, srv, http.MethodGet, "/v1/users/me", resp["token"].(string), nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "hero", me["username"])
		assert.NotContains(t, me, "password_hash")
	})
}

func Test_userApi_me(t *testing.T) {
	app, srv := setup(t)

	hero := app.CreateMember(t, "hero", user.GroupStudent)
	naughty := testutil.CreateUser(t, app.UserRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.GroupStudent}, false)
	ghost := user.User{ID: "ghost", Username: "ghost", Roles: []string{user.GroupAdmin}, IsActive: true}

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "deactivated after token issued", path: "/v1/users/me", token: getToken(t, srv, naughty),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name: "unknown subject", path: "/v1/users/me", token: getToken(t, srv, ghost),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{name: "OK", path: "/v1/users/me", token: getToken(t, srv, hero), wantCode: http.StatusOK, wantData: marchallObj(t, hero)},
	}
	runTests(t, srv, tests)
}

func Test_userApi_roles(t *testing.T) {
	app, srv := setup(t)

	admin := app.CreateMember(t, "admin", user.GroupAdmin)
	student := app.CreateMember(t, "student", user.GroupStudent)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/roles", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users/roles", token: getToken(t, srv, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied", Kind: "permission_denied"}),
		},
		{name: "OK", path: "/v1/users/roles", token: getToken(t, srv, admin), wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)},
	}
	runTests(t, srv, tests)
}

func Test_userApi_create(t *testing.T) {
	app, srv := setup(t)

	admin := app.CreateMember(t, "admin", user.GroupAdmin)
	adminToken := getToken(t, srv, admin)

	newUser := func(uname string, roles ...string) user.NewUser {
		return user.NewUser{
			Name:            uname,
			Username:        uname,
			Email:           uname + "@test.cd",
			Password:        "secret",
			PasswordConfirm: "secret",
			Roles:           roles,
		}
	}

	t.Run("admin registers an instructor", func(t *testing.T) {
		code, resp := do(t, srv, http.MethodPost, "/v1/users/register", adminToken, newUser("teacher", user.GroupInstructor))
		assert.Equal(t, http.StatusCreated, code)
		assert.Equal(t, []interface{}{user.GroupInstructor}, resp["roles"])
		assert.Equal(t, true, resp["is_active"])
	})

	t.Run("register is admin only", func(t *testing.T) {
		token := getToken(t, srv, app.CreateMember(t, "student", user.GroupStudent))
		code, resp := do(t, srv, http.MethodPost, "/v1/users/register", token, newUser("other", user.GroupStudent))
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "permission_denied", resp["kind"])
	})

	t.Run("self sign-up", func(t *testing.T) {
		code, resp := do(t, srv, http.MethodPost, "/v1/users/signup", "", newUser("newbie"))
		assert.Equal(t, http.StatusCreated, code)
		assert.Equal(t, []interface{}{user.GroupStudent}, resp["roles"])

		code, resp = do(t, srv, http.MethodPost, "/v1/users/signup", "", newUser("boss", user.GroupInstructor))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, resp["fields"], "roles")

		code, resp = do(t, srv, http.MethodPost, "/v1/users/signup", "", newUser("newbie"))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, resp["fields"], "username")
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	app, srv := setup(t)
	hero := app.CreateMember(t, "hero", user.GroupStudent)

	code, resp := do(t, srv, http.MethodPost, "/v1/users/token-refresh", getToken(t, srv, hero), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, resp["token"])

	req, rec := newRequest(http.MethodPost, "/v1/users/token-refresh")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
