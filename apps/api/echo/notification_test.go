package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/notification"
	"github.com/trezcool/elimu/core/user"
)

func Test_notificationApi(t *testing.T) {
	app, srv := setup(t)

	admin := app.CreateMember(t, "admin", user.GroupAdmin)
	hero := app.CreateMember(t, "hero", user.GroupStudent)
	other := app.CreateMember(t, "other", user.GroupStudent)
	heroToken := getToken(t, srv, hero)

	app.Notifications.Notify(ctx(), hero.ID, "hello", notification.TypeGeneral)
	app.Notifications.SendEmail(ctx(), hero.ID, notification.TypeGeneral, "Welcome", "Hello hero")

	code, list := doList(t, srv, "/v1/notifications", heroToken)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, list, 1)
	assert.Equal(t, false, list[0]["is_read"])
	id := list[0]["id"].(string)

	code, resp := do(t, srv, http.MethodPatch, "/v1/notifications/"+id+"/read", getToken(t, srv, other), nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", resp["kind"])

	code, resp = do(t, srv, http.MethodPatch, "/v1/notifications/"+id+"/read", heroToken, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["is_read"])

	code, _ = do(t, srv, http.MethodGet, "/v1/email-logs", heroToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, logs := doList(t, srv, "/v1/email-logs", getToken(t, srv, admin))
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, logs, 1)
	assert.Equal(t, "Welcome", logs[0]["subject"])
}
