package echoapi_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

func Test_courseApi(t *testing.T) {
	app, srv := setup(t)

	instructor := app.CreateMember(t, "teacher", user.GroupInstructor)
	student := app.CreateMember(t, "student", user.GroupStudent)
	studentToken := getToken(t, srv, student)

	nc := course.NewCourse{Title: " Go 101 ", Description: "Learn Go", DifficultyLevel: "beginner"}

	code, resp := do(t, srv, http.MethodPost, "/v1/courses", studentToken, nc)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "permission_denied", resp["kind"])

	code, resp = do(t, srv, http.MethodPost, "/v1/courses", getToken(t, srv, instructor), course.NewCourse{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp["fields"], "title")

	code, resp = do(t, srv, http.MethodPost, "/v1/courses", getToken(t, srv, instructor), nc)
	require.Equal(t, http.StatusCreated, code, resp)
	assert.Equal(t, "Go 101", resp["title"])
	assert.Equal(t, instructor.ID, resp["created_by"])
	courseID := resp["id"].(string)

	code, _ = do(t, srv, http.MethodGet, "/v1/courses/"+courseID, studentToken, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, srv, http.MethodGet, "/v1/courses/nope", studentToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	// enrollment
	code, resp = do(t, srv, http.MethodPost, "/v1/courses/"+courseID+"/enrollments", studentToken, nil)
	require.Equal(t, http.StatusCreated, code, resp)
	assert.Equal(t, "active", resp["status"])

	code, resp = do(t, srv, http.MethodPost, "/v1/courses/"+courseID+"/enrollments", studentToken, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_state", resp["kind"])

	code, list := doList(t, srv, "/v1/notifications", studentToken)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, list, 1)
	assert.Equal(t, "You have successfully enrolled in Go 101.", list[0]["message"])
	assert.Equal(t, "Enrollment", list[0]["notification_type"])

	sent := app.Mailer.SentMessages()
	require.Len(t, sent, 1)
	assert.True(t, strings.HasSuffix(sent[0].Subject, "Course Enrollment Confirmation"), sent[0].Subject)
}
