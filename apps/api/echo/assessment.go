package echoapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/assessment"
	"github.com/trezcool/elimu/core/user"
)

type assessmentApi struct {
	svc *assessment.Service
}

func registerAssessmentAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *assessment.Service) {
	api := assessmentApi{svc: svc}

	ag := g.Group("/assessments", authed...)
	ag.POST("", api.create, requireRole(user.RoleInstructor, user.RoleAdmin))
	ag.POST("/:id/submissions", api.submit, requireRole(user.RoleStudent))

	sg := g.Group("/submissions", authed...)
	sg.GET("/:id", api.retrieveSubmission)
	sg.PATCH("/:id/grade", api.grade, requireRole(user.RoleInstructor, user.RoleAdmin))
}

// GradeRequest accepts the score as a JSON number or string.
type GradeRequest struct {
	Score json.RawMessage `json:"score"`
}

func (gr GradeRequest) rawScore() (string, error) {
	raw := strings.TrimSpace(string(gr.Score))
	if raw == "" || raw == "null" {
		return "", core.NewFieldError("score", "score is a required field")
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(gr.Score, &s); err != nil {
			return "", core.NewFieldError("score", "score must be a number")
		}
		return s, nil
	}
	return raw, nil
}

func (api *assessmentApi) create(ctx echo.Context) error {
	var data assessment.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	a, err := api.svc.Create(ctx.Request().Context(), getPrincipal(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating assessment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assessmentApi) submit(ctx echo.Context) error {
	var data assessment.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	sub, err := api.svc.Submit(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting assessment")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assessmentApi) retrieveSubmission(ctx echo.Context) error {
	sub, err := api.svc.GetSubmission(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *assessmentApi) grade(ctx echo.Context) error {
	var data GradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeRequest")
	}
	raw, err := data.rawScore()
	if err != nil {
		return err
	}
	sub, err := api.svc.Grade(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), raw)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
