package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
)

type quizApi struct {
	svc *quiz.Service
}

func registerQuizAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *quiz.Service) {
	api := quizApi{svc: svc}

	qg := g.Group("/quizzes", authed...)
	qg.POST("", api.create, requireRole(user.RoleInstructor, user.RoleAdmin))
	qg.GET("/:id", api.retrieve)
	qg.PUT("/:id", api.update, requireRole(user.RoleInstructor, user.RoleAdmin))
	qg.POST("/:id/submissions", api.submit, requireRole(user.RoleStudent))

	g.GET("/quiz-submissions/:id", api.retrieveSubmission, authed...)
}

type (
	answerResponse struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		IsCorrect *bool  `json:"is_correct,omitempty"`
	}

	questionResponse struct {
		ID      string           `json:"id"`
		Text    string           `json:"text"`
		Answers []answerResponse `json:"answers"`
	}

	// QuizResponse omits is_correct on quizzes shown to students.
	QuizResponse struct {
		ID          string             `json:"id"`
		CourseID    string             `json:"course"`
		Title       string             `json:"title"`
		Description string             `json:"description"`
		CreatedBy   string             `json:"created_by"`
		CreatedAt   time.Time          `json:"created_at"`
		UpdatedAt   time.Time          `json:"updated_at"`
		Questions   []questionResponse `json:"questions"`
	}
)

func newQuizResponse(q quiz.Quiz) QuizResponse {
	resp := QuizResponse{
		ID:          q.ID,
		CourseID:    q.CourseID,
		Title:       q.Title,
		Description: q.Description,
		CreatedBy:   q.CreatedBy,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
		Questions:   make([]questionResponse, 0, len(q.Questions)),
	}
	for _, qn := range q.Questions {
		qr := questionResponse{ID: qn.ID, Text: qn.Text, Answers: make([]answerResponse, 0, len(qn.Answers))}
		for _, a := range qn.Answers {
			ar := answerResponse{ID: a.ID, Text: a.Text}
			if !q.IsRedacted() {
				isCorrect := a.IsCorrect
				ar.IsCorrect = &isCorrect
			}
			qr.Answers = append(qr.Answers, ar)
		}
		resp.Questions = append(resp.Questions, qr)
	}
	return resp
}

func (api *quizApi) create(ctx echo.Context) error {
	var data quiz.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	q, err := api.svc.CreateQuiz(ctx.Request().Context(), getPrincipal(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, newQuizResponse(q))
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	q, err := api.svc.GetQuiz(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding quiz")
	}
	return ctx.JSON(http.StatusOK, newQuizResponse(q))
}

func (api *quizApi) update(ctx echo.Context) error {
	var data quiz.UpdateQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuiz")
	}
	q, err := api.svc.UpdateQuiz(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating quiz")
	}
	return ctx.JSON(http.StatusOK, newQuizResponse(q))
}

func (api *quizApi) submit(ctx echo.Context) error {
	var data quiz.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	sub, err := api.svc.Submit(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting quiz")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *quizApi) retrieveSubmission(ctx echo.Context) error {
	sub, err := api.svc.GetSubmission(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding quiz submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
