package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/notification"
)

type notificationApi struct {
	svc *notification.Dispatcher
}

func registerNotificationAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *notification.Dispatcher) {
	api := notificationApi{svc: svc}

	ng := g.Group("/notifications", authed...)
	ng.GET("", api.list)
	ng.PATCH("/:id/read", api.markRead)

	g.GET("/email-logs", api.emailLogs, authed...)
}

func (api *notificationApi) list(ctx echo.Context) error {
	list, err := api.svc.ListForUser(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	n, err := api.svc.MarkRead(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking notification as read")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) emailLogs(ctx echo.Context) error {
	logs, err := api.svc.ListEmailLogs(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return errors.Wrap(err, "listing email logs")
	}
	return ctx.JSON(http.StatusOK, logs)
}
