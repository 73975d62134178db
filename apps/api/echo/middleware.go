package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

// requireRole only lets principals holding one of roles through.
func requireRole(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p := getPrincipal(ctx)
			for _, r := range roles {
				if p.Role == r {
					return next(ctx)
				}
			}
			return core.ErrPermissionDenied
		}
	}
}
