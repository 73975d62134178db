package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
)

var kindStatus = map[core.ErrorKind]int{
	core.KindValidation:          http.StatusBadRequest,
	core.KindNotEnrolled:         http.StatusBadRequest,
	core.KindPermission:          http.StatusForbidden,
	core.KindNotFound:            http.StatusNotFound,
	core.KindInvalidState:        http.StatusConflict,
	core.KindInsufficientFunds:   http.StatusConflict,
	core.KindDuplicateSubmission: http.StatusConflict,
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Kind   core.ErrorKind    `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, resp := errorResponse(err, translator)

		if code == http.StatusInternalServerError {
			msg := http.StatusText(code)
			logger.Error(msg, errors.Wrap(err, msg), getPrincipal(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				resp.Error = err.Error()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func errorResponse(err error, translator ut.Translator) (int, ErrorResponse) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, ErrorResponse{Error: "missing or malformed jwt"}
		}
		if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
			httpErr = herr
		}
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, ErrorResponse{Error: msg}
	}

	kind := core.KindOf(err)
	code, ok := kindStatus[kind]
	if !ok {
		return http.StatusInternalServerError, ErrorResponse{Error: http.StatusText(http.StatusInternalServerError), Kind: core.KindInternal}
	}

	resp := ErrorResponse{Error: errors.Cause(err).Error(), Kind: kind}

	var vErrs validator.ValidationErrors
	var vErr *core.ValidationError
	switch {
	case errors.As(err, &vErrs):
		resp.Error = "invalid input"
		resp.Fields = core.TranslateErrors(vErrs, translator)
	case errors.As(err, &vErr):
		if len(vErr.Fields) > 0 {
			resp.Fields = make(map[string]string, len(vErr.Fields))
			for _, fErr := range vErr.Fields {
				resp.Fields[fErr.Field] = fErr.Error
			}
		}
		resp.Error = vErr.Error()
	}
	return code, resp
}
