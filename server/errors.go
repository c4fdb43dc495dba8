package server

import (
	"errors"
	"net/http"

	"github.com/ZaguanLabs/autotrans"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var (
	errMissingTarget = echo.NewHTTPError(http.StatusBadRequest, "target_language is required")
	errMissingText   = echo.NewHTTPError(http.StatusBadRequest, "text is required")
	errMissingTexts  = echo.NewHTTPError(http.StatusBadRequest, "texts is required")
	errMalformedBody = echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
)

// newHTTPErrorHandler maps handler errors to JSON responses. Upstream
// translation failures become 502 so that clients keep their originals
// and do not cache anything.
func newHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message string

		var httpErr *echo.HTTPError
		var translationErr *autotrans.TranslationError
		switch {
		case errors.As(err, &httpErr):
			if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
				httpErr = herr
			}
			code = httpErr.Code
			if m, ok := httpErr.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		case errors.As(err, &translationErr):
			code = http.StatusBadGateway
			message = "translation provider failed"
			logger.Warn(message, zap.Error(err))
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(code)
			logger.Error(message, zap.Error(err))
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}

		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, echo.Map{"error": message})
			}
			if err != nil {
				logger.Error("writing error response failed", zap.Error(err))
			}
		}
	}
}
