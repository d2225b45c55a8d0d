package apperror

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// PageRenderer writes an HTML error page for the current request.
type PageRenderer func(c echo.Context) error

type handlerOptions struct {
	forbiddenPage PageRenderer
}

// HandlerOption customises HTTPErrorHandler.
type HandlerOption func(*handlerOptions)

// WithForbiddenPage renders 403 responses as HTML for browser requests.
func WithForbiddenPage(r PageRenderer) HandlerOption {
	return func(o *handlerOptions) { o.forbiddenPage = r }
}

// HTTPErrorHandler returns the Echo error handler used by the server.
// Responses are shaped as {"error": {"code", "message", "details"}}.
func HTTPErrorHandler(log *slog.Logger, opts ...HandlerOption) echo.HTTPErrorHandler {
	var o handlerOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		errorObj := map[string]any{
			"code":    "internal_error",
			"message": "An internal error occurred",
		}

		var appErr *Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			code = appErr.HTTPStatus
			for k, v := range appErr.body() {
				errorObj[k] = v
			}
		case errors.As(err, &he):
			code = he.Code
			if msgMap, ok := he.Message.(map[string]any); ok {
				if errInner, ok := msgMap["error"].(map[string]any); ok {
					for k, v := range errInner {
						errorObj[k] = v
					}
				}
			} else if msg, ok := he.Message.(string); ok {
				errorObj["message"] = msg
				errorObj["code"] = codeForStatus(code)
			}
		}

		if code >= 500 {
			log.Error("request error",
				slog.Int("status", code),
				slog.String("path", c.Request().URL.Path),
				slog.String("error", err.Error()),
			)
		}

		if code == http.StatusForbidden && o.forbiddenPage != nil && acceptsHTML(c.Request()) {
			if rerr := o.forbiddenPage(c); rerr != nil {
				log.Error("render forbidden page", slog.String("error", rerr.Error()))
			}
			return
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, map[string]any{"error": errorObj})
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_error"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "internal_error"
	}
}

// acceptsHTML reports whether the client prefers an HTML response.
func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
