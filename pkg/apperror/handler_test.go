package apperror

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h echo.HTTPErrorHandler, method string, accept string, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/api/concepts/1", nil)
	if accept != "" {
		req.Header.Set(echo.HeaderAccept, accept)
	}
	rec := httptest.NewRecorder()
	h(err, e.NewContext(req, rec))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["error"].(map[string]any)
}

func TestHTTPErrorHandler_AppError(t *testing.T) {
	rec := serve(t, HTTPErrorHandler(slog.Default()), http.MethodPost, "", ErrMergeCycle.WithDetails(map[string]any{"target": "c2"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	obj := decodeError(t, rec)
	assert.Equal(t, "merge_cycle", obj["code"])
	assert.Equal(t, map[string]any{"target": "c2"}, obj["details"])
}

func TestHTTPErrorHandler_EchoErrorStatusCodes(t *testing.T) {
	tests := []struct {
		status   int
		wantCode string
	}{
		{http.StatusUnauthorized, "unauthorized"},
		{http.StatusForbidden, "forbidden"},
		{http.StatusNotFound, "not_found"},
		{http.StatusBadRequest, "bad_request"},
		{http.StatusConflict, "conflict"},
		{http.StatusUnprocessableEntity, "validation_error"},
		{http.StatusTooManyRequests, "rate_limited"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			rec := serve(t, HTTPErrorHandler(slog.Default()), http.MethodGet, "", echo.NewHTTPError(tt.status, "msg"))
			assert.Equal(t, tt.status, rec.Code)
			obj := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, obj["code"])
			assert.Equal(t, "msg", obj["message"])
		})
	}
}

func TestHTTPErrorHandler_StructuredEchoError(t *testing.T) {
	rec := serve(t, HTTPErrorHandler(slog.Default()), http.MethodGet, "", ErrIncompleteTemplate.ToEchoError())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "incomplete_template", decodeError(t, rec)["code"])
}

func TestHTTPErrorHandler_UnknownError(t *testing.T) {
	rec := serve(t, HTTPErrorHandler(slog.Default()), http.MethodGet, "", errors.New("kaboom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	obj := decodeError(t, rec)
	assert.Equal(t, "internal_error", obj["code"])
	assert.NotContains(t, rec.Body.String(), "kaboom")
}

func TestHTTPErrorHandler_HeadRequest(t *testing.T) {
	rec := serve(t, HTTPErrorHandler(slog.Default()), http.MethodHead, "", ErrNotFound)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHTTPErrorHandler_CommittedResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, c.String(http.StatusOK, "done"))

	HTTPErrorHandler(slog.Default())(ErrInternal, c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
}

func TestHTTPErrorHandler_ForbiddenPage(t *testing.T) {
	page := func(c echo.Context) error {
		return c.HTML(http.StatusForbidden, "<h1>403 Forbidden</h1>")
	}
	h := HTTPErrorHandler(slog.Default(), WithForbiddenPage(page))

	t.Run("browser gets html", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "text/html,application/xhtml+xml", ErrForbidden)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "403 Forbidden")
	})

	t.Run("api client gets json", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "application/json", ErrForbidden)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "forbidden", decodeError(t, rec)["code"])
	})

	t.Run("other statuses stay json", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "text/html", ErrNotFound)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeError(t, rec)["code"])
	})
}
