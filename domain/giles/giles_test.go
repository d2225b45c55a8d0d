package giles

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/pkg/apperror"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, h http.HandlerFunc, appToken string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := &config.Config{Giles: config.GilesConfig{
		URL:               srv.URL + "/",
		AppToken:          appToken,
		Timeout:           5 * time.Second,
		RequestsPerSecond: 100,
	}}
	return NewClient(cfg, testLogger())
}

func TestClient_ExchangeToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/token", r.URL.Path)
		assert.Equal(t, "token app-secret", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "provider-abc", r.PostForm.Get("providerToken"))
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "giles-123"})
	}, "app-secret")

	token, err := c.ExchangeToken(context.Background(), "provider-abc")
	require.NoError(t, err)
	assert.Equal(t, "giles-123", token)
}

func TestClient_ExchangeToken_NotConfigured(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, "")

	assert.False(t, c.Configured())
	_, err := c.ExchangeToken(context.Background(), "provider-abc")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_ExchangeToken_EmptyToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, "app")

	_, err := c.ExchangeToken(context.Background(), "provider-abc")
	assert.Error(t, err)
}

func TestClient_Uploads(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/files/uploads", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"UP1","uploadedDate":"2024-01-02","documents":[
			{"documentId":"DOC1","uploadedFile":{"id":"F1","filename":"guide.pdf","url":"https://giles/f/F1"},
			 "extractedText":{"id":"T1","filename":"guide.txt","content-type":"text/plain"}}]}]`))
	}, "app")

	uploads, err := c.Uploads(context.Background(), "user-token")
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "UP1", uploads[0].ID)
	require.Len(t, uploads[0].Documents, 1)
	doc := uploads[0].Documents[0]
	assert.Equal(t, "guide.pdf", doc.UploadedFile.Filename)
	require.NotNil(t, doc.ExtractedText)
	assert.Equal(t, "text/plain", doc.ExtractedText.ContentType)
}

func TestClient_UploadsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}, "app")

	uploads, err := c.Uploads(context.Background(), "user-token")
	require.NoError(t, err)
	assert.NotNil(t, uploads)
	assert.Empty(t, uploads)
}

func TestClient_Upload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/files/upload/check/UP1", r.URL.Path)
		_, _ = w.Write([]byte(`[{"documentId":"DOC1"},{"documentId":"DOC2"}]`))
	}, "app")

	up, err := c.Upload(context.Background(), "user-token", "UP1")
	require.NoError(t, err)
	assert.Equal(t, "UP1", up.ID)
	assert.Len(t, up.Documents, 2)
}

func TestClient_FileContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/files/T1/content", r.URL.Path)
		_, _ = w.Write([]byte("Don't panic."))
	}, "app")

	content, err := c.FileContent(context.Background(), "user-token", "T1")
	require.NoError(t, err)
	assert.Equal(t, "Don't panic.", content)
}

func TestClient_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("expired"))
	}, "app")

	_, err := c.Uploads(context.Background(), "user-token")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.Equal(t, "expired", se.Body)
	assert.Contains(t, err.Error(), "status 401")
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, "app")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Uploads(ctx, "user-token")
	assert.Error(t, err)
}

func TestUpstreamError(t *testing.T) {
	err := upstreamError(&StatusError{Status: http.StatusUnauthorized})
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))

	err = upstreamError(&StatusError{Status: http.StatusBadGateway})
	assert.True(t, errors.Is(err, apperror.ErrServiceUnavailable))

	err = upstreamError(errors.New("dial tcp: refused"))
	assert.True(t, errors.Is(err, apperror.ErrServiceUnavailable))
}

func TestImportRequest(t *testing.T) {
	s := &Service{client: &Client{baseURL: "https://giles.example.org"}}

	req := s.importRequest(Document{
		DocumentID:   "DOC1",
		UploadedFile: File{Filename: "guide.pdf", URL: "https://giles.example.org/files/F1"},
	}, "repo-1", "u-1")
	assert.Equal(t, "guide.pdf", req.Title)
	assert.Equal(t, "https://giles.example.org/documents/DOC1", req.URI)
	assert.Equal(t, "https://giles.example.org/files/F1", req.DocumentLocation)
	assert.Equal(t, "repo-1", req.RepositoryID)
	assert.Equal(t, "u-1", req.AddedBy)

	req = s.importRequest(Document{DocumentID: "DOC2"}, "repo-1", "u-1")
	assert.Equal(t, "DOC2", req.Title)
}

func TestImportHandler_RejectsBadPayload(t *testing.T) {
	h := NewImportHandler(nil)
	assert.Equal(t, TaskImportUpload, h.Name())

	assert.Error(t, h.Handle(context.Background(), json.RawMessage(`{`)))
	assert.Error(t, h.Handle(context.Background(), json.RawMessage(`{"userId":"u-1"}`)))
}
