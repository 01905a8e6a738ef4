package handler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/synclinehq/syncline/apps/syncd/internal/gitstore"
	"github.com/synclinehq/syncline/apps/syncd/internal/handler"
	"github.com/synclinehq/syncline/apps/syncd/internal/platform/validation"
	"github.com/synclinehq/syncline/apps/syncd/internal/publish"
	"github.com/synclinehq/syncline/schemas"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ─── Test server builder ──────────────────────────────────────────────────────

type testServer struct {
	router *gin.Engine
	store  *gitstore.InMem

	// lastToken records the bearer token the factory was handed.
	lastToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{store: gitstore.NewInMem()}

	factory := func(token string) gitstore.Client {
		ts.lastToken = token
		return ts.store
	}

	r := gin.New()
	handler.RegisterRoutes(r, factory, slog.Default(),
		publish.WithCreationGrace(0),
		publish.WithRetry(2, time.Millisecond))
	ts.router = r
	return ts
}

func newTestServerWithValidation(t *testing.T) *testServer {
	t.Helper()
	ts := newTestServer(t)

	mw, err := validation.New(schemas.OpenAPISpec)
	require.NoError(t, err)

	r := gin.New()
	r.Use(mw)
	handler.RegisterRoutes(r, func(string) gitstore.Client { return ts.store }, slog.Default(),
		publish.WithCreationGrace(0),
		publish.WithRetry(2, time.Millisecond))
	ts.router = r
	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}
