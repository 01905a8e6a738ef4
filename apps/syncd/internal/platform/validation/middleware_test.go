package validation_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synclinehq/syncline/apps/syncd/internal/platform/validation"
	"github.com/synclinehq/syncline/schemas"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	mw, err := validation.New(schemas.OpenAPISpec)
	require.NoError(t, err)

	r := gin.New()
	r.Use(mw)
	r.POST("/v1/repos/:owner/:repo/publish", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/v1/repos/:owner/:repo/files", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ─── publishCommit ───────────────────────────────────────────────────────────

func TestPublish_MissingCommitMessage_Returns400(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodPost, "/v1/repos/octocat/demo/publish",
		`{"files":[{"path":"a.txt","content":"x"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestPublish_EmptyFilesArray_Returns400(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodPost, "/v1/repos/octocat/demo/publish",
		`{"files":[],"commitMessage":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublish_FileWithoutContent_Returns400(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodPost, "/v1/repos/octocat/demo/publish",
		`{"files":[{"path":"a.txt"}],"commitMessage":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublish_ValidPayload_Passes(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodPost, "/v1/repos/octocat/demo/publish",
		`{"files":[{"path":"a.txt","content":"x"}],"commitMessage":"add a","newBranch":"feature-x"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

// ─── fetchRepositoryFiles ────────────────────────────────────────────────────

func TestFetch_UnknownPreset_Returns400(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodGet, "/v1/repos/octocat/demo/files?preset=everything", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFetch_NonNumericMaxSize_Returns400(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodGet, "/v1/repos/octocat/demo/files?maxSize=huge", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFetch_ValidQuery_Passes(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodGet, "/v1/repos/octocat/demo/files?branch=main&ext=ts,md&maxSize=1024", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// ─── routes outside the spec pass through ────────────────────────────────────

func TestHealth_PassesThrough(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// ─── New() with invalid spec ─────────────────────────────────────────────────

func TestNew_InvalidSpec_ReturnsError(t *testing.T) {
	_, err := validation.New([]byte(`not yaml`))
	assert.Error(t, err)
}
