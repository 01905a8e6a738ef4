package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synclinehq/syncline/apps/syncd/internal/gitstore"
)

type publishBody struct {
	Files           []gitstore.FileRecord `json:"files"`
	CommitMessage   string                `json:"commitMessage"`
	BaseBranch      string                `json:"baseBranch,omitempty"`
	NewBranch       string                `json:"newBranch,omitempty"`
	RepoDescription string                `json:"repoDescription,omitempty"`
}

// ─── POST /v1/repos/:owner/:repo/publish ─────────────────────────────────────

func TestPublishEndpoint_Created(t *testing.T) {
	ts := newTestServer(t)
	ts.store.SeedRepository("octocat", "demo", map[string]string{"README.md": "# demo\n"})

	w := ts.do(http.MethodPost, "/v1/repos/octocat/demo/publish", publishBody{
		Files:         []gitstore.FileRecord{{Path: "main.go", Content: "package main\n"}},
		CommitMessage: "add main",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var res struct {
		CommitSHA string `json:"commitSha"`
		RepoURL   string `json:"repoUrl"`
		BranchURL string `json:"branchUrl"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.CommitSHA)
	assert.Equal(t, "https://github.com/octocat/demo", res.RepoURL)
	assert.True(t, strings.HasSuffix(res.BranchURL, "/tree/main"))
}

func TestPublishEndpoint_CreatesRepository(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/v1/repos/octocat/fresh/publish", publishBody{
		Files:           []gitstore.FileRecord{{Path: "a.txt", Content: "x"}},
		CommitMessage:   "first",
		RepoDescription: "imported",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotNil(t, ts.store.Repo(gitstore.RepositoryIdentity{Owner: "octocat", Name: "fresh"}))
}

func TestPublishEndpoint_NewBranch(t *testing.T) {
	ts := newTestServer(t)
	id := ts.store.SeedRepository("octocat", "demo", map[string]string{"README.md": "# demo\n"})

	w := ts.do(http.MethodPost, "/v1/repos/octocat/demo/publish", publishBody{
		Files:         []gitstore.FileRecord{{Path: "f.go", Content: "package f\n"}},
		CommitMessage: "feature",
		NewBranch:     "feature-x",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var res struct {
		CommitSHA string `json:"commitSha"`
		BranchURL string `json:"branchUrl"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, strings.HasSuffix(res.BranchURL, "/tree/feature-x"))
	assert.Equal(t, res.CommitSHA, ts.store.Repo(id).Refs["feature-x"])
}

func TestPublishEndpoint_BadJSON_Returns400(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/repos/octocat/demo/publish",
		bytes.NewBufferString(`{bad`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishEndpoint_MissingCommitMessage_Returns400(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodPost, "/v1/repos/octocat/demo/publish", publishBody{
		Files: []gitstore.FileRecord{{Path: "a.txt", Content: "x"}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishEndpoint_NoValidFiles_Returns422(t *testing.T) {
	ts := newTestServer(t)
	ts.store.SeedRepository("octocat", "demo", map[string]string{"README.md": "# demo\n"})

	w := ts.do(http.MethodPost, "/v1/repos/octocat/demo/publish", publishBody{
		Files:         []gitstore.FileRecord{{Path: "a.txt", Content: "   "}},
		CommitMessage: "nothing",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPublishEndpoint_EmptyRepo_Returns409(t *testing.T) {
	ts := newTestServer(t)
	id := ts.store.SeedRepository("octocat", "demo", map[string]string{"README.md": "# demo\n"})
	ts.store.FailNext("GetBranchHead", &gitstore.ConflictError{Repo: id})

	w := ts.do(http.MethodPost, "/v1/repos/octocat/demo/publish", publishBody{
		Files:         []gitstore.FileRecord{{Path: "a.txt", Content: "x"}},
		CommitMessage: "x",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "empty")
}

func TestPublishEndpoint_BadCredential_Returns401(t *testing.T) {
	ts := newTestServer(t)
	ts.store.FailNext("VerifyCredential", &gitstore.AuthError{Message: "Bad credentials"})

	w := ts.do(http.MethodPost, "/v1/repos/octocat/demo/publish", publishBody{
		Files:         []gitstore.FileRecord{{Path: "a.txt", Content: "x"}},
		CommitMessage: "x",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPublishEndpoint_PersistentTransportFailure_Returns502(t *testing.T) {
	ts := newTestServer(t)
	ts.store.FailNext("VerifyCredential", &gitstore.TransportError{Op: "verify credential"})
	ts.store.FailNext("VerifyCredential", &gitstore.TransportError{Op: "verify credential"})

	w := ts.do(http.MethodPost, "/v1/repos/octocat/demo/publish", publishBody{
		Files:         []gitstore.FileRecord{{Path: "a.txt", Content: "x"}},
		CommitMessage: "x",
	})
	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestPublishEndpoint_ForwardsBearerToken(t *testing.T) {
	ts := newTestServer(t)
	ts.store.SeedRepository("octocat", "demo", map[string]string{"README.md": "# demo\n"})

	body, _ := json.Marshal(publishBody{
		Files:         []gitstore.FileRecord{{Path: "a.txt", Content: "x"}},
		CommitMessage: "x",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/repos/octocat/demo/publish", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer ghp_testtoken")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ghp_testtoken", ts.lastToken)
}

// ─── Request validation middleware ───────────────────────────────────────────

func TestPublishEndpoint_SchemaValidation_RejectsEmptyFiles(t *testing.T) {
	ts := newTestServerWithValidation(t)
	ts.store.SeedRepository("octocat", "demo", map[string]string{"README.md": "# demo\n"})

	w := ts.do(http.MethodPost, "/v1/repos/octocat/demo/publish", publishBody{
		Files:         []gitstore.FileRecord{},
		CommitMessage: "x",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishEndpoint_SchemaValidation_AcceptsWellFormed(t *testing.T) {
	ts := newTestServerWithValidation(t)
	ts.store.SeedRepository("octocat", "demo", map[string]string{"README.md": "# demo\n"})

	w := ts.do(http.MethodPost, "/v1/repos/octocat/demo/publish", publishBody{
		Files:         []gitstore.FileRecord{{Path: "a.txt", Content: "x"}},
		CommitMessage: "x",
	})
	require.Equal(t, http.StatusCreated, w.Code)
}

// ─── GET /health ─────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
