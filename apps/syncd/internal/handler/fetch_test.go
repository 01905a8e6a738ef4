package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synclinehq/syncline/apps/syncd/internal/gitstore"
)

type fetchResponse struct {
	Files   []gitstore.FileRecord `json:"files"`
	Skipped int                   `json:"skipped"`
}

func decodeFetch(t *testing.T, body []byte) fetchResponse {
	t.Helper()
	var res fetchResponse
	require.NoError(t, json.Unmarshal(body, &res))
	return res
}

func fetchedPaths(res fetchResponse) []string {
	out := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		out = append(out, f.Path)
	}
	return out
}

// ─── GET /v1/repos/:owner/:repo/files ────────────────────────────────────────

func TestFetchEndpoint_AllFiles(t *testing.T) {
	ts := newTestServer(t)
	ts.store.SeedRepository("octocat", "demo", map[string]string{
		"a.ts": "export {}\n",
		"b.md": "# b\n",
	})

	w := ts.do(http.MethodGet, "/v1/repos/octocat/demo/files", nil)
	require.Equal(t, http.StatusOK, w.Code)

	res := decodeFetch(t, w.Body.Bytes())
	assert.ElementsMatch(t, []string{"a.ts", "b.md"}, fetchedPaths(res))
	assert.Equal(t, 0, res.Skipped)
}

func TestFetchEndpoint_ExtensionFilter(t *testing.T) {
	ts := newTestServer(t)
	ts.store.SeedRepository("octocat", "demo", map[string]string{
		"a.ts": "export {}\n",
		"b.py": "b = 2\n",
		"c.md": "# c\n",
	})

	w := ts.do(http.MethodGet, "/v1/repos/octocat/demo/files?ext=ts,md", nil)
	require.Equal(t, http.StatusOK, w.Code)

	res := decodeFetch(t, w.Body.Bytes())
	assert.ElementsMatch(t, []string{"a.ts", "c.md"}, fetchedPaths(res))
	assert.Equal(t, 1, res.Skipped)
}

func TestFetchEndpoint_MaxSizeAndExclude(t *testing.T) {
	ts := newTestServer(t)
	id := ts.store.SeedRepository("octocat", "demo", map[string]string{
		"keep.txt":      "small",
		"big.txt":       "reported big",
		"vendor/lib.go": "package lib\n",
	})
	ts.store.Repo(id).SizeOverrides["big.txt"] = 10_000

	w := ts.do(http.MethodGet, "/v1/repos/octocat/demo/files?maxSize=100&exclude=vendor/*", nil)
	require.Equal(t, http.StatusOK, w.Code)

	res := decodeFetch(t, w.Body.Bytes())
	assert.Equal(t, []string{"keep.txt"}, fetchedPaths(res))
	assert.Equal(t, 2, res.Skipped)
}

func TestFetchEndpoint_SourcePreset(t *testing.T) {
	ts := newTestServer(t)
	ts.store.SeedRepository("octocat", "demo", map[string]string{
		"src/index.ts":      "export {}\n",
		"package-lock.json": "{}\n",
	})

	w := ts.do(http.MethodGet, "/v1/repos/octocat/demo/files?preset=source", nil)
	require.Equal(t, http.StatusOK, w.Code)

	res := decodeFetch(t, w.Body.Bytes())
	assert.Equal(t, []string{"src/index.ts"}, fetchedPaths(res))
	assert.Equal(t, 1, res.Skipped)
}

func TestFetchEndpoint_Branch(t *testing.T) {
	ts := newTestServer(t)
	id := ts.store.SeedRepository("octocat", "demo", map[string]string{"main.txt": "main"})
	repo := ts.store.Repo(id)
	repo.Refs["feature-x"] = repo.Refs["main"]

	w := ts.do(http.MethodGet, "/v1/repos/octocat/demo/files?branch=feature-x", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"main.txt"}, fetchedPaths(decodeFetch(t, w.Body.Bytes())))
}

func TestFetchEndpoint_UnknownRepo_Returns404(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/v1/repos/octocat/ghost/files", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestFetchEndpoint_EmptyResultIsJSONArray(t *testing.T) {
	ts := newTestServer(t)
	ts.store.SeedRepository("octocat", "demo", map[string]string{"a.py": "a = 1\n"})

	w := ts.do(http.MethodGet, "/v1/repos/octocat/demo/files?ext=ts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"files":[]`)
}
