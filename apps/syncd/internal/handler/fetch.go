package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/synclinehq/syncline/apps/syncd/internal/fetch"
	"github.com/synclinehq/syncline/apps/syncd/internal/gitstore"
)

// Fetch handles GET /v1/repos/:owner/:repo/files — a filtered tree walk.
// Query params: branch, ext (comma-separated), exclude (comma-separated),
// maxSize (bytes), includeBinary, preset=source.
func (h *Handler) Fetch(c *gin.Context) {
	repo := gitstore.RepositoryIdentity{
		Owner: c.Param("owner"),
		Name:  c.Param("repo"),
	}
	branch := c.DefaultQuery("branch", "main")

	store := h.clients(bearerToken(c))
	walker := fetch.New(store, h.log)

	var (
		result *fetch.Result
		err    error
	)
	if c.Query("preset") == "source" {
		result, err = walker.FetchSourceCode(c.Request.Context(), repo, branch)
	} else {
		cfg := fetch.Config{
			IncludeExtensions: splitList(c.Query("ext")),
			ExcludePatterns:   splitList(c.Query("exclude")),
			IncludeBinary:     c.Query("includeBinary") == "true",
		}
		if raw := c.Query("maxSize"); raw != "" {
			if n, perr := strconv.ParseInt(raw, 10, 64); perr == nil && n > 0 {
				cfg.MaxFileSize = n
			}
		}
		result, err = walker.Fetch(c.Request.Context(), repo, branch, cfg)
	}
	if err != nil {
		h.log.Error("fetch failed", "repo", repo.String(), "branch", branch, "error", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	files := result.Files
	if files == nil {
		files = []gitstore.FileRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files, "skipped": result.Skipped})
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
