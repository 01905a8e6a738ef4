// Package handler translates HTTP requests into publish and fetch pipeline
// calls. Each request carries its own credential (bearer token), so one
// process can serve differently-authenticated callers concurrently.
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/synclinehq/syncline/apps/syncd/internal/gitstore"
	"github.com/synclinehq/syncline/apps/syncd/internal/publish"
)

// ClientFactory builds a gitstore.Client authenticated with the given token.
// An empty token falls back to the server's configured credential.
type ClientFactory func(token string) gitstore.Client

// Handler wires the publish and fetch pipelines to the HTTP surface.
type Handler struct {
	clients ClientFactory
	log     *slog.Logger
	pubOpts []publish.Option
}

// RegisterRoutes mounts the syncd API onto the given Gin engine.
func RegisterRoutes(r *gin.Engine, clients ClientFactory, log *slog.Logger, pubOpts ...publish.Option) {
	h := &Handler{clients: clients, log: log, pubOpts: pubOpts}

	r.POST("/v1/repos/:owner/:repo/publish", h.Publish)
	r.GET("/v1/repos/:owner/:repo/files", h.Fetch)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// bearerToken extracts the credential from the Authorization header.
// Both "Bearer <token>" and "token <token>" forms are accepted.
func bearerToken(c *gin.Context) string {
	raw := c.GetHeader("Authorization")
	for _, prefix := range []string{"Bearer ", "token "} {
		if strings.HasPrefix(raw, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(raw, prefix))
		}
	}
	return ""
}
