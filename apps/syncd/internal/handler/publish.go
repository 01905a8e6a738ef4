package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/synclinehq/syncline/apps/syncd/internal/gitstore"
	"github.com/synclinehq/syncline/apps/syncd/internal/publish"
)

// publishRequest is the POST /v1/repos/:owner/:repo/publish body.
type publishRequest struct {
	Files           []gitstore.FileRecord `json:"files"           binding:"required"`
	CommitMessage   string                `json:"commitMessage"   binding:"required"`
	BaseBranch      string                `json:"baseBranch"`
	NewBranch       string                `json:"newBranch"`
	RepoDescription string                `json:"repoDescription"`
}

// Publish handles POST /v1/repos/:owner/:repo/publish — one atomic commit on
// the target branch, creating repository and branch as needed.
func (h *Handler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	store := h.clients(bearerToken(c))
	pub := publish.New(store, h.log, h.pubOpts...)

	result, err := pub.Publish(c.Request.Context(), publish.Request{
		Owner:           c.Param("owner"),
		Repo:            c.Param("repo"),
		BaseBranch:      req.BaseBranch,
		NewBranch:       req.NewBranch,
		Files:           req.Files,
		CommitMessage:   req.CommitMessage,
		RepoDescription: req.RepoDescription,
	})
	if err != nil {
		h.log.Error("publish failed",
			"owner", c.Param("owner"), "repo", c.Param("repo"), "error", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// statusFor maps the pipeline error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	var (
		authErr      *gitstore.AuthError
		notFound     *gitstore.NotFoundError
		conflict     *gitstore.ConflictError
		invalid      *gitstore.ValidationError
		transportErr *gitstore.TransportError
	)
	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &invalid), errors.Is(err, publish.ErrNoValidFiles):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
