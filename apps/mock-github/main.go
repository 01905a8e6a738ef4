// mock-github is an in-memory stand-in for the subset of the GitHub REST API
// that syncd consumes: repository existence and creation, credential
// introspection, and the Git Data object-graph endpoints (blobs, trees,
// commits, refs). Run it locally and point syncd at it with GITHUB_API_URL.
package main

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	login := os.Getenv("MOCK_LOGIN")
	if login == "" {
		login = "octocat"
	}
	s := newStore(login)
	seedRepos(s)
	log.Info("seeded repos", "repos", len(s.repos), "login", login)

	r := gin.Default()
	registerRoutes(r, s, log)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	log.Info("mock-github starting", "port", port)
	if err := r.Run(":" + port); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func registerRoutes(r *gin.Engine, s *store, log *slog.Logger) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Credential introspection. The granted scopes travel in a header, the
	// way the real API reports them.
	r.GET("/user", func(c *gin.Context) {
		c.Header("X-OAuth-Scopes", "repo, read:org")
		c.JSON(http.StatusOK, gin.H{"login": s.login})
	})

	r.GET("/repos/:owner/:repo", func(c *gin.Context) {
		repo := s.get(c.Param("owner"), c.Param("repo"))
		if repo == nil {
			notFound(c)
			return
		}
		c.JSON(http.StatusOK, repoJSON(repo))
	})

	r.POST("/user/repos", func(c *gin.Context) {
		var req struct {
			Name        string `json:"name" binding:"required"`
			Description string `json:"description"`
			Private     bool   `json:"private"`
			AutoInit    bool   `json:"auto_init"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
		repo, ok := s.create(s.login, req.Name, req.Description, req.Private, req.AutoInit)
		if !ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"message": "Repository creation failed.",
				"errors":  []gin.H{{"resource": "Repository", "field": "name", "code": "already_exists"}},
			})
			return
		}
		log.Info("repository created", "repo", repo.Owner+"/"+repo.Name, "autoInit", req.AutoInit)
		c.JSON(http.StatusCreated, repoJSON(repo))
	})

	registerGitDataRoutes(r, s, log)
}

func registerGitDataRoutes(r *gin.Engine, s *store, log *slog.Logger) {
	// GET /repos/:owner/:repo/git/ref/heads/:branch — branch head lookup.
	// An existing repository with no commits answers 409, like the real API.
	r.GET("/repos/:owner/:repo/git/ref/*ref", func(c *gin.Context) {
		repo := s.get(c.Param("owner"), c.Param("repo"))
		if repo == nil {
			notFound(c)
			return
		}
		branch := strings.TrimPrefix(strings.TrimPrefix(c.Param("ref"), "/"), "heads/")
		s.mu.RLock()
		defer s.mu.RUnlock()
		if len(repo.commits) == 0 {
			c.JSON(http.StatusConflict, gin.H{"message": "Git Repository is empty."})
			return
		}
		sha, ok := repo.refs[branch]
		if !ok {
			notFound(c)
			return
		}
		c.JSON(http.StatusOK, refJSON(branch, sha))
	})

	// POST /repos/:owner/:repo/git/refs — branch creation.
	r.POST("/repos/:owner/:repo/git/refs", func(c *gin.Context) {
		repo := s.get(c.Param("owner"), c.Param("repo"))
		if repo == nil {
			notFound(c)
			return
		}
		var req struct {
			Ref string `json:"ref" binding:"required"`
			SHA string `json:"sha" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
		branch := strings.TrimPrefix(req.Ref, "refs/heads/")
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := repo.refs[branch]; exists {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Reference already exists"})
			return
		}
		if _, ok := repo.commits[req.SHA]; !ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Object does not exist"})
			return
		}
		repo.refs[branch] = req.SHA
		log.Info("branch created", "repo", repo.Owner+"/"+repo.Name, "branch", branch)
		c.JSON(http.StatusCreated, refJSON(branch, req.SHA))
	})

	// PATCH /repos/:owner/:repo/git/refs/heads/:branch — ref update.
	r.PATCH("/repos/:owner/:repo/git/refs/*ref", func(c *gin.Context) {
		repo := s.get(c.Param("owner"), c.Param("repo"))
		if repo == nil {
			notFound(c)
			return
		}
		branch := strings.TrimPrefix(strings.TrimPrefix(c.Param("ref"), "/"), "heads/")
		var req struct {
			SHA   string `json:"sha" binding:"required"`
			Force bool   `json:"force"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := repo.refs[branch]; !ok {
			notFound(c)
			return
		}
		if _, ok := repo.commits[req.SHA]; !ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Object does not exist"})
			return
		}
		repo.refs[branch] = req.SHA
		log.Info("ref updated", "repo", repo.Owner+"/"+repo.Name, "branch", branch, "sha", req.SHA, "force", req.Force)
		c.JSON(http.StatusOK, refJSON(branch, req.SHA))
	})

	// POST /repos/:owner/:repo/git/blobs
	r.POST("/repos/:owner/:repo/git/blobs", func(c *gin.Context) {
		repo := s.get(c.Param("owner"), c.Param("repo"))
		if repo == nil {
			notFound(c)
			return
		}
		var req struct {
			Content  string `json:"content"`
			Encoding string `json:"encoding"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
		raw := []byte(req.Content)
		if req.Encoding == "base64" {
			decoded, err := base64.StdEncoding.DecodeString(req.Content)
			if err != nil {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "content is not valid base64"})
				return
			}
			raw = decoded
		}
		s.mu.Lock()
		sha := repo.putBlob(raw)
		s.mu.Unlock()
		c.JSON(http.StatusCreated, gin.H{"sha": sha})
	})

	// GET /repos/:owner/:repo/git/blobs/:sha — raw or JSON per Accept header.
	r.GET("/repos/:owner/:repo/git/blobs/:sha", func(c *gin.Context) {
		repo := s.get(c.Param("owner"), c.Param("repo"))
		if repo == nil {
			notFound(c)
			return
		}
		s.mu.RLock()
		content, ok := repo.blobs[c.Param("sha")]
		s.mu.RUnlock()
		if !ok {
			notFound(c)
			return
		}
		if strings.Contains(c.GetHeader("Accept"), "raw") {
			c.Data(http.StatusOK, "application/vnd.github.raw", content)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"sha":      c.Param("sha"),
			"content":  base64.StdEncoding.EncodeToString(content),
			"encoding": "base64",
			"size":     len(content),
		})
	})

	// POST /repos/:owner/:repo/git/trees
	r.POST("/repos/:owner/:repo/git/trees", func(c *gin.Context) {
		repo := s.get(c.Param("owner"), c.Param("repo"))
		if repo == nil {
			notFound(c)
			return
		}
		var req struct {
			BaseTree string      `json:"base_tree"`
			Tree     []treeEntry `json:"tree" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, e := range req.Tree {
			if _, ok := repo.blobs[e.SHA]; !ok {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"message": "Tree SHA does not exist",
					"errors":  []gin.H{{"resource": "Tree", "field": "sha", "code": "invalid", "message": "sha " + e.SHA + " is unknown"}},
				})
				return
			}
		}
		sha := repo.putTree(req.BaseTree, req.Tree)
		c.JSON(http.StatusCreated, gin.H{"sha": sha, "tree": repo.listTree(sha), "truncated": false})
	})

	// GET /repos/:owner/:repo/git/trees/:ref — accepts a tree sha, commit sha
	// or branch name; ?recursive=1 is implied since trees are stored flat.
	r.GET("/repos/:owner/:repo/git/trees/*ref", func(c *gin.Context) {
		repo := s.get(c.Param("owner"), c.Param("repo"))
		if repo == nil {
			notFound(c)
			return
		}
		ref := strings.TrimPrefix(c.Param("ref"), "/")
		s.mu.RLock()
		defer s.mu.RUnlock()
		treeSHA, ok := repo.resolveTree(ref)
		if !ok {
			notFound(c)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sha": treeSHA, "tree": repo.listTree(treeSHA), "truncated": false})
	})

	// POST /repos/:owner/:repo/git/commits
	r.POST("/repos/:owner/:repo/git/commits", func(c *gin.Context) {
		repo := s.get(c.Param("owner"), c.Param("repo"))
		if repo == nil {
			notFound(c)
			return
		}
		var req struct {
			Message string   `json:"message" binding:"required"`
			Tree    string   `json:"tree" binding:"required"`
			Parents []string `json:"parents"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := repo.trees[req.Tree]; !ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Tree SHA does not exist"})
			return
		}
		parent := ""
		if len(req.Parents) > 0 {
			parent = req.Parents[0]
		}
		sha := repo.putCommit(req.Tree, parent, req.Message)
		log.Info("commit created", "repo", repo.Owner+"/"+repo.Name, "sha", sha)
		c.JSON(http.StatusCreated, commitJSON(repo.commits[sha]))
	})

	// GET /repos/:owner/:repo/git/commits/:sha
	r.GET("/repos/:owner/:repo/git/commits/:sha", func(c *gin.Context) {
		repo := s.get(c.Param("owner"), c.Param("repo"))
		if repo == nil {
			notFound(c)
			return
		}
		s.mu.RLock()
		commit, ok := repo.commits[c.Param("sha")]
		s.mu.RUnlock()
		if !ok {
			notFound(c)
			return
		}
		c.JSON(http.StatusOK, commitJSON(commit))
	})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
}

func repoJSON(r *repository) gin.H {
	return gin.H{
		"name":           r.Name,
		"full_name":      r.Owner + "/" + r.Name,
		"description":    r.Description,
		"private":        r.Private,
		"owner":          gin.H{"login": r.Owner},
		"default_branch": "main",
		"html_url":       "https://github.com/" + r.Owner + "/" + r.Name,
	}
}

func refJSON(branch, sha string) gin.H {
	return gin.H{
		"ref":    "refs/heads/" + branch,
		"object": gin.H{"type": "commit", "sha": sha},
	}
}

func commitJSON(c commitObj) gin.H {
	out := gin.H{
		"sha":     c.SHA,
		"message": c.Message,
		"tree":    gin.H{"sha": c.Tree},
	}
	if c.Parent != "" {
		out["parents"] = []gin.H{{"sha": c.Parent}}
	}
	return out
}
