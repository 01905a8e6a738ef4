// Package github implements the gitstore.Client port using the official
// go-github library. Wire it up with an authenticated *github.Client from
// apps/syncd/internal/platform/github.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v75/github"

	"github.com/synclinehq/syncline/apps/syncd/internal/gitstore"
)

// defaultCallTimeout bounds every remote call. The hosting API imposes no
// timeout of its own; a timed-out call surfaces as a retryable TransportError.
const defaultCallTimeout = 30 * time.Second

// Client wraps a go-github client and implements gitstore.Client. A single
// instance covers one credential; construct one per publish or fetch call.
type Client struct {
	gh      *gogithub.Client
	log     *slog.Logger
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a Client from an authenticated *github.Client.
func New(gh *gogithub.Client, log *slog.Logger, opts ...Option) *Client {
	c := &Client{gh: gh, log: log, timeout: defaultCallTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// RepositoryExists reports whether the repository exists. A 404 is false,
// not an error.
func (c *Client) RepositoryExists(ctx context.Context, repo gitstore.RepositoryIdentity) (bool, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	_, _, err := c.gh.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err == nil {
		return true, nil
	}
	if isStatus(err, 404) {
		return false, nil
	}
	return false, classify("get repository", repo.String(), repo, err)
}

// VerifyCredential resolves the authenticated principal and the scopes the
// token was granted (from the X-OAuth-Scopes response header).
func (c *Client) VerifyCredential(ctx context.Context) (gitstore.CredentialScope, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	user, resp, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		if isStatus(err, 401) || isStatus(err, 403) {
			return gitstore.CredentialScope{}, &gitstore.AuthError{Message: remoteMessage(err)}
		}
		return gitstore.CredentialScope{}, classify("verify credential", "authenticated user", gitstore.RepositoryIdentity{}, err)
	}

	var scopes []string
	if raw := resp.Header.Get("X-OAuth-Scopes"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			scopes = append(scopes, strings.TrimSpace(s))
		}
	}
	return gitstore.CredentialScope{Login: user.GetLogin(), Scopes: scopes}, nil
}

// CreateRepository creates a repository with auto_init so the new default
// branch immediately has a commit to branch from.
func (c *Client) CreateRepository(ctx context.Context, req gitstore.NewRepository) (gitstore.RepositoryIdentity, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	created, _, err := c.gh.Repositories.Create(ctx, req.Org, &gogithub.Repository{
		Name:        gogithub.Ptr(req.Name),
		Description: gogithub.Ptr(req.Description),
		Private:     gogithub.Ptr(req.Private),
		AutoInit:    gogithub.Ptr(true),
	})
	if err != nil {
		return gitstore.RepositoryIdentity{}, classify("create repository", req.Name, gitstore.RepositoryIdentity{Name: req.Name}, err)
	}
	return gitstore.RepositoryIdentity{
		Owner: created.GetOwner().GetLogin(),
		Name:  created.GetName(),
	}, nil
}

// GetBranchHead returns the commit SHA at the tip of branch. A 409 means the
// repository exists but has no commits yet.
func (c *Client) GetBranchHead(ctx context.Context, repo gitstore.RepositoryIdentity, branch string) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	ref, _, err := c.gh.Git.GetRef(ctx, repo.Owner, repo.Name, "refs/heads/"+branch)
	if err != nil {
		if isStatus(err, 409) {
			return "", &gitstore.ConflictError{Repo: repo}
		}
		return "", classify("get branch head", fmt.Sprintf("branch %s in %s", branch, repo), repo, err)
	}
	return ref.GetObject().GetSHA(), nil
}

// GetCommitTree returns the tree SHA of the given commit.
func (c *Client) GetCommitTree(ctx context.Context, repo gitstore.RepositoryIdentity, commitSHA string) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	commit, _, err := c.gh.Git.GetCommit(ctx, repo.Owner, repo.Name, commitSHA)
	if err != nil {
		return "", classify("get commit", fmt.Sprintf("commit %s in %s", commitSHA, repo), repo, err)
	}
	return commit.GetTree().GetSHA(), nil
}

// CreateBlob stores content and returns its content-addressed SHA.
func (c *Client) CreateBlob(ctx context.Context, repo gitstore.RepositoryIdentity, content string) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	blob, _, err := c.gh.Git.CreateBlob(ctx, repo.Owner, repo.Name, gogithub.Blob{
		Content:  gogithub.Ptr(content),
		Encoding: gogithub.Ptr("utf-8"),
	})
	if err != nil {
		return "", classify("create blob", repo.String(), repo, err)
	}
	return blob.GetSHA(), nil
}

// CreateTree creates a tree on top of baseTreeSHA. The remote store merges
// the entries with the base tree; entry order is passed through unchanged.
func (c *Client) CreateTree(ctx context.Context, repo gitstore.RepositoryIdentity, baseTreeSHA string, entries []gitstore.TreeEntry) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	ghEntries := make([]*gogithub.TreeEntry, 0, len(entries))
	for _, e := range entries {
		ghEntries = append(ghEntries, &gogithub.TreeEntry{
			Path: gogithub.Ptr(e.Path),
			Mode: gogithub.Ptr(e.Mode),
			Type: gogithub.Ptr(e.Type),
			SHA:  gogithub.Ptr(e.SHA),
		})
	}

	tree, _, err := c.gh.Git.CreateTree(ctx, repo.Owner, repo.Name, baseTreeSHA, ghEntries)
	if err != nil {
		return "", classify("create tree", repo.String(), repo, err)
	}
	return tree.GetSHA(), nil
}

// CreateCommit creates a commit with a single parent.
func (c *Client) CreateCommit(ctx context.Context, repo gitstore.RepositoryIdentity, parentSHA, treeSHA, message string) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	commit, _, err := c.gh.Git.CreateCommit(ctx, repo.Owner, repo.Name, gogithub.Commit{
		Message: gogithub.Ptr(message),
		Tree:    &gogithub.Tree{SHA: gogithub.Ptr(treeSHA)},
		Parents: []*gogithub.Commit{{SHA: gogithub.Ptr(parentSHA)}},
	}, nil)
	if err != nil {
		return "", classify("create commit", repo.String(), repo, err)
	}
	return commit.GetSHA(), nil
}

// UpdateBranchRef force-updates the branch ref to commitSHA.
func (c *Client) UpdateBranchRef(ctx context.Context, repo gitstore.RepositoryIdentity, branch, commitSHA string) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	_, _, err := c.gh.Git.UpdateRef(ctx, repo.Owner, repo.Name, "refs/heads/"+branch, gogithub.UpdateRef{
		SHA:   commitSHA,
		Force: gogithub.Ptr(true),
	})
	if err != nil {
		return classify("update branch ref", fmt.Sprintf("branch %s in %s", branch, repo), repo, err)
	}
	return nil
}

// CreateBranch creates a branch pointing at baseSHA. A ref that already
// exists is a success: the remote rejects the duplicate with a 422 and the
// publish sequence proceeds against the existing branch.
func (c *Client) CreateBranch(ctx context.Context, repo gitstore.RepositoryIdentity, branch, baseSHA string) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	_, _, err := c.gh.Git.CreateRef(ctx, repo.Owner, repo.Name, gogithub.CreateRef{
		Ref: "refs/heads/" + branch,
		SHA: baseSHA,
	})
	if err != nil {
		if isAlreadyExists(err) {
			c.log.Debug("branch already exists, treating create as a no-op",
				"repo", repo.String(), "branch", branch)
			return nil
		}
		return classify("create branch", fmt.Sprintf("branch %s in %s", branch, repo), repo, err)
	}
	return nil
}

// ListTree returns the recursive tree listing for ref (a branch name or
// commit SHA).
func (c *Client) ListTree(ctx context.Context, repo gitstore.RepositoryIdentity, ref string) ([]gitstore.TreeItem, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	tree, _, err := c.gh.Git.GetTree(ctx, repo.Owner, repo.Name, ref, true)
	if err != nil {
		return nil, classify("list tree", fmt.Sprintf("tree %s in %s", ref, repo), repo, err)
	}

	items := make([]gitstore.TreeItem, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		items = append(items, gitstore.TreeItem{
			Path: e.GetPath(),
			Type: e.GetType(),
			SHA:  e.GetSHA(),
			Size: int64(e.GetSize()),
		})
	}
	return items, nil
}

// GetBlob returns the raw bytes of a blob.
func (c *Client) GetBlob(ctx context.Context, repo gitstore.RepositoryIdentity, sha string) ([]byte, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	raw, _, err := c.gh.Git.GetBlobRaw(ctx, repo.Owner, repo.Name, sha)
	if err != nil {
		return nil, classify("get blob", fmt.Sprintf("blob %s in %s", sha, repo), repo, err)
	}
	return raw, nil
}
