// Package gitstore defines the port that the publish and fetch pipelines use
// to talk to a git hosting provider's object-graph API, plus the domain types
// and error taxonomy shared by both pipelines. The go-github implementation
// lives in gitstore/github.
package gitstore

import "context"

// FileRecord is a repository-relative path paired with its content. Content
// is UTF-8 text, or an opaque base64 payload for binary files.
type FileRecord struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// TreeEntry describes one changed or added path in a new tree. Mode is always
// "100644" and Type is always "blob" — executables and symlinks are not
// published through this pipeline.
type TreeEntry struct {
	Path string
	Mode string
	Type string
	SHA  string
}

// TreeItem is one entry of a recursive tree listing as reported by the
// remote store. Size is the remote-reported byte size of the blob.
type TreeItem struct {
	Path string
	Type string // "blob", "tree" or "commit" (submodule)
	SHA  string
	Size int64
}

// RepositoryIdentity names a repository by owner and name. It is constructed
// by the caller and never mutated.
type RepositoryIdentity struct {
	Owner string
	Name  string
}

// String returns "owner/name".
func (r RepositoryIdentity) String() string {
	return r.Owner + "/" + r.Name
}

// CredentialScope is the result of verifying a credential: the principal it
// authenticates as and the scopes it was granted. Used for advisory warnings
// only — the remote service remains the authority on what is allowed.
type CredentialScope struct {
	Login  string
	Scopes []string
}

// HasScope reports whether the granted scope set contains s.
func (c CredentialScope) HasScope(s string) bool {
	for _, g := range c.Scopes {
		if g == s {
			return true
		}
	}
	return false
}

// NewRepository describes a repository to create. Created repositories are
// always bootstrapped with an initial commit (auto-generated README) so that
// subsequent ref and tree reads succeed.
type NewRepository struct {
	Name        string
	Description string
	Private     bool
	Org         string // empty: create under the authenticated user
}

// Client is the port for the remote object-graph primitives. Each method maps
// to exactly one remote call; orchestration, retries and sequencing belong to
// the callers in the publish and fetch packages.
type Client interface {
	// RepositoryExists reports whether the repository exists. A "not found"
	// response is false, not an error.
	RepositoryExists(ctx context.Context, repo RepositoryIdentity) (bool, error)

	// VerifyCredential resolves the authenticated principal and its granted
	// scopes. Returns an AuthError if the credential is rejected.
	VerifyCredential(ctx context.Context) (CredentialScope, error)

	// CreateRepository creates a repository bootstrapped with an initial commit.
	CreateRepository(ctx context.Context, req NewRepository) (RepositoryIdentity, error)

	// GetBranchHead returns the commit SHA the branch ref points at.
	GetBranchHead(ctx context.Context, repo RepositoryIdentity, branch string) (string, error)

	// GetCommitTree returns the tree SHA of the given commit.
	GetCommitTree(ctx context.Context, repo RepositoryIdentity, commitSHA string) (string, error)

	// CreateBlob stores content and returns its content-addressed SHA.
	// Identical content may yield the same SHA across calls.
	CreateBlob(ctx context.Context, repo RepositoryIdentity, content string) (string, error)

	// CreateTree creates a tree anchored at baseTreeSHA with the given entries
	// merged over it. Entry order is preserved as given.
	CreateTree(ctx context.Context, repo RepositoryIdentity, baseTreeSHA string, entries []TreeEntry) (string, error)

	// CreateCommit creates a commit pointing at treeSHA with a single parent.
	CreateCommit(ctx context.Context, repo RepositoryIdentity, parentSHA, treeSHA, message string) (string, error)

	// UpdateBranchRef force-updates the branch ref to commitSHA. Publishing
	// replaces the branch tip; it is not a fast-forward merge.
	UpdateBranchRef(ctx context.Context, repo RepositoryIdentity, branch, commitSHA string) error

	// CreateBranch creates a branch pointing at baseSHA. Creating a branch
	// that already exists succeeds and is a no-op.
	CreateBranch(ctx context.Context, repo RepositoryIdentity, branch, baseSHA string) error

	// ListTree returns the recursive tree listing of the given ref.
	ListTree(ctx context.Context, repo RepositoryIdentity, ref string) ([]TreeItem, error)

	// GetBlob returns the raw content of a blob.
	GetBlob(ctx context.Context, repo RepositoryIdentity, sha string) ([]byte, error)
}
