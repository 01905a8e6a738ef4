package gitstore

import (
	"context"
	"fmt"
	"sync"
)

// InMem is an in-memory Client for unit tests. It keeps a small object graph
// per repository, records every call for order assertions, and can be primed
// to fail specific methods a bounded number of times.
type InMem struct {
	mu sync.Mutex

	Login  string
	Scopes []string
	Repos  map[string]*InMemRepo

	// Calls records method names in invocation order.
	Calls []string

	failures map[string][]error
	seq      int
}

// InMemRepo is one repository's object graph.
type InMemRepo struct {
	Refs    map[string]string // branch → commit sha
	Commits map[string]InMemCommit
	Trees   map[string][]TreeEntry // tree sha → entries as given (order preserved)
	Blobs   map[string]string      // blob sha → content

	// SizeOverrides substitutes the remote-reported size for a path in
	// ListTree results, independent of the stored content.
	SizeOverrides map[string]int64
}

// InMemCommit is one commit in an InMemRepo.
type InMemCommit struct {
	Tree    string
	Parent  string
	Message string
}

// NewInMem creates an empty store whose credential verifies as "octocat"
// with the repo scope.
func NewInMem() *InMem {
	return &InMem{
		Login:    "octocat",
		Scopes:   []string{"repo"},
		Repos:    make(map[string]*InMemRepo),
		failures: make(map[string][]error),
	}
}

// SeedRepository creates a repository whose main branch has one commit
// containing the given files.
func (m *InMem) SeedRepository(owner, name string, files map[string]string) RepositoryIdentity {
	m.mu.Lock()
	defer m.mu.Unlock()

	repo := m.putRepo(owner + "/" + name)
	var entries []TreeEntry
	for path, content := range files {
		sha := m.putBlob(repo, content)
		entries = append(entries, TreeEntry{Path: path, Mode: "100644", Type: "blob", SHA: sha})
	}
	tree := m.putTree(repo, "", entries)
	commit := m.putCommit(repo, tree, "", "initial commit")
	repo.Refs["main"] = commit
	return RepositoryIdentity{Owner: owner, Name: name}
}

// FailNext primes method (e.g. "CreateBlob") to return err on its next call;
// queued errors are consumed in order before normal behavior resumes.
func (m *InMem) FailNext(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[method] = append(m.failures[method], err)
}

// Repo returns the object graph for owner/name, or nil.
func (m *InMem) Repo(id RepositoryIdentity) *InMemRepo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Repos[id.String()]
}

// CallCount returns how many times method was invoked.
func (m *InMem) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == method {
			n++
		}
	}
	return n
}

func (m *InMem) begin(ctx context.Context, method string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, method)
	if q := m.failures[method]; len(q) > 0 {
		err := q[0]
		m.failures[method] = q[1:]
		return err
	}
	return nil
}

// RepositoryExists reports whether the repository was created or seeded.
func (m *InMem) RepositoryExists(ctx context.Context, repo RepositoryIdentity) (bool, error) {
	if err := m.begin(ctx, "RepositoryExists"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Repos[repo.String()]
	return ok, nil
}

// VerifyCredential returns the configured login and scopes.
func (m *InMem) VerifyCredential(ctx context.Context) (CredentialScope, error) {
	if err := m.begin(ctx, "VerifyCredential"); err != nil {
		return CredentialScope{}, err
	}
	return CredentialScope{Login: m.Login, Scopes: m.Scopes}, nil
}

// CreateRepository creates a repository bootstrapped with a README commit on
// main, matching the auto_init side effect of the real store.
func (m *InMem) CreateRepository(ctx context.Context, req NewRepository) (RepositoryIdentity, error) {
	if err := m.begin(ctx, "CreateRepository"); err != nil {
		return RepositoryIdentity{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	owner := req.Org
	if owner == "" {
		owner = m.Login
	}
	repo := m.putRepo(owner + "/" + req.Name)
	sha := m.putBlob(repo, "# "+req.Name+"\n")
	tree := m.putTree(repo, "", []TreeEntry{{Path: "README.md", Mode: "100644", Type: "blob", SHA: sha}})
	commit := m.putCommit(repo, tree, "", "Initial commit")
	repo.Refs["main"] = commit
	return RepositoryIdentity{Owner: owner, Name: req.Name}, nil
}

// GetBranchHead returns the branch tip, a ConflictError for a commit-less
// repository, and a NotFoundError for a missing repository or branch.
func (m *InMem) GetBranchHead(ctx context.Context, repo RepositoryIdentity, branch string) (string, error) {
	if err := m.begin(ctx, "GetBranchHead"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.Repos[repo.String()]
	if !ok {
		return "", &NotFoundError{Resource: "repository " + repo.String()}
	}
	if len(r.Commits) == 0 {
		return "", &ConflictError{Repo: repo}
	}
	sha, ok := r.Refs[branch]
	if !ok {
		return "", &NotFoundError{Resource: fmt.Sprintf("branch %s in %s", branch, repo)}
	}
	return sha, nil
}

// GetCommitTree returns the tree sha of a commit.
func (m *InMem) GetCommitTree(ctx context.Context, repo RepositoryIdentity, commitSHA string) (string, error) {
	if err := m.begin(ctx, "GetCommitTree"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.Repos[repo.String()]
	if !ok {
		return "", &NotFoundError{Resource: "repository " + repo.String()}
	}
	c, ok := r.Commits[commitSHA]
	if !ok {
		return "", &NotFoundError{Resource: fmt.Sprintf("commit %s in %s", commitSHA, repo)}
	}
	return c.Tree, nil
}

// CreateBlob stores content content-addressed: identical content returns the
// same sha across calls.
func (m *InMem) CreateBlob(ctx context.Context, repo RepositoryIdentity, content string) (string, error) {
	if err := m.begin(ctx, "CreateBlob"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.Repos[repo.String()]
	if !ok {
		return "", &NotFoundError{Resource: "repository " + repo.String()}
	}
	return m.putBlob(r, content), nil
}

// CreateTree records the entries in the given order over the base tree.
func (m *InMem) CreateTree(ctx context.Context, repo RepositoryIdentity, baseTreeSHA string, entries []TreeEntry) (string, error) {
	if err := m.begin(ctx, "CreateTree"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.Repos[repo.String()]
	if !ok {
		return "", &NotFoundError{Resource: "repository " + repo.String()}
	}
	return m.putTree(r, baseTreeSHA, entries), nil
}

// CreateCommit records a commit.
func (m *InMem) CreateCommit(ctx context.Context, repo RepositoryIdentity, parentSHA, treeSHA, message string) (string, error) {
	if err := m.begin(ctx, "CreateCommit"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.Repos[repo.String()]
	if !ok {
		return "", &NotFoundError{Resource: "repository " + repo.String()}
	}
	return m.putCommit(r, treeSHA, parentSHA, message), nil
}

// UpdateBranchRef force-updates the branch pointer.
func (m *InMem) UpdateBranchRef(ctx context.Context, repo RepositoryIdentity, branch, commitSHA string) error {
	if err := m.begin(ctx, "UpdateBranchRef"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.Repos[repo.String()]
	if !ok {
		return &NotFoundError{Resource: "repository " + repo.String()}
	}
	if _, ok := r.Refs[branch]; !ok {
		return &NotFoundError{Resource: fmt.Sprintf("branch %s in %s", branch, repo)}
	}
	r.Refs[branch] = commitSHA
	return nil
}

// CreateBranch points a new branch at baseSHA; creating an existing branch
// is a no-op success, matching the real client's idempotence.
func (m *InMem) CreateBranch(ctx context.Context, repo RepositoryIdentity, branch, baseSHA string) error {
	if err := m.begin(ctx, "CreateBranch"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.Repos[repo.String()]
	if !ok {
		return &NotFoundError{Resource: "repository " + repo.String()}
	}
	if _, exists := r.Refs[branch]; exists {
		return nil
	}
	r.Refs[branch] = baseSHA
	return nil
}

// ListTree flattens the tree at ref (branch, commit or tree sha).
func (m *InMem) ListTree(ctx context.Context, repo RepositoryIdentity, ref string) ([]TreeItem, error) {
	if err := m.begin(ctx, "ListTree"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.Repos[repo.String()]
	if !ok {
		return nil, &NotFoundError{Resource: "repository " + repo.String()}
	}

	treeSHA := ref
	if sha, ok := r.Refs[ref]; ok {
		treeSHA = r.Commits[sha].Tree
	} else if c, ok := r.Commits[ref]; ok {
		treeSHA = c.Tree
	}
	entries, ok := r.Trees[treeSHA]
	if !ok {
		return nil, &NotFoundError{Resource: fmt.Sprintf("tree %s in %s", ref, repo)}
	}

	items := make([]TreeItem, 0, len(entries))
	for _, e := range entries {
		size := int64(len(r.Blobs[e.SHA]))
		if override, ok := r.SizeOverrides[e.Path]; ok {
			size = override
		}
		items = append(items, TreeItem{Path: e.Path, Type: "blob", SHA: e.SHA, Size: size})
	}
	return items, nil
}

// GetBlob returns stored blob content.
func (m *InMem) GetBlob(ctx context.Context, repo RepositoryIdentity, sha string) ([]byte, error) {
	if err := m.begin(ctx, "GetBlob"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.Repos[repo.String()]
	if !ok {
		return nil, &NotFoundError{Resource: "repository " + repo.String()}
	}
	content, ok := r.Blobs[sha]
	if !ok {
		return nil, &NotFoundError{Resource: fmt.Sprintf("blob %s in %s", sha, repo)}
	}
	return []byte(content), nil
}

// --- unlocked helpers; callers hold m.mu ---

func (m *InMem) putRepo(key string) *InMemRepo {
	r := &InMemRepo{
		Refs:          make(map[string]string),
		Commits:       make(map[string]InMemCommit),
		Trees:         make(map[string][]TreeEntry),
		Blobs:         make(map[string]string),
		SizeOverrides: make(map[string]int64),
	}
	m.Repos[key] = r
	return r
}

func (m *InMem) putBlob(r *InMemRepo, content string) string {
	for sha, existing := range r.Blobs {
		if existing == content {
			return sha
		}
	}
	m.seq++
	sha := fmt.Sprintf("blob-%d", m.seq)
	r.Blobs[sha] = content
	return sha
}

func (m *InMem) putTree(r *InMemRepo, base string, entries []TreeEntry) string {
	merged := make([]TreeEntry, 0, len(r.Trees[base])+len(entries))
	replaced := make(map[string]bool, len(entries))
	for _, e := range entries {
		replaced[e.Path] = true
	}
	for _, e := range r.Trees[base] {
		if !replaced[e.Path] {
			merged = append(merged, e)
		}
	}
	merged = append(merged, entries...)

	m.seq++
	sha := fmt.Sprintf("tree-%d", m.seq)
	r.Trees[sha] = merged
	return sha
}

func (m *InMem) putCommit(r *InMemRepo, tree, parent, message string) string {
	m.seq++
	sha := fmt.Sprintf("commit-%d", m.seq)
	r.Commits[sha] = InMemCommit{Tree: tree, Parent: parent, Message: message}
	return sha
}
