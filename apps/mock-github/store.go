package main

import (
	"crypto/sha1"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// commitObj is one commit in a repository's object graph.
type commitObj struct {
	SHA     string
	Tree    string
	Parent  string
	Message string
}

// repository holds one repo's full object graph: content-addressed blobs,
// flat trees (path → blob sha), commits and branch refs.
type repository struct {
	Owner       string
	Name        string
	Description string
	Private     bool

	blobs   map[string][]byte
	trees   map[string]map[string]string
	commits map[string]commitObj
	refs    map[string]string // branch → commit sha
	seq     int               // commit uniquifier
}

func newRepository(owner, name, description string, private bool) *repository {
	return &repository{
		Owner:       owner,
		Name:        name,
		Description: description,
		Private:     private,
		blobs:       make(map[string][]byte),
		trees:       make(map[string]map[string]string),
		commits:     make(map[string]commitObj),
		refs:        make(map[string]string),
	}
}

// store holds every repository keyed by "owner/name". login is the principal
// reported by /user.
type store struct {
	mu    sync.RWMutex
	login string
	repos map[string]*repository
}

func newStore(login string) *store {
	return &store{login: login, repos: make(map[string]*repository)}
}

func (s *store) get(owner, name string) *repository {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repos[owner+"/"+name]
}

// create adds a repository. With autoInit it is bootstrapped with a README
// on main, the way GitHub's auto_init behaves; without it the repository is
// empty and ref reads answer 409 until a first commit exists.
func (s *store) create(owner, name, description string, private, autoInit bool) (*repository, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := owner + "/" + name
	if _, exists := s.repos[key]; exists {
		return nil, false
	}
	r := newRepository(owner, name, description, private)
	s.repos[key] = r
	if autoInit {
		readme := fmt.Sprintf("# %s\n\n%s\n", name, description)
		blobSHA := r.putBlob([]byte(readme))
		treeSHA := r.putTree("", []treeEntry{{Path: "README.md", Mode: "100644", Type: "blob", SHA: blobSHA}})
		commitSHA := r.putCommit(treeSHA, "", "Initial commit")
		r.refs["main"] = commitSHA
	}
	return r, true
}

// treeEntry mirrors the Git Data API tree entry shape.
type treeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int    `json:"size,omitempty"`
}

// putBlob stores content under its content address, like the real store:
// identical content yields the same sha.
func (r *repository) putBlob(content []byte) string {
	sha := objectSHA("blob", content)
	r.blobs[sha] = content
	return sha
}

// putTree merges entries over the base tree's flat path map.
func (r *repository) putTree(baseSHA string, entries []treeEntry) string {
	flat := make(map[string]string)
	for path, blobSHA := range r.trees[baseSHA] {
		flat[path] = blobSHA
	}
	for _, e := range entries {
		flat[e.Path] = e.SHA
	}

	paths := make([]string, 0, len(flat))
	for p := range flat {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var sb strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&sb, "%s %s\n", p, flat[p])
	}

	sha := objectSHA("tree", []byte(sb.String()))
	r.trees[sha] = flat
	return sha
}

func (r *repository) putCommit(treeSHA, parentSHA, message string) string {
	r.seq++
	sha := objectSHA("commit", fmt.Appendf(nil, "%s %s %s %d", treeSHA, parentSHA, message, r.seq))
	r.commits[sha] = commitObj{SHA: sha, Tree: treeSHA, Parent: parentSHA, Message: message}
	return sha
}

// listTree flattens a tree into sorted Git Data API entries, with sizes
// reported from the referenced blobs.
func (r *repository) listTree(treeSHA string) []treeEntry {
	flat, ok := r.trees[treeSHA]
	if !ok {
		return nil
	}
	entries := make([]treeEntry, 0, len(flat))
	for path, blobSHA := range flat {
		entries = append(entries, treeEntry{
			Path: path,
			Mode: "100644",
			Type: "blob",
			SHA:  blobSHA,
			Size: len(r.blobs[blobSHA]),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// resolveTree accepts a branch name, commit sha or tree sha and returns the
// tree sha it denotes, mirroring how the trees endpoint resolves its ref.
func (r *repository) resolveTree(ref string) (string, bool) {
	if _, ok := r.trees[ref]; ok {
		return ref, true
	}
	if c, ok := r.commits[ref]; ok {
		return c.Tree, true
	}
	if head, ok := r.refs[ref]; ok {
		return r.commits[head].Tree, true
	}
	return "", false
}

func objectSHA(kind string, content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s %d\x00", kind, len(content))
	h.Write(content)
	return fmt.Sprintf("%x", h.Sum(nil))
}
