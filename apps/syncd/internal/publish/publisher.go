// Package publish implements the commit-publishing pipeline: given a set of
// (path, content) records it produces exactly one atomic commit on a remote
// branch via the object-graph primitives in gitstore, bootstrapping the
// repository and target branch when they do not exist yet.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/synclinehq/syncline/apps/syncd/internal/gitstore"
)

// ErrNoValidFiles is returned when validation strips every input file.
// Publishing zero files is never silently accepted.
var ErrNoValidFiles = errors.New("no valid files to publish")

const (
	defaultBaseBranch      = "main"
	defaultWebBaseURL      = "https://github.com"
	defaultBlobConcurrency = 4
	defaultCreationGrace   = 2 * time.Second
	defaultReadinessPolls  = 5
	defaultRetryTries      = 4
	defaultRetryInterval   = 250 * time.Millisecond
)

// Request describes one atomic publish. Owner may be empty, in which case it
// resolves to the credential's principal. NewBranch, when set to a name
// distinct from BaseBranch, is created from BaseBranch's head and becomes the
// target of the final ref update.
type Request struct {
	Owner           string
	Repo            string
	BaseBranch      string // default "main"
	NewBranch       string
	Files           []gitstore.FileRecord
	CommitMessage   string
	RepoDescription string // used only if the repository has to be created
}

// Result is returned once the branch ref points at the new commit.
type Result struct {
	CommitSHA string `json:"commitSha"`
	RepoURL   string `json:"repoUrl"`
	BranchURL string `json:"branchUrl"`
}

// Publisher drives the publish sequence against a gitstore.Client. It holds
// no state across calls; every invocation carries its own repository identity
// and branch names, so concurrent publishes with differently configured
// Publishers are safe in one process.
type Publisher struct {
	store gitstore.Client
	log   *slog.Logger

	blobConcurrency int
	creationGrace   time.Duration
	readinessPolls  int
	webBaseURL      string
	retry           retryPolicy

	commits metric.Int64Counter
	blobs   metric.Int64Counter
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithBlobConcurrency bounds the blob-creation worker pool.
func WithBlobConcurrency(n int) Option {
	return func(p *Publisher) { p.blobConcurrency = n }
}

// WithCreationGrace sets the propagation grace period after repository
// creation. Zero disables the wait (useful in tests).
func WithCreationGrace(d time.Duration) Option {
	return func(p *Publisher) { p.creationGrace = d }
}

// WithWebBaseURL overrides the base URL used to build repository and branch
// URLs in the Result.
func WithWebBaseURL(u string) Option {
	return func(p *Publisher) { p.webBaseURL = u }
}

// WithRetry sets the per-call retry bounds for transport failures.
func WithRetry(maxTries uint, initialInterval time.Duration) Option {
	return func(p *Publisher) {
		p.retry = retryPolicy{maxTries: maxTries, initialInterval: initialInterval}
	}
}

// New creates a Publisher around the given object-store client.
func New(store gitstore.Client, log *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		store:           store,
		log:             log,
		blobConcurrency: defaultBlobConcurrency,
		creationGrace:   defaultCreationGrace,
		readinessPolls:  defaultReadinessPolls,
		webBaseURL:      defaultWebBaseURL,
		retry:           retryPolicy{maxTries: defaultRetryTries, initialInterval: defaultRetryInterval},
	}
	for _, opt := range opts {
		opt(p)
	}

	meter := otel.Meter("syncline/publish")
	p.commits, _ = meter.Int64Counter("syncline.publish.commits",
		metric.WithDescription("Commits published"))
	p.blobs, _ = meter.Int64Counter("syncline.publish.blobs",
		metric.WithDescription("Blobs created while publishing"))

	return p
}

// Publish runs the full sequence: verify credential, ensure repository,
// resolve base branch and tree, validate files, create blobs and tree,
// create commit, force-update the target ref. A failure at any step aborts
// immediately; objects already created remain unreferenced in the remote
// store and are subject to its own retention policy.
func (p *Publisher) Publish(ctx context.Context, req Request) (*Result, error) {
	if req.Repo == "" {
		return nil, fmt.Errorf("repository name is required")
	}
	if req.BaseBranch == "" {
		req.BaseBranch = defaultBaseBranch
	}

	scope, err := withRetry(ctx, p.retry, p.store.VerifyCredential)
	if err != nil {
		return nil, fmt.Errorf("verify credential: %w", err)
	}

	owner := req.Owner
	if owner == "" {
		owner = scope.Login
	}
	// Scope mismatches warn only: the remote service is the final authority
	// on what this credential may do.
	if scope.Login != "" && owner != scope.Login {
		p.log.Warn("credential principal differs from requested owner",
			"principal", scope.Login, "owner", owner)
	}
	if len(scope.Scopes) > 0 && !scope.HasScope("repo") && !scope.HasScope("public_repo") {
		p.log.Warn("credential has no write scope, publish may be rejected",
			"scopes", scope.Scopes)
	}

	repo := gitstore.RepositoryIdentity{Owner: owner, Name: req.Repo}

	exists, err := withRetry(ctx, p.retry, func(ctx context.Context) (bool, error) {
		return p.store.RepositoryExists(ctx, repo)
	})
	if err != nil {
		return nil, fmt.Errorf("check repository %s: %w", repo, err)
	}
	if !exists {
		if repo, err = p.createRepository(ctx, req, repo); err != nil {
			return nil, err
		}
	}

	baseSHA, err := withRetry(ctx, p.retry, func(ctx context.Context) (string, error) {
		return p.store.GetBranchHead(ctx, repo, req.BaseBranch)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve base branch %s: %w", req.BaseBranch, err)
	}

	target := req.BaseBranch
	if req.NewBranch != "" && req.NewBranch != req.BaseBranch {
		err := withRetryErr(ctx, p.retry, func(ctx context.Context) error {
			return p.store.CreateBranch(ctx, repo, req.NewBranch, baseSHA)
		})
		if err != nil {
			return nil, fmt.Errorf("create branch %s: %w", req.NewBranch, err)
		}
		target = req.NewBranch
	}

	baseTree, err := withRetry(ctx, p.retry, func(ctx context.Context) (string, error) {
		return p.store.GetCommitTree(ctx, repo, baseSHA)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve base tree: %w", err)
	}

	files := Validate(req.Files)
	if len(files) == 0 {
		return nil, ErrNoValidFiles
	}

	entries, err := p.createBlobs(ctx, repo, files)
	if err != nil {
		return nil, err
	}

	newTree, err := withRetry(ctx, p.retry, func(ctx context.Context) (string, error) {
		return p.store.CreateTree(ctx, repo, baseTree, entries)
	})
	if err != nil {
		return nil, fmt.Errorf("create tree: %w", err)
	}

	commitSHA, err := withRetry(ctx, p.retry, func(ctx context.Context) (string, error) {
		return p.store.CreateCommit(ctx, repo, baseSHA, newTree, req.CommitMessage)
	})
	if err != nil {
		return nil, fmt.Errorf("create commit: %w", err)
	}

	err = withRetryErr(ctx, p.retry, func(ctx context.Context) error {
		return p.store.UpdateBranchRef(ctx, repo, target, commitSHA)
	})
	if err != nil {
		return nil, fmt.Errorf("update branch ref %s: %w", target, err)
	}

	p.commits.Add(ctx, 1)
	p.log.Info("published commit",
		"repo", repo.String(), "branch", target, "commit", commitSHA, "files", len(files))

	repoURL := fmt.Sprintf("%s/%s", p.webBaseURL, repo)
	return &Result{
		CommitSHA: commitSHA,
		RepoURL:   repoURL,
		BranchURL: repoURL + "/tree/" + target,
	}, nil
}

// createRepository bootstraps a missing repository with an initial commit,
// then waits out the store's propagation window: a fixed grace period
// followed by a bounded existence poll, since object-graph reads immediately
// after creation can race the store's eventual consistency.
func (p *Publisher) createRepository(ctx context.Context, req Request, repo gitstore.RepositoryIdentity) (gitstore.RepositoryIdentity, error) {
	created, err := withRetry(ctx, p.retry, func(ctx context.Context) (gitstore.RepositoryIdentity, error) {
		return p.store.CreateRepository(ctx, gitstore.NewRepository{
			Name:        req.Repo,
			Description: req.RepoDescription,
		})
	})
	if err != nil {
		return repo, fmt.Errorf("create repository %s: %w", req.Repo, err)
	}
	if created.Owner != "" {
		repo = created
	}
	p.log.Info("repository created", "repo", repo.String())

	if err := sleepCtx(ctx, p.creationGrace); err != nil {
		return repo, err
	}
	for i := 0; i < p.readinessPolls; i++ {
		ok, err := p.store.RepositoryExists(ctx, repo)
		if err == nil && ok {
			return repo, nil
		}
		if err := sleepCtx(ctx, p.creationGrace/2); err != nil {
			return repo, err
		}
	}
	// The poll never confirming readiness is not fatal on its own; the next
	// read surfaces the real state.
	p.log.Warn("repository readiness poll exhausted", "repo", repo.String())
	return repo, nil
}

// createBlobs fans blob creation out over a bounded worker pool and collects
// the tree entries back in input order, keeping the tree deterministic.
func (p *Publisher) createBlobs(ctx context.Context, repo gitstore.RepositoryIdentity, files []gitstore.FileRecord) ([]gitstore.TreeEntry, error) {
	entries := make([]gitstore.TreeEntry, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.blobConcurrency)
	for i, f := range files {
		g.Go(func() error {
			sha, err := withRetry(gctx, p.retry, func(ctx context.Context) (string, error) {
				return p.store.CreateBlob(ctx, repo, f.Content)
			})
			if err != nil {
				return fmt.Errorf("create blob %s: %w", f.Path, err)
			}
			entries[i] = gitstore.TreeEntry{Path: f.Path, Mode: "100644", Type: "blob", SHA: sha}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.blobs.Add(ctx, int64(len(entries)))
	return entries, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
