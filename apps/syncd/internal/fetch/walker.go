// Package fetch materializes a remote repository's file tree locally: it
// walks the branch's recursive tree listing, filters entries by pattern,
// extension, size and binary-ness, and returns the surviving (path, content)
// records together with a skip count.
package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/synclinehq/syncline/apps/syncd/internal/gitstore"
)

// DefaultMaxFileSize is the size gate applied when Config.MaxFileSize is zero.
const DefaultMaxFileSize = 1 << 20 // 1 MiB

// Config controls which tree entries survive a walk. The zero value keeps
// every text file up to DefaultMaxFileSize.
type Config struct {
	// IncludeExtensions is an allow-list of lowercase extensions without the
	// leading dot. Empty means every extension is allowed.
	IncludeExtensions []string

	// ExcludePatterns are glob patterns matched against the full path.
	// '*' matches any run of characters (including '/'), '?' a single one.
	ExcludePatterns []string

	// MaxFileSize skips entries whose remote-reported size exceeds it.
	MaxFileSize int64

	// IncludeBinary keeps files that fail UTF-8 decoding, carrying their
	// content as a base64 payload. Off by default.
	IncludeBinary bool

	// Filter, when set, is applied last to (path, content); returning false
	// skips the entry.
	Filter func(path, content string) bool
}

// Result holds the surviving files and a count of entries skipped by any
// filter or per-entry fetch failure. The count exists for observability;
// a partial walk is the expected steady state for large repositories.
type Result struct {
	Files   []gitstore.FileRecord
	Skipped int
}

// Walker enumerates remote trees through a gitstore.Client.
type Walker struct {
	store gitstore.Client
	log   *slog.Logger

	fetched metric.Int64Counter
	skipped metric.Int64Counter
}

// New creates a Walker around the given object-store client.
func New(store gitstore.Client, log *slog.Logger) *Walker {
	w := &Walker{store: store, log: log}

	meter := otel.Meter("syncline/fetch")
	w.fetched, _ = meter.Int64Counter("syncline.fetch.files",
		metric.WithDescription("Files returned by tree walks"))
	w.skipped, _ = meter.Int64Counter("syncline.fetch.skipped",
		metric.WithDescription("Tree entries skipped by filters or fetch failures"))

	return w
}

// Fetch walks branch's recursive tree and returns every file that survives
// the configured filters. A failure to fetch any single entry is logged and
// counted as a skip — it never aborts the walk. When branch is "main" and
// absent, the walk falls back to "master" once.
func (w *Walker) Fetch(ctx context.Context, repo gitstore.RepositoryIdentity, branch string, cfg Config) (*Result, error) {
	if branch == "" {
		branch = "main"
	}
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	excludes := compilePatterns(cfg.ExcludePatterns)
	allowed := make(map[string]bool, len(cfg.IncludeExtensions))
	for _, ext := range cfg.IncludeExtensions {
		allowed[strings.ToLower(ext)] = true
	}

	items, err := w.store.ListTree(ctx, repo, branch)
	if err != nil {
		var nf *gitstore.NotFoundError
		if branch == "main" && errors.As(err, &nf) {
			items, err = w.store.ListTree(ctx, repo, "master")
		}
		if err != nil {
			return nil, fmt.Errorf("list tree %s@%s: %w", repo, branch, err)
		}
	}

	res := &Result{}
	skip := func(path, reason string) {
		res.Skipped++
		w.log.Debug("skipping entry", "repo", repo.String(), "path", path, "reason", reason)
	}

	for _, item := range items {
		if item.Type != "blob" {
			continue // directories and submodule references
		}
		if matchesAny(excludes, item.Path) {
			skip(item.Path, "excluded by pattern")
			continue
		}
		if len(allowed) > 0 && !allowed[extension(item.Path)] {
			skip(item.Path, "extension not allowed")
			continue
		}
		if item.Size > maxSize {
			skip(item.Path, "exceeds max file size")
			continue
		}

		raw, err := w.store.GetBlob(ctx, repo, item.SHA)
		if err != nil {
			w.log.Warn("failed to fetch blob, skipping entry",
				"repo", repo.String(), "path", item.Path, "error", err)
			res.Skipped++
			continue
		}

		var content string
		if utf8.Valid(raw) {
			content = string(raw)
		} else if cfg.IncludeBinary {
			content = base64.StdEncoding.EncodeToString(raw)
		} else {
			skip(item.Path, "binary content")
			continue
		}

		if cfg.Filter != nil && !cfg.Filter(item.Path, content) {
			skip(item.Path, "rejected by custom filter")
			continue
		}

		res.Files = append(res.Files, gitstore.FileRecord{Path: item.Path, Content: content})
	}

	w.fetched.Add(ctx, int64(len(res.Files)))
	w.skipped.Add(ctx, int64(res.Skipped))
	w.log.Info("tree walk complete",
		"repo", repo.String(), "branch", branch, "files", len(res.Files), "skipped", res.Skipped)
	return res, nil
}

// SourceCodeExtensions is the curated allow-list used by FetchSourceCode.
var SourceCodeExtensions = []string{
	"go", "ts", "tsx", "js", "jsx", "py", "rb", "java", "c", "h", "cpp", "hpp",
	"cs", "rs", "kt", "swift", "php", "sh", "sql", "proto", "html", "css",
	"scss", "json", "yaml", "yml", "toml", "md", "txt", "xml", "tf",
}

// DefaultExcludePatterns is the exclude list used by FetchSourceCode:
// dependency and build output directories, minified assets and lock files.
var DefaultExcludePatterns = []string{
	"node_modules/*", "dist/*", "build/*", ".git/*", "vendor/*",
	"*.min.js", "*.min.css",
	"*.lock", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
}

// FetchSourceCode is Fetch preconfigured for common source and text files.
// It is a configuration preset, not separate walk logic.
func (w *Walker) FetchSourceCode(ctx context.Context, repo gitstore.RepositoryIdentity, branch string) (*Result, error) {
	return w.Fetch(ctx, repo, branch, Config{
		IncludeExtensions: SourceCodeExtensions,
		ExcludePatterns:   DefaultExcludePatterns,
	})
}

// extension returns the lowercase suffix after the last dot of the final
// path element, or "" when there is none.
func extension(path string) string {
	base := path
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

// compilePatterns translates globs into anchored regular expressions.
func compilePatterns(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		var sb strings.Builder
		sb.WriteString("^")
		for _, r := range p {
			switch r {
			case '*':
				sb.WriteString(".*")
			case '?':
				sb.WriteString(".")
			default:
				sb.WriteString(regexp.QuoteMeta(string(r)))
			}
		}
		sb.WriteString("$")
		re, err := regexp.Compile(sb.String())
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	return out
}

func matchesAny(patterns []*regexp.Regexp, path string) bool {
	for _, re := range patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}
