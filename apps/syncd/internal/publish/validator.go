package publish

import (
	"strings"

	"github.com/synclinehq/syncline/apps/syncd/internal/gitstore"
)

// invalidPathChars can never appear in a repository-relative path accepted
// by the hosting service's tree API.
const invalidPathChars = `<>:"|?*`

// Validate filters and normalizes candidate files immediately before tree
// creation. Each rule produces a skip, not an abort: records with empty or
// whitespace-only content, or a path containing control characters or any
// of < > : " | ? * are dropped. The character checks run on the path as
// given — a control character hidden at either end is a drop, not something
// trimming may launder. Surviving paths then have backslashes replaced with
// forward slashes and surrounding whitespace trimmed; paths empty after
// that are dropped too. Input order is preserved.
func Validate(files []gitstore.FileRecord) []gitstore.FileRecord {
	out := make([]gitstore.FileRecord, 0, len(files))
	for _, f := range files {
		if strings.TrimSpace(f.Content) == "" {
			continue
		}
		if strings.ContainsAny(f.Path, invalidPathChars) || hasControlChars(f.Path) {
			continue
		}
		path := strings.TrimSpace(strings.ReplaceAll(f.Path, `\`, "/"))
		if path == "" {
			continue
		}
		out = append(out, gitstore.FileRecord{Path: path, Content: f.Content})
	}
	return out
}

func hasControlChars(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}
	return false
}
