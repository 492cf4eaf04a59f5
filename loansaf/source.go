package loansaf

import (
	"context"

	"github.com/bmatcuk/doublestar/v4"
)

// DocumentRef is a candidate loan document staged on the local filesystem.
// Extraction reads from LocalPath; Name keeps the source-relative identity
// for reporting.
type DocumentRef struct {
	Name      string
	LocalPath string
	Size      int64
}

// Source yields candidate loan documents for batch extraction. Traverse
// returns a channel of refs and a channel for a terminal error; both close
// when traversal ends.
type Source interface {
	Type() string
	Traverse(ctx context.Context) (<-chan DocumentRef, <-chan error)
}

// defaultIncludes limits traversal to documents the pipeline can open.
var defaultIncludes = []string{"**/*.pdf", "**/*.PDF"}

func matchesAnyPattern(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// selectPath applies exclude-then-include filtering to a source-relative
// path. Empty includes fall back to the PDF defaults.
func selectPath(relPath string, includes, excludes []string) bool {
	if matchesAnyPattern(relPath, excludes) {
		return false
	}
	if len(includes) == 0 {
		includes = defaultIncludes
	}
	return matchesAnyPattern(relPath, includes)
}
