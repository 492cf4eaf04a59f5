package loansaf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FilesystemSourceConfig describes a local directory of loan documents.
type FilesystemSourceConfig struct {
	BaseDir         string   `yaml:"base_dir" json:"base_dir"`
	IncludePatterns []string `yaml:"include_patterns" json:"include_patterns"`
	ExcludePatterns []string `yaml:"exclude_patterns" json:"exclude_patterns"`
}

// FilesystemSource walks a directory tree and yields every document that
// passes the glob filters. Files stay where they are; LocalPath points into
// the tree itself.
type FilesystemSource struct {
	config FilesystemSourceConfig
	logger *zap.Logger
}

func NewFilesystemSource(config FilesystemSourceConfig, logger *zap.Logger) (*FilesystemSource, error) {
	if config.BaseDir == "" {
		return nil, fmt.Errorf("base_dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ExcludePatterns = append([]string{".git", "**/.git"}, config.ExcludePatterns...)
	return &FilesystemSource{config: config, logger: logger}, nil
}

func (s *FilesystemSource) Type() string {
	return "filesystem"
}

func (s *FilesystemSource) Traverse(ctx context.Context) (<-chan DocumentRef, <-chan error) {
	refs := make(chan DocumentRef)
	errs := make(chan error, 1)

	go func() {
		defer close(refs)
		defer close(errs)

		err := filepath.Walk(s.config.BaseDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			relPath, err := filepath.Rel(s.config.BaseDir, path)
			if err != nil {
				return fmt.Errorf("relative path for %s: %w", path, err)
			}

			if info.IsDir() {
				if relPath != "." && matchesAnyPattern(relPath, s.config.ExcludePatterns) {
					return filepath.SkipDir
				}
				return nil
			}

			if !selectPath(relPath, s.config.IncludePatterns, s.config.ExcludePatterns) {
				return nil
			}

			ref := DocumentRef{
				Name:      relPath,
				LocalPath: path,
				Size:      info.Size(),
			}
			select {
			case refs <- ref:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil && err != context.Canceled {
			errs <- err
		}
	}()

	return refs, errs
}
