// Package scanner walks the local sync root and returns the regular files to sync.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/openmined/globsync/internal/reconcile"
)

type Scanner struct {
	rootDir  string
	excludes *ExcludeList
}

// New resolves rootDir and validates the exclude patterns. A symlinked root is replaced by
// its target because WalkDir does not follow a link passed as the root.
func New(rootDir string, excludes []string) (*Scanner, error) {
	rootDir, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	// a missing root is reported by Scan
	if realDir, err := filepath.EvalSymlinks(rootDir); err == nil {
		rootDir = realDir
	}

	list, err := NewExcludeList(rootDir, excludes)
	if err != nil {
		return nil, err
	}

	return &Scanner{
		rootDir:  rootDir,
		excludes: list,
	}, nil
}

func (s *Scanner) Root() string {
	return s.rootDir
}

// Scan returns every regular file under the root, sorted by relative path.
// Symlinks, directories and special files are skipped.
func (s *Scanner) Scan(ctx context.Context) ([]*reconcile.LocalFile, error) {
	var files []*reconcile.LocalFile

	err := filepath.WalkDir(s.rootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		// Type() carries the mode bits without a stat; symlinks report ModeSymlink here
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(s.rootDir, path)
		if err != nil {
			return fmt.Errorf("rel path %s: %w", path, err)
		}
		relPath = filepath.ToSlash(relPath)

		if s.excludes.ShouldExclude(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		files = append(files, &reconcile.LocalFile{
			Path:    path,
			RelPath: relPath,
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local scan failed: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].RelPath < files[j].RelPath
	})

	return files, nil
}
