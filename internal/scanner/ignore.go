package scanner

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/openmined/globsync/internal/utils"
	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is an optional gitignore-style file in the sync root
const IgnoreFileName = ".globsyncignore"

// ExcludeList decides which root-relative paths are left out of a scan.
type ExcludeList struct {
	globs  []string
	ignore *gitignore.GitIgnore
}

// NewExcludeList validates globs and loads the ignore file from rootDir if there is one.
func NewExcludeList(rootDir string, globs []string) (*ExcludeList, error) {
	e := &ExcludeList{}
	for _, g := range globs {
		g = filepath.ToSlash(strings.TrimSpace(g))
		if g == "" {
			continue
		}
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid exclude pattern %q", g)
		}
		e.globs = append(e.globs, g)
	}

	ignore, err := loadIgnoreFile(filepath.Join(rootDir, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	e.ignore = ignore

	return e, nil
}

// ShouldExclude reports whether the slash-separated relPath is excluded.
func (e *ExcludeList) ShouldExclude(relPath string) bool {
	for _, g := range e.globs {
		if ok, _ := doublestar.Match(g, relPath); ok {
			slog.Debug("ignore file", "path", relPath, "glob", g)
			return true
		}
	}
	if e.ignore != nil && e.ignore.MatchesPath(relPath) {
		slog.Debug("ignore file", "path", relPath, "ignorefile", IgnoreFileName)
		return true
	}
	return false
}

func loadIgnoreFile(ignorePath string) (*gitignore.GitIgnore, error) {
	if !utils.IsRegularFile(ignorePath) {
		return nil, nil
	}

	file, err := os.Open(ignorePath)
	if err != nil {
		return nil, fmt.Errorf("open ignore file: %w", err)
	}
	defer file.Close()

	// the ignore file never syncs itself
	lines := []string{IgnoreFileName}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file: %w", err)
	}

	slog.Info("loaded ignore file", "path", ignorePath, "rules", len(lines)-1)
	return gitignore.CompileIgnoreLines(lines...), nil
}
