// Package scanner finds the C sources a batch build should process. It walks
// a directory tree, honors .pgraphignore files with gitignore-style patterns
// and selects files through include/exclude globs.
package scanner

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileInfo represents information about a discovered file.
type FileInfo struct {
	Path     string // Relative path from root, forward slashes
	FullPath string // Absolute path
	Size     int64  // File size in bytes
}

// Options configures the scanner behavior.
type Options struct {
	SkipHidden      bool     // Skip hidden files and directories (starting with .)
	FollowSymlinks  bool     // Follow file symlinks that stay within root
	DefaultExcludes []string // Directory names never entered
	IgnoreFileName  string   // Name of the ignore file (default: .pgraphignore)
	Include         []string // Globs a file must match; empty selects every file
	Exclude         []string // Globs that drop a file even when included
}

// DefaultOptions returns scanner options selecting C sources and preprocessed units.
func DefaultOptions() Options {
	return Options{
		SkipHidden:     true,
		IgnoreFileName: ".pgraphignore",
		Include:        []string{"**/*.c", "**/*.i"},
		DefaultExcludes: []string{
			".git",
			".hg",
			".svn",
			"CVS",
			"build",
			"cmake-build-debug",
			"cmake-build-release",
			"node_modules",
			"third_party",
			"vendor",
		},
	}
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts    Options
	include *Matcher
	exclude *Matcher
}

// New creates a Scanner, compiling its include and exclude globs.
func New(opts Options) (*Scanner, error) {
	include, err := NewMatcher(opts.Include)
	if err != nil {
		return nil, fmt.Errorf("include: %w", err)
	}
	exclude, err := NewMatcher(opts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}
	return &Scanner{opts: opts, include: include, exclude: exclude}, nil
}

// Scan recursively scans the directory at root and returns the selected
// files sorted by relative path.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scanning %s: not a directory", root)
	}

	ignorePatterns, err := s.loadIgnorePatterns(absRoot)
	if err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	}

	var files []FileInfo
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, the rest of the tree is still walked.
			if d != nil && d.IsDir() && path != absRoot {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		rel := filepath.ToSlash(relPath)

		if s.opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if s.isDefaultExcluded(d.Name()) || matchesIgnorePatterns(rel, true, ignorePatterns) {
				return filepath.SkipDir
			}
			nested, err := s.loadIgnorePatterns(path)
			if err != nil {
				return fmt.Errorf("loading ignore patterns in %s: %w", rel, err)
			}
			// Nested patterns are relative to their own directory.
			for _, p := range nested {
				ignorePatterns = append(ignorePatterns, p.WithBase(rel))
			}
			return nil
		}

		if matchesIgnorePatterns(rel, false, ignorePatterns) || !s.selected(rel) {
			return nil
		}

		fi, err := s.fileInfo(absRoot, path, d)
		if err != nil || fi == nil {
			return nil
		}
		files = append(files, FileInfo{Path: rel, FullPath: path, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// selected applies the include and exclude globs.
func (s *Scanner) selected(rel string) bool {
	if !s.include.Empty() && !s.include.Match(rel) {
		return false
	}
	return !s.exclude.Match(rel)
}

// fileInfo stats a regular file or, when following symlinks, a link to a
// regular file inside root. It returns nil for anything else.
func (s *Scanner) fileInfo(absRoot, path string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink == 0 {
		if !d.Type().IsRegular() {
			return nil, nil
		}
		return d.Info()
	}
	if !s.opts.FollowSymlinks {
		return nil, nil
	}
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(realPath, absRoot+string(filepath.Separator)) {
		return nil, nil
	}
	target, err := os.Stat(realPath)
	if err != nil || !target.Mode().IsRegular() {
		return nil, err
	}
	return target, nil
}

// isDefaultExcluded checks if the name matches default exclusion patterns.
func (s *Scanner) isDefaultExcluded(name string) bool {
	for _, exclude := range s.opts.DefaultExcludes {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

// loadIgnorePatterns loads ignore patterns from the ignore file in dir.
func (s *Scanner) loadIgnorePatterns(dir string) ([]IgnorePattern, error) {
	if s.opts.IgnoreFileName == "" {
		return nil, nil
	}
	file, err := os.Open(filepath.Join(dir, s.opts.IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var patterns []IgnorePattern
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := ParseIgnorePattern(line)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, sc.Err()
}

// matchesIgnorePatterns implements gitignore semantics: patterns are checked
// in order, and negation patterns can override previous positive matches.
func matchesIgnorePatterns(relPath string, isDir bool, patterns []IgnorePattern) bool {
	ignored := false
	for _, pattern := range patterns {
		if pattern.Match(relPath, isDir) {
			ignored = !pattern.IsNegation()
		}
	}
	return ignored
}
