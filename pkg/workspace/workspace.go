// Package workspace confines draft file writes to a single root directory.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidPath reports an empty or unresolvable path.
	ErrInvalidPath = errors.New("invalid path")
	// ErrOutsideRoot reports a path that resolves outside the root.
	ErrOutsideRoot = errors.New("path escapes root")
)

// PathError records the root-relative path an operation failed on.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Guard resolves file names against a root directory and rejects any that
// escape it, including through symlinked directories.
type Guard struct {
	root string
}

// NewGuard resolves root, expanding a leading ~, and creates it when missing.
func NewGuard(root string) (*Guard, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("%w: root must not be empty", ErrInvalidPath)
	}

	if root == "~" || strings.HasPrefix(root, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		root = filepath.Join(home, strings.TrimPrefix(root, "~"))
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	return &Guard{root: filepath.Clean(resolved)}, nil
}

// Root returns the absolute root directory.
func (g *Guard) Root() string {
	return g.root
}

// Resolve joins name to the root and checks the result stays inside it.
// Directories on the way that already exist are followed through symlinks.
func (g *Guard) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidPath
	}

	path := filepath.Join(g.root, name)
	if filepath.IsAbs(name) {
		path = filepath.Clean(name)
	}
	if !within(g.root, path) {
		return "", &PathError{Op: "resolve", Path: name, Err: ErrOutsideRoot}
	}

	dir := filepath.Dir(path)
	for dir != g.root {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			if !within(g.root, resolved) {
				return "", &PathError{Op: "resolve", Path: name, Err: ErrOutsideRoot}
			}
			break
		}
		dir = filepath.Dir(dir)
	}

	return path, nil
}

// RelPath returns path relative to the root, or path itself when it lies
// outside.
func (g *Guard) RelPath(path string) string {
	rel, err := filepath.Rel(g.root, path)
	if err != nil || !within(g.root, path) {
		return filepath.Clean(path)
	}
	return rel
}

func within(root string, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel))
}
