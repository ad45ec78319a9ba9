package workspace

import (
	"context"
	"os"
	"path/filepath"
)

const tempPattern = ".draftflow-tmp-*"

// WriteFile writes data to name inside the root through a temp file and
// returns the absolute path. With exclusive set an existing file is left
// alone and the error matches fs.ErrExist.
func (g *Guard) WriteFile(ctx context.Context, name string, data []byte, exclusive bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := g.Resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &PathError{Op: "write", Path: name, Err: err}
	}
	// MkdirAll may have followed a symlink created since Resolve.
	if _, err := g.Resolve(name); err != nil {
		return "", err
	}

	if err := atomicWrite(path, data, exclusive); err != nil {
		return "", &PathError{Op: "write", Path: g.RelPath(path), Err: err}
	}
	return path, nil
}

// atomicWrite writes through a temp file in the target directory. Exclusive
// writes link the temp file into place so an existing file is never replaced.
func atomicWrite(path string, data []byte, exclusive bool) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), tempPattern)
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if exclusive {
		return os.Link(tmpPath, path)
	}
	return os.Rename(tmpPath, path)
}
