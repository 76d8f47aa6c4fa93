package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSBackend stores blobs as files in a single directory, one file per CID,
// basename equal to the CID. Hidden files and subdirectories are ignored.
type FSBackend struct {
	dir string
}

// NewFSBackend opens a directory backend, creating the directory when
// create is true. Without create, a missing directory is an error so the
// mirror protocol can distinguish misconfiguration from an empty pool.
func NewFSBackend(dir string, create bool) (*FSBackend, error) {
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, fmt.Errorf("cid directory %q is not a directory", dir)
		}
	case os.IsNotExist(err):
		if !create {
			return nil, fmt.Errorf("cid directory %q does not exist", dir)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cid directory %q: %w", dir, err)
		}
	default:
		return nil, fmt.Errorf("failed to stat cid directory %q: %w", dir, err)
	}
	return &FSBackend{dir: dir}, nil
}

// Dir returns the backing directory path.
func (b *FSBackend) Dir() string {
	return b.dir
}

// Put writes the blob via a temp file and rename so readers never observe
// partial content.
func (b *FSBackend) Put(ctx context.Context, cid string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(b.dir, ".put-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, filepath.Join(b.dir, cid))
}

// Get reads the blob file for a CID.
func (b *FSBackend) Get(ctx context.Context, cid string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(filepath.Join(b.dir, cid))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return content, err
}

// Exists checks for the blob file.
func (b *FSBackend) Exists(ctx context.Context, cid string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(b.dir, cid))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// List returns the CID basenames of all non-hidden regular files.
// Subdirectories are skipped.
func (b *FSBackend) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}
	var cids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		cids = append(cids, name)
	}
	return cids, nil
}

// Close is a no-op for the filesystem backend.
func (b *FSBackend) Close() error {
	return nil
}
