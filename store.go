package wilayah

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Driver identifies a Store backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// Store receives the generated JSON documents. Keys are slash-separated
// paths relative to the output root, e.g. "cities/11.json".
// Put replaces any existing object at key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Driver() Driver
}

// FSStore writes documents under a local directory.
type FSStore struct {
	root string
}

// NewFSStore returns a filesystem store rooted at root, creating root and each
// of dirs beneath it. Existing directories are not an error.
func NewFSStore(root string, dirs ...string) (*FSStore, error) {
	if root == "" {
		root = DefaultDataDir
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			return nil, fmt.Errorf("creating output directory %s: %w", d, err)
		}
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) Driver() Driver { return DriverFilesystem }

// Root returns the directory documents are written under.
func (s *FSStore) Root() string { return s.root }

// sanitizeKey rejects keys that would escape the store root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q contains '..'", key)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key %q", key)
	}
	return filepath.Clean(filepath.FromSlash(key)), nil
}

// Put writes data to a temp file next to the target and renames it into
// place, so a failed write leaves any previous file intact.
func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	path := filepath.Join(s.root, k)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	success = true
	return nil
}
