package store

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
)

// recordExt is the file extension of record documents. Non-record files in
// the data directory are ignored by List.
const recordExt = ".md"

// FS is the on-disk Store rooted at a data directory.
type FS struct {
	root string
}

// NewFS opens (creating if needed) a filesystem store rooted at dir.
func NewFS(dir string) (*FS, error) {
	if dir == "" {
		return nil, errors.New("store: root directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, &IOError{Op: "init", Key: dir, Err: err}
	}
	return &FS{root: dir}, nil
}

// Root returns the store's root directory.
func (f *FS) Root() string { return f.root }

// abs maps a storage key to its filesystem path, rejecting traversal
// outside the root.
func (f *FS) abs(key string) (string, error) {
	clean := path.Clean("/" + key) // forces the key under "/"
	if clean == "/" {
		return "", errors.New("store: empty key")
	}
	return filepath.Join(f.root, filepath.FromSlash(clean[1:])), nil
}

func (f *FS) Get(key string) ([]byte, error) {
	p, err := f.abs(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrRecordNotFound
		}
		return nil, &IOError{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

func (f *FS) List(prefix string) ([]string, error) {
	p, err := f.abs(prefix)
	if err != nil {
		return nil, err
	}
	var keys []string
	walkErr := filepath.WalkDir(p, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), recordExt) {
			return nil
		}
		rel, err := filepath.Rel(f.root, fp)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return nil, &IOError{Op: "list", Key: prefix, Err: walkErr}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *FS) Create(key string, content []byte) error {
	p, err := f.abs(key)
	if err != nil {
		return err
	}
	if _, statErr := os.Lstat(p); statErr == nil {
		return ErrKeyExists
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return &IOError{Op: "create", Key: key, Err: err}
	}
	if err := atomic.WriteFile(p, bytes.NewReader(content)); err != nil {
		return &IOError{Op: "create", Key: key, Err: err}
	}
	// atomic.WriteFile does not set permissions on new files.
	if err := os.Chmod(p, 0o600); err != nil {
		return &IOError{Op: "create", Key: key, Err: err}
	}
	return nil
}

func (f *FS) Modify(key string, content []byte) error {
	p, err := f.abs(key)
	if err != nil {
		return err
	}
	if _, statErr := os.Lstat(p); statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return ErrRecordNotFound
		}
		return &IOError{Op: "modify", Key: key, Err: statErr}
	}
	if err := atomic.WriteFile(p, bytes.NewReader(content)); err != nil {
		return &IOError{Op: "modify", Key: key, Err: err}
	}
	return nil
}

func (f *FS) Rename(oldKey, newKey string) error {
	if oldKey == newKey {
		return nil
	}
	src, err := f.abs(oldKey)
	if err != nil {
		return err
	}
	dst, err := f.abs(newKey)
	if err != nil {
		return err
	}
	if _, statErr := os.Lstat(src); statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return ErrRecordNotFound
		}
		return &IOError{Op: "rename", Key: newKey, Ksrc: oldKey, Err: statErr}
	}
	if _, statErr := os.Lstat(dst); statErr == nil {
		return ErrKeyExists
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return &IOError{Op: "rename", Key: newKey, Ksrc: oldKey, Err: err}
	}
	if err := os.Rename(src, dst); err != nil {
		return &IOError{Op: "rename", Key: newKey, Ksrc: oldKey, Err: err}
	}
	return nil
}

func (f *FS) Delete(key string) error {
	p, err := f.abs(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrRecordNotFound
		}
		return &IOError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (f *FS) Exists(key string) bool {
	p, err := f.abs(key)
	if err != nil {
		return false
	}
	_, statErr := os.Lstat(p)
	return statErr == nil
}

func (f *FS) EnsureFolder(folder string) error {
	p, err := f.abs(folder)
	if err != nil {
		return err
	}
	info, statErr := os.Lstat(p)
	if statErr == nil {
		if !info.IsDir() {
			return ErrPathConflict
		}
		return nil
	}
	if !errors.Is(statErr, fs.ErrNotExist) {
		return &IOError{Op: "ensure-folder", Key: folder, Err: statErr}
	}
	if err := os.MkdirAll(p, 0o700); err != nil {
		return &IOError{Op: "ensure-folder", Key: folder, Err: err}
	}
	return nil
}
