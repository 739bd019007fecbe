package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	localTempDir    = ".tmp"
	localMetaSuffix = ".meta.json"
	maxKeyLength    = 1024
)

var (
	errEmptyKey   = errors.New("key cannot be empty")
	errInvalidKey = errors.New("key contains invalid characters")
)

// LocalStore persists objects as files under a root directory with a JSON
// sidecar per object. Writes go through a temp file and an atomic rename, so
// an object is either fully present or absent.
type LocalStore struct {
	root string
}

// localMeta is the sidecar file content.
type localMeta struct {
	ContentType string            `json:"contentType"`
	Size        int64             `json:"size"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewLocalStore prepares the root and temp directories.
func NewLocalStore(root string) (*LocalStore, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(filepath.Join(root, localTempDir), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// validateKey rejects keys that could escape the root or collide with the
// store's own files.
func validateKey(key string) error {
	if key == "" {
		return errEmptyKey
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("key %q: %w", key[:32], errInvalidKey)
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("key %q: %w", key, errInvalidKey)
	}
	if strings.HasSuffix(key, localMetaSuffix) || strings.HasPrefix(key, localTempDir) {
		return fmt.Errorf("key %q: %w", key, errInvalidKey)
	}
	return nil
}

func (s *LocalStore) dataPath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *LocalStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Join(s.root, localTempDir), "put-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("finalize %q: %w", path, err)
	}
	return nil
}

func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	path := s.dataPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	metaBytes, err := json.Marshal(localMeta{
		ContentType: contentType,
		Size:        int64(len(data)),
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal sidecar for %q: %w", key, err)
	}

	if err := s.writeAtomic(path, data); err != nil {
		return err
	}
	if err := s.writeAtomic(path+localMetaSuffix, metaBytes); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

func (s *LocalStore) readMeta(path string) (*localMeta, error) {
	raw, err := os.ReadFile(path + localMetaSuffix)
	if err != nil {
		return nil, err
	}
	var meta localMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode sidecar %q: %w", path, err)
	}
	return &meta, nil
}

func (s *LocalStore) Get(ctx context.Context, key string) (*Object, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	path := s.dataPath(key)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("object %q: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("open object %q: %w", key, err)
	}
	meta, err := s.readMeta(path)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read sidecar for %q: %w", key, err)
	}
	return &Object{
		Body:        f,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		Metadata:    meta.Metadata,
	}, nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	_, err := os.Stat(s.dataPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	path := s.dataPath(key)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("object %q: %w", key, ErrObjectNotFound)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	_ = os.Remove(path + localMetaSuffix)
	return nil
}

func (s *LocalStore) List(ctx context.Context, prefix string, fn func(ObjectInfo) error) error {
	return filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == localTempDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, localMetaSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		meta, err := s.readMeta(path)
		if err != nil {
			// An object mid-write or with a corrupt sidecar is skipped
			// rather than failing the whole walk.
			return nil
		}
		return fn(ObjectInfo{Key: key, Metadata: meta.Metadata})
	})
}

// ensure interface compliance
var (
	_ ObjectStore = (*LocalStore)(nil)
	_ ObjectStore = (*GCSStore)(nil)
	_ io.Closer   = (*GCSStore)(nil)
)
