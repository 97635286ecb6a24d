// Package cache stores rendered responses as files keyed by xxhash.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const fileExt = ".json"

type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Path returns the cache file path for key inside namespace.
func (s *Store) Path(namespace, key string) string {
	shortHash := generateHash(namespace + key)[:16]
	return filepath.Join(s.root, namespace, fmt.Sprintf("%s_%s%s", safeName(key), shortHash, fileExt))
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

func safeName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, key)
}

func (s *Store) Write(namespace, key string, data []byte) error {
	if err := os.MkdirAll(filepath.Join(s.root, namespace), 0755); err != nil {
		return err
	}
	path := s.Path(namespace, key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Read returns the cached bytes if present and younger than maxAge.
func (s *Store) Read(namespace, key string, maxAge time.Duration) ([]byte, bool) {
	path := s.Path(namespace, key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > maxAge {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// ClearNamespace removes every entry of a namespace.
func (s *Store) ClearNamespace(namespace string) error {
	return os.RemoveAll(filepath.Join(s.root, namespace))
}

// ClearOld removes cache files older than maxAge.
func (s *Store) ClearOld(maxAge time.Duration) error {
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, fileExt) {
			return nil
		}
		if time.Since(info.ModTime()) > maxAge {
			os.Remove(path)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
