package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"edumedia/logger"
)

// LocalStore keeps blobs on disk under root and serves them from publicBase.
type LocalStore struct {
	root       string
	publicBase string
	log        *logger.Logger
}

func NewLocalStore(root, publicBase string, log *logger.Logger) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("upload dir not set")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{
		root:       root,
		publicBase: strings.TrimRight(publicBase, "/"),
		log:        log.With("store", "LocalStore"),
	}, nil
}

func (s *LocalStore) Put(ctx context.Context, dir, originalName string, r io.Reader) (*Object, error) {
	key, err := cleanKey(JoinKey(dir, StoredName(originalName)))
	if err != nil {
		return nil, err
	}
	full := s.path(key)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, err
	}

	f, err := os.Create(full)
	if err != nil {
		return nil, err
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(full)
		if copyErr != nil {
			return nil, copyErr
		}
		return nil, closeErr
	}

	return &Object{Key: key, URL: s.URL(key), Size: n}, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStore) DeletePrefix(ctx context.Context, prefix string) error {
	prefix, err := cleanKey(prefix)
	if err != nil {
		return err
	}
	return os.RemoveAll(s.path(prefix))
}

func (s *LocalStore) URL(key string) string {
	return s.publicBase + "/" + strings.TrimPrefix(key, "/")
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}
