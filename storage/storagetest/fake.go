// Package storagetest provides an in-memory BlobStore for tests.
package storagetest

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"edumedia/storage"
)

var ErrInjected = errors.New("injected blob failure")

type Fake struct {
	mu      sync.Mutex
	Blobs   map[string][]byte
	Deleted []string
	// Prefixes records DeletePrefix calls.
	Prefixes []string
	// FailDeletes makes every Delete and DeletePrefix return ErrInjected.
	FailDeletes bool
}

func New() *Fake {
	return &Fake{Blobs: map[string][]byte{}}
}

func (f *Fake) Put(ctx context.Context, dir, originalName string, r io.Reader) (*storage.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	key := storage.JoinKey(dir, storage.StoredName(originalName))
	f.mu.Lock()
	f.Blobs[key] = data
	f.mu.Unlock()
	return &storage.Object{Key: key, URL: f.URL(key), Size: int64(len(data))}, nil
}

func (f *Fake) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDeletes {
		return ErrInjected
	}
	delete(f.Blobs, key)
	f.Deleted = append(f.Deleted, key)
	return nil
}

func (f *Fake) DeletePrefix(ctx context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDeletes {
		return ErrInjected
	}
	f.Prefixes = append(f.Prefixes, prefix)
	for key := range f.Blobs {
		if strings.HasPrefix(key, strings.TrimSuffix(prefix, "/")+"/") {
			delete(f.Blobs, key)
		}
	}
	return nil
}

func (f *Fake) URL(key string) string {
	return "/uploads/" + key
}

func (f *Fake) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Blobs[key]
	return ok
}

func (f *Fake) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Blobs)
}
