package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"edumedia/logger"
)

// GCSStore keeps blobs as objects in a single Google Cloud Storage bucket.
type GCSStore struct {
	client     *storage.Client
	bucket     string
	publicBase string
	log        *logger.Logger
}

func NewGCSStore(ctx context.Context, bucket, publicBase string, log *logger.Logger) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if publicBase == "" || strings.HasPrefix(publicBase, "/") {
		publicBase = "https://storage.googleapis.com/" + bucket
	}
	storeLog := log.With("store", "GCSStore")
	storeLog.Info("Object storage initialized", "bucket", bucket, "public_base_url", publicBase)
	return &GCSStore{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		log:        storeLog,
	}, nil
}

func (s *GCSStore) Put(ctx context.Context, dir, originalName string, r io.Reader) (*Object, error) {
	key, err := cleanKey(JoinKey(dir, StoredName(originalName)))
	if err != nil {
		return nil, err
	}
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize %s: %w", key, err)
	}
	return &Object{Key: key, URL: s.URL(key), Size: n}, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

// DeletePrefix lists and removes every object under prefix/.
func (s *GCSStore) DeletePrefix(ctx context.Context, prefix string) error {
	prefix, err := cleanKey(prefix)
	if err != nil {
		return err
	}
	bkt := s.client.Bucket(s.bucket)
	it := bkt.Objects(ctx, &storage.Query{Prefix: prefix + "/"})
	var firstErr error
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return err
		}
		if err := bkt.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			s.log.Warn("prefix delete: object delete failed", "key", attrs.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *GCSStore) URL(key string) string {
	return s.publicBase + "/" + strings.TrimPrefix(key, "/")
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
