package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"edumedia/config"
	"edumedia/logger"
)

// Object describes a stored blob.
type Object struct {
	Key  string
	URL  string
	Size int64
}

// BlobStore is durable storage for uploaded files addressed by generated keys.
type BlobStore interface {
	Put(ctx context.Context, dir, originalName string, r io.Reader) (*Object, error)
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every blob under prefix in one call.
	DeletePrefix(ctx context.Context, prefix string) error
	URL(key string) string
}

// Open builds the store selected by STORAGE_MODE.
func Open(ctx context.Context, cfg config.Storage, log *logger.Logger) (BlobStore, error) {
	switch cfg.Mode {
	case "gcs":
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.PublicBaseURL, log)
	case "local", "":
		return NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL, log)
	default:
		return nil, fmt.Errorf("unsupported STORAGE_MODE %q", cfg.Mode)
	}
}

// StoredName generates the blob name for an upload: a random id, a short
// fingerprint of the original name, and its lowercased extension.
func StoredName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%s-%016x%s", uuid.NewString(), xxhash.Sum64String(originalName), ext)
}

// JoinKey joins key segments with forward slashes regardless of OS.
func JoinKey(parts ...string) string {
	return path.Join(parts...)
}

// DeleteQuietly removes a blob and only logs failures. The database is the
// source of truth; a leftover blob never blocks a record delete.
func DeleteQuietly(ctx context.Context, store BlobStore, key string, log *logger.Logger) {
	if store == nil || key == "" {
		return
	}
	if err := store.Delete(ctx, key); err != nil {
		log.Warn("blob delete failed", "key", key, "error", err)
	}
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("empty blob key")
	}
	return cleaned, nil
}
