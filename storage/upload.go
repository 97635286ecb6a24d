package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// sniffLen is how much of a file http.DetectContentType looks at.
const sniffLen = 512

// Upload is a stored multipart file.
type Upload struct {
	Object
	OriginalName string
	MimeType     string
}

// PutFile stores a multipart file under dir. MimeType comes from the file's
// leading bytes, never from the client.
func PutFile(ctx context.Context, store BlobStore, dir string, file *multipart.FileHeader) (*Upload, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head, err := readHead(f)
	if err != nil {
		return nil, err
	}
	obj, err := store.Put(ctx, dir, file.Filename, io.MultiReader(bytes.NewReader(head), f))
	if err != nil {
		return nil, err
	}
	return &Upload{Object: *obj, OriginalName: file.Filename, MimeType: detect(head, file.Filename)}, nil
}

// DetectType sniffs the content type of an uploaded file.
func DetectType(file *multipart.FileHeader) (string, error) {
	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	head, err := readHead(f)
	if err != nil {
		return "", err
	}
	return detect(head, file.Filename), nil
}

func readHead(r io.Reader) ([]byte, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return head[:n], nil
}

// containerTypes are audio/video formats http.DetectContentType reports as
// application/octet-stream. Only for those is the extension consulted.
var containerTypes = map[string]string{
	".mov": "video/quicktime",
	".mp3": "audio/mpeg",
	".m4a": "audio/mp4",
	".aac": "audio/aac",
}

func detect(head []byte, filename string) string {
	ct := http.DetectContentType(head)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "application/ogg":
		return "audio/ogg"
	case "application/octet-stream":
		if t, ok := containerTypes[strings.ToLower(filepath.Ext(filename))]; ok {
			return t
		}
	}
	return ct
}

func IsImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
