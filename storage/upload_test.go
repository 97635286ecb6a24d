package storage_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumedia/logger"
	"edumedia/storage"
	"edumedia/storage/storagetest"
)

func fileHeader(t *testing.T, name, declared string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	if declared != "" {
		h.Set("Content-Type", declared)
	}
	pw, err := mw.CreatePart(h)
	require.NoError(t, err)
	pw.Write(content)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

func TestDetectTypeUsesContent(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		content  []byte
		want     string
	}{
		{"a.PNG", "application/octet-stream", storagetest.PNG, "image/png"},
		{"photo.jpg", "", storagetest.JPEG, "image/jpeg"},
		{"noext", "", storagetest.WEBP, "image/webp"},
		{"doc.pdf", "", storagetest.PDF, "application/pdf"},
		{"clip.mp4", "", storagetest.MP4, "video/mp4"},
		{"a.mp3", "", storagetest.MP3, "audio/mpeg"},
		{"raw.mp3", "", []byte("\xff\xfb\x90\x00\x00\x00"), "audio/mpeg"},
		{"evil.png", "image/png", storagetest.EXE, "application/octet-stream"},
		{"notes.pdf", "application/pdf", []byte("just text"), "text/plain"},
		{"empty.png", "image/png", nil, "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.DetectType(fileHeader(t, tt.name, tt.declared, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, storage.IsImage("image/webp"))
	assert.False(t, storage.IsImage("application/pdf"))
}

func TestPutFileKeepsSniffedBytes(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "/uploads", logger.NewNop())
	require.NoError(t, err)
	content := append(append([]byte{}, storagetest.PNG...), bytes.Repeat([]byte("x"), 2048)...)

	up, err := storage.PutFile(context.Background(), store, "gallery/f1", fileHeader(t, "a.png", "text/plain", content))
	require.NoError(t, err)
	assert.Equal(t, "image/png", up.MimeType)
	assert.Equal(t, int64(len(content)), up.Size)
}
