package storagetest

import (
	"path/filepath"
	"strings"
)

// Leading bytes http.DetectContentType recognises.
var (
	PNG  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	JPEG = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	GIF  = []byte("GIF89a\x01\x00\x01\x00")
	WEBP = []byte("RIFF\x24\x00\x00\x00WEBPVP8 ")
	PDF  = []byte("%PDF-1.4\n%test\n")
	MP4  = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")
	MP3  = []byte("ID3\x03\x00\x00\x00\x00\x00\x00")
	EXE  = []byte("MZ\x90\x00\x03\x00\x00\x00\x04\x00")
)

// Sample returns bytes whose sniffed type matches the file extension.
// Unknown extensions get an executable header.
func Sample(filename string) []byte {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return PNG
	case ".jpg", ".jpeg":
		return JPEG
	case ".gif":
		return GIF
	case ".webp":
		return WEBP
	case ".pdf":
		return PDF
	case ".mp4":
		return MP4
	case ".mp3":
		return MP3
	default:
		return EXE
	}
}
