package service

import (
	"io"
	"path/filepath"
	"strings"

	"beatmarket/internal/model"

	"github.com/gabriel-vasile/mimetype"
)

const (
	defaultBinaryType = "application/octet-stream"
	defaultImageType  = "image/jpeg"
	// sniffLen is how many leading bytes are handed to the content sniffer.
	sniffLen = 3072
)

var extensionTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".aac":  "audio/aac",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".aiff": "audio/aiff",
	".zip":  "application/zip",
	".rar":  "application/vnd.rar",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ContentTypeForExtension maps a file name's extension to a content type.
// It returns "" for unknown extensions.
func ContentTypeForExtension(name string) string {
	return extensionTypes[strings.ToLower(filepath.Ext(name))]
}

// DefaultContentType is used when neither the declared type nor the file tell us anything.
func DefaultContentType(bucket model.Bucket) string {
	if bucket.IsImage() {
		return defaultImageType
	}
	return defaultBinaryType
}

func isGenericType(ct string) bool {
	ct = strings.TrimSpace(strings.ToLower(ct))
	return ct == "" || ct == defaultBinaryType || ct == "binary/octet-stream"
}

// ResolveContentType picks the content type of an upload: the declared type
// unless generic, then the extension, then the sniffed bytes of data, then
// the bucket default.
func ResolveContentType(declared, name string, data io.ReaderAt, size int64, bucket model.Bucket) string {
	if !isGenericType(declared) {
		return declared
	}
	if ct := ContentTypeForExtension(name); ct != "" {
		return ct
	}
	if data != nil && size > 0 {
		n := int64(sniffLen)
		if size < n {
			n = size
		}
		head := make([]byte, n)
		if read, err := data.ReadAt(head, 0); read > 0 && (err == nil || err == io.EOF) {
			sniffed := mimetype.Detect(head[:read])
			ct, _, _ := strings.Cut(sniffed.String(), ";")
			if !isGenericType(ct) && !strings.HasPrefix(ct, "text/plain") {
				return ct
			}
		}
	}
	return DefaultContentType(bucket)
}
