package service

import (
	"path/filepath"
	"strings"

	"beatmarket/internal/config"
	"beatmarket/internal/model"
)

// UploadKind is the role a file plays for a beat.
type UploadKind string

const (
	KindFullTrack UploadKind = "full_track"
	KindStems     UploadKind = "stems"
	KindPreview   UploadKind = "preview"
	KindCover     UploadKind = "cover"
	KindAvatar    UploadKind = "avatar"
)

// License tiers that require lossless masters.
const (
	LicenseBasic     = "basic"
	LicensePremium   = "premium"
	LicenseExclusive = "exclusive"
)

var (
	wavTypes = map[string]bool{"audio/wav": true, "audio/x-wav": true, "audio/wave": true, "audio/vnd.wave": true}
	zipTypes = map[string]bool{"application/zip": true, "application/x-zip-compressed": true, "application/x-zip": true}
)

// ParseUploadKind validates a kind string.
func ParseUploadKind(s string) (UploadKind, error) {
	switch k := UploadKind(s); k {
	case KindFullTrack, KindStems, KindPreview, KindCover, KindAvatar:
		return k, nil
	}
	return "", newValidationError("kind", "unknown upload kind %q", s)
}

// Bucket returns the storage bucket files of kind k go to.
func (k UploadKind) Bucket() model.Bucket {
	switch k {
	case KindCover:
		return model.BucketCovers
	case KindAvatar:
		return model.BucketAvatars
	}
	return model.BucketContent
}

// FileMeta is what validation knows about a file before reading it.
type FileMeta struct {
	Name     string
	Size     int64
	MimeType string
}

// ValidateUpload applies the per-kind rules that must hold before any upload starts.
func ValidateUpload(kind UploadKind, f FileMeta, licenses []string, limits config.UploadConfig) error {
	if f.Size <= 0 {
		return newValidationError("file", "file is empty")
	}
	switch kind {
	case KindFullTrack:
		return validateFullTrack(f, licenses, limits.FullTrackMaxBytes)
	case KindStems:
		return validateStems(f, limits.StemsMaxBytes)
	}
	return nil
}

func validateFullTrack(f FileMeta, licenses []string, maxBytes int64) error {
	if maxBytes > 0 && f.Size > maxBytes {
		return newValidationError("file", "full track must be at most %dMB", maxBytes/(1024*1024))
	}
	if requiresWAV(licenses) && !isWAV(f) {
		return newValidationError("file", "premium and exclusive licenses require a WAV file")
	}
	return nil
}

func validateStems(f FileMeta, maxBytes int64) error {
	if maxBytes > 0 && f.Size > maxBytes {
		return newValidationError("file", "stems archive must be at most %dMB", maxBytes/(1024*1024))
	}
	if !isZIP(f) {
		return newValidationError("file", "stems must be uploaded as a ZIP archive")
	}
	return nil
}

func requiresWAV(licenses []string) bool {
	for _, l := range licenses {
		switch strings.ToLower(strings.TrimSpace(l)) {
		case LicensePremium, LicenseExclusive:
			return true
		}
	}
	return false
}

// isWAV accepts either a WAV content type or a .wav suffix.
func isWAV(f FileMeta) bool {
	return wavTypes[strings.ToLower(f.MimeType)] || strings.EqualFold(filepath.Ext(f.Name), ".wav")
}

func isZIP(f FileMeta) bool {
	return zipTypes[strings.ToLower(f.MimeType)] || strings.EqualFold(filepath.Ext(f.Name), ".zip")
}
