package model

// Bucket names a logical storage bucket.
type Bucket string

const (
	BucketContent Bucket = "content"
	BucketCovers  Bucket = "covers"
	BucketAvatars Bucket = "avatars"
)

// IsImage reports whether b only holds images.
func (b Bucket) IsImage() bool {
	return b == BucketCovers || b == BucketAvatars
}

// Valid reports whether b is one of the known buckets.
func (b Bucket) Valid() bool {
	switch b {
	case BucketContent, BucketCovers, BucketAvatars:
		return true
	}
	return false
}

// UploadTarget identifies where a blob is written. It is not modified once
// chunk planning starts.
type UploadTarget struct {
	Bucket      Bucket `json:"bucket"`
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
}

// ChunkResult describes one stored part, in chunk index order.
type ChunkResult struct {
	PartPath string `json:"partPath"`
	ByteSize int64  `json:"byteSize"`
}

// UploadStatus is the persisted progress of an upload attempt.
type UploadStatus struct {
	UploadID       string `json:"uploadId"`
	Progress       int    `json:"progress"`
	UploadedChunks []int  `json:"uploadedChunks"`
	TotalChunks    int    `json:"totalChunks"`
}
