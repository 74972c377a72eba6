package service

const (
	smallChunkSize = 5 * 1024 * 1024
	largeChunkSize = 10 * 1024 * 1024
	// largeFileThreshold switches to the larger chunk size above it.
	largeFileThreshold = 100 * 1024 * 1024
)

// ChunkPlan is the chunk layout of one upload.
type ChunkPlan struct {
	TotalSize  int64 `json:"totalSize"`
	ChunkSize  int64 `json:"chunkSize"`
	ChunkCount int   `json:"chunkCount"`
}

// PlanChunks computes the chunk layout for totalSize bytes. A zero size
// yields a zero chunk count; callers reject empty files before planning.
func PlanChunks(totalSize int64) ChunkPlan {
	if totalSize < 0 {
		totalSize = 0
	}
	chunkSize := int64(smallChunkSize)
	if totalSize > largeFileThreshold {
		chunkSize = largeChunkSize
	}
	return ChunkPlan{
		TotalSize:  totalSize,
		ChunkSize:  chunkSize,
		ChunkCount: int((totalSize + chunkSize - 1) / chunkSize),
	}
}

// Range returns the byte range [start, end) of chunk i.
func (p ChunkPlan) Range(i int) (start, end int64) {
	start = int64(i) * p.ChunkSize
	end = start + p.ChunkSize
	if end > p.TotalSize {
		end = p.TotalSize
	}
	return start, end
}

// Chunked reports whether the upload goes through the chunked path.
func (p ChunkPlan) Chunked() bool {
	return p.ChunkCount > 1
}
