package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"beatmarket/internal/model"

	"github.com/go-redis/redis/v8"
)

// uploadStatusTTL bounds how long a finished or abandoned upload stays queryable.
const uploadStatusTTL = 24 * time.Hour

// UploadRepository tracks chunk and progress state of uploads in Redis.
type UploadRepository interface {
	Start(ctx context.Context, uploaderID, uploadID string, totalChunks int) error
	MarkChunkUploaded(ctx context.Context, uploaderID, uploadID string, chunkIndex int) error
	SetProgress(ctx context.Context, uploaderID, uploadID string, progress int) error
	GetStatus(ctx context.Context, uploaderID, uploadID string) (*model.UploadStatus, error)
}

type uploadRepository struct {
	redisClient *redis.Client
}

// NewUploadRepository creates an UploadRepository backed by Redis.
func NewUploadRepository(redisClient *redis.Client) UploadRepository {
	return &uploadRepository{redisClient: redisClient}
}

// chunkKey holds the bitmap of stored chunks; metaKey a hash of progress and total.
func (r *uploadRepository) chunkKey(uploaderID, uploadID string) string {
	return "upload:" + uploaderID + ":" + uploadID
}

func (r *uploadRepository) metaKey(uploaderID, uploadID string) string {
	return "upload:" + uploaderID + ":" + uploadID + ":meta"
}

func (r *uploadRepository) Start(ctx context.Context, uploaderID, uploadID string, totalChunks int) error {
	meta := r.metaKey(uploaderID, uploadID)
	pipe := r.redisClient.TxPipeline()
	pipe.Del(ctx, r.chunkKey(uploaderID, uploadID))
	pipe.HSet(ctx, meta, "progress", 0, "total", totalChunks)
	pipe.Expire(ctx, meta, uploadStatusTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *uploadRepository) MarkChunkUploaded(ctx context.Context, uploaderID, uploadID string, chunkIndex int) error {
	key := r.chunkKey(uploaderID, uploadID)
	pipe := r.redisClient.TxPipeline()
	pipe.SetBit(ctx, key, int64(chunkIndex), 1)
	pipe.Expire(ctx, key, uploadStatusTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *uploadRepository) SetProgress(ctx context.Context, uploaderID, uploadID string, progress int) error {
	return r.redisClient.HSet(ctx, r.metaKey(uploaderID, uploadID), "progress", progress).Err()
}

func (r *uploadRepository) GetStatus(ctx context.Context, uploaderID, uploadID string) (*model.UploadStatus, error) {
	meta, err := r.redisClient.HGetAll(ctx, r.metaKey(uploaderID, uploadID)).Result()
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return nil, ErrUploadNotFound
	}
	progress, err := strconv.Atoi(meta["progress"])
	if err != nil {
		return nil, fmt.Errorf("corrupt progress for upload %s: %w", uploadID, err)
	}
	total, err := strconv.Atoi(meta["total"])
	if err != nil {
		return nil, fmt.Errorf("corrupt chunk total for upload %s: %w", uploadID, err)
	}

	bitmap, err := r.redisClient.Get(ctx, r.chunkKey(uploaderID, uploadID)).Bytes()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	return &model.UploadStatus{
		UploadID:       uploadID,
		Progress:       progress,
		UploadedChunks: chunksFromBitmap(bitmap, total),
		TotalChunks:    total,
	}, nil
}

// chunksFromBitmap lists the set bits of a Redis bitmap. SETBIT numbers bits
// from the most significant bit of the first byte.
func chunksFromBitmap(bitmap []byte, total int) []int {
	uploaded := make([]int, 0)
	for i := 0; i < total; i++ {
		byteIndex := i / 8
		bitIndex := i % 8
		if byteIndex < len(bitmap) && (bitmap[byteIndex]>>(7-bitIndex))&1 == 1 {
			uploaded = append(uploaded, i)
		}
	}
	return uploaded
}
