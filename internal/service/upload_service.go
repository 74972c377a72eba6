package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"beatmarket/internal/config"
	"beatmarket/internal/model"
	"beatmarket/internal/repository"
	"beatmarket/pkg/events"
	"beatmarket/pkg/log"
	"beatmarket/pkg/metrics"
	"beatmarket/pkg/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxConcurrentChunks = 3
	cleanupTimeout             = 2 * time.Minute
)

// ObjectStore is the storage collaborator used by the upload pipeline.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket model.Bucket, key string, r io.Reader, size int64, opts storage.PutOptions) (string, error)
	PublicURL(bucket model.Bucket, path string) string
	ComposeObject(ctx context.Context, bucket model.Bucket, dstKey string, srcKeys []string, contentType string) error
	DeleteObjects(ctx context.Context, bucket model.Bucket, keys []string) error
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload interface{}) error
}

// UploadInput is either a Blob to store or an ExistingRef to an object stored earlier.
type UploadInput interface {
	isUploadInput()
}

// Blob is a file to be stored.
type Blob struct {
	Data     io.ReaderAt
	Size     int64
	Name     string
	MimeType string
}

// ExistingRef points at an already stored object.
type ExistingRef struct {
	URL string
}

func (Blob) isUploadInput()        {}
func (ExistingRef) isUploadInput() {}

// UploadRequest describes one upload.
type UploadRequest struct {
	Input  UploadInput
	Bucket model.Bucket
	// Dir is the key prefix; the object name itself is always generated.
	Dir        string
	UploaderID string
	// UploadID identifies the attempt for status queries. Generated when empty.
	UploadID   string
	OnProgress ProgressFunc
}

// UploadResult is the outcome of a successful upload.
type UploadResult struct {
	UploadID    string `json:"uploadId,omitempty"`
	URL         string `json:"url"`
	Path        string `json:"path,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Chunks      int    `json:"chunks,omitempty"`
}

// UploadService stores files and reports their progress.
type UploadService interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
	Status(ctx context.Context, uploaderID, uploadID string) (*model.UploadStatus, error)
	// Wait blocks until background chunk cleanup has finished.
	Wait()
}

type uploadService struct {
	store         ObjectStore
	uploadRepo    repository.UploadRepository
	hub           *ProgressHub
	events        EventPublisher
	maxConcurrent int
	cleanups      sync.WaitGroup
}

// NewUploadService creates the upload orchestrator. events may be nil.
func NewUploadService(store ObjectStore, uploadRepo repository.UploadRepository, hub *ProgressHub, events EventPublisher, cfg config.UploadConfig) UploadService {
	maxConcurrent := cfg.MaxConcurrentChunks
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentChunks
	}
	if maxConcurrent > defaultMaxConcurrentChunks {
		log.Warnw("[Upload] max_concurrent_chunks above limit, clamping",
			"configured", cfg.MaxConcurrentChunks, "limit", defaultMaxConcurrentChunks)
		maxConcurrent = defaultMaxConcurrentChunks
	}
	return &uploadService{
		store:         store,
		uploadRepo:    uploadRepo,
		hub:           hub,
		events:        events,
		maxConcurrent: maxConcurrent,
	}
}

// ProgressKey scopes live progress of uploadID to its uploader.
func ProgressKey(uploaderID, uploadID string) string {
	return uploaderID + ":" + uploadID
}

// Upload stores the input and returns its public URL. An ExistingRef is
// returned as is without touching storage.
func (s *uploadService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	switch in := req.Input.(type) {
	case ExistingRef:
		if in.URL == "" {
			return nil, newValidationError("file", "existing file reference has no URL")
		}
		if req.OnProgress != nil {
			req.OnProgress(100)
		}
		metrics.RecordUpload(string(req.Bucket), "existing", "success", 0)
		return &UploadResult{URL: in.URL}, nil
	case Blob:
		return s.uploadBlob(ctx, req, in)
	case nil:
		return nil, newValidationError("file", "no file provided")
	default:
		return nil, fmt.Errorf("unsupported upload input %T", req.Input)
	}
}

func (s *uploadService) uploadBlob(ctx context.Context, req UploadRequest, blob Blob) (*UploadResult, error) {
	if !req.Bucket.Valid() {
		return nil, newValidationError("bucket", "unknown bucket %q", req.Bucket)
	}
	if blob.Data == nil || blob.Size <= 0 {
		return nil, newValidationError("file", "file is empty")
	}

	uploadID := req.UploadID
	if uploadID == "" {
		uploadID = uuid.NewString()
	}
	key := path.Join(req.Dir, uuid.NewString()+strings.ToLower(filepath.Ext(blob.Name)))
	target := model.UploadTarget{
		Bucket:      req.Bucket,
		Path:        key,
		ContentType: ResolveContentType(blob.MimeType, blob.Name, blob.Data, blob.Size, req.Bucket),
	}
	plan := PlanChunks(blob.Size)

	progressKey := ProgressKey(req.UploaderID, uploadID)
	tracker := newProgressTracker(req.OnProgress, func(p int) { s.hub.Publish(progressKey, p) })
	defer s.hub.Close(progressKey)

	log.Infow("[Upload] starting upload",
		"uploadId", uploadID, "bucket", target.Bucket, "path", target.Path,
		"size", plan.TotalSize, "chunks", plan.ChunkCount, "contentType", target.ContentType)

	if err := s.uploadRepo.Start(ctx, req.UploaderID, uploadID, plan.ChunkCount); err != nil {
		log.Warnw("[Upload] failed to record upload start", "uploadId", uploadID, "error", err)
	}
	tracker.report(5)

	mode := "single"
	var err error
	if plan.Chunked() {
		mode = "chunked"
		err = s.uploadChunked(ctx, req.UploaderID, uploadID, target, blob, plan, tracker)
	} else {
		err = s.uploadSingle(ctx, target, blob, tracker)
	}
	if err != nil {
		metrics.RecordUpload(string(target.Bucket), mode, "error", 0)
		s.saveProgress(ctx, req.UploaderID, uploadID, tracker.current())
		log.Errorw("[Upload] upload failed", "uploadId", uploadID, "bucket", target.Bucket, "path", target.Path, "error", err)
		return nil, err
	}

	url := s.store.PublicURL(target.Bucket, target.Path)
	tracker.report(100)
	s.saveProgress(ctx, req.UploaderID, uploadID, 100)
	metrics.RecordUpload(string(target.Bucket), mode, "success", plan.TotalSize)
	log.Infow("[Upload] upload finished", "uploadId", uploadID, "path", target.Path, "url", url)

	s.publishFinalized(ctx, req.UploaderID, target, url, plan)

	return &UploadResult{
		UploadID:    uploadID,
		URL:         url,
		Path:        target.Path,
		ContentType: target.ContentType,
		Size:        plan.TotalSize,
		Chunks:      plan.ChunkCount,
	}, nil
}

// uploadSingle stores the whole blob with one call. Progress follows the
// bytes reported by the storage client.
func (s *uploadService) uploadSingle(ctx context.Context, target model.UploadTarget, blob Blob, tracker *progressTracker) error {
	var sent atomic.Int64
	opts := storage.PutOptions{
		ContentType: target.ContentType,
		// image buckets never overwrite so every cover or avatar gets a fresh name
		Overwrite: !target.Bucket.IsImage(),
		OnBytes: func(n int64) {
			tracker.report(transferProgress(sent.Add(n), blob.Size))
		},
	}
	r := io.NewSectionReader(blob.Data, 0, blob.Size)
	if _, err := s.store.PutObject(ctx, target.Bucket, target.Path, r, blob.Size, opts); err != nil {
		return &TransportError{Op: "upload", Target: fmt.Sprintf("%s/%s", target.Bucket, target.Path), Err: err}
	}
	tracker.report(95)
	return nil
}

// uploadChunked stores the blob as part objects in batches of at most
// maxConcurrent, then concatenates them in index order into target.Path.
func (s *uploadService) uploadChunked(ctx context.Context, uploaderID, uploadID string, target model.UploadTarget, blob Blob, plan ChunkPlan, tracker *progressTracker) error {
	results := make([]model.ChunkResult, plan.ChunkCount)
	var uploaded atomic.Int64

	stored := func() []string {
		keys := make([]string, 0, len(results))
		for _, r := range results {
			if r.PartPath != "" {
				keys = append(keys, r.PartPath)
			}
		}
		return keys
	}
	// parts are temporary whatever the outcome
	defer func() { s.cleanupParts(target.Bucket, stored()) }()

	for batch := 0; batch < plan.ChunkCount; batch += s.maxConcurrent {
		end := batch + s.maxConcurrent
		if end > plan.ChunkCount {
			end = plan.ChunkCount
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := batch; i < end; i++ {
			g.Go(func() error {
				start, stop := plan.Range(i)
				part := fmt.Sprintf("%s.part%d", target.Path, i)
				r := io.NewSectionReader(blob.Data, start, stop-start)
				opts := storage.PutOptions{ContentType: defaultBinaryType, Overwrite: true}
				if _, err := s.store.PutObject(gctx, target.Bucket, part, r, stop-start, opts); err != nil {
					return &TransportError{Op: "upload chunk", Target: fmt.Sprintf("%s/%s", target.Bucket, part), Err: err}
				}
				results[i] = model.ChunkResult{PartPath: part, ByteSize: stop - start}
				tracker.report(transferProgress(uploaded.Add(stop-start), plan.TotalSize))

				if err := s.uploadRepo.MarkChunkUploaded(gctx, uploaderID, uploadID, i); err != nil {
					log.Warnw("[Upload] failed to mark chunk", "uploadId", uploadID, "chunk", i, "error", err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		s.saveProgress(ctx, uploaderID, uploadID, tracker.current())
	}

	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.PartPath
	}
	if err := s.store.ComposeObject(ctx, target.Bucket, target.Path, parts, target.ContentType); err != nil {
		return &TransportError{Op: "finalize", Target: fmt.Sprintf("%s/%s", target.Bucket, target.Path), Err: err}
	}
	tracker.report(95)
	return nil
}

// cleanupParts deletes part objects in the background. Failures are only logged.
func (s *uploadService) cleanupParts(bucket model.Bucket, keys []string) {
	if len(keys) == 0 {
		return
	}
	s.cleanups.Add(1)
	go func() {
		defer s.cleanups.Done()
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if err := s.store.DeleteObjects(ctx, bucket, keys); err != nil {
			log.Warnw("[Upload] chunk cleanup failed", "bucket", bucket, "parts", len(keys), "error", err)
			return
		}
		log.Infow("[Upload] chunk cleanup finished", "bucket", bucket, "parts", len(keys))
	}()
}

func (s *uploadService) saveProgress(ctx context.Context, uploaderID, uploadID string, p int) {
	if err := s.uploadRepo.SetProgress(ctx, uploaderID, uploadID, p); err != nil {
		log.Warnw("[Upload] failed to save progress", "uploadId", uploadID, "progress", p, "error", err)
	}
}

func (s *uploadService) publishFinalized(ctx context.Context, uploaderID string, target model.UploadTarget, url string, plan ChunkPlan) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, events.TypeUploadFinalized, target.Path, events.UploadFinalized{
		UploaderID:  uploaderID,
		Bucket:      string(target.Bucket),
		Path:        target.Path,
		URL:         url,
		ContentType: target.ContentType,
		Size:        plan.TotalSize,
		Chunks:      plan.ChunkCount,
	})
	if err != nil {
		log.Warnw("[Upload] failed to publish upload event", "path", target.Path, "error", err)
	}
}

// Status returns the tracked progress of an upload of uploaderID.
func (s *uploadService) Status(ctx context.Context, uploaderID, uploadID string) (*model.UploadStatus, error) {
	st, err := s.uploadRepo.GetStatus(ctx, uploaderID, uploadID)
	if errors.Is(err, repository.ErrUploadNotFound) {
		return nil, fmt.Errorf("upload %s: %w", uploadID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *uploadService) Wait() {
	s.cleanups.Wait()
}
