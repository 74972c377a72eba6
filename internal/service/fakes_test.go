package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"beatmarket/internal/model"
	"beatmarket/internal/repository"
	"beatmarket/pkg/storage"
)

// memoryStore is an in-memory ObjectStore that records every call.
type memoryStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	puts     []putCall
	composes int
	deleted  []string

	inflight    int
	maxInflight int
	// putDelay widens the window in which concurrent puts overlap.
	putDelay time.Duration
	// failKey makes PutObject fail for keys with this suffix.
	failKey string
}

type putCall struct {
	Bucket model.Bucket
	Key    string
	Opts   storage.PutOptions
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func objectID(bucket model.Bucket, key string) string {
	return string(bucket) + "/" + key
}

func (m *memoryStore) PutObject(_ context.Context, bucket model.Bucket, key string, r io.Reader, size int64, opts storage.PutOptions) (string, error) {
	m.mu.Lock()
	m.puts = append(m.puts, putCall{Bucket: bucket, Key: key, Opts: opts})
	m.inflight++
	if m.inflight > m.maxInflight {
		m.maxInflight = m.inflight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inflight--
		m.mu.Unlock()
	}()

	if m.putDelay > 0 {
		time.Sleep(m.putDelay)
	}
	if m.failKey != "" && strings.HasSuffix(key, m.failKey) {
		return "", errors.New("connection reset")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if int64(len(data)) != size {
		return "", fmt.Errorf("short body: %d != %d", len(data), size)
	}
	if opts.OnBytes != nil {
		half := int64(len(data) / 2)
		opts.OnBytes(half)
		opts.OnBytes(int64(len(data)) - half)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := objectID(bucket, key)
	if _, exists := m.objects[id]; exists && !opts.Overwrite {
		return "", storage.ErrObjectExists
	}
	m.objects[id] = data
	return key, nil
}

func (m *memoryStore) PublicURL(bucket model.Bucket, path string) string {
	return "https://cdn.test/" + string(bucket) + "/" + path
}

func (m *memoryStore) ComposeObject(_ context.Context, bucket model.Bucket, dstKey string, srcKeys []string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.composes++
	var buf bytes.Buffer
	for _, k := range srcKeys {
		data, ok := m.objects[objectID(bucket, k)]
		if !ok {
			return fmt.Errorf("missing source %s", k)
		}
		buf.Write(data)
	}
	m.objects[objectID(bucket, dstKey)] = buf.Bytes()
	return nil
}

func (m *memoryStore) DeleteObjects(_ context.Context, bucket model.Bucket, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.objects, objectID(bucket, k))
		m.deleted = append(m.deleted, k)
	}
	return nil
}

func (m *memoryStore) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.puts) + m.composes + len(m.deleted)
}

// memoryUploadRepo keeps upload status in memory.
type memoryUploadRepo struct {
	mu       sync.Mutex
	statuses map[string]*model.UploadStatus
}

func newMemoryUploadRepo() *memoryUploadRepo {
	return &memoryUploadRepo{statuses: make(map[string]*model.UploadStatus)}
}

func (r *memoryUploadRepo) Start(_ context.Context, uploaderID, uploadID string, totalChunks int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[uploaderID+uploadID] = &model.UploadStatus{UploadID: uploadID, TotalChunks: totalChunks, UploadedChunks: []int{}}
	return nil
}

func (r *memoryUploadRepo) MarkChunkUploaded(_ context.Context, uploaderID, uploadID string, chunkIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.statuses[uploaderID+uploadID]
	st.UploadedChunks = append(st.UploadedChunks, chunkIndex)
	return nil
}

func (r *memoryUploadRepo) SetProgress(_ context.Context, uploaderID, uploadID string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[uploaderID+uploadID].Progress = progress
	return nil
}

func (r *memoryUploadRepo) GetStatus(_ context.Context, uploaderID, uploadID string) (*model.UploadStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.statuses[uploaderID+uploadID]
	if !ok {
		return nil, repository.ErrUploadNotFound
	}
	cp := *st
	return &cp, nil
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, _ string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

// progressRecorder collects progress callback values.
type progressRecorder struct {
	mu     sync.Mutex
	values []int
}

func (p *progressRecorder) record(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, v)
}

func (p *progressRecorder) snapshot() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.values...)
}
