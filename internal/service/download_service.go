package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"beatmarket/internal/model"
	"beatmarket/internal/repository"
	"beatmarket/pkg/log"

	"gorm.io/gorm"
)

// Presigner issues time limited download URLs.
type Presigner interface {
	PresignedGetURL(ctx context.Context, bucket model.Bucket, path string, expiry time.Duration) (string, error)
}

// DownloadInfo carries the download links of a beat.
type DownloadInfo struct {
	BeatID      string    `json:"beatId"`
	Title       string    `json:"title"`
	DownloadURL string    `json:"downloadUrl"`
	StemsURL    string    `json:"stemsUrl,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// DownloadService gates beat downloads on ownership.
type DownloadService interface {
	GetDownloadURL(ctx context.Context, userID, beatID string) (*DownloadInfo, error)
}

type downloadService struct {
	beats     repository.BeatRepository
	presigner Presigner
	expiry    time.Duration
}

// NewDownloadService creates a DownloadService.
func NewDownloadService(beats repository.BeatRepository, presigner Presigner, expiry time.Duration) DownloadService {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &downloadService{beats: beats, presigner: presigner, expiry: expiry}
}

// GetDownloadURL returns presigned links when userID produced the beat or
// holds an ownership grant for it.
func (s *downloadService) GetDownloadURL(ctx context.Context, userID, beatID string) (*DownloadInfo, error) {
	beat, err := s.beats.FindByID(ctx, beatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("beat %s: %w", beatID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load beat %s: %w", beatID, err)
	}

	if beat.ProducerID != userID {
		owned, err := s.beats.HasPurchased(ctx, userID, beatID)
		if err != nil {
			return nil, fmt.Errorf("failed to check ownership of beat %s: %w", beatID, err)
		}
		if !owned {
			log.Warnw("[DownloadService] download without purchase", "userId", userID, "beatId", beatID)
			return nil, &AuthorizationError{Reason: "beat has not been purchased"}
		}
	}
	if beat.AudioPath == "" {
		return nil, fmt.Errorf("audio of beat %s: %w", beatID, ErrNotFound)
	}

	info := &DownloadInfo{
		BeatID:    beat.ID,
		Title:     beat.Title,
		ExpiresAt: time.Now().Add(s.expiry).UTC(),
	}
	info.DownloadURL, err = s.presign(ctx, beat.AudioPath)
	if err != nil {
		return nil, err
	}
	if beat.StemsPath != "" {
		info.StemsURL, err = s.presign(ctx, beat.StemsPath)
		if err != nil {
			return nil, err
		}
	}
	return info, nil
}

func (s *downloadService) presign(ctx context.Context, path string) (string, error) {
	u, err := s.presigner.PresignedGetURL(ctx, model.BucketContent, strings.TrimPrefix(path, "/"), s.expiry)
	if err != nil {
		return "", &TransportError{Op: "presign", Target: fmt.Sprintf("%s/%s", model.BucketContent, path), Err: err}
	}
	return u, nil
}
