package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"beatmarket/internal/model"
	"beatmarket/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDownloadService() (DownloadService, *repository.MockBeatRepository, *MockPresigner) {
	beats := repository.NewMockBeatRepository()
	presigner := NewMockPresigner()
	return NewDownloadService(beats, presigner, time.Hour), beats, presigner
}

func testBeat() *model.Beat {
	return &model.Beat{ID: "beat-1", ProducerID: "producer-1", Title: "Lagos Nights", AudioPath: "producer-1/full_track/a.wav"}
}

func TestGetDownloadURL_RequiresPurchase(t *testing.T) {
	svc, beats, presigner := newTestDownloadService()
	beats.On("FindByID", mock.Anything, "beat-1").Return(testBeat(), nil)
	beats.On("HasPurchased", mock.Anything, "buyer-1", "beat-1").Return(false, nil)

	_, err := svc.GetDownloadURL(context.Background(), "buyer-1", "beat-1")

	var aErr *AuthorizationError
	assert.True(t, errors.As(err, &aErr))
	presigner.AssertNotCalled(t, "PresignedGetURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetDownloadURL_Owner(t *testing.T) {
	svc, beats, presigner := newTestDownloadService()
	beats.On("FindByID", mock.Anything, "beat-1").Return(testBeat(), nil)
	beats.On("HasPurchased", mock.Anything, "buyer-1", "beat-1").Return(true, nil)
	presigner.On("PresignedGetURL", mock.Anything, model.BucketContent, "producer-1/full_track/a.wav", time.Hour).
		Return("https://signed.test/a.wav", nil)

	info, err := svc.GetDownloadURL(context.Background(), "buyer-1", "beat-1")

	require.NoError(t, err)
	assert.Equal(t, "https://signed.test/a.wav", info.DownloadURL)
	assert.Empty(t, info.StemsURL)
}

func TestGetDownloadURL_ProducerSkipsOwnershipCheck(t *testing.T) {
	svc, beats, presigner := newTestDownloadService()
	beats.On("FindByID", mock.Anything, "beat-1").Return(testBeat(), nil)
	presigner.On("PresignedGetURL", mock.Anything, model.BucketContent, mock.Anything, time.Hour).Return("https://signed.test/a.wav", nil)

	_, err := svc.GetDownloadURL(context.Background(), "producer-1", "beat-1")

	require.NoError(t, err)
	beats.AssertNotCalled(t, "HasPurchased", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetDownloadURL_UnknownBeat(t *testing.T) {
	svc, beats, _ := newTestDownloadService()
	beats.On("FindByID", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.GetDownloadURL(context.Background(), "buyer-1", "ghost")

	assert.ErrorIs(t, err, ErrNotFound)
}
