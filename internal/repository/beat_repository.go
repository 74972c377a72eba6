package repository

import (
	"context"

	"beatmarket/internal/model"

	"gorm.io/gorm"
)

// BeatRepository reads beats and ownership grants for the download gate.
type BeatRepository interface {
	FindByID(ctx context.Context, id string) (*model.Beat, error)
	HasPurchased(ctx context.Context, userID, beatID string) (bool, error)
}

type beatRepository struct {
	db *gorm.DB
}

func NewBeatRepository(db *gorm.DB) BeatRepository {
	return &beatRepository{db: db}
}

func (r *beatRepository) FindByID(ctx context.Context, id string) (*model.Beat, error) {
	var beat model.Beat
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&beat).Error; err != nil {
		return nil, err
	}
	return &beat, nil
}

func (r *beatRepository) HasPurchased(ctx context.Context, userID, beatID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PurchasedBeat{}).
		Where("user_id = ? AND beat_id = ?", userID, beatID).
		Count(&count).Error
	return count > 0, err
}
