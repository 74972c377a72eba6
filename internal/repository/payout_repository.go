package repository

import (
	"context"

	"beatmarket/internal/model"

	"gorm.io/gorm"
)

// PayoutRepository persists producer transfers.
type PayoutRepository interface {
	// FindByTransfer looks a payout up by transfer code, falling back to reference.
	FindByTransfer(ctx context.Context, transferCode, reference string) (*model.Payout, error)
	// UpdateStatus moves a payout to status, only from one of the allowed
	// prior statuses. It reports whether the row changed.
	UpdateStatus(ctx context.Context, id uint, status, failureReason string) (bool, error)
}

type payoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) FindByTransfer(ctx context.Context, transferCode, reference string) (*model.Payout, error) {
	var payout model.Payout
	q := r.db.WithContext(ctx)
	switch {
	case transferCode != "" && reference != "":
		q = q.Where("transfer_code = ? OR reference = ?", transferCode, reference)
	case transferCode != "":
		q = q.Where("transfer_code = ?", transferCode)
	case reference != "":
		q = q.Where("reference = ?", reference)
	default:
		return nil, gorm.ErrRecordNotFound
	}
	if err := q.First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *payoutRepository) UpdateStatus(ctx context.Context, id uint, status, failureReason string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Payout{}).
		Where("id = ? AND status IN ?", id, allowedPayoutSources(status)).
		Updates(map[string]interface{}{
			"status":         status,
			"failure_reason": failureReason,
		})
	return res.RowsAffected == 1, res.Error
}

// allowedPayoutSources lists the statuses a payout may move to status from.
// A reversal can follow a settled transfer; nothing else leaves a terminal status.
func allowedPayoutSources(status string) []string {
	if status == model.PayoutStatusReversed {
		return []string{model.PayoutStatusPending, model.PayoutStatusSuccess}
	}
	return []string{model.PayoutStatusPending}
}
