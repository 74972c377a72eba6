package repository

import (
	"context"

	"beatmarket/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Completion is everything written when an order moves to completed.
type Completion struct {
	OrderID string
	BuyerID string
	// MissingItems are inserted before grants are derived, for orders created
	// without persisted line items.
	MissingItems []model.LineItem
	Payment      *model.Payment
}

// OrderRepository persists orders, their line items, payments and ownership grants.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id string) (*model.Order, error)
	FindByReference(ctx context.Context, reference string) (*model.Order, error)
	// Complete applies pending -> completed and, in the same transaction, the
	// grants and payment of c. It reports false without writing anything else
	// when the order was not pending.
	Complete(ctx context.Context, c Completion) (bool, error)
	// MarkFailed applies pending -> failed and reports whether it did.
	MarkFailed(ctx context.Context, id string) (bool, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order together with its line items.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Preload("LineItems").Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByReference(ctx context.Context, reference string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Preload("LineItems").Where("payment_reference = ?", reference).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Complete(ctx context.Context, c Completion) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Order{}).
			Where("id = ? AND status = ?", c.OrderID, model.OrderStatusPending).
			Update("status", model.OrderStatusCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		if len(c.MissingItems) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&c.MissingItems).Error; err != nil {
				return err
			}
		}

		var items []model.LineItem
		if err := tx.Where("order_id = ?", c.OrderID).Find(&items).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			grants := make([]model.PurchasedBeat, 0, len(items))
			for _, item := range items {
				grants = append(grants, model.PurchasedBeat{UserID: c.BuyerID, BeatID: item.BeatID, OrderID: c.OrderID})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grants).Error; err != nil {
				return err
			}
		}

		if c.Payment != nil {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(c.Payment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *orderRepository) MarkFailed(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, model.OrderStatusPending).
		Update("status", model.OrderStatusFailed)
	return res.RowsAffected == 1, res.Error
}
