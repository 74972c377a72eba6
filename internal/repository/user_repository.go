package repository

import (
	"context"

	"beatmarket/internal/model"

	"gorm.io/gorm"
)

// UserRepository persists the payment profile fields of users.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateBankDetails(ctx context.Context, id, bankCode, accountNumber, verifiedAccountName string) error
	// SetSubaccountCode stores code only while no subaccount code is set.
	// It reports whether the row was updated.
	SetSubaccountCode(ctx context.Context, id, code string) (bool, error)
	// SetSplitCode stores code only while no split code is set.
	SetSplitCode(ctx context.Context, id, code string) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a UserRepository backed by gorm.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateBankDetails returns gorm.ErrRecordNotFound when the user does not exist.
func (r *userRepository) UpdateBankDetails(ctx context.Context, id, bankCode, accountNumber, verifiedAccountName string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"bank_code":             bankCode,
			"account_number":        accountNumber,
			"verified_account_name": verifiedAccountName,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) SetSubaccountCode(ctx context.Context, id, code string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND subaccount_code IS NULL", id).
		Update("subaccount_code", code)
	return res.RowsAffected == 1, res.Error
}

func (r *userRepository) SetSplitCode(ctx context.Context, id, code string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND split_code IS NULL", id).
		Update("split_code", code)
	return res.RowsAffected == 1, res.Error
}
