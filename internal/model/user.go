// Package model defines the Go structs mapped to database tables.
package model

import "time"

// RoleProducer is the role, on users rows and token claims, allowed to sell
// beats and manage payout settings.
const RoleProducer = "producer"

// User maps the users table. Identity is owned by the auth provider; this row
// carries the producer payment profile.
type User struct {
	ID                  string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	DisplayName         string    `gorm:"type:varchar(255);not null;default:''" json:"displayName"`
	Email               string    `gorm:"type:varchar(255)" json:"email"`
	Role                string    `gorm:"type:varchar(20);not null;default:'buyer'" json:"role"`
	BankCode            string    `gorm:"type:varchar(20)" json:"bankCode"`
	AccountNumber       string    `gorm:"type:varchar(20)" json:"accountNumber"`
	VerifiedAccountName string    `gorm:"type:varchar(255)" json:"verifiedAccountName"`
	SubaccountCode      *string   `gorm:"type:varchar(64);uniqueIndex" json:"subaccountCode"`
	SplitCode           *string   `gorm:"type:varchar(64);uniqueIndex" json:"splitCode"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName binds User to the users table.
func (User) TableName() string {
	return "users"
}

// PaymentProfile is the producer facing view of the payment fields of a User.
type PaymentProfile struct {
	ProducerID          string  `json:"producerId"`
	BankCode            string  `json:"bankCode"`
	AccountNumber       string  `json:"accountNumber"`
	VerifiedAccountName string  `json:"verifiedAccountName"`
	SubaccountCode      *string `json:"subaccountCode,omitempty"`
	SplitCode           *string `json:"splitCode,omitempty"`
}

// PaymentProfile extracts the payment profile of u.
func (u *User) PaymentProfile() PaymentProfile {
	return PaymentProfile{
		ProducerID:          u.ID,
		BankCode:            u.BankCode,
		AccountNumber:       u.AccountNumber,
		VerifiedAccountName: u.VerifiedAccountName,
		SubaccountCode:      u.SubaccountCode,
		SplitCode:           u.SplitCode,
	}
}

// HasBankDetails reports whether the bank fields needed by the gateway are present.
func (u *User) HasBankDetails() bool {
	return u.BankCode != "" && u.AccountNumber != "" && u.VerifiedAccountName != ""
}
