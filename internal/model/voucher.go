package model

import (
	"time"

	"gorm.io/gorm"
)

// VoucherType selects how Value is applied to an order subtotal.
type VoucherType string

const (
	VoucherPercentage  VoucherType = "percentage"   // Value is a percent of the subtotal
	VoucherFixedAmount VoucherType = "fixed_amount" // Value is an amount in minor units
)

// Voucher is a discount rule. CurrentUses is mutated only through the voucher
// ledger's conditional increment/decrement so current_uses <= max_uses holds
// under concurrent checkouts whenever MaxUses is set.
type Voucher struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Code          string      `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Type          VoucherType `gorm:"size:16;not null" json:"type"`
	Value         int64       `gorm:"not null" json:"value"`
	MinOrderValue int64       `gorm:"not null;default:0" json:"min_order_value"`

	MaxUses            *int64 `json:"max_uses"` // nil = unlimited
	CurrentUses        int64  `gorm:"not null;default:0" json:"current_uses"`
	MaxUsesPerCustomer *int64 `json:"max_uses_per_customer"` // nil = uncapped

	StartsAt  *time.Time `json:"starts_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	Active    bool       `gorm:"not null;default:true" json:"active"`
}

func (Voucher) TableName() string { return "vouchers" }
