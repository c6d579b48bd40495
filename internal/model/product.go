package model

import (
	"time"

	"gorm.io/gorm"
)

// Product is a catalog entry. Prices are in minor currency units (cents).
//
// StockQuantity is nullable: nil means the product is untracked and can be
// ordered without limit. Tracked stock is mutated only through the inventory
// ledger's conditional decrement/increment, never through a generic update.
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name          string `gorm:"size:128;not null" json:"name"`
	Description   string `gorm:"size:512" json:"description"`
	BasePrice     int64  `gorm:"not null" json:"base_price"`
	Active        bool   `gorm:"not null;default:true;index" json:"active"`
	StockQuantity *int64 `json:"stock_quantity"`
}

func (Product) TableName() string { return "products" }

// Tracked reports whether the product carries a finite stock count.
func (p Product) Tracked() bool { return p.StockQuantity != nil }

// ProductVariant is an option on a product (size, flavour). PriceAdjustment
// is added to the product's base price and may be negative.
type ProductVariant struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ProductID       uint   `gorm:"not null;index" json:"product_id"`
	Name            string `gorm:"size:128;not null" json:"name"`
	PriceAdjustment int64  `gorm:"not null;default:0" json:"price_adjustment"`
	Active          bool   `gorm:"not null;default:true" json:"active"`
}

func (ProductVariant) TableName() string { return "product_variants" }
