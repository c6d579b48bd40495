// Package store is the persistence layer. Stock and voucher usage counters
// are mutated only through conditional single-statement updates so their
// invariants (non-negative stock, current_uses <= max_uses) hold under
// concurrent checkouts without any in-process locking.
package store

import (
	"errors"

	"bakehouse/internal/model"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("store: not found")
	ErrInsufficientStock = errors.New("store: insufficient stock")
	ErrUsageLimitReached = errors.New("store: voucher usage limit reached")
)

// Store bundles the per-aggregate accessors over one gorm handle.
type Store struct {
	Inventory *InventoryLedger
	Vouchers  *VoucherLedger
	Orders    *OrderStore
	Users     *UserStore
	BakeSales *BakeSaleStore
}

func New(db *gorm.DB) *Store {
	return &Store{
		Inventory: &InventoryLedger{db: db},
		Vouchers:  &VoucherLedger{db: db},
		Orders:    &OrderStore{db: db},
		Users:     &UserStore{db: db},
		BakeSales: &BakeSaleStore{db: db},
	}
}

// Migrate creates all tables the engine touches.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Product{},
		&model.ProductVariant{},
		&model.Voucher{},
		&model.User{},
		&model.Location{},
		&model.BakeSale{},
		&model.Order{},
		&model.OrderItem{},
	)
}
