package store

import (
	"context"
	"errors"
	"fmt"

	"bakehouse/internal/model"

	"gorm.io/gorm"
)

// InventoryLedger owns product stock counts. The decrement predicate and the
// update run as one statement, so two concurrent reservations can never both
// pass a stale stock check.
type InventoryLedger struct {
	db *gorm.DB
}

// FindByIDs batch-fetches products to avoid per-line lookups.
func (l *InventoryLedger) FindByIDs(ctx context.Context, ids []uint) (map[uint]model.Product, error) {
	var list []model.Product
	if err := l.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	out := make(map[uint]model.Product, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

// ActiveVariantsForProducts returns active variants grouped by product id.
func (l *InventoryLedger) ActiveVariantsForProducts(ctx context.Context, ids []uint) (map[uint][]model.ProductVariant, error) {
	var list []model.ProductVariant
	err := l.db.WithContext(ctx).
		Where("product_id IN ? AND active = ?", ids, true).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("find variants: %w", err)
	}
	out := make(map[uint][]model.ProductVariant)
	for _, v := range list {
		out[v.ProductID] = append(out[v.ProductID], v)
	}
	return out, nil
}

// DecrementStock reserves quantity units, only if current stock covers it:
//
//	UPDATE products SET stock_quantity = stock_quantity - ?
//	WHERE id = ? AND stock_quantity IS NOT NULL AND stock_quantity >= ?
//
// Zero rows affected means the product is missing, untracked, or out of
// stock; callers that already resolved the product get ErrInsufficientStock.
// Untracked products must not be routed here.
func (l *InventoryLedger) DecrementStock(ctx context.Context, productID uint, quantity int) (*model.Product, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("decrement stock: quantity must be > 0, got %d", quantity)
	}
	res := l.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock_quantity IS NOT NULL AND stock_quantity >= ?", productID, quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if res.Error != nil {
		return nil, fmt.Errorf("decrement stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := l.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", productID).Count(&count).Error; err == nil && count == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrInsufficientStock
	}
	return l.reload(ctx, productID)
}

// IncrementStock unconditionally restores quantity units. Rollback only.
func (l *InventoryLedger) IncrementStock(ctx context.Context, productID uint, quantity int) (*model.Product, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("increment stock: quantity must be > 0, got %d", quantity)
	}
	res := l.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock_quantity IS NOT NULL", productID).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))
	if res.Error != nil {
		return nil, fmt.Errorf("increment stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return l.reload(ctx, productID)
}

func (l *InventoryLedger) reload(ctx context.Context, productID uint) (*model.Product, error) {
	var p model.Product
	if err := l.db.WithContext(ctx).First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reload product: %w", err)
	}
	return &p, nil
}
