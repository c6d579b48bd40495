package store

import (
	"context"
	"errors"
	"fmt"

	"bakehouse/internal/model"

	"gorm.io/gorm"
)

// OrderStore persists orders. Creation writes the order and every line in one
// database transaction; the saga around it (stock, voucher) is compensated by
// the coordinator, but the order itself is never half-written.
type OrderStore struct {
	db *gorm.DB
}

// CreateWithItems inserts the order and its items atomically and assigns the
// sequential human-readable order number from the row id.
func (s *OrderStore) CreateWithItems(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	if len(items) == 0 {
		return fmt.Errorf("create order: no items")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Insert under a provisional unique number; the real one needs the
		// auto-increment id, which does not exist yet.
		order.OrderNo = order.RequestID
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		order.OrderNo = fmt.Sprintf("BK-%06d", order.ID)
		if err := tx.Model(order).UpdateColumn("order_no", order.OrderNo).Error; err != nil {
			return fmt.Errorf("assign order number: %w", err)
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		order.Items = items
		return nil
	})
}

// FindByIDWithItems loads an order and its lines.
func (s *OrderStore) FindByIDWithItems(ctx context.Context, id uint) (*model.Order, error) {
	var o model.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &o, nil
}

// FindByRequestID resolves the order created for a checkout request id.
func (s *OrderStore) FindByRequestID(ctx context.Context, requestID string) (*model.Order, error) {
	var o model.Order
	err := s.db.WithContext(ctx).Preload("Items").Where("request_id = ?", requestID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order by request id: %w", err)
	}
	return &o, nil
}

// UpdateStatus persists a status change. Transition legality is the status
// machine's job; this is a plain column write.
func (s *OrderStore) UpdateStatus(ctx context.Context, id uint, status model.OrderStatus) error {
	res := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		UpdateColumn("status", status)
	if res.Error != nil {
		return fmt.Errorf("update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
