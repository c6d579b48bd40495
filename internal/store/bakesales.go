package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bakehouse/internal/model"

	"gorm.io/gorm"
)

type BakeSaleStore struct {
	db *gorm.DB
}

// FindByIDWithLocation loads a bake sale and its collection point, the
// snapshot source for an order's collection details.
func (s *BakeSaleStore) FindByIDWithLocation(ctx context.Context, id uint) (*model.BakeSale, error) {
	var b model.BakeSale
	err := s.db.WithContext(ctx).Preload("Location").First(&b, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find bake sale: %w", err)
	}
	return &b, nil
}

// FindUpcoming returns the next bake sale ending after now, if any.
func (s *BakeSaleStore) FindUpcoming(ctx context.Context, now time.Time) (*model.BakeSale, error) {
	var b model.BakeSale
	err := s.db.WithContext(ctx).Preload("Location").
		Where("ends_at > ?", now).
		Order("starts_at asc").
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find upcoming bake sale: %w", err)
	}
	return &b, nil
}
