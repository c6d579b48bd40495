package store

import (
	"context"
	"errors"
	"fmt"

	"bakehouse/internal/model"

	"gorm.io/gorm"
)

type UserStore struct {
	db *gorm.DB
}

func (s *UserStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

// CreateGuest records a checkout-only account. A concurrent checkout with the
// same email can win the unique-index race; in that case the existing row is
// returned instead.
func (s *UserStore) CreateGuest(ctx context.Context, name, email, phone string) (*model.User, error) {
	u := &model.User{
		Name:  name,
		Email: email,
		Phone: phone,
		Role:  model.RoleCustomer,
		Guest: true,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if existing, ferr := s.FindByEmail(ctx, email); ferr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create guest user: %w", err)
	}
	return u, nil
}
