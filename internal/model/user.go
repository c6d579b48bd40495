package model

import (
	"time"

	"gorm.io/gorm"
)

// Role drives authorization for order status transitions.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleManager  Role = "manager"
	RoleOwner    Role = "owner"
)

// CanManageOrders reports whether the role may drive status transitions.
func (r Role) CanManageOrders() bool {
	return r == RoleStaff || r == RoleManager || r == RoleOwner
}

// User is a customer or staff account. Guest accounts are created on the fly
// during checkout when no session user exists and the email is unknown.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name  string `gorm:"size:128;not null" json:"name"`
	Email string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone string `gorm:"size:32" json:"phone"`
	Role  Role   `gorm:"size:16;not null;default:customer" json:"role"`
	Guest bool   `gorm:"not null;default:false" json:"guest"`
}

func (User) TableName() string { return "users" }
