package model

import (
	"time"

	"gorm.io/gorm"
)

// Location is a collection point. Orders snapshot its fields at creation time
// so later edits do not rewrite order history.
type Location struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name    string `gorm:"size:128;not null" json:"name"`
	Address string `gorm:"size:255" json:"address"`
}

func (Location) TableName() string { return "locations" }

// BakeSale is a dated sale session orders can be attached to.
type BakeSale struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title      string    `gorm:"size:128;not null" json:"title"`
	StartsAt   time.Time `gorm:"not null" json:"starts_at"`
	EndsAt     time.Time `gorm:"not null" json:"ends_at"`
	LocationID *uint     `gorm:"index" json:"location_id"`
	Location   *Location `json:"location,omitempty"`
}

func (BakeSale) TableName() string { return "bake_sales" }
