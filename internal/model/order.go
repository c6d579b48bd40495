package model

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus is the order lifecycle state. Transitions are validated by the
// checkout status machine; nothing else writes the status column.
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusProcessing     OrderStatus = "processing"
	StatusReady          OrderStatus = "ready"
	StatusFulfilled      OrderStatus = "fulfilled"
	StatusCancelled      OrderStatus = "cancelled"
	StatusRefunded       OrderStatus = "refunded"
	StatusActionRequired OrderStatus = "action_required"
)

// FulfillmentMethod is how the customer receives the order.
type FulfillmentMethod string

const (
	FulfillmentCollection FulfillmentMethod = "collection"
	FulfillmentDelivery   FulfillmentMethod = "delivery"
)

// Order is one customer purchase. Monetary fields are minor currency units
// and satisfy Total = max(0, Subtotal + DeliveryFee - VoucherDiscount).
// Collection* fields are snapshots frozen at creation time.
type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrderNo   string `gorm:"size:64;uniqueIndex" json:"order_no"`
	RequestID string `gorm:"size:64;uniqueIndex;not null" json:"request_id"`

	UserID     uint  `gorm:"not null;index" json:"user_id"`
	BakeSaleID *uint `gorm:"index" json:"bake_sale_id"`
	VoucherID  *uint `gorm:"index" json:"voucher_id"`

	Status        OrderStatus       `gorm:"size:24;not null;default:pending;index" json:"status"`
	Fulfillment   FulfillmentMethod `gorm:"size:16;not null" json:"fulfillment"`
	PaymentMethod string            `gorm:"size:32" json:"payment_method"`

	Subtotal        int64 `gorm:"not null" json:"subtotal"`
	DeliveryFee     int64 `gorm:"not null;default:0" json:"delivery_fee"`
	VoucherDiscount int64 `gorm:"not null;default:0" json:"voucher_discount"`
	Total           int64 `gorm:"not null" json:"total"`

	CustomerName  string `gorm:"size:128;not null" json:"customer_name"`
	CustomerEmail string `gorm:"size:255;not null;index" json:"customer_email"`
	CustomerPhone string `gorm:"size:32" json:"customer_phone"`

	CollectionLocation string     `gorm:"size:128" json:"collection_location"`
	CollectionAddress  string     `gorm:"size:255" json:"collection_address"`
	CollectionAt       *time.Time `json:"collection_at"`

	BillingAddress  string `gorm:"size:255" json:"billing_address"`
	ShippingAddress string `gorm:"size:255" json:"shipping_address"`
	Notes           string `gorm:"size:512" json:"notes"`

	Items []OrderItem `json:"items,omitempty"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is one purchased line. Unit and total prices are snapshotted at
// order time and never mutated afterwards.
type OrderItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrderID   uint  `gorm:"not null;index" json:"order_id"`
	ProductID uint  `gorm:"not null;index" json:"product_id"`
	VariantID *uint `json:"variant_id"`

	ProductName string `gorm:"size:128;not null" json:"product_name"`
	VariantName string `gorm:"size:128" json:"variant_name"`

	Quantity   int   `gorm:"not null" json:"quantity"`
	UnitPrice  int64 `gorm:"not null" json:"unit_price"`
	TotalPrice int64 `gorm:"not null" json:"total_price"`

	Available         bool   `gorm:"not null;default:true" json:"available"`
	UnavailableReason string `gorm:"size:255" json:"unavailable_reason,omitempty"`
}

func (OrderItem) TableName() string { return "order_items" }
