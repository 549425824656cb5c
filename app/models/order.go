package models

import "time"

type Order struct {
	Base
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	OrderDate   time.Time   `gorm:"not null;index" json:"order_date"`
	Subtotal    float64     `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	ShippingFee float64     `gorm:"type:decimal(12,2);not null" json:"shipping_fee"`
	TotalAmount float64     `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status      OrderStatus `gorm:"size:30;not null;index" json:"status"`
	User        *User       `json:"user,omitempty"`
	Items       []OrderItem `json:"order_items,omitempty"`
	Payment     *Payment    `json:"payment,omitempty"`
	Shipment    *Shipment   `json:"shipment,omitempty"`
}

// OrderItem keeps the unit price paid at checkout.
type OrderItem struct {
	Base
	OrderID   uint     `gorm:"not null;index" json:"order_id"`
	ProductID uint     `gorm:"not null;index" json:"product_id"`
	Quantity  int      `gorm:"not null" json:"quantity"`
	Price     float64  `gorm:"type:decimal(12,2);not null" json:"price"`
	Product   *Product `json:"product,omitempty"`
	Order     *Order   `json:"order,omitempty"`
}

const (
	PaymentMethodManualTransfer = "manual_transfer"
	DefaultCarrier              = "Standard Delivery"
)

type Payment struct {
	Base
	OrderID          uint          `gorm:"not null;uniqueIndex" json:"order_id"`
	UserID           uint          `gorm:"not null;index" json:"user_id"`
	PaymentMethod    string        `gorm:"size:50;not null;default:manual_transfer" json:"payment_method"`
	PaymentStatus    PaymentStatus `gorm:"size:30;not null;index" json:"payment_status"`
	Amount           float64       `gorm:"type:decimal(12,2);not null" json:"amount"`
	ProofPath        string        `gorm:"size:255" json:"-"`
	ProofContentType string        `gorm:"size:100" json:"proof_content_type,omitempty"`
	ProofUploadedAt  *time.Time    `json:"proof_uploaded_at"`
	ProofReviewedAt  *time.Time    `json:"proof_reviewed_at"`
	Order            *Order        `json:"order,omitempty"`
	User             *User         `json:"user,omitempty"`
}

func (p Payment) HasProof() bool { return p.ProofPath != "" }

type Shipment struct {
	Base
	OrderID        uint            `gorm:"not null;uniqueIndex" json:"order_id"`
	Status         ShipmentStatus  `gorm:"size:30;not null;index" json:"status"`
	TrackingNumber string          `gorm:"size:64;index" json:"tracking_number"`
	Carrier        string          `gorm:"size:100" json:"carrier"`
	ShippedAt      *time.Time      `json:"shipped_at"`
	DeliveredAt    *time.Time      `json:"delivered_at"`
	Events         []ShipmentEvent `json:"events,omitempty"`
	Order          *Order          `json:"order,omitempty"`
}

// ShipmentEvent is an append-only log line of a shipment.
type ShipmentEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ShipmentID uint           `gorm:"not null;index" json:"shipment_id"`
	Status     ShipmentStatus `gorm:"size:30;not null" json:"status"`
	Note       string         `gorm:"type:text" json:"note"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}
