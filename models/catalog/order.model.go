package catalog

import (
	"time"

	"gorm.io/gorm"
)

// Order status values
const (
	OrderPending   = "PENDING"
	OrderPaid      = "PAID"
	OrderShipped   = "SHIPPED"
	OrderDelivered = "DELIVERED"
	OrderCancelled = "CANCELLED"
)

// Order item kinds
const (
	ItemPart   = "PART"
	ItemCourse = "COURSE"
	ItemSeats  = "SEATS"
)

// Order is a checkout. Totals are in cents.
type Order struct {
	gorm.Model
	Number           string      `json:"number" gorm:"uniqueIndex;size:40;not null"`
	UserID           uint        `json:"user_id" gorm:"index;not null"`
	Status           string      `json:"status" gorm:"index;default:'PENDING'"`
	SubtotalCents    int64       `json:"subtotal_cents"`
	TaxCents         int64       `json:"tax_cents"`
	ShippingCents    int64       `json:"shipping_cents"`
	TotalCents       int64       `json:"total_cents"`
	ShippingName     string      `json:"shipping_name"`
	ShippingAddress  string      `json:"shipping_address"`
	PaymentSessionID string      `json:"payment_session_id" gorm:"index"`
	PaymentURL       string      `json:"payment_url"`
	PaidAt           *time.Time  `json:"paid_at"`
	FulfilledAt      *time.Time  `json:"fulfilled_at"`
	CancelledAt      *time.Time  `json:"cancelled_at"`
	Items            []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
	IsDeleted        bool        `json:"-" gorm:"default:false"`
}

// OrderItem is a priced line. CourseID/OrgID are set for training lines.
type OrderItem struct {
	gorm.Model
	OrderID        uint   `json:"order_id" gorm:"index;not null"`
	Kind           string `json:"kind"`
	PartID         *uint  `json:"part_id"`
	CourseID       *uint  `json:"course_id"`
	OrgID          *uint  `json:"org_id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineCents      int64  `json:"line_cents"`
}

var orderTransitions = map[string][]string{
	OrderPending: {OrderPaid, OrderCancelled},
	OrderPaid:    {OrderShipped, OrderDelivered},
	OrderShipped: {OrderDelivered},
}

// CanTransitionOrder reports whether an order may move from one status to another.
func CanTransitionOrder(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
