// Package checkout prices carts, creates orders and fulfils them from payment webhooks.
package checkout

import (
	"math"
)

// LineRequest asks for a quantity of a catalog part.
type LineRequest struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"qty" validate:"required,min=1,max=999"`
}

// CourseRequest buys training. With OrgID set the purchase becomes a seat pool
// top-up, otherwise it enrolls the buyer.
type CourseRequest struct {
	CourseID uint  `json:"course_id" validate:"required"`
	Seats    int   `json:"seats" validate:"omitempty,min=1,max=5000"`
	OrgID    *uint `json:"org_id"`
}

// Cart is a checkout request body.
type Cart struct {
	Items           []LineRequest   `json:"items" validate:"dive"`
	Courses         []CourseRequest `json:"courses" validate:"dive"`
	ShippingName    string          `json:"shipping_name" validate:"max=120"`
	ShippingAddress string          `json:"shipping_address" validate:"max=500"`
}

// Pricing holds the rates applied to a cart.
type Pricing struct {
	TaxRate                    float64
	FlatShippingCents          int64
	FreeShippingThresholdCents int64
}

// Totals is a priced cart.
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	TaxCents      int64 `json:"tax_cents"`
	ShippingCents int64 `json:"shipping_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// Compute applies tax and shipping to a subtotal. Carts without physical items
// never pay shipping.
func (p Pricing) Compute(subtotal int64, physical bool) Totals {
	t := Totals{SubtotalCents: subtotal}
	t.TaxCents = int64(math.Round(float64(subtotal) * p.TaxRate))
	if physical && (p.FreeShippingThresholdCents <= 0 || subtotal < p.FreeShippingThresholdCents) {
		t.ShippingCents = p.FlatShippingCents
	}
	t.TotalCents = t.SubtotalCents + t.TaxCents + t.ShippingCents
	return t
}
