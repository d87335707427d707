package catalog

import "gorm.io/gorm"

// Quote kinds
const (
	QuoteParts   = "PARTS"
	QuoteRental  = "RENTAL"
	QuoteService = "SERVICE"
)

// Quote status values
const (
	QuoteNew       = "NEW"
	QuoteContacted = "CONTACTED"
	QuoteQuoted    = "QUOTED"
	QuoteWon       = "WON"
	QuoteLost      = "LOST"
)

// QuoteRequest is a sales lead for parts, rentals or service.
type QuoteRequest struct {
	gorm.Model
	UserID        *uint       `json:"user_id" gorm:"index"`
	Kind          string      `json:"kind" gorm:"default:'PARTS'"`
	ContactName   string      `json:"contact_name"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone"`
	Company       string      `json:"company"`
	Message       string      `json:"message" gorm:"type:text"`
	EstimateCents int64       `json:"estimate_cents"`
	Status        string      `json:"status" gorm:"index;default:'NEW'"`
	AdminNotes    string      `json:"admin_notes" gorm:"type:text"`
	Items         []QuoteItem `json:"items" gorm:"foreignKey:QuoteRequestID"`
	IsDeleted     bool        `json:"-" gorm:"default:false"`
}

// QuoteItem is one requested line on a quote.
type QuoteItem struct {
	gorm.Model
	QuoteRequestID uint   `json:"quote_request_id" gorm:"index;not null"`
	PartID         uint   `json:"part_id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	RentalDays     int    `json:"rental_days"`
	LineCents      int64  `json:"line_cents"`
}

var quoteTransitions = map[string][]string{
	QuoteNew:       {QuoteContacted, QuoteLost},
	QuoteContacted: {QuoteQuoted, QuoteLost},
	QuoteQuoted:    {QuoteWon, QuoteLost},
}

// CanTransitionQuote reports whether a quote may move from one status to another.
func CanTransitionQuote(from, to string) bool {
	for _, next := range quoteTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
