package service

import (
	"github.com/pyop-labs/ticketing-backend/internal/entity"
)

// PromoQuoteRequest asks what a set of lines would cost with an optional
// promo code applied. Multi-category lines are allowed on the quote path.
type PromoQuoteRequest struct {
	EventID   int64               `json:"event_id" binding:"required"`
	PromoCode string              `json:"promo_code"`
	Tickets   []TicketLineRequest `json:"tickets" binding:"required,min=1,dive"`
}

// PromoQuote is the read-only answer. Valid reports whether the code
// matched; when it did not, FinalCents equals TotalCents.
type PromoQuote struct {
	Valid           bool  `json:"valid"`
	TotalCents      int64 `json:"total_cents"`
	DiscountCents   int64 `json:"discount_cents"`
	FinalCents      int64 `json:"final_cents"`
	DiscountPercent int   `json:"discount_percent,omitempty"`
}

// ResolvePromo matches a code against the event's promo list.
// Case-sensitive exact match; nil for an empty or unknown code, never an
// error.
func ResolvePromo(event *entity.Event, code string) *entity.PromoCode {
	if code == "" {
		return nil
	}
	for i := range event.PromoCodes {
		if event.PromoCodes[i].Code == code {
			return &event.PromoCodes[i]
		}
	}
	return nil
}
