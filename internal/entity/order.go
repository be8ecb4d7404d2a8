package entity

import (
	"time"
)

// OrderTicket is a purchased line item. Name and PriceCents are frozen at
// purchase time; later event edits never change past orders.
type OrderTicket struct {
	ID               int64  `json:"id" db:"id"`
	OrderID          int64  `json:"-" db:"order_id"`
	TicketCategoryID int64  `json:"ticket_category_id" db:"ticket_category_id"`
	Name             string `json:"name" db:"name"`
	PriceCents       int64  `json:"price_cents" db:"price_cents"`
	Quantity         int    `json:"quantity" db:"quantity"`
}

// Order is immutable after creation except CheckIn, which flips from
// false to true exactly once at event admission.
type Order struct {
	ID            int64         `json:"id" db:"id"`
	PaymentRef    string        `json:"payment_ref" db:"payment_ref"`
	EventID       int64         `json:"event_id" db:"event_id"`
	BuyerID       int64         `json:"buyer_id" db:"buyer_id"`
	Tickets       []OrderTicket `json:"tickets"`
	TotalCents    int64         `json:"total_cents" db:"total_cents"`
	DiscountCents int64         `json:"discount_cents" db:"discount_cents"`
	FinalCents    int64         `json:"final_cents" db:"final_cents"`
	PromoCode     string        `json:"promo_code,omitempty" db:"promo_code"`
	CheckIn       bool          `json:"check_in" db:"check_in"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// OrderSummary carries an order plus the event/buyer fields clients
// display alongside it.
type OrderSummary struct {
	Order
	EventTitle     string `json:"event_title"`
	BuyerFirstName string `json:"buyer_first_name"`
	BuyerLastName  string `json:"buyer_last_name"`
}
