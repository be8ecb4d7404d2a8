package entity

import (
	"time"
)

type EventType string

const (
	EventTypePrivate EventType = "private"
	EventTypePublic  EventType = "public"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// TicketCategory is a price tier owned by an event. Invariant:
// 0 <= RemainingTickets <= TotalTickets.
type TicketCategory struct {
	ID               int64  `json:"id" db:"id"`
	EventID          int64  `json:"-" db:"event_id"`
	Name             string `json:"name" db:"name"`
	PriceCents       int64  `json:"price_cents" db:"price_cents"`
	TotalTickets     int    `json:"total_tickets" db:"total_tickets"`
	RemainingTickets int    `json:"remaining_tickets" db:"remaining_tickets"`
}

// PromoCode is a percentage discount scoped to one event. Codes are
// unique within the event and matched case-sensitively.
type PromoCode struct {
	ID              int64  `json:"id" db:"id"`
	EventID         int64  `json:"-" db:"event_id"`
	Code            string `json:"code" db:"code"`
	DiscountPercent int    `json:"discount_percent" db:"discount_percent"`
}

type Event struct {
	ID             int64            `json:"id" db:"id"`
	Title          string           `json:"title" db:"title"`
	Description    string           `json:"description" db:"description"`
	Location       string           `json:"location" db:"location"`
	ImageURL       string           `json:"image_url" db:"image_url"`
	StartTime      time.Time        `json:"start_time" db:"start_time"`
	EndTime        time.Time        `json:"end_time" db:"end_time"`
	IsFree         bool             `json:"is_free" db:"is_free"`
	EventType      EventType        `json:"event_type" db:"event_type"`
	ApprovalStatus ApprovalStatus   `json:"approval_status" db:"approval_status"`
	CategoryID     int64            `json:"-" db:"category_id"`
	Category       *Category        `json:"category,omitempty"`
	OrganizerID    int64            `json:"-" db:"organizer_id"`
	Organizer      *User            `json:"organizer,omitempty"`
	Categories     []TicketCategory `json:"ticket_categories"`
	PromoCodes     []PromoCode      `json:"promo_codes,omitempty"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// TicketCategoryByID resolves an owned ticket category by its id.
func (e *Event) TicketCategoryByID(id int64) *TicketCategory {
	for i := range e.Categories {
		if e.Categories[i].ID == id {
			return &e.Categories[i]
		}
	}
	return nil
}
