package service

import (
	"fmt"

	"github.com/pyop-labs/ticketing-backend/internal/entity"
)

// TicketLineRequest is one requested purchase line.
type TicketLineRequest struct {
	TicketCategoryID int64 `json:"ticket_category_id" binding:"required"`
	Quantity         int   `json:"quantity" binding:"required"`
}

// Totals holds the priced amounts for a request. All amounts are integer
// cents; quantities are integers, so no floating point touches money.
type Totals struct {
	TotalCents    int64 `json:"total_cents"`
	DiscountCents int64 `json:"discount_cents"`
	FinalCents    int64 `json:"final_cents"`
}

// PriceTickets resolves requested lines against an event's ticket
// categories and returns snapshot line items carrying the category name
// and unit price at this moment. Pure: no I/O, no mutation.
func PriceTickets(lines []TicketLineRequest, categories []entity.TicketCategory) ([]entity.OrderTicket, error) {
	items := make([]entity.OrderTicket, 0, len(lines))

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: got %d", entity.ErrInvalidQuantity, line.Quantity)
		}

		var category *entity.TicketCategory
		for i := range categories {
			if categories[i].ID == line.TicketCategoryID {
				category = &categories[i]
				break
			}
		}
		if category == nil {
			return nil, fmt.Errorf("%w: id %d", entity.ErrTicketCategoryNotFound, line.TicketCategoryID)
		}

		if line.Quantity > category.RemainingTickets {
			return nil, fmt.Errorf("%w: requested %d, remaining %d",
				entity.ErrInsufficientTickets, line.Quantity, category.RemainingTickets)
		}

		items = append(items, entity.OrderTicket{
			TicketCategoryID: category.ID,
			Name:             category.Name,
			PriceCents:       category.PriceCents,
			Quantity:         line.Quantity,
		})
	}

	return items, nil
}

// ComputeTotals sums the line items and applies an optional percentage
// discount. discount = total * percent / 100 in integer math;
// final = max(total - discount, 0).
func ComputeTotals(items []entity.OrderTicket, discountPercent int) Totals {
	var totals Totals

	for _, item := range items {
		totals.TotalCents += item.PriceCents * int64(item.Quantity)
	}

	if discountPercent > 0 && discountPercent <= 100 {
		totals.DiscountCents = totals.TotalCents * int64(discountPercent) / 100
	}

	totals.FinalCents = totals.TotalCents - totals.DiscountCents
	if totals.FinalCents < 0 {
		totals.FinalCents = 0
	}

	return totals
}
