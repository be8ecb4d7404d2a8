package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pyop-labs/ticketing-backend/internal/entity"
)

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

// Create inserts the event together with its owned ticket categories and
// promo codes in one transaction.
func (r *eventRepository) Create(ctx context.Context, event *entity.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	query := `
		INSERT INTO events (
			title, description, location, image_url, start_time, end_time,
			is_free, event_type, approval_status, category_id, organizer_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	err = tx.QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.Location,
		event.ImageURL,
		event.StartTime,
		event.EndTime,
		event.IsFree,
		event.EventType,
		event.ApprovalStatus,
		event.CategoryID,
		event.OrganizerID,
		now,
		now,
	).Scan(&event.ID)

	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	for i := range event.Categories {
		category := &event.Categories[i]
		query = `
			INSERT INTO ticket_categories (event_id, name, price_cents, total_tickets, remaining_tickets)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		err = tx.QueryRowContext(ctx, query,
			event.ID,
			category.Name,
			category.PriceCents,
			category.TotalTickets,
			category.RemainingTickets,
		).Scan(&category.ID)
		if err != nil {
			return fmt.Errorf("failed to create ticket category: %w", err)
		}
		category.EventID = event.ID
	}

	for i := range event.PromoCodes {
		promo := &event.PromoCodes[i]
		query = `
			INSERT INTO promo_codes (event_id, code, discount_percent)
			VALUES ($1, $2, $3)
			RETURNING id
		`
		err = tx.QueryRowContext(ctx, query,
			event.ID,
			promo.Code,
			promo.DiscountPercent,
		).Scan(&promo.ID)
		if err != nil {
			return fmt.Errorf("failed to create promo code: %w", err)
		}
		promo.EventID = event.ID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	event.CreatedAt = now
	event.UpdatedAt = now
	return nil
}

const eventSelect = `
	SELECT
		e.id, e.title, e.description, e.location, e.image_url, e.start_time,
		e.end_time, e.is_free, e.event_type, e.approval_status, e.category_id,
		e.organizer_id, e.created_at, e.updated_at,
		c.name, u.first_name, u.last_name, u.clerk_id
	FROM events e
	JOIN categories c ON e.category_id = c.id
	JOIN users u ON e.organizer_id = u.id
`

func scanEvent(row interface{ Scan(dest ...interface{}) error }) (*entity.Event, error) {
	var event entity.Event
	var categoryName, firstName, lastName, clerkID string
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Location,
		&event.ImageURL,
		&event.StartTime,
		&event.EndTime,
		&event.IsFree,
		&event.EventType,
		&event.ApprovalStatus,
		&event.CategoryID,
		&event.OrganizerID,
		&event.CreatedAt,
		&event.UpdatedAt,
		&categoryName,
		&firstName,
		&lastName,
		&clerkID,
	)
	if err != nil {
		return nil, err
	}

	event.Category = &entity.Category{ID: event.CategoryID, Name: categoryName}
	event.Organizer = &entity.User{
		ID:        event.OrganizerID,
		ClerkID:   clerkID,
		FirstName: firstName,
		LastName:  lastName,
	}
	return &event, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*entity.Event, error) {
	event, err := scanEvent(r.db.QueryRowContext(ctx, eventSelect+` WHERE e.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if err := r.loadOwned(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// loadOwned attaches the embedded ticket categories and promo codes.
func (r *eventRepository) loadOwned(ctx context.Context, event *entity.Event) error {
	query := `
		SELECT id, event_id, name, price_cents, total_tickets, remaining_tickets
		FROM ticket_categories
		WHERE event_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, event.ID)
	if err != nil {
		return fmt.Errorf("failed to query ticket categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category entity.TicketCategory
		err := rows.Scan(
			&category.ID,
			&category.EventID,
			&category.Name,
			&category.PriceCents,
			&category.TotalTickets,
			&category.RemainingTickets,
		)
		if err != nil {
			return fmt.Errorf("failed to scan ticket category: %w", err)
		}
		event.Categories = append(event.Categories, category)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating ticket categories: %w", err)
	}

	query = `
		SELECT id, event_id, code, discount_percent
		FROM promo_codes
		WHERE event_id = $1
		ORDER BY id
	`
	promoRows, err := r.db.QueryContext(ctx, query, event.ID)
	if err != nil {
		return fmt.Errorf("failed to query promo codes: %w", err)
	}
	defer promoRows.Close()

	for promoRows.Next() {
		var promo entity.PromoCode
		err := promoRows.Scan(&promo.ID, &promo.EventID, &promo.Code, &promo.DiscountPercent)
		if err != nil {
			return fmt.Errorf("failed to scan promo code: %w", err)
		}
		event.PromoCodes = append(event.PromoCodes, promo)
	}
	return promoRows.Err()
}

func (r *eventRepository) queryEvents(ctx context.Context, where string, countWhere string, args []interface{}, countArgs []interface{}, page, limit int) ([]*entity.Event, int, error) {
	if limit <= 0 {
		limit = 6
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf("%s %s ORDER BY e.created_at DESC LIMIT $%d OFFSET $%d",
		eventSelect, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*entity.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating events: %w", err)
	}

	for _, event := range events {
		if err := r.loadOwned(ctx, event); err != nil {
			return nil, 0, err
		}
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM events e ` + countWhere
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	return events, total, nil
}

func (r *eventRepository) List(ctx context.Context, filter *EventFilter) ([]*entity.Event, int, error) {
	where := "WHERE 1=1"
	var args []interface{}

	if filter.Title != "" {
		args = append(args, "%"+filter.Title+"%")
		where += fmt.Sprintf(" AND e.title ILIKE $%d", len(args))
	}
	if filter.CategoryID != 0 {
		args = append(args, filter.CategoryID)
		where += fmt.Sprintf(" AND e.category_id = $%d", len(args))
	}

	return r.queryEvents(ctx, where, where, args, args, filter.Page, filter.Limit)
}

func (r *eventRepository) GetByOrganizer(ctx context.Context, organizerID int64, page, limit int) ([]*entity.Event, int, error) {
	where := "WHERE e.organizer_id = $1"
	args := []interface{}{organizerID}
	return r.queryEvents(ctx, where, where, args, args, page, limit)
}

func (r *eventRepository) GetRelatedByCategory(ctx context.Context, categoryID, excludeEventID int64, page, limit int) ([]*entity.Event, int, error) {
	where := "WHERE e.category_id = $1 AND e.id != $2 AND e.approval_status = 'approved'"
	args := []interface{}{categoryID, excludeEventID}
	return r.queryEvents(ctx, where, where, args, args, page, limit)
}

// Update rewrites the event's scalar fields and replaces its promo list.
// Ticket categories are not touched here: their remaining counts belong
// to the inventory ledger, not to event edits.
func (r *eventRepository) Update(ctx context.Context, event *entity.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE events
		SET title = $1, description = $2, location = $3, image_url = $4,
		    start_time = $5, end_time = $6, is_free = $7, event_type = $8,
		    category_id = $9, updated_at = $10
		WHERE id = $11
	`

	result, err := tx.ExecContext(ctx, query,
		event.Title,
		event.Description,
		event.Location,
		event.ImageURL,
		event.StartTime,
		event.EndTime,
		event.IsFree,
		event.EventType,
		event.CategoryID,
		time.Now(),
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrEventNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM promo_codes WHERE event_id = $1`, event.ID); err != nil {
		return fmt.Errorf("failed to clear promo codes: %w", err)
	}
	for i := range event.PromoCodes {
		promo := &event.PromoCodes[i]
		err = tx.QueryRowContext(ctx,
			`INSERT INTO promo_codes (event_id, code, discount_percent) VALUES ($1, $2, $3) RETURNING id`,
			event.ID, promo.Code, promo.DiscountPercent,
		).Scan(&promo.ID)
		if err != nil {
			return fmt.Errorf("failed to create promo code: %w", err)
		}
		promo.EventID = event.ID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrEventNotFound
	}
	return nil
}

// DeleteEnded removes events whose end time lies before the cutoff and
// returns how many were deleted. Events with orders are kept.
func (r *eventRepository) DeleteEnded(ctx context.Context, endedBefore time.Time) (int64, error) {
	query := `
		DELETE FROM events
		WHERE end_time < $1
		AND id NOT IN (SELECT DISTINCT event_id FROM orders)
	`
	result, err := r.db.ExecContext(ctx, query, endedBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to delete ended events: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

func (r *eventRepository) ReleaseTickets(ctx context.Context, ticketCategoryID int64, quantity int) error {
	query := `
		UPDATE ticket_categories
		SET remaining_tickets = LEAST(remaining_tickets + $1, total_tickets)
		WHERE id = $2
	`
	result, err := r.db.ExecContext(ctx, query, quantity, ticketCategoryID)
	if err != nil {
		return fmt.Errorf("failed to release tickets: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrTicketCategoryNotFound
	}
	return nil
}
