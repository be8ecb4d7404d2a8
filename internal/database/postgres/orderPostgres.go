package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pyop-labs/ticketing-backend/internal/entity"
)

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create persists a new order together with the capacity decrement.
// The decrement is conditional ("remaining >= quantity") so two
// concurrent orders can never both win the last ticket; losing the race
// rolls the whole transaction back with ErrInsufficientTickets.
func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Reserve capacity first: conditional decrement, no read-then-write.
	for _, ticket := range order.Tickets {
		query := `
			UPDATE ticket_categories
			SET remaining_tickets = remaining_tickets - $1
			WHERE id = $2 AND event_id = $3 AND remaining_tickets >= $1
		`
		result, err := tx.ExecContext(ctx, query, ticket.Quantity, ticket.TicketCategoryID, order.EventID)
		if err != nil {
			return fmt.Errorf("failed to reserve tickets: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return entity.ErrInsufficientTickets
		}
	}

	now := time.Now()
	query := `
		INSERT INTO orders (
			payment_ref, event_id, buyer_id, total_cents, discount_cents,
			final_cents, promo_code, check_in, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err = tx.QueryRowContext(ctx, query,
		order.PaymentRef,
		order.EventID,
		order.BuyerID,
		order.TotalCents,
		order.DiscountCents,
		order.FinalCents,
		order.PromoCode,
		order.CheckIn,
		now,
	).Scan(&order.ID)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range order.Tickets {
		ticket := &order.Tickets[i]
		query = `
			INSERT INTO order_tickets (order_id, ticket_category_id, name, price_cents, quantity)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		err = tx.QueryRowContext(ctx, query,
			order.ID,
			ticket.TicketCategoryID,
			ticket.Name,
			ticket.PriceCents,
			ticket.Quantity,
		).Scan(&ticket.ID)
		if err != nil {
			return fmt.Errorf("failed to create order ticket: %w", err)
		}
		ticket.OrderID = order.ID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	order.CreatedAt = now
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*entity.OrderSummary, error) {
	query := `
		SELECT
			o.id, o.payment_ref, o.event_id, o.buyer_id, o.total_cents,
			o.discount_cents, o.final_cents, o.promo_code, o.check_in, o.created_at,
			e.title, u.first_name, u.last_name
		FROM orders o
		JOIN events e ON o.event_id = e.id
		JOIN users u ON o.buyer_id = u.id
		WHERE o.id = $1
	`

	var order entity.OrderSummary
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.PaymentRef,
		&order.EventID,
		&order.BuyerID,
		&order.TotalCents,
		&order.DiscountCents,
		&order.FinalCents,
		&order.PromoCode,
		&order.CheckIn,
		&order.CreatedAt,
		&order.EventTitle,
		&order.BuyerFirstName,
		&order.BuyerLastName,
	)

	if err == sql.ErrNoRows {
		return nil, entity.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := r.loadTickets(ctx, &order.Order); err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepository) GetByBuyerID(ctx context.Context, buyerID int64) ([]*entity.OrderSummary, error) {
	query := `
		SELECT
			o.id, o.payment_ref, o.event_id, o.buyer_id, o.total_cents,
			o.discount_cents, o.final_cents, o.promo_code, o.check_in, o.created_at,
			e.title, u.first_name, u.last_name
		FROM orders o
		JOIN events e ON o.event_id = e.id
		JOIN users u ON o.buyer_id = u.id
		WHERE o.buyer_id = $1
		ORDER BY o.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders by buyer: %w", err)
	}
	defer rows.Close()

	var orders []*entity.OrderSummary
	for rows.Next() {
		var order entity.OrderSummary
		err := rows.Scan(
			&order.ID,
			&order.PaymentRef,
			&order.EventID,
			&order.BuyerID,
			&order.TotalCents,
			&order.DiscountCents,
			&order.FinalCents,
			&order.PromoCode,
			&order.CheckIn,
			&order.CreatedAt,
			&order.EventTitle,
			&order.BuyerFirstName,
			&order.BuyerLastName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, &order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for _, order := range orders {
		if err := r.loadTickets(ctx, &order.Order); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *orderRepository) loadTickets(ctx context.Context, order *entity.Order) error {
	query := `
		SELECT id, order_id, ticket_category_id, name, price_cents, quantity
		FROM order_tickets
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("failed to query order tickets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ticket entity.OrderTicket
		err := rows.Scan(
			&ticket.ID,
			&ticket.OrderID,
			&ticket.TicketCategoryID,
			&ticket.Name,
			&ticket.PriceCents,
			&ticket.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order ticket: %w", err)
		}
		order.Tickets = append(order.Tickets, ticket)
	}

	return rows.Err()
}

func (r *orderRepository) CountByEventID(ctx context.Context, eventID int64) (int, error) {
	query := `SELECT COUNT(*) FROM orders WHERE event_id = $1`
	var count int
	err := r.db.QueryRowContext(ctx, query, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders by event: %w", err)
	}
	return count, nil
}

// SetCheckedIn flips check_in false -> true. A second attempt is an
// error, not a silent success.
func (r *orderRepository) SetCheckedIn(ctx context.Context, id int64) error {
	query := `UPDATE orders SET check_in = TRUE WHERE id = $1 AND check_in = FALSE`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to check in order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var checkedIn bool
		err := r.db.QueryRowContext(ctx, `SELECT check_in FROM orders WHERE id = $1`, id).Scan(&checkedIn)
		if err == sql.ErrNoRows {
			return entity.ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get order: %w", err)
		}
		return entity.ErrAlreadyCheckedIn
	}

	return nil
}
