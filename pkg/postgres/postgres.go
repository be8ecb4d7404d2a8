package postgres

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/pyop-labs/ticketing-backend/config"

	_ "github.com/lib/pq"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to PostgreSQL")
	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) UNIQUE NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			clerk_id VARCHAR(255) UNIQUE NOT NULL,
			first_name VARCHAR(255) NOT NULL,
			last_name VARCHAR(255) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS events (
			id SERIAL PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP NOT NULL,
			is_free BOOLEAN NOT NULL DEFAULT FALSE,
			event_type VARCHAR(20) NOT NULL CHECK (event_type IN ('private', 'public')),
			approval_status VARCHAR(20) NOT NULL DEFAULT 'pending'
				CHECK (approval_status IN ('pending', 'approved', 'rejected')),
			category_id INTEGER NOT NULL REFERENCES categories(id),
			organizer_id INTEGER NOT NULL REFERENCES users(id),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS ticket_categories (
			id SERIAL PRIMARY KEY,
			event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
			total_tickets INTEGER NOT NULL CHECK (total_tickets >= 0),
			remaining_tickets INTEGER NOT NULL
				CHECK (remaining_tickets >= 0 AND remaining_tickets <= total_tickets)
		)`,

		`CREATE TABLE IF NOT EXISTS promo_codes (
			id SERIAL PRIMARY KEY,
			event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			code VARCHAR(100) NOT NULL,
			discount_percent INTEGER NOT NULL
				CHECK (discount_percent >= 0 AND discount_percent <= 100),
			UNIQUE (event_id, code)
		)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id SERIAL PRIMARY KEY,
			payment_ref VARCHAR(255) NOT NULL,
			event_id INTEGER NOT NULL REFERENCES events(id),
			buyer_id INTEGER NOT NULL REFERENCES users(id),
			total_cents BIGINT NOT NULL,
			discount_cents BIGINT NOT NULL DEFAULT 0,
			final_cents BIGINT NOT NULL,
			promo_code VARCHAR(100) NOT NULL DEFAULT '',
			check_in BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS order_tickets (
			id SERIAL PRIMARY KEY,
			order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			ticket_category_id INTEGER NOT NULL,
			name VARCHAR(255) NOT NULL,
			price_cents BIGINT NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_events_category_id ON events(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_organizer_id ON events(organizer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_end_time ON events(end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_ticket_categories_event_id ON ticket_categories(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_promo_codes_event_id ON promo_codes(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_event_id ON orders(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_buyer_id ON orders(buyer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_order_tickets_order_id ON order_tickets(order_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %v", err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
