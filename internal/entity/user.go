package entity

import (
	"time"
)

// User is keyed by the external identity string (clerk id) the auth
// provider assigns; the directory here only mirrors it.
type User struct {
	ID        int64     `json:"id" db:"id"`
	ClerkID   string    `json:"clerk_id" db:"clerk_id"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
