package repository

import (
	"context"
	"time"

	"github.com/pyop-labs/ticketing-backend/internal/entity"
)

// EventFilter narrows List results; zero values mean "no filter".
type EventFilter struct {
	Title      string
	CategoryID int64
	Page       int
	Limit      int
}

type OrderRepository interface {
	// Create persists the order, its ticket snapshot lines and the
	// matching capacity decrement in one transaction. Either all of it
	// commits or none of it does.
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id int64) (*entity.OrderSummary, error)
	GetByBuyerID(ctx context.Context, buyerID int64) ([]*entity.OrderSummary, error)
	CountByEventID(ctx context.Context, eventID int64) (int, error)

	// SetCheckedIn flips the check-in flag exactly once.
	SetCheckedIn(ctx context.Context, id int64) error
}

type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	GetByID(ctx context.Context, id int64) (*entity.Event, error)
	List(ctx context.Context, filter *EventFilter) ([]*entity.Event, int, error)
	Update(ctx context.Context, event *entity.Event) error
	Delete(ctx context.Context, id int64) error

	// Дополнительные выборки
	GetByOrganizer(ctx context.Context, organizerID int64, page, limit int) ([]*entity.Event, int, error)
	GetRelatedByCategory(ctx context.Context, categoryID, excludeEventID int64, page, limit int) ([]*entity.Event, int, error)
	DeleteEnded(ctx context.Context, endedBefore time.Time) (int64, error)

	// ReleaseTickets is the compensating mirror of the reservation done
	// inside OrderRepository.Create; the increment is clamped at the
	// category total.
	ReleaseTickets(ctx context.Context, ticketCategoryID int64, quantity int) error
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByClerkID(ctx context.Context, clerkID string) (*entity.User, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	GetByID(ctx context.Context, id int64) (*entity.Category, error)
	GetAll(ctx context.Context) ([]*entity.Category, error)
}
