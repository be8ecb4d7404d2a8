package service

import (
	"context"

	"github.com/pyop-labs/ticketing-backend/internal/entity"
)

// OrderService определяет интерфейс для операций с заказами
type OrderService interface {
	// Основные операции
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error)
	QuotePromo(ctx context.Context, req *PromoQuoteRequest) (*PromoQuote, error)

	// Выборки
	GetOrder(ctx context.Context, orderID int64) (*entity.OrderSummary, error)
	GetOrderForBuyer(ctx context.Context, orderID int64, clerkID string) (*entity.OrderSummary, error)
	GetUserOrders(ctx context.Context, clerkID string) ([]*entity.OrderSummary, error)

	// Допуск на мероприятие
	CheckInOrder(ctx context.Context, orderID int64) error
}

// EventService определяет интерфейс для операций с мероприятиями
type EventService interface {
	CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.Event, error)
	GetEvent(ctx context.Context, id int64) (*entity.Event, error)
	ListEvents(ctx context.Context, req *ListEventsRequest) (*EventPage, error)
	UpdateEvent(ctx context.Context, id int64, req *UpdateEventRequest) (*entity.Event, error)
	DeleteEvent(ctx context.Context, id int64) error

	// Дополнительные операции
	GetEventsByOrganizer(ctx context.Context, clerkID string, page, limit int) (*EventPage, error)
	GetRelatedEvents(ctx context.Context, categoryID, excludeEventID int64, page, limit int) (*EventPage, error)
	PurgeEndedEvents(ctx context.Context) (int64, error)
}

type UserService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest) (*entity.User, error)
	GetUserByClerkID(ctx context.Context, clerkID string) (*entity.User, error)
}

type CategoryService interface {
	CreateCategory(ctx context.Context, name string) (*entity.Category, error)
	GetCategory(ctx context.Context, id int64) (*entity.Category, error)
	GetAllCategories(ctx context.Context) ([]*entity.Category, error)
}

// TaskPublisher интерфейс для публикации задач в очередь
type TaskPublisher interface {
	Publish(ctx context.Context, task *Task) error
}
