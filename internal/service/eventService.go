package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	repository "github.com/pyop-labs/ticketing-backend/internal/database/postgres"
	cache "github.com/pyop-labs/ticketing-backend/internal/database/redis"
	"github.com/pyop-labs/ticketing-backend/internal/entity"
)

// TicketCategoryRequest описывает ценовую категорию при создании мероприятия
type TicketCategoryRequest struct {
	Name         string `json:"name" binding:"required"`
	PriceCents   int64  `json:"price_cents" binding:"min=0"`
	TotalTickets int    `json:"total_tickets" binding:"min=0"`
}

// PromoCodeRequest описывает промокод при создании мероприятия
type PromoCodeRequest struct {
	Code            string `json:"code" binding:"required"`
	DiscountPercent int    `json:"discount_percent" binding:"min=0,max=100"`
}

// CreateEventRequest представляет данные для создания мероприятия
type CreateEventRequest struct {
	ClerkID     string                  `json:"clerk_id" binding:"required"`
	CategoryID  int64                   `json:"category_id" binding:"required"`
	Title       string                  `json:"title" binding:"required"`
	Description string                  `json:"description"`
	Location    string                  `json:"location"`
	ImageURL    string                  `json:"image_url" binding:"required"`
	StartTime   time.Time               `json:"start_time" binding:"required"`
	EndTime     time.Time               `json:"end_time" binding:"required"`
	IsFree      bool                    `json:"is_free"`
	EventType   entity.EventType        `json:"event_type" binding:"required,oneof=private public"`
	Categories  []TicketCategoryRequest `json:"ticket_categories" binding:"required,min=1,dive"`
	PromoCodes  []PromoCodeRequest      `json:"promo_codes" binding:"dive"`
}

// UpdateEventRequest mirrors CreateEventRequest; ticket categories are
// absent because capacity is owned by the inventory ledger.
type UpdateEventRequest struct {
	ClerkID     string             `json:"clerk_id" binding:"required"`
	CategoryID  int64              `json:"category_id" binding:"required"`
	Title       string             `json:"title" binding:"required"`
	Description string             `json:"description"`
	Location    string             `json:"location"`
	ImageURL    string             `json:"image_url" binding:"required"`
	StartTime   time.Time          `json:"start_time" binding:"required"`
	EndTime     time.Time          `json:"end_time" binding:"required"`
	IsFree      bool               `json:"is_free"`
	EventType   entity.EventType   `json:"event_type" binding:"required,oneof=private public"`
	PromoCodes  []PromoCodeRequest `json:"promo_codes" binding:"dive"`
}

// ListEventsRequest задает фильтры списка мероприятий
type ListEventsRequest struct {
	Title      string
	CategoryID int64
	Page       int
	Limit      int
}

// EventPage is one page of events plus the total page count.
type EventPage struct {
	Events     []*entity.Event `json:"data"`
	TotalPages int             `json:"total_pages"`
}

type eventService struct {
	eventRepo    repository.EventRepository
	orderRepo    repository.OrderRepository
	userRepo     repository.UserRepository
	categoryRepo repository.CategoryRepository
	cache        *cache.EventCache
	retention    time.Duration
}

// NewEventService создает новый экземпляр EventService
func NewEventService(
	eventRepo repository.EventRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	categoryRepo repository.CategoryRepository,
	eventCache *cache.EventCache,
	retention time.Duration,
) EventService {
	return &eventService{
		eventRepo:    eventRepo,
		orderRepo:    orderRepo,
		userRepo:     userRepo,
		categoryRepo: categoryRepo,
		cache:        eventCache,
		retention:    retention,
	}
}

// CreateEvent создает новое мероприятие со статусом pending
func (s *eventService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.Event, error) {
	organizer, err := s.userRepo.GetByClerkID(ctx, req.ClerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve organizer: %w", err)
	}

	category, err := s.categoryRepo.GetByID(ctx, req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve category: %w", err)
	}

	event := &entity.Event{
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		ImageURL:       req.ImageURL,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		IsFree:         req.IsFree,
		EventType:      req.EventType,
		ApprovalStatus: entity.ApprovalStatusPending,
		CategoryID:     category.ID,
		Category:       category,
		OrganizerID:    organizer.ID,
		Organizer:      organizer,
	}

	// Remaining starts at total for every tier.
	for _, c := range req.Categories {
		event.Categories = append(event.Categories, entity.TicketCategory{
			Name:             c.Name,
			PriceCents:       c.PriceCents,
			TotalTickets:     c.TotalTickets,
			RemainingTickets: c.TotalTickets,
		})
	}
	for _, p := range req.PromoCodes {
		event.PromoCodes = append(event.PromoCodes, entity.PromoCode{
			Code:            p.Code,
			DiscountPercent: p.DiscountPercent,
		})
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id":  event.ID,
		"organizer": organizer.ClerkID,
	}).Info("Event created")

	return event, nil
}

// GetEvent возвращает мероприятие по ID, через кэш
func (s *eventService) GetEvent(ctx context.Context, id int64) (*entity.Event, error) {
	if s.cache != nil {
		cached, err := s.cache.GetEvent(ctx, id)
		if err == nil {
			return cached, nil
		}
		if err != redis.Nil {
			logrus.Debugf("Event cache read failed for event %d: %v", id, err)
		}
	}

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetEvent(ctx, event); err != nil {
			logrus.Debugf("Event cache write failed for event %d: %v", id, err)
		}
	}

	return event, nil
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		limit = 6
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}

// ListEvents возвращает страницу мероприятий с фильтрами по названию и категории
func (s *eventService) ListEvents(ctx context.Context, req *ListEventsRequest) (*EventPage, error) {
	events, total, err := s.eventRepo.List(ctx, &repository.EventFilter{
		Title:      req.Title,
		CategoryID: req.CategoryID,
		Page:       req.Page,
		Limit:      req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return &EventPage{Events: events, TotalPages: totalPages(total, req.Limit)}, nil
}

// UpdateEvent обновляет мероприятие; разрешено только организатору
func (s *eventService) UpdateEvent(ctx context.Context, id int64, req *UpdateEventRequest) (*entity.Event, error) {
	organizer, err := s.userRepo.GetByClerkID(ctx, req.ClerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve organizer: %w", err)
	}

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if event.OrganizerID != organizer.ID {
		return nil, fmt.Errorf("%w: only the organizer can update this event", entity.ErrUnauthorized)
	}

	category, err := s.categoryRepo.GetByID(ctx, req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve category: %w", err)
	}

	event.Title = req.Title
	event.Description = req.Description
	event.Location = req.Location
	event.ImageURL = req.ImageURL
	event.StartTime = req.StartTime
	event.EndTime = req.EndTime
	event.IsFree = req.IsFree
	event.EventType = req.EventType
	event.CategoryID = category.ID
	event.Category = category

	event.PromoCodes = nil
	for _, p := range req.PromoCodes {
		event.PromoCodes = append(event.PromoCodes, entity.PromoCode{
			EventID:         event.ID,
			Code:            p.Code,
			DiscountPercent: p.DiscountPercent,
		})
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	s.invalidate(ctx, event.ID)
	return event, nil
}

// DeleteEvent удаляет мероприятие, если на него нет заказов
func (s *eventService) DeleteEvent(ctx context.Context, id int64) error {
	count, err := s.orderRepo.CountByEventID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check event orders: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: delete is blocked while orders reference the event", entity.ErrEventHasOrders)
	}

	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *eventService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteEvent(ctx, id); err != nil {
		logrus.Debugf("Event cache invalidation failed for event %d: %v", id, err)
	}
}

// GetEventsByOrganizer возвращает мероприятия организатора
func (s *eventService) GetEventsByOrganizer(ctx context.Context, clerkID string, page, limit int) (*EventPage, error) {
	organizer, err := s.userRepo.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve organizer: %w", err)
	}

	events, total, err := s.eventRepo.GetByOrganizer(ctx, organizer.ID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get organizer events: %w", err)
	}

	return &EventPage{Events: events, TotalPages: totalPages(total, limit)}, nil
}

// GetRelatedEvents возвращает одобренные мероприятия той же категории
func (s *eventService) GetRelatedEvents(ctx context.Context, categoryID, excludeEventID int64, page, limit int) (*EventPage, error) {
	events, total, err := s.eventRepo.GetRelatedByCategory(ctx, categoryID, excludeEventID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get related events: %w", err)
	}

	return &EventPage{Events: events, TotalPages: totalPages(total, limit)}, nil
}

// PurgeEndedEvents удаляет мероприятия, закончившиеся раньше срока хранения
func (s *eventService) PurgeEndedEvents(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.retention)

	deleted, err := s.eventRepo.DeleteEnded(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge ended events: %w", err)
	}

	if deleted > 0 {
		logrus.Infof("Purged %d ended events older than %s", deleted, s.retention)
	}
	return deleted, nil
}
