package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyop-labs/ticketing-backend/internal/entity"
)

// fakeCategoryRepo хранит рубрики в памяти
type fakeCategoryRepo struct {
	categories map[int64]*entity.Category
}

func (f *fakeCategoryRepo) Create(ctx context.Context, category *entity.Category) error {
	category.ID = int64(len(f.categories) + 1)
	f.categories[category.ID] = category
	return nil
}

func (f *fakeCategoryRepo) GetByID(ctx context.Context, id int64) (*entity.Category, error) {
	if c, ok := f.categories[id]; ok {
		return c, nil
	}
	return nil, entity.ErrCategoryNotFound
}

func (f *fakeCategoryRepo) GetAll(ctx context.Context) ([]*entity.Category, error) {
	var all []*entity.Category
	for _, c := range f.categories {
		all = append(all, c)
	}
	return all, nil
}

type eventFixture struct {
	userRepo     *fakeUserRepo
	eventRepo    *fakeEventRepo
	orderRepo    *fakeOrderRepo
	categoryRepo *fakeCategoryRepo
	service      EventService
}

func newEventFixture(t *testing.T, retention time.Duration) *eventFixture {
	t.Helper()

	userRepo := &fakeUserRepo{users: map[string]*entity.User{
		"clerk_org":   {ID: 1, ClerkID: "clerk_org", FirstName: "Olga", LastName: "Ivanova"},
		"clerk_other": {ID: 2, ClerkID: "clerk_other", FirstName: "Pavel", LastName: "Sidorov"},
	}}
	eventRepo := &fakeEventRepo{events: map[int64]*entity.Event{}}
	orderRepo := &fakeOrderRepo{eventRepo: eventRepo, orders: map[int64]*entity.Order{}}
	categoryRepo := &fakeCategoryRepo{categories: map[int64]*entity.Category{
		1: {ID: 1, Name: "Tech"},
		2: {ID: 2, Name: "Music"},
	}}

	return &eventFixture{
		userRepo:     userRepo,
		eventRepo:    eventRepo,
		orderRepo:    orderRepo,
		categoryRepo: categoryRepo,
		service:      NewEventService(eventRepo, orderRepo, userRepo, categoryRepo, nil, retention),
	}
}

func validCreateEventRequest() *CreateEventRequest {
	return &CreateEventRequest{
		ClerkID:     "clerk_org",
		CategoryID:  1,
		Title:       "Go Conference",
		Description: "Talks and workshops",
		Location:    "Moscow",
		ImageURL:    "https://example.com/banner.png",
		StartTime:   time.Now().Add(24 * time.Hour),
		EndTime:     time.Now().Add(30 * time.Hour),
		EventType:   entity.EventTypePublic,
		Categories: []TicketCategoryRequest{
			{Name: "GA", PriceCents: 100, TotalTickets: 50},
			{Name: "VIP", PriceCents: 5000, TotalTickets: 5},
		},
		PromoCodes: []PromoCodeRequest{
			{Code: "SAVE10", DiscountPercent: 10},
		},
	}
}

// TestCreateEvent тестирует создание мероприятия
func TestCreateEvent(t *testing.T) {
	fx := newEventFixture(t, 96*time.Hour)

	event, err := fx.service.CreateEvent(context.Background(), validCreateEventRequest())
	require.NoError(t, err)

	assert.Equal(t, entity.ApprovalStatusPending, event.ApprovalStatus)
	assert.Equal(t, int64(1), event.OrganizerID)
	assert.Equal(t, int64(1), event.CategoryID)

	// Остаток каждого типа билета стартует с полного тиража
	require.Len(t, event.Categories, 2)
	assert.Equal(t, 50, event.Categories[0].RemainingTickets)
	assert.Equal(t, 5, event.Categories[1].RemainingTickets)

	require.Len(t, event.PromoCodes, 1)
	assert.Equal(t, "SAVE10", event.PromoCodes[0].Code)
}

// TestCreateEventFailures тестирует отказы при создании мероприятия
func TestCreateEventFailures(t *testing.T) {
	fx := newEventFixture(t, 96*time.Hour)

	t.Run("unknown organizer", func(t *testing.T) {
		req := validCreateEventRequest()
		req.ClerkID = "clerk_ghost"

		_, err := fx.service.CreateEvent(context.Background(), req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, entity.ErrUserNotFound))
	})

	t.Run("unknown category", func(t *testing.T) {
		req := validCreateEventRequest()
		req.CategoryID = 99

		_, err := fx.service.CreateEvent(context.Background(), req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, entity.ErrCategoryNotFound))
	})
}

// TestUpdateEvent тестирует обновление мероприятия организатором
func TestUpdateEvent(t *testing.T) {
	fx := newEventFixture(t, 96*time.Hour)

	created, err := fx.service.CreateEvent(context.Background(), validCreateEventRequest())
	require.NoError(t, err)

	updateReq := &UpdateEventRequest{
		ClerkID:     "clerk_org",
		CategoryID:  2,
		Title:       "Go Conference 2026",
		Description: "Updated program",
		Location:    "Saint Petersburg",
		ImageURL:    "https://example.com/banner-v2.png",
		StartTime:   created.StartTime,
		EndTime:     created.EndTime,
		EventType:   entity.EventTypePublic,
		PromoCodes: []PromoCodeRequest{
			{Code: "LATE5", DiscountPercent: 5},
		},
	}

	updated, err := fx.service.UpdateEvent(context.Background(), created.ID, updateReq)
	require.NoError(t, err)

	assert.Equal(t, "Go Conference 2026", updated.Title)
	assert.Equal(t, int64(2), updated.CategoryID)

	// Промокоды заменяются целиком
	require.Len(t, updated.PromoCodes, 1)
	assert.Equal(t, "LATE5", updated.PromoCodes[0].Code)

	// Типы билетов и их остатки обновление не трогает
	require.Len(t, updated.Categories, 2)
	assert.Equal(t, 50, updated.Categories[0].RemainingTickets)
}

// TestUpdateEventUnauthorized проверяет, что чужое мероприятие менять нельзя
func TestUpdateEventUnauthorized(t *testing.T) {
	fx := newEventFixture(t, 96*time.Hour)

	created, err := fx.service.CreateEvent(context.Background(), validCreateEventRequest())
	require.NoError(t, err)

	req := &UpdateEventRequest{
		ClerkID:    "clerk_other",
		CategoryID: 1,
		Title:      "Hijacked",
		ImageURL:   "https://example.com/x.png",
		StartTime:  created.StartTime,
		EndTime:    created.EndTime,
		EventType:  entity.EventTypePublic,
	}

	_, err = fx.service.UpdateEvent(context.Background(), created.ID, req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrUnauthorized))
}

// TestDeleteEvent тестирует удаление мероприятия и защиту проданных заказов
func TestDeleteEvent(t *testing.T) {
	fx := newEventFixture(t, 96*time.Hour)

	created, err := fx.service.CreateEvent(context.Background(), validCreateEventRequest())
	require.NoError(t, err)

	t.Run("blocked while orders exist", func(t *testing.T) {
		require.NoError(t, fx.orderRepo.Create(context.Background(), &entity.Order{
			EventID: created.ID,
			BuyerID: 2,
			Tickets: []entity.OrderTicket{{TicketCategoryID: created.Categories[0].ID, Quantity: 1}},
		}))

		err := fx.service.DeleteEvent(context.Background(), created.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, entity.ErrEventHasOrders))
	})

	t.Run("deletes when no orders", func(t *testing.T) {
		fx.orderRepo.orders = map[int64]*entity.Order{}

		require.NoError(t, fx.service.DeleteEvent(context.Background(), created.ID))

		_, err := fx.service.GetEvent(context.Background(), created.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, entity.ErrEventNotFound))
	})
}

// TestPurgeEndedEvents тестирует удаление давно закончившихся мероприятий
func TestPurgeEndedEvents(t *testing.T) {
	fx := newEventFixture(t, 96*time.Hour)

	old := validCreateEventRequest()
	old.Title = "Long gone"
	old.StartTime = time.Now().Add(-10 * 24 * time.Hour)
	old.EndTime = time.Now().Add(-9 * 24 * time.Hour)
	_, err := fx.service.CreateEvent(context.Background(), old)
	require.NoError(t, err)

	recent := validCreateEventRequest()
	recent.Title = "Just finished"
	recent.StartTime = time.Now().Add(-30 * time.Hour)
	recent.EndTime = time.Now().Add(-24 * time.Hour)
	recentEvent, err := fx.service.CreateEvent(context.Background(), recent)
	require.NoError(t, err)

	upcoming := validCreateEventRequest()
	upcomingEvent, err := fx.service.CreateEvent(context.Background(), upcoming)
	require.NoError(t, err)

	deleted, err := fx.service.PurgeEndedEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// Внутри окна хранения и будущие мероприятия остаются
	_, err = fx.service.GetEvent(context.Background(), recentEvent.ID)
	assert.NoError(t, err)
	_, err = fx.service.GetEvent(context.Background(), upcomingEvent.ID)
	assert.NoError(t, err)
}

// TestTotalPages тестирует расчет числа страниц
func TestTotalPages(t *testing.T) {
	tests := []struct {
		name  string
		total int
		limit int
		want  int
	}{
		{name: "exact fit", total: 12, limit: 6, want: 2},
		{name: "partial last page", total: 13, limit: 6, want: 3},
		{name: "empty", total: 0, limit: 6, want: 0},
		{name: "zero limit falls back to default", total: 7, limit: 0, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, totalPages(tt.total, tt.limit))
		})
	}
}
