package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repository "github.com/pyop-labs/ticketing-backend/internal/database/postgres"
	"github.com/pyop-labs/ticketing-backend/internal/entity"
	"github.com/pyop-labs/ticketing-backend/pkg/payment"
)

// fakeUserRepo хранит пользователей в памяти
type fakeUserRepo struct {
	users map[string]*entity.User
}

func (f *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	if _, ok := f.users[user.ClerkID]; ok {
		return entity.ErrUserAlreadyExists
	}
	user.ID = int64(len(f.users) + 1)
	f.users[user.ClerkID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, entity.ErrUserNotFound
}

func (f *fakeUserRepo) GetByClerkID(ctx context.Context, clerkID string) (*entity.User, error) {
	if u, ok := f.users[clerkID]; ok {
		return u, nil
	}
	return nil, entity.ErrUserNotFound
}

// fakeEventRepo хранит мероприятия в памяти
type fakeEventRepo struct {
	mu     sync.Mutex
	events map[int64]*entity.Event
}

func (f *fakeEventRepo) Create(ctx context.Context, event *entity.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = int64(len(f.events) + 1)
	f.events[event.ID] = event
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id int64) (*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	// Snapshot so callers never observe concurrent reservation writes.
	copied := *event
	copied.Categories = append([]entity.TicketCategory(nil), event.Categories...)
	copied.PromoCodes = append([]entity.PromoCode(nil), event.PromoCodes...)
	return &copied, nil
}

func (f *fakeEventRepo) List(ctx context.Context, filter *repository.EventFilter) ([]*entity.Event, int, error) {
	return nil, 0, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, event *entity.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[event.ID]; !ok {
		return entity.ErrEventNotFound
	}
	f.events[event.ID] = event
	return nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[id]; !ok {
		return entity.ErrEventNotFound
	}
	delete(f.events, id)
	return nil
}

func (f *fakeEventRepo) GetByOrganizer(ctx context.Context, organizerID int64, page, limit int) ([]*entity.Event, int, error) {
	return nil, 0, nil
}

func (f *fakeEventRepo) GetRelatedByCategory(ctx context.Context, categoryID, excludeEventID int64, page, limit int) ([]*entity.Event, int, error) {
	return nil, 0, nil
}

func (f *fakeEventRepo) DeleteEnded(ctx context.Context, endedBefore time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, event := range f.events {
		if !event.EndTime.IsZero() && event.EndTime.Before(endedBefore) {
			delete(f.events, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeEventRepo) ReleaseTickets(ctx context.Context, ticketCategoryID int64, quantity int) error {
	return nil
}

func (f *fakeEventRepo) remaining(eventID, categoryID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.events[eventID].Categories {
		if c.ID == categoryID {
			return c.RemainingTickets
		}
	}
	return -1
}

// fakeOrderRepo резервирует билеты и сохраняет заказ атомарно, как
// транзакционная реализация поверх Postgres
type fakeOrderRepo struct {
	mu        sync.Mutex
	eventRepo *fakeEventRepo
	orders    map[int64]*entity.Order
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *entity.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventRepo.mu.Lock()
	defer f.eventRepo.mu.Unlock()

	event, ok := f.eventRepo.events[order.EventID]
	if !ok {
		return entity.ErrEventNotFound
	}

	for _, ticket := range order.Tickets {
		reserved := false
		for i := range event.Categories {
			if event.Categories[i].ID != ticket.TicketCategoryID {
				continue
			}
			if event.Categories[i].RemainingTickets < ticket.Quantity {
				return entity.ErrInsufficientTickets
			}
			event.Categories[i].RemainingTickets -= ticket.Quantity
			reserved = true
			break
		}
		if !reserved {
			return entity.ErrTicketCategoryNotFound
		}
	}

	order.ID = int64(len(f.orders) + 1)
	order.CreatedAt = time.Now()
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id int64) (*entity.OrderSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}
	return &entity.OrderSummary{Order: *order}, nil
}

func (f *fakeOrderRepo) GetByBuyerID(ctx context.Context, buyerID int64) ([]*entity.OrderSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var summaries []*entity.OrderSummary
	for _, order := range f.orders {
		if order.BuyerID == buyerID {
			summaries = append(summaries, &entity.OrderSummary{Order: *order})
		}
	}
	return summaries, nil
}

func (f *fakeOrderRepo) CountByEventID(ctx context.Context, eventID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, order := range f.orders {
		if order.EventID == eventID {
			count++
		}
	}
	return count, nil
}

func (f *fakeOrderRepo) SetCheckedIn(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return entity.ErrOrderNotFound
	}
	if order.CheckIn {
		return entity.ErrAlreadyCheckedIn
	}
	order.CheckIn = true
	return nil
}

// capturePublisher записывает опубликованные задачи
type capturePublisher struct {
	mu    sync.Mutex
	tasks []*Task
}

func (p *capturePublisher) Publish(ctx context.Context, task *Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return nil
}

type orderFixture struct {
	userRepo  *fakeUserRepo
	eventRepo *fakeEventRepo
	orderRepo *fakeOrderRepo
	publisher *capturePublisher
	service   OrderService
}

func newOrderFixture(t *testing.T, verifier *payment.Verifier) *orderFixture {
	t.Helper()

	userRepo := &fakeUserRepo{users: map[string]*entity.User{
		"clerk_buyer": {ID: 1, ClerkID: "clerk_buyer", FirstName: "Ivan", LastName: "Petrov"},
		"clerk_other": {ID: 2, ClerkID: "clerk_other", FirstName: "Anna", LastName: "Smirnova"},
	}}

	eventRepo := &fakeEventRepo{events: map[int64]*entity.Event{
		10: {
			ID:    10,
			Title: "Go Conference",
			Categories: []entity.TicketCategory{
				{ID: 1, EventID: 10, Name: "GA", PriceCents: 100, TotalTickets: 2, RemainingTickets: 2},
				{ID: 2, EventID: 10, Name: "VIP", PriceCents: 5000, TotalTickets: 10, RemainingTickets: 1},
				{ID: 3, EventID: 10, Name: "Free", PriceCents: 0, TotalTickets: 100, RemainingTickets: 100},
			},
			PromoCodes: []entity.PromoCode{
				{ID: 1, EventID: 10, Code: "SAVE10", DiscountPercent: 10},
			},
		},
	}}

	orderRepo := &fakeOrderRepo{eventRepo: eventRepo, orders: map[int64]*entity.Order{}}
	publisher := &capturePublisher{}

	return &orderFixture{
		userRepo:  userRepo,
		eventRepo: eventRepo,
		orderRepo: orderRepo,
		publisher: publisher,
		service:   NewOrderService(orderRepo, eventRepo, userRepo, verifier, nil, publisher),
	}
}

// TestCreateOrder тестирует оформление заказа на один тип билета
func TestCreateOrder(t *testing.T) {
	fx := newOrderFixture(t, nil)

	resp, err := fx.service.CreateOrder(context.Background(), &CreateOrderRequest{
		ClerkID:    "clerk_buyer",
		EventID:    10,
		Tickets:    []TicketLineRequest{{TicketCategoryID: 1, Quantity: 1}},
		PaymentRef: "pay_123",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(100), resp.Order.TotalCents)
	assert.Equal(t, int64(0), resp.Order.DiscountCents)
	assert.Equal(t, int64(100), resp.Order.FinalCents)
	assert.Equal(t, int64(100), resp.AmountToPayCent)
	assert.Equal(t, "pay_123", resp.Order.PaymentRef)
	assert.False(t, resp.Order.CheckIn)

	// Остаток уменьшился ровно на количество в заказе
	assert.Equal(t, 1, fx.eventRepo.remaining(10, 1))

	// Уведомление о заказе ушло в очередь
	require.Len(t, fx.publisher.tasks, 1)
	assert.Equal(t, TaskTypeOrderNotification, fx.publisher.tasks[0].Type)
}

// TestCreateOrderWithPromo тестирует применение промокода при покупке
func TestCreateOrderWithPromo(t *testing.T) {
	fx := newOrderFixture(t, nil)

	resp, err := fx.service.CreateOrder(context.Background(), &CreateOrderRequest{
		ClerkID:    "clerk_buyer",
		EventID:    10,
		Tickets:    []TicketLineRequest{{TicketCategoryID: 1, Quantity: 2}},
		PromoCode:  "SAVE10",
		PaymentRef: "pay_456",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(200), resp.Order.TotalCents)
	assert.Equal(t, int64(20), resp.Order.DiscountCents)
	assert.Equal(t, int64(180), resp.Order.FinalCents)
	assert.Equal(t, "SAVE10", resp.Order.PromoCode)
}

// TestCreateOrderUnknownPromo проверяет, что неизвестный код не дает скидку
func TestCreateOrderUnknownPromo(t *testing.T) {
	fx := newOrderFixture(t, nil)

	resp, err := fx.service.CreateOrder(context.Background(), &CreateOrderRequest{
		ClerkID:    "clerk_buyer",
		EventID:    10,
		Tickets:    []TicketLineRequest{{TicketCategoryID: 1, Quantity: 1}},
		PromoCode:  "NOPE",
		PaymentRef: "pay_789",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), resp.Order.DiscountCents)
	assert.Equal(t, resp.Order.TotalCents, resp.Order.FinalCents)
	assert.Empty(t, resp.Order.PromoCode)
}

// TestCreateOrderFreeTicket проверяет синтез платежной ссылки для бесплатного заказа
func TestCreateOrderFreeTicket(t *testing.T) {
	fx := newOrderFixture(t, nil)

	resp, err := fx.service.CreateOrder(context.Background(), &CreateOrderRequest{
		ClerkID: "clerk_buyer",
		EventID: 10,
		Tickets: []TicketLineRequest{{TicketCategoryID: 3, Quantity: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), resp.Order.FinalCents)
	assert.NotEmpty(t, resp.Order.PaymentRef)
}

// TestCreateOrderFailures тестирует отказы при оформлении заказа
func TestCreateOrderFailures(t *testing.T) {
	tests := []struct {
		name    string
		req     *CreateOrderRequest
		wantErr error
	}{
		{
			name: "unknown buyer",
			req: &CreateOrderRequest{
				ClerkID:    "clerk_ghost",
				EventID:    10,
				Tickets:    []TicketLineRequest{{TicketCategoryID: 1, Quantity: 1}},
				PaymentRef: "pay_1",
			},
			wantErr: entity.ErrUserNotFound,
		},
		{
			name: "unknown event",
			req: &CreateOrderRequest{
				ClerkID:    "clerk_buyer",
				EventID:    99,
				Tickets:    []TicketLineRequest{{TicketCategoryID: 1, Quantity: 1}},
				PaymentRef: "pay_1",
			},
			wantErr: entity.ErrEventNotFound,
		},
		{
			name: "two categories in one order",
			req: &CreateOrderRequest{
				ClerkID: "clerk_buyer",
				EventID: 10,
				Tickets: []TicketLineRequest{
					{TicketCategoryID: 1, Quantity: 1},
					{TicketCategoryID: 2, Quantity: 1},
				},
				PaymentRef: "pay_1",
			},
			wantErr: entity.ErrInvalidRequest,
		},
		{
			name: "quantity above remaining",
			req: &CreateOrderRequest{
				ClerkID:    "clerk_buyer",
				EventID:    10,
				Tickets:    []TicketLineRequest{{TicketCategoryID: 2, Quantity: 3}},
				PaymentRef: "pay_1",
			},
			wantErr: entity.ErrInsufficientTickets,
		},
		{
			name: "paid order without payment reference",
			req: &CreateOrderRequest{
				ClerkID: "clerk_buyer",
				EventID: 10,
				Tickets: []TicketLineRequest{{TicketCategoryID: 1, Quantity: 1}},
			},
			wantErr: entity.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newOrderFixture(t, nil)

			_, err := fx.service.CreateOrder(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)

			// Ни заказа, ни списания остатков
			assert.Empty(t, fx.orderRepo.orders)
			assert.Equal(t, 2, fx.eventRepo.remaining(10, 1))
			assert.Equal(t, 1, fx.eventRepo.remaining(10, 2))
		})
	}
}

// TestCreateOrderSignature тестирует проверку подписи платежа
func TestCreateOrderSignature(t *testing.T) {
	verifier := payment.NewVerifier("test-secret")

	t.Run("valid signature", func(t *testing.T) {
		fx := newOrderFixture(t, verifier)

		resp, err := fx.service.CreateOrder(context.Background(), &CreateOrderRequest{
			ClerkID:          "clerk_buyer",
			EventID:          10,
			Tickets:          []TicketLineRequest{{TicketCategoryID: 1, Quantity: 1}},
			PaymentRef:       "pay_abc",
			PaymentOrderRef:  "order_abc",
			PaymentSignature: verifier.Sign("order_abc", "pay_abc"),
		})
		require.NoError(t, err)
		assert.Equal(t, "pay_abc", resp.Order.PaymentRef)
	})

	t.Run("forged signature", func(t *testing.T) {
		fx := newOrderFixture(t, verifier)

		_, err := fx.service.CreateOrder(context.Background(), &CreateOrderRequest{
			ClerkID:          "clerk_buyer",
			EventID:          10,
			Tickets:          []TicketLineRequest{{TicketCategoryID: 1, Quantity: 1}},
			PaymentRef:       "pay_abc",
			PaymentOrderRef:  "order_abc",
			PaymentSignature: "deadbeef",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, entity.ErrPaymentVerificationFailed))
		assert.Equal(t, 2, fx.eventRepo.remaining(10, 1))
	})
}

// TestCreateOrderConcurrency проверяет, что последний билет достается одному покупателю
func TestCreateOrderConcurrency(t *testing.T) {
	fx := newOrderFixture(t, nil)

	const attempts = 2
	errs := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := fx.service.CreateOrder(context.Background(), &CreateOrderRequest{
				ClerkID:    "clerk_buyer",
				EventID:    10,
				Tickets:    []TicketLineRequest{{TicketCategoryID: 2, Quantity: 1}},
				PaymentRef: fmt.Sprintf("pay_%d", n),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var succeeded, insufficient int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, entity.ErrInsufficientTickets):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 0, fx.eventRepo.remaining(10, 2))
}

// TestQuotePromo тестирует расчет стоимости без побочных эффектов
func TestQuotePromo(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		want  *PromoQuote
		lines []TicketLineRequest
	}{
		{
			name:  "valid promo",
			code:  "SAVE10",
			lines: []TicketLineRequest{{TicketCategoryID: 1, Quantity: 2}},
			want: &PromoQuote{
				Valid:           true,
				TotalCents:      200,
				DiscountCents:   20,
				FinalCents:      180,
				DiscountPercent: 10,
			},
		},
		{
			name:  "unknown promo",
			code:  "NOPE",
			lines: []TicketLineRequest{{TicketCategoryID: 1, Quantity: 2}},
			want: &PromoQuote{
				Valid:      false,
				TotalCents: 200,
				FinalCents: 200,
			},
		},
		{
			name: "no promo",
			lines: []TicketLineRequest{
				{TicketCategoryID: 1, Quantity: 1},
				{TicketCategoryID: 2, Quantity: 1},
			},
			want: &PromoQuote{
				Valid:      false,
				TotalCents: 5100,
				FinalCents: 5100,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newOrderFixture(t, nil)

			quote, err := fx.service.QuotePromo(context.Background(), &PromoQuoteRequest{
				EventID:   10,
				PromoCode: tt.code,
				Tickets:   tt.lines,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, quote)

			// Расчет ничего не резервирует
			assert.Equal(t, 2, fx.eventRepo.remaining(10, 1))
			assert.Equal(t, 1, fx.eventRepo.remaining(10, 2))
			assert.Empty(t, fx.orderRepo.orders)
		})
	}
}

// TestGetOrderForBuyer тестирует проверку владельца заказа
func TestGetOrderForBuyer(t *testing.T) {
	fx := newOrderFixture(t, nil)

	resp, err := fx.service.CreateOrder(context.Background(), &CreateOrderRequest{
		ClerkID:    "clerk_buyer",
		EventID:    10,
		Tickets:    []TicketLineRequest{{TicketCategoryID: 1, Quantity: 1}},
		PaymentRef: "pay_123",
	})
	require.NoError(t, err)

	got, err := fx.service.GetOrderForBuyer(context.Background(), resp.Order.ID, "clerk_buyer")
	require.NoError(t, err)
	assert.Equal(t, resp.Order.ID, got.ID)

	_, err = fx.service.GetOrderForBuyer(context.Background(), resp.Order.ID, "clerk_other")
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrForbidden))
}

// TestCheckInOrder тестирует однократность отметки о входе
func TestCheckInOrder(t *testing.T) {
	fx := newOrderFixture(t, nil)

	resp, err := fx.service.CreateOrder(context.Background(), &CreateOrderRequest{
		ClerkID:    "clerk_buyer",
		EventID:    10,
		Tickets:    []TicketLineRequest{{TicketCategoryID: 1, Quantity: 1}},
		PaymentRef: "pay_123",
	})
	require.NoError(t, err)

	require.NoError(t, fx.service.CheckInOrder(context.Background(), resp.Order.ID))

	err = fx.service.CheckInOrder(context.Background(), resp.Order.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrAlreadyCheckedIn))

	err = fx.service.CheckInOrder(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrOrderNotFound))
}
