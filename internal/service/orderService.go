package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	repository "github.com/pyop-labs/ticketing-backend/internal/database/postgres"
	"github.com/pyop-labs/ticketing-backend/internal/entity"
	"github.com/pyop-labs/ticketing-backend/pkg/payment"
)

// CreateOrderRequest представляет данные для создания заказа
type CreateOrderRequest struct {
	ClerkID          string              `json:"clerk_id" binding:"required"`
	EventID          int64               `json:"event_id" binding:"required"`
	Tickets          []TicketLineRequest `json:"tickets" binding:"required,min=1,dive"`
	PromoCode        string              `json:"promo_code"`
	PaymentRef       string              `json:"payment_ref"`
	PaymentOrderRef  string              `json:"payment_order_ref"`
	PaymentSignature string              `json:"payment_signature"`
}

// CreateOrderResponse carries the persisted order and the amount the
// buyer pays.
type CreateOrderResponse struct {
	Order           *entity.Order `json:"order"`
	AmountToPayCent int64         `json:"amount_to_pay_cents"`
}

// Task представляет задачу для очереди
type Task struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	MaxRetries int                    `json:"max_retries"`
	Attempts   int                    `json:"attempts"`
}

// Константы типов задач
const (
	TaskTypeOrderNotification = "order_notification"
	TaskTypeEventPurge        = "event_purge"
)

// EventInvalidator drops a cached event after it mutates.
type EventInvalidator interface {
	DeleteEvent(ctx context.Context, id int64) error
}

type orderService struct {
	orderRepo repository.OrderRepository
	eventRepo repository.EventRepository
	userRepo  repository.UserRepository
	verifier  *payment.Verifier
	cache     EventInvalidator
	queue     TaskPublisher
}

// NewOrderService создает новый экземпляр OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	eventRepo repository.EventRepository,
	userRepo repository.UserRepository,
	verifier *payment.Verifier,
	cache EventInvalidator,
	queue TaskPublisher,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		eventRepo: eventRepo,
		userRepo:  userRepo,
		verifier:  verifier,
		cache:     cache,
		queue:     queue,
	}
}

// CreateOrder runs the whole purchase: resolve buyer and event, validate
// the requested lines, price them, verify payment, then reserve capacity
// and persist the order as one transaction. Any failure leaves nothing
// behind.
func (s *orderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	buyer, err := s.userRepo.GetByClerkID(ctx, req.ClerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve buyer: %w", err)
	}

	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve event: %w", err)
	}

	// Purchase orders carry exactly one ticket category. Multi-category
	// carts are a quote-only feature.
	if len(req.Tickets) != 1 {
		return nil, fmt.Errorf("%w: an order must reference exactly one ticket category", entity.ErrInvalidRequest)
	}

	items, err := PriceTickets(req.Tickets, event.Categories)
	if err != nil {
		return nil, err
	}

	promo := ResolvePromo(event, req.PromoCode)
	percent := 0
	promoCode := ""
	if promo != nil {
		percent = promo.DiscountPercent
		promoCode = promo.Code
	}

	totals := ComputeTotals(items, percent)

	paymentRef, err := s.resolvePaymentRef(req, totals.FinalCents)
	if err != nil {
		return nil, err
	}

	order := &entity.Order{
		PaymentRef:    paymentRef,
		EventID:       event.ID,
		BuyerID:       buyer.ID,
		Tickets:       items,
		TotalCents:    totals.TotalCents,
		DiscountCents: totals.DiscountCents,
		FinalCents:    totals.FinalCents,
		PromoCode:     promoCode,
	}

	// Reservation and persistence happen together; a lost inventory race
	// surfaces as ErrInsufficientTickets with no order created.
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id":    order.ID,
		"event_id":    order.EventID,
		"buyer_id":    order.BuyerID,
		"final_cents": order.FinalCents,
	}).Info("Order created")

	if s.cache != nil {
		if err := s.cache.DeleteEvent(ctx, event.ID); err != nil {
			logrus.Warnf("Failed to invalidate event cache for event %d: %v", event.ID, err)
		}
	}

	if s.queue != nil {
		if err := s.publishOrderNotification(ctx, order, event, buyer); err != nil {
			logrus.Warnf("Failed to schedule order notification: %v", err)
		}
	}

	return &CreateOrderResponse{
		Order:           order,
		AmountToPayCent: order.FinalCents,
	}, nil
}

// resolvePaymentRef applies the payment policy: a zero total gets a
// synthesized reference; a paid order needs an external reference, and
// when a signature is supplied it must verify against the shared secret.
func (s *orderService) resolvePaymentRef(req *CreateOrderRequest, finalCents int64) (string, error) {
	if finalCents == 0 {
		return uuid.NewString(), nil
	}

	if req.PaymentRef == "" {
		return "", fmt.Errorf("%w: payment reference is required for paid orders", entity.ErrInvalidRequest)
	}

	if req.PaymentSignature != "" {
		if s.verifier == nil {
			return "", fmt.Errorf("%w: no payment secret configured", entity.ErrPaymentVerificationFailed)
		}
		if !s.verifier.Verify(req.PaymentOrderRef, req.PaymentRef, req.PaymentSignature) {
			return "", entity.ErrPaymentVerificationFailed
		}
	}

	return req.PaymentRef, nil
}

func (s *orderService) publishOrderNotification(ctx context.Context, order *entity.Order, event *entity.Event, buyer *entity.User) error {
	task := &Task{
		ID:   fmt.Sprintf("order_notification_%d_%d", order.ID, time.Now().Unix()),
		Type: TaskTypeOrderNotification,
		Data: map[string]interface{}{
			"order_id":    order.ID,
			"event_title": event.Title,
			"buyer_name":  buyer.FirstName + " " + buyer.LastName,
			"final_cents": order.FinalCents,
		},
		ExecuteAt:  time.Now().Add(5 * time.Second),
		MaxRetries: 3,
	}
	return s.queue.Publish(ctx, task)
}

// QuotePromo prices the requested lines with an optional promo code.
// Side-effect free: nothing is reserved, nothing is persisted.
func (s *orderService) QuotePromo(ctx context.Context, req *PromoQuoteRequest) (*PromoQuote, error) {
	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve event: %w", err)
	}

	items, err := PriceTickets(req.Tickets, event.Categories)
	if err != nil {
		return nil, err
	}

	promo := ResolvePromo(event, req.PromoCode)
	percent := 0
	if promo != nil {
		percent = promo.DiscountPercent
	}

	totals := ComputeTotals(items, percent)

	return &PromoQuote{
		Valid:           promo != nil,
		TotalCents:      totals.TotalCents,
		DiscountCents:   totals.DiscountCents,
		FinalCents:      totals.FinalCents,
		DiscountPercent: percent,
	}, nil
}

// GetOrder возвращает заказ по ID
func (s *orderService) GetOrder(ctx context.Context, orderID int64) (*entity.OrderSummary, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// GetOrderForBuyer returns the order only when it belongs to the caller.
func (s *orderService) GetOrderForBuyer(ctx context.Context, orderID int64, clerkID string) (*entity.OrderSummary, error) {
	buyer, err := s.userRepo.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve buyer: %w", err)
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order.BuyerID != buyer.ID {
		return nil, fmt.Errorf("%w: order does not belong to this user", entity.ErrForbidden)
	}

	return order, nil
}

// GetUserOrders возвращает все заказы пользователя, новые первыми
func (s *orderService) GetUserOrders(ctx context.Context, clerkID string) ([]*entity.OrderSummary, error) {
	buyer, err := s.userRepo.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve buyer: %w", err)
	}

	orders, err := s.orderRepo.GetByBuyerID(ctx, buyer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user orders: %w", err)
	}
	return orders, nil
}

// CheckInOrder flips the check-in flag; repeating it is an error.
func (s *orderService) CheckInOrder(ctx context.Context, orderID int64) error {
	if err := s.orderRepo.SetCheckedIn(ctx, orderID); err != nil {
		return fmt.Errorf("failed to check in order: %w", err)
	}

	logrus.WithField("order_id", orderID).Info("Order checked in")
	return nil
}
