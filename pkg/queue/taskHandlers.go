package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pyop-labs/ticketing-backend/internal/entity"
)

// OrderReader читает заказы для уведомлений
type OrderReader interface {
	GetOrder(ctx context.Context, orderID int64) (*entity.OrderSummary, error)
}

// EventPurger удаляет давно закончившиеся мероприятия
type EventPurger interface {
	PurgeEndedEvents(ctx context.Context) (int64, error)
}

// TelegramBot интерфейс для Telegram бота
type TelegramBot interface {
	SendMessage(chatID, text string) error
}

// TaskHandler обрабатывает задачи из очереди
type TaskHandler struct {
	orders    OrderReader
	events    EventPurger
	bot       TelegramBot
	opsChatID string
}

// NewTaskHandler создает новый обработчик задач
func NewTaskHandler(orders OrderReader, events EventPurger, bot TelegramBot, opsChatID string) *TaskHandler {
	return &TaskHandler{
		orders:    orders,
		events:    events,
		bot:       bot,
		opsChatID: opsChatID,
	}
}

// HandleTask обрабатывает задачу
func (h *TaskHandler) HandleTask(task *Task) error {
	logrus.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_type": task.Type,
		"attempt":   fmt.Sprintf("%d/%d", task.Attempts, task.MaxRetries),
	}).Info("processing task")

	switch task.Type {
	case TaskTypeOrderNotification:
		return h.handleOrderNotification(task)
	case TaskTypeEventPurge:
		return h.handleEventPurge(task)
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}

// handleOrderNotification отправляет сообщение о новом заказе в операционный чат
func (h *TaskHandler) handleOrderNotification(task *Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	orderID := task.GetInt64("order_id")
	if orderID == 0 {
		return fmt.Errorf("invalid order_id in task data")
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order %d: %w", orderID, err)
	}

	if h.bot == nil || h.opsChatID == "" {
		logrus.WithField("order_id", orderID).Debug("telegram is not configured, skipping notification")
		return nil
	}

	message := fmt.Sprintf(
		"🎟 Новый заказ #%d\n\n"+
			"Мероприятие: %s\n"+
			"Покупатель: %s %s\n"+
			"Сумма: %s\n"+
			"Оформлен: %s",
		order.ID,
		order.EventTitle,
		order.BuyerFirstName,
		order.BuyerLastName,
		formatCents(order.FinalCents),
		order.CreatedAt.Format("02.01.2006 15:04"),
	)

	if err := h.bot.SendMessage(h.opsChatID, message); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	logrus.WithField("order_id", orderID).Info("order notification sent")
	return nil
}

// handleEventPurge удаляет закончившиеся мероприятия без заказов
func (h *TaskHandler) handleEventPurge(task *Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := h.events.PurgeEndedEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge ended events: %w", err)
	}

	if deleted > 0 {
		logrus.WithField("deleted", deleted).Info("purged ended events")
	}
	return nil
}

// formatCents renders an amount in cents as a decimal string
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
