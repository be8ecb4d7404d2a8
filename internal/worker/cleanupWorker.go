package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pyop-labs/ticketing-backend/internal/service"
)

// EventCleanupWorker periodically schedules removal of events that ended
// longer than the retention window ago and never sold a ticket.
type EventCleanupWorker struct {
	eventService service.EventService
	publisher    service.TaskPublisher
	interval     time.Duration
}

func NewEventCleanupWorker(eventService service.EventService, publisher service.TaskPublisher, interval time.Duration) *EventCleanupWorker {
	return &EventCleanupWorker{
		eventService: eventService,
		publisher:    publisher,
		interval:     interval,
	}
}

func (w *EventCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Event cleanup worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Event cleanup worker stopped")
			return
		case <-ticker.C:
			w.schedulePurge(ctx)
		}
	}
}

// schedulePurge hands the purge off to the task queue so it gets retry
// and DLQ semantics; without a queue it runs the purge inline.
func (w *EventCleanupWorker) schedulePurge(ctx context.Context) {
	if w.publisher != nil {
		task := &service.Task{
			Type: service.TaskTypeEventPurge,
			Data: map[string]interface{}{},
		}
		if err := w.publisher.Publish(ctx, task); err != nil {
			logrus.Errorf("Failed to publish event purge task: %v", err)
		}
		return
	}

	deleted, err := w.eventService.PurgeEndedEvents(ctx)
	if err != nil {
		logrus.Errorf("Failed to purge ended events: %v", err)
		return
	}
	if deleted > 0 {
		logrus.Infof("Purged %d ended events", deleted)
	}
}
