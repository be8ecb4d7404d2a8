package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pyop-labs/ticketing-backend/internal/entity"
)

// EventCache is a read-through cache for event documents. Entries are
// invalidated whenever the event mutates, including the remaining-ticket
// decrement that accompanies an order.
type EventCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewEventCache(client *redis.Client, ttl time.Duration) *EventCache {
	return &EventCache{
		client: client,
		ttl:    ttl,
	}
}

func eventKey(id int64) string {
	return "event:" + strconv.FormatInt(id, 10)
}

func (c *EventCache) SetEvent(ctx context.Context, event *entity.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, eventKey(event.ID), data, c.ttl).Err()
}

func (c *EventCache) GetEvent(ctx context.Context, id int64) (*entity.Event, error) {
	data, err := c.client.Get(ctx, eventKey(id)).Result()
	if err != nil {
		return nil, err
	}

	var event entity.Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, err
	}

	return &event, nil
}

func (c *EventCache) DeleteEvent(ctx context.Context, id int64) error {
	return c.client.Del(ctx, eventKey(id)).Err()
}
