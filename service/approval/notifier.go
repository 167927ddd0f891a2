package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/viant/hitl/service/messaging"
)

// Notifier delivers approval events to interested parties.
type Notifier interface {
	Notify(ctx context.Context, event *Event) error
}

// Notifiers fans an event out to every notifier.
type Notifiers []Notifier

// Notify delivers to all notifiers and joins their errors.
func (n Notifiers) Notify(ctx context.Context, event *Event) error {
	var errs []error
	for _, notifier := range n {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// QueueNotifier publishes events on a messaging queue.
type QueueNotifier struct {
	Queue messaging.Queue[Event]
}

// Notify publishes event on the queue.
func (n *QueueNotifier) Notify(ctx context.Context, event *Event) error {
	return n.Queue.Publish(ctx, event)
}

// DefaultRedisChannel is the pub/sub channel used by RedisNotifier.
const DefaultRedisChannel = "hitl:approval:events"

// RedisNotifier publishes JSON encoded events on a Redis pub/sub channel so
// that reviewers in other processes learn about new interrupts.
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisNotifier creates a notifier; an empty channel means
// DefaultRedisChannel.
func NewRedisNotifier(client redis.UniversalClient, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

// Notify publishes event on the channel.
func (n *RedisNotifier) Notify(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Topic, err)
	}
	if err = n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Topic, err)
	}
	return nil
}

// Subscribe streams decoded events from the channel until ctx is done.
// Undecodable messages are reported on the error channel.
func (n *RedisNotifier) Subscribe(ctx context.Context) (<-chan *Event, <-chan error) {
	events := make(chan *Event)
	errs := make(chan error, 1)
	pubsub := n.client.Subscribe(ctx, n.channel)
	go func() {
		defer close(events)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				event, err := DecodeEvent([]byte(msg.Payload))
				if err != nil {
					select {
					case errs <- err:
					default:
					}
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, errs
}
