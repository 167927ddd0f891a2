package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/hitl/internal/clock"
	"github.com/viant/hitl/internal/idgen"
	"github.com/viant/hitl/service/messaging"
)

var errProcessed = errors.New("message already processed")

// Config for memory queue implementation
type Config struct {
	MaxRetries  int
	RetryDelay  time.Duration
	DeadLetter  bool
	QueueBuffer int
	// Blocking makes Publish wait for buffer space instead of failing with
	// messaging.ErrQueueFull.
	Blocking bool
	// DropOldest makes a non-blocking Publish evict the oldest message when
	// the buffer is full; see Queue.Dropped.
	DropOldest bool
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 100,
	}
}

// Message implements messaging.Message for the in-memory queue
type Message[T any] struct {
	id         string
	payload    T
	queue      *Queue[T]
	retryCount int
	createdAt  time.Time
	mu         sync.Mutex
	processed  bool
}

// ID returns the message id.
func (m *Message[T]) ID() string { return m.id }

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	return m.settle()
}

// Nack requeues the message after RetryDelay until MaxRetries is exceeded,
// then moves it to the dead letter list when enabled.
func (m *Message[T]) Nack(error) error {
	if err := m.settle(); err != nil {
		return err
	}
	q := m.queue
	if m.retryCount >= q.config.MaxRetries {
		if q.config.DeadLetter {
			q.mu.Lock()
			q.dlq = append(q.dlq, m)
			q.mu.Unlock()
		}
		return nil
	}
	retry := &Message[T]{
		id:         m.id,
		payload:    m.payload,
		queue:      q,
		retryCount: m.retryCount + 1,
		createdAt:  clock.Now(),
	}
	time.AfterFunc(q.config.RetryDelay, func() { q.messages <- retry })
	return nil
}

func (m *Message[T]) settle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return errProcessed
	}
	m.processed = true
	return nil
}

// Queue implements an in-memory messaging.Queue
type Queue[T any] struct {
	messages chan *Message[T]
	config   Config
	mu       sync.Mutex
	dlq      []*Message[T]
	dropped  atomic.Int64
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
	}
}

// Publish adds a copy of t to the queue.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &Message[T]{
		id:        idgen.New(),
		payload:   *t,
		queue:     q,
		createdAt: clock.Now(),
	}
	if !q.config.Blocking {
		for {
			select {
			case q.messages <- msg:
				return nil
			default:
			}
			if !q.config.DropOldest {
				return messaging.ErrQueueFull
			}
			select {
			case <-q.messages:
				q.dropped.Add(1)
			default:
			}
		}
	}
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// Dropped returns the number of messages evicted by DropOldest.
func (q *Queue[T]) Dropped() int64 {
	return q.dropped.Load()
}

// DLQSize returns the number of messages in the dead letter queue
func (q *Queue[T]) DLQSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dlq)
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
