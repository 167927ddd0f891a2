package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/hitl/service/messaging"
)

type notice struct {
	Topic        string
	CheckpointID string
}

func TestQueue_PublishConsume(t *testing.T) {
	queue := NewQueue[notice](DefaultConfig())
	ctx := context.Background()

	payload := notice{Topic: "interrupt.created", CheckpointID: "cp_1"}
	require.NoError(t, queue.Publish(ctx, &payload))
	payload.CheckpointID = "mutated"
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cp_1", message.T().CheckpointID)
	assert.Equal(t, 0, queue.Size())

	assert.NoError(t, message.Ack())
	assert.Error(t, message.Ack())
	assert.Error(t, message.Nack(nil))
}

func TestQueue_Overflow(t *testing.T) {
	type testCase struct {
		name            string
		blocking        bool
		dropOldest      bool
		expected        error
		expectedNext    string
		expectedDropped int64
	}
	tests := []testCase{
		{name: "non blocking fails fast", expected: messaging.ErrQueueFull, expectedNext: "cp_1"},
		{name: "blocking honours context", blocking: true, expected: context.DeadlineExceeded, expectedNext: "cp_1"},
		{name: "drop oldest keeps newest", dropOldest: true, expectedNext: "cp_2", expectedDropped: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			config.QueueBuffer = 1
			config.Blocking = tc.blocking
			config.DropOldest = tc.dropOldest
			queue := NewQueue[notice](config)
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			require.NoError(t, queue.Publish(ctx, &notice{CheckpointID: "cp_1"}))
			err := queue.Publish(ctx, &notice{CheckpointID: "cp_2"})
			if tc.expected != nil {
				assert.ErrorIs(t, err, tc.expected)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.expectedDropped, queue.Dropped())
			message, err := queue.Consume(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.expectedNext, message.T().CheckpointID)
		})
	}
}

func TestQueue_Retries(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 2
	config.RetryDelay = 5 * time.Millisecond
	queue := NewQueue[notice](config)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, queue.Publish(ctx, &notice{CheckpointID: "cp_retry"}))
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err, "attempt %d", attempt)
		assert.Equal(t, "cp_retry", message.T().CheckpointID)
		require.NoError(t, message.Nack(fmt.Errorf("attempt %d failed", attempt)))
	}
	time.Sleep(4 * config.RetryDelay)
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 1, queue.DLQSize())
}

func TestQueue_Concurrency(t *testing.T) {
	queue := NewQueue[notice](Config{QueueBuffer: 8, Blocking: true})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const producers, perProducer = 10, 10
	consumed := make(chan string, producers*perProducer)
	wg := sync.WaitGroup{}
	for i := 0; i < producers; i++ {
		wg.Add(2)
		go func(producer int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				assert.NoError(t, queue.Publish(ctx, &notice{CheckpointID: fmt.Sprintf("p%d-%d", producer, j)}))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				message, err := queue.Consume(ctx)
				if !assert.NoError(t, err) {
					return
				}
				assert.NoError(t, message.Ack())
				consumed <- message.T().CheckpointID
			}
		}()
	}
	wg.Wait()
	close(consumed)

	seen := map[string]bool{}
	for id := range consumed {
		seen[id] = true
	}
	assert.Len(t, seen, producers*perProducer)
}
