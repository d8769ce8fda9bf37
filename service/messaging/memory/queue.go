// Package memory implements the messaging queue on a buffered channel with
// retry and dead-letter semantics. It backs crew task dispatch and approval
// event fan-out in single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/orchestra/internal/idgen"
	"github.com/viant/orchestra/service/messaging"
)

// Config controls retry and buffering behavior.
type Config struct {
	MaxRetries  int
	RetryDelay  time.Duration
	DeadLetter  bool
	QueueBuffer int
}

// DefaultConfig returns the settings used when callers have no opinion:
// three retries 100ms apart, dead-lettering on, a 100-message buffer.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 100,
	}
}

// Message is a single in-flight delivery. Each delivery is settled exactly
// once, by Ack or Nack.
type Message[T any] struct {
	id        string
	payload   T
	queue     *Queue[T]
	attempts  int
	mu        sync.Mutex
	settled   bool
	createdAt time.Time
}

// T returns the payload.
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack settles the delivery as processed.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return fmt.Errorf("message already processed")
	}
	m.settled = true
	return nil
}

// Nack settles the delivery as failed: the payload is redelivered after
// RetryDelay until MaxRetries is exhausted, then parked in the dead-letter
// queue when one is configured.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return fmt.Errorf("message already processed")
	}
	m.settled = true
	m.attempts++

	if m.attempts <= m.queue.config.MaxRetries {
		go m.queue.redeliver(m)
	} else if m.queue.config.DeadLetter {
		m.queue.deadMu.Lock()
		m.queue.dead = append(m.queue.dead, m)
		m.queue.deadMu.Unlock()
	}
	return nil
}

// Queue is a channel-backed messaging.Queue.
type Queue[T any] struct {
	inbox  chan *Message[T]
	dead   []*Message[T]
	config Config
	mu     sync.Mutex
	deadMu sync.Mutex
}

var _ messaging.Queue[any] = (*Queue[any])(nil)

// NewQueue creates a queue; a non-positive buffer falls back to the default.
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		inbox:  make(chan *Message[T], config.QueueBuffer),
		config: config,
	}
}

// Publish enqueues a payload, blocking while the buffer is full.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	msg := &Message[T]{
		id:        idgen.New(),
		payload:   *t,
		queue:     q,
		createdAt: time.Now(),
	}
	select {
	case q.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume blocks until a delivery is available or the context ends.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.inbox:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size reports buffered, not-yet-consumed deliveries.
func (q *Queue[T]) Size() int {
	return len(q.inbox)
}

// DLQSize reports dead-lettered deliveries.
func (q *Queue[T]) DLQSize() int {
	q.deadMu.Lock()
	defer q.deadMu.Unlock()
	return len(q.dead)
}

func (q *Queue[T]) redeliver(m *Message[T]) {
	time.Sleep(q.config.RetryDelay)
	retry := &Message[T]{
		id:        m.id,
		payload:   m.payload,
		queue:     q,
		attempts:  m.attempts,
		createdAt: time.Now(),
	}
	q.mu.Lock()
	q.inbox <- retry
	q.mu.Unlock()
}
