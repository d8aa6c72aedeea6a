// Package memory keeps the most recent catalog events in memory when no broker is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// DefaultCapacity is the number of events retained when no capacity is given.
const DefaultCapacity = 256

// Publisher logs each payload and retains the newest ones in a fixed-size ring.
type Publisher struct {
	mu       sync.RWMutex
	ring     []PublishedMessage
	next     int
	total    int
	logger   *zap.Logger
	capacity int
}

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	Topic   string
	Payload any
}

// Option customises a Publisher.
type Option func(*Publisher)

// WithCapacity bounds how many events are retained. Values below one keep a single event.
func WithCapacity(n int) Option {
	return func(p *Publisher) {
		if n < 1 {
			n = 1
		}
		p.capacity = n
	}
}

// WithLogger logs every publish at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a memory Publisher.
func New(opts ...Option) *Publisher {
	p := &Publisher{logger: zap.NewNop(), capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(p)
	}
	p.ring = make([]PublishedMessage, 0, p.capacity)
	return p
}

// Publish records the message, evicting the oldest once full, and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	msg := PublishedMessage{Topic: topic, Payload: payload}
	if len(p.ring) < p.capacity {
		p.ring = append(p.ring, msg)
	} else {
		p.ring[p.next] = msg
	}
	p.next = (p.next + 1) % p.capacity
	p.total++
	id := fmt.Sprintf("memory-%d", p.total)
	p.mu.Unlock()

	p.logger.Debug("catalog event", zap.String("topic", topic), zap.String("id", id), zap.Any("payload", payload))
	return id, nil
}

// Messages returns the retained publishes, oldest first.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, 0, len(p.ring))
	if len(p.ring) < p.capacity {
		return append(out, p.ring...)
	}
	out = append(out, p.ring[p.next:]...)
	return append(out, p.ring[:p.next]...)
}
