package event_bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type Topic string

// Message is what subscribers receive. Payload holds one of the types in messages.go.
type Message struct {
	ctx         context.Context
	Topic       Topic
	PublishedAt time.Time
	Payload     any
}

func NewMessage(ctx context.Context, topic Topic, payload any) Message {
	return Message{ctx: ctx, Topic: topic, PublishedAt: time.Now(), Payload: payload}
}

// Context is the publisher's context, or context.Background when none was given.
func (m Message) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

// TypedMessage carries a payload already asserted to T.
type TypedMessage[T any] struct {
	Message
	Data T
}

type subscriber struct {
	id uint64
	fn func(Message) error
}

// EventBus dispatches messages synchronously, in subscription order, on the publisher's goroutine.
type EventBus struct {
	mu     sync.RWMutex
	topics map[Topic][]subscriber
	lastId uint64
}

func NewEventBus() *EventBus {
	return &EventBus{topics: make(map[Topic][]subscriber)}
}

func (b *EventBus) Subscribe(topic Topic, fn func(Message) error) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastId++
	id := b.lastId
	b.topics[topic] = append(b.topics[topic], subscriber{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.topics[topic]
		for i, s := range subs {
			if s.id == id {
				b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(b.topics[topic]) == 0 {
			delete(b.topics, topic)
		}
	}
}

// SubscribeTyped subscribes fn to messages on topic whose payload is a T.
// Messages with any other payload are skipped.
func SubscribeTyped[T any](b *EventBus, topic Topic, fn func(TypedMessage[T]) error) (unsubscribe func()) {
	return b.Subscribe(topic, func(m Message) error {
		data, ok := m.Payload.(T)
		if !ok {
			log.Debugf("event bus: skipping %s payload %T, want %T", topic, m.Payload, *new(T))
			return nil
		}
		return fn(TypedMessage[T]{Message: m, Data: data})
	})
}

// Publish runs every subscriber of m.Topic and joins their errors. A panicking
// subscriber is reported as an error. Dispatch stops once the context is done.
func (b *EventBus) Publish(m Message) error {
	ctx := m.Context()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish %s: %w", m.Topic, err)
	}

	b.mu.RLock()
	subs := make([]subscriber, len(b.topics[m.Topic]))
	copy(subs, b.topics[m.Topic])
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", m.Topic, err))
			break
		}
		if err := deliver(s, m); err != nil {
			log.Errorf("event bus: subscriber %d failed on %s: %v", s.id, m.Topic, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func deliver(s subscriber, m Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber %d panicked on %s: %v", s.id, m.Topic, r)
		}
	}()
	return s.fn(m)
}
