// Package events is a synchronous in-process implementation of host.EventBus.
package events

import (
	"sync"

	"github.com/sstutools/fairing/pkg/core"
	"github.com/sstutools/fairing/pkg/host"
)

// Bus delivers published payloads to subscribers of a topic in subscription
// order, on the publishing goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[core.Topic][]subscriber
}

type subscriber struct {
	id uint64
	h  host.Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[core.Topic][]subscriber)}
}

// Subscribe registers h for topic.
func (b *Bus) Subscribe(topic core.Topic, h host.Handler) host.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs[topic] = append(b.subs[topic], subscriber{id: b.nextID, h: h})
	return &subscription{bus: b, topic: topic, id: b.nextID}
}

// Publish calls every handler subscribed to topic. Handlers may subscribe,
// unsubscribe or publish re-entrantly.
func (b *Bus) Publish(topic core.Topic, payload any) {
	b.mu.RLock()
	subs := append([]subscriber(nil), b.subs[topic]...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.h(payload)
	}
}

// Count returns the number of subscribers for topic.
func (b *Bus) Count(topic core.Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *Bus) remove(topic core.Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

type subscription struct {
	bus   *Bus
	topic core.Topic
	id    uint64
	once  sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.bus.remove(s.topic, s.id) })
}
