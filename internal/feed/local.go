package feed

import (
	"context"
	"sync"
)

// LocalBroker delivers events within one process
type LocalBroker struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: map[string]map[*Subscription]struct{}{}}
}

func (b *LocalBroker) Publish(_ context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[e.Topic] {
		sub.deliver(e)
	}
	return nil
}

func (b *LocalBroker) Subscribe(_ context.Context, topics ...string) (*Subscription, error) {
	var sub *Subscription
	sub = newSubscription(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, t := range topics {
			delete(b.subs[t], sub)
			if len(b.subs[t]) == 0 {
				delete(b.subs, t)
			}
		}
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range topics {
		if b.subs[t] == nil {
			b.subs[t] = map[*Subscription]struct{}{}
		}
		b.subs[t][sub] = struct{}{}
	}
	return sub, nil
}

// Listeners reports how many subscriptions are registered for topic
func (b *LocalBroker) Listeners(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
