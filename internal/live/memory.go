package live

import (
	"context"
	"sync"
)

// MemoryFeed is a single-process Feed used in tests and in single-node
// deployments where Redis is not configured.
type MemoryFeed struct {
	mu   sync.Mutex
	subs map[*Subscription]memorySub
}

type memorySub struct {
	filter  Filter
	handler Handler
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[*Subscription]memorySub)}
}

func (f *MemoryFeed) Subscribe(_ context.Context, filter Filter, h Handler) (*Subscription, error) {
	var sub *Subscription
	sub = newSubscription(func() {
		f.mu.Lock()
		delete(f.subs, sub)
		f.mu.Unlock()
		sub.finish()
	})
	f.mu.Lock()
	f.subs[sub] = memorySub{filter: filter, handler: h}
	f.mu.Unlock()
	return sub, nil
}

func (f *MemoryFeed) Publish(_ context.Context, ev Event) error {
	f.mu.Lock()
	type delivery struct {
		sub *Subscription
		h   Handler
	}
	var targets []delivery
	for sub, ms := range f.subs {
		if ms.filter.Matches(ev.Message) {
			targets = append(targets, delivery{sub, ms.handler})
		}
	}
	f.mu.Unlock()

	for _, t := range targets {
		t.sub.invoke(t.h, ev)
	}
	return nil
}

// Drop severs every subscription without cancelling it, simulating a lost
// connection so supervisor recovery can be exercised.
func (f *MemoryFeed) Drop() {
	f.mu.Lock()
	subs := make([]*Subscription, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
	}
	f.subs = make(map[*Subscription]memorySub)
	f.mu.Unlock()
	for _, sub := range subs {
		sub.finish()
	}
}
