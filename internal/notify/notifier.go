package notify

import (
	"sort"
	"sync"
)

// Handler receives published events.
type Handler func(Event)

// Notifier is a synchronous publish/subscribe hub. Handlers run on the
// publisher's goroutine in subscription order. The zero value is ready to use.
type Notifier struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]subscription
}

type subscription struct {
	kinds map[Kind]struct{}
	fn    Handler
}

// New returns an empty Notifier.
func New() *Notifier { return &Notifier{} }

// Subscribe registers fn for the given kinds, or for every event when no kinds
// are supplied. The returned func removes the subscription; calling it more
// than once is harmless.
func (n *Notifier) Subscribe(fn Handler, kinds ...Kind) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	sub := subscription{fn: fn}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}
	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[uint64]subscription)
	}
	n.next++
	id := n.next
	n.subs[id] = sub
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// On subscribes a handler typed to a single event type.
func On[E Event](n *Notifier, fn func(E)) (unsubscribe func()) {
	var zero E
	return n.Subscribe(func(e Event) {
		if typed, ok := e.(E); ok {
			fn(typed)
		}
	}, zero.Kind())
}

// Publish delivers e to every matching subscriber. With no subscribers it does
// nothing.
func (n *Notifier) Publish(e Event) {
	if e == nil {
		return
	}
	for _, fn := range n.matching(e.Kind()) {
		fn(e)
	}
}

// Subscribers reports the number of active subscriptions.
func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

func (n *Notifier) matching(kind Kind) []Handler {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if len(n.subs) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(n.subs))
	for id, sub := range n.subs {
		if sub.kinds != nil {
			if _, ok := sub.kinds[kind]; !ok {
				continue
			}
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Handler, len(ids))
	for i, id := range ids {
		out[i] = n.subs[id].fn
	}
	return out
}
