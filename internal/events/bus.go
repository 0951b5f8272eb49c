package events

import "sync"

// Listener receives events from a Bus
type Listener interface {
	OnEvent(ev Event)
}

// ListenerFunc is a function adapter for Listener
type ListenerFunc func(ev Event)

func (f ListenerFunc) OnEvent(ev Event) {
	f(ev)
}

// Bus fans events out to any number of listeners. Listeners are called
// synchronously on the publishing goroutine, in subscription order.
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners []subscription
}

type subscription struct {
	id       uint64
	listener Listener
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers l and returns a function that removes it
func (b *Bus) Subscribe(l Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, subscription{id: id, listener: l})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.listeners {
		if s.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Publish delivers each event to every listener registered at call time.
// Listeners may subscribe, unsubscribe or publish from inside OnEvent.
func (b *Bus) Publish(evs ...Event) {
	if len(evs) == 0 {
		return
	}

	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	for i, s := range b.listeners {
		listeners[i] = s.listener
	}
	b.mu.RUnlock()

	for _, ev := range evs {
		for _, l := range listeners {
			l.OnEvent(ev)
		}
	}
}

// Len returns the number of registered listeners
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
