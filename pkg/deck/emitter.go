package deck

import (
	"sync"
)

// Emitter fans key events out to subscribed listeners. Drivers embed it to
// implement Device.Subscribe. The zero value is ready to use.
type Emitter struct {
	mu     sync.RWMutex
	subs   map[EventType][]subscriptionEntry
	nextID int
}

// Subscribe registers fn for the provided event type.
func (e *Emitter) Subscribe(event EventType, fn Listener) Subscription {
	if e == nil || fn == nil {
		return noopSubscription{}
	}

	e.mu.Lock()
	if e.subs == nil {
		e.subs = make(map[EventType][]subscriptionEntry)
	}
	e.nextID++
	id := e.nextID
	e.subs[event] = append(e.subs[event], subscriptionEntry{id: id, fn: fn})
	e.mu.Unlock()

	return &subscription{
		cancel: func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			entries := e.subs[event]
			for i, entry := range entries {
				if entry.id == id {
					e.subs[event] = append(entries[:i:i], entries[i+1:]...)
					break
				}
			}
		},
	}
}

// Emit delivers the event to every listener registered at the time of the call.
// Listeners run on the caller's goroutine.
func (e *Emitter) Emit(event EventType, index int) {
	if e == nil {
		return
	}

	e.mu.RLock()
	entries := append([]subscriptionEntry(nil), e.subs[event]...)
	e.mu.RUnlock()

	for _, entry := range entries {
		entry.fn(index)
	}
}

// Listeners returns the number of listeners registered for event.
func (e *Emitter) Listeners(event EventType) int {
	if e == nil {
		return 0
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs[event])
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

type subscriptionEntry struct {
	id int
	fn Listener
}
