// Package events provides a minimal typed signal/slot abstraction for
// lifecycle notifications. Listeners are invoked synchronously, in
// registration order, on the emitting goroutine.
package events

import "sync"

// Handle identifies a connected listener so it can be disconnected later.
type Handle int

// Signal is a typed event source. The zero value is ready to use.
type Signal[T any] struct {
	mu        sync.Mutex
	next      Handle
	order     []Handle
	listeners map[Handle]func(T)
}

// Connect registers fn and returns a handle for later disconnection.
func (s *Signal[T]) Connect(fn func(T)) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[Handle]func(T))
	}
	h := s.next
	s.next++
	s.listeners[h] = fn
	s.order = append(s.order, h)
	return h
}

// Disconnect removes the listener registered under h. Unknown handles
// are ignored.
func (s *Signal[T]) Disconnect(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listeners[h]; !ok {
		return
	}
	delete(s.listeners, h)
	for i, o := range s.order {
		if o == h {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Emit calls every connected listener with v, in registration order.
func (s *Signal[T]) Emit(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.order))
	for _, h := range s.order {
		fns = append(fns, s.listeners[h])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
