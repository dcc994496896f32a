package game

// Signal is a typed publish/subscribe primitive. Handlers run synchronously
// on the emitting goroutine, in subscription order.
//
// Signals are not internally synchronized: all emits and (un)subscribes for
// one game funnel through the owning room's lock.
type Signal[T any] struct {
	subs []*Subscription[T]
}

// Subscription identifies one registered handler so it can be removed
// without affecting other handlers for the same signal.
type Subscription[T any] struct {
	fn func(T)
}

// Subscribe registers a handler and returns its removal handle.
func (s *Signal[T]) Subscribe(fn func(T)) *Subscription[T] {
	sub := &Subscription[T]{fn: fn}
	s.subs = append(s.subs, sub)
	return sub
}

// Unsubscribe removes a previously registered handler by identity.
func (s *Signal[T]) Unsubscribe(sub *Subscription[T]) {
	for i, c := range s.subs {
		if c == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// Emit invokes every handler with v. Handlers subscribed during an emit are
// not invoked until the next one.
func (s *Signal[T]) Emit(v T) {
	if len(s.subs) == 0 {
		return
	}
	subs := make([]*Subscription[T], len(s.subs))
	copy(subs, s.subs)
	for _, sub := range subs {
		sub.fn(v)
	}
}
