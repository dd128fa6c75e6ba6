package client

import "sync"

// SignalSource is a WakeSource driven by explicit Notify calls. Embedding
// UIs forward whatever counts as "the user is back" for them (window focus,
// tab visibility, device resume) into Notify.
type SignalSource struct {
	mu   sync.Mutex
	next int
	subs map[int]func()
}

func NewSignalSource() *SignalSource {
	return &SignalSource{subs: make(map[int]func())}
}

func (s *SignalSource) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Notify invokes every subscribed callback synchronously.
func (s *SignalSource) Notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
