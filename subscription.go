package pubsubrx

import (
	"sync"
	"sync/atomic"
)

const (
	stateActive int32 = iota
	stateCancelled
	stateFinished
)

// sink is the per-subscribe delivery state shared by every publisher in this
// package. It guarantees at most one callback in flight, drops everything
// after cancel or completion, and runs cancel hooks exactly once.
type sink[T any] struct {
	onValue      func(T)
	onCompletion func(Completion)

	deliverMu sync.Mutex // held while a user callback runs
	state     atomic.Int32

	hookMu sync.Mutex
	hooks  []func()
}

func newSink[T any](onValue func(T), onCompletion func(Completion)) *sink[T] {
	return &sink[T]{
		onValue:      onValue,
		onCompletion: onCompletion,
	}
}

// value delivers v unless the sink is no longer active.
func (s *sink[T]) value(v T) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	return s.valueLocked(v)
}

// valueLocked is value for callers that already hold deliverMu.
func (s *sink[T]) valueLocked(v T) bool {
	if s.state.Load() != stateActive {
		return false
	}
	if s.onValue != nil {
		s.onValue(v)
	}
	return true
}

// complete delivers the terminal signal once. Cancel hooks are discarded:
// a finished subscription has nothing left to release.
func (s *sink[T]) complete(c Completion) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	if !s.state.CompareAndSwap(stateActive, stateFinished) {
		return false
	}
	s.takeHooks()
	if s.onCompletion != nil {
		s.onCompletion(c)
	}
	return true
}

// Cancel stops all further deliveries and runs the registered cancel hooks.
// It never waits for an in-flight callback.
func (s *sink[T]) Cancel() {
	if s.state.CompareAndSwap(stateActive, stateCancelled) {
		logDebug("Subscription %p cancelled.", s)
		for _, h := range s.takeHooks() {
			h()
		}
	}
}

func (s *sink[T]) active() bool {
	return s.state.Load() == stateActive
}

// onCancel registers fn to run when the sink is cancelled. If the sink is
// already cancelled fn runs immediately; if it already finished fn never runs.
func (s *sink[T]) onCancel(fn func()) {
	if fn == nil {
		return
	}
	s.hookMu.Lock()
	switch s.state.Load() {
	case stateActive:
		s.hooks = append(s.hooks, fn)
		s.hookMu.Unlock()
	case stateCancelled:
		s.hookMu.Unlock()
		fn()
	default:
		s.hookMu.Unlock()
	}
}

func (s *sink[T]) takeHooks() []func() {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	hooks := s.hooks
	s.hooks = nil
	return hooks
}

// SubscriptionSet keeps subscriptions alive and cancels them together.
// Once cancelled, the set cancels anything added to it afterwards.
type SubscriptionSet struct {
	mu        sync.Mutex
	subs      []Subscription
	cancelled bool
}

// Add stores sub in the set.
func (s *SubscriptionSet) Add(sub Subscription) {
	if sub == nil {
		return
	}
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		sub.Cancel()
		return
	}
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
}

// Len returns the number of stored subscriptions.
func (s *SubscriptionSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Cancel cancels every stored subscription and empties the set.
// Safe to call multiple times.
func (s *SubscriptionSet) Cancel() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.cancelled = true
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}
