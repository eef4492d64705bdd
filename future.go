package pubsubrx

import "sync"

// Promise resolves a Future with either a value or an error.
// Only the first call has any effect.
type Promise[T any] func(value T, err error)

// Future is a single-shot publisher around one asynchronous unit of work.
//
// The work runs eagerly inside NewFuture, whether or not anyone subscribes.
// Wrap construction in NewDeferred to get a publisher that does nothing until
// subscribed. Every subscriber receives either the value followed by
// Finished, or the failure, and nothing else.
type Future[T any] struct {
	mu       sync.Mutex
	resolved bool
	value    T
	err      error
	pending  []*sink[T]
}

// NewFuture runs attempt immediately and returns the Future it resolves.
func NewFuture[T any](attempt func(promise Promise[T])) *Future[T] {
	f := &Future[T]{}
	attempt(f.resolve)
	return f
}

func (f *Future[T]) resolve(value T, err error) {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		logDebug("Future %p: promise called again, ignored.", f)
		return
	}
	f.resolved = true
	f.value = value
	f.err = err
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()

	logDebug("Future %p resolved (err=%v), notifying %d subscribers.", f, err, len(pending))
	for _, s := range pending {
		f.deliver(s)
	}
}

func (f *Future[T]) deliver(s *sink[T]) {
	if f.err != nil {
		s.complete(Failed(f.err))
		return
	}
	if s.value(f.value) {
		s.complete(Finished)
	}
}

// Subscribe delivers the result immediately if the Future has resolved,
// otherwise when it does.
func (f *Future[T]) Subscribe(onValue func(T), onCompletion func(Completion)) Subscription {
	s := newSink(onValue, onCompletion)

	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		f.deliver(s)
		return s
	}
	f.pending = append(f.pending, s)
	f.mu.Unlock()

	s.onCancel(func() { f.remove(s) })
	return s
}

func (f *Future[T]) remove(s *sink[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.pending {
		if p == s {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return
		}
	}
}
