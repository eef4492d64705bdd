package pubsubrx

import (
	"context"
	"sync"
)

// Await subscribes to pub and blocks until it terminates, returning every
// value received and the failure, if any. If ctx ends first the subscription
// is cancelled and the values received so far are returned with ctx.Err().
func Await[T any](ctx context.Context, pub Publisher[T]) ([]T, error) {
	var (
		mu     sync.Mutex
		values []T
	)
	done := make(chan Completion, 1)

	sub := pub.Subscribe(
		func(v T) {
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		},
		func(c Completion) {
			done <- c
		},
	)

	select {
	case c := <-done:
		mu.Lock()
		defer mu.Unlock()
		return values, c.Err
	case <-ctx.Done():
		sub.Cancel()
		mu.Lock()
		defer mu.Unlock()
		return append([]T(nil), values...), ctx.Err()
	}
}

// First blocks until pub produces its first value and then cancels the
// subscription. It returns the failure if pub fails first, ErrNoValue if pub
// finishes without a value, or ctx.Err() if ctx ends first.
func First[T any](ctx context.Context, pub Publisher[T]) (T, error) {
	type result struct {
		value T
		err   error
	}
	var once sync.Once
	got := make(chan result, 1)

	sub := pub.Subscribe(
		func(v T) {
			once.Do(func() { got <- result{value: v} })
		},
		func(c Completion) {
			err := c.Err
			if err == nil {
				err = ErrNoValue
			}
			once.Do(func() { got <- result{err: err} })
		},
	)
	defer sub.Cancel()

	select {
	case r := <-got:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
