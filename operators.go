package pubsubrx

// Map transforms every value of pub with fn. Completions pass through.
func Map[T, R any](pub Publisher[T], fn func(T) R) Publisher[R] {
	return PublisherFunc[R](func(onValue func(R), onCompletion func(Completion)) Subscription {
		return pub.Subscribe(func(v T) {
			r := fn(v)
			if onValue != nil {
				onValue(r)
			}
		}, onCompletion)
	})
}

// Filter forwards only the values of pub for which keep returns true.
func Filter[T any](pub Publisher[T], keep func(T) bool) Publisher[T] {
	return PublisherFunc[T](func(onValue func(T), onCompletion func(Completion)) Subscription {
		return pub.Subscribe(func(v T) {
			if keep(v) && onValue != nil {
				onValue(v)
			}
		}, onCompletion)
	})
}

// Events holds optional side-effect taps for HandleEvents.
type Events[T any] struct {
	OnSubscribe  func()
	OnValue      func(T)
	OnCompletion func(Completion)
	// OnCancel runs when an active subscription is cancelled. It does not run
	// for subscriptions that already completed.
	OnCancel func()
}

// HandleEvents runs the taps in events as the corresponding events pass
// through, without changing them.
func HandleEvents[T any](pub Publisher[T], events Events[T]) Publisher[T] {
	return PublisherFunc[T](func(onValue func(T), onCompletion func(Completion)) Subscription {
		s := newSink(onValue, onCompletion)
		if events.OnSubscribe != nil {
			events.OnSubscribe()
		}

		inner := pub.Subscribe(
			func(v T) {
				if !s.active() {
					return
				}
				if events.OnValue != nil {
					events.OnValue(v)
				}
				s.value(v)
			},
			func(c Completion) {
				if !s.active() {
					return
				}
				if events.OnCompletion != nil {
					events.OnCompletion(c)
				}
				s.complete(c)
			},
		)

		s.onCancel(func() {
			inner.Cancel()
			if events.OnCancel != nil {
				events.OnCancel()
			}
		})
		return s
	})
}
