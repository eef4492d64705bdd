package pubsubrx

// Just publishes a single value and then finishes.
// Delivery happens synchronously inside Subscribe.
func Just[T any](v T) Publisher[T] {
	return PublisherFunc[T](func(onValue func(T), onCompletion func(Completion)) Subscription {
		s := newSink(onValue, onCompletion)
		s.value(v)
		s.complete(Finished)
		return s
	})
}

// Fail publishes no values and terminates with err.
func Fail[T any](err error) Publisher[T] {
	return PublisherFunc[T](func(onValue func(T), onCompletion func(Completion)) Subscription {
		s := newSink(onValue, onCompletion)
		s.complete(Failed(err))
		return s
	})
}

// Empty publishes no values and finishes immediately.
func Empty[T any]() Publisher[T] {
	return PublisherFunc[T](func(onValue func(T), onCompletion func(Completion)) Subscription {
		s := newSink(onValue, onCompletion)
		s.complete(Finished)
		return s
	})
}
