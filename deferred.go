package pubsubrx

// Deferred is a cold publisher: it builds a fresh inner publisher for every
// subscriber, at subscribe time.
type Deferred[T any] struct {
	factory func() Publisher[T]
}

// NewDeferred returns a publisher that calls factory once per Subscribe.
// Constructing it never calls factory.
func NewDeferred[T any](factory func() Publisher[T]) *Deferred[T] {
	return &Deferred[T]{factory: factory}
}

// Subscribe builds a new inner publisher and subscribes to it.
func (d *Deferred[T]) Subscribe(onValue func(T), onCompletion func(Completion)) Subscription {
	return d.factory().Subscribe(onValue, onCompletion)
}
