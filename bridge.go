package pubsubrx

// CancelToken is returned by callback-style asynchronous operations.
// Cancel requests best-effort cancellation of the operation.
type CancelToken interface {
	Cancel()
}

// CancelFunc adapts a plain function to CancelToken.
type CancelFunc func()

// Cancel calls f.
func (f CancelFunc) Cancel() {
	if f != nil {
		f()
	}
}

// FromCallback adapts an operation of the shape "takes a completion callback,
// returns a cancel token" into a cold, single-shot publisher.
//
// op runs once per Subscribe. Cancelling the subscription before op calls
// back invokes the token's Cancel, and anything op reports afterwards is
// discarded. op may return a nil token.
func FromCallback[T any](op func(complete func(value T, err error)) CancelToken) Publisher[T] {
	return NewDeferred(func() Publisher[T] {
		var token CancelToken
		future := NewFuture(func(promise Promise[T]) {
			token = op(promise)
		})
		return HandleEvents[T](future, Events[T]{
			OnCancel: func() {
				if token != nil {
					logDebug("Bridge: forwarding cancel to operation token.")
					token.Cancel()
				}
			},
		})
	})
}
