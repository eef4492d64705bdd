package pubsubrx

import (
	"fmt"
	"sync/atomic"
)

// Global package-level flag for debug logging
var debugEnabled atomic.Bool

// SetDebug enables or disables debug logging for the pubsubrx package.
func SetDebug(enable bool) {
	debugEnabled.Store(enable)
}

// logDebug prints a debug message if debug logging is enabled.
func logDebug(format string, a ...interface{}) {
	if debugEnabled.Load() {
		fmt.Printf("[PUBSUBRX DEBUG] "+format+"\n", a...)
	}
}

// Completion is the terminal signal of a stream.
// A nil Err means the stream finished normally; otherwise it failed with Err.
type Completion struct {
	Err error
}

// Finished is the successful completion.
var Finished = Completion{}

// Failed returns a failure completion carrying err.
// A nil err yields Finished.
func Failed(err error) Completion {
	return Completion{Err: err}
}

// IsFinished reports whether c is a successful completion.
func (c Completion) IsFinished() bool {
	return c.Err == nil
}

func (c Completion) String() string {
	if c.Err == nil {
		return "finished"
	}
	return fmt.Sprintf("failure(%v)", c.Err)
}

// Subscription is a live, cancellable attachment of a consumer to a publisher.
// Cancel is idempotent and safe to call from any goroutine, including from
// inside the subscription's own callbacks.
type Subscription interface {
	Cancel()
}

// Publisher describes a sequence of values over time.
//
// Subscribe attaches onValue and onCompletion and returns the Subscription
// controlling that attachment. Either callback may be nil. Whether Subscribe
// runs work synchronously depends on the publisher: Just, Fail and Empty
// deliver before Subscribe returns, Future works at construction time and
// Deferred works inside Subscribe.
type Publisher[T any] interface {
	Subscribe(onValue func(T), onCompletion func(Completion)) Subscription
}

// PublisherFunc adapts a plain function to the Publisher interface.
type PublisherFunc[T any] func(onValue func(T), onCompletion func(Completion)) Subscription

// Subscribe calls f(onValue, onCompletion).
func (f PublisherFunc[T]) Subscribe(onValue func(T), onCompletion func(Completion)) Subscription {
	return f(onValue, onCompletion)
}
