package pubsubrx

import (
	"sync"
	"sync/atomic"
	"time"
)

// Message is a value delivered to a channel subscriber, labelled with the
// topic it came from.
type Message[T any] struct {
	Topic string
	Data  T
}

// Subscriber receives a publisher's values on a Go channel.
//
// Values are buffered internally and forwarded to Ch by a delivery
// goroutine. When the buffer is full the configured TopicConfig decides
// whether to drop the value or wait for space. Ch is closed when the
// publisher completes (after buffered values are flushed) or on Unsubscribe.
type Subscriber[T any] struct {
	ID    string
	Topic string
	Ch    <-chan Message[T]

	out          chan Message[T]
	internalCh   chan Message[T]
	close        chan struct{}
	finished     chan struct{}
	shutdownOnce sync.Once // For closing close once
	finishOnce   sync.Once // For closing finished once
	deliveryWg   sync.WaitGroup

	config   func() TopicConfig
	upstream Subscription

	errMu sync.Mutex
	err   error

	unsubscribeFunc func()      // Called after cleanup, e.g. to leave a hub
	unsubscribed    atomic.Bool // To ensure Unsubscribe() logic runs once
}

// NewSubscriber subscribes to pub and returns a channel-backed Subscriber
// with the given buffer size and delivery config.
func NewSubscriber[T any](pub Publisher[T], topic, subscriberID string, bufferSize int, config TopicConfig) *Subscriber[T] {
	return newSubscriber(pub, topic, subscriberID, bufferSize, func() TopicConfig { return config }, nil)
}

func newSubscriber[T any](pub Publisher[T], topic, subscriberID string, bufferSize int, config func() TopicConfig, unsubscribeFunc func()) *Subscriber[T] {
	if bufferSize < 0 {
		bufferSize = 0
	}
	out := make(chan Message[T])
	s := &Subscriber[T]{
		ID:              subscriberID,
		Topic:           topic,
		Ch:              out,
		out:             out,
		internalCh:      make(chan Message[T], bufferSize),
		close:           make(chan struct{}),
		finished:        make(chan struct{}),
		config:          config,
		unsubscribeFunc: unsubscribeFunc,
	}

	s.deliveryWg.Add(1)
	go s.deliverMessages()

	s.upstream = pub.Subscribe(s.accept, s.finish)
	logDebug("Subscriber '%s' subscribed to topic '%s' with buffer size %d.", subscriberID, topic, bufferSize)
	return s
}

// accept places a value in the internal buffer according to the config.
func (s *Subscriber[T]) accept(v T) {
	m := Message[T]{Topic: s.Topic, Data: v}

	select {
	case <-s.close:
		logDebug("Warning: Not sending to subscriber '%s' (topic '%s') as it's closing.", s.ID, s.Topic)
		return
	default:
	}

	tc := s.config()
	if tc.AllowDropping {
		select {
		case s.internalCh <- m:
			logDebug("Message delivered (non-blocking) to internal channel for subscriber '%s'.", s.ID)
		default:
			logDebug("Warning: Dropping message for subscriber '%s' (channel full, dropping allowed).", s.ID)
		}
		return
	}

	var timeoutCh <-chan time.Time
	if tc.PublishTimeout > 0 {
		timer := time.NewTimer(tc.PublishTimeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case <-s.close:
		logDebug("Block: Subscriber '%s' closed. Not sending.", s.ID)
	case <-timeoutCh:
		logDebug("Block: Timeout (%s) for subscriber '%s' on topic '%s'. Message not delivered.", tc.PublishTimeout, s.ID, s.Topic)
	case s.internalCh <- m:
		logDebug("Message delivered (blocking) to internal channel for subscriber '%s'.", s.ID)
	}
}

// finish records the upstream completion and lets the delivery goroutine
// flush and close Ch.
func (s *Subscriber[T]) finish(c Completion) {
	s.errMu.Lock()
	s.err = c.Err
	s.errMu.Unlock()
	s.finishOnce.Do(func() {
		close(s.finished)
	})
	logDebug("Subscriber '%s' (topic '%s') upstream completed: %s.", s.ID, s.Topic, c)
}

// Err returns the failure the upstream publisher completed with, if any.
func (s *Subscriber[T]) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// deliverMessages is a goroutine run for each subscriber.
func (s *Subscriber[T]) deliverMessages() {
	defer s.deliveryWg.Done()
	defer func() {
		close(s.out)
		logDebug("Subscriber %s (topic '%s') public channel Ch closed.", s.ID, s.Topic)
	}()

	for {
		select {
		case m := <-s.internalCh:
			if !s.forward(m) {
				return
			}
		case <-s.finished:
			s.flush()
			return
		case <-s.close:
			logDebug("Subscriber %s (topic '%s') delivery: close signal received. Exiting.", s.ID, s.Topic)
			return
		}
	}
}

func (s *Subscriber[T]) forward(m Message[T]) bool {
	select {
	case s.out <- m:
		return true
	case <-s.close:
		logDebug("Subscriber %s (topic '%s') delivery: closed while sending. Message dropped: %v", s.ID, s.Topic, m.Data)
		return false
	}
}

// flush forwards whatever is still buffered after upstream completion.
func (s *Subscriber[T]) flush() {
	for {
		select {
		case m := <-s.internalCh:
			if !s.forward(m) {
				return
			}
		default:
			return
		}
	}
}

// Unsubscribe cancels the upstream subscription, drops buffered messages,
// closes Ch and waits for the delivery goroutine to exit.
// It's safe to call multiple times; the actual unsubscription process will only occur once.
func (s *Subscriber[T]) Unsubscribe() {
	if !s.unsubscribed.CompareAndSwap(false, true) {
		logDebug("Subscriber %s (topic '%s'): Unsubscribe called but already in process or completed.", s.ID, s.Topic)
		return
	}

	s.upstream.Cancel()
	s.shutdownOnce.Do(func() {
		close(s.close)
	})

	// Drain the public channel so deliverMessages can't block on it.
	go func() {
		for range s.out {
		}
	}()
	s.deliveryWg.Wait()

	if s.unsubscribeFunc != nil {
		s.unsubscribeFunc()
	}
	logDebug("Subscriber '%s' (topic '%s') cleanup complete.", s.ID, s.Topic)
}

// ReadMessages calls handler for every message until Ch is closed.
func (s *Subscriber[T]) ReadMessages(handler func(Message[T])) {
	logDebug("Subscriber %s (topic '%s') consumer ReadMessages started.", s.ID, s.Topic)
	for msg := range s.Ch {
		handler(msg)
	}
	logDebug("Subscriber %s (topic '%s') consumer ReadMessages exiting (Ch closed).", s.ID, s.Topic)
}
