package pubsubrx

import (
	"sync"

	"github.com/google/uuid"
)

// Subject is a publisher that external code can push values and a
// completion into. It is the bridge from imperative to reactive code.
type Subject[T any] interface {
	Publisher[T]
	Send(value T)
	SendCompletion(c Completion)
}

// subjectEvent is one queued fan-out. targets is the set of subscribers
// registered when the event was sent, in registration order.
type subjectEvent[T any] struct {
	targets    []*sink[T]
	value      T
	completion *Completion
}

// subject holds the machinery shared by both subject variants.
//
// Fan-out is serialized through queue: whichever goroutine finds the queue
// idle drains it, and anything sent meanwhile (from another goroutine or
// reentrantly from a callback) is delivered after the current fan-out.
// mu is never held while user callbacks run.
type subject[T any] struct {
	mu        sync.Mutex
	subs      map[string]*sink[T] // subscriber id -> sink
	order     []string            // registration order of subs
	completed *Completion
	queue     []subjectEvent[T]
	draining  bool

	stateful bool
	current  T
}

func newSubject[T any]() *subject[T] {
	return &subject[T]{subs: make(map[string]*sink[T])}
}

func (sj *subject[T]) snapshotLocked() []*sink[T] {
	targets := make([]*sink[T], 0, len(sj.order))
	for _, id := range sj.order {
		targets = append(targets, sj.subs[id])
	}
	return targets
}

func (sj *subject[T]) send(v T) {
	sj.mu.Lock()
	if sj.completed != nil {
		sj.mu.Unlock()
		logDebug("Subject %p: value sent after completion dropped.", sj)
		return
	}
	if sj.stateful {
		sj.current = v
	}
	if len(sj.order) > 0 {
		sj.queue = append(sj.queue, subjectEvent[T]{targets: sj.snapshotLocked(), value: v})
	}
	sj.mu.Unlock()

	sj.drain()
}

func (sj *subject[T]) sendCompletion(c Completion) {
	sj.mu.Lock()
	if sj.completed != nil {
		sj.mu.Unlock()
		logDebug("Subject %p: completion sent after completion dropped.", sj)
		return
	}
	sj.completed = &c
	targets := sj.snapshotLocked()
	sj.subs = make(map[string]*sink[T])
	sj.order = nil
	if len(targets) > 0 {
		sj.queue = append(sj.queue, subjectEvent[T]{targets: targets, completion: &c})
	}
	sj.mu.Unlock()

	logDebug("Subject %p completed with %s, notifying %d subscribers.", sj, c, len(targets))
	sj.drain()
}

func (sj *subject[T]) subscribe(onValue func(T), onCompletion func(Completion)) Subscription {
	s := newSink(onValue, onCompletion)
	if sj.stateful {
		// Held until the replay is delivered, so no fan-out reaches s first.
		// s is not yet visible to anyone else, so this never blocks.
		s.deliverMu.Lock()
	}

	sj.mu.Lock()
	if sj.completed != nil {
		c := *sj.completed
		sj.mu.Unlock()
		if sj.stateful {
			s.deliverMu.Unlock()
		}
		s.complete(c)
		return s
	}

	id := uuid.NewString()
	sj.subs[id] = s
	sj.order = append(sj.order, id)
	if !sj.stateful {
		sj.mu.Unlock()
		logDebug("Subject %p: subscriber '%s' registered.", sj, id)
		s.onCancel(func() { sj.remove(id) })
		return s
	}
	current := sj.current
	// Sends made by the replay callback are queued; whoever claims the
	// drain role here delivers them after the replay.
	claimed := !sj.draining
	sj.draining = true
	sj.mu.Unlock()

	logDebug("Subject %p: subscriber '%s' registered, replaying current value.", sj, id)
	s.onCancel(func() { sj.remove(id) })
	sj.replay(s, current, claimed)
	if claimed {
		sj.run()
	}
	return s
}

// replay delivers the held value to a new subscriber. s.deliverMu is held on
// entry and released on return.
func (sj *subject[T]) replay(s *sink[T], v T, claimed bool) {
	defer s.deliverMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			if claimed {
				sj.abandon()
			}
			panic(r)
		}
	}()
	s.valueLocked(v)
}

func (sj *subject[T]) remove(id string) {
	sj.mu.Lock()
	defer sj.mu.Unlock()

	if _, ok := sj.subs[id]; !ok {
		return
	}
	delete(sj.subs, id)
	for i, o := range sj.order {
		if o == id {
			sj.order = append(sj.order[:i], sj.order[i+1:]...)
			break
		}
	}
	logDebug("Subject %p: subscriber '%s' removed.", sj, id)
}

func (sj *subject[T]) subscriberCount() int {
	sj.mu.Lock()
	defer sj.mu.Unlock()
	return len(sj.order)
}

// drain delivers queued events until the queue is empty, unless another
// call is already draining.
func (sj *subject[T]) drain() {
	sj.mu.Lock()
	if sj.draining {
		sj.mu.Unlock()
		return
	}
	sj.draining = true
	sj.mu.Unlock()

	sj.run()
}

// run delivers queued events until the queue is empty. The caller holds the
// drain role; next releases it.
func (sj *subject[T]) run() {
	for {
		ev, ok := sj.next()
		if !ok {
			return
		}
		sj.deliver(ev)
	}
}

func (sj *subject[T]) next() (subjectEvent[T], bool) {
	sj.mu.Lock()
	defer sj.mu.Unlock()

	if len(sj.queue) == 0 {
		sj.draining = false
		return subjectEvent[T]{}, false
	}
	ev := sj.queue[0]
	sj.queue[0] = subjectEvent[T]{}
	sj.queue = sj.queue[1:]
	return ev, true
}

// abandon gives up the drain role after a callback panicked. Events still
// queued are handed to a new goroutine so they are not stranded until the
// next Send.
func (sj *subject[T]) abandon() {
	sj.mu.Lock()
	sj.draining = false
	pending := len(sj.queue)
	sj.mu.Unlock()

	if pending > 0 {
		logDebug("Subject %p: callback panicked, %d queued events continue on a new goroutine.", sj, pending)
		go sj.drain()
	}
}

func (sj *subject[T]) deliver(ev subjectEvent[T]) {
	defer func() {
		if r := recover(); r != nil {
			sj.abandon()
			panic(r)
		}
	}()

	for _, s := range ev.targets {
		if ev.completion != nil {
			s.complete(*ev.completion)
		} else {
			s.value(ev.value)
		}
	}
}

// PassthroughSubject broadcasts values to its current subscribers.
// Subscribers never see values sent before they subscribed.
type PassthroughSubject[T any] struct {
	core *subject[T]
}

// NewPassthroughSubject creates a broadcast-only subject.
func NewPassthroughSubject[T any]() *PassthroughSubject[T] {
	return &PassthroughSubject[T]{core: newSubject[T]()}
}

// Send delivers value to every current subscriber. No-op after completion.
func (p *PassthroughSubject[T]) Send(value T) {
	p.core.send(value)
}

// SendCompletion terminates the subject. Only the first call has any effect.
func (p *PassthroughSubject[T]) SendCompletion(c Completion) {
	p.core.sendCompletion(c)
}

// Subscribe registers a subscriber for future values. Subscribing after
// completion delivers only the completion.
func (p *PassthroughSubject[T]) Subscribe(onValue func(T), onCompletion func(Completion)) Subscription {
	return p.core.subscribe(onValue, onCompletion)
}

// SubscriberCount returns the number of active subscribers.
func (p *PassthroughSubject[T]) SubscriberCount() int {
	return p.core.subscriberCount()
}

// CurrentValueSubject holds a value and replays it to new subscribers.
type CurrentValueSubject[T any] struct {
	core *subject[T]
}

// NewCurrentValueSubject creates a stateful subject holding initial.
func NewCurrentValueSubject[T any](initial T) *CurrentValueSubject[T] {
	core := newSubject[T]()
	core.stateful = true
	core.current = initial
	return &CurrentValueSubject[T]{core: core}
}

// Value returns the held value.
func (c *CurrentValueSubject[T]) Value() T {
	c.core.mu.Lock()
	defer c.core.mu.Unlock()
	return c.core.current
}

// Send stores value and then delivers it to every current subscriber.
// No-op after completion.
func (c *CurrentValueSubject[T]) Send(value T) {
	c.core.send(value)
}

// SendCompletion terminates the subject. Only the first call has any effect.
func (c *CurrentValueSubject[T]) SendCompletion(comp Completion) {
	c.core.sendCompletion(comp)
}

// Subscribe registers a subscriber whose first notification is the held
// value, delivered before Subscribe returns. Subscribing after completion
// delivers only the completion.
func (c *CurrentValueSubject[T]) Subscribe(onValue func(T), onCompletion func(Completion)) Subscription {
	return c.core.subscribe(onValue, onCompletion)
}

// SubscriberCount returns the number of active subscribers.
func (c *CurrentValueSubject[T]) SubscriberCount() int {
	return c.core.subscriberCount()
}
