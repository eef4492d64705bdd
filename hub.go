package pubsubrx

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
)

// hubSubscriber is the type-erased view of a *Subscriber[T] held by a Hub.
type hubSubscriber interface {
	Unsubscribe()
}

// topicSystem is one registered topic: its element type, the subject that
// carries it and the channel subscribers attached through the hub.
type topicSystem struct {
	dataType    reflect.Type
	subject     any                      // *PassthroughSubject[T]
	complete    func()                   // sends Finished to subject
	subscribers map[string]hubSubscriber // subscriberID -> subscriber, nil while being built
}

// Hub is a multi-topic, type-safe registry of passthrough subjects.
// All operations are safe for concurrent use by multiple goroutines.
type Hub struct {
	mu           sync.RWMutex
	topicSystems map[string]*topicSystem // topic -> topicSystem
	topicConfigs map[string]TopicConfig  // topic -> TopicConfig
	closed       bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	h := &Hub{
		topicSystems: make(map[string]*topicSystem),
		topicConfigs: make(map[string]TopicConfig),
	}
	logDebug("New Hub created.")
	return h
}

// GetUniqueSubscriberID generates a unique subscriber ID.
func (h *Hub) GetUniqueSubscriberID() string {
	return "sub-" + uuid.NewString()
}

// CreateTopic explicitly configures a topic. The topic does not need to be
// registered yet; RegisterTopic picks the config up.
func (h *Hub) CreateTopic(topic string, config TopicConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.topicConfigs[topic] = config
	logDebug("Topic '%s' configured: %+v", topic, config)
}

// UpdateTopic changes a topic's config. Existing subscribers use the new
// config from their next message on.
func (h *Hub) UpdateTopic(topic string, config TopicConfig) {
	h.CreateTopic(topic, config)
}

// ApplyConfig configures every topic listed in cfg.
func (h *Hub) ApplyConfig(cfg HubConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Debug {
		SetDebug(true)
	}
	for topic, tc := range cfg.Topics {
		h.CreateTopic(topic, tc)
	}
	return nil
}

// getTopicConfig retrieves the configuration for a given topic.
func (h *Hub) getTopicConfig(topic string) TopicConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if config, ok := h.topicConfigs[topic]; ok {
		return config
	}
	return TopicConfig{AllowDropping: false, PublishTimeout: DefaultPublishTimeout}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// RegisterTopic binds topic to the type T. Registering again with the same
// type is allowed (and updates the config if one is given); a different type
// returns ErrTopicTypeMismatch.
func RegisterTopic[T any](h *Hub, topic string, config ...TopicConfig) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if len(config) > 0 {
		h.topicConfigs[topic] = config[0]
	}

	want := typeOf[T]()
	if ts, ok := h.topicSystems[topic]; ok {
		if ts.dataType != want {
			return fmt.Errorf("%w: topic '%s' carries %s, not %s", ErrTopicTypeMismatch, topic, ts.dataType, want)
		}
		return nil
	}

	subject := NewPassthroughSubject[T]()
	h.topicSystems[topic] = &topicSystem{
		dataType:    want,
		subject:     subject,
		complete:    func() { subject.SendCompletion(Finished) },
		subscribers: make(map[string]hubSubscriber),
	}
	logDebug("Topic '%s' registered for type %s.", topic, want)
	return nil
}

// lookup returns the topic's subject typed as T. Must be called with h.mu held.
func lookup[T any](h *Hub, topic string) (*PassthroughSubject[T], *topicSystem, error) {
	if h.closed {
		return nil, nil, ErrHubClosed
	}
	ts, ok := h.topicSystems[topic]
	if !ok {
		return nil, nil, fmt.Errorf("%w: '%s'", ErrTopicNotRegistered, topic)
	}
	subject, ok := ts.subject.(*PassthroughSubject[T])
	if !ok {
		return nil, nil, fmt.Errorf("%w: topic '%s' carries %s, not %s", ErrTopicTypeMismatch, topic, ts.dataType, typeOf[T]())
	}
	return subject, ts, nil
}

// TopicPublisher exposes a registered topic as a Publisher so it can be
// composed with Map, Filter, Await and the rest.
func TopicPublisher[T any](h *Hub, topic string) (Publisher[T], error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subject, _, err := lookup[T](h, topic)
	if err != nil {
		return nil, err
	}
	return subject, nil
}

// Publish sends message.Data to every subscriber of message.Topic.
//
// Subscribers are served one after another, so with N subscribers whose
// buffers are full a Publish can take up to N times the topic's
// PublishTimeout. If another goroutine is already delivering on the topic,
// Publish queues the value and returns at once; the delivering goroutine
// then absorbs the wait.
func Publish[T any](h *Hub, message Message[T]) error {
	h.mu.RLock()
	subject, _, err := lookup[T](h, message.Topic)
	h.mu.RUnlock()
	if err != nil {
		return err
	}

	logDebug("Publishing message to topic '%s': %v", message.Topic, message.Data)
	subject.Send(message.Data)
	return nil
}

// Subscribe attaches a channel subscriber to topic.
func Subscribe[T any](h *Hub, topic string, subscriberID string, bufferSize int) (*Subscriber[T], error) {
	h.mu.Lock()
	subject, ts, err := lookup[T](h, topic)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	if _, exists := ts.subscribers[subscriberID]; exists {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: '%s' on topic '%s'", ErrDuplicateSubscriber, subscriberID, topic)
	}
	// Reserve the ID; the subscriber is built outside the lock because
	// subscribing may run callbacks that call back into the hub.
	ts.subscribers[subscriberID] = nil
	h.mu.Unlock()

	var sub *Subscriber[T]
	sub = newSubscriber[T](subject, topic, subscriberID, bufferSize,
		func() TopicConfig { return h.getTopicConfig(topic) },
		func() { h.cleanupSub(ts, subscriberID, sub) },
	)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.Unsubscribe()
		return nil, ErrHubClosed
	}
	ts.subscribers[subscriberID] = sub
	h.mu.Unlock()
	return sub, nil
}

// cleanupSub removes sub from its topic if it is still the registered instance.
func (h *Hub) cleanupSub(ts *topicSystem, subscriberID string, sub hubSubscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := ts.subscribers[subscriberID]; ok && existing == sub {
		delete(ts.subscribers, subscriberID)
		logDebug("Hub: subscriber '%s' removed.", subscriberID)
	}
}

// SendReceive publishes sendMsg on sendTopic and waits up to timeout for the
// first message on receiveTopic. ok is false on error or timeout.
func SendReceive[Req, Res any](h *Hub, sendTopic, receiveTopic string, sendMsg Req, timeout time.Duration) (result Res, ok bool) {
	sub, err := Subscribe[Res](h, receiveTopic, h.GetUniqueSubscriberID(), 1)
	if err != nil {
		logDebug("SendReceive: failed to subscribe to receive topic '%s': %v", receiveTopic, err)
		return result, false
	}
	defer sub.Unsubscribe()

	if err := Publish(h, Message[Req]{Topic: sendTopic, Data: sendMsg}); err != nil {
		logDebug("SendReceive: publish to '%s' failed: %v", sendTopic, err)
		return result, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg, open := <-sub.Ch:
		if open {
			return msg.Data, true
		}
		logDebug("SendReceive: channel for topic '%s' closed before message received.", receiveTopic)
	case <-timer.C:
		logDebug("SendReceive timeout of %s reached for receive topic '%s'.", timeout, receiveTopic)
	}
	return result, false
}

// Close completes every topic and unsubscribes every channel subscriber,
// waiting for their delivery goroutines. Safe to call multiple times.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	var completes []func()
	var subs []hubSubscriber
	for _, ts := range h.topicSystems {
		completes = append(completes, ts.complete)
		for _, sub := range ts.subscribers {
			if sub != nil {
				subs = append(subs, sub)
			}
		}
	}
	h.topicSystems = make(map[string]*topicSystem)
	h.topicConfigs = make(map[string]TopicConfig)
	h.mu.Unlock()

	logDebug("Initiating shutdown of Hub: %d topics, %d subscribers.", len(completes), len(subs))
	for _, complete := range completes {
		complete()
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s hubSubscriber) {
			defer wg.Done()
			s.Unsubscribe()
		}(sub)
	}
	wg.Wait()
	logDebug("Hub closed gracefully.")
}
