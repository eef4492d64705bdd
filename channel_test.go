package pubsubrx

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func Test_SubscriberFromJust(t *testing.T) {
	sub := NewSubscriber(Just("hi"), "greeting", "sub1", 0, TopicConfig{})
	defer sub.Unsubscribe()

	msg, ok := <-sub.Ch
	if !ok || msg.Data != "hi" || msg.Topic != "greeting" {
		t.Fatalf("Expected {greeting hi}, got %+v (open=%v)", msg, ok)
	}
	if _, ok := <-sub.Ch; ok {
		t.Fatal("Ch not closed after the publisher finished")
	}
	if sub.Err() != nil {
		t.Fatalf("Err() = %v, want nil", sub.Err())
	}
}

func Test_SubscriberFromFail(t *testing.T) {
	myErr := errors.New("no connection")
	sub := NewSubscriber(Fail[int](myErr), "numbers", "sub1", 1, TopicConfig{})
	defer sub.Unsubscribe()

	if _, ok := <-sub.Ch; ok {
		t.Fatal("Received a message from a failed publisher")
	}
	if !errors.Is(sub.Err(), myErr) {
		t.Fatalf("Err() = %v, want %v", sub.Err(), myErr)
	}
}

func Test_SubscriberFlushesOnCompletion(t *testing.T) {
	subject := NewPassthroughSubject[int]()
	sub := NewSubscriber[int](subject, "numbers", "sub1", 5, TopicConfig{})
	defer sub.Unsubscribe()

	subject.Send(1)
	subject.Send(2)
	subject.Send(3)
	subject.SendCompletion(Finished)

	var got []int
	sub.ReadMessages(func(m Message[int]) { got = append(got, m.Data) })
	if !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("Expected [1 2 3], got %v", got)
	}
	t.Log("Buffered values were flushed before Ch closed.")
}

func Test_SubscriberDropping(t *testing.T) {
	subject := NewPassthroughSubject[int]()
	sub := NewSubscriber[int](subject, "numbers", "dropper", 1, TopicConfig{AllowDropping: true})
	defer sub.Unsubscribe()

	start := time.Now()
	for i := 0; i < 50; i++ {
		subject.Send(i)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Sends blocked for %v with dropping allowed", elapsed)
	}
	subject.SendCompletion(Finished)

	n := 0
	for range sub.Ch {
		n++
	}
	if n < 1 || n > 2 {
		t.Fatalf("Expected 1 or 2 messages to survive a full buffer, got %d", n)
	}
}

func Test_SubscriberPublishTimeout(t *testing.T) {
	subject := NewPassthroughSubject[string]()
	timeout := 30 * time.Millisecond
	sub := NewSubscriber[string](subject, "t", "slow", 1, TopicConfig{PublishTimeout: timeout})
	defer sub.Unsubscribe()

	subject.Send("blocker")
	subject.Send("filler")

	start := time.Now()
	subject.Send("timed out")
	if elapsed := time.Since(start); elapsed < timeout {
		t.Fatalf("Send returned after %v, expected to wait for %v", elapsed, timeout)
	}
}

func Test_SubscriberUnsubscribe(t *testing.T) {
	subject := NewPassthroughSubject[int]()
	sub := NewSubscriber[int](subject, "numbers", "sub1", 1, TopicConfig{})
	if subject.SubscriberCount() != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", subject.SubscriberCount())
	}

	sub.Unsubscribe()
	sub.Unsubscribe()

	if subject.SubscriberCount() != 0 {
		t.Fatalf("Unsubscribe left the subject subscription behind")
	}
	subject.Send(1)
	if _, ok := <-sub.Ch; ok {
		t.Fatal("Ch still open after Unsubscribe")
	}
	if sub.Err() != nil {
		t.Fatalf("Err() = %v after Unsubscribe, want nil", sub.Err())
	}
}
