package pubsubrx

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

// recorder collects what a subscription observed.
type recorder[T any] struct {
	values      []T
	completions []Completion
}

func (r *recorder[T]) onValue(v T) { r.values = append(r.values, v) }
func (r *recorder[T]) onCompletion(c Completion) { r.completions = append(r.completions, c) }

func (r *recorder[T]) subscribe(pub Publisher[T]) Subscription {
	return pub.Subscribe(r.onValue, r.onCompletion)
}

func Test_Just(t *testing.T) {
	var r recorder[string]
	r.subscribe(Just("Hello"))

	if !reflect.DeepEqual(r.values, []string{"Hello"}) {
		t.Fatalf("Expected [Hello], got %v", r.values)
	}
	if len(r.completions) != 1 || !r.completions[0].IsFinished() {
		t.Fatalf("Expected a single finished completion, got %v", r.completions)
	}

	// Publishers are reusable templates.
	var again recorder[string]
	again.subscribe(Just("Hello"))
	if len(again.values) != 1 {
		t.Fatalf("Second subscription got %v", again.values)
	}
	t.Log("Just delivered its value and finished.")
}

func Test_FailAndEmpty(t *testing.T) {
	myErr := errors.New("my error")

	var failed recorder[int]
	failed.subscribe(Fail[int](myErr))
	if len(failed.values) != 0 {
		t.Errorf("Fail delivered values: %v", failed.values)
	}
	if len(failed.completions) != 1 || !errors.Is(failed.completions[0].Err, myErr) {
		t.Errorf("Expected failure(%v), got %v", myErr, failed.completions)
	}

	var empty recorder[int]
	empty.subscribe(Empty[int]())
	if len(empty.values) != 0 || len(empty.completions) != 1 || !empty.completions[0].IsFinished() {
		t.Errorf("Empty: values=%v completions=%v", empty.values, empty.completions)
	}
}

func Test_NilCallbacks(t *testing.T) {
	Just(1).Subscribe(nil, nil)
	Fail[int](errors.New("x")).Subscribe(nil, nil)
	Map(Just(1), func(v int) int { return v }).Subscribe(nil, nil)
	Filter(Just(1), func(int) bool { return true }).Subscribe(nil, nil)
	t.Log("Nil callbacks are ignored.")
}

func Test_MapFilter(t *testing.T) {
	subject := NewPassthroughSubject[int]()
	var r recorder[int]
	r.subscribe(Map(Filter[int](subject, func(v int) bool { return v%2 == 0 }), func(v int) int { return v * v }))

	for i := 1; i <= 4; i++ {
		subject.Send(i)
	}
	subject.SendCompletion(Finished)
	subject.Send(6)

	if !reflect.DeepEqual(r.values, []int{4, 16}) {
		t.Fatalf("Expected [4 16], got %v", r.values)
	}
	if len(r.completions) != 1 {
		t.Fatalf("Expected one completion, got %v", r.completions)
	}
}

func Test_HandleEvents(t *testing.T) {
	subject := NewPassthroughSubject[int]()
	var events []string

	pub := HandleEvents[int](subject, Events[int]{
		OnSubscribe:  func() { events = append(events, "subscribe") },
		OnValue:      func(v int) { events = append(events, "value") },
		OnCompletion: func(c Completion) { events = append(events, "completion") },
		OnCancel:     func() { events = append(events, "cancel") },
	})

	var r recorder[int]
	sub := r.subscribe(pub)
	subject.Send(1)
	sub.Cancel()
	sub.Cancel()
	subject.Send(2)

	want := []string{"subscribe", "value", "cancel"}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("Expected events %v, got %v", want, events)
	}
	if !reflect.DeepEqual(r.values, []int{1}) {
		t.Fatalf("Expected values [1], got %v", r.values)
	}
	if subject.SubscriberCount() != 0 {
		t.Fatalf("Cancel did not reach the upstream subject")
	}
}

func Test_HandleEventsNoCancelAfterCompletion(t *testing.T) {
	cancels := 0
	sub := HandleEvents(Just(1), Events[int]{OnCancel: func() { cancels++ }}).Subscribe(nil, nil)
	sub.Cancel()
	if cancels != 0 {
		t.Fatalf("OnCancel ran for a completed subscription")
	}
}

func Test_SubscriptionSet(t *testing.T) {
	subject := NewPassthroughSubject[int]()
	var set SubscriptionSet
	var r1, r2 recorder[int]
	set.Add(r1.subscribe(subject))
	set.Add(r2.subscribe(subject))
	set.Add(nil)

	if set.Len() != 2 {
		t.Fatalf("Expected 2 stored subscriptions, got %d", set.Len())
	}

	subject.Send(1)
	set.Cancel()
	subject.Send(2)

	if len(r1.values) != 1 || len(r2.values) != 1 {
		t.Fatalf("Expected one value each, got %v and %v", r1.values, r2.values)
	}
	if set.Len() != 0 || subject.SubscriberCount() != 0 {
		t.Fatalf("Set not emptied: len=%d subscribers=%d", set.Len(), subject.SubscriberCount())
	}

	var late recorder[int]
	set.Add(late.subscribe(subject))
	subject.Send(3)
	if len(late.values) != 0 {
		t.Fatalf("Subscription added to a cancelled set still received %v", late.values)
	}
	set.Cancel()
}

func Test_Await(t *testing.T) {
	ctx := context.Background()

	values, err := Await(ctx, Just(7))
	if err != nil || !reflect.DeepEqual(values, []int{7}) {
		t.Fatalf("Await(Just) = %v, %v", values, err)
	}

	myErr := errors.New("boom")
	_, err = Await(ctx, Fail[int](myErr))
	if !errors.Is(err, myErr) {
		t.Fatalf("Expected %v, got %v", myErr, err)
	}

	state := NewCurrentValueSubject(1)
	done := make(chan struct{})
	var got []int
	go func() {
		defer close(done)
		got, err = Await[int](ctx, state)
	}()
	for state.SubscriberCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	state.Send(2)
	state.SendCompletion(Finished)
	<-done

	if err != nil || !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("Await(CurrentValueSubject) = %v, %v", got, err)
	}
}

func Test_AwaitContextCancel(t *testing.T) {
	subject := NewPassthroughSubject[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Await[int](ctx, subject)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected DeadlineExceeded, got %v", err)
	}
	if subject.SubscriberCount() != 0 {
		t.Fatalf("Await left its subscription behind")
	}
}

func Test_First(t *testing.T) {
	ctx := context.Background()

	v, err := First(ctx, Just("a"))
	if err != nil || v != "a" {
		t.Fatalf("First(Just) = %q, %v", v, err)
	}

	_, err = First(ctx, Empty[string]())
	if !errors.Is(err, ErrNoValue) {
		t.Fatalf("Expected ErrNoValue, got %v", err)
	}

	state := NewCurrentValueSubject(5)
	v2, err := First[int](ctx, state)
	if err != nil || v2 != 5 {
		t.Fatalf("First(CurrentValueSubject) = %d, %v", v2, err)
	}
	if state.SubscriberCount() != 0 {
		t.Fatalf("First did not cancel its subscription")
	}
}
