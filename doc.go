/*
Package pubsubrx implements a thread-safe, in-memory reactive-streams core
(publishers, subscriptions, futures, deferred publishers and subjects) together
with a multi-topic, type-safe publish-subscribe hub built on top of it.

A Publisher describes values over time. Subscribing to it attaches two plain
callbacks, one for values and one for the terminal Completion (finished or
failed), and returns a Subscription that can be cancelled at any time.

# Key Features

  - Explicit eager vs. lazy evaluation: a Future runs its work as soon as it
    is constructed; wrapping the construction in NewDeferred makes it cold, so
    nothing happens until someone subscribes, once per subscriber.

  - Single-shot results: a Future delivers either its value followed by
    Finished, or its failure, to each subscriber, never both and never twice.

  - Subjects: PassthroughSubject broadcasts to whoever is subscribed when a
    value is sent; CurrentValueSubject additionally holds the latest value and
    replays it to new subscribers. After a completion, further sends are ignored.

  - Cancellation bridging: FromCallback adapts "takes a callback, returns a
    cancel token" APIs. Cancelling the subscription cancels the token and
    discards any late result.

  - Ordered, serialized delivery: each subscription receives at most one
    callback at a time, and a subject finishes one send's fan-out (in
    registration order) before starting the next. Locks are never held while
    callbacks run, so callbacks may subscribe, send or cancel freely.

  - Channel subscribers and a Hub: any publisher can be consumed from a Go
    channel with a private buffer that either drops or blocks with a timeout
    when full. The Hub manages named, type-checked topics of such subscribers.

# Publishers and Subscriptions

	pubsubrx.Just("Hello").Subscribe(
		func(v string) { fmt.Println(">>>", v) },
		func(c pubsubrx.Completion) { fmt.Println(">>> completion", c) },
	)

	pubsubrx.Fail[int](errors.New("boom")).Subscribe(nil, func(c pubsubrx.Completion) {
		fmt.Println(">>> failed with", c.Err)
	})

Keep subscriptions that must stay alive in a SubscriptionSet and cancel them
together when done:

	var subs pubsubrx.SubscriptionSet
	defer subs.Cancel()
	subs.Add(pub.Subscribe(onValue, onCompletion))

# Future and Deferred

	// Runs right now, even though nobody subscribed.
	eager := pubsubrx.NewFuture(func(promise pubsubrx.Promise[int]) {
		promise(42, nil)
	})

	// Runs once per Subscribe call, and never before.
	lazy := pubsubrx.NewDeferred(func() pubsubrx.Publisher[int] {
		return pubsubrx.NewFuture(func(promise pubsubrx.Promise[int]) {
			promise(42, nil)
		})
	})

# Bridging callback APIs

	fetch := pubsubrx.FromCallback(func(complete func(string, error)) pubsubrx.CancelToken {
		ctx, cancel := context.WithCancel(context.Background())
		go func() { complete(download(ctx)) }()
		return pubsubrx.CancelFunc(cancel)
	})

	sub := fetch.Subscribe(onValue, onCompletion)
	sub.Cancel() // cancels the download; its result is never delivered

# Subjects

	values := pubsubrx.NewPassthroughSubject[int]()
	pubsubrx.Map(pubsubrx.Filter[int](values, isEven), square).Subscribe(onValue, nil)
	values.Send(2)
	values.SendCompletion(pubsubrx.Finished)
	values.Send(4) // ignored

	state := pubsubrx.NewCurrentValueSubject(42)
	state.Subscribe(onValue, nil) // receives 42 immediately
	state.Send(1)

# Hub

	h := pubsubrx.NewHub()
	defer h.Close()

	pubsubrx.RegisterTopic[UserUpdate](h, "user.updates")
	pubsubrx.RegisterTopic[OrderEvent](h, "order.events", pubsubrx.TopicConfig{AllowDropping: true})

	sub, err := pubsubrx.Subscribe[UserUpdate](h, "user.updates", "user-service", 10)
	if err != nil {
		// Handle error
	}
	go sub.ReadMessages(func(msg pubsubrx.Message[UserUpdate]) {
		fmt.Println(msg.Data.UserID)
	})

	err = pubsubrx.Publish(h, pubsubrx.Message[UserUpdate]{Topic: "user.updates", Data: UserUpdate{UserID: 1}})

Topic delivery settings can also come from YAML through LoadHubConfig and
Hub.ApplyConfig.
*/
package pubsubrx
