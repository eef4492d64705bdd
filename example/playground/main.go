package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	rx "github.com/jonoton/go-pubsubrx"
)

var (
	debug      = flag.Bool("debug", false, "enable debug logging")
	page       = flag.String("page", "all", "publishers, subjects, async, hub or all")
	url        = flag.String("url", "", "URL fetched by the async page's request bridge (skipped when empty)")
	configPath = flag.String("config", "", "YAML hub config for the hub page")
)

const defaultHubConfig = `
topics:
  sports:
    allow_dropping: true
  news:
    publish_timeout: 250ms
`

func main() {
	flag.Parse()
	rx.SetDebug(*debug)

	pages := map[string]func(){
		"publishers": publishersPage,
		"subjects":   subjectsPage,
		"async":      asyncPage,
		"hub":        hubPage,
	}
	order := []string{"publishers", "subjects", "async", "hub"}

	if *page != "all" {
		run, ok := pages[*page]
		if !ok {
			log.Fatalf("unknown page %q: use %s or all", *page, strings.Join(order, ", "))
		}
		run()
		return
	}
	for _, name := range order {
		fmt.Printf("\n--- %s ---\n", name)
		pages[name]()
	}
	fmt.Println("\n>>> End of Playground")
}

func printValue[T any](v T) { fmt.Printf(">>> %v\n", v) }

func printCompletion(c rx.Completion) { fmt.Printf(">>> completion %s\n", c) }

func publishersPage() {
	var subs rx.SubscriptionSet
	defer subs.Cancel()

	hello := rx.Just("Hello")
	subs.Add(hello.Subscribe(printValue[string], nil))
	subs.Add(hello.Subscribe(printValue[string], printCompletion))

	subs.Add(rx.Fail[int](errors.New("my error")).Subscribe(
		func(int) { fmt.Println(">>> This will never be printed out") },
		printCompletion,
	))

	subs.Add(rx.Empty[int]().Subscribe(
		func(int) { fmt.Println(">>> This will never be printed out") },
		printCompletion,
	))
}

func subjectsPage() {
	var subs rx.SubscriptionSet
	defer subs.Cancel()

	pass := rx.NewPassthroughSubject[int]()
	stateful := rx.NewCurrentValueSubject(42)

	pass.Send(1) // nobody is listening yet

	squares := rx.Map(rx.Filter[int](pass, func(v int) bool { return v%2 == 0 }), func(v int) int { return v * v })
	subs.Add(rx.HandleEvents(squares, rx.Events[int]{
		OnSubscribe:  func() { fmt.Println(">>> pass.receiveSubscription") },
		OnValue:      func(v int) { fmt.Printf(">>> pass.receiveOutput %d\n", v) },
		OnCompletion: func(c rx.Completion) { fmt.Printf(">>> pass.receiveCompletion %s\n", c) },
		OnCancel:     func() { fmt.Println(">>> pass.receiveCancel") },
	}).Subscribe(nil, nil))

	pass.Send(2)
	pass.Send(3)
	pass.Send(4)

	pass.SendCompletion(rx.Finished)
	pass.Send(2)
	pass.Send(3)
	pass.Send(4)

	subs.Add(stateful.Subscribe(func(v int) { fmt.Printf(">>> stateful.sink %d\n", v) }, nil))
	stateful.Send(1)
	stateful.Send(2)
	fmt.Printf(">>> stateful.value = %d\n", stateful.Value())
	stateful.Send(3)
	stateful.Send(4)
}

type conversation struct {
	participants []string
	messages     []string
}

// conversationStore is a callback-style API: it completes later on another goroutine.
type conversationStore struct{ delay time.Duration }

func (s conversationStore) saveConversation(c conversation, completion func(string, error)) rx.CancelToken {
	timer := time.AfterFunc(s.delay, func() {
		completion(fmt.Sprintf("Conversation with %d messages saved", len(c.messages)), nil)
	})
	return rx.CancelFunc(func() { timer.Stop() })
}

func (s conversationStore) saveConversationPublisher(c conversation) rx.Publisher[string] {
	return rx.FromCallback(func(complete func(string, error)) rx.CancelToken {
		return s.saveConversation(c, complete)
	})
}

func request(ctx context.Context, target string, completion func(string, error)) rx.CancelToken {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			completion("", err)
			return
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			completion("", err)
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		completion(string(body), err)
	}()
	return rx.CancelFunc(cancel)
}

func asyncPage() {
	ctx := context.Background()
	store := conversationStore{delay: 200 * time.Millisecond}
	conv := conversation{
		participants: []string{"Bojack", "Ricky"},
		messages:     []string{"I am a famous horse", "I don't care"},
	}

	store.saveConversation(conv, func(result string, err error) {
		fmt.Printf(">>> callback %s %v\n", result, err)
	})

	saved, err := rx.Await(ctx, store.saveConversationPublisher(conv))
	fmt.Printf(">>> publisher %v %v\n", saved, err)

	// Eager: prints during construction.
	_ = rx.NewFuture(func(promise rx.Promise[int]) {
		fmt.Println(">>> 42 from Future")
		promise(42, nil)
	})

	// Lazy: prints only once subscribed.
	deferred := rx.NewDeferred(func() rx.Publisher[int] {
		return rx.NewFuture(func(promise rx.Promise[int]) {
			fmt.Println(">>> 42 from Future wrapped in Deferred")
			promise(42, nil)
		})
	})
	deferred.Subscribe(printValue[int], nil)

	cancelled := store.saveConversationPublisher(conv).Subscribe(
		func(string) { fmt.Println(">>> This will never be printed out") },
		printCompletion,
	)
	cancelled.Cancel()

	if *url == "" {
		return
	}
	zen := rx.FromCallback(func(complete func(string, error)) rx.CancelToken {
		return request(ctx, *url, complete)
	})
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	body, err := rx.First(reqCtx, zen)
	fmt.Printf(">>> request value %q err=%v\n", body, err)
}

func hubPage() {
	h := rx.NewHub()
	defer h.Close()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("hub config: %v", err)
	}
	if err := h.ApplyConfig(cfg); err != nil {
		log.Fatalf("hub config: %v", err)
	}

	for _, topic := range []string{"news", "sports"} {
		if err := rx.RegisterTopic[string](h, topic); err != nil {
			log.Fatalf("register %s: %v", topic, err)
		}
	}

	news, _ := rx.Subscribe[string](h, "news", "sub1", 2)
	sports, _ := rx.Subscribe[string](h, "sports", "sub2", 1)
	done := make(chan struct{}, 2)
	for _, sub := range []*rx.Subscriber[string]{news, sports} {
		go func(s *rx.Subscriber[string]) {
			s.ReadMessages(func(msg rx.Message[string]) {
				fmt.Printf("(%s) received message: Topic='%s', Data='%v'\n", s.ID, msg.Topic, msg.Data)
			})
			done <- struct{}{}
		}(sub)
	}

	for i := 1; i <= 3; i++ {
		rx.Publish(h, rx.Message[string]{Topic: "news", Data: fmt.Sprintf("Market Update %d", i)})
		rx.Publish(h, rx.Message[string]{Topic: "sports", Data: fmt.Sprintf("Game Score %d", i)})
	}
	time.Sleep(100 * time.Millisecond)

	h.Close()
	<-done
	<-done
}

func loadConfig() (rx.HubConfig, error) {
	if *configPath == "" {
		return rx.ParseHubConfig([]byte(defaultHubConfig))
	}
	f, err := os.Open(*configPath)
	if err != nil {
		return rx.HubConfig{}, err
	}
	defer f.Close()
	return rx.LoadHubConfig(f)
}
