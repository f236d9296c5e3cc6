package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ibreez3/hult-gpt/chat"
)

// MockClient fails a fixed number of times, then streams its fragments.
type MockClient struct {
	Failures  int
	Fragments []string
	calls     int
}

func (m *MockClient) Stream(ctx context.Context, model string, turns []chat.Turn) (chat.Stream, error) {
	m.calls++
	if m.calls <= m.Failures {
		return nil, &chat.CompletionError{Kind: chat.FailureRateLimit, Err: errors.New("Rate limit reached for requests")}
	}
	return chat.FragmentStream(m.Fragments...), nil
}

type printStatus struct{}

func (printStatus) RetryWait(attempt int, wait time.Duration) {
	fmt.Println("  [info]", chat.RetryWaitNotice(wait))
}

func (printStatus) RateLimited(err error) { fmt.Println("  [warn]", chat.RateLimitNotice) }

func (printStatus) Failed(err error) { fmt.Println("  [error]", chat.ErrorNotice(err)) }

func main() {
	cli := &MockClient{Failures: 2, Fragments: []string{"Hi", " there", "!"}}
	policy := chat.DefaultRetryPolicy()
	policy.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	sess := chat.NewSession(chat.NewCompletionResponder(cli, policy), chat.WithModel("mock"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	fmt.Print("assistant: ")
	_, err := sess.Submit(ctx, "Hello", printStatus{}, func(f string) { fmt.Print(f) })
	fmt.Println()
	if err != nil {
		fmt.Println("exchange failed:", err)
		os.Exit(1)
	}
	want := []chat.Turn{{Role: chat.RoleUser, Content: "Hello"}, {Role: chat.RoleAssistant, Content: "Hi there!"}}
	got := sess.Turns()
	if len(got) != len(want) {
		fmt.Println("unexpected turn count:", len(got))
		os.Exit(2)
	}
	for i := range want {
		if got[i] != want[i] {
			fmt.Printf("turn %d mismatch: %+v\n", i, got[i])
			os.Exit(3)
		}
	}
	if cli.calls != 3 {
		fmt.Println("unexpected attempt count:", cli.calls)
		os.Exit(4)
	}
	fmt.Println("conversation verified, attempts:", cli.calls)
}
