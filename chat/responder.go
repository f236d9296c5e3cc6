package chat

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Responder produces the assistant reply for the current history.
type Responder interface {
	Respond(ctx context.Context, model string, turns []Turn, status Status) (Stream, error)
}

// EchoResponder repeats the latest user input back.
type EchoResponder struct{}

func (EchoResponder) Respond(ctx context.Context, model string, turns []Turn, status Status) (Stream, error) {
	input := ""
	if n := len(turns); n > 0 {
		input = turns[n-1].Content
	}
	return FragmentStream("User said: " + input), nil
}

var CannedReplies = []string{
	"Hello CM3CS! How can I assist you today?",
	"Hi, Hultians! Is there anything I can help you with?",
	"What's shakin', Hultian?",
	"How are you??",
}

const DefaultTypingDelay = 100 * time.Millisecond

// SimulatedResponder picks a canned reply and streams it word by word.
type SimulatedResponder struct {
	Replies []string
	Delay   time.Duration
	Rand    *rand.Rand
}

func NewSimulatedResponder(delay time.Duration) *SimulatedResponder {
	return &SimulatedResponder{
		Replies: CannedReplies,
		Delay:   delay,
		Rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SimulatedResponder) Respond(ctx context.Context, model string, turns []Turn, status Status) (Stream, error) {
	replies := r.Replies
	if len(replies) == 0 {
		replies = CannedReplies
	}
	var reply string
	if r.Rand != nil {
		reply = replies[r.Rand.Intn(len(replies))]
	} else {
		reply = replies[rand.Intn(len(replies))]
	}
	words := strings.Fields(reply)
	fragments := make([]string, len(words))
	for i, w := range words {
		fragments[i] = w + " "
	}
	return TypingStream(ctx, r.Delay, fragments...), nil
}

// CompletionResponder opens a completer stream under a retry policy.
type CompletionResponder struct {
	Client Completer
	Policy RetryPolicy
	Log    func(string)
}

func NewCompletionResponder(cli Completer, policy RetryPolicy) *CompletionResponder {
	return &CompletionResponder{Client: cli, Policy: policy}
}

func (r *CompletionResponder) WithLogger(log func(string)) *CompletionResponder {
	r.Log = log
	return r
}

func (r *CompletionResponder) Respond(ctx context.Context, model string, turns []Turn, status Status) (Stream, error) {
	if status == nil {
		status = nopStatus{}
	}
	if r.Log != nil {
		status = loggingStatus{Status: status, log: r.Log}
	}
	var stream Stream
	err := r.Policy.Do(ctx, status, func(ctx context.Context) error {
		s, err := r.Client.Stream(ctx, model, turns)
		if err != nil {
			return err
		}
		stream = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}
