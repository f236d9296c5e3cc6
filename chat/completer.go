package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Completer issues a single streaming completion request for the given
// history. A returned Stream is consumed once; asking again needs a new call.
type Completer interface {
	Stream(ctx context.Context, model string, turns []Turn) (Stream, error)
}

// Stream is a pull iterator over response fragments. Concatenating every
// Current value in delivery order yields the full response.
type Stream interface {
	Next() bool
	Current() string
	Err() error
	Close() error
}

type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureTransport
	FailureAuth
	FailureRateLimit
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureAuth:
		return "auth"
	case FailureRateLimit:
		return "rate_limit"
	default:
		return "unknown"
	}
}

// CompletionError is the error type completers return. Kind decides which
// notice is shown to the user; every kind is retried the same way.
type CompletionError struct {
	Kind FailureKind
	Err  error
}

func (e *CompletionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("completion failed (%s)", e.Kind)
	}
	return e.Err.Error()
}

func (e *CompletionError) Unwrap() error { return e.Err }

// ClassifyText is the fallback classification for errors that carry no kind.
func ClassifyText(s string) FailureKind {
	s = strings.ToLower(s)
	if strings.Contains(s, "rate limit") || strings.Contains(s, "quota") {
		return FailureRateLimit
	}
	return FailureUnknown
}

func KindOf(err error) FailureKind {
	if err == nil {
		return FailureUnknown
	}
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ClassifyText(err.Error())
}

type fragmentStream struct {
	ctx       context.Context
	fragments []string
	delay     time.Duration
	pos       int
	cur       string
	err       error
}

// FragmentStream returns a Stream that yields the given fragments in order.
func FragmentStream(fragments ...string) Stream {
	return &fragmentStream{ctx: context.Background(), fragments: fragments}
}

// TypingStream yields fragments with a pause between them, like someone typing.
func TypingStream(ctx context.Context, delay time.Duration, fragments ...string) Stream {
	return &fragmentStream{ctx: ctx, fragments: fragments, delay: delay}
}

func (s *fragmentStream) Next() bool {
	if s.err != nil || s.pos >= len(s.fragments) {
		return false
	}
	if s.pos > 0 && s.delay > 0 {
		if err := sleepContext(s.ctx, s.delay); err != nil {
			s.err = err
			return false
		}
	}
	s.cur = s.fragments[s.pos]
	s.pos++
	return true
}

func (s *fragmentStream) Current() string { return s.cur }

func (s *fragmentStream) Err() error { return s.err }

func (s *fragmentStream) Close() error { return nil }
