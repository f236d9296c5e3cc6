package chat

import (
	"context"
	"errors"
	"time"
)

// scriptedCompleter fails with the queued errors, then streams fragments.
type scriptedCompleter struct {
	failures  []error
	fragments []string
	calls     int
	seen      [][]Turn
	models    []string
}

func (c *scriptedCompleter) Stream(ctx context.Context, model string, turns []Turn) (Stream, error) {
	c.calls++
	c.seen = append(c.seen, turns)
	c.models = append(c.models, model)
	if c.calls <= len(c.failures) {
		return nil, c.failures[c.calls-1]
	}
	return FragmentStream(c.fragments...), nil
}

func failTimes(n int, err error) []error {
	out := make([]error, n)
	for i := range out {
		out[i] = err
	}
	return out
}

func instantPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p
}

type brokenStream struct {
	sent bool
}

func (s *brokenStream) Next() bool {
	if s.sent {
		return false
	}
	s.sent = true
	return true
}

func (s *brokenStream) Current() string { return "partial" }
func (s *brokenStream) Err() error      { return errors.New("connection reset") }
func (s *brokenStream) Close() error    { return nil }
