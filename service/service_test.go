package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibreez3/hult-gpt/chat"
	"github.com/ibreez3/hult-gpt/config"
)

type stubCompleter struct {
	failures  int
	err       error
	fragments []string
	calls     int
}

func (c *stubCompleter) Stream(ctx context.Context, model string, turns []chat.Turn) (chat.Stream, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, c.err
	}
	return chat.FragmentStream(c.fragments...), nil
}

func (c *stubCompleter) Ping(ctx context.Context) error { return c.err }

func testConfig(t *testing.T, mode string) config.Config {
	t.Helper()
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	cfg.Chat.Mode = mode
	cfg.Chat.TypingDelayMs = 1
	cfg.Log.Dir = t.TempDir()
	// keep retries instant in tests
	cfg.OpenAI.MultiplierSec = 0.001
	cfg.OpenAI.MinWaitSec = 0.001
	cfg.OpenAI.MaxWaitSec = 0.001
	return cfg
}

func TestManager_Lifecycle(t *testing.T) {
	mgr := NewManager(testConfig(t, config.ModeEcho), nil)
	s, err := mgr.Start("")
	require.NoError(t, err)
	assert.Equal(t, config.ModeEcho, s.Mode)
	assert.Equal(t, "gpt-4o-mini", s.Model())
	assert.Equal(t, 1, mgr.Len())

	got, err := mgr.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, mgr.Delete(s.ID))
	_, err = mgr.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, mgr.Delete(s.ID), ErrSessionNotFound)
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	mgr := NewManager(testConfig(t, config.ModeEcho), nil)
	a, err := mgr.Start("")
	require.NoError(t, err)
	b, err := mgr.Start("")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	_, err = a.Submit(context.Background(), "only a", nil, nil)
	require.NoError(t, err)
	assert.Len(t, a.Turns(), 2)
	assert.Empty(t, b.Turns())
}

func TestManager_GPTModeLogsRetries(t *testing.T) {
	completer := &stubCompleter{failures: 2, err: errors.New("Rate limit reached"), fragments: []string{"Hi", " there", "!"}}
	mgr := NewManager(testConfig(t, config.ModeGPT), completer)
	s, err := mgr.Start("")
	require.NoError(t, err)

	status := &chat.StatusLog{}
	reply, err := s.Submit(context.Background(), "Hello", status, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", reply.Content)
	assert.Equal(t, 3, completer.calls)
	assert.Equal(t, 2, status.Count(chat.NoticeRateLimit))

	data, err := os.ReadFile(s.LogPath)
	require.NoError(t, err)
	log := string(data)
	assert.Contains(t, log, "[session start] mode=gpt")
	assert.Contains(t, log, "[rate limit] Rate limit reached")
	assert.Equal(t, 2, strings.Count(log, "[retry]"))
}

func TestNewResponder(t *testing.T) {
	cfg := testConfig(t, config.ModeEcho)
	_, err := NewResponder(cfg, config.ModeGPT, nil, nil)
	assert.Error(t, err)
	_, err = NewResponder(cfg, "voice", nil, nil)
	assert.ErrorContains(t, err, "unknown chat mode")

	r, err := NewResponder(cfg, config.ModeSimulated, nil, nil)
	require.NoError(t, err)
	s := chat.NewSession(r)
	start := time.Now()
	reply, err := s.Submit(context.Background(), "hi", nil, nil)
	require.NoError(t, err)
	assert.Contains(t, chat.CannedReplies, strings.TrimSpace(reply.Content))
	assert.Less(t, time.Since(start), 5*time.Second)
}
