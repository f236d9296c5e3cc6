package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ibreez3/hult-gpt/chat"
	"github.com/ibreez3/hult-gpt/config"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is a chat session plus its bookkeeping.
type Session struct {
	*chat.Session
	Mode      string
	CreatedAt time.Time
	LogPath   string

	logger *SessionLogger
}

// Manager owns every live session. Sessions share nothing but the
// completer; each keeps its own conversation and retry state.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	cfg       config.Config
	completer chat.Completer
}

func NewManager(cfg config.Config, completer chat.Completer) *Manager {
	return &Manager{sessions: map[string]*Session{}, cfg: cfg, completer: completer}
}

// NewResponder builds the responder for a chat mode.
func NewResponder(cfg config.Config, mode string, completer chat.Completer, log func(string)) (chat.Responder, error) {
	switch mode {
	case config.ModeEcho:
		return chat.EchoResponder{}, nil
	case config.ModeSimulated:
		return chat.NewSimulatedResponder(cfg.TypingDelay()), nil
	case config.ModeGPT:
		if completer == nil {
			return nil, errors.New("gpt mode requires a completion client")
		}
		r := chat.NewCompletionResponder(completer, cfg.RetryPolicy())
		if log != nil {
			r.WithLogger(log)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown chat mode %q", mode)
	}
}

// Start opens a new session. An empty mode uses the configured one.
func (m *Manager) Start(mode string) (*Session, error) {
	if mode == "" {
		mode = m.cfg.Chat.Mode
	}
	id := uuid.NewString()
	var logFn func(string)
	logPath := ""
	sl, err := NewSessionLogger(m.cfg.Log.Dir, id)
	if err == nil {
		logFn = sl.Log
		logPath = sl.Path()
		sl.Log(fmt.Sprintf("[session start] mode=%s model=%s", mode, m.cfg.OpenAI.Model))
	} else {
		sl = nil
	}
	responder, err := NewResponder(m.cfg, mode, m.completer, logFn)
	if err != nil {
		if sl != nil {
			_ = sl.Close()
		}
		return nil, err
	}
	cs := chat.NewSession(responder,
		chat.WithID(id),
		chat.WithModels(m.cfg.OpenAI.Models),
		chat.WithModel(m.cfg.OpenAI.Model),
		chat.WithLogger(logFn),
	)
	s := &Session{Session: cs, Mode: mode, CreatedAt: time.Now(), LogPath: logPath, logger: sl}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete ends a session; its conversation is discarded.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	if s.logger != nil {
		s.logger.Log("[session end]")
		_ = s.logger.Close()
	}
	return nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
