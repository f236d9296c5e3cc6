package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SessionLogger keeps one append-only log file open for the life of a
// session. Each line carries a timestamp and the short session id so logs
// from several sessions can be grepped together.
type SessionLogger struct {
	mu   sync.Mutex
	tag  string
	path string
	f    *os.File
}

func NewSessionLogger(baseDir, sessionID string) (*SessionLogger, error) {
	dir := filepath.Join(baseDir, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session log dir: %w", err)
	}
	p := filepath.Join(dir, sessionID+".log")
	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}
	tag := sessionID
	if len(tag) > 8 {
		tag = tag[:8]
	}
	return &SessionLogger{tag: tag, path: p, f: f}, nil
}

// Log writes one line. Lines logged after Close are dropped.
func (l *SessionLogger) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return
	}
	fmt.Fprintf(l.f, "%s %s %s\n", time.Now().Format("2006-01-02 15:04:05.000"), l.tag, msg)
}

func (l *SessionLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

func (l *SessionLogger) Path() string { return l.path }
