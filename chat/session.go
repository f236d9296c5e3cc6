package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrEmptyInput   = errors.New("empty input")
	ErrBusy         = errors.New("a reply is still being generated")
	ErrUnknownModel = errors.New("unknown model")
)

// Session is the state owned by one interactive user: its conversation, the
// model selection and the responder. Submits are serialised; a second
// concurrent Submit fails with ErrBusy.
type Session struct {
	ID string

	busy      sync.Mutex
	mu        sync.RWMutex
	conv      *Conversation
	model     string
	models    []string
	responder Responder
	log       func(string)
}

type Option func(*Session)

func WithID(id string) Option {
	return func(s *Session) { s.ID = id }
}

// WithModels restricts SetModel to the given identifiers.
func WithModels(models []string) Option {
	return func(s *Session) { s.models = append([]string(nil), models...) }
}

func WithModel(model string) Option {
	return func(s *Session) { s.model = model }
}

func WithLogger(log func(string)) Option {
	return func(s *Session) { s.log = log }
}

func NewSession(responder Responder, opts ...Option) *Session {
	s := &Session{conv: NewConversation(), responder: responder}
	for _, o := range opts {
		o(s)
	}
	if s.model == "" && len(s.models) > 0 {
		s.model = s.models[0]
	}
	return s
}

func (s *Session) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

func (s *Session) Models() []string {
	return append([]string(nil), s.models...)
}

// SetModel changes the model used by the next request. Past turns are kept.
func (s *Session) SetModel(model string) error {
	model = strings.TrimSpace(model)
	if len(s.models) > 0 {
		found := false
		for _, m := range s.models {
			if m == model {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %q", ErrUnknownModel, model)
		}
	} else if model == "" {
		return fmt.Errorf("%w: empty", ErrUnknownModel)
	}
	s.mu.Lock()
	s.model = model
	s.mu.Unlock()
	s.logf("[model] %s", model)
	return nil
}

func (s *Session) Turns() []Turn {
	return s.conv.Turns()
}

// Submit runs one exchange. Blank input is rejected before anything is
// recorded. Otherwise the user turn is appended, the responder is called with
// the whole history, each fragment goes to render in delivery order, and the
// concatenation is appended as the assistant turn. On failure no assistant
// turn is added and the user turn stays.
func (s *Session) Submit(ctx context.Context, input string, status Status, render func(string)) (Turn, error) {
	if strings.TrimSpace(input) == "" {
		return Turn{}, ErrEmptyInput
	}
	if !s.busy.TryLock() {
		return Turn{}, ErrBusy
	}
	defer s.busy.Unlock()

	if status == nil {
		status = nopStatus{}
	}
	s.conv.Append(Turn{Role: RoleUser, Content: input})
	model := s.Model()
	s.logf("[user] model=%s len=%d", model, len(input))

	stream, err := s.responder.Respond(ctx, model, s.conv.Turns(), status)
	if err != nil {
		s.logf("[failed] %v", err)
		return Turn{}, err
	}
	defer stream.Close()

	var b strings.Builder
	for stream.Next() {
		frag := stream.Current()
		b.WriteString(frag)
		if render != nil {
			render(frag)
		}
	}
	if err := stream.Err(); err != nil {
		s.logf("[stream failed] %v", err)
		return Turn{}, err
	}
	reply := Turn{Role: RoleAssistant, Content: b.String()}
	s.conv.Append(reply)
	s.logf("[assistant] len=%d", len(reply.Content))
	return reply, nil
}

func (s *Session) logf(format string, args ...any) {
	if s.log != nil {
		s.log(fmt.Sprintf(format, args...))
	}
}
