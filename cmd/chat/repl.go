package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/ibreez3/hult-gpt/chat"
	"github.com/ibreez3/hult-gpt/service"
)

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#A855F7")).Bold(true)
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F43F5E")).Bold(true)
)

var titles = map[string]string{
	"echo":      "💬 Hult GPT v1.0",
	"simulated": "💬 Hult GPT v1.2 — Simple",
	"gpt":       "💬 Hult GPT v1.3 — ChatGPT Clone",
}

type repl struct {
	sess   *chat.Session
	mode   string
	out    io.Writer
	errOut io.Writer
	pinger service.Pinger
	md     *glamour.TermRenderer
}

func newREPL(sess *chat.Session, mode string, out, errOut io.Writer) *repl {
	r := &repl{sess: sess, mode: mode, out: out, errOut: errOut}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if md, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80)); err == nil {
			r.md = md
		}
	}
	return r
}

// termStatus prints notices to stderr so they never mix into a reply.
type termStatus struct {
	w io.Writer
}

func (s termStatus) RetryWait(attempt int, wait time.Duration) {
	fmt.Fprintln(s.w, infoStyle.Render(chat.RetryWaitNotice(wait)))
}

func (s termStatus) RateLimited(err error) {
	fmt.Fprintln(s.w, warningStyle.Render(chat.RateLimitNotice))
}

func (s termStatus) Failed(err error) {
	fmt.Fprintln(s.w, errorStyle.Render(chat.ErrorNotice(err)))
}

func (r *repl) Run() error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	fmt.Fprintln(r.out, titleStyle.Render(titles[r.mode]))
	fmt.Fprintln(r.out, infoStyle.Render(fmt.Sprintf("model %s · /help for commands", r.sess.Model())))

	for {
		input, err := line.Prompt("you> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(strings.TrimSpace(input), "/") {
			if !r.command(strings.TrimSpace(input)) {
				return nil
			}
			continue
		}
		r.exchange(input)
	}
}

func (r *repl) exchange(input string) {
	fmt.Fprint(r.out, assistantStyle.Render("assistant> "))
	_, err := r.sess.Submit(context.Background(), input, termStatus{w: r.errOut}, func(fragment string) {
		fmt.Fprint(r.out, fragment)
	})
	fmt.Fprintln(r.out)
	if err != nil {
		fmt.Fprintln(r.errOut, errorStyle.Render(chat.FinalFailureNotice(err)))
		fmt.Fprintln(r.errOut, infoStyle.Render(chat.RetryLaterNotice))
	}
}

// command handles a slash command and reports whether the loop continues.
func (r *repl) command(input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/q", "/exit":
		return false
	case "/help", "/h":
		fmt.Fprintln(r.out, infoStyle.Render("/model [id]  show or switch model\n/models      list models\n/history     show the conversation\n/status      check the API\n/quit        exit"))
	case "/models":
		for _, m := range r.sess.Models() {
			marker := "  "
			if m == r.sess.Model() {
				marker = "* "
			}
			fmt.Fprintln(r.out, marker+m)
		}
	case "/model":
		if len(fields) == 1 {
			fmt.Fprintln(r.out, r.sess.Model())
			return true
		}
		if err := r.sess.SetModel(fields[1]); err != nil {
			fmt.Fprintln(r.errOut, errorStyle.Render(err.Error()))
			return true
		}
		fmt.Fprintln(r.out, infoStyle.Render("next replies use "+r.sess.Model()))
	case "/history":
		r.history()
	case "/status":
		r.status()
	default:
		fmt.Fprintln(r.errOut, warningStyle.Render("unknown command "+fields[0]))
	}
	return true
}

func (r *repl) history() {
	for _, t := range r.sess.Turns() {
		label := promptStyle.Render("you")
		if t.Role == chat.RoleAssistant {
			label = assistantStyle.Render("assistant")
		}
		fmt.Fprintln(r.out, label)
		fmt.Fprintln(r.out, r.render(t.Content))
	}
}

func (r *repl) render(content string) string {
	if r.md == nil {
		return content
	}
	out, err := r.md.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

func (r *repl) status() {
	if r.pinger == nil {
		fmt.Fprintln(r.out, infoStyle.Render(r.mode+" mode does not call the API"))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := r.pinger.Ping(ctx); err != nil {
		fmt.Fprintln(r.errOut, errorStyle.Render("❌ API Error: "+err.Error()))
		return
	}
	fmt.Fprintln(r.out, assistantStyle.Render("✅ API connection successful"))
}
