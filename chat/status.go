package chat

import (
	"errors"
	"fmt"
	"time"
)

const (
	RateLimitNotice  = "You've reached the API rate limit. The app will automatically retry after waiting."
	RetryLaterNotice = "Please try again later or contact support if the issue persists."
)

// Status is the ephemeral notice channel of a front end. It is separate from
// the rendered conversation.
type Status interface {
	RetryWait(attempt int, wait time.Duration)
	RateLimited(err error)
	Failed(err error)
}

func RetryWaitNotice(wait time.Duration) string {
	return fmt.Sprintf("API error occurred. Waiting %g seconds before retrying...", wait.Seconds())
}

func ErrorNotice(err error) string {
	return fmt.Sprintf("An error occurred: %v", err)
}

func FinalFailureNotice(err error) string {
	var re *RetryError
	if errors.As(err, &re) && re.Interrupted() {
		return fmt.Sprintf("Request cancelled after %d attempts: %v", re.Attempts, err)
	}
	return fmt.Sprintf("Failed after multiple retries: %v", err)
}

type nopStatus struct{}

func (nopStatus) RetryWait(int, time.Duration) {}
func (nopStatus) RateLimited(error)            {}
func (nopStatus) Failed(error)                 {}

// NoticeKind labels a recorded notice.
type NoticeKind string

const (
	NoticeRetryWait NoticeKind = "retry_wait"
	NoticeRateLimit NoticeKind = "rate_limit"
	NoticeError     NoticeKind = "error"
)

type Notice struct {
	Kind    NoticeKind    `json:"kind"`
	Attempt int           `json:"attempt,omitempty"`
	Wait    time.Duration `json:"wait_ns,omitempty"`
	Message string        `json:"message"`
}

// StatusLog keeps every notice it receives, in order. Front ends without a
// live surface and tests use it.
type StatusLog struct {
	Notices []Notice
}

func (l *StatusLog) RetryWait(attempt int, wait time.Duration) {
	l.Notices = append(l.Notices, Notice{Kind: NoticeRetryWait, Attempt: attempt, Wait: wait, Message: RetryWaitNotice(wait)})
}

func (l *StatusLog) RateLimited(err error) {
	l.Notices = append(l.Notices, Notice{Kind: NoticeRateLimit, Message: RateLimitNotice})
}

func (l *StatusLog) Failed(err error) {
	l.Notices = append(l.Notices, Notice{Kind: NoticeError, Message: ErrorNotice(err)})
}

func (l *StatusLog) Count(kind NoticeKind) int {
	n := 0
	for _, x := range l.Notices {
		if x.Kind == kind {
			n++
		}
	}
	return n
}

// Waits returns the durations reported before each retry.
func (l *StatusLog) Waits() []time.Duration {
	var out []time.Duration
	for _, x := range l.Notices {
		if x.Kind == NoticeRetryWait {
			out = append(out, x.Wait)
		}
	}
	return out
}

type loggingStatus struct {
	Status
	log func(string)
}

func (s loggingStatus) RetryWait(attempt int, wait time.Duration) {
	s.log(fmt.Sprintf("[retry] attempt %d failed, waiting %s", attempt, wait))
	s.Status.RetryWait(attempt, wait)
}

func (s loggingStatus) RateLimited(err error) {
	s.log("[rate limit] " + err.Error())
	s.Status.RateLimited(err)
}

func (s loggingStatus) Failed(err error) {
	s.log("[api error] " + err.Error())
	s.Status.Failed(err)
}
