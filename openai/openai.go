package openai

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/openai/openai-go/v3" // imported as openai
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"

	"github.com/ibreez3/hult-gpt/chat"
)

type Client struct {
	cli openai.Client
}

// NewClient builds a client with the SDK's own retries turned off; the
// caller's retry policy owns the schedule.
func NewClient(apiKey string, baseURL string) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		cli: openai.NewClient(opts...),
	}
}

// Stream opens a streaming chat completion over the full history.
func (c *Client) Stream(ctx context.Context, model string, turns []chat.Turn) (chat.Stream, error) {
	stream := c.cli.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    model,
		Messages: toMessages(turns),
	})
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, classify(err)
	}
	return &chunkStream{s: stream}, nil
}

// Ping lists models to check the key and the endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.cli.Models.List(ctx); err != nil {
		return classify(err)
	}
	return nil
}

func toMessages(turns []chat.Turn) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case chat.RoleAssistant:
			out = append(out, openai.AssistantMessage(t.Content))
		default:
			out = append(out, openai.UserMessage(t.Content))
		}
	}
	return out
}

type chunkStream struct {
	s   *ssestream.Stream[openai.ChatCompletionChunk]
	cur string
}

func (c *chunkStream) Next() bool {
	for c.s.Next() {
		chunk := c.s.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			c.cur = delta
			return true
		}
	}
	return false
}

func (c *chunkStream) Current() string { return c.cur }

func (c *chunkStream) Err() error {
	if err := c.s.Err(); err != nil {
		return classify(err)
	}
	return nil
}

func (c *chunkStream) Close() error { return c.s.Close() }

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		// A "rate limit" or "quota" message always wins over the status code.
		kind := chat.ClassifyText(err.Error())
		if kind != chat.FailureRateLimit {
			switch apiErr.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				kind = chat.FailureAuth
			case http.StatusTooManyRequests:
				kind = chat.FailureRateLimit
			}
		}
		return &chat.CompletionError{Kind: kind, Err: err}
	}
	kind := chat.FailureTransport
	if chat.ClassifyText(err.Error()) == chat.FailureRateLimit {
		kind = chat.FailureRateLimit
	}
	return &chat.CompletionError{Kind: kind, Err: err}
}
