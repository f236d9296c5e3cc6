package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibreez3/hult-gpt/chat"
	"github.com/ibreez3/hult-gpt/config"
)

func newRouter(t *testing.T, mode string, completer *stubCompleter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t, mode)
	var pinger Pinger
	if completer != nil {
		pinger = completer
	}
	mgr := NewManager(cfg, nil)
	if completer != nil {
		mgr = NewManager(cfg, completer)
	}
	r := gin.New()
	NewHandler(cfg, mgr, pinger).Register(r)
	return r
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func startSession(t *testing.T, r http.Handler) string {
	t.Helper()
	rr := do(r, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.NotEmpty(t, out.ID)
	return out.ID
}

func TestHandler_MessageStreamsFragments(t *testing.T) {
	completer := &stubCompleter{fragments: []string{"Hi", " there", "!"}}
	r := newRouter(t, config.ModeGPT, completer)
	id := startSession(t, r)

	rr := do(r, http.MethodPost, "/api/sessions/"+id+"/messages", MessageReq{Content: "Hello"})
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Equal(t, 3, strings.Count(body, "event:fragment"))
	assert.Contains(t, body, "event:done")
	assert.Less(t, strings.Index(body, "event:fragment"), strings.Index(body, "event:done"))

	rr = do(r, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Turns []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.Turns, 2)
	assert.Equal(t, "user", got.Turns[0].Role)
	assert.Equal(t, "Hello", got.Turns[0].Content)
	assert.Equal(t, "assistant", got.Turns[1].Role)
	assert.Equal(t, "Hi there!", got.Turns[1].Content)
}

func TestHandler_TerminalFailure(t *testing.T) {
	completer := &stubCompleter{failures: 10, err: errors.New("You exceeded your current quota")}
	r := newRouter(t, config.ModeGPT, completer)
	id := startSession(t, r)

	rr := do(r, http.MethodPost, "/api/sessions/"+id+"/messages", MessageReq{Content: "Hello"})
	body := rr.Body.String()
	assert.Equal(t, 5, completer.calls)
	assert.Equal(t, 9, strings.Count(body, "event:status"))
	assert.Contains(t, body, "event:error")
	assert.Contains(t, body, "Failed after multiple retries")
	assert.NotContains(t, body, "event:done")
}

type blockingCompleter struct {
	entered chan struct{}
	release chan struct{}
}

func (c *blockingCompleter) Stream(ctx context.Context, model string, turns []chat.Turn) (chat.Stream, error) {
	close(c.entered)
	<-c.release
	return chat.FragmentStream("late"), nil
}

func TestHandler_BusySessionAnswersJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t, config.ModeGPT)
	completer := &blockingCompleter{entered: make(chan struct{}), release: make(chan struct{})}
	r := gin.New()
	NewHandler(cfg, NewManager(cfg, completer), nil).Register(r)
	id := startSession(t, r)

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- do(r, http.MethodPost, "/api/sessions/"+id+"/messages", MessageReq{Content: "first"})
	}()
	<-completer.entered

	rr := do(r, http.MethodPost, "/api/sessions/"+id+"/messages", MessageReq{Content: "second"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.NotContains(t, rr.Header().Get("Content-Type"), "text/event-stream")

	close(completer.release)
	first := <-done
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "text/event-stream", first.Header().Get("Content-Type"))
	assert.Contains(t, first.Body.String(), "event:done")
}

func TestHandler_EmptyMessage(t *testing.T) {
	completer := &stubCompleter{fragments: []string{"x"}}
	r := newRouter(t, config.ModeGPT, completer)
	id := startSession(t, r)

	rr := do(r, http.MethodPost, "/api/sessions/"+id+"/messages", MessageReq{Content: "  "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, completer.calls)
}

func TestHandler_Models(t *testing.T) {
	r := newRouter(t, config.ModeEcho, nil)
	id := startSession(t, r)

	rr := do(r, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var models ModelsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &models))
	assert.Equal(t, "gpt-4o-mini", models.Default)
	assert.Len(t, models.Models, 3)

	rr = do(r, http.MethodPut, "/api/sessions/"+id+"/model", ModelReq{Model: "gpt-4-turbo"})
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = do(r, http.MethodPut, "/api/sessions/"+id+"/model", ModelReq{Model: "gpt-9"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_NotFoundAndDelete(t *testing.T) {
	r := newRouter(t, config.ModeEcho, nil)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/sessions/nope", nil).Code)

	id := startSession(t, r)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/api/sessions/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/sessions/"+id+"/messages", MessageReq{Content: "hi"}).Code)
}

func TestHandler_Status(t *testing.T) {
	r := newRouter(t, config.ModeGPT, &stubCompleter{err: errors.New("Incorrect API key provided")})
	rr := do(r, http.MethodGet, "/api/status", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "Incorrect API key")

	r = newRouter(t, config.ModeGPT, &stubCompleter{})
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/status", nil).Code)
}
