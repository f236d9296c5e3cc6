package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ibreez3/hult-gpt/chat"
	"github.com/ibreez3/hult-gpt/config"
)

// Pinger checks that the completion endpoint is reachable with our key.
type Pinger interface {
	Ping(ctx context.Context) error
}

type StartReq struct {
	Mode string `json:"mode"`
}

type ModelReq struct {
	Model string `json:"model"`
}

type MessageReq struct {
	Content string `json:"content"`
}

type Handler struct {
	mgr    *Manager
	cfg    config.Config
	pinger Pinger
}

func NewHandler(cfg config.Config, mgr *Manager, pinger Pinger) *Handler {
	return &Handler{mgr: mgr, cfg: cfg, pinger: pinger}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/api/models", h.models)
	r.GET("/api/status", h.status)
	r.POST("/api/sessions", h.start)
	r.GET("/api/sessions/:id", h.get)
	r.DELETE("/api/sessions/:id", h.delete)
	r.PUT("/api/sessions/:id/model", h.setModel)
	r.POST("/api/sessions/:id/messages", h.message)
}

func (h *Handler) models(c *gin.Context) {
	c.JSON(http.StatusOK, GetModels(h.cfg))
}

func (h *Handler) status(c *gin.Context) {
	if h.pinger == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true, "mode": h.cfg.Chat.Mode})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()
	if err := h.pinger.Ping(ctx); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": err.Error(), "kind": chat.KindOf(err).String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "mode": h.cfg.Chat.Mode})
}

func (h *Handler) start(c *gin.Context) {
	var req StartReq
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			return
		}
	}
	s, err := h.mgr.Start(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": s.ID, "mode": s.Mode, "model": s.Model()})
}

func (h *Handler) session(c *gin.Context) *Session {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil
	}
	return s
}

func (h *Handler) get(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": s.ID, "mode": s.Mode, "model": s.Model(), "turns": s.Turns()})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.mgr.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) setModel(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	var req ModelReq
	if err := c.BindJSON(&req); err != nil {
		return
	}
	if err := s.SetModel(req.Model); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": s.Model()})
}

// message streams one exchange as server-sent events: "status" notices,
// "fragment" chunks, then "done" with the assistant turn or "error".
func (h *Handler) message(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	var req MessageReq
	if err := c.BindJSON(&req); err != nil {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": chat.ErrEmptyInput.Error()})
		return
	}
	events := &sseStatus{c: c}
	turn, err := s.Submit(c.Request.Context(), req.Content, events, func(fragment string) {
		events.event("fragment", fragment)
	})
	if errors.Is(err, chat.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		events.event("error", gin.H{"message": chat.FinalFailureNotice(err), "hint": chat.RetryLaterNotice})
		return
	}
	events.event("done", turn)
}

// sseStatus writes events for one exchange. The stream headers go out with
// the first event so a rejected submit can still answer with plain JSON.
type sseStatus struct {
	c       *gin.Context
	started bool
}

func (s *sseStatus) event(name string, data any) {
	if !s.started {
		s.c.Header("Content-Type", "text/event-stream")
		s.c.Header("Cache-Control", "no-cache")
		s.c.Header("Connection", "keep-alive")
		s.started = true
	}
	s.c.SSEvent(name, data)
	s.c.Writer.Flush()
}

func (s *sseStatus) send(n chat.Notice) {
	s.event("status", n)
}

func (s *sseStatus) RetryWait(attempt int, wait time.Duration) {
	s.send(chat.Notice{Kind: chat.NoticeRetryWait, Attempt: attempt, Wait: wait, Message: chat.RetryWaitNotice(wait)})
}

func (s *sseStatus) RateLimited(err error) {
	s.send(chat.Notice{Kind: chat.NoticeRateLimit, Message: chat.RateLimitNotice})
}

func (s *sseStatus) Failed(err error) {
	s.send(chat.Notice{Kind: chat.NoticeError, Message: chat.ErrorNotice(err)})
}
