package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/mockinterview/internal/interview"
)

// Interview is the live session as driven over HTTP.
type Interview interface {
	Start(ctx context.Context, sessionID string) error
	SubmitAnswer(ctx context.Context, text string) error
	StopListening() string
	ResumeListening() error
	SubmitCode(ctx context.Context, code string) error
	End(ctx context.Context, reason string) (interview.Summary, error)
	Snapshot() interview.Snapshot
}

type SessionHandler struct {
	iv Interview
}

func NewSessionHandler(iv Interview) *SessionHandler {
	return &SessionHandler{iv: iv}
}

type startReq struct {
	SessionID string `json:"session_id" binding:"required"`
}

type answerReq struct {
	Text string `json:"text" binding:"required"`
}

type codeReq struct {
	Code string `json:"code" binding:"required"`
}

type endReq struct {
	Reason string `json:"reason"`
}

func (h *SessionHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.iv.Snapshot())
}

func (h *SessionHandler) Start(c *gin.Context) {
	var req startReq
	if !bind(c, "SessionHandler.Start", &req) {
		return
	}
	if err := h.iv.Start(c.Request.Context(), req.SessionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.iv.Snapshot())
}

func (h *SessionHandler) Answer(c *gin.Context) {
	var req answerReq
	if !bind(c, "SessionHandler.Answer", &req) {
		return
	}
	if err := h.iv.SubmitAnswer(c.Request.Context(), req.Text); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.iv.Snapshot())
}

func (h *SessionHandler) StopListening(c *gin.Context) {
	draft := h.iv.StopListening()
	c.JSON(http.StatusOK, gin.H{"draft": draft, "state": h.iv.Snapshot().State})
}

func (h *SessionHandler) ResumeListening(c *gin.Context) {
	if err := h.iv.ResumeListening(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.iv.Snapshot())
}

func (h *SessionHandler) SubmitCode(c *gin.Context) {
	var req codeReq
	if !bind(c, "SessionHandler.SubmitCode", &req) {
		return
	}
	if err := h.iv.SubmitCode(c.Request.Context(), req.Code); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.iv.Snapshot())
}

// End always leaves the session ended; a failed remote confirmation is
// reported next to the summary rather than as an error status.
func (h *SessionHandler) End(c *gin.Context) {
	var req endReq
	if c.Request.ContentLength > 0 && !bind(c, "SessionHandler.End", &req) {
		return
	}
	sum, err := h.iv.End(c.Request.Context(), req.Reason)
	resp := gin.H{"summary": sum}
	if err != nil {
		resp["warning"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}
