package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/mockinterview/internal/proctor"
	"github.com/yoockh/mockinterview/internal/utils"
)

type ProctorHandler struct {
	m *proctor.Monitor
}

func NewProctorHandler(m *proctor.Monitor) *ProctorHandler {
	return &ProctorHandler{m: m}
}

// proctorEvent is one environment signal reported by the UI.
type proctorEvent struct {
	Type string `json:"type" binding:"required"` // fullscreen|visibility|key|affordance|face

	Active     bool   `json:"active"`
	Hidden     bool   `json:"hidden"`
	Present    bool   `json:"present"`
	Key        string `json:"key"`
	Ctrl       bool   `json:"ctrl"`
	Meta       bool   `json:"meta"`
	Affordance string `json:"affordance"`
}

func (h *ProctorHandler) Status(c *gin.Context) {
	st := h.m.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":   st,
		"activity": proctor.Summary(st.ProctoringCounters),
	})
}

func (h *ProctorHandler) Event(c *gin.Context) {
	const op = "ProctorHandler.Event"
	var ev proctorEvent
	if !bind(c, op, &ev) {
		return
	}

	intercept := false
	switch ev.Type {
	case "fullscreen":
		h.m.FullscreenChanged(ev.Active)
	case "visibility":
		h.m.VisibilityChanged(ev.Hidden)
	case "face":
		h.m.SetFacePresence(ev.Present)
	case "key":
		intercept = h.m.InterceptKey(ev.Key, ev.Ctrl, ev.Meta)
	case "affordance":
		intercept = h.m.Intercept(proctor.Affordance(ev.Affordance))
	default:
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "unknown event type", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"intercept": intercept,
		"counters":  h.m.Counters(),
	})
}
