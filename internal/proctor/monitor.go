// Package proctor tracks environment signals that suggest the candidate
// left the monitored context. It only counts and reports; it never takes
// corrective action.
package proctor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/models"
)

// Affordance is a disruptive browser action the monitor tries to suppress.
type Affordance string

const (
	AffordanceCloseTab         Affordance = "close_tab"
	AffordanceLeavePage        Affordance = "leave_page"
	AffordanceContextMenu      Affordance = "context_menu"
	AffordanceFullscreenToggle Affordance = "fullscreen_toggle"
)

// Violation identifies which counter moved.
type Violation string

const (
	ViolationFullscreenExit Violation = "fullscreen_exit"
	ViolationTabSwitch      Violation = "tab_switch"
)

// Monitor is safe for concurrent use. The zero value is not usable; call New.
type Monitor struct {
	log *logrus.Logger
	now func() time.Time

	mu               sync.Mutex
	active           bool
	expectFullscreen bool
	fullscreen       bool
	counters         models.ProctoringCounters
	facePresent      *bool
	outSince         time.Time
	outOfFrame       time.Duration

	onViolation func(v Violation, c models.ProctoringCounters)
}

func New(log *logrus.Logger) *Monitor {
	if log == nil {
		log = logger.Discard()
	}
	return &Monitor{log: log, now: time.Now}
}

// OnViolation registers a hook fired after a counter increments; the UI
// uses it to show the "return to fullscreen" warning.
func (m *Monitor) OnViolation(fn func(v Violation, c models.ProctoringCounters)) {
	m.mu.Lock()
	m.onViolation = fn
	m.mu.Unlock()
}

// Reset zeroes counters and face tracking for a new session and arms the
// monitor.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.counters = models.ProctoringCounters{}
	m.facePresent = nil
	m.outSince = time.Time{}
	m.outOfFrame = 0
	m.active = true
	m.mu.Unlock()
}

// Disarm stops interception and counting; counters are kept for the summary.
func (m *Monitor) Disarm() {
	m.mu.Lock()
	m.active = false
	m.expectFullscreen = false
	m.mu.Unlock()
}

// ExpectFullscreen records whether the session should currently be in
// fullscreen. Leaving fullscreen only counts while this is set.
func (m *Monitor) ExpectFullscreen(on bool) {
	m.mu.Lock()
	m.expectFullscreen = on
	m.mu.Unlock()
}

// FullscreenChanged is fed from the environment's fullscreen change event.
func (m *Monitor) FullscreenChanged(active bool) {
	m.mu.Lock()
	was := m.fullscreen
	m.fullscreen = active
	if !(was && !active && m.expectFullscreen && m.active) {
		m.mu.Unlock()
		return
	}
	m.counters.FullscreenExits++
	c, hook := m.counters, m.onViolation
	m.mu.Unlock()

	m.log.WithField("fullscreen_exits", c.FullscreenExits).Warn("fullscreen exited")
	if hook != nil {
		hook(ViolationFullscreenExit, c)
	}
}

// VisibilityChanged is fed from the page visibility event.
func (m *Monitor) VisibilityChanged(hidden bool) {
	m.mu.Lock()
	if !hidden || !m.active {
		m.mu.Unlock()
		return
	}
	m.counters.TabSwitches++
	c, hook := m.counters, m.onViolation
	m.mu.Unlock()

	m.log.WithField("tab_switches", c.TabSwitches).Warn("tab switch detected")
	if hook != nil {
		hook(ViolationTabSwitch, c)
	}
}

// Intercept reports whether the environment should try to suppress a. It
// is best effort: the platform may still allow the action.
func (m *Monitor) Intercept(a Affordance) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return false
	}
	switch a {
	case AffordanceCloseTab, AffordanceLeavePage, AffordanceContextMenu, AffordanceFullscreenToggle:
		return true
	}
	return false
}

// InterceptKey maps a key event to an affordance: F11 toggles fullscreen,
// Ctrl/Cmd+W closes the tab.
func (m *Monitor) InterceptKey(key string, ctrl, meta bool) bool {
	switch {
	case key == "F11":
		return m.Intercept(AffordanceFullscreenToggle)
	case (ctrl || meta) && strings.EqualFold(key, "w"):
		return m.Intercept(AffordanceCloseTab)
	}
	return false
}

// SetFacePresence is fed by the video channel. Out-of-frame time is
// accumulated between a loss and the next presence signal.
func (m *Monitor) SetFacePresence(present bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	wasPresent := m.facePresent == nil || *m.facePresent
	switch {
	case wasPresent && !present:
		m.outSince = now
	case !wasPresent && present && !m.outSince.IsZero():
		d := now.Sub(m.outSince)
		m.outOfFrame += d
		m.outSince = time.Time{}
		m.log.WithField("duration_ms", d.Milliseconds()).Info("face back in frame")
	}
	m.facePresent = &present
}

func (m *Monitor) Counters() models.ProctoringCounters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters
}

func (m *Monitor) Status() models.ProctoringStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.outOfFrame
	if !m.outSince.IsZero() {
		out += m.now().Sub(m.outSince)
	}
	st := models.ProctoringStatus{
		ProctoringCounters: m.counters,
		FullscreenActive:   m.fullscreen,
		OutOfFrameMS:       out.Milliseconds(),
	}
	if m.facePresent != nil {
		v := *m.facePresent
		st.FacePresent = &v
	}
	return st
}

// Summary renders the activity lines shown in the exit dialog. It is empty
// when nothing was detected.
func Summary(c models.ProctoringCounters) []string {
	var lines []string
	if c.FullscreenExits > 0 {
		s := "s"
		if c.FullscreenExits == 1 {
			s = ""
		}
		lines = append(lines, fmt.Sprintf("%d fullscreen exit%s detected", c.FullscreenExits, s))
	}
	if c.TabSwitches > 0 {
		s := "es"
		if c.TabSwitches == 1 {
			s = ""
		}
		lines = append(lines, fmt.Sprintf("%d tab/window switch%s detected", c.TabSwitches, s))
	}
	return lines
}
