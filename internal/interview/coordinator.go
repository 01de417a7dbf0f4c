// Package interview drives one live interview session: it owns the
// lifecycle state, the transcript and the sequencing between the remote
// service, speech and the proctoring monitor.
package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yoockh/mockinterview/internal/channel"
	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/proctor"
	"github.com/yoockh/mockinterview/internal/speech"
	"github.com/yoockh/mockinterview/internal/utils"
)

const (
	codeFeedbackFormat = "Code submitted! Score: %s/10. Feedback: %s"
	skippedPrefix      = "Skipped question: "
)

var tracer = otel.Tracer("github.com/yoockh/mockinterview/internal/interview")

// End reasons.
const (
	ReasonUserExit      = "user_exit"
	ReasonRemoteClosing = "remote_closing"
	ReasonClosed        = "closed"
)

// Coordinator is safe for concurrent use. Every state transition happens
// under mu; remote calls run outside it and their results are discarded when
// the session generation moved on.
type Coordinator struct {
	d   Deps
	log *logrus.Logger
	now func() time.Time

	// canceled on End; scopes every remote call
	ctx    context.Context
	cancel context.CancelFunc

	finished   chan struct{}
	finishOnce sync.Once

	mu          sync.Mutex
	state       models.InterviewState
	session     models.Session
	transcript  []models.TranscriptEntry
	chat        channel.Chat
	video       io.Closer
	gen         uint64
	utter       uint64
	speaking    bool
	pending     *models.InboundMessage
	draft       string
	submitting  bool
	sending     bool
	channelLost bool
	summary     *Summary
}

// New takes ownership of d.Speech. profile carries what is known before the
// interview starts (candidate, role, avatar); its SessionID is set by Start.
func New(d Deps, profile models.Session) (*Coordinator, error) {
	const op = "interview.New"
	if d.Remote == nil || d.Speech == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "remote and speech are required", nil)
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if d.Monitor == nil {
		d.Monitor = proctor.New(d.Log)
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		d:        d,
		log:      d.Log,
		now:      d.Now,
		ctx:      ctx,
		cancel:   cancel,
		finished: make(chan struct{}),
		state:    models.StateIdle,
		session:  profile,
	}
	d.Speech.OnWindowEnd(c.onWindowEnd)
	return c, nil
}

// Start opens the chat channel, asks for the opening question and speaks
// it. It is a no-op unless the coordinator is Idle. On failure the channel
// is closed and the state returns to Idle.
func (c *Coordinator) Start(ctx context.Context, sessionID string) (err error) {
	const op = "Coordinator.Start"
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session id is required", nil)
	}
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	if c.state != models.StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	c.session.SessionID = sessionID
	c.channelLost = false
	c.setStateLocked(models.StateStarting)
	c.mu.Unlock()

	rctx, done := c.scoped(ctx)
	defer done()

	chat, err := c.d.Remote.DialChat(rctx, sessionID, channel.ChatHandlers{
		OnMessage: func(m models.InboundMessage) { c.onPush(gen, m) },
		OnClose:   func(err error) { c.onChatLost(gen, err) },
	})
	if err != nil {
		return c.failStart(gen, nil, op, "could not open chat channel", err)
	}

	resp, err := c.d.Remote.Start(rctx, sessionID)
	if err != nil {
		return c.failStart(gen, chat, op, "could not start interview", err)
	}

	c.mu.Lock()
	if c.gen != gen || c.state != models.StateStarting {
		c.mu.Unlock()
		_ = chat.Close()
		return utils.E(utils.CodeFailedPrecondition, op, "session ended while starting", nil)
	}
	now := c.now()
	c.chat = chat
	c.session.StartedAt = &now
	c.d.Monitor.Reset()
	c.d.Monitor.ExpectFullscreen(true)
	c.entry().Info("interview started")
	c.deliverLocked(models.InboundMessage{
		Type:           models.MessageTypeResponse,
		Content:        resp.Opening,
		QuestionNumber: resp.QuestionNumber,
	})
	c.mu.Unlock()

	c.openVideo(gen)
	return nil
}

func (c *Coordinator) failStart(gen uint64, chat channel.Chat, op, msg string, err error) error {
	if chat != nil {
		_ = chat.Close()
	}
	c.mu.Lock()
	if c.gen == gen && c.state == models.StateStarting {
		c.pending = nil
		c.setStateLocked(models.StateIdle)
	}
	c.mu.Unlock()
	c.log.WithError(err).Warn("interview start failed")
	return remoteError(op, msg, err)
}

func (c *Coordinator) openVideo(gen uint64) {
	if c.d.Video == nil {
		return
	}
	v, err := c.d.Video(c.ctx, c.d.Monitor.SetFacePresence)
	if err != nil {
		c.log.WithError(err).Warn("video channel unavailable; continuing without face detection")
		return
	}
	c.mu.Lock()
	if c.gen != gen || c.state == models.StateEnded {
		c.mu.Unlock()
		_ = v.Close()
		return
	}
	c.video = v
	c.mu.Unlock()
}

// SubmitAnswer forwards the candidate's answer. Allowed while Listening or
// AwaitingAnswer; a failed send leaves the answer as the draft and the
// state AwaitingAnswer so the user can retry.
func (c *Coordinator) SubmitAnswer(ctx context.Context, text string) error {
	const op = "Coordinator.SubmitAnswer"
	text = strings.TrimSpace(text)
	if text == "" {
		return utils.E(utils.CodeInvalidArgument, op, "answer is empty", nil)
	}

	c.mu.Lock()
	chat, gen, err := c.beginSubmitLocked(op, text)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.send(ctx, op, chat, gen, text)
}

// beginSubmitLocked stops capture and claims the send. The chat returned
// must be written without mu held; send finishes the transition.
func (c *Coordinator) beginSubmitLocked(op, text string) (channel.Chat, uint64, error) {
	if c.state != models.StateListening && c.state != models.StateAwaitingAnswer {
		return nil, 0, utils.E(utils.CodeFailedPrecondition, op, "not waiting for an answer", nil)
	}
	if c.sending {
		return nil, 0, utils.E(utils.CodeConflict, op, "an answer is already being sent", nil)
	}

	// capture stops and its buffer is dropped; text is the answer now
	c.d.Speech.StopListening()

	if c.chat == nil || c.channelLost {
		c.draft = text
		c.setStateLocked(models.StateAwaitingAnswer)
		return nil, 0, utils.E(utils.CodeUnavailable, op, "chat channel is not connected", utils.ErrClosed)
	}
	c.sending = true
	return c.chat, c.gen, nil
}

func (c *Coordinator) send(ctx context.Context, op string, chat channel.Chat, gen uint64, text string) error {
	rctx, done := c.scoped(ctx)
	serr := chat.Send(rctx, text)
	done()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false
	if c.gen != gen || !c.state.Active() {
		return utils.E(utils.CodeFailedPrecondition, op, "session ended while the answer was sent", nil)
	}
	if serr != nil {
		c.draft = text
		c.setStateLocked(models.StateAwaitingAnswer)
		return remoteError(op, "answer not sent", serr)
	}

	c.draft = ""
	c.appendLocked(models.EntryAnswer, text)
	c.setStateLocked(models.StateStarting)
	c.deliverPendingLocked()
	return nil
}

// StopListening closes the capture window (push-to-talk release) and
// returns the answer collected so far. No-op unless Listening.
func (c *Coordinator) StopListening() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != models.StateListening || c.sending {
		return ""
	}
	c.draft = joinText(c.draft, c.d.Speech.StopListening())
	c.setStateLocked(models.StateAwaitingAnswer)
	return c.draft
}

// ResumeListening reopens capture from AwaitingAnswer; the draft is kept
// and extended by what is heard next.
func (c *Coordinator) ResumeListening() error {
	const op = "Coordinator.ResumeListening"
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != models.StateAwaitingAnswer || c.sending {
		return utils.E(utils.CodeFailedPrecondition, op, "not awaiting an answer", nil)
	}
	if err := c.d.Speech.StartListening(); err != nil {
		return err
	}
	c.setStateLocked(models.StateListening)
	return nil
}

// onWindowEnd runs when the platform closed a capture window on its own.
// A non-empty answer is submitted; an empty one waits for the user.
func (c *Coordinator) onWindowEnd(text string) {
	const op = "Coordinator.autoSubmit"
	c.mu.Lock()
	if c.state != models.StateListening || c.sending {
		c.mu.Unlock()
		return
	}
	full := joinText(c.draft, text)
	if full == "" {
		c.setStateLocked(models.StateAwaitingAnswer)
		c.mu.Unlock()
		return
	}
	chat, gen, err := c.beginSubmitLocked(op, full)
	if err != nil {
		c.entry().WithError(err).Warn("auto submit failed; answer kept as draft")
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// off the speech dispatcher so later callbacks are not held up by the socket
	go func() {
		if err := c.send(c.ctx, op, chat, gen, full); err != nil {
			c.mu.Lock()
			c.entry().WithError(err).Warn("auto submit failed; answer kept as draft")
			c.mu.Unlock()
		}
	}()
}

// SubmitCode sends the solution for the current coding question and speaks
// the evaluation. On failure the state stays CodingPending.
func (c *Coordinator) SubmitCode(ctx context.Context, code string) (err error) {
	const op = "Coordinator.SubmitCode"
	if strings.TrimSpace(code) == "" {
		return utils.E(utils.CodeInvalidArgument, op, "code is empty", nil)
	}
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.Int("code.bytes", len(code))))
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	if c.state != models.StateCodingPending {
		c.mu.Unlock()
		return utils.E(utils.CodeFailedPrecondition, op, "no coding question is pending", nil)
	}
	if c.submitting {
		c.mu.Unlock()
		return utils.E(utils.CodeConflict, op, "code submission already in progress", nil)
	}
	c.submitting = true
	gen, id := c.gen, c.session.SessionID
	c.mu.Unlock()

	rctx, done := c.scoped(ctx)
	defer done()
	resp, rerr := c.d.Remote.SubmitCode(rctx, id, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if c.gen != gen || c.state != models.StateCodingPending {
		return utils.E(utils.CodeFailedPrecondition, op, "session ended during code submission", nil)
	}
	if rerr != nil {
		c.entry().WithError(rerr).Warn("code submission failed")
		return remoteError(op, "code submission failed", rerr)
	}

	text := fmt.Sprintf(codeFeedbackFormat, strconv.FormatFloat(resp.Score, 'f', -1, 64), resp.Feedback)
	c.appendLocked(models.EntrySystem, text)
	c.setStateLocked(models.StateStarting)
	c.speakLocked(text, c.deliverPendingLocked)
	return nil
}

// End finishes the session from any state. Local teardown always happens;
// a failed end call is returned after the state is already Ended. Calling
// End again returns the first summary.
func (c *Coordinator) End(ctx context.Context, reason string) (Summary, error) {
	if reason == "" {
		reason = ReasonUserExit
	}
	return c.end(ctx, reason, true, "")
}

func (c *Coordinator) end(ctx context.Context, reason string, callRemote bool, remoteClosing string) (Summary, error) {
	const op = "Coordinator.End"

	c.mu.Lock()
	if c.state == models.StateEnded {
		var s Summary
		if c.summary != nil {
			s = *c.summary
		}
		c.mu.Unlock()
		return s, nil
	}
	started := c.session.StartedAt != nil
	callRemote = callRemote && c.chat != nil
	c.gen++
	c.utter++
	c.speaking = false
	c.pending = nil
	c.d.Speech.StopListening()
	c.d.Speech.CancelSpeech()
	c.d.Monitor.Disarm()
	if started {
		now := c.now()
		c.session.EndedAt = &now
	}
	c.setStateLocked(models.StateEnded)
	id, chat, video := c.session.SessionID, c.chat, c.video
	c.chat, c.video = nil, nil
	c.mu.Unlock()

	c.cancel()

	var rerr error
	closing := strings.TrimSpace(remoteClosing)
	if callRemote {
		sctx, span := tracer.Start(ctx, op, trace.WithAttributes(
			attribute.String("session.id", id),
			attribute.String("end.reason", reason),
		))
		resp, err := c.d.Remote.End(sctx, id)
		endSpan(span, err)
		if err != nil {
			c.log.WithError(err).WithField("session_id", id).Warn("end call failed; session closed locally")
			rerr = remoteError(op, "interview service did not confirm the end", err)
		} else {
			closing = strings.TrimSpace(resp.Closing)
		}
	}

	c.mu.Lock()
	if closing != "" {
		c.appendLocked(models.EntrySystem, closing)
		c.speakLocked(closing, c.finish)
	} else {
		c.finish()
	}
	sum := c.summaryLocked(reason, closing)
	c.summary = &sum
	report := c.reportLocked(reason)
	c.mu.Unlock()

	if chat != nil {
		_ = chat.Close()
	}
	if video != nil {
		_ = video.Close()
	}

	if started && c.d.Progress != nil {
		if err := c.d.Progress.MarkCompleted(ctx, id); err != nil {
			c.log.WithError(err).Warn("could not mark interview completed")
		}
	}
	if started && c.d.Reports != nil {
		if err := c.d.Reports.Record(ctx, report); err != nil {
			c.log.WithError(err).Warn("could not archive interview report")
		}
	}

	c.log.WithFields(logrus.Fields{
		"session_id": id,
		"reason":     reason,
		"questions":  sum.Questions,
		"answers":    sum.Answers,
	}).Info("interview ended")
	return sum, rerr
}

func (c *Coordinator) finish() {
	c.finishOnce.Do(func() { close(c.finished) })
}

// Finished is closed once the session ended and the closing remark, if
// any, has been spoken.
func (c *Coordinator) Finished() <-chan struct{} { return c.finished }

// Close ends an active session and releases the speech handles.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	active := c.state.Active()
	c.mu.Unlock()

	if active {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := c.End(ctx, ReasonClosed)
		cancel()
		if err != nil {
			c.log.WithError(err).Warn("end on close failed")
		}
	}
	err := c.d.Speech.Close()
	c.finish()
	return err
}

func (c *Coordinator) onPush(gen uint64, m models.InboundMessage) {
	if m.Type == models.MessageTypeClosing {
		c.mu.Lock()
		stale := gen != c.gen || !c.state.Active()
		c.mu.Unlock()
		if stale {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = c.end(ctx, ReasonRemoteClosing, false, m.Content)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || !c.state.Active() {
		c.log.WithField("question_number", m.QuestionNumber).Debug("push for inactive session dropped")
		return
	}
	if c.state == models.StateStarting && !c.speaking && c.chat != nil {
		c.deliverLocked(m)
		return
	}
	if c.pending != nil {
		c.entry().WithField("question_number", c.pending.QuestionNumber).Warn("pending question superseded")
		c.appendLocked(models.EntrySystem, skippedPrefix+c.pending.Content)
	}
	c.pending = &m
}

func (c *Coordinator) onChatLost(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || !c.state.Active() {
		return
	}
	c.channelLost = true
	c.entry().WithError(err).Error("chat channel lost")
	c.emitLocked(Event{Type: EventChannel, Message: "chat channel lost"})
}

// deliverLocked turns a pushed question into the next turn.
func (c *Coordinator) deliverLocked(m models.InboundMessage) {
	c.appendLocked(models.EntryQuestion, m.Content)
	if m.IsCodingQuestion {
		c.setStateLocked(models.StateCodingPending)
		c.speakLocked(m.Content, nil)
		return
	}
	c.setStateLocked(models.StateSpeaking)
	c.speakLocked(m.Content, func() {
		if c.state == models.StateSpeaking {
			c.listenLocked()
		}
	})
}

// deliverPendingLocked hands over a queued question once the coordinator
// is back in Starting with nothing playing.
func (c *Coordinator) deliverPendingLocked() {
	if c.pending == nil || c.state != models.StateStarting || c.speaking {
		return
	}
	m := *c.pending
	c.pending = nil
	c.deliverLocked(m)
}

func (c *Coordinator) listenLocked() {
	if err := c.d.Speech.StartListening(); err != nil {
		c.entry().WithError(err).Warn("listening unavailable; waiting for a typed answer")
		c.setStateLocked(models.StateAwaitingAnswer)
		return
	}
	c.setStateLocked(models.StateListening)
}

// speakLocked plays text; after runs under mu once it ends, unless a newer
// utterance took over.
func (c *Coordinator) speakLocked(text string, after func()) {
	c.utter++
	tok := c.utter
	c.speaking = true
	c.d.Speech.Speak(text, func(err error) { c.onSpeechEnd(tok, err, after) })
}

func (c *Coordinator) onSpeechEnd(tok uint64, err error, after func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok != c.utter {
		return
	}
	c.speaking = false
	if err != nil && !errors.Is(err, speech.ErrCanceled) && !errors.Is(err, utils.ErrClosed) {
		c.entry().WithError(err).Warn("speech playback failed")
	}
	if after != nil {
		after()
	}
}

func (c *Coordinator) appendLocked(kind models.EntryKind, text string) {
	ts := c.now()
	if n := len(c.transcript); n > 0 && ts.Before(c.transcript[n-1].Timestamp) {
		ts = c.transcript[n-1].Timestamp
	}
	e := models.TranscriptEntry{ID: uuid.NewString(), Kind: kind, Text: text, Timestamp: ts}
	c.transcript = append(c.transcript, e)
	c.emitLocked(Event{Type: EventTranscript, Entry: &e})
}

func (c *Coordinator) setStateLocked(s models.InterviewState) {
	if c.state == s {
		return
	}
	prev := c.state
	c.state = s
	c.log.WithFields(logrus.Fields{
		"session_id": c.session.SessionID,
		"from":       prev,
		"to":         s,
	}).Debug("state")
	c.emitLocked(Event{Type: EventState, State: s})
}

func (c *Coordinator) emitLocked(e Event) {
	if c.d.OnEvent == nil {
		return
	}
	e.At = c.now()
	c.d.OnEvent(e)
}

func (c *Coordinator) entry() *logrus.Entry {
	return c.log.WithFields(logrus.Fields{"session_id": c.session.SessionID, "state": c.state})
}

// scoped derives a context for a remote call that is also canceled by End.
func (c *Coordinator) scoped(ctx context.Context) (context.Context, func()) {
	rctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return rctx, func() {
		stop()
		cancel()
	}
}

func (c *Coordinator) State() models.InterviewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:           c.state,
		Session:         c.session,
		Transcript:      append([]models.TranscriptEntry(nil), c.transcript...),
		Proctoring:      c.d.Monitor.Status(),
		PendingQuestion: c.pending != nil,
		Draft:           c.draft,
		Heard:           c.d.Speech.Heard(),
		SubmittingCode:  c.submitting,
		SendingAnswer:   c.sending,
		ChannelLost:     c.channelLost,
	}
}

func (c *Coordinator) summaryLocked(reason, closing string) Summary {
	var q, a int
	for _, e := range c.transcript {
		switch e.Kind {
		case models.EntryQuestion:
			q++
		case models.EntryAnswer:
			a++
		}
	}
	counters := c.d.Monitor.Counters()
	return Summary{
		SessionID:  c.session.SessionID,
		Reason:     reason,
		Duration:   c.session.Duration(),
		Questions:  q,
		Answers:    a,
		Closing:    closing,
		Proctoring: counters,
		Activity:   proctor.Summary(counters),
	}
}

func (c *Coordinator) reportLocked(reason string) *models.Report {
	return &models.Report{
		Session:         c.session,
		Status:          string(models.StateEnded),
		Transcript:      append([]models.TranscriptEntry(nil), c.transcript...),
		Proctoring:      c.d.Monitor.Counters(),
		EndReason:       reason,
		CreatedAt:       c.now().UTC(),
		DurationSeconds: int64(c.session.Duration() / time.Second),
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, string(utils.CodeOf(err)))
	}
	span.End()
}

// remoteError keeps the code of a classified failure and treats anything
// else as transient.
func remoteError(op, msg string, err error) error {
	code := utils.CodeUnavailable
	var ae *utils.AppError
	if errors.As(err, &ae) {
		code = ae.Code
	}
	return utils.E(code, op, msg, err)
}

func joinText(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
