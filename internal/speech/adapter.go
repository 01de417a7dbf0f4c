package speech

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/utils"
)

// ErrCanceled is passed to an end callback when the utterance was cut short.
var ErrCanceled = errors.New("speech canceled")

type utterance struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Adapter is safe for concurrent use.
type Adapter struct {
	synth Synthesizer
	rec   Recognizer
	caps  Capabilities
	log   *logrus.Logger
	disp  *dispatcher

	root   context.Context
	cancel context.CancelFunc

	// speakMu serializes the cancel-and-wait sequence of Speak/Cancel.
	speakMu sync.Mutex

	mu           sync.Mutex
	cur          *utterance
	listening    bool
	listenGen    uint64
	listenCancel context.CancelFunc
	finals       []string
	interim      string
	onWindowEnd  func(text string)
	closed       bool
}

// New negotiates capabilities and takes ownership of s and r; Close
// releases them when they implement io.Closer.
func New(s Synthesizer, r Recognizer, language string, log *logrus.Logger) (*Adapter, error) {
	caps, err := Negotiate(s, r, language)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Adapter{
		synth:  s,
		rec:    r,
		caps:   caps,
		log:    log,
		disp:   newDispatcher(),
		root:   ctx,
		cancel: cancel,
	}, nil
}

func (a *Adapter) Capabilities() Capabilities { return a.caps }

// OnWindowEnd registers the callback for a capture window the platform
// closed on its own. It receives the accumulated text (possibly empty);
// the buffer is cleared before the call.
func (a *Adapter) OnWindowEnd(fn func(text string)) {
	a.mu.Lock()
	a.onWindowEnd = fn
	a.mu.Unlock()
}

// Speak cancels any current utterance, waits for it to wind down, stops
// listening, then starts text. onEnd (may be nil) receives nil on natural
// completion, ErrCanceled when cut short, or the synthesizer's error.
func (a *Adapter) Speak(text string, onEnd func(err error)) {
	a.speakMu.Lock()
	defer a.speakMu.Unlock()

	a.cancelCurrent()
	a.stopListening()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.deliver(onEnd, utils.ErrClosed)
		return
	}
	ctx, cancel := context.WithCancel(a.root)
	u := &utterance{cancel: cancel, done: make(chan struct{})}
	a.cur = u
	a.mu.Unlock()

	go func() {
		err := a.synth.Speak(ctx, text)
		if ctx.Err() != nil {
			err = ErrCanceled
		} else if err != nil {
			a.log.WithError(err).Warn("speech synthesis failed")
		}
		cancel()

		// the callback is queued before done closes so the next Speak
		// cannot overtake it
		a.deliver(onEnd, err)

		a.mu.Lock()
		if a.cur == u {
			a.cur = nil
		}
		a.mu.Unlock()
		close(u.done)
	}()
}

// CancelSpeech stops the current utterance, if any, and waits for it.
func (a *Adapter) CancelSpeech() {
	a.speakMu.Lock()
	defer a.speakMu.Unlock()
	a.cancelCurrent()
}

func (a *Adapter) cancelCurrent() {
	a.mu.Lock()
	u := a.cur
	a.mu.Unlock()
	if u == nil {
		return
	}
	u.cancel()
	<-u.done
}

func (a *Adapter) Speaking() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cur != nil
}

func (a *Adapter) deliver(onEnd func(error), err error) {
	if onEnd == nil {
		return
	}
	if !a.disp.enqueue(func() { onEnd(err) }) {
		// dispatcher already closed; still honour exactly-once, off the
		// caller's goroutine
		go onEnd(err)
	}
}

// StartListening cancels playback and opens a capture window. It is a
// no-op when already listening.
func (a *Adapter) StartListening() error {
	const op = "Adapter.StartListening"

	a.CancelSpeech()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return utils.E(utils.CodeFailedPrecondition, op, "speech adapter closed", utils.ErrClosed)
	}
	if a.listening {
		return nil
	}

	ctx, cancel := context.WithCancel(a.root)
	results, err := a.rec.Recognize(ctx)
	if err != nil {
		cancel()
		return utils.E(utils.CodeUnavailable, op, "could not start listening", err)
	}
	a.listening = true
	a.listenGen++
	a.listenCancel = cancel
	a.finals = nil
	a.interim = ""
	go a.collect(a.listenGen, results)
	return nil
}

func (a *Adapter) collect(gen uint64, results <-chan Result) {
	for r := range results {
		a.mu.Lock()
		if a.listening && a.listenGen == gen {
			text := strings.TrimSpace(r.Text)
			if r.Final {
				if text != "" {
					a.finals = append(a.finals, text)
				}
				a.interim = ""
			} else {
				a.interim = text
			}
		}
		a.mu.Unlock()
	}

	a.mu.Lock()
	if !a.listening || a.listenGen != gen {
		a.mu.Unlock()
		return
	}
	a.listening = false
	a.listenCancel()
	text := a.takeLocked()
	cb := a.onWindowEnd
	a.mu.Unlock()

	a.log.WithField("chars", len(text)).Debug("capture window ended")
	if cb != nil {
		a.disp.enqueue(func() { cb(text) })
	}
}

// StopListening ends the capture window and returns the final text, with
// any in-flight interim promoted. The buffer is cleared. It returns "" when
// not listening.
func (a *Adapter) StopListening() string {
	return a.stopListening()
}

func (a *Adapter) stopListening() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.listening {
		return ""
	}
	a.listening = false
	a.listenCancel()
	return a.takeLocked()
}

func (a *Adapter) takeLocked() string {
	parts := a.finals
	if a.interim != "" {
		parts = append(parts, a.interim)
	}
	a.finals = nil
	a.interim = ""
	return strings.Join(parts, " ")
}

func (a *Adapter) Listening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listening
}

// Heard returns the text accumulated so far in the current window.
func (a *Adapter) Heard() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	parts := append([]string(nil), a.finals...)
	if a.interim != "" {
		parts = append(parts, a.interim)
	}
	return strings.Join(parts, " ")
}

// Close cancels everything, lets pending callbacks drain, and releases the
// platform handles.
func (a *Adapter) Close() error {
	a.CancelSpeech()
	a.stopListening()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.cancel()
	a.disp.close()

	return errors.Join(closeIfCloser(a.synth), closeIfCloser(a.rec))
}
