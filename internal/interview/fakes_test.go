package interview

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yoockh/mockinterview/internal/channel"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/proctor"
	"github.com/yoockh/mockinterview/internal/speech"
	"github.com/yoockh/mockinterview/internal/utils"
)

type fakeChat struct {
	mu      sync.Mutex
	h       channel.ChatHandlers
	sent    []string
	sendErr error
	closed  int

	// when set, Send blocks until it is closed
	gate chan struct{}
}

func (c *fakeChat) Send(ctx context.Context, text string) error {
	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, text)
	return nil
}

func (c *fakeChat) Close() error {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	return nil
}

func (c *fakeChat) hold() chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = make(chan struct{})
	return c.gate
}

// push simulates the chat read goroutine delivering a frame.
func (c *fakeChat) push(m models.InboundMessage) { c.h.OnMessage(m) }

func (c *fakeChat) sentMessages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *fakeChat) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeRemote struct {
	mu       sync.Mutex
	chat     *fakeChat
	dialErr  error
	opening  string
	startErr error
	code     *models.SubmitCodeResponse
	codeErr  error
	codeGate chan struct{}
	closing  string
	endErr   error
	ends     []string
}

func (r *fakeRemote) DialChat(_ context.Context, _ string, h channel.ChatHandlers) (channel.Chat, error) {
	if r.dialErr != nil {
		return nil, r.dialErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chat = &fakeChat{h: h}
	return r.chat, nil
}

func (r *fakeRemote) Start(context.Context, string) (*models.StartResponse, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}
	return &models.StartResponse{Opening: r.opening, QuestionNumber: 1}, nil
}

func (r *fakeRemote) SubmitCode(ctx context.Context, _, _ string) (*models.SubmitCodeResponse, error) {
	if r.codeGate != nil {
		select {
		case <-r.codeGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.codeErr != nil {
		return nil, r.codeErr
	}
	return r.code, nil
}

func (r *fakeRemote) End(_ context.Context, id string) (*models.EndResponse, error) {
	r.mu.Lock()
	r.ends = append(r.ends, id)
	r.mu.Unlock()
	if r.endErr != nil {
		return nil, r.endErr
	}
	return &models.EndResponse{Closing: r.closing}, nil
}

func (r *fakeRemote) endCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ends)
}

func (r *fakeRemote) currentChat() *fakeChat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chat
}

// heldSynth plays each utterance until the test releases it (or it is
// canceled). With auto set, utterances finish immediately.
type heldSynth struct {
	mu      sync.Mutex
	auto    bool
	spoken  []string
	release chan struct{}
}

func (s *heldSynth) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	if s.auto {
		s.mu.Unlock()
		return nil
	}
	rel := make(chan struct{})
	s.release = rel
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-rel:
		return nil
	}
}

func (s *heldSynth) said() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

// finish waits until text is the latest utterance, then lets it end.
func (s *heldSynth) finish(t *testing.T, text string) {
	t.Helper()
	eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.spoken) > 0 && s.spoken[len(s.spoken)-1] == text && s.release != nil
	})
	s.mu.Lock()
	rel := s.release
	s.release = nil
	s.mu.Unlock()
	close(rel)
}

type feedRecognizer struct {
	mu    sync.Mutex
	calls int
	feed  chan speech.Result
}

func (r *feedRecognizer) Recognize(ctx context.Context) (<-chan speech.Result, error) {
	in := make(chan speech.Result)
	r.mu.Lock()
	r.calls++
	r.feed = in
	r.mu.Unlock()

	out := make(chan speech.Result)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case res, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *feedRecognizer) say(text string, final bool) {
	r.mu.Lock()
	in := r.feed
	r.mu.Unlock()
	in <- speech.Result{Text: text, Final: final}
}

func (r *feedRecognizer) endWindow() {
	r.mu.Lock()
	in := r.feed
	r.mu.Unlock()
	close(in)
}

func (r *feedRecognizer) windows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeProgress struct {
	mu        sync.Mutex
	completed []string
}

func (p *fakeProgress) MarkCompleted(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, id)
	return nil
}

type fakeReports struct {
	mu      sync.Mutex
	reports []*models.Report
}

func (r *fakeReports) Record(_ context.Context, rep *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return nil
}

type harness struct {
	c        *Coordinator
	remote   *fakeRemote
	synth    *heldSynth
	rec      *feedRecognizer
	adapter  *speech.Adapter
	monitor  *proctor.Monitor
	progress *fakeProgress
	reports  *fakeReports

	evMu   sync.Mutex
	events []Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		remote:   &fakeRemote{opening: "Tell me about yourself", closing: "Thanks for your time."},
		synth:    &heldSynth{},
		rec:      &feedRecognizer{},
		monitor:  proctor.New(nil),
		progress: &fakeProgress{},
		reports:  &fakeReports{},
	}
	a, err := speech.New(h.synth, h.rec, "en-US", nil)
	if err != nil {
		t.Fatalf("speech.New: %v", err)
	}
	h.adapter = a

	c, err := New(Deps{
		Remote:   h.remote,
		Speech:   a,
		Monitor:  h.monitor,
		Progress: h.progress,
		Reports:  h.reports,
		OnEvent: func(e Event) {
			h.evMu.Lock()
			h.events = append(h.events, e)
			h.evMu.Unlock()
		},
	}, models.Session{CandidateName: "Ada", JobRole: "Backend Engineer"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.c = c
	t.Cleanup(func() { _ = c.Close() })
	return h
}

// started runs Start and lets the opening question finish speaking.
func (h *harness) started(t *testing.T) {
	t.Helper()
	if err := h.c.Start(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.synth.finish(t, "Tell me about yourself")
	h.waitState(t, models.StateListening)
}

func (h *harness) waitState(t *testing.T, want models.InterviewState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.c.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state = %s, want %s", h.c.State(), want)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func kinds(entries []models.TranscriptEntry) []models.EntryKind {
	out := make([]models.EntryKind, len(entries))
	for i, e := range entries {
		out[i] = e.Kind
	}
	return out
}

var errNetwork = utils.E(utils.CodeUnavailable, "test", "network down", nil)
