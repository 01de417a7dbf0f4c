package interview

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
)

func TestStart_SpeaksOpeningQuestion(t *testing.T) {
	h := newHarness(t)
	h.monitor.Reset()
	h.monitor.ExpectFullscreen(true)
	h.monitor.FullscreenChanged(true)
	h.monitor.FullscreenChanged(false) // left over from a previous session

	if err := h.c.Start(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap := h.c.Snapshot()
	if snap.State != models.StateSpeaking {
		t.Fatalf("state = %s, want speaking", snap.State)
	}
	if len(snap.Transcript) != 1 || snap.Transcript[0].Kind != models.EntryQuestion || snap.Transcript[0].Text != "Tell me about yourself" {
		t.Fatalf("transcript = %+v", snap.Transcript)
	}
	if snap.Session.SessionID != "sess-1" || snap.Session.StartedAt == nil || snap.Session.CandidateName != "Ada" {
		t.Fatalf("session = %+v", snap.Session)
	}
	if c := h.monitor.Counters(); c != (models.ProctoringCounters{}) {
		t.Fatalf("counters not reset on start: %+v", c)
	}
	if h.adapter.Listening() {
		t.Fatalf("must not listen while speaking")
	}

	// idempotent once started
	chat := h.remote.currentChat()
	if err := h.c.Start(context.Background(), "sess-1"); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if h.remote.currentChat() != chat {
		t.Fatalf("second Start opened another channel")
	}
}

func TestStart_Validation(t *testing.T) {
	h := newHarness(t)
	if err := h.c.Start(context.Background(), "  "); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("want INVALID_ARGUMENT, got %v", err)
	}
	if h.c.State() != models.StateIdle {
		t.Fatalf("state changed on invalid start")
	}
}

func TestStart_FailureRevertsToIdle(t *testing.T) {
	h := newHarness(t)
	h.remote.startErr = errNetwork

	err := h.c.Start(context.Background(), "sess-1")
	if !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("want UNAVAILABLE, got %v", err)
	}
	if h.c.State() != models.StateIdle {
		t.Fatalf("state = %s, want idle", h.c.State())
	}
	if h.remote.currentChat().closeCount() != 1 {
		t.Fatalf("chat channel not closed after failed start")
	}
	if len(h.c.Snapshot().Transcript) != 0 {
		t.Fatalf("transcript must stay empty")
	}

	h.remote.startErr = nil
	h.started(t)
}

func TestStart_DialFailure(t *testing.T) {
	h := newHarness(t)
	h.remote.dialErr = errNetwork
	if err := h.c.Start(context.Background(), "sess-1"); !utils.Retryable(err) {
		t.Fatalf("want retryable error, got %v", err)
	}
	if h.c.State() != models.StateIdle {
		t.Fatalf("state = %s", h.c.State())
	}
}

func TestListenThenAnswer(t *testing.T) {
	h := newHarness(t)
	h.started(t)
	if h.adapter.Speaking() {
		t.Fatalf("must not speak while listening")
	}

	h.rec.say("I am a backend", true)
	h.rec.say("engineer", false)
	eventually(t, func() bool { return h.adapter.Heard() == "I am a backend engineer" })

	got := h.c.StopListening()
	if got != "I am a backend engineer" {
		t.Fatalf("StopListening = %q", got)
	}
	if h.c.State() != models.StateAwaitingAnswer {
		t.Fatalf("state = %s, want awaiting_answer", h.c.State())
	}

	if err := h.c.SubmitAnswer(context.Background(), got); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if sent := h.remote.currentChat().sentMessages(); !reflect.DeepEqual(sent, []string{"I am a backend engineer"}) {
		t.Fatalf("sent = %v", sent)
	}
	snap := h.c.Snapshot()
	last := snap.Transcript[len(snap.Transcript)-1]
	if last.Kind != models.EntryAnswer || last.Text != "I am a backend engineer" {
		t.Fatalf("last entry = %+v", last)
	}
	if snap.State != models.StateStarting || snap.Draft != "" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSubmitAnswer_Validation(t *testing.T) {
	h := newHarness(t)
	if err := h.c.SubmitAnswer(context.Background(), "   "); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("empty answer: got %v", err)
	}
	if err := h.c.Start(context.Background(), "sess-1"); err != nil {
		t.Fatal(err)
	}
	// still speaking the opening
	if err := h.c.SubmitAnswer(context.Background(), "early"); !utils.IsCode(err, utils.CodeFailedPrecondition) {
		t.Fatalf("answer while speaking: got %v", err)
	}
}

func TestSubmitAnswer_SendFailureKeepsDraft(t *testing.T) {
	h := newHarness(t)
	h.started(t)
	chat := h.remote.currentChat()
	chat.sendErr = errNetwork

	err := h.c.SubmitAnswer(context.Background(), "my answer")
	if !utils.Retryable(err) {
		t.Fatalf("want retryable error, got %v", err)
	}
	snap := h.c.Snapshot()
	if snap.State != models.StateAwaitingAnswer || snap.Draft != "my answer" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if got := kinds(snap.Transcript); !reflect.DeepEqual(got, []models.EntryKind{models.EntryQuestion}) {
		t.Fatalf("transcript kinds = %v", got)
	}

	chat.mu.Lock()
	chat.sendErr = nil
	chat.mu.Unlock()
	if err := h.c.SubmitAnswer(context.Background(), snap.Draft); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if h.c.State() != models.StateStarting {
		t.Fatalf("state = %s", h.c.State())
	}
}

func toCoding(t *testing.T, h *harness) {
	t.Helper()
	h.started(t)
	if err := h.c.SubmitAnswer(context.Background(), "answer one"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	h.remote.currentChat().push(models.InboundMessage{
		Type:             models.MessageTypeResponse,
		Content:          "Write FizzBuzz",
		IsCodingQuestion: true,
		QuestionNumber:   2,
	})
}

func TestCodingQuestion_NoListeningWindow(t *testing.T) {
	h := newHarness(t)
	toCoding(t, h)

	if h.c.State() != models.StateCodingPending {
		t.Fatalf("state = %s, want coding_pending", h.c.State())
	}
	windows := h.rec.windows()

	// the prompt is announced; its end must not open capture
	h.synth.finish(t, "Write FizzBuzz")
	time.Sleep(20 * time.Millisecond)
	if h.c.State() != models.StateCodingPending || h.adapter.Listening() || h.rec.windows() != windows {
		t.Fatalf("capture opened for a coding question")
	}

	snap := h.c.Snapshot()
	last := snap.Transcript[len(snap.Transcript)-1]
	if last.Kind != models.EntryQuestion || last.Text != "Write FizzBuzz" {
		t.Fatalf("last entry = %+v", last)
	}
	if err := h.c.SubmitAnswer(context.Background(), "typed"); !utils.IsCode(err, utils.CodeFailedPrecondition) {
		t.Fatalf("answer during coding: got %v", err)
	}
}

func TestSubmitCode_SpeaksFeedback(t *testing.T) {
	h := newHarness(t)
	h.remote.code = &models.SubmitCodeResponse{Score: 7, Feedback: "ok"}
	toCoding(t, h)

	if err := h.c.SubmitCode(context.Background(), "print(1)"); err != nil {
		t.Fatalf("SubmitCode: %v", err)
	}
	snap := h.c.Snapshot()
	last := snap.Transcript[len(snap.Transcript)-1]
	if last.Kind != models.EntrySystem || last.Text != "Code submitted! Score: 7/10. Feedback: ok" {
		t.Fatalf("last entry = %+v", last)
	}
	if snap.State != models.StateStarting {
		t.Fatalf("state = %s, want starting", snap.State)
	}
	h.synth.finish(t, "Code submitted! Score: 7/10. Feedback: ok")
}

func TestSubmitCode_FractionalScore(t *testing.T) {
	h := newHarness(t)
	h.remote.code = &models.SubmitCodeResponse{Score: 8.5, Feedback: "Clean"}
	toCoding(t, h)
	if err := h.c.SubmitCode(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	snap := h.c.Snapshot()
	if got := snap.Transcript[len(snap.Transcript)-1].Text; got != "Code submitted! Score: 8.5/10. Feedback: Clean" {
		t.Fatalf("text = %q", got)
	}
}

func TestSubmitCode_FailureStaysCodingPending(t *testing.T) {
	h := newHarness(t)
	h.remote.codeErr = errNetwork
	toCoding(t, h)

	if err := h.c.SubmitCode(context.Background(), "print(1)"); !utils.Retryable(err) {
		t.Fatalf("want retryable, got %v", err)
	}
	if h.c.State() != models.StateCodingPending {
		t.Fatalf("state = %s", h.c.State())
	}
	if err := h.c.SubmitCode(context.Background(), " "); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("empty code: got %v", err)
	}
}

func TestSubmitCode_ResultAfterEndDiscarded(t *testing.T) {
	h := newHarness(t)
	h.remote.code = &models.SubmitCodeResponse{Score: 9, Feedback: "late"}
	h.remote.codeGate = make(chan struct{})
	toCoding(t, h)

	errc := make(chan error, 1)
	go func() { errc <- h.c.SubmitCode(context.Background(), "print(1)") }()
	eventually(t, func() bool { return h.c.Snapshot().SubmittingCode })

	if err := h.c.SubmitCode(context.Background(), "again"); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("concurrent submit: got %v", err)
	}

	if _, err := h.c.End(context.Background(), ReasonUserExit); err != nil {
		t.Fatalf("End: %v", err)
	}
	select {
	case err := <-errc:
		if err == nil {
			t.Fatalf("late result must not be applied")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("SubmitCode not aborted by End")
	}
	for _, e := range h.c.Snapshot().Transcript {
		if e.Kind == models.EntrySystem && e.Text != "Thanks for your time." {
			t.Fatalf("unexpected system entry %q", e.Text)
		}
	}
}

func TestEnd_WhileListening(t *testing.T) {
	h := newHarness(t)
	h.started(t)
	chat := h.remote.currentChat()

	sum, err := h.c.End(context.Background(), "user-exit")
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if h.adapter.Listening() {
		t.Fatalf("capture still running after End")
	}
	if h.remote.endCalls() != 1 {
		t.Fatalf("end RPC calls = %d", h.remote.endCalls())
	}
	snap := h.c.Snapshot()
	last := snap.Transcript[len(snap.Transcript)-1]
	if last.Kind != models.EntrySystem || last.Text != "Thanks for your time." {
		t.Fatalf("last entry = %+v", last)
	}
	if snap.State != models.StateEnded || chat.closeCount() != 1 {
		t.Fatalf("state = %s, chat closes = %d", snap.State, chat.closeCount())
	}
	if snap.Session.EndedAt == nil {
		t.Fatalf("EndedAt not set")
	}
	if sum.SessionID != "sess-1" || sum.Questions != 1 || sum.Answers != 0 || sum.Reason != "user-exit" {
		t.Fatalf("summary = %+v", sum)
	}
	if len(h.progress.completed) != 1 || h.progress.completed[0] != "sess-1" {
		t.Fatalf("progress = %v", h.progress.completed)
	}
	if len(h.reports.reports) != 1 || len(h.reports.reports[0].Transcript) != 2 {
		t.Fatalf("reports = %+v", h.reports.reports)
	}

	h.synth.finish(t, "Thanks for your time.")
	select {
	case <-h.c.Finished():
	case <-time.After(2 * time.Second):
		t.Fatalf("Finished not closed after closing remark")
	}

	// idempotent
	again, err := h.c.End(context.Background(), "again")
	if err != nil || again.Reason != "user-exit" || h.remote.endCalls() != 1 {
		t.Fatalf("second End: %+v, %v, calls=%d", again, err, h.remote.endCalls())
	}
	if err := h.c.Start(context.Background(), "sess-2"); err != nil || h.c.State() != models.StateEnded {
		t.Fatalf("Start after End must be a no-op: %v, %s", err, h.c.State())
	}
}

func TestEnd_RemoteFailureStillEnds(t *testing.T) {
	h := newHarness(t)
	h.remote.endErr = errNetwork
	h.started(t)

	_, err := h.c.End(context.Background(), ReasonUserExit)
	if !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("want UNAVAILABLE, got %v", err)
	}
	if h.c.State() != models.StateEnded {
		t.Fatalf("state = %s", h.c.State())
	}
	for _, e := range h.c.Snapshot().Transcript {
		if e.Kind == models.EntrySystem {
			t.Fatalf("no closing expected, got %q", e.Text)
		}
	}
	select {
	case <-h.c.Finished():
	case <-time.After(time.Second):
		t.Fatalf("Finished not closed")
	}
}

func TestEnd_ExitSummaryCountsViolations(t *testing.T) {
	h := newHarness(t)
	h.started(t)

	h.monitor.FullscreenChanged(true)
	h.monitor.FullscreenChanged(false)
	h.monitor.FullscreenChanged(true)
	h.monitor.FullscreenChanged(false)
	h.monitor.VisibilityChanged(true)

	sum, err := h.c.End(context.Background(), ReasonUserExit)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Proctoring.FullscreenExits != 2 || sum.Proctoring.TabSwitches != 1 {
		t.Fatalf("counters = %+v", sum.Proctoring)
	}
	want := []string{"2 fullscreen exits detected", "1 tab/window switch detected"}
	if !reflect.DeepEqual(sum.Activity, want) {
		t.Fatalf("activity = %v", sum.Activity)
	}
}

func TestRemoteClosing_EndsWithoutRPC(t *testing.T) {
	h := newHarness(t)
	h.started(t)
	chat := h.remote.currentChat()

	chat.push(models.InboundMessage{Type: models.MessageTypeClosing, Content: "That concludes our interview."})

	if h.c.State() != models.StateEnded {
		t.Fatalf("state = %s", h.c.State())
	}
	if h.remote.endCalls() != 0 {
		t.Fatalf("end RPC must not be called for a remote closing")
	}
	snap := h.c.Snapshot()
	if last := snap.Transcript[len(snap.Transcript)-1]; last.Text != "That concludes our interview." {
		t.Fatalf("last entry = %+v", last)
	}
	if chat.closeCount() != 1 {
		t.Fatalf("chat not closed")
	}

	// pushes after the end are ignored
	chat.push(models.InboundMessage{Type: models.MessageTypeResponse, Content: "late"})
	if n := len(h.c.Snapshot().Transcript); n != len(snap.Transcript) {
		t.Fatalf("late push appended")
	}
}

func TestPush_WhileListeningIsQueued(t *testing.T) {
	h := newHarness(t)
	h.started(t)

	h.remote.currentChat().push(models.InboundMessage{Type: models.MessageTypeResponse, Content: "Q2"})
	snap := h.c.Snapshot()
	if snap.State != models.StateListening || !snap.PendingQuestion || len(snap.Transcript) != 1 {
		t.Fatalf("push must queue while listening: %+v", snap)
	}

	if err := h.c.SubmitAnswer(context.Background(), "A1"); err != nil {
		t.Fatal(err)
	}
	snap = h.c.Snapshot()
	if snap.State != models.StateSpeaking || snap.PendingQuestion {
		t.Fatalf("pending question not delivered: %+v", snap)
	}
	if got := kinds(snap.Transcript); !reflect.DeepEqual(got, []models.EntryKind{models.EntryQuestion, models.EntryAnswer, models.EntryQuestion}) {
		t.Fatalf("kinds = %v", got)
	}
}

func TestPush_DuringFeedbackWaitsForSpeechEnd(t *testing.T) {
	h := newHarness(t)
	h.remote.code = &models.SubmitCodeResponse{Score: 6, Feedback: "fine"}
	toCoding(t, h)
	if err := h.c.SubmitCode(context.Background(), "code"); err != nil {
		t.Fatal(err)
	}

	h.remote.currentChat().push(models.InboundMessage{Type: models.MessageTypeResponse, Content: "Q3"})
	if snap := h.c.Snapshot(); snap.State != models.StateStarting || !snap.PendingQuestion {
		t.Fatalf("question must wait for feedback speech: %+v", snap)
	}

	h.synth.finish(t, "Code submitted! Score: 6/10. Feedback: fine")
	h.waitState(t, models.StateSpeaking)
	eventually(t, func() bool {
		said := h.synth.said()
		return said[len(said)-1] == "Q3"
	})
	h.synth.finish(t, "Q3")
	h.waitState(t, models.StateListening)
}

func TestPush_QueueKeepsLatest(t *testing.T) {
	h := newHarness(t)
	h.started(t)
	chat := h.remote.currentChat()
	chat.push(models.InboundMessage{Type: models.MessageTypeResponse, Content: "old"})
	chat.push(models.InboundMessage{Type: models.MessageTypeResponse, Content: "new"})

	if err := h.c.SubmitAnswer(context.Background(), "A1"); err != nil {
		t.Fatal(err)
	}
	snap := h.c.Snapshot()
	if got := snap.Transcript[len(snap.Transcript)-1].Text; got != "new" {
		t.Fatalf("delivered %q, want the latest push", got)
	}
}

func TestPush_SupersededQuestionIsRecorded(t *testing.T) {
	h := newHarness(t)
	h.started(t)
	chat := h.remote.currentChat()
	chat.push(models.InboundMessage{Type: models.MessageTypeResponse, Content: "Q2", QuestionNumber: 2})
	chat.push(models.InboundMessage{Type: models.MessageTypeResponse, Content: "Q3", QuestionNumber: 3})

	if err := h.c.SubmitAnswer(context.Background(), "A1"); err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range h.c.Snapshot().Transcript {
		got = append(got, string(e.Kind)+":"+e.Text)
	}
	want := []string{
		"question:Tell me about yourself",
		"system:Skipped question: Q2",
		"answer:A1",
		"question:Q3",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("transcript = %q", got)
	}
	if sum, _ := h.c.End(context.Background(), ReasonUserExit); sum.Questions != 2 {
		t.Fatalf("questions = %d, want 2", sum.Questions)
	}
}

func TestSubmitAnswer_SlowSendLeavesCoordinatorResponsive(t *testing.T) {
	h := newHarness(t)
	h.started(t)
	chat := h.remote.currentChat()
	gate := chat.hold()

	errc := make(chan error, 1)
	go func() { errc <- h.c.SubmitAnswer(context.Background(), "slow answer") }()
	eventually(t, func() bool { return h.c.Snapshot().SendingAnswer })

	// inbound pushes and other calls proceed while the socket write blocks
	chat.push(models.InboundMessage{Type: models.MessageTypeResponse, Content: "Q2"})
	if snap := h.c.Snapshot(); !snap.PendingQuestion || snap.State != models.StateListening {
		t.Fatalf("snapshot during send = %+v", snap)
	}
	if err := h.c.SubmitAnswer(context.Background(), "twice"); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("concurrent answer: got %v", err)
	}
	if draft := h.c.StopListening(); draft != "" {
		t.Fatalf("StopListening during send = %q", draft)
	}

	close(gate)
	if err := <-errc; err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	h.waitState(t, models.StateSpeaking)
	if sent := chat.sentMessages(); !reflect.DeepEqual(sent, []string{"slow answer"}) {
		t.Fatalf("sent = %v", sent)
	}
	snap := h.c.Snapshot()
	if got := kinds(snap.Transcript); !reflect.DeepEqual(got, []models.EntryKind{models.EntryQuestion, models.EntryAnswer, models.EntryQuestion}) {
		t.Fatalf("kinds = %v", got)
	}
	if snap.SendingAnswer {
		t.Fatalf("send flag not cleared")
	}
}

func TestSubmitAnswer_EndDuringSendDiscardsResult(t *testing.T) {
	h := newHarness(t)
	h.started(t)
	h.remote.currentChat().hold()

	errc := make(chan error, 1)
	go func() { errc <- h.c.SubmitAnswer(context.Background(), "late") }()
	eventually(t, func() bool { return h.c.Snapshot().SendingAnswer })

	if _, err := h.c.End(context.Background(), ReasonUserExit); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := <-errc; !utils.IsCode(err, utils.CodeFailedPrecondition) {
		t.Fatalf("answer after end: got %v", err)
	}
	snap := h.c.Snapshot()
	if snap.State != models.StateEnded || snap.SendingAnswer {
		t.Fatalf("snapshot = %+v", snap)
	}
	if got := kinds(snap.Transcript); countKinds(got, models.EntryAnswer) != 0 {
		t.Fatalf("kinds = %v", got)
	}
}

func countKinds(ks []models.EntryKind, k models.EntryKind) int {
	n := 0
	for _, x := range ks {
		if x == k {
			n++
		}
	}
	return n
}

func TestWindowEnd_AutoSubmits(t *testing.T) {
	h := newHarness(t)
	h.started(t)

	h.rec.say("auto answer", true)
	eventually(t, func() bool { return h.adapter.Heard() == "auto answer" })
	h.rec.endWindow()

	h.waitState(t, models.StateStarting)
	if sent := h.remote.currentChat().sentMessages(); !reflect.DeepEqual(sent, []string{"auto answer"}) {
		t.Fatalf("sent = %v", sent)
	}
}

func TestWindowEnd_EmptyWaitsThenResume(t *testing.T) {
	h := newHarness(t)
	h.started(t)

	h.rec.endWindow()
	h.waitState(t, models.StateAwaitingAnswer)

	if err := h.c.ResumeListening(); err != nil {
		t.Fatalf("ResumeListening: %v", err)
	}
	if h.c.State() != models.StateListening || h.rec.windows() != 2 {
		t.Fatalf("state = %s, windows = %d", h.c.State(), h.rec.windows())
	}
	if err := h.c.ResumeListening(); !utils.IsCode(err, utils.CodeFailedPrecondition) {
		t.Fatalf("resume while listening: got %v", err)
	}
}

func TestChatLost_AnswerFailsWithoutStateChange(t *testing.T) {
	h := newHarness(t)
	h.started(t)
	chat := h.remote.currentChat()
	chat.h.OnClose(errNetwork)

	if !h.c.Snapshot().ChannelLost {
		t.Fatalf("channel loss not recorded")
	}
	if err := h.c.SubmitAnswer(context.Background(), "hello"); !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("want UNAVAILABLE, got %v", err)
	}
	if h.c.State() != models.StateAwaitingAnswer {
		t.Fatalf("state = %s", h.c.State())
	}

	h.evMu.Lock()
	defer h.evMu.Unlock()
	found := false
	for _, e := range h.events {
		if e.Type == EventChannel {
			found = true
		}
	}
	if !found {
		t.Fatalf("no channel event emitted")
	}
}

func TestTranscriptTimestampsNonDecreasing(t *testing.T) {
	h := newHarness(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Duration{5 * time.Second, 1 * time.Second, 3 * time.Second}
	i := 0
	h.c.now = func() time.Time {
		d := ticks[i%len(ticks)]
		i++
		return base.Add(d)
	}
	h.started(t)
	if err := h.c.SubmitAnswer(context.Background(), "one"); err != nil {
		t.Fatal(err)
	}
	h.remote.currentChat().push(models.InboundMessage{Type: models.MessageTypeResponse, Content: "two"})

	tr := h.c.Snapshot().Transcript
	for j := 1; j < len(tr); j++ {
		if tr[j].Timestamp.Before(tr[j-1].Timestamp) {
			t.Fatalf("entry %d goes back in time: %v < %v", j, tr[j].Timestamp, tr[j-1].Timestamp)
		}
	}
}

func TestStateEventsInOrder(t *testing.T) {
	h := newHarness(t)
	h.started(t)
	if err := h.c.SubmitAnswer(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}

	h.evMu.Lock()
	defer h.evMu.Unlock()
	var states []models.InterviewState
	for _, e := range h.events {
		if e.Type == EventState {
			states = append(states, e.State)
		}
	}
	want := []models.InterviewState{
		models.StateStarting, models.StateSpeaking, models.StateListening, models.StateStarting,
	}
	if !reflect.DeepEqual(states, want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
}
