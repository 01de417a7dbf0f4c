package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/yoockh/mockinterview/internal/api/handlers"
	"github.com/yoockh/mockinterview/internal/interview"
	"github.com/yoockh/mockinterview/internal/media"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/proctor"
	"github.com/yoockh/mockinterview/internal/providers/stt"
	"github.com/yoockh/mockinterview/internal/providers/tts"
	"github.com/yoockh/mockinterview/internal/speech"
)

// liveSession is one wired coordinator with its media and event fan-out.
type liveSession struct {
	coord   *interview.Coordinator
	monitor *proctor.Monitor
	hub     *handlers.Hub
	device  *media.Device // nil without camera and microphone
	voice   bool          // answers come from the microphone

	// closed when typed input hits EOF; nil in voice mode
	inputDone <-chan struct{}
}

type sessionOptions struct {
	out io.Writer // spoken lines and notices

	// typed answers; read only when no microphone is available
	input  io.Reader
	filter func(line string) bool
}

func (a *app) openSession(ctx context.Context, p *models.Progress, o sessionOptions) (*liveSession, error) {
	cfg := a.cfg
	audio, frame := cfg.AudioInput, cfg.FrameInput
	if p.AudioInput != "" {
		audio = p.AudioInput
	}
	if p.FrameInput != "" {
		frame = p.FrameInput
	}

	s := &liveSession{
		monitor: proctor.New(a.log),
		hub:     handlers.NewHub(a.log),
	}
	s.monitor.OnViolation(func(v proctor.Violation, c models.ProctoringCounters) {
		switch v {
		case proctor.ViolationFullscreenExit:
			fmt.Fprintf(o.out, "\n[!] Fullscreen exited (%d so far). Please return to fullscreen.\n", c.FullscreenExits)
		case proctor.ViolationTabSwitch:
			fmt.Fprintf(o.out, "\n[!] You left the interview window (%d so far).\n", c.TabSwitches)
		}
	})

	if audio != "" || frame != "" {
		dev, err := media.Open(media.Config{AudioInput: audio, FrameInput: frame}, a.log)
		if err != nil {
			return nil, err
		}
		s.device = dev
	}

	var rec speech.Recognizer
	if s.device != nil && s.device.HasAudio() {
		gs, err := stt.NewGoogleSpeech(ctx, cfg.GoogleCredentialsFile)
		if err != nil {
			s.closeDevice()
			return nil, err
		}
		rec = stt.NewSegmenter(s.device, gs, stt.SegmenterConfig{Language: cfg.SpeechLanguage}, a.log)
		s.voice = true
	} else {
		lines := stt.NewLines(o.input, o.filter, a.log)
		s.inputDone = lines.Done()
		rec = lines
	}

	synth := tts.NewConsole(o.out, "Interviewer: ", cfg.SpeechWordsPerMinute)
	adapter, err := speech.New(synth, rec, cfg.SpeechLanguage, a.log)
	if err != nil {
		s.closeDevice()
		return nil, err
	}

	deps := interview.Deps{
		Remote:   a.client,
		Speech:   adapter,
		Monitor:  s.monitor,
		Progress: a.progress,
		Log:      a.log,
		OnEvent: func(e interview.Event) {
			s.hub.Publish(e)
			s.print(o.out, e)
		},
	}
	if a.reports != nil {
		deps.Reports = a.reports
	}
	if s.device != nil && s.device.HasVideo() {
		dev := s.device
		deps.Video = func(ctx context.Context, onFace func(bool)) (io.Closer, error) {
			return a.client.DialVideo(ctx, dev, cfg.FrameInterval, onFace)
		}
	}

	coord, err := interview.New(deps, models.Session{
		CandidateName: p.CandidateName,
		JobRole:       p.JobTitle,
		AvatarURL:     p.AvatarURL,
	})
	if err != nil {
		_ = adapter.Close()
		s.closeDevice()
		return nil, err
	}
	s.coord = coord
	return s, nil
}

// print echoes what the synthesizer does not: spoken answers and channel
// trouble.
func (s *liveSession) print(out io.Writer, e interview.Event) {
	switch e.Type {
	case interview.EventTranscript:
		if s.voice && e.Entry != nil && e.Entry.Kind == models.EntryAnswer {
			fmt.Fprintf(out, "You: %s\n", e.Entry.Text)
		}
	case interview.EventChannel:
		fmt.Fprintf(out, "\n[!] %s. Type /exit to finish the interview.\n", e.Message)
	case interview.EventState:
		switch e.State {
		case models.StateListening:
			if s.voice {
				fmt.Fprintln(out, "(listening... /stop when done)")
			} else {
				fmt.Fprintln(out, "(type your answer; an empty line sends it)")
			}
		case models.StateCodingPending:
			fmt.Fprintln(out, "(write your solution to a file and submit it with /code <path>)")
		}
	}
}

func (s *liveSession) closeDevice() {
	if s.device != nil {
		_ = s.device.Close()
	}
}

func (s *liveSession) Close() error {
	err := s.coord.Close()
	s.closeDevice()
	return err
}
