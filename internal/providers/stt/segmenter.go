package stt

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/media"
	"github.com/yoockh/mockinterview/internal/speech"
)

// AudioSource hands out the microphone stream; see media.Device.
type AudioSource interface {
	Subscribe(done <-chan struct{}) <-chan []byte
}

type SegmenterConfig struct {
	Language string
	// Threshold is the RMS (sample units) above which a chunk counts as voice.
	Threshold float64
	// Hangover of silence closes an utterance and sends it for transcription.
	Hangover time.Duration
	// EndOfAnswer of silence after at least one utterance ends the window.
	EndOfAnswer time.Duration
	// MaxWindow caps a single capture window.
	MaxWindow time.Duration
}

func (c *SegmenterConfig) defaults() {
	if c.Language == "" {
		c.Language = "en-US"
	}
	if c.Threshold <= 0 {
		c.Threshold = 300
	}
	if c.Hangover <= 0 {
		c.Hangover = 800 * time.Millisecond
	}
	if c.EndOfAnswer <= 0 {
		c.EndOfAnswer = 4 * time.Second
	}
	if c.MaxWindow <= 0 {
		c.MaxWindow = 3 * time.Minute
	}
}

// Segmenter cuts the microphone stream into utterances with an energy VAD
// and transcribes each one as a final result.
type Segmenter struct {
	src AudioSource
	p   Provider
	cfg SegmenterConfig
	log *logrus.Logger
}

func NewSegmenter(src AudioSource, p Provider, cfg SegmenterConfig, log *logrus.Logger) *Segmenter {
	cfg.defaults()
	if log == nil {
		log = logger.Discard()
	}
	return &Segmenter{src: src, p: p, cfg: cfg, log: log}
}

func (s *Segmenter) InterimResults() bool { return false }

func (s *Segmenter) Close() error { return s.p.Close() }

func (s *Segmenter) Recognize(ctx context.Context) (<-chan speech.Result, error) {
	chunks := s.src.Subscribe(ctx.Done())
	out := make(chan speech.Result, 4)
	go s.run(ctx, chunks, out)
	return out, nil
}

func (s *Segmenter) run(ctx context.Context, chunks <-chan []byte, out chan<- speech.Result) {
	defer close(out)

	v := newVAD(s.cfg.Threshold)
	var (
		seg      []byte
		inSpeech bool
		heard    bool
		silence  time.Duration
		total    time.Duration
	)

	flush := func() bool {
		audio := seg
		seg = nil
		if chunkDuration(audio) < 200*time.Millisecond {
			return true
		}
		text, conf, err := s.p.Transcribe(ctx, audio, s.cfg.Language)
		if err != nil {
			if ctx.Err() == nil {
				s.log.WithError(err).Warn("transcription failed; utterance dropped")
			}
			return ctx.Err() == nil
		}
		s.log.WithFields(logrus.Fields{"confidence": conf, "chars": len(text)}).Debug("utterance transcribed")
		if text == "" {
			return true
		}
		heard = true
		select {
		case out <- speech.Result{Text: text, Final: true}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-chunks:
			if !ok {
				if len(seg) > 0 {
					flush()
				}
				return
			}
			d := chunkDuration(c)
			total += d

			if v.isSpeech(c) {
				inSpeech = true
				silence = 0
				seg = append(seg, c...)
			} else {
				silence += d
				if inSpeech {
					seg = append(seg, c...)
					if silence >= s.cfg.Hangover {
						inSpeech = false
						if !flush() {
							return
						}
					}
				} else if heard && silence >= s.cfg.EndOfAnswer {
					return
				}
			}

			if total >= s.cfg.MaxWindow {
				if len(seg) > 0 {
					flush()
				}
				return
			}
		}
	}
}

func chunkDuration(pcm []byte) time.Duration {
	return time.Duration(len(pcm)/2) * time.Second / SampleRate
}

// vad is an RMS gate smoothed over the last few chunks.
type vad struct {
	threshold float64
	win       []bool
	smoothN   int
}

func newVAD(threshold float64) *vad { return &vad{threshold: threshold, smoothN: 3} }

func (v *vad) isSpeech(pcm []byte) bool {
	v.win = append(v.win, media.RMS(pcm) >= v.threshold)
	if len(v.win) > v.smoothN {
		v.win = v.win[len(v.win)-v.smoothN:]
	}
	n := 0
	for _, b := range v.win {
		if b {
			n++
		}
	}
	return n*2 > len(v.win)
}
