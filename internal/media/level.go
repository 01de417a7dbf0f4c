package media

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"time"
)

// RMS of little-endian int16 PCM, in sample units.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// Level is RMS normalized to 0..1 for meters.
func Level(pcm []byte) float64 {
	l := RMS(pcm) / 32768
	if l > 1 {
		return 1
	}
	return l
}

// ProbeResult is what the device check page shows before an interview.
type ProbeResult struct {
	Camera      bool     `json:"camera"`
	Microphone  bool     `json:"microphone"`
	PeakLevel   float64  `json:"peak_level"`
	FrameBytes  int      `json:"frame_bytes"`
	Problems    []string `json:"problems,omitempty"`
	CheckedAt   string   `json:"checked_at"`
	ListenedFor string   `json:"listened_for,omitempty"`
}

// OK reports whether every configured input works.
func (p ProbeResult) OK() bool { return len(p.Problems) == 0 }

// Probe opens the configured inputs briefly, listening up to listen for
// microphone signal. It must not run while the device is acquired.
func Probe(cfg Config, listen time.Duration) ProbeResult {
	res := ProbeResult{CheckedAt: time.Now().UTC().Format(time.RFC3339)}
	if acquired.Load() {
		res.Problems = append(res.Problems, "media device is in use by a running interview")
		return res
	}

	if cfg.FrameInput == "" {
		res.Problems = append(res.Problems, "no camera configured (FRAME_INPUT)")
	} else if b, err := os.ReadFile(cfg.FrameInput); err != nil {
		res.Problems = append(res.Problems, "camera: "+err.Error())
	} else if !IsJPEG(b) {
		res.Problems = append(res.Problems, "camera: frame is not a JPEG")
	} else {
		res.Camera = true
		res.FrameBytes = len(b)
	}

	if cfg.AudioInput == "" {
		res.Problems = append(res.Problems, "no microphone configured (AUDIO_INPUT)")
		return res
	}
	f, err := os.Open(cfg.AudioInput)
	if err != nil {
		res.Problems = append(res.Problems, "microphone: "+err.Error())
		return res
	}
	defer f.Close()

	chunk := cfg.ChunkBytes
	if chunk <= 0 {
		chunk = DefaultChunkBytes
	}
	_ = f.SetReadDeadline(time.Now().Add(listen))
	deadline := time.Now().Add(listen)
	buf := make([]byte, chunk)
	for time.Now().Before(deadline) {
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			res.Microphone = true
			if l := Level(buf[:n&^1]); l > res.PeakLevel {
				res.PeakLevel = l
			}
		}
		if err != nil {
			break
		}
	}
	res.ListenedFor = listen.String()
	if !res.Microphone {
		res.Problems = append(res.Problems, "microphone: no audio received")
	}
	return res
}
