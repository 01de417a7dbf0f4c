// Package media owns the capture devices: a LINEAR16 microphone stream and
// the latest camera frame. The device is acquired once per process.
package media

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/utils"
)

// DefaultChunkBytes is 100ms of 16kHz 16-bit mono audio.
const DefaultChunkBytes = 3200

var acquired atomic.Bool

type Config struct {
	AudioInput string // raw PCM file or FIFO; empty disables the microphone
	FrameInput string // JPEG path kept fresh by the camera helper; empty disables the camera
	ChunkBytes int
}

type Device struct {
	framePath string
	chunk     int
	audio     io.ReadCloser
	log       *logrus.Logger

	mu    sync.Mutex
	sub   *subscriber
	eof   bool
	level float64

	closeOnce sync.Once
	done      chan struct{}
}

type subscriber struct {
	ch   chan []byte
	gone chan struct{}
}

// Open acquires the device. A second Open before Close fails with CONFLICT.
func Open(cfg Config, log *logrus.Logger) (*Device, error) {
	const op = "media.Open"
	if cfg.FrameInput != "" {
		if _, err := os.Stat(cfg.FrameInput); err != nil {
			return nil, openError(op, "camera", err)
		}
	}
	var audio io.ReadCloser
	if cfg.AudioInput != "" {
		f, err := os.Open(cfg.AudioInput)
		if err != nil {
			return nil, openError(op, "microphone", err)
		}
		audio = f
	}
	d, err := OpenStream(audio, cfg.FrameInput, cfg.ChunkBytes, log)
	if err != nil && audio != nil {
		_ = audio.Close()
	}
	return d, err
}

// OpenStream acquires the device over an already open audio stream (nil
// for none).
func OpenStream(audio io.ReadCloser, framePath string, chunkBytes int, log *logrus.Logger) (*Device, error) {
	if !acquired.CompareAndSwap(false, true) {
		return nil, utils.E(utils.CodeConflict, "media.Open", "media device already in use", nil)
	}
	if log == nil {
		log = logger.Discard()
	}
	if chunkBytes <= 0 {
		chunkBytes = DefaultChunkBytes
	}
	chunkBytes &^= 1 // whole samples

	d := &Device{
		framePath: framePath,
		chunk:     chunkBytes,
		audio:     audio,
		log:       log,
		done:      make(chan struct{}),
	}
	if audio != nil {
		go d.readLoop()
	} else {
		d.eof = true
		close(d.done)
	}
	return d, nil
}

func openError(op, what string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return utils.E(utils.CodeNotFound, op, what+" not found", err)
	case errors.Is(err, fs.ErrPermission):
		return utils.E(utils.CodeFailedPrecondition, op, what+" permission denied", err)
	}
	return utils.E(utils.CodeUnavailable, op, what+" unavailable", err)
}

func (d *Device) readLoop() {
	defer close(d.done)
	for {
		buf := make([]byte, d.chunk)
		n, err := io.ReadFull(d.audio, buf)
		if n > 0 {
			d.publish(buf[:n&^1])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				d.log.WithError(err).Warn("microphone read failed")
			}
			d.mu.Lock()
			d.eof = true
			if d.sub != nil {
				close(d.sub.ch)
				close(d.sub.gone)
				d.sub = nil
			}
			d.mu.Unlock()
			return
		}
	}
}

func (d *Device) publish(pcm []byte) {
	lvl := Level(pcm)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.level = lvl
	if d.sub == nil {
		return
	}
	select {
	case d.sub.ch <- pcm:
	default:
		d.log.Debug("audio consumer behind; chunk dropped")
	}
}

// Subscribe hands the microphone stream to one consumer until done is
// closed; a newer subscription replaces (and closes) the older one. The
// channel closes at end of input.
func (d *Device) Subscribe(done <-chan struct{}) <-chan []byte {
	s := &subscriber{ch: make(chan []byte, 32), gone: make(chan struct{})}

	d.mu.Lock()
	if d.sub != nil {
		close(d.sub.ch)
		close(d.sub.gone)
	}
	if d.eof {
		close(s.ch)
		d.mu.Unlock()
		return s.ch
	}
	d.sub = s
	d.mu.Unlock()

	go func() {
		select {
		case <-done:
		case <-s.gone:
			return
		}
		d.mu.Lock()
		if d.sub == s {
			close(s.ch)
			close(s.gone)
			d.sub = nil
		}
		d.mu.Unlock()
	}()
	return s.ch
}

// Level is the latest microphone RMS, normalized to 0..1.
func (d *Device) Level() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level
}

func (d *Device) HasAudio() bool { return d.audio != nil }
func (d *Device) HasVideo() bool { return d.framePath != "" }

// Snapshot returns the current camera frame as JPEG.
func (d *Device) Snapshot() ([]byte, error) {
	const op = "Device.Snapshot"
	if d.framePath == "" {
		return nil, utils.E(utils.CodeUnsupported, op, "no camera configured", nil)
	}
	b, err := os.ReadFile(d.framePath)
	if err != nil {
		return nil, openError(op, "camera frame", err)
	}
	if !IsJPEG(b) {
		return nil, utils.E(utils.CodeUnavailable, op, "camera frame is not a JPEG", nil)
	}
	return b, nil
}

// Close releases the device so it can be acquired again.
func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if d.audio != nil {
			err = d.audio.Close()
			<-d.done
		}
		acquired.Store(false)
	})
	return err
}

func IsJPEG(b []byte) bool {
	return len(b) > 3 && bytes.HasPrefix(b, []byte{0xFF, 0xD8, 0xFF})
}
