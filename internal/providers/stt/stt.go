// Package stt holds the speech recognizers: a voice-activity segmenter over
// microphone PCM backed by a transcription Provider, and a typed-line
// fallback.
package stt

import "context"

// SampleRate of the LINEAR16 mono PCM the segmenter consumes.
const SampleRate = 16000

type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}
