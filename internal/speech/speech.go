// Package speech owns the speech synthesis and recognition handles for one
// interview: a cancelable Speak and a start/stop listening window.
//
// At most one of {speaking, listening} is active. Every Speak call gets
// exactly one end callback, delivered in call order on a single goroutine.
package speech

import (
	"context"
	"io"
	"strings"

	"github.com/yoockh/mockinterview/internal/utils"
)

// Result is one recognition hypothesis.
type Result struct {
	Text  string
	Final bool
}

// Synthesizer plays text and returns when playback ends. It must return
// promptly once ctx is canceled.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// Recognizer opens one capture window. The returned channel is closed when
// the window ends, either because ctx was canceled or because the platform
// decided the speaker was done.
type Recognizer interface {
	Recognize(ctx context.Context) (<-chan Result, error)
}

// InterimReporter is implemented by recognizers that emit non-final results.
type InterimReporter interface {
	InterimResults() bool
}

type Capabilities struct {
	Synthesis      bool   `json:"synthesis"`
	Recognition    bool   `json:"recognition"`
	InterimResults bool   `json:"interim_results"`
	Language       string `json:"language"`
}

// Negotiate checks the platform handles once, up front. Missing synthesis or
// recognition is reported here and never per call.
func Negotiate(s Synthesizer, r Recognizer, language string) (Capabilities, error) {
	const op = "speech.Negotiate"
	if s == nil {
		return Capabilities{}, utils.E(utils.CodeUnsupported, op, "speech synthesis is not available", nil)
	}
	if r == nil {
		return Capabilities{}, utils.E(utils.CodeUnsupported, op, "speech recognition is not available", nil)
	}
	caps := Capabilities{
		Synthesis:   true,
		Recognition: true,
		Language:    strings.TrimSpace(language),
	}
	if caps.Language == "" {
		caps.Language = "en-US"
	}
	if ir, ok := r.(InterimReporter); ok {
		caps.InterimResults = ir.InterimResults()
	}
	return caps, nil
}

func closeIfCloser(v any) error {
	if c, ok := v.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
