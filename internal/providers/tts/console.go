// Package tts holds speech synthesizers.
package tts

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Console "speaks" by printing the line and holding for as long as a human
// would take to say it, so turn-taking timing matches a real voice.
type Console struct {
	out     io.Writer
	prefix  string
	perWord time.Duration

	mu sync.Mutex
}

// NewConsole paces output at wordsPerMinute (170 when <= 0).
func NewConsole(out io.Writer, prefix string, wordsPerMinute int) *Console {
	if wordsPerMinute <= 0 {
		wordsPerMinute = 170
	}
	return &Console{
		out:     out,
		prefix:  prefix,
		perWord: time.Minute / time.Duration(wordsPerMinute),
	}
}

func (c *Console) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	_, err := fmt.Fprintf(c.out, "%s%s\n", c.prefix, text)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	t := time.NewTimer(c.Duration(text))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Duration is the time Speak holds for text.
func (c *Console) Duration(text string) time.Duration {
	return time.Duration(len(strings.Fields(text))) * c.perWord
}
