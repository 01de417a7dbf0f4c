package stt

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/speech"
)

// Lines recognizes typed answers: each non-empty line is a final result
// and an empty line ends the capture window.
type Lines struct {
	lines chan string
	done  chan struct{}
	log   *logrus.Logger
}

// NewLines starts reading r immediately. filter, when set, sees every line
// first; lines it consumes (returns true) never become answers. Lines typed
// while nobody listens are kept up to a small backlog.
func NewLines(r io.Reader, filter func(line string) bool, log *logrus.Logger) *Lines {
	if log == nil {
		log = logger.Discard()
	}
	l := &Lines{lines: make(chan string, 64), done: make(chan struct{}), log: log}
	go l.scan(r, filter)
	return l
}

func (l *Lines) scan(r io.Reader, filter func(string) bool) {
	defer close(l.done)
	defer close(l.lines)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if filter != nil && filter(line) {
			continue
		}
		select {
		case l.lines <- line:
		default:
			l.log.Warn("typed input backlog full; line dropped")
		}
	}
	if err := sc.Err(); err != nil {
		l.log.WithError(err).Warn("typed input closed")
	}
}

// Done is closed once the input reached EOF and every line was read and
// filtered. Lines still in the backlog are delivered to later windows.
func (l *Lines) Done() <-chan struct{} { return l.done }

func (l *Lines) InterimResults() bool { return false }

func (l *Lines) Recognize(ctx context.Context) (<-chan speech.Result, error) {
	out := make(chan speech.Result)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-l.lines:
				if !ok {
					return
				}
				line = strings.TrimSpace(line)
				if line == "" {
					return
				}
				select {
				case out <- speech.Result{Text: line, Final: true}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
