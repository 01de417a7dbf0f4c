package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yoockh/mockinterview/internal/interview"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
)

var runServe string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live interview",
	Long: `Start the interview session created by init. Questions are spoken by the
interviewer; answer through the microphone (AUDIO_INPUT) or by typing.
Commands start with a slash; /help lists them.`,
	RunE: runInterview,
}

func init() {
	runCmd.Flags().StringVar(&runServe, "serve", "", "Also expose the companion API on this address")
}

const runHelp = `Commands:
  /stop            stop listening and keep the answer as a draft
  /send [text]     send the draft (or text) as your answer
  /resume          keep talking after /stop
  /code <file>     submit a solution for the coding question
  /fullscreen on|off, /away, /back   report window changes
  /status          show the session state
  /exit            end the interview`

func runInterview(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.progress.Allow(ctx, models.PageInterview); err != nil {
		return err
	}
	p, err := a.progress.Get(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	cmds := make(chan string, 8)
	s, err := a.openSession(ctx, p, sessionOptions{out: out, input: cmd.InOrStdin(), filter: commandFilter(cmds)})
	if err != nil {
		return err
	}
	defer s.Close()

	if s.voice {
		// with a microphone stdin only carries commands and typed fallbacks
		go readCommands(cmd.InOrStdin(), cmds)
	}
	if runServe != "" {
		srv := a.startServer(runServe, s)
		defer shutdownServer(srv, a)
	}

	fmt.Fprintf(out, "Starting interview for %s (%s). /help lists commands.\n\n", p.CandidateName, p.JobTitle)
	if err := s.coord.Start(ctx, p.SessionID); err != nil {
		return err
	}
	// the terminal counts as the fullscreen surface
	s.monitor.FullscreenChanged(true)

	r := &repl{s: s, out: out}
	r.loop(ctx, cmds)

	endCtx, cancel := context.WithTimeout(context.Background(), a.cfg.RPCTimeout)
	defer cancel()
	sum, err := s.coord.End(endCtx, interview.ReasonUserExit)
	if err != nil {
		fmt.Fprintf(out, "\n[!] %s\n", err)
	}
	select {
	case <-s.coord.Finished():
	case <-time.After(30 * time.Second):
	case <-ctx.Done():
	}
	printSummary(out, sum)
	return nil
}

// commandFilter routes slash commands typed in answer mode to cmds.
func commandFilter(cmds chan<- string) func(line string) bool {
	return func(line string) bool {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "/") {
			return false
		}
		cmds <- line
		return true
	}
}

func readCommands(in io.Reader, cmds chan<- string) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "/"):
			cmds <- line
		default:
			cmds <- "/send " + line
		}
	}
	cmds <- "/exit"
}

type repl struct {
	s   *liveSession
	out io.Writer
}

const inputPoll = 100 * time.Millisecond

// loop runs commands until the session finishes or is ended by the user.
// Once typed input is exhausted it also stops as soon as the interview
// waits for an answer or code that can no longer arrive.
func (r *repl) loop(ctx context.Context, cmds <-chan string) {
	inputDone := r.s.inputDone
	var poll <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.s.coord.Finished():
			return
		case line := <-cmds:
			if r.handle(ctx, line) {
				return
			}
		case <-inputDone:
			inputDone = nil
			t := time.NewTicker(inputPoll)
			defer t.Stop()
			poll = t.C
		case <-poll:
			if len(cmds) == 0 && stalled(r.s.coord.Snapshot()) {
				fmt.Fprintln(r.out, "\n(input closed)")
				return
			}
		}
	}
}

// stalled reports whether the session needs candidate input to move on.
func stalled(snap interview.Snapshot) bool {
	if snap.SendingAnswer || snap.SubmittingCode {
		return false
	}
	return snap.State == models.StateAwaitingAnswer || snap.State == models.StateCodingPending
}

// handle runs one slash command and reports whether the session should end.
func (r *repl) handle(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	c := r.s.coord

	var err error
	switch name {
	case "/help":
		fmt.Fprintln(r.out, runHelp)
	case "/exit", "/quit":
		return true
	case "/stop":
		if draft := c.StopListening(); draft != "" {
			fmt.Fprintf(r.out, "Draft: %s\n(/send to submit, /resume to continue)\n", draft)
		}
	case "/send":
		text := arg
		if text == "" {
			text = c.Snapshot().Draft
		}
		err = c.SubmitAnswer(ctx, text)
	case "/resume":
		err = c.ResumeListening()
	case "/code":
		var b []byte
		if b, err = os.ReadFile(arg); err == nil {
			err = c.SubmitCode(ctx, string(b))
		}
	case "/fullscreen":
		r.s.monitor.FullscreenChanged(arg != "off")
	case "/away":
		r.s.monitor.VisibilityChanged(true)
	case "/back":
		r.s.monitor.VisibilityChanged(false)
	case "/status":
		snap := c.Snapshot()
		fmt.Fprintf(r.out, "state=%s questions=%d fullscreen_exits=%d tab_switches=%d\n",
			snap.State, countKind(snap.Transcript, models.EntryQuestion),
			snap.Proctoring.FullscreenExits, snap.Proctoring.TabSwitches)
		if snap.Draft != "" {
			fmt.Fprintf(r.out, "draft: %s\n", snap.Draft)
		}
	default:
		fmt.Fprintf(r.out, "unknown command %s; /help lists commands\n", name)
	}

	if err != nil {
		msg := err.Error()
		if utils.Retryable(err) {
			msg += " (you can try again)"
		}
		fmt.Fprintf(r.out, "[!] %s\n", msg)
	}
	return false
}

func countKind(entries []models.TranscriptEntry, k models.EntryKind) int {
	n := 0
	for _, e := range entries {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func printSummary(out io.Writer, sum interview.Summary) {
	fmt.Fprintln(out, "\nInterview ended.")
	fmt.Fprintf(out, "  questions: %d, answers: %d, duration: %s\n", sum.Questions, sum.Answers, sum.Duration.Round(time.Second))
	if len(sum.Activity) == 0 {
		fmt.Fprintln(out, "  no suspicious activity detected")
	}
	for _, line := range sum.Activity {
		fmt.Fprintf(out, "  ! %s\n", line)
	}
	fmt.Fprintln(out, "Results: interview-client status")
}
