package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/proctor"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show setup progress and the latest interview results",
	RunE:  runStatus,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget setup progress and start over",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.progress.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Progress cleared.")
		return nil
	},
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	p, err := a.progress.Get(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Profile: %s\n\n", profile)
	fmt.Fprintf(out, "  device check   %s\n", doneText(p.CameraCheckCompleted))
	fmt.Fprintf(out, "  resume         %s\n", orDash(p.ResumeFileName))
	fmt.Fprintf(out, "  job            %s\n", orDash(p.JobTitle))
	fmt.Fprintf(out, "  session        %s\n", orDash(p.SessionID))
	if p.SessionExpiry != nil {
		fmt.Fprintf(out, "  expires        %s\n", p.SessionExpiry.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(out, "  interview      %s\n", doneText(p.InterviewCompleted))

	if a.progress.Allow(ctx, models.PageResults) != nil || a.reports == nil {
		return nil
	}
	r, err := a.reports.Get(ctx, p.SessionID)
	if err != nil {
		a.log.WithError(err).Debug("no archived report")
		return nil
	}
	fmt.Fprintf(out, "\nResults for %s (%s)\n", r.Session.CandidateName, r.Session.JobRole)
	fmt.Fprintf(out, "  duration       %s\n", time.Duration(r.DurationSeconds)*time.Second)
	fmt.Fprintf(out, "  transcript     %d entries\n", len(r.Transcript))
	for _, line := range proctor.Summary(r.Proctoring) {
		fmt.Fprintf(out, "  ! %s\n", line)
	}
	return nil
}

func doneText(b bool) string {
	if b {
		return "done"
	}
	return "pending"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
