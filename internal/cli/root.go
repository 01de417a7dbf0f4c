// Package cli defines the interview-client commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	profile   string
	stateFile string
	logLevel  string
	version   = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "interview-client",
	Short: "Live AI mock-interview client",
	Long: `interview-client walks a candidate through a mock interview: a device
check, resume and job setup, then the live session where the interviewer's
questions are spoken and answers are captured by microphone or typed.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "default", "Candidate profile the progress is stored under")
	rootCmd.PersistentFlags().StringVar(&stateFile, "state-file", "", "Progress file used when no redis is configured (default ~/.mockinterview/state.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
}
