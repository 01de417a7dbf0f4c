package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yoockh/mockinterview/internal/media"
	"github.com/yoockh/mockinterview/internal/models"
)

var (
	devicesListen time.Duration
	devicesAudio  string
	devicesFrame  string
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Check camera and microphone before the interview",
	Long: `Open the configured camera frame file and microphone stream, report
what works and remember the result. A passing check unlocks setup.`,
	RunE: runDevices,
}

func init() {
	devicesCmd.Flags().DurationVar(&devicesListen, "listen", 3*time.Second, "How long to listen to the microphone")
	devicesCmd.Flags().StringVar(&devicesAudio, "audio", "", "Override AUDIO_INPUT")
	devicesCmd.Flags().StringVar(&devicesFrame, "frame", "", "Override FRAME_INPUT")
}

func runDevices(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := media.Config{AudioInput: a.cfg.AudioInput, FrameInput: a.cfg.FrameInput}
	if devicesAudio != "" {
		cfg.AudioInput = devicesAudio
	}
	if devicesFrame != "" {
		cfg.FrameInput = devicesFrame
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Checking devices...")
	res := media.Probe(cfg, devicesListen)

	fmt.Fprintf(out, "  camera:     %s\n", okText(res.Camera))
	fmt.Fprintf(out, "  microphone: %s", okText(res.Microphone))
	if res.Microphone {
		fmt.Fprintf(out, " (peak level %.2f)", res.PeakLevel)
	}
	fmt.Fprintln(out)
	for _, p := range res.Problems {
		fmt.Fprintf(out, "  - %s\n", p)
	}

	// the camera is what the check gates on; a missing microphone falls
	// back to typed answers
	if !res.Camera {
		return fmt.Errorf("device check failed; fix the camera and run again")
	}
	_, err = a.progress.Update(cmd.Context(), func(p *models.Progress) {
		p.CameraCheckCompleted = true
		p.FrameInput = cfg.FrameInput
		p.AudioInput = ""
		if res.Microphone {
			p.AudioInput = cfg.AudioInput
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Device check passed. Next: interview-client init")
	return nil
}

func okText(ok bool) string {
	if ok {
		return "ok"
	}
	return "not available"
}
