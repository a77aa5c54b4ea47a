package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ashleysally00/interview-voice-to-text-test/client"
	"github.com/ashleysally00/interview-voice-to-text-test/client/mic"
	"github.com/spf13/cobra"
)

var (
	deviceID     int
	maxDuration  time.Duration
	vadThreshold float64
	silence      time.Duration
	savePath     string
	playback     bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one utterance from the microphone and upload it",
	Args:  cobra.NoArgs,
	RunE:  runRecord,
}

func init() {
	addClientFlags(recordCmd)
	recordCmd.Flags().IntVarP(&deviceID, "device", "d", 0, "Audio input device ID to use (see devices)")
	recordCmd.Flags().DurationVar(&maxDuration, "max-duration", 30*time.Second, "Longest time to wait for and record speech")
	recordCmd.Flags().Float64Var(&vadThreshold, "vad-threshold", client.DefaultVADThreshold, "Energy ratio over background noise that counts as speech")
	recordCmd.Flags().DurationVar(&silence, "silence", client.DefaultSilenceThreshold, "Silence that ends the utterance")
	recordCmd.Flags().StringVarP(&savePath, "save", "o", "", "Also write the recording to this WAV file")
	recordCmd.Flags().BoolVar(&playback, "play", false, "Play the recording back before uploading")

	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.Ping(ctx); err != nil {
		return err
	}

	recording, err := mic.Record(ctx, mic.Options{
		DeviceID:         deviceID,
		MaxDuration:      maxDuration,
		VADThreshold:     vadThreshold,
		SilenceThreshold: silence,
	})
	if errors.Is(err, client.ErrNoSpeech) {
		fmt.Fprintln(cmd.OutOrStdout(), "No speech detected")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record: %w", err)
	}

	if savePath != "" {
		if err := os.WriteFile(savePath, recording, 0o644); err != nil {
			return fmt.Errorf("failed to save recording: %w", err)
		}
		slog.Info("Recording saved", "path", savePath, "bytes", len(recording))
	}
	if playback {
		if err := mic.Play(ctx, recording); err != nil {
			slog.Error("Failed to play recording", "error", err)
		}
	}

	result, err := c.Upload(ctx, "recording.wav", recording)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}
