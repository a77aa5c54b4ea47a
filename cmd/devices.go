package cmd

import (
	"fmt"

	"github.com/ashleysally00/interview-voice-to-text-test/client/mic"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available audio input devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := mic.ListDevices()
		if err != nil {
			return fmt.Errorf("failed to list audio devices: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Available audio input devices:")
		for _, device := range devices {
			fmt.Fprintf(out, "[%d] %s\n", device.ID, device.Name)
			fmt.Fprintf(out, "    Max Input Channels: %d\n", device.MaxInputChannels)
			fmt.Fprintf(out, "    Default Sample Rate: %f\n", device.DefaultSampleRate)
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
