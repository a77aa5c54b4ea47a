package cmd

import (
	"fmt"

	"github.com/ashleysally00/interview-voice-to-text-test/config"
	"github.com/ashleysally00/interview-voice-to-text-test/store"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and Google Cloud credentials without serving",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Listen address:   %s (tls: %t)\n", cfg.HTTPAddr, cfg.TLSEnabled())
		fmt.Fprintf(out, "Uploads dir:      %s\n", cfg.UploadsDir)
		fmt.Fprintf(out, "Speech:           %s @ %d Hz\n", cfg.SpeechLanguage, cfg.SpeechSampleRate)

		if _, err := store.New(cfg.UploadsDir, nil); err != nil {
			return err
		}
		if err := cfg.CheckCredentials(cmd.Context()); err != nil {
			return err
		}
		if cfg.CredentialsFile != "" {
			fmt.Fprintf(out, "Credentials:      %s\n", cfg.CredentialsFile)
		} else {
			fmt.Fprintln(out, "Credentials:      application default")
		}

		fmt.Fprintln(out, "Configuration OK")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
