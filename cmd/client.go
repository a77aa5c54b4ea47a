package cmd

import (
	"fmt"
	"io"

	"github.com/ashleysally00/interview-voice-to-text-test/client"
	"github.com/ashleysally00/interview-voice-to-text-test/scribe"
	"github.com/ashleysally00/interview-voice-to-text-test/sentiment"
	"github.com/spf13/cobra"
)

var (
	serverURL      string
	insecureMode   bool
	serverCertFile string
)

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&serverURL, "server", "s", "http://localhost:3000", "Server base URL")
	cmd.Flags().BoolVar(&insecureMode, "insecure", false, "Enable insecure mode (skip certificate verification)")
	cmd.Flags().StringVar(&serverCertFile, "cert", "", "Path to server certificate file")
}

func newClient() (*client.Client, error) {
	return client.New(serverURL, insecureMode, serverCertFile)
}

func printResult(w io.Writer, result *scribe.Result) {
	if result.Message != "" {
		fmt.Fprintln(w, result.Message)
		return
	}

	fmt.Fprintf(w, "Transcript: %s\n", result.Transcript)
	if result.Sentiment != nil {
		fmt.Fprintf(w, "Sentiment:  %s (score %.2f, magnitude %.2f)\n",
			sentiment.Label(result.Sentiment.Score),
			result.Sentiment.Score,
			result.Sentiment.Magnitude)
	}
}
