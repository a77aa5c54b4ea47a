package cmd

import (
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload a WAV file and print its transcript and sentiment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		result, err := c.UploadFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	addClientFlags(uploadCmd)

	rootCmd.AddCommand(uploadCmd)
}
