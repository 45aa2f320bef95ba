package cmd

import (
	"github.com/spf13/cobra"
)

// AttachCLIFlags defines the command line flags bound into the config.
func AttachCLIFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "the config file to use")
	cmd.Flags().StringP("port", "p", "9876", "the http server port")
	cmd.Flags().Bool("verbose", false, "enable verbose logging")
}
