package cmd

import (
	"github.com/spf13/cobra"

	"watchtrail/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the watchtrail backend",
	Long:  `Run the backend HTTP server: token issuance, the /sync upsert endpoint and per-user data reads.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
