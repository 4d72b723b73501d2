package cmd

import (
	"github.com/spf13/cobra"

	"watchtrail/agent"
	"watchtrail/config"
	"watchtrail/logger"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the local watch-progress agent",
	Long: `Run the local agent: it receives progress observations from browser
content scripts, keeps the on-device store, and flushes pending changes
to the configured backend on a timer.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		a, err := agent.New(cfg)
		if err != nil {
			logger.Fatal("Failed to initialize agent", logger.ErrorField(err))
		}
		a.Start()
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
}
