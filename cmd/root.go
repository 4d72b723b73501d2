package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"watchtrail/config"
	"watchtrail/logger"
)

var rootCmd = &cobra.Command{
	Use:   "watchtrail",
	Short: "watchtrail tracks video-watch progress and syncs it to a backend.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogPath,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		})
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
