package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/metalagman/questgraph/internal/config"
	"github.com/metalagman/questgraph/internal/logging"
)

var (
	cfgFile  string
	debug    bool
	logJSON  bool
	modeFlag string
	envFile  string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "questgraph",
		Short:         "questgraph resolves quest and hideout progress for a team",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logging.Init(debug, logJSON)
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON lines")
	cmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "game mode override (pvp|pve)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with QUESTGRAPH_* overrides")

	cmd.AddCommand(
		initCmd(),
		fetchCmd(),
		memberCmd(),
		progressCmd(),
		statusCmd(),
		graphCmd(),
		reconcileCmd(),
		historyCmd(),
		pruneCmd(),
		serveCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
