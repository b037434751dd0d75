package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/questgraph/internal/config"
	"github.com/metalagman/questgraph/internal/db"
	"github.com/metalagman/questgraph/internal/model"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a questgraph workspace",
		Long:  "Initialize a questgraph workspace by writing a default config and creating the progress database.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fileExists(cfgFile) && !force {
				log.Info().Str("path", cfgFile).Msg("config already exists, skipping")
			} else {
				cfg := config.Default()
				if modeFlag != "" {
					mode, err := model.ParseGameMode(modeFlag)
					if err != nil {
						return err
					}
					cfg.GameMode = string(mode)
				}
				log.Info().Str("path", cfgFile).Msg("writing default config")
				if err := config.Write(cfgFile, cfg); err != nil {
					return err
				}
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log.Info().Str("path", cfg.Database).Msg("creating progress database")
			database, err := db.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			_ = database.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "questgraph initialized successfully")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config with defaults")
	return cmd
}
