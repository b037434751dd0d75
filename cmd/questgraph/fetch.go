package main

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/questgraph/internal/config"
	"github.com/metalagman/questgraph/internal/gamedata"
	"github.com/metalagman/questgraph/internal/graph"
	"github.com/metalagman/questgraph/internal/logging"
)

func fetchCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download game data and store it as a snapshot file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.Provider.File
			}
			if cfg.Provider.Kind == config.ProviderFile && sameFile(out, cfg.Provider.File) {
				return fmt.Errorf("provider reads %s already, pass --out to copy it elsewhere", out)
			}

			snap, err := newProvider(cfg).Fetch(cmd.Context(), cfg.Mode())
			if err != nil {
				return err
			}
			if err := gamedata.WriteSnapshot(out, snap); err != nil {
				return err
			}

			data := gamedata.NewData(snap, graph.WithLogger(logging.Component("graph")))
			log.Info().
				Str("path", out).
				Str("mode", string(snap.GameMode)).
				Int("tasks", data.Tasks.Len()).
				Int("modules", len(data.Hideout.Modules())).
				Int("diagnostics", len(data.Tasks.Diagnostics())+len(data.Hideout.Diagnostics())).
				Msg("game data saved")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "snapshot path (.json, .yaml); defaults to provider.file")
	return cmd
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
