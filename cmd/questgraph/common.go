package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/questgraph/internal/config"
	"github.com/metalagman/questgraph/internal/db"
	"github.com/metalagman/questgraph/internal/gamedata"
	"github.com/metalagman/questgraph/internal/model"
	"github.com/metalagman/questgraph/internal/progress"
)

// loadConfig reads the config file and applies the --mode override.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if modeFlag != "" {
		mode, err := model.ParseGameMode(modeFlag)
		if err != nil {
			return config.Config{}, err
		}
		cfg.GameMode = string(mode)
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg config.Config) (*progress.Store, func(), error) {
	database, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, func() {}, err
	}
	return progress.NewStore(database), func() { _ = database.Close() }, nil
}

func newProvider(cfg config.Config) gamedata.Provider {
	if cfg.Provider.Kind == config.ProviderFile {
		return gamedata.NewFileProvider(cfg.Provider.File)
	}
	return gamedata.NewGraphQLProvider(cfg.Provider.Endpoint, cfg.Provider.Lang, cfg.Provider.Timeout)
}

func newCache(cfg config.Config) *gamedata.Cache {
	opts := []gamedata.CacheOption{gamedata.WithSchedule(cfg.Provider.Refresh)}
	if cfg.Provider.Kind == config.ProviderGraphQL && cfg.Provider.File != "" {
		opts = append(opts, gamedata.WithSnapshotFile(cfg.Provider.File))
	}
	return gamedata.NewCache(newProvider(cfg), cfg.Mode(), opts...)
}

// loadData prefers the local snapshot file and only asks the provider when there is none.
func loadData(ctx context.Context, cfg config.Config) (*gamedata.Data, error) {
	if cfg.Provider.File != "" {
		snap, err := gamedata.LoadSnapshot(cfg.Provider.File)
		switch {
		case err == nil:
			if snap.GameMode != "" && snap.GameMode != cfg.Mode() {
				log.Warn().
					Str("snapshot_mode", string(snap.GameMode)).
					Str("mode", string(cfg.Mode())).
					Msg("snapshot was fetched for another game mode, run fetch to update it")
			}
			return gamedata.NewData(snap), nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}
	cache := newCache(cfg)
	if err := cache.Refresh(ctx); err != nil {
		return nil, err
	}
	return cache.Data(), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// resolveMember accepts a member id or a unique member name.
func resolveMember(ctx context.Context, store *progress.Store, ref string) (string, error) {
	if _, err := store.GetMember(ctx, ref); err == nil {
		return ref, nil
	} else if !errors.Is(err, progress.ErrMemberNotFound) {
		return "", err
	}
	members, err := store.ListMembers(ctx)
	if err != nil {
		return "", err
	}
	var found []string
	for _, m := range members {
		if m.Name == ref {
			found = append(found, m.ID)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: %s", progress.ErrMemberNotFound, ref)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("member name %q is ambiguous, use the id", ref)
	}
}
