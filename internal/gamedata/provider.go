// Package gamedata fetches task and hideout definitions from a game-data provider,
// stores them as snapshot files and keeps a periodically refreshed copy in memory.
package gamedata

import (
	"context"
	"errors"
	"time"

	"github.com/metalagman/questgraph/internal/model"
)

// ErrProviderResponse is returned when a provider answers with an error payload.
var ErrProviderResponse = errors.New("game data provider returned an error")

// Snapshot is one fetch of game data for a game mode.
type Snapshot struct {
	GameMode  model.GameMode         `json:"gameMode"        yaml:"gameMode"`
	FetchedAt time.Time              `json:"fetchedAt"       yaml:"fetchedAt"`
	Tasks     []model.Task           `json:"tasks"           yaml:"tasks"`
	Stations  []model.HideoutStation `json:"hideoutStations" yaml:"hideoutStations"`
}

// Normalize fills optional fields the provider omitted.
func (s *Snapshot) Normalize() {
	model.NormalizeTasks(s.Tasks)
	model.NormalizeStations(s.Stations)
}

// Provider returns game data for a game mode.
type Provider interface {
	Fetch(ctx context.Context, mode model.GameMode) (*Snapshot, error)
}

// FileProvider serves a snapshot file written by WriteSnapshot or by hand.
type FileProvider struct {
	path string
}

// NewFileProvider creates a provider reading path on every fetch.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Fetch loads the snapshot file. The mode of the file wins when it is set.
func (p *FileProvider) Fetch(_ context.Context, mode model.GameMode) (*Snapshot, error) {
	snap, err := LoadSnapshot(p.path)
	if err != nil {
		return nil, err
	}
	if snap.GameMode == "" {
		snap.GameMode = mode
	}
	return snap, nil
}
