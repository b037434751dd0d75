package gamedata

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/metalagman/questgraph/internal/graph"
	"github.com/metalagman/questgraph/internal/model"
)

// Data is a snapshot together with the graphs built from it.
type Data struct {
	Snapshot *Snapshot
	Tasks    *graph.TaskGraph
	Hideout  *graph.HideoutGraph
}

// NewData builds the task and hideout graphs for snap.
func NewData(snap *Snapshot, opts ...graph.Option) *Data {
	return &Data{
		Snapshot: snap,
		Tasks:    graph.BuildTasks(snap.Tasks, opts...),
		Hideout:  graph.BuildHideout(snap.Stations, opts...),
	}
}

// Cache keeps the latest game data for one mode and refreshes it on a cron schedule.
// Readers always see a complete Data value; a failed refresh keeps the previous one.
type Cache struct {
	provider  Provider
	mode      model.GameMode
	schedule  string
	fallback  string
	mu        sync.RWMutex
	data      *Data
	listeners []func(*Data)
	cron      *cron.Cron
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithSchedule refreshes on a cron spec such as "@every 6h" or "0 */6 * * *".
func WithSchedule(spec string) CacheOption {
	return func(c *Cache) {
		c.schedule = spec
	}
}

// WithSnapshotFile writes every successful fetch to path and reads it back when a
// fetch fails before any data is loaded.
func WithSnapshotFile(path string) CacheOption {
	return func(c *Cache) {
		c.fallback = path
	}
}

// NewCache creates an empty cache. Call Refresh or Start to load data.
func NewCache(p Provider, mode model.GameMode, opts ...CacheOption) *Cache {
	c := &Cache{provider: p, mode: mode}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnRefresh registers fn to run after every successful refresh.
func (c *Cache) OnRefresh(fn func(*Data)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Data returns the current game data, or nil before the first load.
func (c *Cache) Data() *Data {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data
}

// Snapshot returns the current raw snapshot, or nil before the first load.
func (c *Cache) Snapshot() *Snapshot {
	if d := c.Data(); d != nil {
		return d.Snapshot
	}
	return nil
}

// Refresh fetches from the provider and swaps in the new data.
func (c *Cache) Refresh(ctx context.Context) error {
	snap, err := c.provider.Fetch(ctx, c.mode)
	if err != nil {
		return fmt.Errorf("refresh game data: %w", err)
	}
	if c.fallback != "" {
		if err := WriteSnapshot(c.fallback, snap); err != nil {
			log.Warn().Err(err).Str("path", c.fallback).Msg("cannot persist game data snapshot")
		}
	}
	c.swap(snap)
	return nil
}

func (c *Cache) swap(snap *Snapshot) {
	d := NewData(snap)
	c.mu.Lock()
	c.data = d
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	log.Info().
		Str("mode", string(c.mode)).
		Int("tasks", d.Tasks.Len()).
		Int("modules", len(d.Hideout.Modules())).
		Msg("game data loaded")
	for _, fn := range listeners {
		fn(d)
	}
}

// Start loads the initial data and schedules refreshes. When the first fetch fails
// the snapshot file is used if one is configured.
func (c *Cache) Start(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		if c.fallback == "" {
			return err
		}
		snap, loadErr := LoadSnapshot(c.fallback)
		if loadErr != nil {
			return errors.Join(err, loadErr)
		}
		log.Warn().Err(err).Str("path", c.fallback).Msg("using cached game data snapshot")
		c.swap(snap)
	}

	if c.schedule == "" {
		return nil
	}
	c.cron = cron.New()
	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.Refresh(context.Background()); err != nil {
			log.Error().Err(err).Msg("scheduled game data refresh failed")
		}
	}); err != nil {
		c.cron = nil
		return fmt.Errorf("schedule refresh %q: %w", c.schedule, err)
	}
	c.cron.Start()
	log.Debug().Str("schedule", c.schedule).Msg("game data refresh scheduled")
	return nil
}

// Stop cancels scheduled refreshes and waits for a running one to finish.
func (c *Cache) Stop() {
	if c.cron == nil {
		return
	}
	<-c.cron.Stop().Done()
	c.cron = nil
}
