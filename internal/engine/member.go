// Package engine resolves task availability and invalidity for team members.
//
// Every function is a pure computation over an immutable task graph and explicit
// per-member inputs. Memo tables live inside a single call and are never shared
// between members, so passes for different members may run concurrently.
package engine

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/metalagman/questgraph/internal/graph"
	"github.com/metalagman/questgraph/internal/model"
)

// Member holds one team member's attributes and completion records for one game mode.
type Member struct {
	ID           string
	Name         string
	Level        int
	Faction      string
	Hidden       bool
	TraderLevels map[string]int
	Tasks        map[string]model.CompletionRecord
	Objectives   map[string]model.ObjectiveRecord
	Hideout      map[string]model.CompletionRecord
}

func (m *Member) task(id string) (model.CompletionRecord, bool) {
	rec, ok := m.Tasks[id]
	return rec, ok
}

func (m *Member) succeeded(id string) bool {
	rec, ok := m.Tasks[id]
	return ok && rec.Succeeded()
}

func (m *Member) failed(id string) bool {
	rec, ok := m.Tasks[id]
	return ok && rec.Failed
}

func (m *Member) done(id string) bool {
	rec, ok := m.Tasks[id]
	return ok && rec.Done()
}

func (m *Member) built(moduleID string) bool {
	rec, ok := m.Hideout[moduleID]
	return ok && rec.Complete
}

// traderLevel returns the member's loyalty level with a trader. Unknown traders are level 1.
func (m *Member) traderLevel(traderID string) int {
	if lvl, ok := m.TraderLevels[traderID]; ok && lvl > 0 {
		return lvl
	}
	return 1
}

// Option configures engine computations.
type Option func(*options)

type options struct {
	logger      zerolog.Logger
	parallelism int
	hideout     *graph.HideoutGraph
}

// WithLogger routes data-quality warnings to l instead of the global logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithParallelism bounds how many members Resolve evaluates at once. Values below 1
// mean one member at a time.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithHideout makes Resolve compute hideout module availability over h as well.
func WithHideout(h *graph.HideoutGraph) Option {
	return func(o *options) {
		o.hideout = h
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: log.Logger, parallelism: 1}
	for _, opt := range opts {
		opt(o)
	}
	if o.parallelism < 1 {
		o.parallelism = 1
	}
	return o
}
