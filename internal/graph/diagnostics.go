package graph

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DiagnosticKind classifies a data-quality problem found while building a graph.
type DiagnosticKind string

const (
	// DiagMissingTask is a requirement or fail condition pointing at an unknown task.
	DiagMissingTask DiagnosticKind = "missing_task"
	// DiagDuplicateID is a node id seen more than once; the first one wins.
	DiagDuplicateID DiagnosticKind = "duplicate_id"
	// DiagSelfReference is a task requiring itself.
	DiagSelfReference DiagnosticKind = "self_reference"
	// DiagMissingHideoutLevel is a station level requirement that cannot be resolved.
	DiagMissingHideoutLevel DiagnosticKind = "missing_hideout_level"
	// DiagCycle is a prerequisite chain that loops back on itself.
	DiagCycle DiagnosticKind = "cycle"
)

// Diagnostic describes one skipped edge or suspicious structure.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	NodeID  string         `json:"node"`
	Ref     string         `json:"ref,omitempty"`
	Path    []string       `json:"path,omitempty"`
	Message string         `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Ref != "" {
		return fmt.Sprintf("%s: %s -> %s: %s", d.Kind, d.NodeID, d.Ref, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.NodeID, d.Message)
}

// Option configures a builder.
type Option func(*options)

type options struct {
	logger zerolog.Logger
}

// WithLogger routes builder warnings to l instead of the global logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: log.Logger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type reporter struct {
	logger zerolog.Logger
	diags  []Diagnostic
}

func (r *reporter) warn(d Diagnostic) {
	ev := r.logger.Warn().
		Str("kind", string(d.Kind)).
		Str("node", d.NodeID)
	if d.Ref != "" {
		ev = ev.Str("ref", d.Ref)
	}
	if len(d.Path) > 0 {
		ev = ev.Strs("path", d.Path)
	}
	ev.Msg(d.Message)
	r.diags = append(r.diags, d)
}
