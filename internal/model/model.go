// Package model defines the game data and progress shapes consumed by the progression engine.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// GameMode selects one of the parallel progress tracks.
type GameMode string

const (
	// GameModePvP is the regular online mode.
	GameModePvP GameMode = "pvp"
	// GameModePvE is the cooperative mode with its own, separate progress.
	GameModePvE GameMode = "pve"
)

// ErrUnknownGameMode is returned when a game mode string is not recognized.
var ErrUnknownGameMode = errors.New("unknown game mode")

// ParseGameMode parses a game mode name, case-insensitively. Empty means pvp.
func ParseGameMode(value string) (GameMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(GameModePvP), "regular":
		return GameModePvP, nil
	case string(GameModePvE):
		return GameModePvE, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGameMode, value)
	}
}

// Faction names.
const (
	FactionAny  = "Any"
	FactionUSEC = "USEC"
	FactionBEAR = "BEAR"
)

// Task is a quest-like unit of progress.
//
// Predecessors, Successors and Alternatives are derived by the graph builder.
// Parents and Children are exposed as aliases of Predecessors and Successors.
type Task struct {
	ID                      string              `json:"id"                                yaml:"id"`
	Name                    string              `json:"name"                              yaml:"name"`
	TraderID                string              `json:"trader,omitempty"                  yaml:"trader,omitempty"`
	FactionName             string              `json:"factionName,omitempty"             yaml:"factionName,omitempty"`
	MinPlayerLevel          int                 `json:"minPlayerLevel,omitempty"          yaml:"minPlayerLevel,omitempty"`
	TraderLevelRequirements []TraderRequirement `json:"traderLevelRequirements,omitempty" yaml:"traderLevelRequirements,omitempty"`
	TaskRequirements        []TaskRequirement   `json:"taskRequirements,omitempty"        yaml:"taskRequirements,omitempty"`
	FailedRequirements      []TaskRequirement   `json:"failedRequirements,omitempty"      yaml:"failedRequirements,omitempty"`
	Objectives              []Objective         `json:"objectives,omitempty"              yaml:"objectives,omitempty"`
	FailConditions          []FailCondition     `json:"failConditions,omitempty"          yaml:"failConditions,omitempty"`

	Predecessors []string `json:"predecessors,omitempty" yaml:"predecessors,omitempty"`
	Successors   []string `json:"successors,omitempty"   yaml:"successors,omitempty"`
	Alternatives []string `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}

// Parents returns the direct prerequisites of the task. Same slice as Predecessors.
func (t *Task) Parents() []string {
	return t.Predecessors
}

// Children returns the tasks directly unlocked by this one. Same slice as Successors.
func (t *Task) Children() []string {
	return t.Successors
}

// MarshalJSON emits parents and children next to predecessors and successors.
func (t Task) MarshalJSON() ([]byte, error) {
	type plain Task
	return json.Marshal(struct {
		plain
		Parents  []string `json:"parents,omitempty"`
		Children []string `json:"children,omitempty"`
	}{
		plain:    plain(t),
		Parents:  t.Predecessors,
		Children: t.Successors,
	})
}

// IsFactionTask reports whether the task is restricted to a single faction.
func (t *Task) IsFactionTask() bool {
	return t.FactionName != "" && !strings.EqualFold(t.FactionName, FactionAny)
}

// AvailableToFaction reports whether a player of the given faction may take the task.
func (t *Task) AvailableToFaction(faction string) bool {
	if !t.IsFactionTask() {
		return true
	}
	return strings.EqualFold(t.FactionName, faction)
}

// ObjectiveIDs returns the ids of every objective of the task.
func (t *Task) ObjectiveIDs() []string {
	ids := make([]string, 0, len(t.Objectives))
	for _, obj := range t.Objectives {
		if obj.ID != "" {
			ids = append(ids, obj.ID)
		}
	}
	return ids
}

// Clone returns a copy of the task that shares no slices with t.
func (t Task) Clone() Task {
	c := t
	c.TraderLevelRequirements = append([]TraderRequirement(nil), t.TraderLevelRequirements...)
	c.TaskRequirements = cloneRequirements(t.TaskRequirements)
	c.FailedRequirements = cloneRequirements(t.FailedRequirements)
	c.Objectives = append([]Objective(nil), t.Objectives...)
	c.FailConditions = make([]FailCondition, len(t.FailConditions))
	for i, fc := range t.FailConditions {
		fc.Status = append([]string(nil), fc.Status...)
		c.FailConditions[i] = fc
	}
	if t.FailConditions == nil {
		c.FailConditions = nil
	}
	c.Predecessors = append([]string(nil), t.Predecessors...)
	c.Successors = append([]string(nil), t.Successors...)
	c.Alternatives = append([]string(nil), t.Alternatives...)
	return c
}

func cloneRequirements(reqs []TaskRequirement) []TaskRequirement {
	if reqs == nil {
		return nil
	}
	out := make([]TaskRequirement, len(reqs))
	for i, r := range reqs {
		out[i] = TaskRequirement{TaskID: r.TaskID, Status: append([]string(nil), r.Status...)}
	}
	return out
}

// Normalize fills optional fields that providers may omit.
func (t *Task) Normalize() {
	if strings.TrimSpace(t.FactionName) == "" {
		t.FactionName = FactionAny
	}
	for i := range t.Objectives {
		if t.Objectives[i].Count <= 0 {
			t.Objectives[i].Count = 1
		}
	}
	for i := range t.TraderLevelRequirements {
		if t.TraderLevelRequirements[i].Level <= 0 {
			t.TraderLevelRequirements[i].Level = 1
		}
	}
}

// NormalizeTasks normalizes every task in place.
func NormalizeTasks(tasks []Task) {
	for i := range tasks {
		tasks[i].Normalize()
	}
}

// TaskRequirement is a status-qualified edge to another task.
type TaskRequirement struct {
	TaskID string   `json:"task"             yaml:"task"`
	Status []string `json:"status,omitempty" yaml:"status,omitempty"`
}

// Kind classifies the requirement status list.
func (r TaskRequirement) Kind() RequirementKind {
	return ClassifyStatus(r.Status)
}

// Objective is a sub-step of a task.
type Objective struct {
	ID          string `json:"id"                    yaml:"id"`
	Type        string `json:"type,omitempty"        yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Count       int    `json:"count,omitempty"       yaml:"count,omitempty"`
	Optional    bool   `json:"optional,omitempty"    yaml:"optional,omitempty"`
}

// FailCondition is an objective-shaped condition that fails the owning task.
// TaskID is set when the condition is "another task reached Status".
type FailCondition struct {
	ID          string   `json:"id"                    yaml:"id"`
	Type        string   `json:"type,omitempty"        yaml:"type,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	TaskID      string   `json:"task,omitempty"        yaml:"task,omitempty"`
	Status      []string `json:"status,omitempty"      yaml:"status,omitempty"`
}

// TraderRequirement is a minimum loyalty level with a trader.
type TraderRequirement struct {
	TraderID string `json:"trader" yaml:"trader"`
	Level    int    `json:"level"  yaml:"level"`
}

// HideoutStation is an upgradeable base-building unit.
type HideoutStation struct {
	ID     string         `json:"id"     yaml:"id"`
	Name   string         `json:"name"   yaml:"name"`
	Levels []HideoutLevel `json:"levels" yaml:"levels"`
}

// Level returns the station level with the given number.
func (s *HideoutStation) Level(level int) (*HideoutLevel, bool) {
	for i := range s.Levels {
		if s.Levels[i].Level == level {
			return &s.Levels[i], true
		}
	}
	return nil, false
}

// HideoutLevel is a single buildable level of a station.
type HideoutLevel struct {
	ID                       string                    `json:"id"                                 yaml:"id"`
	Level                    int                       `json:"level"                              yaml:"level"`
	ItemRequirements         []ItemRequirement         `json:"itemRequirements,omitempty"         yaml:"itemRequirements,omitempty"`
	TraderRequirements       []TraderRequirement       `json:"traderRequirements,omitempty"       yaml:"traderRequirements,omitempty"`
	SkillRequirements        []SkillRequirement        `json:"skillRequirements,omitempty"        yaml:"skillRequirements,omitempty"`
	StationLevelRequirements []StationLevelRequirement `json:"stationLevelRequirements,omitempty" yaml:"stationLevelRequirements,omitempty"`
}

// ItemRequirement is an item and amount consumed by a hideout level.
type ItemRequirement struct {
	ItemID string `json:"item"  yaml:"item"`
	Count  int    `json:"count" yaml:"count"`
}

// SkillRequirement is a minimum skill level.
type SkillRequirement struct {
	Name  string `json:"name"  yaml:"name"`
	Level int    `json:"level" yaml:"level"`
}

// StationLevelRequirement references a required level of another station.
type StationLevelRequirement struct {
	StationID string `json:"station" yaml:"station"`
	Level     int    `json:"level"   yaml:"level"`
}

// NormalizeStations fills optional counts that providers may omit.
func NormalizeStations(stations []HideoutStation) {
	for i := range stations {
		for j := range stations[i].Levels {
			lvl := &stations[i].Levels[j]
			for k := range lvl.ItemRequirements {
				if lvl.ItemRequirements[k].Count <= 0 {
					lvl.ItemRequirements[k].Count = 1
				}
			}
			for k := range lvl.TraderRequirements {
				if lvl.TraderRequirements[k].Level <= 0 {
					lvl.TraderRequirements[k].Level = 1
				}
			}
		}
	}
}

// CompletionRecord is the persisted state of one task for one member in one game mode.
// A failed task is also complete; Failed is authoritative on its own.
type CompletionRecord struct {
	Complete  bool  `json:"complete"`
	Failed    bool  `json:"failed"`
	Timestamp int64 `json:"timestamp"`
}

// Done reports whether the task reached a terminal state, successful or failed.
func (r CompletionRecord) Done() bool {
	return r.Complete || r.Failed
}

// Succeeded reports a clean completion.
func (r CompletionRecord) Succeeded() bool {
	return r.Complete && !r.Failed
}

// InProgress reports a touched record that is neither completed nor failed.
func (r CompletionRecord) InProgress() bool {
	return !r.Complete && !r.Failed
}

// ObjectiveRecord is the persisted state of one objective.
type ObjectiveRecord struct {
	Complete  bool  `json:"complete"`
	Count     int   `json:"count"`
	Timestamp int64 `json:"timestamp"`
}
