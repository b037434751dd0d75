package gamedata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/metalagman/questgraph/internal/model"
)

// DefaultEndpoint is the public tarkov.dev GraphQL API.
const DefaultEndpoint = "https://api.tarkov.dev/graphql"

const gameDataQuery = `query GameData($lang: LanguageCode, $gameMode: GameMode) {
  tasks(lang: $lang, gameMode: $gameMode) {
    id
    name
    trader { id }
    factionName
    minPlayerLevel
    traderLevelRequirements { trader { id } level }
    taskRequirements { task { id } status }
    objectives {
      id
      type
      description
      optional
      ... on TaskObjectiveItem { count }
      ... on TaskObjectiveShoot { count }
      ... on TaskObjectiveUseItem { count }
    }
    failConditions {
      id
      type
      description
      ... on TaskObjectiveTaskStatus { task { id } status }
    }
  }
  hideoutStations(lang: $lang, gameMode: $gameMode) {
    id
    name
    levels {
      id
      level
      itemRequirements { item { id } count }
      traderRequirements { trader { id } level }
      skillRequirements { name level }
      stationLevelRequirements { station { id } level }
    }
  }
}`

// GraphQLProvider fetches game data from a tarkov.dev compatible GraphQL endpoint.
type GraphQLProvider struct {
	endpoint string
	lang     string
	client   *http.Client
}

// NewGraphQLProvider creates a provider. An empty endpoint means DefaultEndpoint.
func NewGraphQLProvider(endpoint, lang string, timeout time.Duration) *GraphQLProvider {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if lang == "" {
		lang = "en"
	}
	return &GraphQLProvider{
		endpoint: endpoint,
		lang:     lang,
		client:   &http.Client{Timeout: timeout},
	}
}

// Fetch posts the game data query and maps the response onto the model.
func (p *GraphQLProvider) Fetch(ctx context.Context, mode model.GameMode) (*Snapshot, error) {
	payload, err := json.Marshal(map[string]any{
		"query": gameDataQuery,
		"variables": map[string]string{
			"lang":     p.lang,
			"gameMode": apiGameMode(mode),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query game data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read game data: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderResponse, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not valid JSON", ErrProviderResponse)
	}

	snap, err := parseGameData(gjson.ParseBytes(body))
	if err != nil {
		return nil, err
	}
	snap.GameMode = mode
	snap.FetchedAt = time.Now().UTC()

	log.Debug().
		Str("endpoint", p.endpoint).
		Str("mode", string(mode)).
		Int("tasks", len(snap.Tasks)).
		Int("stations", len(snap.Stations)).
		Dur("took", time.Since(started)).
		Msg("game data fetched")
	return snap, nil
}

// apiGameMode maps our game mode names onto the API enum.
func apiGameMode(mode model.GameMode) string {
	if mode == model.GameModePvE {
		return "pve"
	}
	return "regular"
}

func parseGameData(doc gjson.Result) (*Snapshot, error) {
	if errs := doc.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		var msgs []string
		errs.ForEach(func(_, e gjson.Result) bool {
			msgs = append(msgs, e.Get("message").String())
			return true
		})
		// Partial data is still usable; only fail when nothing came back.
		if !doc.Get("data.tasks").IsArray() {
			return nil, fmt.Errorf("%w: %s", ErrProviderResponse, strings.Join(msgs, "; "))
		}
		log.Warn().Strs("errors", msgs).Msg("game data provider returned partial data")
	}

	snap := &Snapshot{}
	doc.Get("data.tasks").ForEach(func(_, t gjson.Result) bool {
		snap.Tasks = append(snap.Tasks, parseTask(t))
		return true
	})
	doc.Get("data.hideoutStations").ForEach(func(_, s gjson.Result) bool {
		snap.Stations = append(snap.Stations, parseStation(s))
		return true
	})
	snap.Normalize()
	return snap, nil
}

func parseTask(t gjson.Result) model.Task {
	task := model.Task{
		ID:             t.Get("id").String(),
		Name:           t.Get("name").String(),
		TraderID:       t.Get("trader.id").String(),
		FactionName:    t.Get("factionName").String(),
		MinPlayerLevel: int(t.Get("minPlayerLevel").Int()),
	}
	t.Get("traderLevelRequirements").ForEach(func(_, r gjson.Result) bool {
		task.TraderLevelRequirements = append(task.TraderLevelRequirements, model.TraderRequirement{
			TraderID: r.Get("trader.id").String(),
			Level:    int(r.Get("level").Int()),
		})
		return true
	})
	t.Get("taskRequirements").ForEach(func(_, r gjson.Result) bool {
		id := r.Get("task.id").String()
		if id == "" {
			return true
		}
		task.TaskRequirements = append(task.TaskRequirements, model.TaskRequirement{
			TaskID: id,
			Status: stringList(r.Get("status")),
		})
		return true
	})
	t.Get("objectives").ForEach(func(_, o gjson.Result) bool {
		task.Objectives = append(task.Objectives, model.Objective{
			ID:          o.Get("id").String(),
			Type:        o.Get("type").String(),
			Description: o.Get("description").String(),
			Count:       int(o.Get("count").Int()),
			Optional:    o.Get("optional").Bool(),
		})
		return true
	})
	t.Get("failConditions").ForEach(func(_, f gjson.Result) bool {
		task.FailConditions = append(task.FailConditions, model.FailCondition{
			ID:          f.Get("id").String(),
			Type:        f.Get("type").String(),
			Description: f.Get("description").String(),
			TaskID:      f.Get("task.id").String(),
			Status:      stringList(f.Get("status")),
		})
		return true
	})
	return task
}

func parseStation(s gjson.Result) model.HideoutStation {
	station := model.HideoutStation{
		ID:   s.Get("id").String(),
		Name: s.Get("name").String(),
	}
	s.Get("levels").ForEach(func(_, l gjson.Result) bool {
		lvl := model.HideoutLevel{
			ID:    l.Get("id").String(),
			Level: int(l.Get("level").Int()),
		}
		l.Get("itemRequirements").ForEach(func(_, r gjson.Result) bool {
			lvl.ItemRequirements = append(lvl.ItemRequirements, model.ItemRequirement{
				ItemID: r.Get("item.id").String(),
				Count:  int(r.Get("count").Int()),
			})
			return true
		})
		l.Get("traderRequirements").ForEach(func(_, r gjson.Result) bool {
			lvl.TraderRequirements = append(lvl.TraderRequirements, model.TraderRequirement{
				TraderID: r.Get("trader.id").String(),
				Level:    int(r.Get("level").Int()),
			})
			return true
		})
		l.Get("skillRequirements").ForEach(func(_, r gjson.Result) bool {
			lvl.SkillRequirements = append(lvl.SkillRequirements, model.SkillRequirement{
				Name:  r.Get("name").String(),
				Level: int(r.Get("level").Int()),
			})
			return true
		})
		l.Get("stationLevelRequirements").ForEach(func(_, r gjson.Result) bool {
			lvl.StationLevelRequirements = append(lvl.StationLevelRequirements, model.StationLevelRequirement{
				StationID: r.Get("station.id").String(),
				Level:     int(r.Get("level").Int()),
			})
			return true
		})
		station.Levels = append(station.Levels, lvl)
		return true
	})
	return station
}

// stringList reads a string array, accepting a bare string as a one-element list.
func stringList(v gjson.Result) []string {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	if !v.IsArray() {
		return []string{v.String()}
	}
	var out []string
	v.ForEach(func(_, s gjson.Result) bool {
		out = append(out, s.String())
		return true
	})
	return out
}
