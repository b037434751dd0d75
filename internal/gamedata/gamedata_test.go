package gamedata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/questgraph/internal/model"
)

const gameDataResponse = `{
  "data": {
    "tasks": [
      {
        "id": "t1",
        "name": "Debut",
        "trader": {"id": "prapor"},
        "factionName": null,
        "minPlayerLevel": 1,
        "traderLevelRequirements": [],
        "taskRequirements": [],
        "objectives": [{"id": "o1", "type": "shoot", "description": "Kill scavs", "optional": false, "count": 5}],
        "failConditions": []
      },
      {
        "id": "t2",
        "name": "Shootout Picnic",
        "trader": {"id": "prapor"},
        "factionName": "Any",
        "minPlayerLevel": 5,
        "traderLevelRequirements": [{"trader": {"id": "prapor"}, "level": 2}],
        "taskRequirements": [{"task": {"id": "t1"}, "status": ["complete"]}, {"task": null, "status": []}],
        "objectives": [{"id": "o2", "type": "visit", "description": "Visit", "optional": true}],
        "failConditions": [{"id": "f1", "type": "taskStatus", "description": "", "task": {"id": "t3"}, "status": ["complete"]}]
      }
    ],
    "hideoutStations": [
      {
        "id": "generator",
        "name": "Generator",
        "levels": [
          {
            "id": "gen-1",
            "level": 1,
            "itemRequirements": [{"item": {"id": "fuel"}, "count": 0}],
            "traderRequirements": [],
            "skillRequirements": [{"name": "Endurance", "level": 2}],
            "stationLevelRequirements": [{"station": {"id": "vents"}, "level": 1}]
          }
        ]
      }
    ]
  }
}`

func TestGraphQLProvider_Fetch(t *testing.T) {
	t.Parallel()

	var gotMode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query     string            `json:"query"`
			Variables map[string]string `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotMode = body.Variables["gameMode"]
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(gameDataResponse))
	}))
	t.Cleanup(srv.Close)

	p := NewGraphQLProvider(srv.URL, "en", 5*time.Second)
	snap, err := p.Fetch(context.Background(), model.GameModePvE)
	require.NoError(t, err)

	assert.Equal(t, "pve", gotMode)
	assert.Equal(t, model.GameModePvE, snap.GameMode)
	require.Len(t, snap.Tasks, 2)

	t1 := snap.Tasks[0]
	assert.Equal(t, "prapor", t1.TraderID)
	assert.Equal(t, model.FactionAny, t1.FactionName)
	assert.Equal(t, 5, t1.Objectives[0].Count)

	t2 := snap.Tasks[1]
	assert.Equal(t, []model.TaskRequirement{{TaskID: "t1", Status: []string{"complete"}}}, t2.TaskRequirements)
	assert.Equal(t, []model.TraderRequirement{{TraderID: "prapor", Level: 2}}, t2.TraderLevelRequirements)
	assert.Equal(t, 1, t2.Objectives[0].Count)
	assert.True(t, t2.Objectives[0].Optional)
	assert.Equal(t, "t3", t2.FailConditions[0].TaskID)

	require.Len(t, snap.Stations, 1)
	lvl := snap.Stations[0].Levels[0]
	assert.Equal(t, 1, lvl.ItemRequirements[0].Count)
	assert.Equal(t, []model.StationLevelRequirement{{StationID: "vents", Level: 1}}, lvl.StationLevelRequirements)
	assert.Equal(t, "Endurance", lvl.SkillRequirements[0].Name)
}

func TestGraphQLProvider_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "graphql errors", status: http.StatusOK, body: `{"errors":[{"message":"boom"}],"data":null}`},
		{name: "http status", status: http.StatusBadGateway, body: `bad gateway`},
		{name: "invalid json", status: http.StatusOK, body: `{"data":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			_, err := NewGraphQLProvider(srv.URL, "", time.Second).Fetch(context.Background(), model.GameModePvP)
			require.ErrorIs(t, err, ErrProviderResponse)
		})
	}
}

func TestSnapshotFiles(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{
		GameMode:  model.GameModePvP,
		FetchedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Tasks: []model.Task{
			{ID: "a", Name: "A", FactionName: model.FactionAny},
			{ID: "b", Name: "B", FactionName: model.FactionUSEC, TaskRequirements: []model.TaskRequirement{{TaskID: "a", Status: []string{"active"}}}},
		},
		Stations: []model.HideoutStation{{ID: "s", Name: "S", Levels: []model.HideoutLevel{{ID: "s-1", Level: 1}}}},
	}

	for _, name := range []string{"snapshot.json", "snapshot.yaml"} {
		path := filepath.Join(t.TempDir(), "nested", name)
		require.NoError(t, WriteSnapshot(path, snap), name)

		got, err := LoadSnapshot(path)
		require.NoError(t, err, name)
		assert.Equal(t, snap.Tasks, got.Tasks, name)
		assert.Equal(t, snap.Stations, got.Stations, name)
		assert.True(t, snap.FetchedAt.Equal(got.FetchedAt), name)
	}

	_, err := LoadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

type stubProvider struct {
	calls atomic.Int32
	snap  *Snapshot
	err   error
}

func (p *stubProvider) Fetch(_ context.Context, mode model.GameMode) (*Snapshot, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	s := *p.snap
	s.GameMode = mode
	return &s, nil
}

func TestCache_RefreshBuildsGraphs(t *testing.T) {
	t.Parallel()

	p := &stubProvider{snap: &Snapshot{Tasks: []model.Task{
		{ID: "a"},
		{ID: "b", TaskRequirements: []model.TaskRequirement{{TaskID: "a"}}},
	}}}
	path := filepath.Join(t.TempDir(), "cache.json")
	c := NewCache(p, model.GameModePvP, WithSnapshotFile(path))
	assert.Nil(t, c.Data())

	var seen *Data
	c.OnRefresh(func(d *Data) { seen = d })

	require.NoError(t, c.Refresh(context.Background()))
	d := c.Data()
	require.NotNil(t, d)
	assert.Same(t, d, seen)
	assert.Equal(t, []string{"a"}, d.Tasks.Predecessors("b"))
	assert.Equal(t, model.GameModePvP, c.Snapshot().GameMode)

	written, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Len(t, written.Tasks, 2)
}

func TestCache_NotifiesEveryListener(t *testing.T) {
	t.Parallel()

	p := &stubProvider{snap: &Snapshot{Tasks: []model.Task{{ID: "a"}}}}
	c := NewCache(p, model.GameModePvP)

	var calls []string
	c.OnRefresh(func(d *Data) {
		calls = append(calls, "first")
		assert.Same(t, d, c.Data())
		c.OnRefresh(func(*Data) { calls = append(calls, "late") })
	})
	c.OnRefresh(func(*Data) { calls = append(calls, "second") })

	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, []string{"first", "second"}, calls)

	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, []string{"first", "second", "first", "second", "late"}, calls)
}

func TestCache_StartFallsBackToSnapshotFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, WriteSnapshot(path, &Snapshot{Tasks: []model.Task{{ID: "cached"}}}))

	failing := &stubProvider{err: errors.New("offline")}
	c := NewCache(failing, model.GameModePvP, WithSnapshotFile(path), WithSchedule("@every 1h"))
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(c.Stop)

	require.NotNil(t, c.Data())
	assert.True(t, c.Data().Tasks.Has("cached"))
	assert.Equal(t, int32(1), failing.calls.Load())
}

func TestCache_StartErrors(t *testing.T) {
	t.Parallel()

	c := NewCache(&stubProvider{err: errors.New("offline")}, model.GameModePvP)
	require.Error(t, c.Start(context.Background()))

	ok := &stubProvider{snap: &Snapshot{}}
	c = NewCache(ok, model.GameModePvP, WithSchedule("not a schedule"))
	require.Error(t, c.Start(context.Background()))
	c.Stop()
}
