// Package web serves the questgraph HTTP API, a small status page and a websocket
// feed of recomputed team progress.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/metalagman/questgraph/internal/engine"
	"github.com/metalagman/questgraph/internal/gamedata"
	"github.com/metalagman/questgraph/internal/model"
	"github.com/metalagman/questgraph/internal/progress"
)

// Store is the progress persistence the server reads and writes.
type Store interface {
	Members(ctx context.Context, mode model.GameMode) ([]engine.Member, error)
	Member(ctx context.Context, id string, mode model.GameMode) (engine.Member, error)
	PutTask(ctx context.Context, id string, mode model.GameMode, taskID string, rec model.CompletionRecord) (bool, error)
	PutObjective(ctx context.Context, id string, mode model.GameMode, objectiveID string, rec model.ObjectiveRecord) (bool, error)
	PutHideout(ctx context.Context, id string, mode model.GameMode, moduleID string, rec model.CompletionRecord) (bool, error)
}

// DataSource supplies the current game data.
type DataSource interface {
	Data() *gamedata.Data
}

// Server provides the HTTP handlers and websocket hub.
type Server struct {
	store  Store
	data   DataSource
	mode   model.GameMode
	opts   []engine.Option
	hub    *hub
	logger zerolog.Logger
}

// NewServer creates a server for one game mode. Engine options are passed to every
// resolution pass.
func NewServer(store Store, data DataSource, mode model.GameMode, opts ...engine.Option) (*Server, error) {
	if store == nil || data == nil {
		return nil, errors.New("web: store and data source are required")
	}
	logger := log.Logger.With().Str("component", "web").Logger()
	return &Server{
		store:  store,
		data:   data,
		mode:   mode,
		opts:   opts,
		hub:    newHub(logger),
		logger: logger,
	}, nil
}

//go:embed templates/*.html
var templatesFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// Routes returns the router for the API and UI.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/v1/tasks", s.handleTasks)
	mux.HandleFunc("GET /api/v1/hideout", s.handleHideout)
	mux.HandleFunc("GET /api/v1/progress", s.handleProgress)
	mux.HandleFunc("GET /api/v1/team/progress", s.handleTeamProgress)
	mux.HandleFunc("POST /api/v1/members/{id}/tasks/{taskID}", s.handlePutTask)
	mux.HandleFunc("POST /api/v1/members/{id}/objectives/{objectiveID}", s.handlePutObjective)
	mux.HandleFunc("POST /api/v1/members/{id}/hideout/{moduleID}", s.handlePutHideout)
	mux.HandleFunc("GET /ws", s.handleWS)
	return s.withRequestID(mux)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		s.logger.Debug().Str("request_id", id).Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		next.ServeHTTP(w, r)
	})
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: err.Error()})
}

var errNoData = errors.New("game data is not loaded yet")

func (s *Server) current(w http.ResponseWriter) (*gamedata.Data, bool) {
	d := s.data.Data()
	if d == nil {
		writeError(w, http.StatusServiceUnavailable, errNoData)
		return nil, false
	}
	return d, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	d, ok := s.current(w)
	if !ok {
		return
	}
	members, err := s.store.Members(r.Context(), s.mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	res, err := engine.Resolve(r.Context(), d.Tasks, members, s.opts...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	view := res.Team(engine.PolicyAny, d.Tasks, members)

	type row struct {
		ID, Name  string
		Available bool
		Complete  bool
		Invalid   bool
	}
	tasks := d.Tasks.Tasks()
	rows := make([]row, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		rows = append(rows, row{
			ID:        t.ID,
			Name:      t.Name,
			Available: view.Available[t.ID],
			Complete:  view.Complete[t.ID],
			Invalid:   view.Invalid[t.ID],
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, map[string]any{
		"Mode":    s.mode,
		"Members": members,
		"Tasks":   rows,
	}); err != nil {
		s.logger.Error().Err(err).Msg("render index")
	}
}

func (s *Server) handleTasks(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.current(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gameMode":    s.mode,
		"tasks":       d.Tasks.Tasks(),
		"diagnostics": d.Tasks.Diagnostics(),
	})
}

func (s *Server) handleHideout(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.current(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gameMode":    s.mode,
		"modules":     d.Hideout.Modules(),
		"diagnostics": d.Hideout.Diagnostics(),
	})
}

// TaskRow is the per-task progress entry reported to API callers. Complete mirrors the
// stored record, so a failed task reports both complete and failed.
type TaskRow struct {
	ID             string           `json:"id"`
	Complete       bool             `json:"complete"`
	Invalid        bool             `json:"invalid"`
	Failed         bool             `json:"failed"`
	Available      bool             `json:"available"`
	State          engine.TaskState `json:"state"`
	ObjectivesDone bool             `json:"objectivesDone"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	d, ok := s.current(w)
	if !ok {
		return
	}
	memberID := r.URL.Query().Get("member")
	if memberID == "" {
		writeError(w, http.StatusBadRequest, errors.New("member query parameter is required"))
		return
	}
	m, err := s.store.Member(r.Context(), memberID, s.mode)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	res, err := engine.Resolve(r.Context(), d.Tasks, []engine.Member{m}, s.opts...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	tasks := d.Tasks.Tasks()
	rows := make([]TaskRow, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		rec := m.Tasks[t.ID]
		rows = append(rows, TaskRow{
			ID:             t.ID,
			Complete:       rec.Complete || rec.Failed,
			Invalid:        res.InvalidTasks[t.ID][m.ID],
			Failed:         res.Failed[t.ID][m.ID],
			Available:      res.Available[t.ID][m.ID],
			State:          res.State(t.ID, m.ID),
			ObjectivesDone: objectivesDone(t, &m),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"member":   m.ID,
		"gameMode": s.mode,
		"tasks":    rows,
	})
}

func objectivesDone(t *model.Task, m *engine.Member) bool {
	if len(t.Objectives) == 0 {
		return false
	}
	for _, obj := range t.Objectives {
		if obj.Optional {
			continue
		}
		rec := m.Objectives[obj.ID]
		if !rec.Complete && rec.Count < obj.Count {
			return false
		}
	}
	return true
}

func (s *Server) teamView(ctx context.Context, policy engine.Policy) (*engine.TeamView, error) {
	d := s.data.Data()
	if d == nil {
		return nil, errNoData
	}
	members, err := s.store.Members(ctx, s.mode)
	if err != nil {
		return nil, err
	}
	opts := append([]engine.Option{engine.WithHideout(d.Hideout)}, s.opts...)
	res, err := engine.Resolve(ctx, d.Tasks, members, opts...)
	if err != nil {
		return nil, err
	}
	view := res.Team(policy, d.Tasks, members)
	return &view, nil
}

func (s *Server) handleTeamProgress(w http.ResponseWriter, r *http.Request) {
	policy, err := engine.ParsePolicy(r.URL.Query().Get("policy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := s.teamView(r.Context(), policy)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type recordRequest struct {
	Complete  bool  `json:"complete"`
	Failed    bool  `json:"failed"`
	Count     int   `json:"count"`
	Timestamp int64 `json:"timestamp"`
}

func (s *Server) decodeRecord(w http.ResponseWriter, r *http.Request) (recordRequest, bool) {
	var req recordRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return recordRequest{}, false
	}
	return req, true
}

func (s *Server) handlePutTask(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRecord(w, r)
	if !ok {
		return
	}
	applied, err := s.store.PutTask(r.Context(), r.PathValue("id"), s.mode, r.PathValue("taskID"),
		model.CompletionRecord{Complete: req.Complete, Failed: req.Failed, Timestamp: req.Timestamp})
	s.afterWrite(w, r, applied, err)
}

func (s *Server) handlePutObjective(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRecord(w, r)
	if !ok {
		return
	}
	applied, err := s.store.PutObjective(r.Context(), r.PathValue("id"), s.mode, r.PathValue("objectiveID"),
		model.ObjectiveRecord{Complete: req.Complete, Count: req.Count, Timestamp: req.Timestamp})
	s.afterWrite(w, r, applied, err)
}

func (s *Server) handlePutHideout(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRecord(w, r)
	if !ok {
		return
	}
	applied, err := s.store.PutHideout(r.Context(), r.PathValue("id"), s.mode, r.PathValue("moduleID"),
		model.CompletionRecord{Complete: req.Complete, Timestamp: req.Timestamp})
	s.afterWrite(w, r, applied, err)
}

func (s *Server) afterWrite(w http.ResponseWriter, r *http.Request, applied bool, err error) {
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if applied {
		s.Notify(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

// Notify recomputes the team view and pushes it to websocket subscribers.
func (s *Server) Notify(ctx context.Context) {
	if s.hub.size() == 0 {
		return
	}
	policy := engine.PolicyAny
	view, err := s.teamView(ctx, policy)
	if err != nil {
		s.logger.Warn().Err(err).Msg("skip progress push")
		return
	}
	s.hub.broadcast(pushMessage{Type: "progress", GameMode: s.mode, Team: view})
}

// Close disconnects all websocket subscribers.
func (s *Server) Close() {
	s.hub.close()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, progress.ErrMemberNotFound):
		return http.StatusNotFound
	case errors.Is(err, errNoData):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
