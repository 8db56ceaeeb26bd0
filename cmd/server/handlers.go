package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"fragsim.gg/internal/persistence/indexdb"
	persistlog "fragsim.gg/internal/persistence/log"
	"fragsim.gg/internal/protocol"
	"fragsim.gg/internal/sim/manager"
	"fragsim.gg/internal/sim/match"
	"fragsim.gg/internal/transport/ws"
)

type api struct {
	mgr     *manager.Manager
	stream  *ws.Server
	archive *indexdb.MatchArchive
	journal *persistlog.EventJournal
	logger  *log.Logger
}

func (a *api) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/simulations", a.handleCreate)
	mux.HandleFunc("GET /v1/simulations", a.handleList)
	mux.HandleFunc("GET /v1/simulations/{id}", a.handleState)
	mux.HandleFunc("DELETE /v1/simulations/{id}", a.handleDelete)
	mux.HandleFunc("POST /v1/simulations/{id}/advance", a.handleAdvance)
	mux.HandleFunc("POST /v1/simulations/{id}/control", a.handleControl)
	mux.HandleFunc("GET /v1/simulations/{id}/events", a.handleEvents)
	mux.HandleFunc("GET /v1/simulations/{id}/stats", a.handleStats)
	mux.HandleFunc("GET /v1/simulations/{id}/rounds/{round}", a.handleRoundSummary)
	mux.HandleFunc("POST /v1/simulations/{id}/checkpoints", a.handleCheckpoint)
	mux.HandleFunc("GET /v1/simulations/{id}/checkpoints", a.handleCheckpointList)
	mux.HandleFunc("POST /v1/simulations/{id}/restore", a.handleRestore)
	mux.HandleFunc("GET /v1/archive/matches", a.handleArchiveMatches)
	mux.HandleFunc("GET /v1/archive/matches/{id}/players", a.handleArchivePlayers)
	mux.HandleFunc("GET /v1/ws", a.stream.Handler())
}

func (a *api) handleCreate(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		a.writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "read body")
		return
	}
	if err := protocol.ValidateCreateRequest(body); err != nil {
		a.writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}

	var req protocol.CreateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		a.writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}

	specs := make([]manager.PlayerSpec, 0, len(req.Players))
	for _, p := range req.Players {
		specs = append(specs, manager.PlayerSpec{
			ID:       p.ID,
			Name:     p.Name,
			Agent:    p.Agent,
			Team:     match.Team(p.Team),
			Aim:      p.Aim,
			Headshot: p.Headshot,
			Movement: p.Movement,
			Utility:  p.Utility,
		})
	}

	st, err := a.mgr.Create(req.Seed, specs)
	if err != nil {
		a.writeMgrError(rw, err)
		return
	}
	a.writeJSON(rw, http.StatusCreated, protocol.StateFromMatch(st))
}

func (a *api) handleList(rw http.ResponseWriter, r *http.Request) {
	ids := a.mgr.List()
	msg := protocol.SimListMsg{IDs: make([]string, 0, len(ids))}
	for _, id := range ids {
		msg.IDs = append(msg.IDs, id.String())
	}
	a.writeJSON(rw, http.StatusOK, msg)
}

func (a *api) handleState(rw http.ResponseWriter, r *http.Request) {
	id, ok := a.simID(rw, r)
	if !ok {
		return
	}
	st, err := a.mgr.State(id)
	if err != nil {
		a.writeMgrError(rw, err)
		return
	}
	a.writeJSON(rw, http.StatusOK, protocol.StateFromMatch(st))
}

func (a *api) handleDelete(rw http.ResponseWriter, r *http.Request) {
	id, ok := a.simID(rw, r)
	if !ok {
		return
	}
	if err := a.mgr.Delete(id); err != nil {
		a.writeMgrError(rw, err)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (a *api) handleAdvance(rw http.ResponseWriter, r *http.Request) {
	id, ok := a.simID(rw, r)
	if !ok {
		return
	}
	var req protocol.AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}

	st, fresh, err := a.mgr.Advance(id, req.Mode, req.Ticks)
	if err != nil {
		a.writeMgrError(rw, err)
		return
	}
	a.publish(id, fresh)

	events, err := protocol.EncodeEvents(fresh)
	if err != nil {
		a.writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, err.Error())
		return
	}
	a.writeJSON(rw, http.StatusOK, struct {
		State  protocol.StateMsg   `json:"state"`
		Events []protocol.EventMsg `json:"events"`
	}{protocol.StateFromMatch(st), events})
}

// publish fans fresh events out to websocket subscribers and the
// journal.
func (a *api) publish(id uuid.UUID, fresh []match.Event) {
	if len(fresh) == 0 {
		return
	}
	if a.journal != nil {
		if err := a.journal.WriteEvents(id.String(), fresh); err != nil {
			a.logger.Printf("journal %s: %v", id, err)
		}
	}
	all, err := a.mgr.Events(id, match.EventFilter{})
	if err != nil {
		return
	}
	a.stream.Publish(id, len(all), fresh)
}

func (a *api) handleControl(rw http.ResponseWriter, r *http.Request) {
	id, ok := a.simID(rw, r)
	if !ok {
		return
	}
	var req protocol.ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}
	st, err := a.mgr.Control(id, req.Action, req.Speed)
	if err != nil {
		a.writeMgrError(rw, err)
		return
	}
	a.writeJSON(rw, http.StatusOK, protocol.StateFromMatch(st))
}

func (a *api) handleEvents(rw http.ResponseWriter, r *http.Request) {
	id, ok := a.simID(rw, r)
	if !ok {
		return
	}
	q, err := eventsQueryFromURL(r)
	if err != nil {
		a.writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}
	filtered, err := a.mgr.Events(id, q.Filter())
	if err != nil {
		a.writeMgrError(rw, err)
		return
	}
	events, err := protocol.EncodeEvents(filtered)
	if err != nil {
		a.writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, err.Error())
		return
	}
	a.writeJSON(rw, http.StatusOK, struct {
		Events []protocol.EventMsg `json:"events"`
	}{events})
}

func eventsQueryFromURL(r *http.Request) (protocol.EventsQuery, error) {
	var q protocol.EventsQuery
	vals := r.URL.Query()

	if s := vals.Get("kinds"); s != "" {
		q.Kinds = strings.Split(s, ",")
	}
	var err error
	if q.PlayerIDs, err = intList(vals.Get("players")); err != nil {
		return q, err
	}
	if q.Rounds, err = intList(vals.Get("rounds")); err != nil {
		return q, err
	}
	if s := vals.Get("since"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return q, err
		}
		q.Since = &v
	}
	if s := vals.Get("until"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return q, err
		}
		q.Until = &v
	}
	return q, nil
}

func intList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (a *api) handleStats(rw http.ResponseWriter, r *http.Request) {
	id, ok := a.simID(rw, r)
	if !ok {
		return
	}
	stats, err := a.mgr.Stats(id)
	if err != nil {
		a.writeMgrError(rw, err)
		return
	}
	a.writeJSON(rw, http.StatusOK, struct {
		Stats []match.PlayerStats `json:"stats"`
	}{stats})
}

func (a *api) handleRoundSummary(rw http.ResponseWriter, r *http.Request) {
	id, ok := a.simID(rw, r)
	if !ok {
		return
	}
	round, err := strconv.Atoi(r.PathValue("round"))
	if err != nil || round < 1 {
		a.writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad round number")
		return
	}
	summary, err := a.mgr.RoundSummary(id, round)
	if err != nil {
		a.writeMgrError(rw, err)
		return
	}
	a.writeJSON(rw, http.StatusOK, summary)
}

func (a *api) handleCheckpoint(rw http.ResponseWriter, r *http.Request) {
	id, ok := a.simID(rw, r)
	if !ok {
		return
	}
	tick, err := a.mgr.Checkpoint(id)
	if err != nil {
		a.writeMgrError(rw, err)
		return
	}
	a.writeJSON(rw, http.StatusCreated, protocol.CheckpointMsg{Tick: tick})
}

func (a *api) handleCheckpointList(rw http.ResponseWriter, r *http.Request) {
	id, ok := a.simID(rw, r)
	if !ok {
		return
	}
	ticks, err := a.mgr.Checkpoints(id)
	if err != nil {
		a.writeMgrError(rw, err)
		return
	}
	a.writeJSON(rw, http.StatusOK, protocol.CheckpointListMsg{Ticks: ticks})
}

func (a *api) handleRestore(rw http.ResponseWriter, r *http.Request) {
	id, ok := a.simID(rw, r)
	if !ok {
		return
	}
	var req protocol.RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}
	st, err := a.mgr.RestoreCheckpoint(id, req.Tick)
	if err != nil {
		a.writeMgrError(rw, err)
		return
	}
	a.writeJSON(rw, http.StatusOK, protocol.StateFromMatch(st))
}

func (a *api) handleArchiveMatches(rw http.ResponseWriter, r *http.Request) {
	if a.archive == nil {
		a.writeError(rw, http.StatusNotFound, protocol.ErrBadRequest, "archive disabled")
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, _ = strconv.Atoi(s)
	}
	matches, err := a.archive.Matches(r.Context(), limit)
	if err != nil {
		a.writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, err.Error())
		return
	}
	a.writeJSON(rw, http.StatusOK, struct {
		Matches []indexdb.MatchRecord `json:"matches"`
	}{matches})
}

func (a *api) handleArchivePlayers(rw http.ResponseWriter, r *http.Request) {
	if a.archive == nil {
		a.writeError(rw, http.StatusNotFound, protocol.ErrBadRequest, "archive disabled")
		return
	}
	players, err := a.archive.PlayersFor(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, err.Error())
		return
	}
	a.writeJSON(rw, http.StatusOK, struct {
		Players []indexdb.PlayerRecord `json:"players"`
	}{players})
}

func (a *api) simID(rw http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		a.writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad simulation id")
		return uuid.UUID{}, false
	}
	return id, true
}

func (a *api) writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		a.logger.Printf("write response: %v", err)
	}
}

func (a *api) writeError(rw http.ResponseWriter, status int, code, message string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(protocol.ErrorMsg{Code: code, Message: message})
}

// writeMgrError maps manager and match sentinels to protocol codes.
func (a *api) writeMgrError(rw http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, manager.ErrSimulationNotFound):
		a.writeError(rw, http.StatusNotFound, protocol.ErrSimNotFound, err.Error())
	case errors.Is(err, manager.ErrInvalidRoster):
		a.writeError(rw, http.StatusBadRequest, protocol.ErrInvalidRoster, err.Error())
	case errors.Is(err, manager.ErrInvalidAdvanceMode):
		a.writeError(rw, http.StatusBadRequest, protocol.ErrInvalidMode, err.Error())
	case errors.Is(err, manager.ErrInvalidControl):
		a.writeError(rw, http.StatusBadRequest, protocol.ErrInvalidControl, err.Error())
	case errors.Is(err, match.ErrCheckpointNotFound):
		a.writeError(rw, http.StatusNotFound, protocol.ErrCheckpointNotFound, err.Error())
	case errors.Is(err, match.ErrRoundTickLimit), errors.Is(err, match.ErrMatchTickLimit):
		a.writeError(rw, http.StatusConflict, protocol.ErrTickLimit, err.Error())
	default:
		a.writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, err.Error())
	}
}
