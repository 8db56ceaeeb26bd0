// Package manager hosts independent match simulations behind a keyed
// registry. The registry lock only guards the map; every simulation has
// its own lock, so advancing one match never blocks another.
package manager

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"fragsim.gg/internal/sim/catalogs"
	"fragsim.gg/internal/sim/match"
	"fragsim.gg/internal/sim/tuning"
)

var (
	ErrSimulationNotFound = errors.New("simulation not found")
	ErrInvalidAdvanceMode = errors.New("invalid advance mode")
	ErrInvalidControl     = errors.New("invalid control action")
	ErrInvalidRoster      = errors.New("invalid roster")
)

// Advance modes.
const (
	AdvanceTick  = "tick"
	AdvanceTicks = "ticks"
	AdvanceRound = "round"
	AdvanceMatch = "match"
)

// Control actions.
const (
	ControlPause    = "pause"
	ControlResume   = "resume"
	ControlSetSpeed = "set_speed"
)

// PlayerSpec describes one roster slot for Create.
type PlayerSpec struct {
	ID       int
	Name     string
	Agent    string
	Team     match.Team
	Aim      float64
	Headshot float64
	Movement float64
	Utility  float64
}

type entry struct {
	mu       sync.Mutex
	sim      *match.Simulation
	archived bool
}

type Manager struct {
	mu   sync.RWMutex
	sims map[uuid.UUID]*entry

	cats   *catalogs.Catalogs
	tune   tuning.Tuning
	logger *log.Logger

	// Called once per simulation when the match finishes, with the
	// entry lock held.
	onMatchEnd func(*match.Simulation)
}

func New(cats *catalogs.Catalogs, tune tuning.Tuning, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.Writer(), "[manager] ", log.LstdFlags)
	}
	return &Manager{
		sims:   map[uuid.UUID]*entry{},
		cats:   cats,
		tune:   tune,
		logger: logger,
	}
}

// OnMatchEnd registers the archive hook. Set it before the first Create.
func (m *Manager) OnMatchEnd(fn func(*match.Simulation)) { m.onMatchEnd = fn }

// Create builds a simulation from the roster and registers it. Both
// teams need at least one player.
func (m *Manager) Create(seed int64, players []PlayerSpec) (match.State, error) {
	if len(players) == 0 {
		return match.State{}, fmt.Errorf("%w: empty roster", ErrInvalidRoster)
	}

	sim := match.New(match.Config{Seed: seed, Catalogs: m.cats, Tuning: m.tune})
	var attackers, defenders int
	for _, spec := range players {
		skills := match.NewSkills(spec.Aim, spec.Headshot, spec.Movement, spec.Utility)
		if _, err := sim.AddPlayer(spec.ID, spec.Name, spec.Agent, spec.Team, skills); err != nil {
			return match.State{}, fmt.Errorf("%w: player %d: %v", ErrInvalidRoster, spec.ID, err)
		}
		switch spec.Team {
		case match.TeamAttackers:
			attackers++
		case match.TeamDefenders:
			defenders++
		}
	}
	if attackers == 0 || defenders == 0 {
		return match.State{}, fmt.Errorf("%w: both teams need players", ErrInvalidRoster)
	}

	st := sim.State()
	m.mu.Lock()
	m.sims[st.ID] = &entry{sim: sim}
	m.mu.Unlock()

	m.logger.Printf("created simulation %s (%d players, seed %d)", st.ID, len(players), seed)
	return st, nil
}

func (m *Manager) withSim(id uuid.UUID, fn func(e *entry) error) error {
	m.mu.RLock()
	e, ok := m.sims[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSimulationNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e)
}

func (m *Manager) State(id uuid.UUID) (match.State, error) {
	var st match.State
	err := m.withSim(id, func(e *entry) error {
		st = e.sim.State()
		return nil
	})
	return st, err
}

// Advance steps one simulation. For mode "ticks" the count is the number
// of ticks; other modes ignore it. Returns the state afterwards plus the
// events appended by this call.
func (m *Manager) Advance(id uuid.UUID, mode string, ticks int) (match.State, []match.Event, error) {
	var (
		st    match.State
		fresh []match.Event
	)
	err := m.withSim(id, func(e *entry) error {
		before := len(e.sim.Events())

		var err error
		switch mode {
		case AdvanceTick:
			err = e.sim.AdvanceTick()
		case AdvanceTicks:
			if ticks <= 0 {
				return fmt.Errorf("%w: ticks must be positive", ErrInvalidAdvanceMode)
			}
			// Callers control the count; cap it so a paused match cannot
			// be spun through an unbounded no-op loop.
			if max := m.tune.MaxTicksPerMatch; max > 0 && ticks > max {
				ticks = max
			}
			err = e.sim.AdvanceTicks(ticks)
		case AdvanceRound:
			err = e.sim.AdvanceRound()
		case AdvanceMatch:
			err = e.sim.RunToCompletion()
		default:
			return fmt.Errorf("%w: %q", ErrInvalidAdvanceMode, mode)
		}
		if err != nil {
			return err
		}

		st = e.sim.State()
		fresh = e.sim.Events()[before:]
		m.maybeArchive(e, st)
		return nil
	})
	return st, fresh, err
}

func (m *Manager) maybeArchive(e *entry, st match.State) {
	if e.archived || m.onMatchEnd == nil {
		return
	}
	if _, done := st.Phase.(match.PhaseMatchEnd); !done {
		return
	}
	e.archived = true
	m.onMatchEnd(e.sim)
}

// Control pauses, resumes, or changes playback speed.
func (m *Manager) Control(id uuid.UUID, action string, speed float64) (match.State, error) {
	var st match.State
	err := m.withSim(id, func(e *entry) error {
		switch action {
		case ControlPause:
			e.sim.Pause()
		case ControlResume:
			e.sim.Resume()
		case ControlSetSpeed:
			e.sim.SetPlaybackSpeed(speed)
		default:
			return fmt.Errorf("%w: %q", ErrInvalidControl, action)
		}
		st = e.sim.State()
		return nil
	})
	return st, err
}

func (m *Manager) Events(id uuid.UUID, filter match.EventFilter) ([]match.Event, error) {
	var out []match.Event
	err := m.withSim(id, func(e *entry) error {
		out = e.sim.FilteredEvents(filter)
		return nil
	})
	return out, err
}

func (m *Manager) Stats(id uuid.UUID) ([]match.PlayerStats, error) {
	var out []match.PlayerStats
	err := m.withSim(id, func(e *entry) error {
		out = e.sim.PlayerStats()
		return nil
	})
	return out, err
}

func (m *Manager) RoundSummary(id uuid.UUID, round int) (match.RoundSummary, error) {
	var out match.RoundSummary
	err := m.withSim(id, func(e *entry) error {
		out = e.sim.RoundSummary(round)
		return nil
	})
	return out, err
}

// Checkpoint snapshots the simulation in memory and returns the tick key.
func (m *Manager) Checkpoint(id uuid.UUID) (uint64, error) {
	var tick uint64
	err := m.withSim(id, func(e *entry) error {
		tick = e.sim.CreateCheckpoint()
		return nil
	})
	return tick, err
}

func (m *Manager) RestoreCheckpoint(id uuid.UUID, tick uint64) (match.State, error) {
	var st match.State
	err := m.withSim(id, func(e *entry) error {
		if err := e.sim.RestoreCheckpoint(tick); err != nil {
			return err
		}
		st = e.sim.State()
		return nil
	})
	return st, err
}

func (m *Manager) Checkpoints(id uuid.UUID) ([]uint64, error) {
	var out []uint64
	err := m.withSim(id, func(e *entry) error {
		out = e.sim.CheckpointTicks()
		return nil
	})
	return out, err
}

// SetBuyPolicy installs a per-player buy override on one simulation.
func (m *Manager) SetBuyPolicy(id uuid.UUID, playerID int, policy match.BuyPolicy) error {
	return m.withSim(id, func(e *entry) error {
		e.sim.SetBuyPolicy(playerID, policy)
		return nil
	})
}

func (m *Manager) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sims[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSimulationNotFound, id)
	}
	delete(m.sims, id)
	m.logger.Printf("deleted simulation %s", id)
	return nil
}

// List returns the registered simulation ids in stable order.
func (m *Manager) List() []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(m.sims))
	for id := range m.sims {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sims)
}
