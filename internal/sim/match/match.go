package match

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"fragsim.gg/internal/sim/catalogs"
	"fragsim.gg/internal/sim/tuning"
)

var (
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	ErrRoundTickLimit     = errors.New("round exceeded tick limit")
	ErrMatchTickLimit     = errors.New("match exceeded tick limit")
	ErrUnknownAgent       = errors.New("unknown agent")
	ErrUnknownTeam        = errors.New("unknown team")
	ErrDuplicatePlayer    = errors.New("duplicate player id")
)

type Config struct {
	Seed     int64
	Catalogs *catalogs.Catalogs
	Tuning   tuning.Tuning
}

// Simulation is a single best-of-24 match. It is not safe for concurrent
// use; callers serialize access (the manager holds one lock per match).
type Simulation struct {
	state       State
	players     map[int]*Player
	order       []int // sorted player ids, the only iteration order used
	events      []Event
	lossStreaks map[Team]int
	checkpoints map[uint64]*checkpoint

	cats *catalogs.Catalogs
	tune tuning.Tuning
	rng  *rand.Rand
	seed int64

	policies   map[int]BuyPolicy
	rulePolicy BuyPolicy

	roundTimerMs   int
	spikeTimerMs   int
	spikePlanted   bool
	spikeDefused   bool
	boughtThisBuy  bool
	roundStartedAt uint64
}

type checkpoint struct {
	state       State
	players     map[int]*Player
	order       []int
	events      []Event
	lossStreaks map[Team]int

	roundTimerMs   int
	spikeTimerMs   int
	spikePlanted   bool
	spikeDefused   bool
	boughtThisBuy  bool
	roundStartedAt uint64
}

func New(cfg Config) *Simulation {
	cats := cfg.Catalogs
	if cats == nil {
		cats = catalogs.Defaults()
	}
	tune := cfg.Tuning
	if tune.TickQuantumMs == 0 {
		tune = tuning.Defaults()
	}
	s := &Simulation{
		state: State{
			ID:            uuid.New(),
			Mode:          ModePlaying,
			Phase:         PhaseNotStarted{},
			PlaybackSpeed: 1.0,
		},
		players:     map[int]*Player{},
		lossStreaks: map[Team]int{TeamAttackers: 0, TeamDefenders: 0},
		checkpoints: map[uint64]*checkpoint{},
		cats:        cats,
		tune:        tune,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		seed:        cfg.Seed,
		policies:    map[int]BuyPolicy{},
	}
	s.rulePolicy = &rulePolicy{sim: s}
	s.roundTimerMs = tune.RoundTimerMs
	s.spikeTimerMs = tune.SpikeFuseMs
	return s
}

// AddPlayer registers a player before the match starts. The agent must be
// in the agent catalog; its role decides the buy preferences.
func (s *Simulation) AddPlayer(id int, name, agent string, team Team, skills Skills) (*Player, error) {
	if _, ok := s.players[id]; ok {
		return nil, fmt.Errorf("%w: %d", ErrDuplicatePlayer, id)
	}
	def, ok := s.cats.Agents.Defs[agent]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, agent)
	}
	if !team.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTeam, team)
	}
	p := NewPlayer(id, name, agent, Role(def.Role), team, skills)
	s.players[id] = p
	s.order = append(s.order, id)
	sort.Ints(s.order)
	return p, nil
}

// SetBuyPolicy overrides the buy policy for one player. A nil policy
// removes the override. Policy errors fall back to the rule-based engine.
func (s *Simulation) SetBuyPolicy(playerID int, policy BuyPolicy) {
	if policy == nil {
		delete(s.policies, playerID)
		return
	}
	s.policies[playerID] = policy
}

func (s *Simulation) State() State { return s.state }

// Seed returns the seed the simulation was created with.
func (s *Simulation) Seed() int64 { return s.seed }

func (s *Simulation) Player(id int) (*Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

// Players returns all players in id order.
func (s *Simulation) Players() []*Player {
	out := make([]*Player, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.players[id])
	}
	return out
}

func (s *Simulation) teamPlayers(team Team) []*Player {
	out := make([]*Player, 0, 5)
	for _, id := range s.order {
		if p := s.players[id]; p.Team == team {
			out = append(out, p)
		}
	}
	return out
}

func (s *Simulation) aliveOnTeam(team Team) []*Player {
	out := make([]*Player, 0, 5)
	for _, id := range s.order {
		if p := s.players[id]; p.Team == team && p.Alive {
			out = append(out, p)
		}
	}
	return out
}

// Events returns the full event log.
func (s *Simulation) Events() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Simulation) FilteredEvents(filter EventFilter) []Event {
	var out []Event
	for _, e := range s.events {
		if filter.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Simulation) PlayerStats() []PlayerStats {
	out := make([]PlayerStats, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, statsFromEvents(s.events, s.players[id]))
	}
	return out
}

func (s *Simulation) RoundSummary(round int) RoundSummary {
	return summarizeRound(s.events, round)
}

func (s *Simulation) record(e Event) {
	s.events = append(s.events, e)
}

func (s *Simulation) meta() eventMeta {
	return eventMeta{Timestamp: s.state.CurrentTimestamp, Round: s.state.CurrentRound}
}

// Control.

func (s *Simulation) Pause() { s.state.Mode = ModePaused }

func (s *Simulation) Resume() {
	if s.state.Mode == ModePaused {
		s.state.Mode = ModePlaying
	}
}

// SetPlaybackSpeed clamps the speed; speeds above 1 switch the mode to
// fast-forward.
func (s *Simulation) SetPlaybackSpeed(speed float64) {
	if speed < s.tune.MinSpeed {
		speed = s.tune.MinSpeed
	}
	if speed > s.tune.MaxSpeed {
		speed = s.tune.MaxSpeed
	}
	s.state.PlaybackSpeed = speed
	if speed > 1.0 {
		s.state.Mode = ModeFastForward
	} else {
		s.state.Mode = ModePlaying
	}
}

// Checkpoints.

// CreateCheckpoint snapshots the full simulation keyed by the current
// tick count and returns the key.
func (s *Simulation) CreateCheckpoint() uint64 {
	cp := &checkpoint{
		state:       s.state,
		players:     make(map[int]*Player, len(s.players)),
		order:       append([]int(nil), s.order...),
		events:      append([]Event(nil), s.events...),
		lossStreaks: map[Team]int{},

		roundTimerMs:   s.roundTimerMs,
		spikeTimerMs:   s.spikeTimerMs,
		spikePlanted:   s.spikePlanted,
		spikeDefused:   s.spikeDefused,
		boughtThisBuy:  s.boughtThisBuy,
		roundStartedAt: s.roundStartedAt,
	}
	for id, p := range s.players {
		cp.players[id] = p.clone()
	}
	for t, n := range s.lossStreaks {
		cp.lossStreaks[t] = n
	}
	s.checkpoints[s.state.TickCount] = cp
	return s.state.TickCount
}

func (s *Simulation) RestoreCheckpoint(tick uint64) error {
	cp, ok := s.checkpoints[tick]
	if !ok {
		return fmt.Errorf("%w: tick %d", ErrCheckpointNotFound, tick)
	}
	s.state = cp.state
	s.players = make(map[int]*Player, len(cp.players))
	for id, p := range cp.players {
		s.players[id] = p.clone()
	}
	s.order = append([]int(nil), cp.order...)
	s.events = append([]Event(nil), cp.events...)
	s.lossStreaks = map[Team]int{}
	for t, n := range cp.lossStreaks {
		s.lossStreaks[t] = n
	}
	s.roundTimerMs = cp.roundTimerMs
	s.spikeTimerMs = cp.spikeTimerMs
	s.spikePlanted = cp.spikePlanted
	s.spikeDefused = cp.spikeDefused
	s.boughtThisBuy = cp.boughtThisBuy
	s.roundStartedAt = cp.roundStartedAt
	return nil
}

// CheckpointTicks lists available checkpoint keys in ascending order.
func (s *Simulation) CheckpointTicks() []uint64 {
	out := make([]uint64, 0, len(s.checkpoints))
	for t := range s.checkpoints {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Advancement.

func (s *Simulation) advanceTime() {
	delta := uint64(float64(s.tune.TickQuantumMs) * s.state.PlaybackSpeed)
	s.state.CurrentTimestamp += delta
	s.state.TickCount++
}

// AdvanceTick runs one tick of the phase machine. A paused simulation
// does not move.
func (s *Simulation) AdvanceTick() error {
	if s.state.Mode == ModePaused {
		return nil
	}

	switch ph := s.state.Phase.(type) {
	case PhaseNotStarted:
		s.start()
	case PhaseBuy:
		s.advanceBuyPhase(ph.Round)
	case PhaseRoundActive:
		s.advanceRoundActive(ph.Round)
	case PhaseRoundEnd:
		s.advanceRoundEnd(ph.Round)
	case PhaseMatchEnd:
		return nil
	}

	s.advanceTime()
	return nil
}

// AdvanceTicks runs up to n ticks, stopping early at match end.
func (s *Simulation) AdvanceTicks(n int) error {
	for i := 0; i < n; i++ {
		if err := s.AdvanceTick(); err != nil {
			return err
		}
		if _, done := s.state.Phase.(PhaseMatchEnd); done {
			break
		}
	}
	return nil
}

// AdvanceRound runs until the current round resolves or the match ends.
func (s *Simulation) AdvanceRound() error {
	for ticks := 0; ; {
		ticks++
		if ticks > s.tune.MaxTicksPerRound {
			return fmt.Errorf("%w (%d ticks)", ErrRoundTickLimit, s.tune.MaxTicksPerRound)
		}
		if err := s.AdvanceTick(); err != nil {
			return err
		}
		switch s.state.Phase.(type) {
		case PhaseRoundEnd, PhaseMatchEnd:
			return nil
		}
	}
}

// RunToCompletion drives the match to its end.
func (s *Simulation) RunToCompletion() error {
	for ticks := 0; ; {
		if _, done := s.state.Phase.(PhaseMatchEnd); done {
			return nil
		}
		ticks++
		if ticks > s.tune.MaxTicksPerMatch {
			return fmt.Errorf("%w (%d ticks)", ErrMatchTickLimit, s.tune.MaxTicksPerMatch)
		}
		if err := s.AdvanceTick(); err != nil {
			return err
		}
	}
}

// Phase machine.

func (s *Simulation) start() {
	for _, id := range s.order {
		s.players[id].Credits = s.tune.StartingCredits
	}
	s.lossStreaks[TeamAttackers] = 0
	s.lossStreaks[TeamDefenders] = 0

	s.record(MatchStartEvent{eventMeta: s.meta()})
	s.state.Mode = ModePlaying
	s.state.CurrentRound = 1
	s.enterBuyPhase(1)
}

func (s *Simulation) enterBuyPhase(round int) {
	s.state.CurrentRound = round
	s.state.Phase = PhaseBuy{Round: round}
	s.roundStartedAt = s.state.CurrentTimestamp
	s.boughtThisBuy = false

	s.record(BuyPhaseStartEvent{eventMeta: s.meta()})

	for _, id := range s.order {
		s.players[id].resetForRound()
	}

	if round == s.tune.SideSwapRound {
		s.sideSwap(round)
	}
}

func (s *Simulation) sideSwap(round int) {
	for _, id := range s.order {
		p := s.players[id]
		p.Team = p.Team.Opponent()
		p.Credits = s.tune.StartingCredits
		p.Loadout = starterLoadout()
	}
	s.lossStreaks[TeamAttackers] = 0
	s.lossStreaks[TeamDefenders] = 0
	s.record(SideSwapEvent{eventMeta: s.meta()})
}

func (s *Simulation) advanceBuyPhase(round int) {
	elapsed := s.state.CurrentTimestamp - s.roundStartedAt

	if !s.boughtThisBuy && elapsed >= uint64(s.tune.BuyDecisionDelayMs) {
		s.simulatePurchases()
		s.boughtThisBuy = true
	}

	if elapsed >= uint64(s.tune.BuyPhaseMs) {
		s.record(BuyPhaseEndEvent{eventMeta: s.meta()})

		s.state.Phase = PhaseRoundActive{Round: round}
		s.spikePlanted = false
		s.spikeDefused = false
		s.roundStartedAt = s.state.CurrentTimestamp
		s.roundTimerMs = s.tune.RoundTimerMs
		s.spikeTimerMs = s.tune.SpikeFuseMs

		s.record(RoundStartEvent{
			eventMeta:       s.meta(),
			AttackerCredits: firstCredits(s.teamPlayers(TeamAttackers)),
			DefenderCredits: firstCredits(s.teamPlayers(TeamDefenders)),
		})
	}
}

func firstCredits(ps []*Player) int {
	if len(ps) == 0 {
		return 0
	}
	return ps[0].Credits
}

func (s *Simulation) advanceRoundActive(round int) {
	s.roundTimerMs -= s.tune.TickQuantumMs

	aliveAttackers := s.aliveOnTeam(TeamAttackers)
	aliveDefenders := s.aliveOnTeam(TeamDefenders)

	if len(aliveAttackers) == 0 {
		s.endRound(round, TeamDefenders, ReasonAttackersEliminated)
		return
	}
	if len(aliveDefenders) == 0 {
		if s.spikePlanted && !s.spikeDefused {
			s.endRound(round, TeamAttackers, ReasonSpikeDetonated)
		} else {
			s.endRound(round, TeamAttackers, ReasonDefendersEliminated)
		}
		return
	}

	if !s.spikePlanted {
		if s.state.CurrentTimestamp-s.roundStartedAt > uint64(s.tune.PlantAfterMs) &&
			s.rng.Float64() < s.tune.PlantChance {
			planter := aliveAttackers[s.rng.Intn(len(aliveAttackers))]
			s.record(SpikePlantEvent{eventMeta: s.meta(), PlanterID: planter.ID})
			planter.UltimatePoints++
			s.spikePlanted = true
			s.state.Phase = PhaseRoundActive{Round: round, SpikePlanted: true}
		}
	} else {
		s.spikeTimerMs -= s.tune.TickQuantumMs
		if s.spikeTimerMs <= 0 {
			s.endRound(round, TeamAttackers, ReasonSpikeDetonated)
			return
		}
		if s.rng.Float64() < s.tune.DefuseChance {
			defuser := aliveDefenders[s.rng.Intn(len(aliveDefenders))]
			s.record(SpikeDefuseEvent{eventMeta: s.meta(), DefuserID: defuser.ID, Successful: true})
			defuser.UltimatePoints++
			s.spikeDefused = true
			s.endRound(round, TeamDefenders, ReasonSpikeDefused)
			return
		}
	}

	s.simulateDuel(aliveAttackers, aliveDefenders)

	if !s.spikePlanted && s.roundTimerMs <= 0 {
		s.endRound(round, TeamDefenders, ReasonTimeExpired)
	}
}

func (s *Simulation) advanceRoundEnd(round int) {
	endedAt := s.state.CurrentTimestamp
	for i := len(s.events) - 1; i >= 0; i-- {
		if e, ok := s.events[i].(RoundEndEvent); ok {
			endedAt = e.Timestamp
			break
		}
	}

	if s.state.CurrentTimestamp-endedAt >= uint64(s.tune.RoundEndPauseMs) {
		if s.checkMatchEnd() {
			return
		}
		s.enterBuyPhase(round + 1)
	}
}

func (s *Simulation) endRound(round int, winner Team, reason RoundEndReason) {
	s.awardRoundRewards(winner)

	if winner == TeamAttackers {
		s.state.AttackerScore++
	} else {
		s.state.DefenderScore++
	}

	s.record(RoundEndEvent{eventMeta: s.meta(), Winner: winner, Reason: reason})
	s.state.Phase = PhaseRoundEnd{Round: round, Winner: winner}
}

func (s *Simulation) checkMatchEnd() bool {
	att, def := s.state.AttackerScore, s.state.DefenderScore
	diff := att - def
	if diff < 0 {
		diff = -diff
	}

	decided := false
	switch {
	case s.state.OvertimeActive:
		decided = diff >= s.tune.WinMargin
	case att == s.tune.WinScore-1 && def == s.tune.WinScore-1:
		s.state.OvertimeActive = true
	case att >= s.tune.WinScore || def >= s.tune.WinScore:
		decided = diff >= s.tune.WinMargin
	}
	if !decided {
		return false
	}

	winner := TeamAttackers
	if def > att {
		winner = TeamDefenders
	}
	s.record(MatchEndEvent{
		eventMeta:     s.meta(),
		Winner:        winner,
		AttackerScore: att,
		DefenderScore: def,
	})
	s.state.Phase = PhaseMatchEnd{Winner: winner, AttackerScore: att, DefenderScore: def}
	return true
}
