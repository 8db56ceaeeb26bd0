package match

import (
	"errors"
	"reflect"
	"testing"
)

func newTestSim(t *testing.T, seed int64) *Simulation {
	t.Helper()
	s := New(Config{Seed: seed})

	attackers := []string{"JETT", "SOVA", "OMEN", "SAGE", "RAZE"}
	defenders := []string{"PHOENIX", "BREACH", "VIPER", "CYPHER", "NEON"}
	for i, agent := range attackers {
		if _, err := s.AddPlayer(i+1, agent, agent, TeamAttackers, NewSkills(0.7, 0.4, 0.6, 0.5)); err != nil {
			t.Fatalf("add attacker: %v", err)
		}
	}
	for i, agent := range defenders {
		if _, err := s.AddPlayer(i+6, agent, agent, TeamDefenders, NewSkills(0.65, 0.35, 0.6, 0.5)); err != nil {
			t.Fatalf("add defender: %v", err)
		}
	}
	return s
}

func TestDeterminism_SameSeedSameMatch(t *testing.T) {
	s1 := newTestSim(t, 42)
	s2 := newTestSim(t, 42)

	if err := s1.RunToCompletion(); err != nil {
		t.Fatalf("run 1: %v", err)
	}
	if err := s2.RunToCompletion(); err != nil {
		t.Fatalf("run 2: %v", err)
	}

	e1, e2 := s1.Events(), s2.Events()
	if len(e1) != len(e2) {
		t.Fatalf("event count mismatch: %d vs %d", len(e1), len(e2))
	}
	for i := range e1 {
		if !reflect.DeepEqual(e1[i], e2[i]) {
			t.Fatalf("event %d mismatch: %#v vs %#v", i, e1[i], e2[i])
		}
	}

	st1, st2 := s1.State(), s2.State()
	if st1.AttackerScore != st2.AttackerScore || st1.DefenderScore != st2.DefenderScore {
		t.Fatalf("score mismatch: %d-%d vs %d-%d",
			st1.AttackerScore, st1.DefenderScore, st2.AttackerScore, st2.DefenderScore)
	}
}

func TestDeterminism_DifferentSeedsDiverge(t *testing.T) {
	s1 := newTestSim(t, 1)
	s2 := newTestSim(t, 2)

	if err := s1.RunToCompletion(); err != nil {
		t.Fatalf("run 1: %v", err)
	}
	if err := s2.RunToCompletion(); err != nil {
		t.Fatalf("run 2: %v", err)
	}

	if reflect.DeepEqual(s1.Events(), s2.Events()) {
		t.Fatal("different seeds produced identical event logs")
	}
}

func TestMatchEnd_ScoreAndMargin(t *testing.T) {
	s := newTestSim(t, 7)
	if err := s.RunToCompletion(); err != nil {
		t.Fatalf("run: %v", err)
	}

	end, ok := s.State().Phase.(PhaseMatchEnd)
	if !ok {
		t.Fatalf("expected match end, got %T", s.State().Phase)
	}

	hi, lo := end.AttackerScore, end.DefenderScore
	if lo > hi {
		hi, lo = lo, hi
	}
	if hi < 13 {
		t.Fatalf("winner score %d below 13", hi)
	}
	if hi-lo < 2 {
		t.Fatalf("final margin %d-%d below 2", hi, lo)
	}

	winnerScore := end.AttackerScore
	if end.Winner == TeamDefenders {
		winnerScore = end.DefenderScore
	}
	if winnerScore != hi {
		t.Fatalf("winner %s does not hold the higher score (%d-%d)", end.Winner, end.AttackerScore, end.DefenderScore)
	}
}

func TestCreditBounds_AlwaysWithinRange(t *testing.T) {
	s := newTestSim(t, 99)
	for i := 0; i < 5000; i++ {
		if err := s.AdvanceTick(); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		for _, p := range s.Players() {
			if p.Credits < 0 || p.Credits > 9000 {
				t.Fatalf("tick %d: player %d credits out of range: %d", i, p.ID, p.Credits)
			}
		}
		if _, done := s.State().Phase.(PhaseMatchEnd); done {
			break
		}
	}
}

func TestNoPostMortemKills(t *testing.T) {
	s := newTestSim(t, 5)
	if err := s.RunToCompletion(); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Within one round a player can die at most once, and a dead player
	// cannot appear as a killer afterwards.
	type key struct{ round, id int }
	deadAt := map[key]uint64{}
	for _, e := range s.Events() {
		k, ok := e.(KillEvent)
		if !ok {
			continue
		}
		vk := key{k.Round, k.VictimID}
		if _, dead := deadAt[vk]; dead {
			t.Fatalf("round %d: player %d killed twice", k.Round, k.VictimID)
		}
		deadAt[vk] = k.Timestamp
		if ts, dead := deadAt[key{k.Round, k.KillerID}]; dead && ts < k.Timestamp {
			t.Fatalf("round %d: dead player %d recorded a kill", k.Round, k.KillerID)
		}
	}
}

func TestAdvanceTicks_StopsAtMatchEnd(t *testing.T) {
	s := newTestSim(t, 11)
	if err := s.AdvanceTicks(60000); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, ok := s.State().Phase.(PhaseMatchEnd); !ok {
		t.Fatalf("expected match end after bulk advance, got %T", s.State().Phase)
	}
}

func TestAdvanceRound_Paused_HitsTickLimit(t *testing.T) {
	s := newTestSim(t, 3)
	s.Pause()
	err := s.AdvanceRound()
	if !errors.Is(err, ErrRoundTickLimit) {
		t.Fatalf("expected round tick limit error, got %v", err)
	}
}

func TestPauseResume(t *testing.T) {
	s := newTestSim(t, 8)
	if err := s.AdvanceTick(); err != nil {
		t.Fatalf("tick: %v", err)
	}
	before := s.State().TickCount

	s.Pause()
	for i := 0; i < 10; i++ {
		if err := s.AdvanceTick(); err != nil {
			t.Fatalf("paused tick: %v", err)
		}
	}
	if got := s.State().TickCount; got != before {
		t.Fatalf("paused simulation advanced: %d -> %d", before, got)
	}

	s.Resume()
	if err := s.AdvanceTick(); err != nil {
		t.Fatalf("resumed tick: %v", err)
	}
	if got := s.State().TickCount; got != before+1 {
		t.Fatalf("resume did not advance: %d -> %d", before, got)
	}
}

func TestSetPlaybackSpeed_ClampAndMode(t *testing.T) {
	s := newTestSim(t, 8)

	s.SetPlaybackSpeed(10)
	if got := s.State().PlaybackSpeed; got != 5.0 {
		t.Fatalf("speed not clamped: %v", got)
	}
	if got := s.State().Mode; got != ModeFastForward {
		t.Fatalf("expected fast-forward mode, got %s", got)
	}

	s.SetPlaybackSpeed(0.01)
	if got := s.State().PlaybackSpeed; got != 0.1 {
		t.Fatalf("speed not clamped low: %v", got)
	}
	if got := s.State().Mode; got != ModePlaying {
		t.Fatalf("expected playing mode, got %s", got)
	}
}

func TestCheckpoint_RestoreRewindsState(t *testing.T) {
	s := newTestSim(t, 21)
	if err := s.AdvanceTicks(100); err != nil {
		t.Fatalf("advance: %v", err)
	}

	tick := s.CreateCheckpoint()
	wantState := s.State()
	wantEvents := len(s.Events())
	wantCredits := map[int]int{}
	for _, p := range s.Players() {
		wantCredits[p.ID] = p.Credits
	}

	if err := s.AdvanceTicks(500); err != nil {
		t.Fatalf("advance past checkpoint: %v", err)
	}
	if err := s.RestoreCheckpoint(tick); err != nil {
		t.Fatalf("restore: %v", err)
	}

	got := s.State()
	if got.TickCount != wantState.TickCount || got.CurrentTimestamp != wantState.CurrentTimestamp {
		t.Fatalf("state not rewound: tick %d vs %d", got.TickCount, wantState.TickCount)
	}
	if got.AttackerScore != wantState.AttackerScore || got.DefenderScore != wantState.DefenderScore {
		t.Fatalf("score not rewound")
	}
	if len(s.Events()) != wantEvents {
		t.Fatalf("events not rewound: %d vs %d", len(s.Events()), wantEvents)
	}
	for _, p := range s.Players() {
		if p.Credits != wantCredits[p.ID] {
			t.Fatalf("player %d credits not rewound: %d vs %d", p.ID, p.Credits, wantCredits[p.ID])
		}
	}
}

func TestCheckpoint_RestoreUnknownTick(t *testing.T) {
	s := newTestSim(t, 21)
	err := s.RestoreCheckpoint(12345)
	if !errors.Is(err, ErrCheckpointNotFound) {
		t.Fatalf("expected checkpoint not found, got %v", err)
	}
}

func TestCheckpoint_MutationAfterRestoreDoesNotLeak(t *testing.T) {
	s := newTestSim(t, 33)
	if err := s.AdvanceTicks(80); err != nil {
		t.Fatalf("advance: %v", err)
	}
	tick := s.CreateCheckpoint()

	if err := s.RestoreCheckpoint(tick); err != nil {
		t.Fatalf("restore: %v", err)
	}
	for _, p := range s.Players() {
		p.Credits = 0
	}
	if err := s.RestoreCheckpoint(tick); err != nil {
		t.Fatalf("second restore: %v", err)
	}
	total := 0
	for _, p := range s.Players() {
		total += p.Credits
	}
	if total == 0 {
		t.Fatal("checkpoint shares player state with the live simulation")
	}
}

func TestAddPlayer_Validation(t *testing.T) {
	s := New(Config{Seed: 1})
	if _, err := s.AddPlayer(1, "x", "NOT_AN_AGENT", TeamAttackers, Skills{}); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("expected unknown agent, got %v", err)
	}
	if _, err := s.AddPlayer(1, "x", "JETT", Team("SPECTATORS"), Skills{}); !errors.Is(err, ErrUnknownTeam) {
		t.Fatalf("expected unknown team, got %v", err)
	}
	if _, err := s.AddPlayer(1, "x", "JETT", TeamAttackers, Skills{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.AddPlayer(1, "y", "SOVA", TeamDefenders, Skills{}); !errors.Is(err, ErrDuplicatePlayer) {
		t.Fatalf("expected duplicate player, got %v", err)
	}
}

func TestSideSwap_ResetsEconomyAndTeams(t *testing.T) {
	s := newTestSim(t, 64)

	var sawSwap bool
	seen := 0
	for i := 0; i < 50000 && !sawSwap; i++ {
		if err := s.AdvanceTick(); err != nil {
			t.Fatalf("tick: %v", err)
		}
		if _, done := s.State().Phase.(PhaseMatchEnd); done {
			break
		}
		events := s.Events()
		for _, e := range events[seen:] {
			if _, ok := e.(SideSwapEvent); ok {
				sawSwap = true
				break
			}
		}
		seen = len(events)
		if sawSwap {
			for _, p := range s.Players() {
				if p.Credits != 800 {
					t.Fatalf("player %d credits not reset on swap: %d", p.ID, p.Credits)
				}
				if p.Loadout.Primary != "" || p.Loadout.Secondary != "CLASSIC" {
					t.Fatalf("player %d loadout not reset on swap: %+v", p.ID, p.Loadout)
				}
			}
			// Player 1 started as an attacker.
			p, _ := s.Player(1)
			if p.Team != TeamDefenders {
				t.Fatalf("player 1 not swapped, team=%s", p.Team)
			}
		}
	}
	if !sawSwap {
		t.Skip("match ended before round 13")
	}
}

func TestSkills_Normalization(t *testing.T) {
	sk := NewSkills(85, 0.4, 120, -1)
	if sk.Aim != 0.85 {
		t.Fatalf("aim: %v", sk.Aim)
	}
	if sk.Headshot != 0.4 {
		t.Fatalf("headshot: %v", sk.Headshot)
	}
	if sk.Movement != 1.0 {
		t.Fatalf("movement: %v", sk.Movement)
	}
	if sk.Utility != 0 {
		t.Fatalf("utility: %v", sk.Utility)
	}
}
