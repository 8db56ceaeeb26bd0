package snapshot

import (
	"path/filepath"
	"reflect"
	"testing"

	"fragsim.gg/internal/sim/match"
)

func buildMatch(t *testing.T, seed int64) *match.Simulation {
	t.Helper()
	s := match.New(match.Config{Seed: seed})
	attackers := []string{"JETT", "SOVA", "OMEN", "SAGE", "RAZE"}
	defenders := []string{"PHOENIX", "BREACH", "VIPER", "CYPHER", "NEON"}
	for i, agent := range attackers {
		if _, err := s.AddPlayer(i+1, agent, agent, match.TeamAttackers, match.NewSkills(0.7, 0.4, 0.6, 0.5)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	for i, agent := range defenders {
		if _, err := s.AddPlayer(i+6, agent, agent, match.TeamDefenders, match.NewSkills(0.65, 0.35, 0.6, 0.5)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	return s
}

func TestSnapshot_RoundTrip(t *testing.T) {
	sim := buildMatch(t, 42)
	if err := sim.RunToCompletion(); err != nil {
		t.Fatalf("run: %v", err)
	}

	snap, err := Capture(sim, 42)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if snap.Header.Version != 1 {
		t.Fatalf("version %d", snap.Header.Version)
	}
	if snap.State.PhaseKind != "MATCH_END" {
		t.Fatalf("phase %s", snap.State.PhaseKind)
	}
	if len(snap.Players) != 10 {
		t.Fatalf("players %d", len(snap.Players))
	}
	if len(snap.Events) != len(sim.Events()) {
		t.Fatalf("events %d vs %d", len(snap.Events), len(sim.Events()))
	}

	path := filepath.Join(t.TempDir(), "match", "final.snap")
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, snap) {
		t.Fatal("snapshot changed across write/read")
	}
}

func TestSnapshot_CaptureMidMatch(t *testing.T) {
	sim := buildMatch(t, 7)
	if err := sim.AdvanceTicks(100); err != nil {
		t.Fatalf("advance: %v", err)
	}

	snap, err := Capture(sim, 7)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	st := sim.State()
	if snap.Header.Tick != st.TickCount {
		t.Fatalf("tick %d vs %d", snap.Header.Tick, st.TickCount)
	}
	if snap.State.PhaseKind != st.Phase.Kind() {
		t.Fatalf("phase %s vs %s", snap.State.PhaseKind, st.Phase.Kind())
	}
	if snap.Seed != 7 {
		t.Fatalf("seed %d", snap.Seed)
	}
}

func TestReadSnapshot_MissingFile(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.snap")); err == nil {
		t.Fatal("missing file read succeeded")
	}
}
